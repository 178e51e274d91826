// Package http serves the gateway's status API and the IRC-over-WebSocket endpoint.
package http

import (
	"context"
	"io"
	stdhttp "net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/ircgate/internal/auth"
	"github.com/vovakirdan/ircgate/internal/config"
	"github.com/vovakirdan/ircgate/internal/irc"
)

// Gateway is the part of the IRC server the HTTP layer needs.
type Gateway interface {
	Sessions() []irc.ConnInfo
	ServeConn(ctx context.Context, rw io.ReadWriteCloser, remote string)
}

// ErrorResponse represents an error response body.
type ErrorResponse struct {
	Error string `json:"error"`
}

// NewServer builds the status HTTP server. /api is guarded by bearer tokens
// when a JWT secret is configured.
func NewServer(gw Gateway, cfg config.StatusConfig, logger *zerolog.Logger) *stdhttp.Server {
	return &stdhttp.Server{
		Addr:              cfg.Addr,
		Handler:           NewHandler(gw, cfg, logger),
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}

// NewHandler mounts the WebSocket endpoint next to the gin router. The upgrade
// needs to hijack a connection gin has not written to yet.
func NewHandler(gw Gateway, cfg config.StatusConfig, logger *zerolog.Logger) stdhttp.Handler {
	mux := stdhttp.NewServeMux()
	mux.Handle("/irc", NewWSHandler(gw, cfg.WSLinesPerMinute, logger))
	mux.Handle("/", NewRouter(gw, cfg, logger))
	return mux
}

// NewRouter registers the status routes on a fresh gin engine.
func NewRouter(gw Gateway, cfg config.StatusConfig, logger *zerolog.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), LoggerMiddleware(logger))

	r.GET("/health", healthHandler)

	api := r.Group("/api")
	if cfg.JWTSecret != "" {
		api.Use(AuthMiddleware(auth.TokenConfig{Secret: []byte(cfg.JWTSecret), Issuer: cfg.JWTIssuer}, logger))
	} else {
		logger.Warn().Msg("status API runs without authentication")
	}
	api.GET("/sessions", sessionsHandler(gw))
	return r
}

func healthHandler(c *gin.Context) {
	c.String(stdhttp.StatusOK, "ok")
}

// sessionsHandler lists live IRC connections.
// GET /api/sessions
func sessionsHandler(gw Gateway) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(stdhttp.StatusOK, gw.Sessions())
	}
}
