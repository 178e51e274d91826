package app

import (
	"context"
	"errors"
	stdhttp "net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/ircgate/internal/backend"
	"github.com/vovakirdan/ircgate/internal/chat"
	"github.com/vovakirdan/ircgate/internal/config"
	"github.com/vovakirdan/ircgate/internal/core"
	"github.com/vovakirdan/ircgate/internal/irc"
	"github.com/vovakirdan/ircgate/internal/transform"
	transporthttp "github.com/vovakirdan/ircgate/internal/transport/http"
)

// Version is reported in the IRC welcome burst and by the CLI.
var Version = "dev"

// App wires together the IRC server, the backend sessions and the status API.
type App struct {
	cfg             config.Config
	irc             *irc.Server
	status          *stdhttp.Server
	shutdownTimeout time.Duration
	log             *zerolog.Logger
}

// New constructs the application with provided configuration.
func New(cfg config.Config, logger *zerolog.Logger) (*App, error) {
	var transformers []transform.Transformer
	if cfg.Transform.Smileys {
		transformers = append(transformers, transform.Smileys{})
	}
	pipeline := transform.NewPipeline(logger, transformers...)

	newBackend := func(l *zerolog.Logger) (chat.Backend, error) {
		return backend.New(cfg.Backend, l)
	}
	// Fail at startup on a bad backend URL rather than on the first client.
	if _, err := newBackend(logger); err != nil {
		return nil, err
	}

	server := irc.NewServer(irc.Options{
		Hostname:        cfg.IRC.Hostname,
		Version:         Version,
		Started:         time.Now(),
		AnonymousGender: core.ParseGender(cfg.Backend.AnonymousGender),
		Sync:            cfg.Sync,
		Idler:           cfg.Idler,
	}, newBackend, core.NewDirectory(), pipeline, logger)

	a := &App{
		cfg:             cfg,
		irc:             server,
		shutdownTimeout: cfg.Status.ShutdownTimeout,
		log:             logger,
	}
	if cfg.Status.Addr != "" {
		a.status = transporthttp.NewServer(server, cfg.Status, logger)
	}

	logger.Info().
		Str("backend", cfg.Backend.BaseURL).
		Bool("idler", cfg.Idler.Enabled).
		Strs("transformers", pipeline.Names()).
		Msg("gateway configured")
	return a, nil
}

// Run starts the servers and blocks until context cancellation or fatal error.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	ircErr := make(chan error, 1)
	go func() {
		ircErr <- a.irc.ListenAndServe(ctx, a.cfg.IRC.Addr)
	}()

	statusErr := make(chan error, 1)
	if a.status != nil {
		go func() {
			a.log.Info().Str("addr", a.status.Addr).Msg("status server listening")
			if err := a.status.ListenAndServe(); err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
				statusErr <- err
				return
			}
			statusErr <- nil
		}()
	}

	var runErr error
	ircDone := false
	select {
	case err := <-ircErr:
		runErr, ircDone = err, true
	case err := <-statusErr:
		runErr = err
	case <-ctx.Done():
	}

	a.log.Info().Msg("shutting down")
	cancel()
	if err := a.irc.Close(); err != nil {
		a.log.Debug().Err(err).Msg("irc listener close")
	}
	if err := a.shutdownStatus(); err != nil && runErr == nil {
		runErr = err
	}
	if !ircDone {
		if err := <-ircErr; err != nil && runErr == nil {
			runErr = err
		}
	}
	return runErr
}

func (a *App) shutdownStatus() error {
	if a.status == nil {
		return nil
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
	defer cancel()

	a.log.Info().Msg("shutting down status server")
	return a.status.Shutdown(shutdownCtx)
}
