package http

import (
	"bytes"
	"context"
	stdhttp "net/http"

	"github.com/coder/websocket"
	"github.com/rs/zerolog"
)

// WSHandler upgrades HTTP connections and runs the IRC protocol over them.
// Every text or binary frame carries one or more IRC lines.
type WSHandler struct {
	gw             Gateway
	linesPerMinute int
	log            *zerolog.Logger
}

// NewWSHandler builds a new WebSocket handler.
func NewWSHandler(gw Gateway, linesPerMinute int, logger *zerolog.Logger) stdhttp.Handler {
	return &WSHandler{gw: gw, linesPerMinute: linesPerMinute, log: logger}
}

func (h *WSHandler) ServeHTTP(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.log.Error().Err(err).Msg("ws accept error")
		return
	}
	defer conn.CloseNow()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	stream := &wsStream{ctx: ctx, conn: conn, limiter: newRateLimiter(h.linesPerMinute), log: h.log}
	h.gw.ServeConn(ctx, stream, "ws:"+r.RemoteAddr)
}

// wsStream adapts a WebSocket to the line stream the IRC connection reads and writes.
type wsStream struct {
	ctx     context.Context
	conn    *websocket.Conn
	limiter *rateLimiter
	log     *zerolog.Logger
	buf     []byte
}

func (s *wsStream) Read(p []byte) (int, error) {
	for len(s.buf) == 0 {
		_, data, err := s.conn.Read(s.ctx)
		if err != nil {
			return 0, err
		}
		if !s.limiter.allow() {
			s.log.Warn().Int("bytes", len(data)).Msg("ws frame dropped by rate limit")
			continue
		}
		if !bytes.HasSuffix(data, []byte("\n")) {
			data = append(data, '\n')
		}
		s.buf = data
	}
	n := copy(p, s.buf)
	s.buf = s.buf[n:]
	return n, nil
}

// Write sends one frame per call; the IRC connection writes whole lines.
func (s *wsStream) Write(p []byte) (int, error) {
	if err := s.conn.Write(s.ctx, websocket.MessageText, bytes.TrimRight(p, "\r\n")); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (s *wsStream) Close() error {
	return s.conn.Close(websocket.StatusNormalClosure, "closing")
}
