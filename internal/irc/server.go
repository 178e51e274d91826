// Package irc is the IRC side of the gateway: a TCP server whose
// connections each drive one backend session.
package irc

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/ircgate/internal/chat"
	"github.com/vovakirdan/ircgate/internal/config"
	"github.com/vovakirdan/ircgate/internal/core"
	"github.com/vovakirdan/ircgate/internal/transform"
	"github.com/vovakirdan/ircgate/internal/utils"
)

// Options are the per-connection settings shared by all clients.
type Options struct {
	Hostname        string
	Version         string
	Started         time.Time
	AnonymousGender core.Gender
	Sync            config.SyncConfig
	Idler           config.IdlerConfig
}

// BackendFactory builds a fresh backend session for one connection.
type BackendFactory func(logger *zerolog.Logger) (chat.Backend, error)

// Server accepts IRC clients and keeps track of live connections.
type Server struct {
	opts       Options
	newBackend BackendFactory
	dir        *core.Directory
	pipeline   *transform.Pipeline
	log        *zerolog.Logger

	mu     sync.Mutex
	conns  map[string]*Conn
	ln     net.Listener
	closed bool
	wg     sync.WaitGroup
}

// NewServer constructs a server. All connections share dir and pipeline.
func NewServer(opts Options, newBackend BackendFactory, dir *core.Directory, pipeline *transform.Pipeline, logger *zerolog.Logger) *Server {
	if opts.Started.IsZero() {
		opts.Started = time.Now()
	}
	return &Server{
		opts:       opts,
		newBackend: newBackend,
		dir:        dir,
		pipeline:   pipeline,
		log:        logger,
		conns:      make(map[string]*Conn),
	}
}

// ListenAndServe listens on addr and serves until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is cancelled or Close is called.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		_ = ln.Close()
		return net.ErrClosed
	}
	s.ln = ln
	s.mu.Unlock()

	s.log.Info().Str("addr", ln.Addr().String()).Msg("irc server listening")

	stop := context.AfterFunc(ctx, func() { _ = s.Close() })
	defer stop()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				s.wg.Wait()
				return nil
			}
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				s.log.Warn().Err(err).Msg("accept timeout")
				continue
			}
			return fmt.Errorf("accept: %w", err)
		}

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.ServeConn(ctx, conn, conn.RemoteAddr().String())
		}()
	}
}

// ServeConn runs the IRC protocol over rw until the client leaves. It is
// used for TCP clients and for the WebSocket bridge.
func (s *Server) ServeConn(ctx context.Context, rw io.ReadWriteCloser, remote string) {
	id := utils.NewID()
	connLog := s.log.With().Str("conn_id", id).Str("remote", remote).Logger()

	b, err := s.newBackend(&connLog)
	if err != nil {
		connLog.Error().Err(err).Msg("backend session setup failed")
		_ = rw.Close()
		return
	}

	c := newConn(id, remote, rw, b, s.dir, s.opts, s.pipeline, &connLog)
	if !s.register(c) {
		_ = rw.Close()
		return
	}
	defer s.unregister(c)

	connLog.Info().Msg("client connected")
	c.serve(ctx)
}

func (s *Server) register(c *Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.conns[c.id] = c
	return true
}

func (s *Server) unregister(c *Conn) {
	s.mu.Lock()
	delete(s.conns, c.id)
	s.mu.Unlock()
}

// Sessions returns a snapshot of live connections ordered by id.
func (s *Server) Sessions() []ConnInfo {
	s.mu.Lock()
	conns := make([]*Conn, 0, len(s.conns))
	for _, c := range s.conns {
		conns = append(conns, c)
	}
	s.mu.Unlock()

	infos := make([]ConnInfo, 0, len(conns))
	for _, c := range conns {
		infos = append(infos, c.Info())
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].ID < infos[j].ID })
	return infos
}

// Close stops accepting and closes every connection; each one logs out on the way down.
func (s *Server) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	ln := s.ln
	conns := make([]*Conn, 0, len(s.conns))
	for _, c := range s.conns {
		conns = append(conns, c)
	}
	s.mu.Unlock()

	var err error
	if ln != nil {
		err = ln.Close()
	}
	for _, c := range conns {
		_ = c.Close()
	}
	return err
}
