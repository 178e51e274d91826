package chat

import (
	"context"
	"time"

	"github.com/vovakirdan/ircgate/internal/core"
)

// start launches the polling loop unless it is already running.
func (s *Session) start() {
	s.loopMu.Lock()
	defer s.loopMu.Unlock()

	if s.stop != nil {
		return
	}
	s.stopped.Store(false)
	s.stop = make(chan struct{})
	s.done = make(chan struct{})
	go s.run(s.stop, s.done)
}

// Stop ends the polling loop. A tick in progress finishes its calls first.
func (s *Session) Stop() {
	s.loopMu.Lock()
	defer s.loopMu.Unlock()

	s.stopped.Store(true)
	if s.stop == nil {
		return
	}
	close(s.stop)
	s.stop = nil
}

// Done is closed when the polling loop has exited. It is nil before the first login.
func (s *Session) Done() <-chan struct{} {
	s.loopMu.Lock()
	defer s.loopMu.Unlock()
	return s.done
}

func (s *Session) run(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.sync.Tick)
	defer ticker.Stop()

	ctx := context.Background()
	lastMessages := time.Now()
	lastUsers := lastMessages

	s.log.Debug().Dur("tick", s.sync.Tick).Msg("polling started")
	for {
		select {
		case <-stop:
			s.log.Debug().Msg("polling stopped")
			return
		case now := <-ticker.C:
			if s.stopped.Load() {
				return
			}
			if now.Sub(lastUsers) >= s.sync.UsersInterval {
				lastUsers = now
				s.guard("users check", func() { s.CheckUsers(ctx) })
			}
			if now.Sub(lastMessages) >= s.sync.MessagesInterval {
				lastMessages = now
				s.guard("messages check", func() { s.CheckMessages(ctx) })
			}
		}
	}
}

// guard keeps a failing task from taking the loop down.
func (s *Session) guard(task string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error().Interface("panic", r).Str("task", task).Msg("polling task failed")
		}
	}()
	fn()
}

// CheckUsers refreshes the header and the idle times of every joined room.
// Failures are logged and otherwise ignored.
func (s *Session) CheckUsers(ctx context.Context) {
	if err := s.backend.PollHeader(ctx); err != nil {
		s.log.Warn().Err(err).Msg("header refresh failed")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, room := range append([]*core.Room(nil), s.rooms...) {
		room.Lock()
		env, err := s.backend.PollUserActivity(ctx, room.ID())
		if err != nil {
			s.log.Warn().Err(err).Str("room", room.Name).Msg("user activity poll failed")
		} else if env.Success {
			for _, m := range env.Messages {
				if u := room.UserByID(m.UID); u != nil && m.UID != 0 {
					u.IdleSeconds = m.Idle
				}
			}
		}
		room.Unlock()
	}
}

// CheckMessages polls every joined room for new messages, then runs the idler.
func (s *Session) CheckMessages(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, room := range append([]*core.Room(nil), s.rooms...) {
		room.Lock()
		s.log.Debug().Str("room", room.Name).Msg("checking for new messages")
		env, err := s.backend.PollMessages(ctx, room.ID(), room.ChatIndex())
		if err != nil {
			s.log.Error().Err(err).Str("room", room.Name).Msg("message poll failed")
		} else {
			s.process(room, env)
		}
		room.Unlock()
	}

	if !s.idler.Enabled() {
		return
	}
	for _, room := range append([]*core.Room(nil), s.rooms...) {
		room.Lock()
		s.idle(ctx, room)
		room.Unlock()
	}
}

// idle sends a filler phrase to an inactive room. The caller holds both locks.
func (s *Session) idle(ctx context.Context, room *core.Room) {
	if !s.idler.Due(s.now(), room.Timestamp()) {
		return
	}
	phrase := s.idler.Next(room.ID(), room.LastMessage())
	if err := s.send(ctx, room, phrase); err != nil {
		s.log.Warn().Err(err).Str("room", room.Name).Msg("idler message failed")
		return
	}
	s.sink.SystemMessage(room.Info(), "IDLER: "+phrase)
}
