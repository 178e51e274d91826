package chat

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/ircgate/internal/backend"
	"github.com/vovakirdan/ircgate/internal/config"
	"github.com/vovakirdan/ircgate/internal/core"
)

const (
	msgNotSent     = "Your message probably wasn't sent! If you are an anonymous user, you can send only one message per 10 seconds!"
	msgNoWhisperTo = "Failed to create a whisper message! There are no active rooms. Join the room first!"
)

// RoomView is a consistent snapshot of a joined room and its members.
type RoomView struct {
	Room  core.RoomInfo
	Users []core.User
}

// Session is one authenticated backend session and the rooms it has joined.
//
// Lock order: the room list lock, then a room's own lock. Events are delivered
// with both held.
type Session struct {
	backend Backend
	dir     *core.Directory
	sink    core.EventSink
	sync    config.SyncConfig
	idler   *Idler
	log     *zerolog.Logger
	now     func() time.Time

	mu    sync.Mutex
	rooms []*core.Room

	loggedIn atomic.Bool
	stopped  atomic.Bool
	loopMu   sync.Mutex
	stop     chan struct{}
	done     chan struct{}
}

// NewSession creates a logged-out session delivering events to sink.
func NewSession(b Backend, dir *core.Directory, sink core.EventSink, syncCfg config.SyncConfig, idler *Idler, logger *zerolog.Logger) *Session {
	if idler == nil {
		idler = NewIdler(config.IdlerConfig{})
	}
	return &Session{
		backend: b,
		dir:     dir,
		sink:    sink,
		sync:    syncCfg,
		idler:   idler,
		log:     logger,
		now:     time.Now,
	}
}

// SetClock replaces the time source used for activity timestamps and the idler.
func (s *Session) SetClock(now func() time.Time) {
	s.now = now
}

// Idler returns the session's idler.
func (s *Session) Idler() *Idler { return s.idler }

// LoggedIn reports whether the last login succeeded and no logout happened since.
func (s *Session) LoggedIn() bool { return s.loggedIn.Load() }

// Login authenticates a registered account and starts polling.
func (s *Session) Login(ctx context.Context, identifier, secret string) error {
	s.loggedIn.Store(false)
	if err := s.backend.Login(ctx, identifier, secret); err != nil {
		return err
	}
	s.loggedIn.Store(true)
	s.start()
	return nil
}

// LoginAnonymous enters the chat without an account and starts polling.
func (s *Session) LoginAnonymous(ctx context.Context, nickname string, gender core.Gender) error {
	s.loggedIn.Store(false)
	if err := s.backend.LoginAnonymous(ctx, nickname, gender); err != nil {
		return err
	}
	s.loggedIn.Store(true)
	s.start()
	return nil
}

// Logout ends the backend session. Polling stops only when the backend confirms.
func (s *Session) Logout(ctx context.Context) error {
	if err := s.backend.Logout(ctx); err != nil {
		return err
	}
	s.loggedIn.Store(false)
	s.Stop()
	return nil
}

// Join enters the named room and returns its state right after entry.
func (s *Session) Join(ctx context.Context, name string) (*RoomView, error) {
	if view, ok := s.ActiveRoom(name); ok {
		return view, nil
	}

	listing, err := s.backend.FetchRoomListing(ctx)
	if err != nil {
		return nil, err
	}
	var room *core.Room
	for _, r := range listing {
		if r.Name == name {
			room = r
			break
		}
	}
	if room == nil {
		return nil, core.RoomError("No such room: %s", name)
	}

	s.log.Info().Str("room", name).Msg("entering room")
	page, err := s.backend.FetchRoom(ctx, name)
	if err != nil {
		return nil, err
	}

	room.Lock()
	room.SetID(page.ID)
	room.SetUsers(page.Users)
	room.SetAdmins(page.Admins)
	room.Touch(s.now())
	view := viewOf(room)
	room.Unlock()

	if !page.AdminsFound {
		s.log.Warn().Str("room", name).Msg("room page has no admin list")
	}
	s.dir.AddAll(page.Users)

	s.mu.Lock()
	s.rooms = append(s.rooms, room)
	s.mu.Unlock()

	s.log.Info().Str("room", name).Str("room_id", page.ID).Int("users", len(page.Users)).Msg("room joined")

	s.CheckUsers(ctx)
	return view, nil
}

// Part leaves a joined room.
func (s *Session) Part(ctx context.Context, name string) error {
	s.mu.Lock()
	room := s.findLocked(name)
	s.mu.Unlock()
	if room == nil {
		return core.RoomError("Room %s is not joined", name)
	}

	room.Lock()
	id := room.ID()
	room.Unlock()

	s.log.Info().Str("room", name).Msg("leaving room")
	if err := s.backend.LeaveRoom(ctx, id); err != nil {
		return err
	}

	s.mu.Lock()
	s.removeLocked(id)
	s.mu.Unlock()
	return nil
}

// Say posts text to a joined room.
func (s *Session) Say(ctx context.Context, roomName, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	room := s.findLocked(roomName)
	if room == nil {
		return core.MessageError("Room %s is not joined", roomName)
	}
	room.Lock()
	defer room.Unlock()
	return s.send(ctx, room, text)
}

// Whisper sends a private message to nick through the first joined room.
func (s *Session) Whisper(ctx context.Context, nick, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.rooms) == 0 {
		return core.MessageError(msgNoWhisperTo)
	}
	room := s.rooms[0]
	room.Lock()
	defer room.Unlock()
	return s.send(ctx, room, whisperDirective(nick, text))
}

// Kick asks the backend to remove nick from the room.
func (s *Session) Kick(ctx context.Context, roomName, nick, reason string) error {
	return s.Say(ctx, roomName, strings.TrimSpace(fmt.Sprintf("/kick %s %s", nick, reason)))
}

// Admin hands the room operator role to nick. The previous operator, when
// known, is reported with a "-h" mode event.
func (s *Session) Admin(ctx context.Context, roomName, nick string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	room := s.findLocked(roomName)
	if room == nil {
		return core.MessageError("Room %s is not joined", roomName)
	}
	room.Lock()
	defer room.Unlock()

	previous := room.OperatorID()
	if err := s.send(ctx, room, "/admin "+nick); err != nil {
		return err
	}
	if previous < 0 {
		return nil
	}
	var u core.User
	if member := room.UserByID(previous); member != nil {
		u = *member
	} else if known, ok := s.dir.ByID(previous); ok {
		u = known
	} else {
		return nil
	}
	if u.Name != nick {
		s.sink.UserMode(room.Info(), u, "-h")
	}
	return nil
}

// ActiveRoomNames lists joined rooms in join order.
func (s *Session) ActiveRoomNames() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	names := make([]string, 0, len(s.rooms))
	for _, r := range s.rooms {
		names = append(names, r.Name)
	}
	return names
}

// ActiveRoom returns a snapshot of a joined room.
func (s *Session) ActiveRoom(name string) (*RoomView, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	room := s.findLocked(name)
	if room == nil {
		return nil, false
	}
	room.Lock()
	defer room.Unlock()
	return viewOf(room), true
}

// RoomListing downloads the room index.
func (s *Session) RoomListing(ctx context.Context) ([]*core.Room, error) {
	return s.backend.FetchRoomListing(ctx)
}

// UserByName searches joined rooms first, then the directory.
func (s *Session) UserByName(name string) (core.User, bool) {
	s.mu.Lock()
	for _, r := range s.rooms {
		r.Lock()
		u := r.UserByName(name)
		r.Unlock()
		if u != nil {
			s.mu.Unlock()
			return *u, true
		}
	}
	s.mu.Unlock()

	return s.dir.ByName(name)
}

// Profile fetches a user's public profile; nil when the backend has none.
func (s *Session) Profile(ctx context.Context, nick string) (*backend.Profile, error) {
	return s.backend.FetchProfile(ctx, nick)
}

// send posts text to room. The caller holds the room list lock and the room lock.
func (s *Session) send(ctx context.Context, room *core.Room, text string) error {
	before := room.ChatIndex()
	s.log.Debug().Str("room", room.Name).Str("room_id", room.ID()).Str("text", text).Msg("sending")

	env, err := s.backend.PostText(ctx, room.ID(), before, text)
	if err != nil {
		return err
	}
	room.Touch(s.now())

	if !env.Success {
		s.process(room, env)
		reason := env.StatusMessage
		if reason == "" {
			reason = msgNotSent
		}
		return core.MessageError("%s", reason)
	}
	if env.Index == before {
		return core.MessageError(msgNotSent)
	}

	room.SetLastMessage(text)
	s.process(room, env)
	return nil
}

// process applies a poll or send response. The caller holds both locks.
func (s *Session) process(room *core.Room, env *backend.Envelope) {
	if !env.Success {
		if env.StatusMessage == backend.StatusNotInRoom {
			s.log.Warn().Str("room", room.Name).Msg("no longer a member of the room")
			s.sink.Kicked(room.Info())
			s.removeLocked(room.ID())
			return
		}
		s.log.Error().Str("room", room.Name).Str("status", env.StatusMessage).Msg("failed to get new messages")
		return
	}

	room.SetChatIndex(env.Index)
	first := len(s.rooms) > 0 && s.rooms[0] == room
	for _, msg := range env.Messages {
		s.dispatch(room, first, msg)
	}
}

func (s *Session) findLocked(name string) *core.Room {
	for _, r := range s.rooms {
		if r.Name == name {
			return r
		}
	}
	return nil
}

func (s *Session) removeLocked(id string) {
	kept := s.rooms[:0]
	for _, r := range s.rooms {
		if r.ID() != id {
			kept = append(kept, r)
		}
	}
	for i := len(kept); i < len(s.rooms); i++ {
		s.rooms[i] = nil
	}
	s.rooms = kept
	s.idler.Forget(id)
}

func viewOf(room *core.Room) *RoomView {
	members := room.Users()
	view := &RoomView{Room: room.Info(), Users: make([]core.User, 0, len(members))}
	for _, u := range members {
		view.Users = append(view.Users, *u)
	}
	return view
}

func whisperDirective(nick, text string) string {
	return fmt.Sprintf("/w \"%s\" %s", nick, text)
}
