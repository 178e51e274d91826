// Package chattest provides an in-memory chat backend and an event recorder
// for exercising sessions and IRC connections without HTTP.
package chattest

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/vovakirdan/ircgate/internal/backend"
	"github.com/vovakirdan/ircgate/internal/core"
)

// SelfID is the backend id assigned to whoever logs in.
const SelfID int64 = 1000

// Call records one backend message call.
type Call struct {
	Op     string
	RoomID string
	Index  string
	Result string
	Text   string
}

// Room is the backend side of a room.
type Room struct {
	Name        string
	Description string
	ID          string
	Users       []*core.User
	Admins      []string

	log         []backend.Message
	kicked      bool
	rateLimited bool
}

// Backend is a scripted chat backend. Messages pushed into a room form its
// log; the chat index is the log length qualified by the room id.
type Backend struct {
	mu       sync.Mutex
	rooms    []*Room
	self     core.User
	loggedIn bool
	profiles map[string]*backend.Profile
	calls    []Call
	nextID   int

	loginErr  error
	logoutErr error

	pollGate    chan struct{}
	pollEntered chan string
}

// New returns an empty backend.
func New() *Backend {
	return &Backend{
		profiles: make(map[string]*backend.Profile),
		nextID:   100,
	}
}

// AddRoom creates a room with initial members.
func (b *Backend) AddRoom(name, description string, users ...*core.User) *Room {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	r := &Room{
		Name:        name,
		Description: description,
		ID:          strconv.Itoa(b.nextID),
		Users:       users,
	}
	b.rooms = append(b.rooms, r)
	return r
}

// SetAdmins sets the admin list shown on the room page.
func (b *Backend) SetAdmins(room string, admins ...string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if r := b.byName(room); r != nil {
		r.Admins = admins
	}
}

// Push appends messages to a room's log.
func (b *Backend) Push(room string, msgs ...backend.Message) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if r := b.byName(room); r != nil {
		r.log = append(r.log, msgs...)
	}
}

// SetKicked makes every poll and send for the room report that the session is not a member.
func (b *Backend) SetKicked(room string, kicked bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if r := b.byName(room); r != nil {
		r.kicked = kicked
	}
}

// SetRateLimited makes sends to the room return the unchanged index.
func (b *Backend) SetRateLimited(room string, limited bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if r := b.byName(room); r != nil {
		r.rateLimited = limited
	}
}

// SetLoginError makes the next logins fail with err.
func (b *Backend) SetLoginError(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.loginErr = err
}

// SetLogoutError makes logouts fail with err.
func (b *Backend) SetLogoutError(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.logoutErr = err
}

// SetProfile registers the profile page of nick.
func (b *Backend) SetProfile(nick string, p *backend.Profile) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.profiles[nick] = p
}

// GatePolls holds every message poll until release is called. Each held poll
// first reports its room id on entered.
func (b *Backend) GatePolls() (entered <-chan string, release func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	gate := make(chan struct{})
	in := make(chan string, 16)
	b.pollGate = gate
	b.pollEntered = in

	var once sync.Once
	return in, func() {
		once.Do(func() {
			b.mu.Lock()
			b.pollGate = nil
			b.mu.Unlock()
			close(gate)
		})
	}
}

// Calls returns the recorded message calls in order.
func (b *Backend) Calls() []Call {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Call(nil), b.calls...)
}

// LoggedIn reports the backend's view of the session.
func (b *Backend) LoggedIn() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.loggedIn
}

// Self returns the logged-in user.
func (b *Backend) Self() core.User {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.self
}

// Members returns the names of the room's members.
func (b *Backend) Members(room string) []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	r := b.byName(room)
	if r == nil {
		return nil
	}
	names := make([]string, 0, len(r.Users))
	for _, u := range r.Users {
		names = append(names, u.Name)
	}
	return names
}

func (b *Backend) Login(_ context.Context, identifier, _ string) error {
	return b.login(core.User{ID: SelfID, Name: identifier})
}

func (b *Backend) LoginAnonymous(_ context.Context, nickname string, gender core.Gender) error {
	return b.login(core.User{ID: SelfID, Name: nickname, Gender: gender, Anonymous: true})
}

func (b *Backend) login(u core.User) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.loginErr != nil {
		return b.loginErr
	}
	b.self = u
	b.loggedIn = true
	return nil
}

func (b *Backend) Logout(context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.logoutErr != nil {
		return b.logoutErr
	}
	b.loggedIn = false
	return nil
}

func (b *Backend) FetchRoomListing(context.Context) ([]*core.Room, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	rooms := make([]*core.Room, 0, len(b.rooms))
	for _, r := range b.rooms {
		rooms = append(rooms, core.NewRoom(r.Name, r.Description, len(r.Users)))
	}
	return rooms, nil
}

func (b *Backend) FetchRoom(_ context.Context, name string) (*backend.RoomPage, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	r := b.byName(name)
	if r == nil {
		return nil, core.RoomError("Failed to get room ID!")
	}
	if !b.loggedIn {
		return nil, core.RoomError("Failed to get user list for the room: %s", name)
	}
	r.kicked = false
	if memberIndex(r, b.self.ID) < 0 {
		self := b.self
		r.Users = append(r.Users, &self)
	}

	page := &backend.RoomPage{ID: r.ID, Admins: append([]string(nil), r.Admins...), AdminsFound: true}
	for _, u := range r.Users {
		c := *u
		page.Users = append(page.Users, &c)
	}
	return page, nil
}

func (b *Backend) LeaveRoom(_ context.Context, roomID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	r := b.byID(roomID)
	if r == nil || !b.loggedIn {
		return core.RoomError("Failed to leave the room %s", roomID)
	}
	if i := memberIndex(r, b.self.ID); i >= 0 {
		r.Users = append(r.Users[:i], r.Users[i+1:]...)
	}
	return nil
}

func (b *Backend) PollHeader(context.Context) error { return nil }

func (b *Backend) PollMessages(_ context.Context, roomID, chatIndex string) (*backend.Envelope, error) {
	b.mu.Lock()
	gate, entered := b.pollGate, b.pollEntered
	b.mu.Unlock()
	if gate != nil {
		entered <- roomID
		<-gate
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	r := b.byID(roomID)
	if r == nil || r.kicked {
		return &backend.Envelope{StatusMessage: backend.StatusNotInRoom}, nil
	}
	env := r.since(chatIndex)
	b.calls = append(b.calls, Call{Op: "poll", RoomID: roomID, Index: chatIndex, Result: env.Index})
	return env, nil
}

var directive = regexp.MustCompile(`^/(w|kick|admin)\s+(?:"([^"]+)"|(\S+))\s*(.*)$`)

func (b *Backend) PostText(_ context.Context, roomID, chatIndex, text string) (*backend.Envelope, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	r := b.byID(roomID)
	if r == nil || r.kicked {
		return &backend.Envelope{StatusMessage: backend.StatusNotInRoom}, nil
	}
	if r.rateLimited {
		b.calls = append(b.calls, Call{Op: "send", RoomID: roomID, Index: chatIndex, Result: chatIndex, Text: text})
		return &backend.Envelope{Success: true, Index: chatIndex}, nil
	}

	r.log = append(r.log, b.interpret(r, text)...)
	env := r.since(chatIndex)
	b.calls = append(b.calls, Call{Op: "send", RoomID: roomID, Index: chatIndex, Result: env.Index, Text: text})
	return env, nil
}

// interpret turns a posted text into the log entries the backend would produce.
func (b *Backend) interpret(r *Room, text string) []backend.Message {
	m := directive.FindStringSubmatch(text)
	if m == nil {
		return []backend.Message{Chat(b.self.ID, text)}
	}
	target := m[2] + m[3]
	switch m[1] {
	case "w":
		msg := Whisper(b.self.ID, m[4])
		if u := b.member(r, target); u != nil {
			msg.To = u.ID
		}
		return []backend.Message{msg}
	case "kick":
		if u := b.member(r, target); u != nil {
			r.Users = removeUser(r.Users, u.ID)
			return []backend.Message{Leave(u.ID)}
		}
		return nil
	default:
		return []backend.Message{AdminGranted(target)}
	}
}

func (b *Backend) PollUserActivity(_ context.Context, roomID string) (*backend.Envelope, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	r := b.byID(roomID)
	if r == nil {
		return &backend.Envelope{StatusMessage: backend.StatusNotInRoom}, nil
	}
	env := &backend.Envelope{Success: true}
	for _, u := range r.Users {
		env.Messages = append(env.Messages, backend.Message{UID: u.ID, Idle: u.IdleSeconds})
	}
	return env, nil
}

func (b *Backend) FetchProfile(_ context.Context, nick string) (*backend.Profile, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.profiles[nick], nil
}

// since returns the log entries after chatIndex. An empty or foreign index reads from the start.
func (r *Room) since(chatIndex string) *backend.Envelope {
	from := 0
	if prefix, n, ok := strings.Cut(chatIndex, "."); ok && prefix == r.ID {
		from, _ = strconv.Atoi(n)
	}
	if from > len(r.log) {
		from = len(r.log)
	}
	return &backend.Envelope{
		Success:  true,
		Index:    fmt.Sprintf("%s.%d", r.ID, len(r.log)),
		Messages: append([]backend.Message(nil), r.log[from:]...),
	}
}

func (b *Backend) byName(name string) *Room {
	for _, r := range b.rooms {
		if r.Name == name {
			return r
		}
	}
	return nil
}

func (b *Backend) byID(id string) *Room {
	for _, r := range b.rooms {
		if r.ID == id {
			return r
		}
	}
	return nil
}

func (b *Backend) member(r *Room, name string) *core.User {
	for _, u := range r.Users {
		if u.Name == name {
			return u
		}
	}
	return nil
}

func memberIndex(r *Room, id int64) int {
	for i, u := range r.Users {
		if u.ID == id {
			return i
		}
	}
	return -1
}

func removeUser(users []*core.User, id int64) []*core.User {
	out := users[:0]
	for _, u := range users {
		if u.ID != id {
			out = append(out, u)
		}
	}
	return out
}
