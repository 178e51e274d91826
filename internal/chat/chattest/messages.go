package chattest

import (
	"fmt"
	"sync"
	"time"

	"github.com/vovakirdan/ircgate/internal/backend"
	"github.com/vovakirdan/ircgate/internal/core"
)

// Chat is a public chat line from uid.
func Chat(uid int64, text string) backend.Message {
	return backend.Message{UID: uid, Text: text}
}

// Whisper is a private line from uid addressed to the session.
func Whisper(uid int64, text string) backend.Message {
	return backend.Message{UID: uid, Text: text, Whisper: true}
}

// Enter announces u entering the room.
func Enter(u core.User) backend.Message {
	return backend.Message{IsSystem: true, System: "enter", User: &u}
}

// Leave announces uid leaving the room.
func Leave(uid int64) backend.Message {
	return backend.Message{IsSystem: true, System: "leave", UID: uid}
}

// Notice is a backend notice shown to the session.
func Notice(text string) backend.Message {
	return backend.Message{IsSystem: true, System: "cli", Text: text}
}

// AdminGranted announces nick as the new room operator.
func AdminGranted(nick string) backend.Message {
	return backend.Message{IsSystem: true, System: "admin", Nick: nick}
}

// Event is one recorded sink call.
type Event struct {
	Kind    string
	Room    core.RoomInfo
	User    core.User
	Text    string
	Whisper bool
}

func (e Event) String() string {
	switch e.Kind {
	case "message":
		return fmt.Sprintf("message %s <%s> %s whisper=%t", e.Room.Name, e.User.Name, e.Text, e.Whisper)
	case "joined", "left":
		return fmt.Sprintf("%s %s %s", e.Kind, e.Room.Name, e.User.Name)
	case "mode":
		return fmt.Sprintf("mode %s %s %s", e.Room.Name, e.Text, e.User.Name)
	case "kicked":
		return "kicked " + e.Room.Name
	default:
		return fmt.Sprintf("%s %s %s", e.Kind, e.Room.Name, e.Text)
	}
}

// Recorder is an EventSink that keeps every event.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

var _ core.EventSink = (*Recorder)(nil)

func (r *Recorder) add(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *Recorder) NewMessage(room core.RoomInfo, from core.User, text string, whisper bool) {
	r.add(Event{Kind: "message", Room: room, User: from, Text: text, Whisper: whisper})
}

func (r *Recorder) UserJoined(room core.RoomInfo, user core.User) {
	r.add(Event{Kind: "joined", Room: room, User: user})
}

func (r *Recorder) UserLeft(room core.RoomInfo, user core.User) {
	r.add(Event{Kind: "left", Room: room, User: user})
}

func (r *Recorder) SystemMessage(room core.RoomInfo, text string) {
	r.add(Event{Kind: "system", Room: room, Text: text})
}

func (r *Recorder) UserMode(room core.RoomInfo, user core.User, mode string) {
	r.add(Event{Kind: "mode", Room: room, User: user, Text: mode})
}

func (r *Recorder) Kicked(room core.RoomInfo) {
	r.add(Event{Kind: "kicked", Room: room})
}

// Events returns the recorded events as strings.
func (r *Recorder) Events() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.String())
	}
	return out
}

// Count returns how many events of kind were recorded.
func (r *Recorder) Count(kind string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e.Kind == kind {
			n++
		}
	}
	return n
}

// Reset drops recorded events.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}

// WaitFor polls until an event of kind is recorded or the deadline passes.
func (r *Recorder) WaitFor(kind string, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if r.Count(kind) > 0 {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return false
}
