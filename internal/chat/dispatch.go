package chat

import (
	"fmt"
	"html"

	"github.com/vovakirdan/ircgate/internal/backend"
	"github.com/vovakirdan/ircgate/internal/core"
)

// System message types sent by the backend.
const (
	sysEnter     = "enter"
	sysLeave     = "leave"
	sysAutoLeave = "auto_leave"
	sysCLI       = "cli"
	sysUser      = "user"
	sysAdmin     = "admin"
	sysFriend    = "friend"
)

// dispatch classifies one message object and raises at most one event.
// first is true while processing the first joined room. The caller holds both locks.
func (s *Session) dispatch(room *core.Room, first bool, msg backend.Message) {
	if msg.IsSystem {
		s.dispatchSystem(room, msg)
		return
	}

	var sender core.User
	if u := room.UserByID(msg.UID); u != nil {
		sender = *u
	} else if known, ok := s.dir.ByID(msg.UID); ok {
		sender = known
	} else {
		warning := fmt.Sprintf("Unknown UID: %d -> %s", msg.UID, msg.Text)
		s.log.Warn().Str("room", room.Name).Int64("uid", msg.UID).Msg("message from unknown user")
		s.sink.SystemMessage(room.Info(), "WARNING: "+warning)
		return
	}

	text := html.UnescapeString(msg.Text)
	if msg.Whisper {
		// A whisper shows up in every joined room; to is non-zero for our own.
		if msg.To == 0 && first {
			s.sink.NewMessage(room.Info(), sender, text, true)
		}
		return
	}
	s.sink.NewMessage(room.Info(), sender, text, false)
}

func (s *Session) dispatchSystem(room *core.Room, msg backend.Message) {
	switch msg.System {
	case sysEnter:
		if msg.User == nil {
			s.log.Warn().Str("room", room.Name).Str("message", msg.String()).Msg("enter without user")
			return
		}
		s.dir.Add(msg.User)
		if room.AddUser(msg.User) {
			s.sink.UserJoined(room.Info(), *msg.User)
		}

	case sysLeave, sysAutoLeave:
		u := room.UserByID(msg.UID)
		if u == nil {
			return
		}
		room.RemoveUser(u)
		s.dir.Add(u)
		s.sink.UserLeft(room.Info(), *u)

	case sysCLI:
		s.sink.SystemMessage(room.Info(), msg.Text)

	case sysUser, sysFriend:
		s.dir.Add(msg.User)

	case sysAdmin:
		target := core.User{ID: -1, Name: msg.Nick}
		if u := room.UserByName(msg.Nick); u != nil {
			target = *u
		} else if known, ok := s.dir.ByName(msg.Nick); ok {
			target = known
		}
		if target.ID >= 0 {
			room.SetOperatorID(target.ID)
		}
		s.sink.UserMode(room.Info(), target, "+h")

	default:
		s.log.Warn().Str("room", room.Name).Str("type", msg.System).Str("message", msg.String()).Msg("unknown system message")
	}
}
