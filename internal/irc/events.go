package irc

import (
	ircmsg "github.com/Travis-Britz/irc"

	"github.com/vovakirdan/ircgate/internal/core"
)

var _ core.EventSink = (*Conn)(nil)

// The session calls these with its room locks held; they only write to the client.

func (c *Conn) NewMessage(room core.RoomInfo, from core.User, text string, whisper bool) {
	me := c.nick()
	if from.Name == me {
		return
	}
	target := Channel(room.Name)
	if whisper {
		target = ToWire(me)
	}
	c.send(c.userPrefix(from.Name), ircmsg.CmdPrivmsg, target, text)
}

func (c *Conn) UserJoined(room core.RoomInfo, user core.User) {
	if user.Name == c.nick() {
		return
	}
	channel := Channel(room.Name)
	c.send(c.userPrefix(user.Name), ircmsg.CmdJoin, channel)
	c.sendModes(room, user)
	if user.Anonymous {
		c.notice(channel, "INFO: "+ToWire(user.Name)+" is anonymous")
	}
}

func (c *Conn) UserLeft(room core.RoomInfo, user core.User) {
	if user.Name == c.nick() {
		return
	}
	c.send(c.userPrefix(user.Name), ircmsg.CmdPart, Channel(room.Name))
}

func (c *Conn) SystemMessage(room core.RoomInfo, text string) {
	c.notice(Channel(room.Name), text)
}

func (c *Conn) UserMode(room core.RoomInfo, user core.User, mode string) {
	c.send(c.server(), ircmsg.CmdMode, Channel(room.Name), mode, ToWire(user.Name))
}

func (c *Conn) Kicked(room core.RoomInfo) {
	c.log.Warn().Str("room", room.Name).Msg("kicked from room")
	c.send(c.server(), ircmsg.CmdKick, Channel(room.Name), ToWire(c.nick()), "You have been kicked from the room")
}
