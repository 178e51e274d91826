package irc

import (
	"strings"

	ircmsg "github.com/Travis-Britz/irc"
)

// CommandKind enumerates the IRC commands the gateway understands.
type CommandKind int

const (
	// CommandUnknown is anything not listed below; it is logged and ignored.
	CommandUnknown CommandKind = iota
	// CommandUser sets the username during registration.
	CommandUser
	// CommandNick sets the nickname and triggers the backend login.
	CommandNick
	// CommandPass stores the password for the next login.
	CommandPass
	// CommandList lists backend rooms.
	CommandList
	// CommandJoin enters rooms.
	CommandJoin
	// CommandPart leaves rooms.
	CommandPart
	// CommandWho lists the members of a joined room.
	CommandWho
	// CommandWhois dumps a user's profile.
	CommandWhois
	// CommandPrivmsg talks to a room or whispers to a user.
	CommandPrivmsg
	// CommandMode hands over the room operator role.
	CommandMode
	// CommandKick removes a user from a room.
	CommandKick
	// CommandPing is answered with PONG.
	CommandPing
	// CommandQuit logs out and closes the connection.
	CommandQuit
	// CommandOper is accepted but has no effect.
	CommandOper
	// CommandTopic is accepted but has no effect.
	CommandTopic
	// CommandNames is accepted but has no effect.
	CommandNames
	// CommandInvite is accepted but has no effect.
	CommandInvite
)

var commandNames = map[string]CommandKind{
	ircmsg.CmdUser:    CommandUser,
	ircmsg.CmdNick:    CommandNick,
	ircmsg.CmdPass:    CommandPass,
	ircmsg.CmdList:    CommandList,
	ircmsg.CmdJoin:    CommandJoin,
	ircmsg.CmdPart:    CommandPart,
	ircmsg.CmdWho:     CommandWho,
	ircmsg.CmdWhoIs:   CommandWhois,
	ircmsg.CmdPrivmsg: CommandPrivmsg,
	ircmsg.CmdMode:    CommandMode,
	ircmsg.CmdKick:    CommandKick,
	ircmsg.CmdPing:    CommandPing,
	ircmsg.CmdQuit:    CommandQuit,
	ircmsg.CmdOper:    CommandOper,
	ircmsg.CmdTopic:   CommandTopic,
	ircmsg.CmdNames:   CommandNames,
	ircmsg.CmdInvite:  CommandInvite,
}

// ParseCommand maps a verb to its kind, case-insensitively.
func ParseCommand(verb string) CommandKind {
	if kind, ok := commandNames[strings.ToUpper(verb)]; ok {
		return kind
	}
	return CommandUnknown
}

// RequiresLogin reports whether the command needs a backend session.
func (k CommandKind) RequiresLogin() bool {
	switch k {
	case CommandJoin, CommandPart, CommandWho, CommandPrivmsg, CommandMode, CommandKick:
		return true
	default:
		return false
	}
}

// ConnState is the registration state of a connection.
type ConnState int

const (
	// StateUnauthenticated is a fresh connection.
	StateUnauthenticated ConnState = iota
	// StateNickReceived has a nickname and waits for USER or the login result.
	StateNickReceived
	// StateLoggedIn has a backend session.
	StateLoggedIn
	// StateLoginFailed waits for another NICK to retry.
	StateLoginFailed
	// StateTerminated is closed.
	StateTerminated
)

func (s ConnState) String() string {
	switch s {
	case StateUnauthenticated:
		return "unauthenticated"
	case StateNickReceived:
		return "nick_received"
	case StateLoggedIn:
		return "logged_in"
	case StateLoginFailed:
		return "login_failed"
	case StateTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}
