package irc

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	ircmsg "github.com/Travis-Britz/irc"

	"github.com/vovakirdan/ircgate/internal/core"
)

func (c *Conn) dispatch(ctx context.Context, kind CommandKind, msg *ircmsg.Message) error {
	if kind.RequiresLogin() && !c.session.LoggedIn() {
		c.numeric(ircmsg.RplErrNotRegistered, "You have not registered")
		return nil
	}

	switch kind {
	case CommandUser:
		c.handleUser(ctx, msg)
	case CommandNick:
		c.handleNick(ctx, msg)
	case CommandPass:
		c.handlePass(msg)
	case CommandList:
		c.handleList(ctx, msg)
	case CommandJoin:
		c.handleJoin(ctx, msg)
	case CommandPart:
		c.handlePart(ctx, msg)
	case CommandWho:
		c.handleWho(msg)
	case CommandWhois:
		c.handleWhois(ctx, msg)
	case CommandPrivmsg:
		c.handlePrivmsg(ctx, msg)
	case CommandMode:
		c.handleMode(ctx, msg)
	case CommandKick:
		c.handleKick(ctx, msg)
	case CommandPing:
		c.send(c.server(), ircmsg.CmdPong, c.opts.Hostname, msg.Params.Get(1))
	case CommandQuit:
		return c.handleQuit(ctx)
	case CommandOper, CommandTopic, CommandNames, CommandInvite:
		c.log.Debug().Str("command", msg.Command.String()).Msg("command not implemented")
	default:
		c.log.Warn().Str("command", msg.Command.String()).Msg("IRC command not found")
	}
	return nil
}

func (c *Conn) handleUser(ctx context.Context, msg *ircmsg.Message) {
	if len(msg.Params) < 4 {
		c.numeric(ircmsg.RplErrNeedMoreParams, ircmsg.CmdUser, "Not enough parameters")
		return
	}

	c.mu.Lock()
	c.username = msg.Params.Get(1)
	c.realname = msg.Params.Get(4)
	ready := c.nickname != "" && c.state == StateNickReceived
	c.mu.Unlock()

	if ready {
		c.login(ctx)
	}
}

func (c *Conn) handleNick(ctx context.Context, msg *ircmsg.Message) {
	nick := FromWire(msg.Params.Get(1))
	if nick == "" {
		c.numeric(ircmsg.RplErrNoNicknameGiven, "No nickname given")
		return
	}

	c.mu.Lock()
	if c.state == StateLoggedIn {
		c.mu.Unlock()
		c.numeric(ircmsg.RplErrErroneousNickname, ToWire(nick), "Nickname cannot be changed while logged in")
		return
	}
	c.nickname = nick
	c.state = StateNickReceived
	ready := c.username != ""
	c.mu.Unlock()

	if ready {
		c.login(ctx)
	}
}

func (c *Conn) handlePass(msg *ircmsg.Message) {
	if pass := msg.Params.Get(1); pass != "" {
		c.mu.Lock()
		c.password = pass
		c.mu.Unlock()
	}
}

// login consumes the pending password and logs in; anonymously when there is none.
func (c *Conn) login(ctx context.Context) {
	c.mu.Lock()
	nick, password := c.nickname, c.password
	c.password = ""
	c.mu.Unlock()

	var err error
	if password != "" {
		c.log.Info().Str("nick", nick).Msg("logging in")
		err = c.session.Login(ctx, nick, password)
	} else {
		c.log.Info().Str("nick", nick).Msg("logging in anonymously")
		err = c.session.LoginAnonymous(ctx, nick, c.opts.AnonymousGender)
	}

	if err != nil {
		c.mu.Lock()
		c.state = StateLoginFailed
		c.mu.Unlock()

		c.log.Error().Err(err).Str("nick", nick).Msg("login failed")
		switch {
		case errors.Is(err, core.ErrLogin) && password != "":
			c.numeric(ircmsg.RplErrPasswdMismatch, core.Reason(err))
		case errors.Is(err, core.ErrLogin):
			c.numeric(ircmsg.RplErrNicknameInUse, ToWire(nick), core.Reason(err))
		default:
			c.notice(ToWire(nick), "Login failed: "+core.Reason(err))
		}
		return
	}

	c.mu.Lock()
	c.state = StateLoggedIn
	c.mu.Unlock()
	c.welcome()
}

func (c *Conn) welcome() {
	nick := c.nick()
	prefix := c.self()
	host := c.opts.Hostname

	c.numeric(ircmsg.RplWelcome, fmt.Sprintf("Welcome to the ircgate chat gateway %s", prefix.String()))
	c.numeric(ircmsg.RplYourHost, fmt.Sprintf("Your host is %s, running version %s", host, c.opts.Version))
	c.numeric(ircmsg.RplCreated, "This server was created "+c.opts.Started.Format(time.RFC1123))
	c.numeric(ircmsg.RplMyInfo, host, c.opts.Version, "o", "ovhA")

	c.numeric(ircmsg.RplMOTDStart, fmt.Sprintf("- %s Message of the day -", host))
	idler := c.session.Idler()
	if idler.Enabled() {
		c.numeric(ircmsg.RplMOTD, fmt.Sprintf("- Idler: enabled, fires after %s", idler.IdleTime()))
	} else {
		c.numeric(ircmsg.RplMOTD, "- Idler: disabled")
	}
	if names := c.pipeline.Names(); len(names) > 0 {
		c.numeric(ircmsg.RplMOTD, "- Transformers: "+strings.Join(names, ", "))
	}
	c.numeric(ircmsg.RplMOTD, "- Nicks and channels use a non-breaking space in place of a space.")
	c.numeric(ircmsg.RplEndOfMOTD, "End of MOTD command.")
	c.log.Info().Str("nick", nick).Msg("client registered")
}

func (c *Conn) handleList(ctx context.Context, msg *ircmsg.Message) {
	rooms, err := c.session.RoomListing(ctx)
	if err != nil {
		c.log.Error().Err(err).Msg("room listing failed")
		c.notice(ToWire(c.nick()), "LIST: "+core.Reason(err))
		return
	}

	switch len(msg.Params) {
	case 0:
	case 1:
		wanted := make(map[string]bool)
		for _, ch := range splitList(msg.Params.Get(1)) {
			wanted[RoomName(ch)] = true
		}
		filtered := rooms[:0]
		for _, r := range rooms {
			if wanted[r.Name] {
				filtered = append(filtered, r)
			}
		}
		rooms = filtered
	default:
		// LIST <channels> <server>: other servers are not known.
		rooms = nil
	}

	c.numeric(ircmsg.RplListStart, "Channel", "Users  Name")
	for _, r := range rooms {
		c.numeric(ircmsg.RplList, Channel(r.Name), strconv.Itoa(r.UsersCount), r.Description)
	}
	c.numeric(ircmsg.RplListEnd, "End of /LIST")
}

func (c *Conn) handleJoin(ctx context.Context, msg *ircmsg.Message) {
	channels := splitList(msg.Params.Get(1))
	if len(channels) == 0 {
		c.numeric(ircmsg.RplErrNeedMoreParams, ircmsg.CmdJoin, "Not enough parameters")
		return
	}

	for _, ch := range channels {
		name := RoomName(ch)
		view, err := c.session.Join(ctx, name)
		if err != nil {
			c.log.Error().Err(err).Str("room", name).Msg("join failed")
			if errors.Is(err, core.ErrRoom) {
				c.numeric(ircmsg.RplErrNoSuchChannel, Channel(name), core.Reason(err))
			} else {
				c.notice(ToWire(c.nick()), fmt.Sprintf("JOIN %s: %s", Channel(name), core.Reason(err)))
			}
			continue
		}

		channel := Channel(view.Room.Name)
		c.send(c.self(), ircmsg.CmdJoin, channel)
		if view.Room.Description != "" {
			c.numeric(ircmsg.RplTopic, channel, view.Room.Description)
		} else {
			c.numeric(ircmsg.RplNoTopic, channel, "No topic is set")
		}

		me := c.nick()
		names := []string{ToWire(me)}
		for _, u := range view.Users {
			if u.Name != me {
				names = append(names, ToWire(u.Name))
			}
		}
		c.numeric(ircmsg.RplNamReply, "=", channel, strings.Join(names, " "))
		c.numeric(ircmsg.RplEndOfNames, channel, "End of /NAMES list.")
	}
}

func (c *Conn) handlePart(ctx context.Context, msg *ircmsg.Message) {
	channels := splitList(msg.Params.Get(1))
	if len(channels) == 0 {
		c.numeric(ircmsg.RplErrNeedMoreParams, ircmsg.CmdPart, "Not enough parameters")
		return
	}

	for _, ch := range channels {
		name := RoomName(ch)
		if _, ok := c.session.ActiveRoom(name); !ok {
			c.log.Warn().Str("room", name).Msg("part of a room that is not joined")
			c.numeric(ircmsg.RplErrNotOnChannel, Channel(name), "You're not on that channel")
			continue
		}
		if err := c.session.Part(ctx, name); err != nil {
			c.log.Error().Err(err).Str("room", name).Msg("part failed")
			c.notice(Channel(name), core.Reason(err))
			continue
		}
		c.send(c.self(), ircmsg.CmdPart, Channel(name))
	}
}

func (c *Conn) handleWho(msg *ircmsg.Message) {
	target := msg.Params.Get(1)
	view, ok := c.session.ActiveRoom(RoomName(target))
	if !ok {
		c.numeric(ircmsg.RplEndOfWho, target, "End of WHO list")
		return
	}

	channel := Channel(view.Room.Name)
	for _, u := range view.Users {
		nick := ToWire(u.Name)
		flags := "H"
		if view.Room.IsAdmin(u.Name) {
			flags += "@"
		} else if u.Gender == core.GenderFemale {
			flags += "+"
		}
		c.numeric(ircmsg.RplWhoReply, channel, nick, c.opts.Hostname, c.opts.Hostname, nick, flags, "0 "+nick)
	}
	c.numeric(ircmsg.RplEndOfWho, channel, "End of WHO list")

	for _, u := range view.Users {
		c.sendModes(view.Room, u)
	}
}

// sendModes announces the channel modes that describe u.
func (c *Conn) sendModes(room core.RoomInfo, u core.User) {
	channel := Channel(room.Name)
	nick := ToWire(u.Name)
	if u.Gender == core.GenderFemale {
		c.send(c.server(), ircmsg.CmdMode, channel, "+v", nick)
	}
	if room.IsAdmin(u.Name) {
		c.send(c.server(), ircmsg.CmdMode, channel, "+o", nick)
	}
	if room.OperatorID >= 0 && u.ID == room.OperatorID {
		c.send(c.server(), ircmsg.CmdMode, channel, "+h", nick)
	}
	if u.IsRoomAdmin {
		c.send(c.server(), ircmsg.CmdMode, channel, "+A", nick)
	}
}

func (c *Conn) handleWhois(ctx context.Context, msg *ircmsg.Message) {
	// WHOIS [server] nick
	param := msg.Params.Get(len(msg.Params))
	targets := splitList(param)
	if len(targets) == 0 {
		c.numeric(ircmsg.RplErrNoNicknameGiven, "No nickname given")
		return
	}
	nick := FromWire(targets[0])
	wire := ToWire(nick)

	u, known := c.session.UserByName(nick)
	if known {
		c.numeric(ircmsg.RplWhoIsUser, wire, wire, c.opts.Hostname, "*", wire)
		c.numeric(ircmsg.RplWhoIsIdle, wire, strconv.Itoa(u.IdleSeconds), "seconds idle")
	}

	profile, err := c.session.Profile(ctx, nick)
	switch {
	case err != nil:
		c.log.Error().Err(err).Str("nick", nick).Msg("profile fetch failed")
		c.noticeAll("WHOIS: Failed to get profile of: " + wire)
	case profile == nil:
		if !known {
			c.numeric(ircmsg.RplErrNoSuchNick, wire, "No such nick/channel")
		}
		c.noticeAll("WHOIS: Failed to get profile of: " + wire)
	default:
		c.noticeAll("=== WHOIS Profile ===")
		c.noticeAll(fmt.Sprintf("Online: %t", profile.Online))
		c.noticeAll("Karma: " + profile.Karma)
		c.noticeAll("Nick: " + profile.Nick)
		c.noticeAll("Věk: " + profile.Age)
		c.noticeAll("Registrace: " + profile.Registration)
		c.noticeAll("Naposledy: " + profile.LastSeen)
		c.noticeAll("Profil zobrazen: " + profile.Viewed)
		if profile.ImageURL != "" {
			c.noticeAll("Foto: " + profile.ImageURL)
		}
		c.noticeAll("=== End Of WHOIS Profile ===")
	}
	c.numeric(ircmsg.RplEndOfWhoIs, wire, "End of /WHOIS list.")
}

func (c *Conn) handlePrivmsg(ctx context.Context, msg *ircmsg.Message) {
	target, text := msg.Params.Get(1), msg.Params.Get(2)
	if target == "" {
		c.numeric(ircmsg.RplErrNoRecipient, "No recipient given (PRIVMSG)")
		return
	}
	if text == "" {
		c.numeric(ircmsg.RplErrNoTextToSend, "No text to send")
		return
	}

	var err error
	if IsChannel(target) {
		err = c.session.Say(ctx, RoomName(target), text)
	} else {
		err = c.session.Whisper(ctx, FromWire(target), text)
	}
	if err != nil {
		c.log.Warn().Err(err).Str("target", target).Msg("message not sent")
		c.gatewayMessage(core.Reason(err))
	}
}

func (c *Conn) handleMode(ctx context.Context, msg *ircmsg.Message) {
	target, modes, arg := msg.Params.Get(1), msg.Params.Get(2), msg.Params.Get(3)
	if !IsChannel(target) {
		c.numeric(ircmsg.RplUModeIs, "+")
		return
	}
	switch {
	case modes == "":
		c.numeric(ircmsg.RplChannelModeIs, target, "+")
	case modes == "+o" && arg != "":
		if err := c.session.Admin(ctx, RoomName(target), FromWire(arg)); err != nil {
			c.log.Warn().Err(err).Str("target", target).Msg("operator handoff failed")
			c.gatewayMessage(core.Reason(err))
		}
	case modes == "b" || modes == "+b":
		c.numeric(ircmsg.RplEndOfBanList, target, "End of channel ban list")
	default:
		c.numeric(ircmsg.RplErrUnknownMode, strings.TrimLeft(modes, "+-"), "is unknown mode char to me for "+target)
	}
}

func (c *Conn) handleKick(ctx context.Context, msg *ircmsg.Message) {
	channel, nick, reason := msg.Params.Get(1), msg.Params.Get(2), msg.Params.Get(3)
	if channel == "" || nick == "" {
		c.numeric(ircmsg.RplErrNeedMoreParams, ircmsg.CmdKick, "Not enough parameters")
		return
	}
	if err := c.session.Kick(ctx, RoomName(channel), FromWire(nick), reason); err != nil {
		c.log.Warn().Err(err).Str("target", nick).Msg("kick failed")
		c.gatewayMessage(core.Reason(err))
	}
}

func (c *Conn) handleQuit(ctx context.Context) error {
	if c.session.LoggedIn() {
		if err := c.session.Logout(ctx); err != nil {
			c.log.Warn().Err(err).Msg("logout failed")
		}
	}
	c.send(ircmsg.Prefix{}, ircmsg.CmdError, "Closing link: "+c.opts.Hostname)
	return errQuit
}
