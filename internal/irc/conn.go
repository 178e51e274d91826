package irc

import (
	"bufio"
	"context"
	"errors"
	"io"
	"net"
	"strings"
	"sync"
	"time"

	ircmsg "github.com/Travis-Britz/irc"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/ircgate/internal/chat"
	"github.com/vovakirdan/ircgate/internal/core"
	"github.com/vovakirdan/ircgate/internal/transform"
)

const (
	maxLineLength = 64 * 1024
	logoutTimeout = 10 * time.Second
)

// errQuit ends the read loop after QUIT.
var errQuit = errors.New("client quit")

// Conn is one IRC client connection and its backend session.
type Conn struct {
	id       string
	remote   string
	rw       io.ReadWriteCloser
	opts     Options
	session  *chat.Session
	pipeline *transform.Pipeline
	log      zerolog.Logger

	writeMu sync.Mutex

	mu       sync.Mutex
	state    ConnState
	nickname string
	username string
	realname string
	password string
	closed   bool
}

// ConnInfo is a snapshot of a connection for the status API.
type ConnInfo struct {
	ID       string   `json:"id"`
	Remote   string   `json:"remote"`
	Nick     string   `json:"nick"`
	State    string   `json:"state"`
	LoggedIn bool     `json:"logged_in"`
	Rooms    []string `json:"rooms"`
}

func newConn(id, remote string, rw io.ReadWriteCloser, b chat.Backend, dir *core.Directory, opts Options, pipeline *transform.Pipeline, logger *zerolog.Logger) *Conn {
	c := &Conn{
		id:       id,
		remote:   remote,
		rw:       rw,
		opts:     opts,
		pipeline: pipeline,
		log:      *logger,
	}
	c.session = chat.NewSession(b, dir, c, opts.Sync, chat.NewIdler(opts.Idler), &c.log)
	return c
}

// Info returns a snapshot of the connection.
func (c *Conn) Info() ConnInfo {
	c.mu.Lock()
	info := ConnInfo{ID: c.id, Remote: c.remote, Nick: c.nickname, State: c.state.String()}
	c.mu.Unlock()

	info.LoggedIn = c.session.LoggedIn()
	info.Rooms = c.session.ActiveRoomNames()
	return info
}

// State returns the registration state.
func (c *Conn) State() ConnState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Close closes the underlying stream; the read loop then tears the session down.
func (c *Conn) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()
	return c.rw.Close()
}

// serve runs the read loop until the client quits or the stream fails.
func (c *Conn) serve(ctx context.Context) {
	defer c.teardown()

	scanner := bufio.NewScanner(c.rw)
	scanner.Buffer(make([]byte, 4096), maxLineLength)

	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if line == "" {
			continue
		}

		commands, replies := c.pipeline.ProcessCommand(line)
		for _, cmd := range commands {
			if err := c.handleLine(ctx, cmd); errors.Is(err, errQuit) {
				return
			}
		}
		for _, r := range replies {
			c.sendLine(r)
		}
	}
	if err := scanner.Err(); err != nil && !errors.Is(err, io.ErrClosedPipe) && !errors.Is(err, net.ErrClosed) {
		c.log.Info().Err(err).Msg("connection read failed")
	}
}

// teardown logs out if still logged in and closes the stream.
func (c *Conn) teardown() {
	if c.session.LoggedIn() {
		c.log.Info().Msg("still logged in, logging out")
		ctx, cancel := context.WithTimeout(context.Background(), logoutTimeout)
		if err := c.session.Logout(ctx); err != nil {
			c.log.Warn().Err(err).Msg("logout on disconnect failed")
		}
		cancel()
	}
	c.session.Stop()

	c.mu.Lock()
	c.state = StateTerminated
	c.mu.Unlock()
	_ = c.Close()
	c.log.Info().Msg("connection closed")
}

// handleLine parses and executes one command line. Handler failures never close the connection.
func (c *Conn) handleLine(ctx context.Context, line string) (err error) {
	var msg ircmsg.Message
	if err := msg.UnmarshalText([]byte(line)); err != nil {
		c.log.Warn().Err(err).Msg("unparsable line")
		return nil
	}

	kind := ParseCommand(msg.Command.String())
	c.logCommand(kind, &msg)

	defer func() {
		if r := recover(); r != nil {
			c.log.Error().Interface("panic", r).Str("command", msg.Command.String()).Msg("command handler failed")
			err = nil
		}
	}()
	return c.dispatch(ctx, kind, &msg)
}

func (c *Conn) logCommand(kind CommandKind, msg *ircmsg.Message) {
	ev := c.log.Debug().Str("command", msg.Command.String())
	if kind == CommandPass {
		ev = ev.Str("args", "***")
	} else {
		ev = ev.Strs("args", msg.Params)
	}
	ev.Msg("command received")
}

// nick is the name the client is known by, or "*" before NICK.
func (c *Conn) nick() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.nickLocked()
}

func (c *Conn) nickLocked() string {
	switch {
	case c.nickname != "":
		return c.nickname
	case c.username != "":
		return c.username
	default:
		return "*"
	}
}

// self is the client's own prefix.
func (c *Conn) self() ircmsg.Prefix {
	c.mu.Lock()
	defer c.mu.Unlock()
	user := c.username
	if user == "" {
		user = c.nickLocked()
	}
	return ircmsg.Prefix{Nick: ircmsg.Nickname(ToWire(c.nickLocked())), User: ToWire(user), Host: c.opts.Hostname}
}

// userPrefix is the prefix of a backend user.
func (c *Conn) userPrefix(name string) ircmsg.Prefix {
	wire := ToWire(name)
	return ircmsg.Prefix{Nick: ircmsg.Nickname(wire), User: wire, Host: c.opts.Hostname}
}

func (c *Conn) server() ircmsg.Prefix {
	return ircmsg.Prefix{Host: c.opts.Hostname}
}

// send encodes msg and writes it through the reply pipeline.
func (c *Conn) send(source ircmsg.Prefix, command string, params ...string) {
	for i, p := range params {
		params[i] = lineBreaks.Replace(p)
	}
	msg := ircmsg.NewMessage(ircmsg.Command(command), params...)
	msg.Source = source
	msg.IncludePrefix()

	// MarshalText reports long lines as a warning; the bytes are still usable.
	data, err := msg.MarshalText()
	if data == nil {
		c.log.Warn().Err(err).Str("command", command).Msg("encode failed")
		return
	}
	c.sendLine(strings.TrimRight(string(data), "\r\n"))
}

var lineBreaks = strings.NewReplacer("\r\n", " ", "\r", " ", "\n", " ")

// sendLine runs line through the reply pipeline and writes the results.
func (c *Conn) sendLine(line string) {
	for _, out := range c.pipeline.ProcessReply(line) {
		c.write(out)
	}
}

func (c *Conn) write(line string) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	c.log.Debug().Str("line", line).Msg("sending")
	if _, err := io.WriteString(c.rw, line+"\r\n"); err != nil {
		c.log.Debug().Err(err).Msg("write failed")
	}
}

// numeric sends a numeric reply addressed to the client.
func (c *Conn) numeric(code string, params ...string) {
	c.send(c.server(), code, append([]string{ToWire(c.nick())}, params...)...)
}

// notice sends a server notice to target.
func (c *Conn) notice(target, text string) {
	c.send(c.server(), ircmsg.CmdNotice, target, text)
}

// noticeAll sends a notice to every joined channel, or to the client when none is joined.
func (c *Conn) noticeAll(text string) {
	rooms := c.session.ActiveRoomNames()
	if len(rooms) == 0 {
		c.notice(ToWire(c.nick()), text)
		return
	}
	for _, r := range rooms {
		c.notice(Channel(r), text)
	}
}

// gatewayMessage reports a failed action as a private message from the gateway.
func (c *Conn) gatewayMessage(text string) {
	c.send(ircmsg.Prefix{Nick: gatewayNick, User: gatewayNick, Host: c.opts.Hostname}, ircmsg.CmdPrivmsg, ToWire(c.nick()), text)
}

const gatewayNick = "ircgate"
