package backend

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/Jeffail/gabs"

	"github.com/vovakirdan/ircgate/internal/core"
)

// StatusNotInRoom is the poll status meaning the session was dropped from the room.
const StatusNotInRoom = "User in room NOT_FOUND"

// Envelope is the decoded {success, data:{index, data:[...]}, statusMessage} response
// of the JSON endpoints. A false Success is data, not an error.
type Envelope struct {
	Success       bool
	Index         string
	StatusMessage string
	Messages      []Message
	Raw           *gabs.Container
}

// Message is one object of an envelope's data list.
type Message struct {
	// System is the "s" type; empty with IsSystem false for chat lines.
	System   string
	IsSystem bool
	Text     string
	Whisper  bool
	UID      int64
	To       int64
	Nick     string
	Idle     int
	User     *core.User
	Raw      *gabs.Container
}

// ParseEnvelope decodes a JSON endpoint response. Numbers keep their literal form
// so that the chat index survives as an opaque token.
func ParseEnvelope(body []byte) (*Envelope, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	root, err := gabs.ParseJSONDecoder(dec)
	if err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}

	env := &Envelope{
		Success:       asBool(root.Path("success").Data()),
		Index:         asString(root.Path("data.index").Data()),
		StatusMessage: asString(root.Path("statusMessage").Data()),
		Raw:           root,
	}

	list := root.Path("data.data")
	if list.Data() == nil {
		return env, nil
	}
	children, err := list.Children()
	if err != nil {
		return nil, fmt.Errorf("decode envelope messages: %w", err)
	}
	for _, child := range children {
		env.Messages = append(env.Messages, parseMessage(child))
	}
	return env, nil
}

func parseMessage(c *gabs.Container) Message {
	msg := Message{
		IsSystem: c.Exists("s"),
		System:   asString(c.Path("s").Data()),
		Text:     asString(c.Path("t").Data()),
		Whisper:  c.Exists("w"),
		UID:      asInt(c.Path("uid").Data()),
		To:       asInt(c.Path("to").Data()),
		Nick:     asString(c.Path("nick").Data()),
		Idle:     int(asInt(c.Path("idle").Data())),
		Raw:      c,
	}
	switch {
	case c.Exists("user"):
		msg.User = UserFromContainer(c.Path("user"))
	case msg.System == "friend":
		// friend notices carry the user fields inline
		msg.User = UserFromContainer(c)
	}
	return msg
}

// String renders the raw object for logs.
func (m Message) String() string {
	if m.Raw == nil {
		return "{}"
	}
	return m.Raw.String()
}
