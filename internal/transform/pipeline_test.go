package transform

import (
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

type upper struct{}

func (upper) Name() string { return "upper" }
func (upper) Transform(env *Envelope) bool {
	if env.Reply != "" {
		env.Replies = append(env.Replies, strings.ToUpper(env.Reply))
	}
	return true
}

type stop struct{}

func (stop) Name() string { return "stop" }
func (stop) Transform(env *Envelope) bool { return false }

type split struct{}

func (split) Name() string { return "split" }
func (split) Transform(env *Envelope) bool {
	if env.Command != "" {
		env.Commands = append(env.Commands, strings.Split(env.Command, "|")...)
	}
	return true
}

type boom struct{}

func (boom) Name() string { return "boom" }
func (boom) Transform(env *Envelope) bool { panic("boom") }

func nopLogger() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}

func TestPipelinePassesThroughWhenNothingProduced(t *testing.T) {
	p := NewPipeline(nopLogger())

	cmds, replies := p.ProcessCommand("JOIN #lobby")
	if len(cmds) != 1 || cmds[0] != "JOIN #lobby" || len(replies) != 0 {
		t.Fatalf("unexpected pass-through: %v %v", cmds, replies)
	}
	if got := p.ProcessReply(":a PRIVMSG #b :c"); len(got) != 1 || got[0] != ":a PRIVMSG #b :c" {
		t.Fatalf("unexpected reply pass-through: %v", got)
	}
}

func TestPipelineUsesProducedLines(t *testing.T) {
	p := NewPipeline(nopLogger(), split{}, upper{})

	cmds, _ := p.ProcessCommand("NICK bob|USER bob 0 * :bob")
	if len(cmds) != 2 || cmds[1] != "USER bob 0 * :bob" {
		t.Fatalf("unexpected commands: %v", cmds)
	}
	if got := p.ProcessReply("hello"); len(got) != 1 || got[0] != "HELLO" {
		t.Fatalf("unexpected replies: %v", got)
	}
}

func TestPipelineShortCircuits(t *testing.T) {
	p := NewPipeline(nopLogger(), stop{}, upper{})

	if got := p.ProcessReply("hello"); len(got) != 1 || got[0] != "hello" {
		t.Fatalf("transformer after a stop must not run: %v", got)
	}
	if names := p.Names(); strings.Join(names, ",") != "stop,upper" {
		t.Fatalf("unexpected names: %v", names)
	}
}

func TestPipelineSurvivesPanickingTransformer(t *testing.T) {
	p := NewPipeline(nopLogger(), boom{}, upper{})

	if got := p.ProcessReply("hello"); len(got) != 1 || got[0] != "HELLO" {
		t.Fatalf("unexpected replies: %v", got)
	}
}

func TestSmileysRewritesKnownCodes(t *testing.T) {
	p := NewPipeline(nopLogger(), Smileys{})

	got := p.ProcessReply(":alice PRIVMSG #lobby :hi *1* and *202* and *9999*")
	want := ":alice PRIVMSG #lobby :hi *:-D* and *ROFL* and *9999*"
	if len(got) != 1 || got[0] != want {
		t.Fatalf("unexpected rewrite: %v", got)
	}
}

func TestSmileysIgnoresOtherLines(t *testing.T) {
	p := NewPipeline(nopLogger(), Smileys{})

	line := ":localhost NOTICE #lobby :*1*"
	if got := p.ProcessReply(line); len(got) != 1 || got[0] != line {
		t.Fatalf("non-PRIVMSG must pass through: %v", got)
	}
	if cmds, _ := p.ProcessCommand("PRIVMSG #lobby :*1*"); cmds[0] != "PRIVMSG #lobby :*1*" {
		t.Fatalf("commands must pass through: %v", cmds)
	}
}
