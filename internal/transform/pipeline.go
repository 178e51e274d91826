// Package transform rewrites IRC lines on their way in and out of the gateway.
package transform

import (
	"github.com/rs/zerolog"
)

// Envelope carries one line through the pipeline. Exactly one of Command
// (a line read from the IRC client) and Reply (a line about to be written
// to it) is set. Transformers append what they produce to Commands or Replies.
type Envelope struct {
	Command  string
	Reply    string
	Commands []string
	Replies  []string
}

// Transformer rewrites envelopes. Transform returns false to stop the pipeline.
type Transformer interface {
	Name() string
	Transform(env *Envelope) bool
}

// Pipeline runs transformers in registration order.
type Pipeline struct {
	transformers []Transformer
	log          *zerolog.Logger
}

// NewPipeline builds a pipeline from an explicit ordered list.
func NewPipeline(logger *zerolog.Logger, transformers ...Transformer) *Pipeline {
	return &Pipeline{transformers: transformers, log: logger}
}

// Names lists the registered transformers.
func (p *Pipeline) Names() []string {
	names := make([]string, 0, len(p.transformers))
	for _, t := range p.transformers {
		names = append(names, t.Name())
	}
	return names
}

// ProcessCommand returns the commands to execute for an inbound line and the
// replies to send back directly.
func (p *Pipeline) ProcessCommand(line string) (commands, replies []string) {
	env := p.run(&Envelope{Command: line})
	if len(env.Commands) == 0 && len(env.Replies) == 0 {
		return []string{line}, nil
	}
	return env.Commands, env.Replies
}

// ProcessReply returns the lines to write for an outbound reply.
func (p *Pipeline) ProcessReply(line string) []string {
	env := p.run(&Envelope{Reply: line})
	if len(env.Replies) == 0 {
		return []string{line}
	}
	return env.Replies
}

func (p *Pipeline) run(env *Envelope) *Envelope {
	for _, t := range p.transformers {
		if !p.apply(t, env) {
			break
		}
	}
	return env
}

// apply runs one transformer; a panicking transformer is skipped.
func (p *Pipeline) apply(t Transformer, env *Envelope) (next bool) {
	defer func() {
		if r := recover(); r != nil {
			if p.log != nil {
				p.log.Error().Interface("panic", r).Str("transformer", t.Name()).Msg("transformer failed")
			}
			next = true
		}
	}()
	return t.Transform(env)
}
