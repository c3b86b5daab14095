// Package chat turns channel messages into game actions.
//
// A message is either a command (!stats, !help, !eval <expression>) or a
// candidate count. Commands are answered directly; everything else goes
// through the engine and may be ignored, rejected or accepted.
package chat

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/roach88/countbot/internal/engine"
	"github.com/roach88/countbot/internal/expr"
	"github.com/roach88/countbot/internal/game"
	"github.com/roach88/countbot/internal/render"
)

// Command names a chat command.
type Command string

const (
	CommandNone  Command = ""
	CommandStats Command = "stats"
	CommandHelp  Command = "help"
	CommandEval  Command = "eval"
)

// Game is the part of the engine the dispatcher drives.
type Game interface {
	Submit(ctx context.Context, sub engine.Submission) (*game.Outcome, error)
	Eval(ctx context.Context, text string) (*engine.EvalResult, error)
	Snapshot() *game.State
	Policy() game.Policy
}

// Reply is what the bot does in response to one message.
type Reply struct {
	Command Command `json:"command,omitempty"`

	// Text is posted to the channel. Empty means say nothing.
	Text string `json:"text,omitempty"`

	// Reaction is added to the submitted message.
	Reaction game.ReactionTag `json:"reaction,omitempty"`

	// Outcome is set for messages played as counts.
	Outcome *game.Outcome `json:"outcome,omitempty"`
}

// Dispatcher answers messages for one game.
// Safe for concurrent use.
type Dispatcher struct {
	game Game

	mu    sync.RWMutex
	names render.NameResolver
}

// NewDispatcher creates a Dispatcher over g. names may be nil.
func NewDispatcher(g Game, names render.NameResolver) *Dispatcher {
	return &Dispatcher{game: g, names: names}
}

// Game returns the game the dispatcher drives.
func (d *Dispatcher) Game() Game {
	return d.game
}

// SetNames replaces the name resolver used for stats.
func (d *Dispatcher) SetNames(names render.NameResolver) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.names = names
}

func (d *Dispatcher) resolver() render.NameResolver {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.names
}

// ParseCommand recognizes a command at the start of text and returns it
// with its argument.
func ParseCommand(text string) (Command, string) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "!") {
		return CommandNone, ""
	}
	name, arg, _ := strings.Cut(text[1:], " ")
	switch Command(strings.ToLower(name)) {
	case CommandStats:
		return CommandStats, ""
	case CommandHelp:
		return CommandHelp, ""
	case CommandEval:
		return CommandEval, strings.TrimSpace(arg)
	}
	return CommandNone, ""
}

// Handle answers one message. Returns (nil, nil) when the message needs no
// reply, which is the case for chatter that is not an expression.
func (d *Dispatcher) Handle(ctx context.Context, sub engine.Submission) (*Reply, error) {
	cmd, arg := ParseCommand(sub.Text)
	switch cmd {
	case CommandStats:
		return &Reply{Command: cmd, Text: d.Stats(ctx)}, nil
	case CommandHelp:
		return &Reply{Command: cmd, Text: d.Help()}, nil
	case CommandEval:
		return &Reply{Command: cmd, Text: d.Eval(ctx, arg)}, nil
	}

	out, err := d.game.Submit(ctx, sub)
	if err != nil {
		if expr.IsParseError(err) || expr.IsDomainError(err) || expr.IsTimeout(err) {
			// Counts that fail to evaluate are dropped silently.
			return nil, nil
		}
		return nil, err
	}
	if out == nil {
		return nil, nil
	}
	return &Reply{Text: out.Message, Reaction: out.Reaction, Outcome: out}, nil
}

// Stats renders the current stats report.
func (d *Dispatcher) Stats(ctx context.Context) string {
	return render.Stats(ctx, d.game.Snapshot(), d.resolver())
}

// Help renders the help text for the active policy.
func (d *Dispatcher) Help() string {
	return render.Help(d.game.Policy())
}

// Eval evaluates text and formats the result or the error for the channel.
func (d *Dispatcher) Eval(ctx context.Context, text string) string {
	if text == "" {
		return "Usage: !eval <expression>"
	}
	res, err := d.game.Eval(ctx, text)
	if err != nil {
		return "Error evaluating expression: " + ErrorMessage(err)
	}
	return res.Message()
}

// ErrorMessage returns the participant-facing text for an eval error.
func ErrorMessage(err error) string {
	var ee *expr.Error
	if errors.As(err, &ee) {
		return ee.Message
	}
	var re *engine.RuntimeError
	if errors.As(err, &re) {
		return re.Message
	}
	return err.Error()
}
