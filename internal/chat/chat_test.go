package chat

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/countbot/internal/engine"
	"github.com/roach88/countbot/internal/expr"
	"github.com/roach88/countbot/internal/game"
	"github.com/roach88/countbot/internal/render"
	"github.com/roach88/countbot/internal/testutil"
)

func newDispatcher(t *testing.T, state *game.State) *Dispatcher {
	t.Helper()
	eng := testutil.StartEngine(t, testutil.NewMachine(state))
	return NewDispatcher(eng, render.StaticResolver{"U01ALICE": "alice"})
}

func say(participant, text string) engine.Submission {
	return engine.Submission{ParticipantID: participant, Text: text}
}

func TestParseCommand(t *testing.T) {
	tests := []struct {
		text string
		cmd  Command
		arg  string
	}{
		{"!stats", CommandStats, ""},
		{"  !STATS  ", CommandStats, ""},
		{"!help", CommandHelp, ""},
		{"!eval 2+2", CommandEval, "2+2"},
		{"!eval   √16 // root ", CommandEval, "√16 // root"},
		{"!eval", CommandEval, ""},
		{"!dance", CommandNone, ""},
		{"5", CommandNone, ""},
		{"what is !stats", CommandNone, ""},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			cmd, arg := ParseCommand(tt.text)
			assert.Equal(t, tt.cmd, cmd)
			assert.Equal(t, tt.arg, arg)
		})
	}
}

func TestHandle_Counting(t *testing.T) {
	d := newDispatcher(t, nil)
	ctx := context.Background()

	reply, err := d.Handle(ctx, say("U01ALICE", "1"))
	require.NoError(t, err)
	require.NotNil(t, reply)
	assert.Equal(t, game.TagCheck, reply.Reaction)
	assert.Empty(t, reply.Text)
	assert.True(t, reply.Outcome.Accepted)

	reply, err = d.Handle(ctx, say("U01ALICE", "2"))
	require.NoError(t, err)
	assert.Equal(t, game.TagReject, reply.Reaction)
	assert.Equal(t, "<@U01ALICE> messed up! You can't count twice in a row. The count continues at 2!", reply.Text)

	reply, err = d.Handle(ctx, say("U02BOB", "3-1"))
	require.NoError(t, err)
	assert.True(t, reply.Outcome.Accepted)
	assert.Equal(t, int64(3), reply.Outcome.Count)
}

func TestHandle_Milestone(t *testing.T) {
	state := game.NewState()
	state.CurrentCount = 42
	state.LastContributor = "U02BOB"
	d := newDispatcher(t, state)

	reply, err := d.Handle(context.Background(), say("U01ALICE", "6*7"))
	require.NoError(t, err)
	assert.Equal(t, game.ReactionTag("rocket"), reply.Reaction)
	assert.Equal(t, "🚀 Congratulations <@U01ALICE>! You've reached 42! 🚀", reply.Text)
}

func TestHandle_Ignored(t *testing.T) {
	d := newDispatcher(t, nil)

	for _, text := range []string{"hello there", "", "2+", "1/0"} {
		reply, err := d.Handle(context.Background(), say("U01ALICE", text))
		require.NoError(t, err, text)
		assert.Nil(t, reply, text)
	}
	assert.Equal(t, int64(1), d.Game().Snapshot().CurrentCount)
}

func TestHandle_Commands(t *testing.T) {
	d := newDispatcher(t, nil)
	ctx := context.Background()

	_, err := d.Handle(ctx, say("U01ALICE", "1"))
	require.NoError(t, err)

	reply, err := d.Handle(ctx, say("U02BOB", "!stats"))
	require.NoError(t, err)
	assert.Equal(t, CommandStats, reply.Command)
	assert.Contains(t, reply.Text, "Current count: 2")
	assert.Contains(t, reply.Text, "alice: 1 (0 fails")

	reply, err = d.Handle(ctx, say("U02BOB", "!help"))
	require.NoError(t, err)
	assert.Equal(t, render.Help(game.PolicyContinue), reply.Text)

	reply, err = d.Handle(ctx, say("U02BOB", "!eval 2^3"))
	require.NoError(t, err)
	assert.Equal(t, "Expression: 2^3, Evaluated: 8, Complexity: 4", reply.Text)

	assert.Equal(t, int64(2), d.Game().Snapshot().CurrentCount, "commands never count")
}

func TestEval_Errors(t *testing.T) {
	d := newDispatcher(t, nil)
	ctx := context.Background()

	assert.Equal(t, "Usage: !eval <expression>", d.Eval(ctx, ""))
	assert.Equal(t, "Error evaluating expression: not an expression", d.Eval(ctx, "banana"))
	assert.True(t, strings.HasPrefix(d.Eval(ctx, "2+"), "Error evaluating expression: "))
}

func TestSetNames(t *testing.T) {
	d := newDispatcher(t, nil)
	ctx := context.Background()
	_, err := d.Handle(ctx, say("U02BOB", "1"))
	require.NoError(t, err)

	assert.Contains(t, d.Stats(ctx), "U02BOB: 1")

	d.SetNames(render.StaticResolver{"U02BOB": "bob"})
	assert.Contains(t, d.Stats(ctx), "bob: 1")
}

func TestErrorMessage(t *testing.T) {
	assert.Equal(t, "division by zero", ErrorMessage(&expr.Error{Code: expr.ErrCodeDomain, Message: "division by zero", Pos: -1}))
	assert.Equal(t, "engine stopped", ErrorMessage(engine.ErrStopped))
	assert.Equal(t, "boom", ErrorMessage(errors.New("boom")))
}
