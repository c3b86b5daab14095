package harness

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/roach88/countbot/internal/chat"
	"github.com/roach88/countbot/internal/engine"
	"github.com/roach88/countbot/internal/game"
	"github.com/roach88/countbot/internal/render"
	"github.com/roach88/countbot/internal/store"
	"github.com/roach88/countbot/internal/testutil"
)

// Harness plays one scenario against a live engine.
type Harness struct {
	store    *store.Store
	dispatch *chat.Dispatcher
}

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation.
// Deterministic helpers ensure reproducible results.
//
// Execution flow:
//  1. Create fresh in-memory database and seed the initial state
//  2. Start an engine checkpointing into it
//  3. Play each step through the chat dispatcher and check its expect clause
//  4. Load the final state back from the database
//  5. Evaluate assertions
func Run(scenario *Scenario) (*Result, error) {
	ctx := context.Background()

	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	state := scenario.Initial.state()
	if scenario.Initial != nil {
		if err := st.SaveState(ctx, state); err != nil {
			return nil, fmt.Errorf("failed to seed state: %w", err)
		}
	}

	policy, err := game.ParsePolicy(scenario.Policy)
	if err != nil {
		return nil, err
	}
	table := game.DefaultTable()
	for _, m := range scenario.Milestones {
		table.Special[m.Value] = game.ReactionTag(m.Tag)
	}

	machine := game.NewMachine(state, policy, table)
	machine.Now = testutil.NewStepClock(testutil.Epoch, time.Minute).Now

	eng := engine.New(machine,
		engine.WithCheckpointer(st),
		engine.WithIDGenerator(testutil.NewSequentialIDs("")),
	)

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan error, 1)
	go func() { done <- eng.Run(runCtx) }()
	defer func() {
		cancel()
		<-done
	}()

	h := &Harness{
		store:    st,
		dispatch: chat.NewDispatcher(eng, render.StaticResolver(scenario.Names)),
	}

	result := NewResult()
	if err := h.play(ctx, scenario.Steps, result); err != nil {
		return nil, fmt.Errorf("failed to play steps: %w", err)
	}

	loaded, err := st.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load final state: %w", err)
	}
	result.State = loaded
	result.Stats = render.Stats(ctx, loaded, render.StaticResolver(scenario.Names))

	actx := &AssertionContext{
		Store: st,
		Ctx:   ctx,
	}
	for _, errMsg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(errMsg)
	}

	return result, nil
}

// play sends each step through the dispatcher and validates expect clauses.
func (h *Harness) play(ctx context.Context, steps []Step, result *Result) error {
	for i, step := range steps {
		reply, err := h.dispatch.Handle(ctx, engine.Submission{
			ParticipantID: step.Participant,
			Text:          step.Text,
			ChannelRef:    "scenario",
		})
		if err != nil {
			return fmt.Errorf("step %d: %w", i, err)
		}

		event := TraceEvent{
			Step:        i + 1,
			Participant: step.Participant,
			Text:        step.Text,
		}
		switch {
		case reply == nil:
			event.Outcome = OutcomeIgnored
		case reply.Command != chat.CommandNone:
			event.Outcome = OutcomeCommand
			event.Command = string(reply.Command)
			event.Message = reply.Text
		default:
			out := reply.Outcome
			event.Outcome = OutcomeRejected
			if out.Accepted {
				event.Outcome = OutcomeAccepted
			}
			seq, err := h.store.LastSeq(ctx)
			if err != nil {
				return fmt.Errorf("step %d: %w", i, err)
			}
			event.Seq = seq
			event.Value = &out.Value
			event.Count = &out.Count
			event.Complexity = out.Complexity
			event.Reason = out.Reason
			event.Reaction = out.Reaction
			event.Message = out.Message
		}
		result.Trace = append(result.Trace, event)

		if step.Expect != nil {
			for _, msg := range checkExpect(event, step.Expect) {
				result.AddError(fmt.Sprintf("step %d: %s", i+1, msg))
			}
		}

		slog.Debug("scenario step played",
			"step", i+1,
			"participant", step.Participant,
			"outcome", event.Outcome,
		)
	}
	return nil
}

// checkExpect compares one event with its expect clause.
func checkExpect(event TraceEvent, want *Expect) []string {
	var errs []string
	mismatch := func(field string, want, got any) {
		errs = append(errs, fmt.Sprintf("expected %s %v, got %v", field, want, got))
	}

	if event.Outcome != want.Outcome {
		mismatch("outcome", want.Outcome, event.Outcome)
	}
	if want.Count != nil && (event.Count == nil || *event.Count != *want.Count) {
		mismatch("count", *want.Count, deref(event.Count))
	}
	if want.Value != nil && (event.Value == nil || *event.Value != *want.Value) {
		mismatch("value", *want.Value, deref(event.Value))
	}
	if want.Reason != "" && string(event.Reason) != want.Reason {
		mismatch("reason", want.Reason, event.Reason)
	}
	if want.Reaction != "" && string(event.Reaction) != want.Reaction {
		mismatch("reaction", want.Reaction, event.Reaction)
	}
	if want.Message != nil && event.Message != *want.Message {
		mismatch("message", fmt.Sprintf("%q", *want.Message), fmt.Sprintf("%q", event.Message))
	}
	if want.Contains != "" && !strings.Contains(event.Message, want.Contains) {
		errs = append(errs, fmt.Sprintf("expected message containing %q, got %q", want.Contains, event.Message))
	}
	return errs
}

func deref(p *int64) any {
	if p == nil {
		return "<none>"
	}
	return *p
}
