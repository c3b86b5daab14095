package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/roach88/countbot/internal/engine"
	"github.com/roach88/countbot/internal/game"
)

// NewMachine returns a continue-policy machine over state with the default
// table and a step clock starting at Epoch.
func NewMachine(state *game.State) *game.Machine {
	m := game.NewMachine(state, game.PolicyContinue, game.DefaultTable())
	m.Now = NewStepClock(Epoch, time.Second).Now
	return m
}

// StartEngine creates an engine over m and runs it until the test ends.
func StartEngine(t testing.TB, m *game.Machine, opts ...engine.Option) *engine.Engine {
	t.Helper()

	eng := engine.New(m, opts...)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = eng.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return eng
}
