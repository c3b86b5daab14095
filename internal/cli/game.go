package cli

import (
	"context"
	"log/slog"

	"github.com/roach88/countbot/internal/config"
	"github.com/roach88/countbot/internal/engine"
	"github.com/roach88/countbot/internal/expr"
	"github.com/roach88/countbot/internal/game"
	"github.com/roach88/countbot/internal/score"
	"github.com/roach88/countbot/internal/store"
)

// openStore opens the configured database.
func openStore(cfg *config.Config) (*store.Store, error) {
	slog.Debug("opening database", "path", cfg.Database)
	st, err := store.Open(cfg.Database)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	return st, nil
}

// engineOptions translates cfg into engine options.
func engineOptions(cfg *config.Config) []engine.Option {
	return []engine.Option{
		engine.WithEvaluator(expr.NewEvaluator(expr.WithTimeout(cfg.EvalTimeout))),
		engine.WithScorer(score.New(cfg.OperandCeiling)),
		engine.WithMaxConcurrentEvaluations(cfg.MaxConcurrentEvals),
		engine.WithMaxExpressionBytes(cfg.MaxExpressionBytes),
	}
}

// resumeEngine builds an engine that continues the game saved in st and
// checkpoints back into it. The caller runs it.
func resumeEngine(ctx context.Context, cfg *config.Config, st *store.Store) (*engine.Engine, error) {
	state, err := st.Load(ctx)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load game", err)
	}
	seq, err := st.LastSeq(ctx)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to read transition log", err)
	}

	machine := game.NewMachine(state, cfg.GamePolicy(), cfg.Table())
	opts := append(engineOptions(cfg),
		engine.WithCheckpointer(st),
		engine.WithClock(engine.NewClockAt(seq)),
	)

	slog.Info("game loaded",
		"count", state.CurrentCount,
		"highest", state.HighestCount,
		"participants", len(state.Participants),
		"last_seq", seq,
		"policy", machine.Policy,
	)
	return engine.New(machine, opts...), nil
}

// runEngine runs eng in the background. The returned function stops it
// and waits for the loop to exit.
func runEngine(ctx context.Context, eng *engine.Engine) (stop func()) {
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := eng.Run(ctx); err != nil && ctx.Err() == nil {
			slog.Error("engine stopped", "error", err)
		}
	}()
	return func() {
		cancel()
		<-done
	}
}
