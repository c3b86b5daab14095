package cli

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/countbot/internal/engine"
	"github.com/roach88/countbot/internal/game"
)

// ReplayResult is the output of the replay command.
type ReplayResult struct {
	Applied     int                 `json:"applied"`
	Divergences []engine.Divergence `json:"divergences"`
	StateDiffs  []string            `json:"state_diffs"`
	Match       bool                `json:"match"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "replay",
		Short: "Rebuild the game from its transition log and check it",
		Long: `Replay the transition log against a fresh game and compare the result
with the saved state.

Every logged transition is re-applied with the configured policy and
milestones. Transitions whose replayed outcome differs from the logged
one, and saved state fields that differ from the rebuilt state, are
reported. Nothing is written.

A game seeded with 'countbot import', or played under a different policy
or milestone table, does not replay cleanly.

Exit codes:
  0 - The log reproduces the saved state
  1 - The log and saved state disagree
  2 - Command error

Example:
  countbot replay --db ./game.db`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(rootOpts, cmd)
		},
	}
}

func runReplay(opts *RootOptions, cmd *cobra.Command) error {
	out := opts.formatter(cmd)
	ctx := cmd.Context()

	st, err := openStore(opts.Config)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()

	saved, err := st.Load(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load game", err)
	}
	records, err := st.AllTransitions(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read transition log", err)
	}
	out.VerboseLog("replaying %d transitions", len(records))

	machine := game.NewMachine(nil, opts.Config.GamePolicy(), opts.Config.Table())
	report, err := engine.Replay(machine, records)
	if err != nil {
		return WrapExitError(ExitCommandError, "replay failed", err)
	}

	result := ReplayResult{
		Applied:     report.Applied,
		Divergences: report.Divergences,
		StateDiffs:  engine.CompareStates(saved, report.State),
	}
	if result.StateDiffs == nil {
		result.StateDiffs = []string{}
	}
	result.Match = len(result.Divergences) == 0 && len(result.StateDiffs) == 0

	if err := out.Success(result, formatReplay(result)); err != nil {
		return err
	}
	if !result.Match {
		return NewExitError(ExitFailure, "transition log does not reproduce the saved game")
	}
	return nil
}

func formatReplay(r ReplayResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Replayed %d transitions\n", r.Applied)
	if r.Match {
		b.WriteString("✓ saved game matches the transition log\n")
		return b.String()
	}
	for _, d := range r.Divergences {
		fmt.Fprintf(&b, "  #%d %s: logged %s, replayed %s\n", d.Seq, d.Field, d.Logged, d.Replay)
	}
	for _, diff := range r.StateDiffs {
		fmt.Fprintf(&b, "  saved %s\n", diff)
	}
	b.WriteString("✗ saved game does not match the transition log\n")
	return b.String()
}
