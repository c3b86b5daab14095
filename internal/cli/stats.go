package cli

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/countbot/internal/render"
)

// NewStatsCommand creates the stats command.
func NewStatsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show game statistics",
		Long: `Show the stats report for the saved game.

Text output is the report posted for !stats. JSON output is the full
game state.

Example:
  countbot stats --db ./game.db
  countbot stats --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStats(rootOpts, cmd)
		},
	}
}

func runStats(opts *RootOptions, cmd *cobra.Command) error {
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

	state, err := st.Load(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load game", err)
	}

	if out.JSON() {
		return out.Success(state, "")
	}
	return out.Success(state, render.Stats(ctx, state, render.StaticResolver(opts.Config.Names)))
}
