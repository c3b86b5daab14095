package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/countbot/internal/store"
)

// ImportOptions holds flags for the import command.
type ImportOptions struct {
	*RootOptions
	Force bool
}

// ImportSummary is reported after a successful import.
type ImportSummary struct {
	Source          string `json:"source"`
	CurrentCount    int64  `json:"current_count"`
	HighestCount    int64  `json:"highest_count"`
	TotalSuccessful int64  `json:"total_successful"`
	Participants    int    `json:"participants"`
	Milestones      int    `json:"milestones"`
}

// NewImportCommand creates the import command.
func NewImportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ImportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "import <stats.json>",
		Short: "Import a legacy stats file",
		Long: `Import a counting_stats.json file written by the legacy counting bot.

The imported state replaces the saved game. A database that already has
transitions is left alone unless --force is given.

Example:
  countbot import counting_stats.json --db ./game.db`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(opts, cmd, args[0])
		},
	}

	cmd.Flags().BoolVar(&opts.Force, "force", false, "replace a game that has already been played")

	return cmd
}

func runImport(opts *ImportOptions, cmd *cobra.Command, path string) error {
	out := opts.formatter(cmd)
	ctx := cmd.Context()

	f, err := os.Open(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open stats file", err)
	}
	defer f.Close()

	state, err := store.ParseLegacy(f)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to parse stats file", err)
	}

	st, err := openStore(opts.Config)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()

	seq, err := st.LastSeq(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read transition log", err)
	}
	if seq > 0 && !opts.Force {
		return NewExitError(ExitCommandError, fmt.Sprintf("database already has %d transitions (use --force to replace the game)", seq))
	}

	if err := st.SaveState(ctx, state); err != nil {
		return WrapExitError(ExitCommandError, "failed to save imported game", err)
	}
	out.VerboseLog("imported %s into %s", path, opts.Config.Database)

	summary := ImportSummary{
		Source:          path,
		CurrentCount:    state.CurrentCount,
		HighestCount:    state.HighestCount,
		TotalSuccessful: state.TotalSuccessful,
		Participants:    len(state.Participants),
		Milestones:      len(state.Milestones),
	}
	return out.Success(summary, fmt.Sprintf(
		"Imported %s: count %d, highest %d, %d successful counts, %d participants, %d milestones\n",
		path, summary.CurrentCount, summary.HighestCount, summary.TotalSuccessful, summary.Participants, summary.Milestones,
	))
}
