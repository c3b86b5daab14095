package cli

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/countbot/internal/engine"
	"github.com/roach88/countbot/internal/store"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	Participant string
	Limit       int
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent transitions",
		Long: `Show the most recent transitions from the transition log, newest last.

Example:
  countbot history --limit 50
  countbot history --participant U01ALICE --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Participant, "participant", "", "only show transitions by this participant")
	cmd.Flags().IntVar(&opts.Limit, "limit", store.DefaultHistoryLimit, "maximum number of transitions to show")

	return cmd
}

func runHistory(opts *HistoryOptions, cmd *cobra.Command) error {
	out := opts.formatter(cmd)

	if opts.Limit <= 0 {
		return NewExitError(ExitCommandError, fmt.Sprintf("invalid limit %d: must be positive", opts.Limit))
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

	records, err := st.ReadTransitions(cmd.Context(), store.HistoryQuery{
		Participant: opts.Participant,
		Limit:       opts.Limit,
	})
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read transitions", err)
	}

	return out.Success(records, formatHistory(records))
}

func formatHistory(records []engine.TransitionRecord) string {
	if len(records) == 0 {
		return "No transitions yet.\n"
	}
	var b strings.Builder
	for _, r := range records {
		verdict := "ok"
		if !r.Accepted {
			verdict = string(r.Reason)
		}
		fmt.Fprintf(&b, "#%d %s %s: %s = %d (complexity %d) -> %s, count %d\n",
			r.Seq,
			r.At.UTC().Format("2006-01-02 15:04:05"),
			r.Participant,
			r.Expression,
			r.Value,
			r.Complexity,
			verdict,
			r.Count,
		)
	}
	return b.String()
}
