package cli

import (
	"errors"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/countbot/internal/chat"
	"github.com/roach88/countbot/internal/engine"
	"github.com/roach88/countbot/internal/expr"
	"github.com/roach88/countbot/internal/game"
)

// NewEvalCommand creates the eval command.
func NewEvalCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "eval <expression>...",
		Short: "Evaluate an expression without counting",
		Long: `Evaluate an expression the way the game would, without playing it.

Arguments are joined with spaces, so quoting is optional for most
expressions.

Example:
  countbot eval '√(2025)'
  countbot eval 6 '*' 7 --format json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEval(rootOpts, cmd, strings.Join(args, " "))
		},
	}
	return cmd
}

func runEval(opts *RootOptions, cmd *cobra.Command, text string) error {
	out := opts.formatter(cmd)

	// Eval never touches the game, so no store is opened.
	machine := game.NewMachine(game.NewState(), opts.Config.GamePolicy(), opts.Config.Table())
	eng := engine.New(machine, engineOptions(opts.Config)...)

	res, err := eng.Eval(cmd.Context(), text)
	if err != nil {
		msg := "Error evaluating expression: " + chat.ErrorMessage(err)
		if out.JSON() {
			if ferr := out.Error(evalErrorCode(err), msg, nil); ferr != nil {
				return ferr
			}
		}
		return WrapExitError(ExitFailure, msg, nil)
	}

	return out.Success(res, res.Message()+"\n")
}

// evalErrorCode maps err to the code reported in JSON output.
func evalErrorCode(err error) string {
	var ee *expr.Error
	if errors.As(err, &ee) {
		return string(ee.Code)
	}
	var re *engine.RuntimeError
	if errors.As(err, &re) {
		return string(re.Code)
	}
	return "EVAL_ERROR"
}
