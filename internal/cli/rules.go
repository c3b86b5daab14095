package cli

import (
	"github.com/spf13/cobra"

	"github.com/roach88/countbot/internal/render"
)

// NewRulesCommand creates the rules command.
func NewRulesCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "rules",
		Short: "Show the rules posted for !help",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			policy := rootOpts.Config.GamePolicy()
			help := render.Help(policy)
			return rootOpts.formatter(cmd).Success(map[string]string{
				"policy": string(policy),
				"help":   help,
			}, help)
		},
	}
}
