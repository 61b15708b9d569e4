package cli

import (
	"github.com/spf13/cobra"

	"github.com/matzehuels/engraver/pkg/pipeline"
)

// configCommand creates the config command, which prints the layout policy.
func (c *CLI) configCommand() *cobra.Command {
	opts := pipeline.Options{}

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the layout policy as TOML",
		Long: `Print the layout policy as TOML.

Without flags this is the built-in default and a good starting point for a
policy file. With --config the file is read on top of the defaults and
printed with every value clamped into its valid range, exactly as the
engine will use it.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Logger = c.Logger
			if err := opts.ValidateAndSetDefaults(); err != nil {
				return err
			}
			return opts.Policy().Encode(cmd.OutOrStdout())
		},
	}
	policyFlags(cmd, &opts)
	return cmd
}
