package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

var removeYes bool

func init() {
	removeCmd.Flags().BoolVarP(&removeYes, "yes", "y", false,
		"skip the confirmation prompt")
	rootCmd.AddCommand(removeCmd)
}

var removeCmd = &cobra.Command{
	Use:     "remove [name]",
	Aliases: []string{"rm"},
	Short:   "Delete a server from every config file",
	Long: `Delete a server from mcpm and from every config file that lists it,
along with its custom icon.

To take a server out of the active file but keep it around, use
'mcpm toggle' instead.

When confirm_delete is set (the default), you are asked first. Pass --yes
to skip the question.

Examples:
  mcpm remove github
  mcpm remove github --yes`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRemove,
}

func runRemove(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	m, err := loadManager(ctx)
	if err != nil {
		return err
	}
	name, err := serverArg(m, args, "Remove server")
	if err != nil {
		return err
	}
	s, err := m.Get(name)
	if err != nil {
		return mutationError(err)
	}

	if m.Settings().ConfirmDelete && !removeYes {
		ok, err := newSelector().Confirm(fmt.Sprintf("Delete %s from %s?", name, membership(s)), false)
		if err != nil {
			return mutationError(err)
		}
		if !ok {
			fmt.Fprintln(cmd.OutOrStdout(), "Cancelled")
			return nil
		}
	}

	if err := m.DeleteServer(ctx, name); err != nil {
		return mutationError(err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s removed %s\n", green("✓"), name)
	return nil
}
