package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(toggleCmd, enableCmd, disableCmd, enableAllCmd, disableAllCmd)
}

var toggleCmd = &cobra.Command{
	Use:   "toggle [name]",
	Short: "Add or remove a server from the active config file",
	Long: `Flip whether a server is listed in the active universe's config file.
A disabled server stays known to mcpm and keeps its entry, tags and icon.

Examples:
  mcpm toggle github
  mcpm toggle             # pick interactively`,
	Args: cobra.MaximumNArgs(1),
	RunE: runToggle,
}

var enableCmd = &cobra.Command{
	Use:   "enable <name>...",
	Short: "Add servers to the active config file",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSetEnabled(cmd, args, true)
	},
}

var disableCmd = &cobra.Command{
	Use:   "disable <name>...",
	Short: "Remove servers from the active config file, keeping them in mcpm",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSetEnabled(cmd, args, false)
	},
}

var enableAllCmd = &cobra.Command{
	Use:   "enable-all",
	Short: "Enable every server of the active universe",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runToggleAll(cmd, true)
	},
}

var disableAllCmd = &cobra.Command{
	Use:   "disable-all",
	Short: "Disable every server of the active universe",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runToggleAll(cmd, false)
	},
}

func runToggle(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	m, err := loadManager(ctx)
	if err != nil {
		return err
	}
	name, err := serverArg(m, args, "Toggle server")
	if err != nil {
		return err
	}
	enabled, err := m.ToggleServer(ctx, name)
	if err != nil {
		return mutationError(err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s %s in %s\n", name, stateWord(enabled), m.Active())
	return nil
}

func runSetEnabled(cmd *cobra.Command, names []string, enabled bool) error {
	ctx := cmd.Context()
	m, err := loadManager(ctx)
	if err != nil {
		return err
	}
	for _, name := range names {
		changed, err := m.SetEnabled(ctx, name, enabled)
		if err != nil {
			return mutationError(err)
		}
		if !changed {
			fmt.Fprintf(cmd.OutOrStdout(), "%s already %s in %s\n", name, stateWord(enabled), m.Active())
			continue
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s in %s\n", name, stateWord(enabled), m.Active())
	}
	return nil
}

func runToggleAll(cmd *cobra.Command, enable bool) error {
	ctx := cmd.Context()
	m, err := loadManager(ctx)
	if err != nil {
		return err
	}
	n, err := m.ToggleAll(ctx, enable)
	if err != nil {
		return mutationError(err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%d server(s) %s in %s\n", n, stateWord(enable), m.Active())
	return nil
}

func stateWord(enabled bool) string {
	if enabled {
		return "enabled"
	}
	return "disabled"
}
