package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	iconCmd.AddCommand(iconSetCmd, iconResetCmd, iconCleanupCmd)
	rootCmd.AddCommand(iconCmd)
}

var iconCmd = &cobra.Command{
	Use:   "icon",
	Short: "Manage custom server icons",
	Long: `Custom icons are PNG, JPEG or GIF images up to 10 MB and 2048x2048
pixels. mcpm keeps its own copy under its data directory; config files are
not changed.`,
}

var iconSetCmd = &cobra.Command{
	Use:   "set <server> <image>",
	Short: "Use an image file as a server's icon",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := loadManager(cmd.Context())
		if err != nil {
			return err
		}
		filename, err := m.SetCustomIcon(cmd.Context(), args[0], args[1])
		if err != nil {
			return mutationError(err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s icon for %s stored as %s\n", green("✓"), args[0], filename)
		return nil
	},
}

var iconResetCmd = &cobra.Command{
	Use:   "reset <server>",
	Short: "Remove a server's custom icon",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := loadManager(cmd.Context())
		if err != nil {
			return err
		}
		if err := m.ResetCustomIcon(cmd.Context(), args[0]); err != nil {
			return mutationError(err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s icon for %s reset\n", green("✓"), args[0])
		return nil
	},
}

var iconCleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Delete stored icons no server uses",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		m, err := loadManager(cmd.Context())
		if err != nil {
			return err
		}
		removed, err := m.CleanupIcons()
		if err != nil {
			return mutationError(err)
		}
		for _, f := range removed {
			fmt.Fprintf(cmd.OutOrStdout(), "removed %s\n", f)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%d unused icon(s) removed\n", len(removed))
		return nil
	},
}
