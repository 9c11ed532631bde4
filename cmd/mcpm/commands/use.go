package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/thoreinstein/mcpm/internal/errors"
	"github.com/thoreinstein/mcpm/internal/mcp"
)

func init() {
	rootCmd.AddCommand(useCmd)
}

var useCmd = &cobra.Command{
	Use:   "use [universe]",
	Short: "Switch the active universe",
	Long: `Switch which config file commands work on: claude, gemini or codex
(or 0, 1, 2). Without an argument, print the active universe.

The choice is saved in the settings file. To target a universe for a single
command, pass --universe instead.`,
	Example: `  mcpm use codex
  mcpm use`,
	Args:      cobra.MaximumNArgs(1),
	ValidArgs: []string{"claude", "gemini", "codex"},
	RunE:      runUse,
}

func runUse(cmd *cobra.Command, args []string) error {
	w := cmd.OutOrStdout()
	if len(args) == 0 {
		active := settings.Active()
		fmt.Fprintf(w, "%s (%s)\n", active, settings.Path(active))
		return nil
	}

	u, err := mcp.ParseUniverse(args[0])
	if err != nil {
		return errors.NewUserError(err, "valid universes: claude, gemini, codex")
	}

	cfg, err := fileSettings()
	if err != nil {
		return err
	}
	m := newManager()
	if err := m.SetActiveIndex(u); err != nil {
		return errors.NewUserError(err, "")
	}
	cfg.ActiveConfigIndex = int(m.Active())
	if err := settingsStore.Save(cfg); err != nil {
		return errors.NewSystemError(err, "")
	}
	settings.ActiveConfigIndex = cfg.ActiveConfigIndex

	fmt.Fprintf(w, "Active universe: %s\n", u)
	if cfg.Path(u) == "" {
		fmt.Fprintln(w, yellow("  its config path is empty; set one with: mcpm config set config_paths."+u.String()+" <path>"))
	}
	return nil
}
