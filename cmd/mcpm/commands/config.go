package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/thoreinstein/mcpm/internal/config"
	"github.com/thoreinstein/mcpm/internal/editor"
	"github.com/thoreinstein/mcpm/internal/errors"
	"github.com/thoreinstein/mcpm/internal/mcp"
)

func init() {
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configListCmd)
	configCmd.AddCommand(configEditCmd)
	configCmd.AddCommand(configPathCmd)
	configCmd.AddCommand(configTestCmd)
	rootCmd.AddCommand(configCmd)
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage mcpm settings",
	Long: `Manage mcpm settings stored in <config home>/mcpm/config.yaml.

Settings:
  confirm_delete               ask before 'mcpm remove' (true/false)
  active_config_index          active universe: 0/claude, 1/gemini, 2/codex
  config_paths.<universe>      config file of a universe; empty disables it

Every setting can also be given in the environment, e.g.
MCPM_CONFIRM_DELETE=false.

Without a subcommand, lists all settings.`,
	Example: `  # List all settings
  mcpm config

  # Point Claude at a different file
  mcpm config set config_paths.claude ~/work/.claude.json

  # Check a file before using it
  mcpm config test ~/work/.claude.json

See Also: mcpm use, mcpm check`,
	RunE: runConfigList,
}

var configGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Get a setting",
	Example: `  mcpm config get confirm_delete
  mcpm config get config_paths.codex`,
	Args: cobra.ExactArgs(1),
	RunE: runConfigGet,
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Change a setting",
	Long: `Change a setting and save the settings file.

Paths are checked for shape only; they do not have to exist yet.`,
	Example: `  mcpm config set confirm_delete false
  mcpm config set active_config_index codex
  mcpm config set config_paths.gemini ""`,
	Args: cobra.ExactArgs(2),
	RunE: runConfigSet,
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all settings",
	Long:  `List all settings in YAML format.`,
	Args:  cobra.NoArgs,
	RunE:  runConfigList,
}

var configEditCmd = &cobra.Command{
	Use:   "edit",
	Short: "Open the settings file in $EDITOR",
	Long: `Open the settings file in your default editor. The file is created
with the current settings first if it does not exist.`,
	Args: cobra.NoArgs,
	RunE: runConfigEdit,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the settings file location",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintln(cmd.OutOrStdout(), settingsStore.Path())
	},
}

var configTestCmd = &cobra.Command{
	Use:   "test <path|universe>",
	Short: "Check that a config file exists and parses",
	Long: `Read a config file the way mcpm would and report how many servers it
defines. Pass a path, or a universe name to test its configured file.`,
	Args: cobra.ExactArgs(1),
	RunE: runConfigTest,
}

// fileSettings reloads the settings without the --universe override so it
// is not persisted by accident.
func fileSettings() (*config.Settings, error) {
	cfg, err := settingsStore.Load(configFile != "")
	if err != nil {
		return nil, errors.NewConfigError(err)
	}
	return cfg, nil
}

func runConfigGet(cmd *cobra.Command, args []string) error {
	val, err := config.Get(settings, args[0])
	if err != nil {
		return errors.NewUserError(err, "Run: mcpm config list")
	}
	fmt.Fprintln(cmd.OutOrStdout(), val)
	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	key, value := args[0], args[1]

	cfg, err := fileSettings()
	if err != nil {
		return err
	}
	if err := config.Set(cfg, key, value); err != nil {
		if errors.Is(err, config.ErrUnknownKey) {
			return errors.NewUserError(err, "Run: mcpm config --help")
		}
		return errors.NewUserError(err, "")
	}
	if err := settingsStore.Save(cfg); err != nil {
		return errors.NewSystemError(err, "")
	}

	got, _ := config.Get(cfg, key)
	fmt.Fprintf(cmd.OutOrStdout(), "Set %s = %s\n", key, got)
	return nil
}

func runConfigList(cmd *cobra.Command, _ []string) error {
	data, err := yaml.Marshal(settings)
	if err != nil {
		return errors.Wrap(err, "marshaling config")
	}

	fmt.Fprint(cmd.OutOrStdout(), string(data))
	return nil
}

func runConfigEdit(cmd *cobra.Command, _ []string) error {
	path := settingsStore.Path()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg, err := fileSettings()
		if err != nil {
			return err
		}
		if err := settingsStore.Save(cfg); err != nil {
			return errors.NewSystemError(err, "")
		}
	}

	streams := editor.Streams{In: cmd.InOrStdin(), Out: cmd.OutOrStdout(), Err: cmd.ErrOrStderr()}
	if err := editor.Open(cmd.Context(), path, streams); err != nil {
		return errors.NewSystemError(err, "Set $EDITOR to your preferred editor")
	}

	// Reject a file that would fail the next load.
	if _, err := config.NewStore(path).Load(true); err != nil {
		return errors.NewConfigError(err)
	}
	return nil
}

func runConfigTest(cmd *cobra.Command, args []string) error {
	path := args[0]
	if u, err := mcp.ParseUniverse(path); err == nil {
		path = settings.Path(u)
		if path == "" {
			return errors.NewUserError(errors.Newf("%s is disabled", u), "Set it with: mcpm config set config_paths."+u.String()+" <path>")
		}
	}

	n, err := newManager().TestConnection(cmd.Context(), path)
	if err != nil {
		return errors.NewUserError(err, "")
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s %s: %d server(s)\n", green("✓"), path, n)
	return nil
}
