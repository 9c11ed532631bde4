package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/thoreinstein/mcpm/internal/configfile"
	"github.com/thoreinstein/mcpm/internal/editor"
	"github.com/thoreinstein/mcpm/internal/errors"
	"github.com/thoreinstein/mcpm/internal/manager"
	"github.com/thoreinstein/mcpm/internal/mcp"
)

var (
	editFile   string
	editFormat string
	editForce  bool
)

func init() {
	editCmd.Flags().StringVarP(&editFile, "file", "F", "",
		`read the new entry from a file ("-" for stdin) instead of opening an editor`)
	editCmd.Flags().StringVar(&editFormat, "format", "auto",
		"input format: auto, json, toml")
	editCmd.Flags().BoolVar(&editForce, "force", false,
		"save an entry that fails validation")
	rootCmd.AddCommand(editCmd)
}

var editCmd = &cobra.Command{
	Use:   "edit [name] [text...]",
	Short: "Edit one server's config entry",
	Long: `Replace the config entry of a server.

With only a name, the current entry opens in $EDITOR (JSON, or TOML when
Codex is active). Saving an unchanged buffer does nothing. The new entry can
instead be given inline after the name or with --file.

Examples:
  mcpm edit github
  mcpm edit github '{"command": "docker", "args": ["run", "-i", "ghcr.io/github/mcp"]}'
  mcpm edit github --file github.json`,
	RunE: runEdit,
}

func runEdit(cmd *cobra.Command, args []string) error {
	format, err := manager.ParseInputFormat(editFormat)
	if err != nil {
		return errors.NewUserError(err, "")
	}

	ctx := cmd.Context()
	m, err := loadManager(ctx)
	if err != nil {
		return err
	}
	name, err := serverArg(m, args, "Edit server")
	if err != nil {
		return err
	}
	s, err := m.Get(name)
	if err != nil {
		return mutationError(err)
	}

	var rest []string
	if len(args) > 1 {
		rest = args[1:]
	}
	text, ok, err := readEditInput(cmd, rest)
	if err != nil {
		return err
	}
	if !ok {
		text, err = editInEditor(cmd, s, m.Active(), format)
		if errors.Is(err, editor.ErrUnchanged) {
			fmt.Fprintln(cmd.OutOrStdout(), "No changes made")
			return nil
		}
		if err != nil {
			return errors.NewSystemError(err, "Set $EDITOR to your preferred editor")
		}
	}

	if err := m.UpdateServer(ctx, name, text, manager.UpdateOptions{Format: format, Force: editForce}); err != nil {
		return mutationError(err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s updated %s\n", green("✓"), name)
	return nil
}

// readEditInput only consults stdin when --file says so, so a bare
// "mcpm edit name" opens the editor even when stdin is a pipe.
func readEditInput(cmd *cobra.Command, rest []string) (string, bool, error) {
	if editFile == "" && len(rest) == 0 {
		return "", false, nil
	}
	return readInput(cmd.InOrStdin(), rest, editFile)
}

func editInEditor(cmd *cobra.Command, s *mcp.ServerModel, active mcp.Universe, format manager.InputFormat) (string, error) {
	initial, suffix, err := editBuffer(s, active, format)
	if err != nil {
		return "", err
	}
	streams := editor.Streams{In: cmd.InOrStdin(), Out: cmd.OutOrStdout(), Err: cmd.ErrOrStderr()}
	edited, err := editor.Edit(cmd.Context(), initial, suffix, streams)
	if err != nil {
		return "", err
	}
	return string(edited), nil
}

// editBuffer renders the entry the way UpdateServer will read it back.
func editBuffer(s *mcp.ServerModel, active mcp.Universe, format manager.InputFormat) ([]byte, string, error) {
	toml := format == manager.FormatTOML || (format == manager.FormatAuto && active == mcp.UniverseCodex)
	if !toml {
		return []byte(s.ConfigJSON() + "\n"), ".json", nil
	}
	data, err := configfile.Marshal(map[string]mcp.ServerConfig{s.Name: s.Config}, configfile.FormatTOML)
	if err != nil {
		return nil, "", err
	}
	return data, ".toml", nil
}
