package commands

import (
	"fmt"
	"maps"
	"slices"

	"github.com/spf13/cobra"

	"github.com/thoreinstein/mcpm/internal/errors"
	"github.com/thoreinstein/mcpm/internal/manager"
)

// Package-level flag variables for add command.
var (
	addFile   string
	addFormat string
	addForce  bool
	addImages map[string]string
)

func init() {
	addCmd.Flags().StringVarP(&addFile, "file", "F", "",
		`read servers from a file ("-" for stdin)`)
	addCmd.Flags().StringVar(&addFormat, "format", "auto",
		"input format: auto, json, toml (auto means TOML for codex, JSON otherwise)")
	addCmd.Flags().BoolVar(&addForce, "force", false,
		"add entries that fail validation")
	addCmd.Flags().StringToStringVar(&addImages, "image", nil,
		"registry image URL for a server, as name=url (repeatable)")
	rootCmd.AddCommand(addCmd)
}

var addCmd = &cobra.Command{
	Use:   "add [text...]",
	Short: "Add MCP servers from pasted config text",
	Long: `Add one or more servers to the active universe's config file.

The input is whatever a README or another client shows: a full config file,
an "mcpServers" object, a bare {"name": {...}} map, or a single entry. Curly
quotes, trailing commas and missing outer braces are tolerated. When Codex
is active the input is read as TOML ([mcp_servers.<name>] tables) unless
--format json is given.

A server that already exists in the active universe has its entry replaced.
A name owned by the other universe (Codex versus Claude/Gemini) is left
alone and reported.

Examples:
  # From the clipboard
  pbpaste | mcpm add

  # From a file
  mcpm add --file servers.json

  # Inline
  mcpm add '"fs": {"command": "npx", "args": ["-y", "@mcp/fs"]}'

  # Codex TOML
  mcpm add --universe codex --file codex-servers.toml`,
	RunE: runAdd,
}

func runAdd(cmd *cobra.Command, args []string) error {
	format, err := manager.ParseInputFormat(addFormat)
	if err != nil {
		return errors.NewUserError(err, "")
	}
	text, ok, err := readInput(cmd.InOrStdin(), args, addFile)
	if err != nil {
		return err
	}
	if !ok {
		return errors.NewUserError(errors.New("no input"), "Pass the config text as an argument, with --file, or on stdin")
	}

	m, err := loadManager(cmd.Context())
	if err != nil {
		return err
	}
	result, err := m.AddServers(cmd.Context(), text, manager.AddOptions{
		Format:         format,
		Force:          addForce,
		RegistryImages: addImages,
	})
	if result != nil {
		printAddResult(cmd, result)
	}
	if err != nil {
		return mutationError(err)
	}
	if len(result.Added) == 0 {
		return errors.NewUserError(errors.New("no servers added"), "Fix the entries above or pass --force")
	}
	return nil
}

func printAddResult(cmd *cobra.Command, r *manager.AddResult) {
	w := cmd.OutOrStdout()
	for _, name := range r.Added {
		fmt.Fprintf(w, "%s %s\n", green("✓"), name)
	}
	for _, name := range slices.Sorted(maps.Keys(r.Invalid)) {
		label := name
		if label == "" {
			label = "(unnamed)"
		}
		fmt.Fprintf(w, "%s %s: %s\n", red("✗"), label, r.Invalid[name])
	}
	for _, name := range r.Conflicts {
		fmt.Fprintf(w, "%s %s: already exists in another universe\n", yellow("⚠"), name)
	}
	if !quiet {
		fmt.Fprintln(w, r.Summary())
	}
}
