package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(syncCmd)
}

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Reload every config file and write the merged list back",
	Long: `Read all three config files, merge them with mcpm's cache, and write
each file's server section back. Shared servers edited in one of Claude or
Gemini are copied to the other if it lists them. Everything outside the
server section of each file is kept as it was.

JSON files are rewritten with two-space indentation and sorted keys. Codex
TOML is re-encoded, so comments and hand formatting in config.toml are not
kept and strings use single quotes. Each file is backed up before its first
write; restore one with 'mcpm backup restore <universe>'.`,
	Args: cobra.NoArgs,
	RunE: runSync,
}

func runSync(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	m := newManager()
	if err := m.Load(ctx); err != nil {
		return mutationError(err)
	}
	if err := m.Sync(ctx); err != nil {
		return mutationError(err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s synced %d server(s)\n", green("✓"), len(m.All()))
	return nil
}
