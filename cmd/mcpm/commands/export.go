package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/thoreinstein/mcpm/internal/errors"
	"github.com/thoreinstein/mcpm/pkg/fileutil"
)

var exportOutput string

func init() {
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "",
		"write to this file instead of stdout")
	rootCmd.AddCommand(exportCmd)
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Print the active universe's servers as config text",
	Long: `Print every server enabled in the active universe: a JSON object keyed
by server name, or [mcp_servers.<name>] TOML tables when Codex is active.
The output can be pasted into 'mcpm add' on another machine.

Secrets are not masked; the output is meant to be used as config.`,
	Example: `  mcpm export > servers.json
  mcpm export --universe codex -o codex-servers.toml`,
	Args: cobra.NoArgs,
	RunE: runExport,
}

func runExport(cmd *cobra.Command, _ []string) error {
	m, err := loadManager(cmd.Context())
	if err != nil {
		return err
	}
	data, err := m.Export()
	if err != nil {
		return errors.NewSystemError(err, "")
	}

	if exportOutput == "" {
		_, err := cmd.OutOrStdout().Write(data)
		return err
	}
	if err := fileutil.AtomicWriteFile(exportOutput, data, 0o600); err != nil {
		return errors.NewSystemError(err, "")
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "wrote %s\n", exportOutput)
	return nil
}
