package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/thoreinstein/mcpm/internal/mcp"
)

var (
	showJSON        bool
	showShowSecrets bool
)

func init() {
	showCmd.Flags().BoolVar(&showJSON, "json", false, "Output as JSON")
	showCmd.Flags().BoolVar(&showShowSecrets, "show-secrets", false,
		"Reveal masked secrets in environment variables and headers")
	rootCmd.AddCommand(showCmd)
}

var showCmd = &cobra.Command{
	Use:   "show [name]",
	Short: "Display MCP server details",
	Long: `Display the merged record of one server: which config files list it,
its tags and icon, and the config entry itself.

Without a name, pick one interactively.

Environment variables and headers are masked by default to protect secrets.
Use --show-secrets to reveal the full values.

Examples:
  mcpm show github
  mcpm show github --show-secrets
  mcpm show github --json`,
	Args: cobra.MaximumNArgs(1),
	RunE: runShow,
}

func runShow(cmd *cobra.Command, args []string) error {
	m, err := loadManager(cmd.Context())
	if err != nil {
		return err
	}
	name, err := serverArg(m, args, "Show server")
	if err != nil {
		return err
	}
	s, err := m.Get(name)
	if err != nil {
		return mutationError(err)
	}

	w := cmd.OutOrStdout()
	if showJSON {
		out := *s
		out.Config = displayConfig(s.Config, showShowSecrets)
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}
	printServer(w, s, m.Active(), showShowSecrets)
	return nil
}

func printServer(w io.Writer, s *mcp.ServerModel, active mcp.Universe, showSecrets bool) {
	cfg := displayConfig(s.Config, showSecrets)

	fmt.Fprintf(w, "%s %s\n", bold("Server:"), cyan(s.Name))
	fmt.Fprintf(w, "  %-10s %s\n", "ID:", s.ID)
	fmt.Fprintf(w, "  %-10s %s\n", "Status:", statusText(s, active))
	fmt.Fprintf(w, "  %-10s %s\n", "Universe:", s.SourceUniverse())
	fmt.Fprintf(w, "  %-10s %s\n", "Configs:", membership(s))
	fmt.Fprintf(w, "  %-10s %s\n", "Summary:", cfg.Summary())
	if len(s.Tags) > 0 {
		fmt.Fprintf(w, "  %-10s %s\n", "Tags:", tagNames(s.Tags))
	}
	if s.CustomIconPath != "" {
		fmt.Fprintf(w, "  %-10s %s\n", "Icon:", s.CustomIconPath)
	} else if s.RegistryImageURL != "" {
		fmt.Fprintf(w, "  %-10s %s\n", "Image:", s.RegistryImageURL)
	}
	fmt.Fprintf(w, "  %-10s %s\n", "Updated:", s.UpdatedAt.Local().Format("2006-01-02 15:04:05"))

	fmt.Fprintln(w)
	fmt.Fprintln(w, bold("Config:"))
	for _, line := range strings.Split(configJSON(cfg), "\n") {
		fmt.Fprintf(w, "  %s\n", line)
	}
}
