package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/thoreinstein/mcpm/internal/errors"
	"github.com/thoreinstein/mcpm/internal/manager"
	"github.com/thoreinstein/mcpm/internal/mcp"
)

var (
	listFilter      string
	listSearch      string
	listTag         string
	listJSON        bool
	listShowSecrets bool
)

func init() {
	listCmd.Flags().StringVarP(&listFilter, "filter", "f", "all",
		"which servers to show: all, active, disabled, recent")
	listCmd.Flags().StringVarP(&listSearch, "search", "s", "",
		"only servers whose name, summary or config contains this text")
	listCmd.Flags().StringVarP(&listTag, "tag", "t", "",
		"only servers carrying this tag")
	listCmd.Flags().BoolVar(&listJSON, "json", false, "Output in JSON format")
	listCmd.Flags().BoolVar(&listShowSecrets, "show-secrets", false,
		"Reveal masked secrets in env values, headers and URLs")
	rootCmd.AddCommand(listCmd)
}

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List MCP servers of the active universe",
	Long: `List the servers visible from the active universe. Claude and Gemini
see each other's servers; Codex sees only its own.

A server is enabled when its entry is present in the active universe's
config file. Disabled servers are remembered by mcpm and can be turned back
on with 'mcpm toggle'.

Examples:
  # List everything
  mcpm list

  # Only servers missing from the active file
  mcpm list --filter disabled

  # Search by name, command or URL
  mcpm list --search github

  # Codex servers as JSON
  mcpm list --universe codex --json`,
	Args: cobra.NoArgs,
	RunE: runList,
}

// listServerJSON is one server in JSON output.
type listServerJSON struct {
	Name             string           `json:"name"`
	ID               string           `json:"id"`
	Enabled          bool             `json:"enabled"`
	Universe         string           `json:"universe"`
	InConfigs        []string         `json:"inConfigs"`
	Tags             []mcp.Tag        `json:"tags,omitempty"`
	Summary          string           `json:"summary"`
	UpdatedAt        time.Time        `json:"updatedAt"`
	CustomIconPath   string           `json:"customIconPath,omitempty"`
	RegistryImageURL string           `json:"registryImageUrl,omitempty"`
	Config           mcp.ServerConfig `json:"config"`
}

type listOutput struct {
	Universe string           `json:"universe"`
	Degraded bool             `json:"degraded"`
	Servers  []listServerJSON `json:"servers"`
}

func runList(cmd *cobra.Command, _ []string) error {
	mode, err := manager.ParseFilterMode(listFilter)
	if err != nil {
		return errors.NewUserError(err, "")
	}
	var tag mcp.Tag
	if listTag != "" {
		if tag, err = mcp.ParseTag(listTag); err != nil {
			return errors.NewUserError(err, "Run: mcpm tag list")
		}
	}

	m, err := loadManager(cmd.Context())
	if err != nil {
		return err
	}

	servers := m.Filtered(mode, listSearch)
	if tag != "" {
		kept := servers[:0]
		for _, s := range servers {
			if s.HasTag(tag) {
				kept = append(kept, s)
			}
		}
		servers = kept
	}

	if listJSON {
		return outputListJSON(cmd.OutOrStdout(), m, servers)
	}
	return outputListTabular(cmd.OutOrStdout(), m, servers)
}

func outputListJSON(w io.Writer, m *manager.Manager, servers []*mcp.ServerModel) error {
	active := m.Active()
	out := listOutput{
		Universe: active.String(),
		Degraded: m.Degraded(),
		Servers:  make([]listServerJSON, len(servers)),
	}
	for i, s := range servers {
		in := make([]string, 0, mcp.NumUniverses)
		for _, u := range mcp.Universes() {
			if s.InConfigs[u] {
				in = append(in, u.String())
			}
		}
		out.Servers[i] = listServerJSON{
			Name:             s.Name,
			ID:               s.ID.String(),
			Enabled:          s.InConfigs[active],
			Universe:         s.SourceUniverse().String(),
			InConfigs:        in,
			Tags:             s.Tags,
			Summary:          s.Config.Summary(),
			UpdatedAt:        s.UpdatedAt,
			CustomIconPath:   s.CustomIconPath,
			RegistryImageURL: s.RegistryImageURL,
			Config:           displayConfig(s.Config, listShowSecrets),
		}
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func outputListTabular(w io.Writer, m *manager.Manager, servers []*mcp.ServerModel) error {
	active := m.Active()
	header := "Universe: " + active.String()
	switch active {
	case mcp.UniverseClaude:
		header += " (shares servers with gemini)"
	case mcp.UniverseGemini:
		header += " (shares servers with claude)"
	}
	fmt.Fprintln(w, cyan(header))
	if m.Degraded() {
		fmt.Fprintln(w, yellow("  showing cached servers; changes are disabled until every config file reads cleanly"))
	}

	if len(servers) == 0 {
		fmt.Fprintln(w, gray("  (no MCP servers)"))
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "  %s\t%s\t%s\t%s\t%s\n",
		bold("NAME"), bold("STATUS"), bold("CONFIGS"), bold("TAGS"), bold("SUMMARY"))
	for _, s := range servers {
		summary := displayConfig(s.Config, listShowSecrets).Summary()
		fmt.Fprintf(tw, "  %s\t%s\t%s\t%s\t%s\n",
			green(s.Name),
			statusText(s, active),
			membership(s),
			tagNames(s.Tags),
			truncate(summary, 50))
	}
	return tw.Flush()
}
