package manager

import (
	"cmp"
	"context"
	"slices"
	"strings"

	"github.com/thoreinstein/mcpm/internal/configfile"
	"github.com/thoreinstein/mcpm/internal/errors"
	"github.com/thoreinstein/mcpm/internal/mcp"
	"github.com/thoreinstein/mcpm/internal/merge"
	"github.com/thoreinstein/mcpm/internal/paths"
	"github.com/thoreinstein/mcpm/pkg/fileutil"
)

// FilterMode selects which servers a view shows.
type FilterMode string

// Filter modes.
const (
	FilterAll      FilterMode = "all"
	FilterActive   FilterMode = "active"
	FilterDisabled FilterMode = "disabled"
	FilterRecent   FilterMode = "recent"
)

// FilterModes lists every mode.
func FilterModes() []FilterMode {
	return []FilterMode{FilterAll, FilterActive, FilterDisabled, FilterRecent}
}

// ParseFilterMode accepts a mode name; "" means all.
func ParseFilterMode(s string) (FilterMode, error) {
	if s == "" {
		return FilterAll, nil
	}
	mode := FilterMode(strings.ToLower(s))
	if !slices.Contains(FilterModes(), mode) {
		return "", errors.Newf("unknown filter %q (want all, active, disabled or recent)", s)
	}
	return mode, nil
}

// Filtered returns copies of the servers in the active partition matching
// mode and search. Search is case-insensitive over the name, the summary and
// the config JSON. Results are sorted by name, except FilterRecent which
// sorts by last update, newest first.
func (m *Manager) Filtered(mode FilterMode, search string) []*mcp.ServerModel {
	m.mu.Lock()
	defer m.mu.Unlock()

	active := m.settings.Active()
	needle := strings.ToLower(strings.TrimSpace(search))

	out := make([]*mcp.ServerModel, 0, len(m.servers))
	for _, s := range m.servers {
		if !s.VisibleIn(active) {
			continue
		}
		switch mode {
		case FilterActive:
			if !s.InConfigs[active] {
				continue
			}
		case FilterDisabled:
			if s.InConfigs[active] {
				continue
			}
		}
		if needle != "" && !matches(s, needle) {
			continue
		}
		out = append(out, s.Clone())
	}

	if mode == FilterRecent {
		slices.SortStableFunc(out, func(a, b *mcp.ServerModel) int {
			if c := b.UpdatedAt.Compare(a.UpdatedAt); c != 0 {
				return c
			}
			return cmp.Compare(a.Name, b.Name)
		})
	}
	return out
}

func matches(s *mcp.ServerModel, needle string) bool {
	return strings.Contains(strings.ToLower(s.Name), needle) ||
		strings.Contains(strings.ToLower(s.Config.Summary()), needle) ||
		strings.Contains(strings.ToLower(s.ConfigJSON()), needle)
}

// Get returns a copy of name if it is in the active partition.
func (m *Manager) Get(name string) (*mcp.ServerModel, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, s, err := m.lookup(name)
	if err != nil {
		return nil, err
	}
	return s.Clone(), nil
}

// All returns copies of every server regardless of partition.
func (m *Manager) All() []*mcp.ServerModel {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]*mcp.ServerModel, len(m.servers))
	for i, s := range m.servers {
		out[i] = s.Clone()
	}
	return out
}

// Names returns the names visible in the active partition.
func (m *Manager) Names() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	active := m.settings.Active()
	var out []string
	for _, s := range m.servers {
		if s.VisibleIn(active) {
			out = append(out, s.Name)
		}
	}
	return out
}

// Export renders the active source's members: a JSON object keyed by name,
// or an [mcp_servers] TOML document when Codex is active. The output pastes
// straight back into AddServers.
func (m *Manager) Export() ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	active := m.settings.Active()
	members := merge.Split(m.servers)[active]
	if active == mcp.UniverseCodex {
		return configfile.Marshal(members, configfile.FormatTOML)
	}
	return fileutil.MarshalJSON(members)
}

// TestConnection reads the config file at path and returns how many servers
// it defines. A missing file is an error here, unlike Load.
func (m *Manager) TestConnection(ctx context.Context, path string) (int, error) {
	path, err := paths.ExpandHome(path)
	if err != nil {
		return 0, err
	}
	if path == "" {
		return 0, errors.New("path is required")
	}
	if !exists(path) {
		return 0, errors.Newf("%s does not exist", path)
	}
	servers, err := configfile.Read(ctx, path)
	if err != nil {
		return 0, err
	}
	return len(servers), nil
}
