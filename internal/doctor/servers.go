package doctor

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/thoreinstein/mcpm/internal/cache"
	"github.com/thoreinstein/mcpm/internal/configfile"
	"github.com/thoreinstein/mcpm/internal/errors"
	"github.com/thoreinstein/mcpm/internal/mcp"
	"github.com/thoreinstein/mcpm/internal/mcp/validator"
	"github.com/thoreinstein/mcpm/internal/merge"
)

// readSources reads every enabled source, leaving unreadable ones nil.
// SyntaxCheck reports those.
func readSources(ctx context.Context, paths [mcp.NumUniverses]string) merge.Sources {
	var out merge.Sources
	for _, u := range mcp.Universes() {
		if paths[u] == "" {
			continue
		}
		if servers, err := configfile.Read(ctx, paths[u]); err == nil {
			out[u] = servers
		}
	}
	return out
}

// ServerCheck validates every server entry in every source.
type ServerCheck struct {
	sources [mcp.NumUniverses]string
}

var _ Check = (*ServerCheck)(nil)

// NewServerCheck creates a server check over the source paths.
func NewServerCheck(sources [mcp.NumUniverses]string) *ServerCheck {
	return &ServerCheck{sources: sources}
}

// Name returns the unique identifier for this check.
func (c *ServerCheck) Name() string {
	return "server-entries"
}

// Category returns the grouping for this check.
func (c *ServerCheck) Category() string {
	return "mcp"
}

// Run reports entries no client could start as warnings and questionable
// fields as info. Neither stops mcpm from loading the file.
func (c *ServerCheck) Run(ctx context.Context) *CheckResult {
	sources := readSources(ctx, c.sources)

	var issues []map[string]any
	var errCount, warnCount, total int
	for _, u := range mcp.Universes() {
		for _, name := range slices.Sorted(maps.Keys(sources[u])) {
			total++
			for _, verr := range validator.Check(name, sources[u][name]) {
				if verr.Severity == validator.SeverityError {
					errCount++
				} else {
					warnCount++
				}
				issues = append(issues, map[string]any{
					"universe": u.String(),
					"server":   name,
					"field":    verr.Field,
					"severity": verr.Severity.String(),
					"problem":  verr.Message,
				})
			}
		}
	}

	result := &CheckResult{
		Name:     c.Name(),
		Category: c.Category(),
		Details: map[string]any{
			"servers": total,
			"issues":  issues,
		},
	}
	switch {
	case errCount > 0:
		result.Status = SeverityWarning
		result.Message = fmt.Sprintf("%d server entr(ies) cannot be started by their client", errCount)
		result.FixHint = "give each entry a command or a url (mcpm edit <name>)"
	case warnCount > 0:
		result.Status = SeverityInfo
		result.Message = fmt.Sprintf("%d server(s) checked, %d note(s)", total, warnCount)
	default:
		result.Status = SeverityPass
		result.Message = fmt.Sprintf("%d server(s) checked", total)
	}
	return result
}

// UniverseCheck finds entries that are listed in a file but cannot be seen or
// edited there, because the server was first seen on the other side of the
// Codex boundary.
type UniverseCheck struct {
	sources [mcp.NumUniverses]string
	cache   *cache.Store
}

var _ Check = (*UniverseCheck)(nil)

// NewUniverseCheck creates a universe check. store may be nil, in which case
// every name is treated as new.
func NewUniverseCheck(sources [mcp.NumUniverses]string, store *cache.Store) *UniverseCheck {
	return &UniverseCheck{sources: sources, cache: store}
}

// Name returns the unique identifier for this check.
func (c *UniverseCheck) Name() string {
	return "universe-assignment"
}

// Category returns the grouping for this check.
func (c *UniverseCheck) Category() string {
	return "mcp"
}

// Run merges the sources with the cache the way Load does, without saving
// anything, and reports every membership outside the record's partition.
func (c *UniverseCheck) Run(ctx context.Context) *CheckResult {
	var cached []*mcp.ServerModel
	if c.cache != nil {
		cached, _ = c.cache.Load(ctx)
	}
	merged := merge.Merge(cached, readSources(ctx, c.sources))

	var hidden []map[string]any
	for _, s := range merged {
		for _, u := range mcp.Universes() {
			if s.InConfigs[u] && !s.VisibleIn(u) {
				hidden = append(hidden, map[string]any{
					"server":      s.Name,
					"listed_in":   u.String(),
					"assigned_to": s.SourceUniverse().String(),
				})
			}
		}
	}

	result := &CheckResult{
		Name:     c.Name(),
		Category: c.Category(),
		Details:  map[string]any{"servers": len(merged)},
	}
	if len(hidden) == 0 {
		result.Status = SeverityPass
		result.Message = fmt.Sprintf("%d server(s) each belong to one side of the codex boundary", len(merged))
		return result
	}
	result.Status = SeverityError
	result.Message = fmt.Sprintf("%d entr(ies) are hidden because the server belongs to the other universe; mcpm will not write config files until this is resolved", len(hidden))
	result.Details["hidden"] = hidden
	result.FixHint = "rename the entry in one of the files, or remove it from the file where it is hidden"
	return result
}

// CacheCheck verifies the server cache decodes.
type CacheCheck struct {
	cache *cache.Store
	now   func() time.Time
	err   error
}

var (
	_ Check = (*CacheCheck)(nil)
	_ Fixer = (*CacheCheck)(nil)
)

// NewCacheCheck creates a cache check. now stamps quarantined files.
func NewCacheCheck(store *cache.Store, now func() time.Time) *CacheCheck {
	if now == nil {
		now = time.Now
	}
	return &CacheCheck{cache: store, now: now}
}

// Name returns the unique identifier for this check.
func (c *CacheCheck) Name() string {
	return "server-cache"
}

// Category returns the grouping for this check.
func (c *CacheCheck) Category() string {
	return "cache"
}

// Run loads the cache and counts records no source lists any more.
func (c *CacheCheck) Run(ctx context.Context) *CheckResult {
	result := &CheckResult{
		Name:     c.Name(),
		Category: c.Category(),
		Details:  map[string]any{"path": c.cache.Path()},
	}

	servers, err := c.cache.Load(ctx)
	c.err = err
	switch {
	case errors.Is(err, cache.ErrCorrupt):
		result.Status = SeverityError
		result.Message = "server cache cannot be decoded; tags and icons are unavailable"
		result.Fixable = true
		result.FixHint = "mcpm check --fix moves it aside and rebuilds it on the next load"
		result.Details["error"] = err.Error()
		return result
	case errors.Is(err, cache.ErrNewerVersion):
		result.Status = SeverityError
		result.Message = "server cache was written by a newer mcpm"
		result.FixHint = "upgrade mcpm"
		return result
	case err != nil:
		result.Status = SeverityError
		result.Message = err.Error()
		return result
	}

	var orphaned []string
	for _, s := range servers {
		if !s.InAnyConfig() {
			orphaned = append(orphaned, s.Name)
		}
	}
	result.Details["servers"] = len(servers)
	if len(orphaned) > 0 {
		result.Status = SeverityInfo
		result.Message = fmt.Sprintf("%d server(s) cached, %d listed in no config file", len(servers), len(orphaned))
		result.Details["orphaned"] = orphaned
		return result
	}
	result.Status = SeverityPass
	result.Message = fmt.Sprintf("%d server(s) cached", len(servers))
	return result
}

// CanFix reports whether the last run found a corrupt cache.
func (c *CacheCheck) CanFix() bool {
	return errors.Is(c.err, cache.ErrCorrupt)
}

// Fix moves the corrupt cache aside.
func (c *CacheCheck) Fix() []FixResult {
	result := FixResult{Path: c.cache.Path()}
	dest, err := c.cache.Quarantine(c.now())
	if err != nil {
		result.Error = err
		result.Description = "failed to move corrupt cache aside"
		return []FixResult{result}
	}
	c.err = nil
	result.Fixed = true
	result.Description = "moved to " + dest
	return []FixResult{result}
}
