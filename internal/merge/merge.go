package merge

import (
	"context"
	"log/slog"
	"maps"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/thoreinstein/mcpm/internal/logging"
	"github.com/thoreinstein/mcpm/internal/mcp"
)

// Sources holds one name to config mapping per universe, in source order.
// A nil mapping is the same as an empty one.
type Sources [mcp.NumUniverses]map[string]mcp.ServerConfig

// Has reports whether source u lists name.
func (s Sources) Has(u mcp.Universe, name string) bool {
	_, ok := s[u][name]
	return ok
}

// Option configures a Merge call.
type Option func(*options)

type options struct {
	now    func() time.Time
	newID  func() uuid.UUID
	logger *slog.Logger
}

// WithClock sets the timestamp source for newly created records.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// WithIDGenerator sets the identifier source for newly created records.
func WithIDGenerator(newID func() uuid.UUID) Option {
	return func(o *options) {
		if newID != nil {
			o.newID = newID
		}
	}
}

// WithLogger logs each create and overwrite at trace level.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// Merge returns the reconciled server list sorted by name. cached is not
// modified.
func Merge(cached []*mcp.ServerModel, sources Sources, opts ...Option) []*mcp.ServerModel {
	o := options{
		now:    time.Now,
		newID:  uuid.New,
		logger: logging.NewDiscard(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	merged := make(map[string]*mcp.ServerModel, len(cached))
	for _, s := range cached {
		if s == nil {
			continue
		}
		merged[s.Name] = s.Clone()
	}

	for _, u := range mcp.Universes() {
		src := sources[u]
		for _, name := range slices.Sorted(maps.Keys(src)) {
			cfg := src[name]
			existing, ok := merged[name]
			if !ok {
				merged[name] = mcp.NewServerModel(o.newID(), name, cfg.Clone(), u, o.now())
				o.logger.Log(context.Background(), logging.LevelTrace, "created server",
					"name", name, "universe", u.String())
				continue
			}

			// Source 2 never replaces a config that source 1 lists in this
			// run. A stale flag from the cache does not count: testing
			// InConfigs[0] here would make a second merge of the same
			// sources flip the config back, breaking idempotence.
			if u != mcp.UniverseGemini || !sources.Has(mcp.UniverseClaude, name) {
				existing.Config = cfg.Clone()
				o.logger.Log(context.Background(), logging.LevelTrace, "overwrote config",
					"name", name, "universe", u.String())
			}
			existing.InConfigs[u] = true
		}
	}

	out := make([]*mcp.ServerModel, 0, len(merged))
	for name, s := range merged {
		for _, u := range mcp.Universes() {
			if !sources.Has(u, name) {
				s.InConfigs[u] = false
			}
		}
		out = append(out, s)
	}
	mcp.SortByName(out)
	return out
}

// Split builds the write-back mapping for each source from the servers'
// membership flags.
func Split(servers []*mcp.ServerModel) Sources {
	var out Sources
	for _, u := range mcp.Universes() {
		out[u] = make(map[string]mcp.ServerConfig)
	}
	for _, s := range servers {
		for _, u := range mcp.Universes() {
			if s.InConfigs[u] {
				out[u][s.Name] = s.Config.Clone()
			}
		}
	}
	return out
}
