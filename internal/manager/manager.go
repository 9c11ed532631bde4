// Package manager holds the application state mcpm works on: the merged
// server list, the settings it was loaded with and the guard that keeps a
// load from writing back.
//
// Every command follows the same cycle: Load reads the three sources and
// merges them with the cache, a mutation edits the in-memory list, and Sync
// writes each source back in full and refreshes the cache. Mutations are
// confined to the active universe's partition, so Codex servers cannot be
// edited while Claude or Gemini is active and the reverse.
package manager

import (
	"context"
	"os"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/thoreinstein/mcpm/internal/backup"
	"github.com/thoreinstein/mcpm/internal/cache"
	"github.com/thoreinstein/mcpm/internal/config"
	"github.com/thoreinstein/mcpm/internal/configfile"
	"github.com/thoreinstein/mcpm/internal/errors"
	"github.com/thoreinstein/mcpm/internal/icon"
	"github.com/thoreinstein/mcpm/internal/logging"
	"github.com/thoreinstein/mcpm/internal/mcp"
	"github.com/thoreinstein/mcpm/internal/merge"
)

// Manager owns the server list. It is safe for concurrent use, but calls are
// serialized.
type Manager struct {
	mu sync.Mutex

	settings *config.Settings
	cache    *cache.Store
	backups  *backup.Session
	icons    *icon.Store
	now      func() time.Time
	newID    func() uuid.UUID

	servers  []*mcp.ServerModel
	loaded   bool
	degraded bool
	skipSync bool
}

// Option configures a Manager.
type Option func(*Manager)

// WithCache sets the cache store. The default is cache.NewStore.
func WithCache(s *cache.Store) Option {
	return func(m *Manager) { m.cache = s }
}

// WithBackups snapshots each source file before its first write.
func WithBackups(s *backup.Session) Option {
	return func(m *Manager) { m.backups = s }
}

// WithIcons sets the custom icon store. The default is icon.NewStore.
func WithIcons(s *icon.Store) Option {
	return func(m *Manager) { m.icons = s }
}

// WithClock sets the time source for timestamps.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// WithIDGenerator sets the identifier source for new servers.
func WithIDGenerator(newID func() uuid.UUID) Option {
	return func(m *Manager) {
		if newID != nil {
			m.newID = newID
		}
	}
}

// New creates a Manager for settings. Call Load before anything else.
func New(settings *config.Settings, opts ...Option) *Manager {
	if settings == nil {
		settings = config.Default()
	}
	m := &Manager{
		settings: settings.Clone(),
		now:      time.Now,
		newID:    uuid.New,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.cache == nil {
		m.cache = cache.NewStore()
	}
	if m.icons == nil {
		m.icons = icon.NewStore()
	}
	return m
}

// Settings returns a copy of the settings in use.
func (m *Manager) Settings() *config.Settings {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.settings.Clone()
}

// Active returns the active universe.
func (m *Manager) Active() mcp.Universe {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.settings.Active()
}

// SetActiveIndex switches the universe that views and mutations apply to.
// Persisting the change is up to the caller.
func (m *Manager) SetActiveIndex(u mcp.Universe) error {
	if !u.Valid() {
		return errors.Wrapf(mcp.ErrUnknownUniverse, "%d", int(u))
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.settings.ActiveConfigIndex = int(u)
	return nil
}

// Degraded reports whether the last Load fell back to the cache.
func (m *Manager) Degraded() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.degraded
}

// Load reads the three sources in order and merges them with the cache. If
// any source fails to read, the cached list is served instead and a
// *LoadError is returned; writes stay disabled until a Load succeeds.
//
// File I/O runs without holding the lock. A Sync issued meanwhile is
// skipped, and the merge result replaces whatever the list held.
func (m *Manager) Load(ctx context.Context) error {
	m.mu.Lock()
	m.skipSync = true
	sourcePaths := m.settings.SourcePaths()
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		m.skipSync = false
		m.mu.Unlock()
	}()

	logger := logging.FromContext(ctx)

	cached, err := m.loadCache(ctx)
	if err != nil {
		return err
	}

	var sources merge.Sources
	for _, u := range mcp.Universes() {
		if err := ctx.Err(); err != nil {
			return err
		}
		path := sourcePaths[u]
		if path == "" {
			logger.Debug("source disabled", "universe", u.String())
			continue
		}
		servers, err := configfile.Read(ctx, path)
		if err != nil {
			logger.Warn("falling back to cached servers", "universe", u.String(), "path", path, "error", err)
			m.mu.Lock()
			m.servers = cached
			m.loaded = true
			m.degraded = true
			m.mu.Unlock()
			return &LoadError{Universe: u, Path: path, Err: err}
		}
		logger.Debug("read source", "universe", u.String(), "path", path, "servers", len(servers))
		sources[u] = servers
	}

	merged := merge.Merge(cached, sources,
		merge.WithClock(m.now),
		merge.WithIDGenerator(m.newID),
		merge.WithLogger(logger),
	)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.servers = merged
	m.loaded = true
	m.degraded = false
	if err := m.cache.Save(m.servers); err != nil {
		return err
	}
	if names := crossingPartitions(m.servers); len(names) > 0 {
		logger.Warn("servers listed on both sides of the codex boundary; writes are disabled until one entry is renamed or removed",
			"servers", names)
	}
	logger.Info("loaded servers", "count", len(m.servers))
	return nil
}

// loadCache returns the cached list. An unreadable cache is moved aside and
// treated as empty so it does not block every command.
func (m *Manager) loadCache(ctx context.Context) ([]*mcp.ServerModel, error) {
	cached, err := m.cache.Load(ctx)
	if err == nil {
		return cached, nil
	}
	if !errors.Is(err, cache.ErrCorrupt) {
		return nil, err
	}
	dest, qerr := m.cache.Quarantine(m.now())
	if qerr != nil {
		return nil, errors.Wrap(err, qerr.Error())
	}
	logging.FromContext(ctx).Warn("server cache was unreadable and has been moved aside",
		"path", m.cache.Path(), "moved_to", dest, "error", err)
	return nil, nil
}

// Sync writes every source back from the membership flags and then saves the
// cache. It does nothing while a Load is in progress. Sources are written in
// order; the first failure is returned as a *SyncError and later sources are
// not attempted.
func (m *Manager) Sync(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.syncLocked(ctx)
}

func (m *Manager) syncLocked(ctx context.Context) error {
	if m.skipSync {
		logging.FromContext(ctx).Debug("skipping sync during load")
		return nil
	}
	if err := m.syncable(); err != nil {
		return err
	}

	logger := logging.FromContext(ctx)
	split := merge.Split(m.servers)
	for _, u := range mcp.Universes() {
		if err := ctx.Err(); err != nil {
			return err
		}
		path := m.settings.Path(u)
		if path == "" {
			continue
		}
		if len(split[u]) == 0 && !exists(path) {
			// Don't create config files for clients that aren't set up.
			continue
		}
		if err := m.backups.EnsureBackedUp(u.String(), path); err != nil {
			return &SyncError{Universe: u, Path: path, Err: err}
		}
		if err := configfile.Write(ctx, path, split[u]); err != nil {
			return &SyncError{Universe: u, Path: path, Err: err}
		}
		logger.Debug("synced source", "universe", u.String(), "path", path, "servers", len(split[u]))
	}
	return m.cache.Save(m.servers)
}

// syncable reports why the source files may not be written. Mutations that
// sync check it before changing anything.
func (m *Manager) syncable() error {
	if err := m.writable(); err != nil {
		return err
	}
	if names := crossingPartitions(m.servers); len(names) > 0 {
		return &PartitionError{Names: names}
	}
	return nil
}

// crossingPartitions returns the names listed by a source outside their
// record's partition.
func crossingPartitions(servers []*mcp.ServerModel) []string {
	var names []string
	for _, s := range servers {
		for _, u := range mcp.Universes() {
			if s.InConfigs[u] && !s.VisibleIn(u) {
				names = append(names, s.Name)
				break
			}
		}
	}
	return names
}

// writable reports why the list may not be written back.
func (m *Manager) writable() error {
	switch {
	case !m.loaded:
		return ErrNotLoaded
	case m.degraded:
		return errors.Wrap(ErrLoadFailed, "fix the unreadable config file and reload before making changes")
	}
	return nil
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// lookup finds name in the active partition.
func (m *Manager) lookup(name string) (int, *mcp.ServerModel, error) {
	i := slices.IndexFunc(m.servers, func(s *mcp.ServerModel) bool { return s.Name == name })
	if i < 0 {
		return -1, nil, errors.Wrapf(errors.ErrNotFound, "%q", name)
	}
	s := m.servers[i]
	if active := m.settings.Active(); !s.VisibleIn(active) {
		return -1, nil, errors.Wrapf(errors.ErrUniverseMismatch, "%q belongs to %s, active is %s",
			name, s.SourceUniverse(), active)
	}
	return i, s, nil
}

// saveCacheLocked persists metadata-only changes.
func (m *Manager) saveCacheLocked() error {
	if err := m.writable(); err != nil {
		return err
	}
	return m.cache.Save(m.servers)
}
