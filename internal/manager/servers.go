package manager

import (
	"context"
	"maps"
	"slices"

	"github.com/thoreinstein/mcpm/internal/configfile"
	"github.com/thoreinstein/mcpm/internal/errors"
	"github.com/thoreinstein/mcpm/internal/extract"
	"github.com/thoreinstein/mcpm/internal/logging"
	"github.com/thoreinstein/mcpm/internal/mcp"
	"github.com/thoreinstein/mcpm/internal/mcp/validator"
)

// InputFormat selects how pasted text is parsed.
type InputFormat int

const (
	// FormatAuto picks TOML when Codex is active and JSON otherwise.
	FormatAuto InputFormat = iota
	FormatJSON
	FormatTOML
)

// ParseInputFormat accepts "", "auto", "json" or "toml".
func ParseInputFormat(s string) (InputFormat, error) {
	switch s {
	case "", "auto":
		return FormatAuto, nil
	case "json":
		return FormatJSON, nil
	case "toml":
		return FormatTOML, nil
	}
	return FormatAuto, errors.Newf("unknown input format %q (want json or toml)", s)
}

func (f InputFormat) resolve(active mcp.Universe) configfile.Format {
	switch f {
	case FormatJSON:
		return configfile.FormatJSON
	case FormatTOML:
		return configfile.FormatTOML
	}
	if active == mcp.UniverseCodex {
		return configfile.FormatTOML
	}
	return configfile.FormatJSON
}

// AddOptions controls AddServers.
type AddOptions struct {
	Format InputFormat
	// Force skips validation.
	Force bool
	// RegistryImages maps server names to registry-supplied image URLs.
	RegistryImages map[string]string
}

// AddServers extracts servers from blob and adds them to the active source.
// A name that already exists in the active partition has its config
// replaced; a name owned by the other partition is reported as a conflict.
// Invalid entries are reported and skipped unless opts.Force is set. The
// sources are synced when anything was added.
func (m *Manager) AddServers(ctx context.Context, blob string, opts AddOptions) (*AddResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.syncable(); err != nil {
		return nil, err
	}

	active := m.settings.Active()
	extracted, err := extract.Servers(ctx, blob, opts.Format.resolve(active))
	if err != nil {
		return nil, err
	}

	result := &AddResult{Invalid: map[string]string{}}
	if !opts.Force {
		result.Invalid = validator.Validate(extracted)
	} else if _, ok := extracted[""]; ok {
		result.Invalid[""] = validator.ErrMissingServerName.Error()
	}

	logger := logging.FromContext(ctx)
	now := m.now()
	for _, name := range slices.Sorted(maps.Keys(extracted)) {
		if _, bad := result.Invalid[name]; bad {
			logger.Debug("skipping invalid server", "name", name, "reason", result.Invalid[name])
			continue
		}
		cfg := extracted[name]
		image := opts.RegistryImages[name]

		i := slices.IndexFunc(m.servers, func(s *mcp.ServerModel) bool { return s.Name == name })
		if i < 0 {
			s := mcp.NewServerModel(m.newID(), name, cfg, active, now)
			s.RegistryImageURL = image
			m.servers = append(m.servers, s)
			result.Added = append(result.Added, name)
			logger.Debug("added server", "name", name, "universe", active.String())
			continue
		}

		s := m.servers[i]
		if !s.VisibleIn(active) {
			result.Conflicts = append(result.Conflicts, name)
			logger.Warn("server exists in another universe", "name", name, "universe", s.SourceUniverse().String())
			continue
		}
		s.Config = cfg
		s.UpdatedAt = now
		s.InConfigs[active] = true
		if image != "" {
			s.RegistryImageURL = image
		}
		result.Added = append(result.Added, name)
		logger.Debug("updated server", "name", name)
	}

	if len(result.Added) == 0 {
		return result, nil
	}
	mcp.SortByName(m.servers)
	return result, m.syncLocked(ctx)
}

// UpdateOptions controls UpdateServer.
type UpdateOptions struct {
	Format InputFormat
	Force  bool
}

// UpdateServer replaces the config of name with the single server decoded
// from blob and syncs.
func (m *Manager) UpdateServer(ctx context.Context, name, blob string, opts UpdateOptions) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.syncable(); err != nil {
		return err
	}
	_, s, err := m.lookup(name)
	if err != nil {
		return err
	}

	cfg, err := extract.Single(ctx, blob, opts.Format.resolve(m.settings.Active()))
	if err != nil {
		return err
	}
	if !opts.Force {
		if reason := validator.Reason(cfg); reason != "" {
			return &InvalidConfigError{Name: name, Reason: reason}
		}
	}

	s.Config = cfg
	s.UpdatedAt = m.now()
	return m.syncLocked(ctx)
}

// DeleteServer removes name from every source and the cache, along with its
// custom icon.
func (m *Manager) DeleteServer(ctx context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.syncable(); err != nil {
		return err
	}
	i, s, err := m.lookup(name)
	if err != nil {
		return err
	}

	m.servers = slices.Delete(m.servers, i, i+1)
	if s.CustomIconPath != "" {
		if err := m.icons.Remove(s.CustomIconPath); err != nil {
			logging.FromContext(ctx).Warn("could not remove custom icon", "name", name, "error", err)
		}
	}
	return m.syncLocked(ctx)
}

// ToggleServer flips the active source's membership of name, syncs, and
// returns the new state.
func (m *Manager) ToggleServer(ctx context.Context, name string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.syncable(); err != nil {
		return false, err
	}
	_, s, err := m.lookup(name)
	if err != nil {
		return false, err
	}

	active := m.settings.Active()
	s.InConfigs[active] = !s.InConfigs[active]
	s.UpdatedAt = m.now()
	return s.InConfigs[active], m.syncLocked(ctx)
}

// SetEnabled sets the active source's membership of name. It does nothing
// when the flag already has that value.
func (m *Manager) SetEnabled(ctx context.Context, name string, enabled bool) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.syncable(); err != nil {
		return false, err
	}
	_, s, err := m.lookup(name)
	if err != nil {
		return false, err
	}

	active := m.settings.Active()
	if s.InConfigs[active] == enabled {
		return false, nil
	}
	s.InConfigs[active] = enabled
	s.UpdatedAt = m.now()
	return true, m.syncLocked(ctx)
}

// ToggleAll sets the active source's membership of every server in the
// active partition and returns how many changed.
func (m *Manager) ToggleAll(ctx context.Context, enable bool) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.syncable(); err != nil {
		return 0, err
	}

	active := m.settings.Active()
	now := m.now()
	changed := 0
	for _, s := range m.servers {
		if !s.VisibleIn(active) || s.InConfigs[active] == enable {
			continue
		}
		s.InConfigs[active] = enable
		s.UpdatedAt = now
		changed++
	}
	if changed == 0 {
		return 0, nil
	}
	return changed, m.syncLocked(ctx)
}

// SetTags replaces the tags of name. Tags live only in the cache.
func (m *Manager) SetTags(name string, tags []mcp.Tag) error {
	return m.editTags(name, func([]mcp.Tag) []mcp.Tag { return tags })
}

// AddTag assigns t to name.
func (m *Manager) AddTag(name string, t mcp.Tag) error {
	if !t.Valid() {
		return errors.Wrapf(mcp.ErrUnknownTag, "%q", string(t))
	}
	return m.editTags(name, func(cur []mcp.Tag) []mcp.Tag { return append(cur, t) })
}

// RemoveTag unassigns t from name.
func (m *Manager) RemoveTag(name string, t mcp.Tag) error {
	return m.editTags(name, func(cur []mcp.Tag) []mcp.Tag {
		return slices.DeleteFunc(cur, func(x mcp.Tag) bool { return x == t })
	})
}

func (m *Manager) editTags(name string, edit func([]mcp.Tag) []mcp.Tag) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.writable(); err != nil {
		return err
	}
	_, s, err := m.lookup(name)
	if err != nil {
		return err
	}
	s.Tags = mcp.NormalizeTags(edit(slices.Clone(s.Tags)))
	s.UpdatedAt = m.now()
	return m.saveCacheLocked()
}

// SetCustomIcon stores the image at src as name's icon and returns the
// stored filename. The source files are not touched.
func (m *Manager) SetCustomIcon(ctx context.Context, name, src string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.writable(); err != nil {
		return "", err
	}
	_, s, err := m.lookup(name)
	if err != nil {
		return "", err
	}

	filename, err := m.icons.Store(src, name)
	if err != nil {
		return "", err
	}
	if old := s.CustomIconPath; old != "" && old != filename {
		if err := m.icons.Remove(old); err != nil {
			logging.FromContext(ctx).Warn("could not remove previous icon", "name", name, "error", err)
		}
	}
	s.CustomIconPath = filename
	s.UpdatedAt = m.now()
	return filename, m.saveCacheLocked()
}

// ResetCustomIcon removes name's custom icon.
func (m *Manager) ResetCustomIcon(ctx context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.writable(); err != nil {
		return err
	}
	_, s, err := m.lookup(name)
	if err != nil {
		return err
	}
	if s.CustomIconPath == "" {
		return nil
	}
	if err := m.icons.Remove(s.CustomIconPath); err != nil {
		logging.FromContext(ctx).Warn("could not remove icon", "name", name, "error", err)
	}
	s.CustomIconPath = ""
	s.UpdatedAt = m.now()
	return m.saveCacheLocked()
}

// CleanupIcons deletes stored icons that no server references, in any
// universe.
func (m *Manager) CleanupIcons() ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.loaded {
		return nil, ErrNotLoaded
	}
	used := make(map[string]bool, len(m.servers))
	for _, s := range m.servers {
		if s.CustomIconPath != "" {
			used[s.CustomIconPath] = true
		}
	}
	return m.icons.Cleanup(used)
}
