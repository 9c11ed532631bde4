// Package config loads and saves mcpm's own settings with Viper.
package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/thoreinstein/mcpm/internal/errors"
	"github.com/thoreinstein/mcpm/internal/mcp"
	"github.com/thoreinstein/mcpm/internal/paths"
	"github.com/thoreinstein/mcpm/pkg/fileutil"
)

// EnvPrefix is prepended to environment overrides, e.g.
// MCPM_ACTIVE_CONFIG_INDEX=2.
const EnvPrefix = "MCPM"

// Setting keys.
const (
	KeyConfirmDelete     = "confirm_delete"
	KeyConfigPaths       = "config_paths"
	KeyActiveConfigIndex = "active_config_index"
)

const filePerm = 0o600

// Settings is the persisted preference record.
type Settings struct {
	ConfirmDelete bool `mapstructure:"confirm_delete" yaml:"confirm_delete"`
	// ConfigPaths holds the Claude, Gemini and Codex file paths in that
	// order. An empty entry disables that source.
	ConfigPaths       []string `mapstructure:"config_paths" yaml:"config_paths"`
	ActiveConfigIndex int      `mapstructure:"active_config_index" yaml:"active_config_index"`
}

// Default returns the settings used when no file exists.
func Default() *Settings {
	p := paths.DefaultSourcePaths()
	return &Settings{
		ConfirmDelete:     true,
		ConfigPaths:       p[:],
		ActiveConfigIndex: 0,
	}
}

// Active returns the active universe.
func (s *Settings) Active() mcp.Universe {
	return mcp.Universe(clampIndex(s.ActiveConfigIndex))
}

// Path returns the expanded file path for u, or "" when the source is
// disabled.
func (s *Settings) Path(u mcp.Universe) string {
	if !u.Valid() || int(u) >= len(s.ConfigPaths) {
		return ""
	}
	p := strings.TrimSpace(s.ConfigPaths[u])
	if p == "" {
		return ""
	}
	if expanded, err := paths.ExpandHome(p); err == nil {
		return expanded
	}
	return p
}

// SourcePaths returns Path for every universe.
func (s *Settings) SourcePaths() [mcp.NumUniverses]string {
	var out [mcp.NumUniverses]string
	for _, u := range mcp.Universes() {
		out[u] = s.Path(u)
	}
	return out
}

// Clone returns a deep copy.
func (s *Settings) Clone() *Settings {
	out := *s
	out.ConfigPaths = append([]string(nil), s.ConfigPaths...)
	return &out
}

// normalize pads or truncates ConfigPaths to three entries and clamps the
// active index to a known universe.
func (s *Settings) normalize() {
	p := make([]string, mcp.NumUniverses)
	copy(p, s.ConfigPaths)
	s.ConfigPaths = p
	s.ActiveConfigIndex = clampIndex(s.ActiveConfigIndex)
}

func clampIndex(i int) int {
	return max(0, min(i, mcp.NumUniverses-1))
}

// Store reads and writes one settings file through its own Viper instance.
type Store struct {
	v    *viper.Viper
	path string
}

// NewStore returns a Store for path, or for paths.SettingsFile when path is
// empty. An explicit path must exist when Load is called.
func NewStore(path string) *Store {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	def := Default()
	v.SetDefault(KeyConfirmDelete, def.ConfirmDelete)
	v.SetDefault(KeyConfigPaths, def.ConfigPaths)
	v.SetDefault(KeyActiveConfigIndex, def.ActiveConfigIndex)

	s := &Store{v: v, path: path}
	if path == "" {
		s.path = paths.SettingsFile()
		v.SetConfigFile(s.path)
	} else {
		v.SetConfigFile(path)
	}
	return s
}

// Path returns the settings file location.
func (s *Store) Path() string {
	return s.path
}

// Viper exposes the underlying instance for key lookups.
func (s *Store) Viper() *viper.Viper {
	return s.v
}

// Load reads the settings file and applies environment overrides. The
// default location may be missing, an explicit one may not.
func (s *Store) Load(explicit bool) (*Settings, error) {
	if err := s.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		missing := errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist)
		switch {
		case missing && explicit:
			return nil, errors.Wrapf(err, "config file not found at %s", s.path)
		case !missing:
			return nil, errors.Wrap(err, "reading config file")
		}
	}

	var cfg Settings
	if err := s.v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "unmarshaling config")
	}
	if errs := Validate(&cfg); len(errs) > 0 {
		return nil, errors.Wrap(errs[0], "validating config")
	}
	cfg.normalize()
	return &cfg, nil
}

// Save writes cfg to the settings file atomically.
func (s *Store) Save(cfg *Settings) error {
	out := cfg.Clone()
	out.normalize()
	if err := paths.EnsureDir(filepath.Dir(s.path), paths.DefaultDirPerm); err != nil {
		return errors.Wrap(err, "creating config directory")
	}
	if err := fileutil.AtomicWriteYAML(s.path, out, filePerm); err != nil {
		return errors.Wrap(err, "writing config file")
	}
	s.v.Set(KeyConfirmDelete, out.ConfirmDelete)
	s.v.Set(KeyConfigPaths, out.ConfigPaths)
	s.v.Set(KeyActiveConfigIndex, out.ActiveConfigIndex)
	return nil
}
