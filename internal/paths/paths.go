package paths

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
	"github.com/cockroachdb/errors"
)

// AppName is the directory name used under the XDG base directories.
const AppName = "mcpm"

// HomeEnv overrides every mcpm directory when set. Config, data and cache
// then live in <MCPM_HOME>/config, <MCPM_HOME>/data and <MCPM_HOME>/cache.
const HomeEnv = "MCPM_HOME"

// Sentinel errors for path resolution.
var (
	// ErrHomeDirNotFound indicates the user's home directory could not be determined.
	ErrHomeDirNotFound = errors.New("home directory not found")

	// ErrInvalidPath indicates the provided path is malformed or invalid.
	ErrInvalidPath = errors.New("invalid path")
)

// DefaultDirPerm is the default permission for newly created directories (private).
const DefaultDirPerm = 0o700

// defaultSources are the three config files, relative to the home
// directory, in universe order: Claude, Gemini, Codex.
var defaultSources = [3]string{
	".claude.json",
	filepath.Join(".gemini", "settings.json"),
	filepath.Join(".codex", "config.toml"),
}

// EnsureDir creates the directory and any necessary parents with specified permissions.
// If perm is 0, DefaultDirPerm (0700) is used.
func EnsureDir(path string, perm os.FileMode) error {
	if perm == 0 {
		perm = DefaultDirPerm
	}
	return os.MkdirAll(path, perm)
}

// Home returns the user's home directory, or "" when it cannot be resolved.
// Use ResolveHome for proper error handling.
func Home() string {
	h, _ := ResolveHome()
	return h
}

// ResolveHome returns the user's home directory.
// Returns ErrHomeDirNotFound if the directory cannot be determined.
func ResolveHome() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.Wrap(ErrHomeDirNotFound, err.Error())
	}
	return home, nil
}

// ExpandHome replaces a leading "~" or "~/" with the home directory.
// Other paths are returned cleaned but otherwise untouched.
func ExpandHome(path string) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return "", nil
	}
	if path != "~" && !strings.HasPrefix(path, "~/") && !strings.HasPrefix(path, `~\`) {
		if strings.HasPrefix(path, "~") {
			// ~user is not supported
			return "", errors.Wrapf(ErrInvalidPath, "%q", path)
		}
		return filepath.Clean(path), nil
	}
	home, err := ResolveHome()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, path[1:]), nil
}

// DefaultSourcePaths returns the default config file locations for the
// Claude, Gemini and Codex universes in that order.
func DefaultSourcePaths() [3]string {
	var out [3]string
	home := Home()
	for i, rel := range defaultSources {
		if home == "" {
			out[i] = filepath.Join("~", rel)
			continue
		}
		out[i] = filepath.Join(home, rel)
	}
	return out
}

func override(sub string) string {
	if root := os.Getenv(HomeEnv); root != "" {
		return filepath.Join(root, sub)
	}
	return ""
}

// ConfigDir returns <ConfigHome>/mcpm. On Linux this is ~/.config/mcpm.
func ConfigDir() string {
	if dir := override("config"); dir != "" {
		return dir
	}
	return filepath.Join(xdg.ConfigHome, AppName)
}

// DataDir returns <DataHome>/mcpm. On Linux this is ~/.local/share/mcpm.
func DataDir() string {
	if dir := override("data"); dir != "" {
		return dir
	}
	return filepath.Join(xdg.DataHome, AppName)
}

// CacheDir returns <CacheHome>/mcpm. On Linux this is ~/.cache/mcpm.
func CacheDir() string {
	if dir := override("cache"); dir != "" {
		return dir
	}
	return filepath.Join(xdg.CacheHome, AppName)
}

// SettingsFile is the viper-managed settings file.
func SettingsFile() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

// ServerCacheFile is the persisted merge result.
func ServerCacheFile() string {
	return filepath.Join(DataDir(), "servers.json")
}

// BackupDir holds snapshots of source files taken before write-back.
func BackupDir() string {
	return filepath.Join(DataDir(), "backups")
}

// IconDir holds user-selected custom icons.
func IconDir() string {
	return filepath.Join(DataDir(), "icons")
}
