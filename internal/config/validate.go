package config

import (
	"path/filepath"
	"strconv"
	"strings"

	"github.com/thoreinstein/mcpm/internal/errors"
	"github.com/thoreinstein/mcpm/internal/mcp"
	"github.com/thoreinstein/mcpm/internal/paths"
)

// Validation errors for settings fields.
var (
	// ErrTooManyPaths indicates more than one path per universe.
	ErrTooManyPaths = errors.New("at most three config paths are allowed")

	// ErrInvalidPath indicates a path value is malformed.
	ErrInvalidPath = errors.New("invalid path")

	// ErrDuplicatePath indicates two universes point at the same file.
	ErrDuplicatePath = errors.New("config path used by more than one source")

	// ErrUnknownKey indicates a key that Set does not understand.
	ErrUnknownKey = errors.New("unknown setting")
)

// Validate checks cfg and returns every problem found. An out-of-range
// active index is not an error; it is clamped on load.
func Validate(cfg *Settings) []error {
	if cfg == nil {
		return []error{errors.New("config is nil")}
	}

	var errs []error
	if len(cfg.ConfigPaths) > mcp.NumUniverses {
		errs = append(errs, ErrTooManyPaths)
	}

	seen := make(map[string]mcp.Universe)
	for i, p := range cfg.ConfigPaths {
		if i >= mcp.NumUniverses {
			break
		}
		u := mcp.Universe(i)
		if err := validatePath(p); err != nil {
			errs = append(errs, &PathError{Universe: u, Path: p, Err: err})
			continue
		}
		if strings.TrimSpace(p) == "" {
			continue
		}
		key := cfg.Path(u)
		if prev, ok := seen[key]; ok {
			errs = append(errs, &PathError{Universe: u, Path: p, Err: errors.Wrapf(ErrDuplicatePath, "also %s", prev)})
			continue
		}
		seen[key] = u
	}
	return errs
}

// validatePath checks that a path is well formed. It does not check that the
// file exists.
func validatePath(path string) error {
	if strings.TrimSpace(path) == "" {
		return nil
	}
	if strings.ContainsRune(path, '\x00') {
		return ErrInvalidPath
	}
	if _, err := paths.ExpandHome(path); err != nil {
		return ErrInvalidPath
	}
	if cleaned := filepath.Clean(path); cleaned == "." || cleaned == string(filepath.Separator) {
		return ErrInvalidPath
	}
	return nil
}

// PathError reports a bad path for one universe.
type PathError struct {
	Universe mcp.Universe
	Path     string
	Err      error
}

func (e *PathError) Error() string {
	return e.Universe.String() + " config path: " + e.Err.Error() + ": " + e.Path
}

func (e *PathError) Unwrap() error {
	return e.Err
}

// Set applies one "key=value" style change to cfg. Recognized keys are
// confirm_delete, active_config_index (index or universe name) and
// config_paths.<index or universe name>.
func Set(cfg *Settings, key, value string) error {
	key = strings.ToLower(strings.TrimSpace(key))
	switch {
	case key == KeyConfirmDelete:
		b, err := strconv.ParseBool(strings.TrimSpace(value))
		if err != nil {
			return errors.Wrapf(err, "%s", key)
		}
		cfg.ConfirmDelete = b
	case key == KeyActiveConfigIndex:
		u, err := mcp.ParseUniverse(value)
		if err != nil {
			return err
		}
		cfg.ActiveConfigIndex = int(u)
	case strings.HasPrefix(key, KeyConfigPaths+"."):
		u, err := mcp.ParseUniverse(strings.TrimPrefix(key, KeyConfigPaths+"."))
		if err != nil {
			return err
		}
		if err := validatePath(value); err != nil {
			return &PathError{Universe: u, Path: value, Err: err}
		}
		cfg.normalize()
		cfg.ConfigPaths[u] = strings.TrimSpace(value)
	default:
		return errors.Wrapf(ErrUnknownKey, "%q", key)
	}
	if errs := Validate(cfg); len(errs) > 0 {
		return errs[0]
	}
	return nil
}

// Get returns the string form of one setting.
func Get(cfg *Settings, key string) (string, error) {
	key = strings.ToLower(strings.TrimSpace(key))
	switch {
	case key == KeyConfirmDelete:
		return strconv.FormatBool(cfg.ConfirmDelete), nil
	case key == KeyActiveConfigIndex:
		return strconv.Itoa(cfg.ActiveConfigIndex), nil
	case strings.HasPrefix(key, KeyConfigPaths+"."):
		u, err := mcp.ParseUniverse(strings.TrimPrefix(key, KeyConfigPaths+"."))
		if err != nil {
			return "", err
		}
		if int(u) >= len(cfg.ConfigPaths) {
			return "", nil
		}
		return cfg.ConfigPaths[u], nil
	default:
		return "", errors.Wrapf(ErrUnknownKey, "%q", key)
	}
}
