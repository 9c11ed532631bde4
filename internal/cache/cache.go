// Package cache persists the last merged server list. It is the only place
// tags, custom icons and source universes survive between runs.
package cache

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/thoreinstein/mcpm/internal/errors"
	"github.com/thoreinstein/mcpm/internal/logging"
	"github.com/thoreinstein/mcpm/internal/mcp"
	"github.com/thoreinstein/mcpm/internal/paths"
	"github.com/thoreinstein/mcpm/pkg/fileutil"
)

// SchemaVersion is the current cache file schema version.
const SchemaVersion = 1

const filePerm = 0o600

// ErrCorrupt is returned when the cache file exists but cannot be decoded.
var ErrCorrupt = errors.New("server cache is corrupt")

// ErrNewerVersion is returned for a cache written by a newer mcpm.
var ErrNewerVersion = errors.New("server cache was written by a newer version")

// File is the on-disk structure.
type File struct {
	Version int                `json:"version"`
	Servers []*mcp.ServerModel `json:"servers"`
}

type rawFile struct {
	Version int               `json:"version"`
	Servers []json.RawMessage `json:"servers"`
}

// Store provides synchronized access to the cache file.
type Store struct {
	path string
	mu   sync.RWMutex
}

// NewStore creates a Store at paths.ServerCacheFile.
func NewStore() *Store {
	return &Store{path: paths.ServerCacheFile()}
}

// NewStoreWithPath creates a Store at the given path.
func NewStoreWithPath(path string) *Store {
	return &Store{path: path}
}

// Path returns the cache file location.
func (s *Store) Path() string {
	return s.path
}

// Load returns the cached servers sorted by name. A missing file yields an
// empty list. Entries that fail to decode are skipped with a warning; a file
// that is not a cache document at all returns ErrCorrupt.
//
// Files holding a bare array of servers, as older releases wrote them, are
// accepted.
func (s *Store) Load(ctx context.Context) ([]*mcp.ServerModel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, ok, err := fileutil.ReadFileIfExists(s.path)
	if err != nil {
		return nil, errors.Wrap(err, "reading server cache")
	}
	if !ok || len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}

	raw, err := decodeRaw(data)
	if err != nil {
		return nil, errors.Wrapf(ErrCorrupt, "%s: %v", s.path, err)
	}
	if raw.Version > SchemaVersion {
		return nil, errors.Wrapf(ErrNewerVersion, "%s: version %d", s.path, raw.Version)
	}

	logger := logging.FromContext(ctx)
	servers := make([]*mcp.ServerModel, 0, len(raw.Servers))
	seen := make(map[string]bool, len(raw.Servers))
	for i, entry := range raw.Servers {
		var m mcp.ServerModel
		if err := json.Unmarshal(entry, &m); err != nil {
			logger.Warn("skipping cache entry", "index", i, "error", err)
			continue
		}
		if seen[m.Name] {
			logger.Warn("skipping duplicate cache entry", "name", m.Name)
			continue
		}
		seen[m.Name] = true
		servers = append(servers, &m)
	}
	mcp.SortByName(servers)
	return servers, nil
}

func decodeRaw(data []byte) (rawFile, error) {
	var raw rawFile
	if bytes.HasPrefix(bytes.TrimSpace(data), []byte("[")) {
		err := json.Unmarshal(data, &raw.Servers)
		return raw, err
	}
	err := json.Unmarshal(data, &raw)
	return raw, err
}

// Save atomically replaces the cache file with servers.
func (s *Store) Save(servers []*mcp.ServerModel) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.path == "" {
		return errors.New("cache path not configured")
	}
	if servers == nil {
		servers = []*mcp.ServerModel{}
	}
	if err := paths.EnsureDir(filepath.Dir(s.path), paths.DefaultDirPerm); err != nil {
		return errors.Wrap(err, "creating cache directory")
	}
	if err := fileutil.AtomicWriteJSON(s.path, File{Version: SchemaVersion, Servers: servers}, filePerm); err != nil {
		return errors.Wrap(err, "writing server cache")
	}
	return nil
}

// Quarantine moves an unreadable cache file aside so a fresh one can be
// written, and returns the new location.
func (s *Store) Quarantine(now time.Time) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	dest := s.path + ".corrupt-" + now.UTC().Format("20060102T150405Z")
	if err := os.Rename(s.path, dest); err != nil {
		return "", errors.Wrap(err, "moving corrupt cache aside")
	}
	return dest, nil
}
