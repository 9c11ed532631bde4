package backup

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/thoreinstein/mcpm/internal/errors"
	"github.com/thoreinstein/mcpm/internal/paths"
	"github.com/thoreinstein/mcpm/pkg/fileutil"
)

// Version is recorded in every manifest. The CLI sets it from the build.
var Version = "dev"

const idLayout = "20060102T150405"

// Manager creates, lists, prunes and restores snapshots.
type Manager struct {
	rootDir        string
	retentionCount int
	now            func() time.Time
}

// Option configures a Manager.
type Option func(*Manager)

// WithBackupDir sets the root backup directory.
func WithBackupDir(dir string) Option {
	return func(m *Manager) {
		m.rootDir = dir
	}
}

// WithRetentionCount sets the number of snapshots kept per source.
func WithRetentionCount(n int) Option {
	return func(m *Manager) {
		if n > 0 {
			m.retentionCount = n
		}
	}
}

// WithClock sets the time source used for snapshot IDs.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// NewManager creates a Manager rooted at paths.BackupDir.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		rootDir:        paths.BackupDir(),
		retentionCount: DefaultRetentionCount,
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// RootDir returns the directory snapshots are stored under.
func (m *Manager) RootDir() string {
	return m.rootDir
}

// Backup copies the files at filePaths into a new snapshot for source and
// prunes older snapshots beyond the retention count. Paths that do not exist
// are skipped; ErrNothingToBackUp is returned when none exist.
func (m *Manager) Backup(source string, filePaths []string) (*Manifest, error) {
	if source == "" {
		return nil, errors.New("source is required")
	}

	var existing []string
	for _, p := range filePaths {
		expanded, err := paths.ExpandHome(p)
		if err != nil {
			return nil, err
		}
		info, err := os.Stat(expanded)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, errors.Wrapf(err, "stat %s", p)
		}
		if info.IsDir() {
			return nil, errors.Newf("%s is a directory", p)
		}
		existing = append(existing, expanded)
	}
	if len(existing) == 0 {
		return nil, ErrNothingToBackUp
	}

	created := m.now()
	id, dir, err := m.reserve(source, created)
	if err != nil {
		return nil, err
	}

	files := make([]File, 0, len(existing))
	for _, src := range existing {
		f, err := backupFile(src, dir)
		if err != nil {
			_ = os.RemoveAll(dir)
			return nil, errors.Wrapf(err, "backing up %s", src)
		}
		files = append(files, *f)
	}

	manifest := &Manifest{
		Version:     ManifestVersion,
		CreatedAt:   created.UTC(),
		Source:      source,
		Files:       files,
		MCPMVersion: Version,
		ID:          id,
	}
	if err := fileutil.AtomicWriteJSON(filepath.Join(dir, manifestName), manifest, 0o600); err != nil {
		_ = os.RemoveAll(dir)
		return nil, errors.Wrap(err, "writing manifest")
	}

	if err := m.Prune(source, m.retentionCount); err != nil {
		return manifest, errors.Wrap(err, "pruning old backups")
	}
	return manifest, nil
}

// reserve creates a fresh snapshot directory. Snapshots taken within the same
// second get a numeric suffix.
func (m *Manager) reserve(source string, created time.Time) (string, string, error) {
	sourceDir := filepath.Join(m.rootDir, source)
	if err := paths.EnsureDir(sourceDir, paths.DefaultDirPerm); err != nil {
		return "", "", errors.Wrap(err, "creating backup directory")
	}

	base := created.UTC().Format(idLayout)
	for n := 0; n < 100; n++ {
		id := base
		if n > 0 {
			id = base + "-" + strconv.Itoa(n)
		}
		dir := filepath.Join(sourceDir, id)
		err := os.Mkdir(dir, paths.DefaultDirPerm)
		if err == nil {
			return id, dir, nil
		}
		if !os.IsExist(err) {
			return "", "", errors.Wrap(err, "creating backup directory")
		}
	}
	return "", "", errors.Newf("too many backups for %s at %s", source, base)
}

func backupFile(src, dir string) (*File, error) {
	rel := relPath(src)
	dst := filepath.Join(dir, rel)
	if err := paths.EnsureDir(filepath.Dir(dst), paths.DefaultDirPerm); err != nil {
		return nil, errors.Wrap(err, "creating parent directory")
	}

	hash, size, mode, err := copyFile(src, dst)
	if err != nil {
		return nil, err
	}
	return &File{
		OriginalPath: src,
		RelPath:      rel,
		Size:         size,
		SHA256Hash:   hash,
		Mode:         mode,
	}, nil
}

// Restore writes every file of the snapshot back to its original path after
// verifying its hash.
func (m *Manager) Restore(source, id string) (*Manifest, error) {
	manifest, err := m.Get(source, id)
	if err != nil {
		return nil, err
	}
	dir := filepath.Join(m.rootDir, source, id)

	// Verify everything before touching any original.
	contents := make([][]byte, len(manifest.Files))
	for i, f := range manifest.Files {
		data, err := fileutil.ReadFile(filepath.Join(dir, f.RelPath))
		if err != nil {
			return nil, errors.Wrapf(err, "reading backup file %s", f.RelPath)
		}
		sum := sha256.Sum256(data)
		if hex.EncodeToString(sum[:]) != f.SHA256Hash {
			return nil, errors.Wrapf(ErrBackupCorrupted, "file %s hash mismatch", f.RelPath)
		}
		contents[i] = data
	}

	for i, f := range manifest.Files {
		if err := paths.EnsureDir(filepath.Dir(f.OriginalPath), paths.DefaultDirPerm); err != nil {
			return nil, errors.Wrapf(err, "creating directory for %s", f.OriginalPath)
		}
		if err := fileutil.AtomicWriteFile(f.OriginalPath, contents[i], f.Mode.Perm()); err != nil {
			return nil, errors.Wrapf(err, "restoring %s", f.OriginalPath)
		}
	}
	return manifest, nil
}

// Latest returns the newest snapshot for source.
func (m *Manager) Latest(source string) (*Manifest, error) {
	manifests, err := m.List(source)
	if err != nil {
		return nil, err
	}
	return &manifests[0], nil
}

// List returns the snapshots for source, newest first. Directories without
// a readable manifest are ignored.
func (m *Manager) List(source string) ([]Manifest, error) {
	if source == "" {
		return nil, errors.New("source is required")
	}

	entries, err := os.ReadDir(filepath.Join(m.rootDir, source))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNoBackupsFound
		}
		return nil, errors.Wrap(err, "reading backup directory")
	}

	manifests := make([]Manifest, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		manifest, err := m.Get(source, entry.Name())
		if err != nil {
			continue
		}
		manifests = append(manifests, *manifest)
	}
	if len(manifests) == 0 {
		return nil, ErrNoBackupsFound
	}

	slices.SortFunc(manifests, func(a, b Manifest) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return compareIDs(b.ID, a.ID)
	})
	return manifests, nil
}

// compareIDs orders IDs of the same second by their numeric suffix.
func compareIDs(a, b string) int {
	if len(a) != len(b) {
		return len(a) - len(b)
	}
	return strings.Compare(a, b)
}

// Prune removes all but the newest keep snapshots for source.
func (m *Manager) Prune(source string, keep int) error {
	if keep < 0 {
		return errors.New("keep must be non-negative")
	}

	manifests, err := m.List(source)
	if err != nil {
		if errors.Is(err, ErrNoBackupsFound) {
			return nil
		}
		return err
	}

	for _, old := range manifests[min(keep, len(manifests)):] {
		if err := os.RemoveAll(filepath.Join(m.rootDir, source, old.ID)); err != nil {
			return errors.Wrapf(err, "removing backup %s", old.ID)
		}
	}
	return nil
}

// Get loads the manifest of one snapshot.
func (m *Manager) Get(source, id string) (*Manifest, error) {
	if source == "" {
		return nil, errors.New("source is required")
	}
	if id == "" || strings.ContainsAny(id, `/\`) || id == "." || id == ".." {
		return nil, errors.Newf("invalid backup ID %q", id)
	}

	data, err := fileutil.ReadFile(filepath.Join(m.rootDir, source, id, manifestName))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, errors.Wrapf(ErrNoBackupsFound, "backup %s not found", id)
		}
		return nil, errors.Wrap(err, "reading manifest")
	}

	var manifest Manifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil, errors.Wrap(err, "parsing manifest")
	}
	if manifest.Version > ManifestVersion {
		return nil, errors.Newf("backup %s: unsupported manifest version %d", id, manifest.Version)
	}
	manifest.ID = id
	return &manifest, nil
}

// copyFile copies src to dst with src's permissions and returns the SHA256
// hash, size and mode of the copied content.
func copyFile(src, dst string) (hash string, size int64, mode fs.FileMode, err error) {
	in, err := os.Open(src)
	if err != nil {
		return "", 0, 0, errors.Wrap(err, "opening source file")
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return "", 0, 0, errors.Wrap(err, "stat source file")
	}
	mode = info.Mode().Perm()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return "", 0, 0, errors.Wrap(err, "creating destination file")
	}

	h := sha256.New()
	size, err = io.Copy(io.MultiWriter(out, h), in)
	if err != nil {
		_ = out.Close()
		return "", 0, 0, errors.Wrap(err, "copying file")
	}
	if err := out.Close(); err != nil {
		return "", 0, 0, errors.Wrap(err, "closing destination file")
	}
	if err := os.Chmod(dst, mode); err != nil {
		return "", 0, 0, errors.Wrap(err, "setting permissions")
	}
	return hex.EncodeToString(h.Sum(nil)), size, mode, nil
}

// relPath maps an absolute path to a location inside a snapshot directory.
// Colons are dropped so Windows volume names stay valid path elements.
func relPath(abs string) string {
	clean := filepath.Clean(abs)
	clean = strings.TrimLeft(clean, `/\`)
	return strings.ReplaceAll(clean, ":", "")
}
