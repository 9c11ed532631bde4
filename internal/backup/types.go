package backup

import (
	"io/fs"
	"time"

	"github.com/thoreinstein/mcpm/internal/errors"
)

// ManifestVersion is the manifest format version.
const ManifestVersion = 1

// DefaultRetentionCount is the number of snapshots kept per source.
const DefaultRetentionCount = 5

const manifestName = "manifest.json"

// Sentinel errors for backup operations.
var (
	// ErrNoBackupsFound indicates no snapshots exist for the source.
	ErrNoBackupsFound = errors.New("no backups found")

	// ErrBackupCorrupted indicates a snapshot file no longer matches the
	// hash recorded in its manifest.
	ErrBackupCorrupted = errors.New("backup corrupted")

	// ErrNothingToBackUp indicates none of the given paths exist.
	ErrNothingToBackUp = errors.New("no files to back up")
)

// Manifest describes one snapshot. It is stored as manifest.json in the
// snapshot directory.
type Manifest struct {
	Version   int       `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	// Source is the universe name the files belong to.
	Source      string `json:"source"`
	Files       []File `json:"files"`
	MCPMVersion string `json:"mcpm_version"`

	// ID is the snapshot directory name. It is filled in on load.
	ID string `json:"-"`
}

// File records one copied file.
type File struct {
	OriginalPath string      `json:"original_path"`
	RelPath      string      `json:"rel_path"`
	Size         int64       `json:"size"`
	SHA256Hash   string      `json:"sha256_hash"`
	Mode         fs.FileMode `json:"mode"`
}
