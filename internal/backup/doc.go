// Package backup snapshots MCP config files before mcpm overwrites them.
//
// Each snapshot is a timestamped directory holding copies of the files and a
// manifest with their original path, size, mode and SHA256 hash:
//
//	<DataHome>/mcpm/backups/
//	└── {source}/
//	    └── {timestamp}/
//	        ├── manifest.json
//	        └── {copied files...}
//
// [Manager.Backup] creates a snapshot and prunes the source down to the
// retention count (five by default). [Manager.Restore] verifies every hash
// before writing anything back, returning [ErrBackupCorrupted] on mismatch.
//
// [Session] wraps a Manager so that a run writing the same file more than
// once snapshots it only before the first write.
package backup
