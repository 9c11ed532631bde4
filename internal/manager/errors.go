package manager

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/thoreinstein/mcpm/internal/errors"
	"github.com/thoreinstein/mcpm/internal/mcp"
)

// Sentinel errors returned by Manager.
var (
	// ErrLoadFailed wraps a source read failure. The manager then serves the
	// cached list and refuses to write back until a later Load succeeds.
	ErrLoadFailed = errors.New("failed to load config")

	// ErrNotLoaded is returned by mutations issued before a successful Load.
	ErrNotLoaded = errors.New("servers have not been loaded")
)

// LoadError reports which source could not be read.
type LoadError struct {
	Universe mcp.Universe
	Path     string
	Err      error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("%s: %s config %s: %v", ErrLoadFailed, e.Universe, e.Path, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// Is matches ErrLoadFailed.
func (e *LoadError) Is(target error) bool {
	return target == ErrLoadFailed
}

// SyncError reports the source whose write failed. Sources after it were not
// attempted.
type SyncError struct {
	Universe mcp.Universe
	Path     string
	Err      error
}

func (e *SyncError) Error() string {
	return fmt.Sprintf("writing %s config %s: %v", e.Universe, e.Path, e.Err)
}

func (e *SyncError) Unwrap() error {
	return e.Err
}

// PartitionError is returned by writes while a name is listed on both sides
// of the Codex boundary. Writing back would put one side's config into the
// other side's file.
type PartitionError struct {
	// Names lists the affected servers, sorted.
	Names []string
}

func (e *PartitionError) Error() string {
	return fmt.Sprintf("%s: %s listed by both codex and claude/gemini; rename or remove one entry",
		errors.ErrUniverseMismatch, strings.Join(e.Names, ", "))
}

func (e *PartitionError) Unwrap() error {
	return errors.ErrUniverseMismatch
}

// InvalidConfigError is returned when an edit is rejected by validation.
type InvalidConfigError struct {
	Name   string
	Reason string
}

func (e *InvalidConfigError) Error() string {
	return fmt.Sprintf("invalid config for %q: %s", e.Name, e.Reason)
}

func (e *InvalidConfigError) Unwrap() error {
	return errors.ErrInvalidConfig
}

// AddResult reports what AddServers did with each extracted name.
type AddResult struct {
	// Added lists created or updated names, sorted.
	Added []string
	// Invalid maps rejected names to the validation reason.
	Invalid map[string]string
	// Conflicts lists names that already exist in the other universe
	// partition and were left alone.
	Conflicts []string
}

// Summary is a one-line description for CLI output.
func (r *AddResult) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "added %d server(s)", len(r.Added))
	if n := len(r.Invalid); n > 0 {
		fmt.Fprintf(&b, ", skipped %d invalid (%s)", n, strings.Join(slices.Sorted(maps.Keys(r.Invalid)), ", "))
	}
	if n := len(r.Conflicts); n > 0 {
		fmt.Fprintf(&b, ", %d in another universe (%s)", n, strings.Join(r.Conflicts, ", "))
	}
	return b.String()
}
