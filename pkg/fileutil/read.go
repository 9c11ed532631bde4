package fileutil

import (
	"io"
	"os"

	"github.com/thoreinstein/mcpm/internal/errors"
)

// MaxFileSize bounds ReadFile. ~/.claude.json accumulates per-project history
// and routinely grows past a few megabytes.
const MaxFileSize int64 = 16 << 20

// ErrFileTooLarge indicates that a file exceeded the read limit.
var ErrFileTooLarge = errors.New("file exceeds maximum size")

// ReadFile reads path up to MaxFileSize.
func ReadFile(path string) ([]byte, error) {
	return ReadFileWithLimit(path, MaxFileSize)
}

// ReadFileWithLimit reads path, failing with ErrFileTooLarge when the file is
// larger than limit bytes. The returned error wraps the os error so callers
// can test for os.ErrNotExist.
func ReadFileWithLimit(path string, limit int64) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "opening file")
	}
	defer f.Close()

	if info, err := f.Stat(); err == nil && info.Size() > limit {
		return nil, errors.Wrapf(ErrFileTooLarge, "%s is %d bytes, limit %d", path, info.Size(), limit)
	}

	data, err := io.ReadAll(io.LimitReader(f, limit+1))
	if err != nil {
		return nil, errors.Wrap(err, "reading file")
	}
	if int64(len(data)) > limit {
		return nil, errors.Wrapf(ErrFileTooLarge, "%s exceeds limit %d", path, limit)
	}
	return data, nil
}

// ReadFileIfExists is ReadFile that reports a missing file as (nil, false, nil).
func ReadFileIfExists(path string) ([]byte, bool, error) {
	data, err := ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return data, true, nil
}
