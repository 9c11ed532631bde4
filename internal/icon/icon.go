// Package icon stores user-selected custom server icons under
// paths.IconDir. Only PNG, JPEG and GIF images up to 10 MiB and 2048x2048
// pixels are accepted.
package icon

import (
	"bytes"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/thoreinstein/mcpm/internal/errors"
	"github.com/thoreinstein/mcpm/internal/paths"
	"github.com/thoreinstein/mcpm/pkg/fileutil"
)

// Limits applied by Store.
const (
	MaxFileSize  int64 = 10 << 20
	MaxDimension       = 2048

	maxNameLength = 100
	filePerm      = 0o600
)

// Sentinel errors returned by Store.
var (
	ErrFileNotFound  = errors.New("icon file not found")
	ErrFileTooLarge  = errors.New("icon file is larger than 10 MB")
	ErrImageTooLarge = errors.New("icon image is larger than 2048x2048 pixels")
	ErrInvalidImage  = errors.New("icon is not a PNG, JPEG or GIF image")
	ErrInvalidName   = errors.New("invalid icon filename")
)

var extensions = map[string]string{
	"png":  ".png",
	"jpeg": ".jpg",
	"gif":  ".gif",
}

// Store manages the icon directory.
type Store struct {
	dir string
}

// NewStore returns a Store rooted at paths.IconDir.
func NewStore() *Store {
	return &Store{dir: paths.IconDir()}
}

// NewStoreWithDir returns a Store rooted at dir.
func NewStoreWithDir(dir string) *Store {
	return &Store{dir: dir}
}

// Dir returns the icon directory.
func (s *Store) Dir() string {
	return s.dir
}

// Path returns the absolute path of a stored icon.
func (s *Store) Path(filename string) (string, error) {
	if err := checkFilename(filename); err != nil {
		return "", err
	}
	return filepath.Join(s.dir, filename), nil
}

// Store validates the image at src and copies it into the icon directory as
// <sanitized server name>.<ext>, replacing any previous file of that name.
// It returns the stored filename.
func (s *Store) Store(src, serverName string) (string, error) {
	info, err := os.Stat(src)
	if err != nil {
		if os.IsNotExist(err) {
			return "", errors.Wrapf(ErrFileNotFound, "%s", src)
		}
		return "", errors.Wrapf(err, "stat %s", src)
	}
	if info.IsDir() {
		return "", errors.Wrapf(ErrInvalidImage, "%s is a directory", src)
	}
	if info.Size() > MaxFileSize {
		return "", errors.Wrapf(ErrFileTooLarge, "%.1f MB", float64(info.Size())/(1<<20))
	}

	data, err := fileutil.ReadFileWithLimit(src, MaxFileSize)
	if err != nil {
		if errors.Is(err, fileutil.ErrFileTooLarge) {
			return "", errors.Wrap(ErrFileTooLarge, src)
		}
		return "", errors.Wrapf(err, "reading %s", src)
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return "", errors.Wrapf(ErrInvalidImage, "%s", src)
	}
	ext, ok := extensions[format]
	if !ok {
		return "", errors.Wrapf(ErrInvalidImage, "%s: format %s", src, format)
	}
	if cfg.Width > MaxDimension || cfg.Height > MaxDimension {
		return "", errors.Wrapf(ErrImageTooLarge, "%dx%d", cfg.Width, cfg.Height)
	}

	filename := SanitizeName(serverName) + ext
	if err := paths.EnsureDir(s.dir, paths.DefaultDirPerm); err != nil {
		return "", errors.Wrap(err, "creating icon directory")
	}
	if err := fileutil.AtomicWriteFile(filepath.Join(s.dir, filename), data, filePerm); err != nil {
		return "", errors.Wrap(err, "saving icon")
	}
	return filename, nil
}

// Remove deletes a stored icon. A missing file is not an error.
func (s *Store) Remove(filename string) error {
	p, err := s.Path(filename)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
		return errors.Wrapf(err, "removing icon %s", filename)
	}
	return nil
}

// Cleanup removes every file in the icon directory not named in used and
// returns the removed filenames.
func (s *Store) Cleanup(used map[string]bool) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "reading icon directory")
	}

	var removed []string
	for _, e := range entries {
		if e.IsDir() || used[e.Name()] {
			continue
		}
		if err := os.Remove(filepath.Join(s.dir, e.Name())); err != nil && !os.IsNotExist(err) {
			return removed, errors.Wrapf(err, "removing icon %s", e.Name())
		}
		removed = append(removed, e.Name())
	}
	return removed, nil
}

// SanitizeName maps a server name to a filename stem: letters, digits, '-'
// and '_' are kept, everything else becomes '_', and the result is cut to
// 100 runes.
func SanitizeName(name string) string {
	var b strings.Builder
	n := 0
	for _, r := range name {
		if n == maxNameLength {
			break
		}
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '_' {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
		n++
	}
	if b.Len() == 0 {
		return "_"
	}
	return b.String()
}

func checkFilename(filename string) error {
	if filename == "" || filename == "." || filename == ".." ||
		strings.ContainsAny(filename, `/\`) || filepath.Base(filename) != filename {
		return errors.Wrapf(ErrInvalidName, "%q", filename)
	}
	return nil
}
