package fileutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/thoreinstein/mcpm/internal/errors"
)

func TestReadFileWithLimit(t *testing.T) {
	dir := t.TempDir()
	const limit = 1024

	tests := []struct {
		name    string
		size    int64
		wantErr bool
	}{
		{"small file", 100, false},
		{"exact limit", limit, false},
		{"too large", limit + 1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.name)
			f, err := os.Create(path)
			if err != nil {
				t.Fatal(err)
			}
			if err := f.Truncate(tt.size); err != nil {
				t.Fatal(err)
			}
			f.Close()

			data, err := ReadFileWithLimit(path, limit)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ReadFileWithLimit() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				if !errors.Is(err, ErrFileTooLarge) {
					t.Errorf("expected ErrFileTooLarge, got %v", err)
				}
				return
			}
			if int64(len(data)) != tt.size {
				t.Errorf("read %d bytes, want %d", len(data), tt.size)
			}
		})
	}
}

func TestReadFile_Missing(t *testing.T) {
	_, err := ReadFile(filepath.Join(t.TempDir(), "missing.json"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("ReadFile() error = %v, want os.ErrNotExist", err)
	}
}

func TestReadFileIfExists(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "present.toml")
	if err := os.WriteFile(path, []byte("x = 1\n"), 0600); err != nil {
		t.Fatal(err)
	}

	data, ok, err := ReadFileIfExists(path)
	if err != nil || !ok || string(data) != "x = 1\n" {
		t.Errorf("ReadFileIfExists(present) = %q, %v, %v", data, ok, err)
	}

	data, ok, err = ReadFileIfExists(filepath.Join(dir, "absent.toml"))
	if err != nil || ok || data != nil {
		t.Errorf("ReadFileIfExists(absent) = %q, %v, %v", data, ok, err)
	}
}
