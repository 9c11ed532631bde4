package paths

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/thoreinstein/mcpm/internal/errors"
)

func TestHome(t *testing.T) {
	want, err := os.UserHomeDir()
	if err != nil {
		t.Skipf("no home directory: %v", err)
	}
	if got := Home(); got != want {
		t.Errorf("Home() = %q, want %q", got, want)
	}
}

func TestExpandHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"", "", false},
		{"~", home, false},
		{"~/.claude.json", filepath.Join(home, ".claude.json"), false},
		{"  ~/.codex/config.toml ", filepath.Join(home, ".codex", "config.toml"), false},
		{"/etc/mcp.json", "/etc/mcp.json", false},
		{"relative/./mcp.json", filepath.Join("relative", "mcp.json"), false},
		{"~other/mcp.json", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ExpandHome(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ExpandHome(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidPath) {
					t.Errorf("error = %v, want ErrInvalidPath", err)
				}
				return
			}
			if got != tt.want {
				t.Errorf("ExpandHome(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestDefaultSourcePaths(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	got := DefaultSourcePaths()
	want := [3]string{
		filepath.Join(home, ".claude.json"),
		filepath.Join(home, ".gemini", "settings.json"),
		filepath.Join(home, ".codex", "config.toml"),
	}
	if got != want {
		t.Errorf("DefaultSourcePaths() = %v, want %v", got, want)
	}
}

func TestDirs_HomeOverride(t *testing.T) {
	root := t.TempDir()
	t.Setenv(HomeEnv, root)

	tests := []struct {
		name string
		got  string
		want string
	}{
		{"ConfigDir", ConfigDir(), filepath.Join(root, "config")},
		{"DataDir", DataDir(), filepath.Join(root, "data")},
		{"CacheDir", CacheDir(), filepath.Join(root, "cache")},
		{"SettingsFile", SettingsFile(), filepath.Join(root, "config", "config.yaml")},
		{"ServerCacheFile", ServerCacheFile(), filepath.Join(root, "data", "servers.json")},
		{"BackupDir", BackupDir(), filepath.Join(root, "data", "backups")},
		{"IconDir", IconDir(), filepath.Join(root, "data", "icons")},
	}

	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s() = %q, want %q", tt.name, tt.got, tt.want)
		}
	}
}

func TestDirs_XDG(t *testing.T) {
	t.Setenv(HomeEnv, "")

	for name, dir := range map[string]string{
		"ConfigDir": ConfigDir(),
		"DataDir":   DataDir(),
		"CacheDir":  CacheDir(),
	} {
		if !filepath.IsAbs(dir) {
			t.Errorf("%s() = %q, want absolute path", name, dir)
		}
		if filepath.Base(dir) != AppName {
			t.Errorf("%s() = %q, want it to end in %s", name, dir, AppName)
		}
	}
}

func TestEnsureDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b")

	if err := EnsureDir(dir, 0); err != nil {
		t.Fatalf("EnsureDir() error = %v", err)
	}
	info, err := os.Stat(dir)
	if err != nil {
		t.Fatal(err)
	}
	if !info.IsDir() {
		t.Error("expected a directory")
	}
	if err := EnsureDir(dir, 0); err != nil {
		t.Errorf("EnsureDir() on existing dir error = %v", err)
	}
}
