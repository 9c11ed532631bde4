package configfile

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thoreinstein/mcpm/internal/errors"
	"github.com/thoreinstein/mcpm/internal/logging"
	"github.com/thoreinstein/mcpm/internal/mcp"
)

func testContext(t *testing.T) context.Context {
	t.Helper()
	return logging.NewContext(context.Background(), logging.ForTest(t))
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o700))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestFormatFor(t *testing.T) {
	tests := []struct {
		path string
		want Format
	}{
		{"/home/u/.claude.json", FormatJSON},
		{"/home/u/.gemini/settings.json", FormatJSON},
		{"/home/u/.codex/config.toml", FormatTOML},
		{"/home/u/.codex/CONFIG.TOML", FormatTOML},
		{"/home/u/mcp", FormatJSON},
	}
	for _, tt := range tests {
		if got := FormatFor(tt.path); got != tt.want {
			t.Errorf("FormatFor(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestRead_MissingFile(t *testing.T) {
	got, err := Read(testContext(t), filepath.Join(t.TempDir(), "absent.json"))
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestRead_JSON(t *testing.T) {
	path := writeFile(t, t.TempDir(), ".claude.json", `{
  "numStartups": 12,
  "mcpServers": {
    "fs": {"command": "npx", "args": ["-y", "@modelcontextprotocol/server-filesystem", "/tmp"]},
    "web": {"type": "http", "url": "https://mcp.example.com/v1"},
    "broken": {"command": 42},
    "bare": "not an object"
  }
}`)

	got, err := Read(testContext(t), path)
	require.NoError(t, err)

	require.Len(t, got, 2, "broken entries are skipped")
	assert.Equal(t, "npx", got["fs"].Command)
	assert.Equal(t, []string{"-y", "@modelcontextprotocol/server-filesystem", "/tmp"}, got["fs"].Args)
	assert.Equal(t, "https://mcp.example.com/v1", got["web"].URL)
}

func TestRead_JSONWithoutServers(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"empty file", ""},
		{"whitespace", "  \n"},
		{"no key", `{"theme": "dark"}`},
		{"null servers", `{"mcpServers": null}`},
		{"empty servers", `{"mcpServers": {}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, t.TempDir(), "settings.json", tt.content)
			got, err := Read(testContext(t), path)
			require.NoError(t, err)
			assert.Empty(t, got)
		})
	}
}

func TestRead_ParseErrors(t *testing.T) {
	tests := []struct {
		name     string
		file     string
		content  string
		wantFmt  Format
		contains string
	}{
		{"invalid json", "a.json", `{"mcpServers": {`, FormatJSON, ""},
		{"top-level array", "a.json", `[1, 2]`, FormatJSON, ""},
		{"servers not object", "a.json", `{"mcpServers": []}`, FormatJSON, "mcpServers is not an object"},
		{"invalid toml", "config.toml", "[mcp_servers\n", FormatTOML, "line"},
		{"servers not table", "config.toml", "mcp_servers = 3\n", FormatTOML, "mcp_servers is not a table"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, t.TempDir(), tt.file, tt.content)
			_, err := Read(testContext(t), path)
			require.Error(t, err)

			var pe *ParseError
			require.True(t, errors.As(err, &pe), "want *ParseError, got %T", err)
			assert.Equal(t, path, pe.Path)
			assert.Equal(t, tt.wantFmt, pe.Format)
			assert.NotEmpty(t, pe.Reason)
			if tt.contains != "" {
				assert.Contains(t, pe.Error(), tt.contains)
			}
		})
	}
}

func TestRead_TOML(t *testing.T) {
	path := writeFile(t, t.TempDir(), "config.toml", `model = "o3"

[mcp_servers.fs]
command = "npx"
args = ["-y", "@modelcontextprotocol/server-filesystem"]
startup_timeout_sec = 20

[mcp_servers.fs.env]
DEBUG = "1"

[mcp_servers.bad]
command = ["not", "a", "string"]
`)

	got, err := Read(testContext(t), path)
	require.NoError(t, err)
	require.Len(t, got, 1)

	fs := got["fs"]
	assert.Equal(t, "npx", fs.Command)
	assert.Equal(t, map[string]string{"DEBUG": "1"}, fs.Env)
	timeout, ok := fs.Extra("startup_timeout_sec")
	require.True(t, ok)
	assert.Equal(t, json.Number("20"), timeout)
}

func TestRead_TOMLWithoutServers(t *testing.T) {
	path := writeFile(t, t.TempDir(), "config.toml", "model = \"o3\"\n")
	got, err := Read(testContext(t), path)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestParse_JSONAndTOMLAgree(t *testing.T) {
	ctx := testContext(t)

	fromJSON, err := Parse(ctx, []byte(`{"mcpServers": {"gh": {
		"command": "docker",
		"args": ["run", "-i", "ghcr.io/github/github-mcp-server"],
		"env": {"GITHUB_PERSONAL_ACCESS_TOKEN": "x"},
		"timeout": 30,
		"ratio": 1.5,
		"flags": {"trust": true}
	}}}`), FormatJSON, "")
	require.NoError(t, err)

	fromTOML, err := Parse(ctx, []byte(`
[mcp_servers.gh]
command = "docker"
args = ["run", "-i", "ghcr.io/github/github-mcp-server"]
timeout = 30
ratio = 1.5

[mcp_servers.gh.env]
GITHUB_PERSONAL_ACCESS_TOKEN = "x"

[mcp_servers.gh.flags]
trust = true
`), FormatTOML, "")
	require.NoError(t, err)

	assert.Equal(t, fromJSON, fromTOML)
}

func TestWrite_JSONPreservesOtherKeys(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, ".claude.json", `{"userID": "abc", "projects": {"/src": {"allowedTools": []}}, "mcpServers": {"old": {"command": "x"}}}`)

	servers := map[string]mcp.ServerConfig{
		"fs":  {Command: "npx", Args: []string{"-y", "server-filesystem"}},
		"web": {Type: mcp.TypeHTTP, URL: "https://mcp.example.com/?key=a&b=c"},
	}
	require.NoError(t, Write(testContext(t), path, servers))

	got, err := os.ReadFile(path)
	require.NoError(t, err)

	want := `{
  "mcpServers": {
    "fs": {
      "args": [
        "-y",
        "server-filesystem"
      ],
      "command": "npx"
    },
    "web": {
      "type": "http",
      "url": "https://mcp.example.com/?key=a&b=c"
    }
  },
  "projects": {
    "/src": {
      "allowedTools": []
    }
  },
  "userID": "abc"
}
`
	assert.Equal(t, want, string(got))
}

func TestWrite_JSONByteRoundTrip(t *testing.T) {
	canonical := `{
  "mcpServers": {
    "fs": {
      "args": [
        "-y",
        "@modelcontextprotocol/server-filesystem",
        "/tmp"
      ],
      "command": "npx",
      "env": {
        "DEBUG": "1"
      },
      "timeout": 30000
    },
    "remote": {
      "transport": {
        "headers": {
          "Authorization": "Bearer t"
        },
        "type": "sse",
        "url": "https://r.example.com/sse"
      }
    }
  },
  "theme": "dark"
}
`
	ctx := testContext(t)
	path := writeFile(t, t.TempDir(), "settings.json", canonical)

	servers, err := Read(ctx, path)
	require.NoError(t, err)
	require.NoError(t, Write(ctx, path, servers))

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, canonical, string(got))
}

func TestWrite_TOMLRoundTrip(t *testing.T) {
	ctx := testContext(t)
	path := writeFile(t, t.TempDir(), "config.toml", `model = "o3"
approval_policy = "on-request"

[mcp_servers.old]
command = "x"
`)

	servers := map[string]mcp.ServerConfig{
		"fs": {Command: "npx", Args: []string{"-y", "server-filesystem"}, Env: map[string]string{"A": "1"}},
	}
	var withExtra mcp.ServerConfig
	require.NoError(t, json.Unmarshal([]byte(`{"command":"uvx","startup_timeout_sec":20,"ratio":1.0,"drop":null}`), &withExtra))
	servers["py"] = withExtra

	require.NoError(t, Write(ctx, path, servers))
	first, err := os.ReadFile(path)
	require.NoError(t, err)

	text := string(first)
	assert.Contains(t, text, `model = 'o3'`)
	assert.Contains(t, text, `approval_policy = 'on-request'`)
	assert.NotContains(t, text, "old")
	assert.NotContains(t, text, "drop")
	assert.Contains(t, text, "startup_timeout_sec = 20")
	assert.Contains(t, text, "ratio = 1.0")
	assert.NotRegexp(t, `(?m)^\[mcp_servers\]$`, text, "no bare parent header above the server tables")
	assert.Contains(t, text, "[mcp_servers.fs]")

	reread, err := Read(ctx, path)
	require.NoError(t, err)
	require.Len(t, reread, 2)
	assert.Equal(t, "npx", reread["fs"].Command)
	assert.Equal(t, map[string]string{"A": "1"}, reread["fs"].Env)
	ratio, _ := reread["py"].Extra("ratio")
	assert.Equal(t, json.Number("1.0"), ratio)

	require.NoError(t, Write(ctx, path, reread))
	second, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, string(first), string(second), "read then write must be byte-stable")
}

func TestWrite_CreatesFileAndDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".codex", "config.toml")

	require.NoError(t, Write(testContext(t), path, map[string]mcp.ServerConfig{"a": {Command: "x"}}))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestWrite_KeepsPermissions(t *testing.T) {
	path := writeFile(t, t.TempDir(), "settings.json", `{}`)
	require.NoError(t, os.Chmod(path, 0o644))

	require.NoError(t, Write(testContext(t), path, nil))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o644), info.Mode().Perm())

	got, _ := os.ReadFile(path)
	assert.Equal(t, "{\n  \"mcpServers\": {}\n}\n", string(got))
}

func TestWrite_RefusesUnparseableFile(t *testing.T) {
	original := `{"mcpServers": {` // truncated by another tool
	path := writeFile(t, t.TempDir(), ".claude.json", original)

	err := Write(testContext(t), path, map[string]mcp.ServerConfig{"a": {Command: "x"}})

	var pe *ParseError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, path, pe.Path)

	got, _ := os.ReadFile(path)
	assert.Equal(t, original, string(got), "file must be left untouched")
}

func TestMarshal(t *testing.T) {
	servers := map[string]mcp.ServerConfig{"fs": {Command: "npx"}}

	js, err := Marshal(servers, FormatJSON)
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"mcpServers\": {\n    \"fs\": {\n      \"command\": \"npx\"\n    }\n  }\n}\n", string(js))

	tm, err := Marshal(servers, FormatTOML)
	require.NoError(t, err)
	assert.Contains(t, string(tm), "[mcp_servers.fs]")
	assert.NotContains(t, string(tm), "[mcp_servers]\n")
	assert.Contains(t, string(tm), "command = 'npx'")

	empty, err := Marshal(nil, FormatTOML)
	require.NoError(t, err)
	assert.Contains(t, string(empty), "mcp_servers", "an empty section is still written")
}

func TestDropBareHeader(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "parent above children",
			in:   "model = 'o3'\n\n[mcp_servers]\n[mcp_servers.fs]\ncommand = 'npx'\n",
			want: "model = 'o3'\n\n[mcp_servers.fs]\ncommand = 'npx'\n",
		},
		{
			name: "blank line before first child",
			in:   "[mcp_servers]\n\n[mcp_servers.fs]\ncommand = 'npx'\n",
			want: "\n[mcp_servers.fs]\ncommand = 'npx'\n",
		},
		{
			name: "empty section",
			in:   "model = 'o3'\n\n[mcp_servers]\n",
			want: "model = 'o3'\n\n[mcp_servers]\n",
		},
		{
			name: "other table follows",
			in:   "[mcp_servers]\n\n[profiles.x]\nmodel = 'o3'\n",
			want: "[mcp_servers]\n\n[profiles.x]\nmodel = 'o3'\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, string(dropBareHeader([]byte(tt.in), TOMLServersKey)))
		})
	}
}
