package commands

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thoreinstein/mcpm/internal/cli/prompt"
	"github.com/thoreinstein/mcpm/internal/errors"
	"github.com/thoreinstein/mcpm/internal/paths"
)

const (
	claudeFixture = `{
  "numStartups": 3,
  "mcpServers": {
    "fs": {"command": "npx", "args": ["-y", "@mcp/fs"], "env": {"GITHUB_TOKEN": "ghp_abcdefgh1234"}}
  }
}
`
	geminiFixture = `{
  "theme": "dark",
  "mcpServers": {
    "web": {"httpUrl": "https://web.example.com/mcp"}
  }
}
`
	codexFixture = `model = "o3"

[mcp_servers.tool]
command = "uvx"
args = ["tool"]
`
)

// resetFlags puts every flag back to its default so runs do not leak into
// each other.
func resetFlags() {
	var reset func(c *cobra.Command)
	reset = func(c *cobra.Command) {
		for _, fs := range []*pflag.FlagSet{c.Flags(), c.PersistentFlags()} {
			fs.VisitAll(func(f *pflag.Flag) {
				if f.Value.Type() == "stringToString" {
					return
				}
				_ = f.Value.Set(f.DefValue)
				f.Changed = false
			})
		}
		for _, sub := range c.Commands() {
			reset(sub)
		}
	}
	reset(rootCmd)
	addImages = nil
}

// execute runs the root command with args and returns what it printed.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	return executeWithInput(t, "", args...)
}

func executeWithInput(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	resetFlags()

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetIn(nil)
		rootCmd.SetArgs(nil)
	})

	err := rootCmd.Execute()
	return out.String(), err
}

type cliEnv struct {
	claude   string
	gemini   string
	codex    string
	settings string
}

// setupCLI writes the three fixture files and a settings file pointing at
// them, and isolates mcpm's data directory.
func setupCLI(t *testing.T, confirmDelete bool) *cliEnv {
	t.Helper()
	dir := t.TempDir()
	t.Setenv(paths.HomeEnv, filepath.Join(dir, "mcpm"))
	t.Setenv("NO_COLOR", "1")

	e := &cliEnv{
		claude:   filepath.Join(dir, "home", ".claude.json"),
		gemini:   filepath.Join(dir, "home", ".gemini", "settings.json"),
		codex:    filepath.Join(dir, "home", ".codex", "config.toml"),
		settings: filepath.Join(dir, "config.yaml"),
	}
	writeTestFile(t, e.claude, claudeFixture)
	writeTestFile(t, e.gemini, geminiFixture)
	writeTestFile(t, e.codex, codexFixture)

	confirm := "false"
	if confirmDelete {
		confirm = "true"
	}
	writeTestFile(t, e.settings, "confirm_delete: "+confirm+"\n"+
		"active_config_index: 0\n"+
		"config_paths:\n"+
		"  - "+e.claude+"\n"+
		"  - "+e.gemini+"\n"+
		"  - "+e.codex+"\n")
	return e
}

func (e *cliEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	return executeWithInput(t, "", append([]string{"--config", e.settings}, args...)...)
}

func (e *cliEnv) runWithInput(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	return executeWithInput(t, stdin, append([]string{"--config", e.settings}, args...)...)
}

func writeTestFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o700))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func readTestFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func serverKeys(t *testing.T, path string) []string {
	t.Helper()
	var doc struct {
		MCPServers map[string]json.RawMessage `json:"mcpServers"`
	}
	require.NoError(t, json.Unmarshal([]byte(readTestFile(t, path)), &doc))
	var keys []string
	for k := range doc.MCPServers {
		keys = append(keys, k)
	}
	return keys
}

func TestList_Tabular(t *testing.T) {
	e := setupCLI(t, false)

	out, err := e.run(t, "list")
	require.NoError(t, err)

	assert.Contains(t, out, "Universe: claude")
	assert.Contains(t, out, "fs")
	assert.Contains(t, out, "web")
	assert.NotContains(t, out, "tool", "codex servers are not visible from claude")
	assert.Regexp(t, `fs\s+enabled\s+claude`, out)
	assert.Regexp(t, `web\s+disabled\s+gemini`, out)
}

func TestList_JSONMasksSecrets(t *testing.T) {
	e := setupCLI(t, false)

	out, err := e.run(t, "list", "--json")
	require.NoError(t, err)

	var got listOutput
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "claude", got.Universe)
	require.Len(t, got.Servers, 2)
	assert.Equal(t, "fs", got.Servers[0].Name)
	assert.True(t, got.Servers[0].Enabled)
	assert.Equal(t, "****1234", got.Servers[0].Config.Env["GITHUB_TOKEN"])

	out, err = e.run(t, "list", "--json", "--show-secrets")
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "ghp_abcdefgh1234", got.Servers[0].Config.Env["GITHUB_TOKEN"])
}

func TestList_FilterAndUniverseFlag(t *testing.T) {
	e := setupCLI(t, false)

	out, err := e.run(t, "list", "--filter", "disabled")
	require.NoError(t, err)
	assert.Contains(t, out, "web")
	assert.NotContains(t, out, "fs ")

	out, err = e.run(t, "--universe", "codex", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Universe: codex")
	assert.Contains(t, out, "tool")
	assert.NotContains(t, out, "web")

	_, err = e.run(t, "list", "--filter", "bogus")
	assert.Equal(t, errors.ExitUser, errors.ExitCode(err))
}

func TestShow(t *testing.T) {
	e := setupCLI(t, false)

	out, err := e.run(t, "show", "fs")
	require.NoError(t, err)
	assert.Contains(t, out, "Server: fs")
	assert.Contains(t, out, "****1234")
	assert.NotContains(t, out, "ghp_abcdefgh1234")

	_, err = e.run(t, "show", "missing")
	assert.True(t, errors.Is(err, errors.ErrNotFound))
	assert.Equal(t, errors.ExitUser, errors.ExitCode(err))

	_, err = e.run(t, "show", "tool")
	assert.True(t, errors.Is(err, errors.ErrUniverseMismatch), "codex server from claude: %v", err)
}

func TestShow_PicksInteractively(t *testing.T) {
	e := setupCLI(t, false)

	orig := newSelector
	t.Cleanup(func() { newSelector = orig })
	newSelector = func() *prompt.Selector {
		return prompt.NewSelectorWithIO(strings.NewReader("2\n"), io.Discard)
	}

	out, err := e.run(t, "show")
	require.NoError(t, err)
	assert.Contains(t, out, "Server: web")
}

func TestAdd_FromStdin(t *testing.T) {
	e := setupCLI(t, false)

	blob := `"db": {"command": "uvx", "args": ["mcp-db"],}, "broken": {"args": ["x"]}`
	out, err := e.runWithInput(t, blob, "add")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ db")
	assert.Contains(t, out, "✗ broken")

	doc := readTestFile(t, e.claude)
	assert.Contains(t, doc, `"numStartups": 3`)
	assert.ElementsMatch(t, []string{"fs", "db"}, serverKeys(t, e.claude))
	assert.ElementsMatch(t, []string{"web"}, serverKeys(t, e.gemini))
}

func TestAdd_CodexFromFile(t *testing.T) {
	e := setupCLI(t, false)

	file := filepath.Join(t.TempDir(), "servers.toml")
	writeTestFile(t, file, "[mcp_servers.search]\ncommand = \"npx\"\nargs = [\"search\"]\n")

	_, err := e.run(t, "--universe", "codex", "add", "--file", file)
	require.NoError(t, err)

	doc := readTestFile(t, e.codex)
	assert.Contains(t, doc, "[mcp_servers.search]")
	assert.Contains(t, doc, "[mcp_servers.tool]")
	assert.Regexp(t, `model = ['"]o3['"]`, doc)
}

func TestAdd_NothingAdded(t *testing.T) {
	e := setupCLI(t, false)

	_, err := e.runWithInput(t, `{"broken": {"args": ["x"]}}`, "add")
	require.Error(t, err)
	assert.Equal(t, errors.ExitUser, errors.ExitCode(err))

	_, err = e.run(t, "add")
	assert.Equal(t, errors.ExitUser, errors.ExitCode(err), "no input at all")
}

func TestEdit_Inline(t *testing.T) {
	e := setupCLI(t, false)

	_, err := e.run(t, "edit", "fs", `{"command": "docker", "args": ["run", "fs"]}`)
	require.NoError(t, err)
	assert.Contains(t, readTestFile(t, e.claude), `"docker"`)

	_, err = e.run(t, "edit", "fs", `{"args": ["x"]}`)
	assert.True(t, errors.Is(err, errors.ErrInvalidConfig), "got %v", err)
}

func TestToggle(t *testing.T) {
	e := setupCLI(t, false)

	out, err := e.run(t, "toggle", "web")
	require.NoError(t, err)
	assert.Equal(t, "web enabled in claude\n", out)
	assert.ElementsMatch(t, []string{"fs", "web"}, serverKeys(t, e.claude))

	out, err = e.run(t, "disable", "fs")
	require.NoError(t, err)
	assert.Equal(t, "fs disabled in claude\n", out)
	assert.ElementsMatch(t, []string{"web"}, serverKeys(t, e.claude))

	out, err = e.run(t, "enable-all")
	require.NoError(t, err)
	assert.Equal(t, "1 server(s) enabled in claude\n", out)
	assert.Contains(t, readTestFile(t, e.codex), "[mcp_servers.tool]", "codex is untouched")
}

func TestRemove_AsksFirst(t *testing.T) {
	e := setupCLI(t, true)

	orig := newSelector
	t.Cleanup(func() { newSelector = orig })
	answer := "n\n"
	newSelector = func() *prompt.Selector {
		return prompt.NewSelectorWithIO(strings.NewReader(answer), io.Discard)
	}

	out, err := e.run(t, "remove", "fs")
	require.NoError(t, err)
	assert.Contains(t, out, "Cancelled")
	assert.ElementsMatch(t, []string{"fs"}, serverKeys(t, e.claude))

	answer = "y\n"
	_, err = e.run(t, "remove", "fs")
	require.NoError(t, err)
	assert.Empty(t, serverKeys(t, e.claude))
	assert.Contains(t, readTestFile(t, e.claude), `"numStartups": 3`)
}

func TestRemove_Yes(t *testing.T) {
	e := setupCLI(t, true)

	_, err := e.run(t, "rm", "web", "--yes")
	require.NoError(t, err)
	assert.Empty(t, serverKeys(t, e.gemini))
}

func TestTags(t *testing.T) {
	e := setupCLI(t, false)

	out, err := e.run(t, "tag", "add", "fs", "devops", "ui")
	require.NoError(t, err)
	assert.Equal(t, "fs tags: Dev Ops,UI\n", out)

	out, err = e.run(t, "list", "--tag", "Dev Ops")
	require.NoError(t, err)
	assert.Contains(t, out, "fs")
	assert.NotContains(t, out, "web")

	out, err = e.run(t, "tag", "set", "fs")
	require.NoError(t, err)
	assert.Equal(t, "fs tags: (none)\n", out)

	_, err = e.run(t, "tag", "add", "fs", "nope")
	assert.Equal(t, errors.ExitUser, errors.ExitCode(err))

	assert.NotContains(t, readTestFile(t, e.claude), "Dev Ops", "tags stay out of client files")
}

func TestUse_Persists(t *testing.T) {
	e := setupCLI(t, false)

	out, err := e.run(t, "use", "codex")
	require.NoError(t, err)
	assert.Contains(t, out, "Active universe: codex")
	assert.Contains(t, readTestFile(t, e.settings), "active_config_index: 2")

	out, err = e.run(t, "use")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "codex"), out)

	_, err = e.run(t, "use", "nope")
	assert.Equal(t, errors.ExitUser, errors.ExitCode(err))
}

func TestUniverseFlag_IsNotPersisted(t *testing.T) {
	e := setupCLI(t, false)

	_, err := e.run(t, "--universe", "gemini", "config", "set", "confirm_delete", "true")
	require.NoError(t, err)

	settingsFile := readTestFile(t, e.settings)
	assert.Contains(t, settingsFile, "active_config_index: 0")
	assert.Contains(t, settingsFile, "confirm_delete: true")
}

func TestConfigGetSet(t *testing.T) {
	e := setupCLI(t, false)

	out, err := e.run(t, "config", "get", "config_paths.codex")
	require.NoError(t, err)
	assert.Equal(t, e.codex+"\n", out)

	_, err = e.run(t, "config", "set", "colour", "blue")
	assert.Equal(t, errors.ExitUser, errors.ExitCode(err))

	out, err = e.run(t, "config")
	require.NoError(t, err)
	assert.Contains(t, out, "confirm_delete: false")
}

func TestConfigTest(t *testing.T) {
	e := setupCLI(t, false)

	out, err := e.run(t, "config", "test", "codex")
	require.NoError(t, err)
	assert.Contains(t, out, "1 server(s)")

	_, err = e.run(t, "config", "test", filepath.Join(t.TempDir(), "absent.json"))
	assert.Equal(t, errors.ExitUser, errors.ExitCode(err))
}

func TestExport(t *testing.T) {
	e := setupCLI(t, false)

	out, err := e.run(t, "export")
	require.NoError(t, err)
	var got map[string]map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Contains(t, got, "fs")
	assert.NotContains(t, got, "web", "web is not in the claude file")
	assert.Equal(t, "ghp_abcdefgh1234", got["fs"]["env"].(map[string]any)["GITHUB_TOKEN"])

	out, err = e.run(t, "-u", "codex", "export")
	require.NoError(t, err)
	assert.Contains(t, out, "[mcp_servers.tool]")
}

func TestSync_KeepsDocuments(t *testing.T) {
	e := setupCLI(t, false)

	_, err := e.run(t, "sync")
	require.NoError(t, err)
	assert.Contains(t, readTestFile(t, e.gemini), `"theme": "dark"`)
	assert.Regexp(t, `model = ['"]o3['"]`, readTestFile(t, e.codex))
}

func TestDegradedLoad_RefusesWrites(t *testing.T) {
	e := setupCLI(t, false)

	// Populate the cache with a clean load.
	_, err := e.run(t, "list")
	require.NoError(t, err)

	writeTestFile(t, e.gemini, `{"mcpServers": {`)

	out, err := e.run(t, "list")
	require.NoError(t, err, "read-only commands use the cache")
	assert.Contains(t, out, "showing cached servers")
	assert.Contains(t, out, "web")

	_, err = e.run(t, "toggle", "web")
	require.Error(t, err)
	var exitErr *errors.ExitError
	require.True(t, errors.As(err, &exitErr))
	assert.Equal(t, "Run: mcpm check", exitErr.Suggestion)
	assert.Equal(t, `{"mcpServers": {`, readTestFile(t, e.gemini))
}

func TestCheck(t *testing.T) {
	e := setupCLI(t, false)

	out, err := e.run(t, "check")
	require.NoError(t, err, out)
	assert.Contains(t, out, "0 errors")

	writeTestFile(t, e.gemini, `{"mcpServers": {`)
	out, err = e.run(t, "check")
	require.Error(t, err)
	assert.Equal(t, errors.ExitUser, errors.ExitCode(err))
	assert.Contains(t, out, "config-syntax")

	out, err = e.run(t, "check", "--json")
	require.Error(t, err)
	var report struct {
		Summary struct {
			Errors int `json:"errors"`
		} `json:"summary"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Positive(t, report.Summary.Errors)
}

func TestCheck_FixesPermissions(t *testing.T) {
	skipOnWindows(t)
	e := setupCLI(t, false)
	require.NoError(t, os.Chmod(e.claude, 0o644))

	out, err := e.run(t, "check", "--verbose")
	require.NoError(t, err, "readable secrets are a warning")
	assert.Contains(t, out, "path-permissions")

	out, err = e.run(t, "check", "--fix")
	require.NoError(t, err)
	assert.Contains(t, out, "fixed "+e.claude)

	info, err := os.Stat(e.claude)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestBackups(t *testing.T) {
	e := setupCLI(t, false)

	out, err := e.run(t, "backup", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "No backups available")

	// The first write of a run snapshots the original file.
	_, err = e.run(t, "toggle", "web")
	require.NoError(t, err)

	out, err = e.run(t, "backup", "list", "claude", "--json")
	require.NoError(t, err)
	var listed []backupListOutput
	require.NoError(t, json.Unmarshal([]byte(out), &listed))
	require.Len(t, listed, 1)
	require.Len(t, listed[0].Backups, 1)

	out, err = e.run(t, "backup", "restore", "claude")
	require.NoError(t, err)
	assert.Contains(t, out, "Restored 1 file(s) for claude")
	assert.ElementsMatch(t, []string{"fs"}, serverKeys(t, e.claude))

	_, err = e.run(t, "backup", "restore", "codex", "20990101T000000")
	assert.Equal(t, errors.ExitUser, errors.ExitCode(err))
}

func TestReadInput(t *testing.T) {
	file := filepath.Join(t.TempDir(), "in.json")
	writeTestFile(t, file, `{"a": {}}`)

	tests := []struct {
		name   string
		stdin  string
		args   []string
		file   string
		want   string
		wantOK bool
	}{
		{"args joined", "", []string{`"a":`, `{}`}, "", `"a": {}`, true},
		{"file", "", nil, file, `{"a": {}}`, true},
		{"dash is stdin", "piped", nil, "-", "piped", true},
		{"stdin when not a terminal", "piped", nil, "", "piped", true},
		{"blank stdin", "  \n", nil, "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok, err := readInput(strings.NewReader(tt.stdin), tt.args, tt.file)
			require.NoError(t, err)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcdefg...", truncate("abcdefghijklmnop", 10))
	assert.Equal(t, "→→→", truncate("→→→→→", 3))
}

func skipOnWindows(t *testing.T) {
	t.Helper()
	if os.PathSeparator == '\\' {
		t.Skip("permission bits are not enforced on Windows")
	}
}
