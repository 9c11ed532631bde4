package doctor

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/thoreinstein/mcpm/internal/configfile"
	"github.com/thoreinstein/mcpm/internal/errors"
	"github.com/thoreinstein/mcpm/internal/mcp"
	"github.com/thoreinstein/mcpm/internal/redact"
	"github.com/thoreinstein/mcpm/pkg/fileutil"
)

const (
	typeFile = "file"
	typeDir  = "directory"
)

// Target is a file inspected by PermissionCheck.
type Target struct {
	// Label names the file in output, e.g. "claude" or "cache".
	Label string
	Path  string
	// Sensitive marks files that always hold server configs. Client config
	// files are scanned for secrets instead.
	Sensitive bool
}

// SourceTargets returns one Target per enabled source.
func SourceTargets(sources [mcp.NumUniverses]string) []Target {
	var out []Target
	for _, u := range mcp.Universes() {
		if sources[u] != "" {
			out = append(out, Target{Label: u.String(), Path: sources[u]})
		}
	}
	return out
}

// PermissionCheck flags config files other users can read or write, and
// parent directories anyone can write to.
type PermissionCheck struct {
	PermissionFixer

	targets []Target
}

var (
	_ Check = (*PermissionCheck)(nil)
	_ Fixer = (*PermissionCheck)(nil)
)

// NewPermissionCheck creates a permission check over targets.
func NewPermissionCheck(targets ...Target) *PermissionCheck {
	return &PermissionCheck{targets: targets}
}

// Name returns the unique identifier for this check.
func (c *PermissionCheck) Name() string {
	return "path-permissions"
}

// Category returns the grouping for this check.
func (c *PermissionCheck) Category() string {
	return "filesystem"
}

// pathIssue represents a single path or permission problem.
type pathIssue struct {
	Path        string
	Label       string
	Type        string // typeFile or typeDir
	Problem     string
	Severity    Severity
	Permissions string
	Fixable     bool
	FixHint     string
}

// Run inspects every target that exists. Missing files are not an issue;
// the client may simply not be installed.
func (c *PermissionCheck) Run(ctx context.Context) *CheckResult {
	var issues []pathIssue
	checked := 0
	seenDirs := map[string]bool{}

	for _, t := range c.targets {
		info, err := os.Stat(t.Path)
		if os.IsNotExist(err) {
			continue
		}
		checked++
		if err != nil {
			issues = append(issues, pathIssue{
				Path: t.Path, Label: t.Label, Type: typeFile,
				Problem:  fmt.Sprintf("cannot stat file: %v", err),
				Severity: SeverityError,
			})
			continue
		}
		issues = append(issues, c.checkFile(ctx, t, info)...)

		dir := filepath.Dir(t.Path)
		if !seenDirs[dir] {
			seenDirs[dir] = true
			issues = append(issues, c.checkDirectory(dir, t.Label)...)
		}
	}

	c.setIssues(issues)
	return c.buildResult(issues, checked)
}

func (c *PermissionCheck) checkFile(ctx context.Context, t Target, info os.FileInfo) []pathIssue {
	if info.IsDir() {
		return []pathIssue{{
			Path: t.Path, Label: t.Label, Type: typeFile,
			Problem:  "expected file but found directory",
			Severity: SeverityError,
		}}
	}

	f, err := os.Open(t.Path)
	if err != nil {
		return []pathIssue{{
			Path: t.Path, Label: t.Label, Type: typeFile,
			Problem:     "file is not readable",
			Severity:    SeverityError,
			Permissions: formatPermissions(info.Mode()),
			Fixable:     true,
			FixHint:     "chmod 600 " + t.Path,
		}}
	}
	f.Close()

	// Unix permission bits mean nothing on Windows.
	if runtime.GOOS == "windows" {
		return nil
	}

	perm := info.Mode().Perm()
	var issues []pathIssue
	if perm&0o002 != 0 {
		issues = append(issues, pathIssue{
			Path: t.Path, Label: t.Label, Type: typeFile,
			Problem:     "file is world-writable",
			Severity:    SeverityWarning,
			Permissions: formatPermissions(info.Mode()),
			Fixable:     true,
			FixHint:     "chmod 600 " + t.Path,
		})
	} else if perm&0o044 != 0 && (t.Sensitive || holdsSecrets(ctx, t.Path)) {
		issues = append(issues, pathIssue{
			Path: t.Path, Label: t.Label, Type: typeFile,
			Problem:     fmt.Sprintf("file holds secrets but is readable by others (mode %s)", formatPermissions(info.Mode())),
			Severity:    SeverityWarning,
			Permissions: formatPermissions(info.Mode()),
			Fixable:     true,
			FixHint:     "chmod 600 " + t.Path,
		})
	}
	return issues
}

func (c *PermissionCheck) checkDirectory(path, label string) []pathIssue {
	info, err := os.Stat(path)
	if err != nil || runtime.GOOS == "windows" {
		return nil
	}
	if info.Mode().Perm()&0o002 == 0 {
		return nil
	}
	return []pathIssue{{
		Path: path, Label: label, Type: typeDir,
		Problem:     "directory is world-writable",
		Severity:    SeverityWarning,
		Permissions: formatPermissions(info.Mode()),
		Fixable:     true,
		FixHint:     "chmod 700 " + path,
	}}
}

// holdsSecrets reports whether any server in the file has an env or header
// value that output would mask.
func holdsSecrets(ctx context.Context, path string) bool {
	servers, err := configfile.Read(ctx, path)
	if err != nil {
		return false
	}
	sensitive := func(m map[string]string) bool {
		for k, v := range m {
			if redact.ShouldMask(k) || redact.ContainsTokenPrefix(v) {
				return true
			}
		}
		return false
	}
	for _, cfg := range servers {
		if sensitive(cfg.Env) || sensitive(cfg.Headers) {
			return true
		}
		if cfg.Transport != nil && sensitive(cfg.Transport.Headers) {
			return true
		}
	}
	return false
}

func (c *PermissionCheck) buildResult(issues []pathIssue, checked int) *CheckResult {
	if len(issues) == 0 {
		return &CheckResult{
			Name:     c.Name(),
			Category: c.Category(),
			Status:   SeverityPass,
			Message:  fmt.Sprintf("all %d files have safe permissions", checked),
		}
	}

	status := SeverityPass
	fixable := false
	var fixHints []string
	issueDetails := make([]map[string]any, 0, len(issues))
	for _, issue := range issues {
		status = worst(status, issue.Severity)
		m := map[string]any{
			"path":     issue.Path,
			"label":    issue.Label,
			"type":     issue.Type,
			"problem":  issue.Problem,
			"severity": issue.Severity.String(),
		}
		if issue.Permissions != "" {
			m["permissions"] = issue.Permissions
		}
		if issue.FixHint != "" {
			m["fix_hint"] = issue.FixHint
		}
		issueDetails = append(issueDetails, m)

		if issue.Fixable {
			fixable = true
			if issue.FixHint != "" {
				fixHints = append(fixHints, issue.FixHint)
			}
		}
	}

	return &CheckResult{
		Name:     c.Name(),
		Category: c.Category(),
		Status:   status,
		Message:  fmt.Sprintf("found %d permission issue(s) across %d files", len(issues), checked),
		Details: map[string]any{
			"checked_paths": checked,
			"issue_count":   len(issues),
			"issues":        issueDetails,
		},
		Fixable: fixable,
		FixHint: strings.Join(fixHints, "; "),
	}
}

// formatPermissions returns a human-readable permission string (e.g., "0644").
func formatPermissions(mode os.FileMode) string {
	return fmt.Sprintf("%04o", mode.Perm())
}

// SyntaxCheck parses each source file the way Load does and reports the first
// syntax error with its position.
type SyntaxCheck struct {
	sources [mcp.NumUniverses]string
}

var _ Check = (*SyntaxCheck)(nil)

// NewSyntaxCheck creates a syntax check over the source paths. Empty paths
// are disabled sources and skipped.
func NewSyntaxCheck(sources [mcp.NumUniverses]string) *SyntaxCheck {
	return &SyntaxCheck{sources: sources}
}

// Name returns the unique identifier for this check.
func (c *SyntaxCheck) Name() string {
	return "config-syntax"
}

// Category returns the grouping for this check.
func (c *SyntaxCheck) Category() string {
	return "config"
}

type syntaxFileResult struct {
	Universe string `json:"universe"`
	Path     string `json:"path"`
	Status   string `json:"status"`
	Servers  int    `json:"servers"`
	Message  string `json:"message,omitempty"`
}

// Run parses each enabled source.
func (c *SyntaxCheck) Run(ctx context.Context) *CheckResult {
	result := &CheckResult{
		Name:     c.Name(),
		Category: c.Category(),
		Details:  map[string]any{},
	}

	var files []syntaxFileResult
	var errorCount, passCount, missingCount int
	for _, u := range mcp.Universes() {
		path := c.sources[u]
		if path == "" {
			continue
		}
		fr := validateFile(ctx, path)
		fr.Universe = u.String()
		files = append(files, fr)
		switch fr.Status {
		case "pass":
			passCount++
		case "error":
			errorCount++
		case "info":
			missingCount++
		}
	}

	result.Details["files"] = files
	result.Details["checked"] = len(files)
	result.Details["passed"] = passCount
	result.Details["errors"] = errorCount
	result.Details["missing"] = missingCount

	switch {
	case errorCount > 0:
		result.Status = SeverityError
		result.Message = fmt.Sprintf("%d config file(s) cannot be parsed; mcpm will serve cached servers and refuse changes", errorCount)
		result.FixHint = "fix the syntax at the reported position in each file"
	case passCount > 0:
		result.Status = SeverityPass
		result.Message = fmt.Sprintf("%d config file(s) parsed successfully", passCount)
	default:
		result.Status = SeverityInfo
		result.Message = "no config files found"
	}
	return result
}

func validateFile(ctx context.Context, path string) syntaxFileResult {
	fr := syntaxFileResult{Path: path}

	data, ok, err := fileutil.ReadFileIfExists(path)
	if err != nil {
		fr.Status = "error"
		if errors.Is(err, os.ErrPermission) {
			fr.Message = fmt.Sprintf("permission denied: %v", err)
		} else {
			fr.Message = fmt.Sprintf("read error: %v", err)
		}
		return fr
	}
	if !ok {
		fr.Status = "info"
		fr.Message = "file does not exist (client not configured)"
		return fr
	}

	servers, err := configfile.Parse(ctx, data, configfile.FormatFor(path), path)
	if err != nil {
		fr.Status = "error"
		fr.Message = formatParseError(err, data)
		return fr
	}
	fr.Status = "pass"
	fr.Servers = len(servers)
	return fr
}

// formatParseError adds line and column to decoder errors.
func formatParseError(err error, data []byte) string {
	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		line, col := offsetToLineCol(data, int(syntaxErr.Offset))
		return fmt.Sprintf("JSON syntax error at line %d, column %d: %s", line, col, syntaxErr.Error())
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		line, col := offsetToLineCol(data, int(typeErr.Offset))
		return fmt.Sprintf("JSON type error at line %d, column %d: %s", line, col, typeErr.Error())
	}

	var decodeErr *toml.DecodeError
	if errors.As(err, &decodeErr) {
		row, col := decodeErr.Position()
		return fmt.Sprintf("TOML syntax error at line %d, column %d: %s", row, col, decodeErr.Error())
	}

	var parseErr *configfile.ParseError
	if errors.As(err, &parseErr) {
		return parseErr.Reason
	}
	return err.Error()
}

// offsetToLineCol converts a byte offset to 1-indexed line and column.
func offsetToLineCol(data []byte, offset int) (line, col int) {
	offset = max(0, min(offset, len(data)))

	line = 1
	lineStart := 0
	for i := range offset {
		if data[i] == '\n' {
			line++
			lineStart = i + 1
		}
	}
	return line, offset - lineStart + 1
}
