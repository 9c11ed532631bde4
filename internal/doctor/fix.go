package doctor

import (
	"fmt"
	"os"

	"github.com/thoreinstein/mcpm/internal/errors"
)

// Fixer is an optional interface for checks that can repair what they find.
// Both methods must be called after Run.
type Fixer interface {
	// CanFix returns true if the last run found fixable issues.
	CanFix() bool

	// Fix attempts to repair the fixable issues and reports each attempt.
	Fix() []FixResult
}

// FixResult describes the outcome of one fix attempt.
type FixResult struct {
	// Path is the file or directory that was targeted.
	Path        string
	Fixed       bool
	Description string
	Error       error
}

// Config and cache files can hold API keys in env maps and headers, so the
// target modes are owner-only. These match what mcpm writes itself.
const (
	secureFilePerm os.FileMode = 0o600
	secureDirPerm  os.FileMode = 0o700
)

// PermissionFixer chmods the paths a PermissionCheck flagged.
type PermissionFixer struct {
	issues []pathIssue
}

// CanFix returns true if there are any fixable permission issues.
func (f *PermissionFixer) CanFix() bool {
	return f.CountFixable() > 0
}

// Fix applies the target mode to every fixable path.
func (f *PermissionFixer) Fix() []FixResult {
	results := make([]FixResult, 0, f.CountFixable())
	for _, issue := range f.issues {
		if issue.Fixable {
			results = append(results, f.fixIssue(issue))
		}
	}
	return results
}

func (f *PermissionFixer) fixIssue(issue pathIssue) FixResult {
	result := FixResult{Path: issue.Path}

	var targetPerm os.FileMode
	switch issue.Type {
	case typeFile:
		targetPerm = secureFilePerm
	case typeDir:
		targetPerm = secureDirPerm
	default:
		result.Description = "unknown type: " + issue.Type
		result.Error = errors.Newf("cannot fix unknown type: %s", issue.Type)
		return result
	}

	if err := os.Chmod(issue.Path, targetPerm); err != nil {
		result.Description = fmt.Sprintf("failed to chmod %04o: %v", targetPerm, err)
		result.Error = errors.Wrapf(err, "chmod %04o %s", targetPerm, issue.Path)
		return result
	}

	result.Fixed = true
	result.Description = fmt.Sprintf("chmod %04o", targetPerm)
	return result
}

func (f *PermissionFixer) setIssues(issues []pathIssue) {
	f.issues = issues
}

// CountFixable returns the number of fixable issues.
func (f *PermissionFixer) CountFixable() int {
	count := 0
	for _, issue := range f.issues {
		if issue.Fixable {
			count++
		}
	}
	return count
}
