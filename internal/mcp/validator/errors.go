// Package validator checks MCP server configs before they are imported,
// edited or written back.
package validator

import (
	"fmt"

	"github.com/thoreinstein/mcpm/internal/errors"
)

// Sentinel errors for validation failures.
var (
	// ErrMissingServerName indicates a blank server name.
	ErrMissingServerName = errors.New("server name is required")

	// ErrUnreachable indicates the config names no command, URL, transport
	// or remote.
	ErrUnreachable = errors.New("server has no command, url, transport or remotes")

	// ErrUnknownType indicates an unrecognized type tag.
	ErrUnknownType = errors.New("unknown server type")

	// ErrEmptyEnvKey indicates an environment variable has an empty key.
	ErrEmptyEnvKey = errors.New("environment variable key is empty")

	// ErrEmptyHeaderKey indicates an HTTP header has an empty key.
	ErrEmptyHeaderKey = errors.New("header key is empty")

	// ErrInvalidURL indicates a URL that does not parse as absolute.
	ErrInvalidURL = errors.New("invalid URL")
)

// Severity indicates whether a validation issue is an error or warning.
type Severity int

const (
	// SeverityError blocks import and edit unless forced.
	SeverityError Severity = iota

	// SeverityWarning is reported but never blocks.
	SeverityWarning
)

func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	default:
		return "unknown"
	}
}

// ValidationError represents a single validation issue with context.
type ValidationError struct {
	// ServerName identifies which server has the issue.
	ServerName string

	// Field identifies which field has the issue. Empty for whole-config issues.
	Field string

	// Message is a human-readable description of the problem.
	Message string

	// Severity indicates whether this is an error or warning.
	Severity Severity

	// Err is the underlying sentinel error, if any.
	Err error
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	prefix := e.Severity.String()

	if e.ServerName != "" && e.Field != "" {
		return fmt.Sprintf("%s: server %q field %q: %s", prefix, e.ServerName, e.Field, e.Message)
	}
	if e.ServerName != "" {
		return fmt.Sprintf("%s: server %q: %s", prefix, e.ServerName, e.Message)
	}
	if e.Field != "" {
		return fmt.Sprintf("%s: field %q: %s", prefix, e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", prefix, e.Message)
}

// Unwrap returns the underlying sentinel error.
func (e *ValidationError) Unwrap() error {
	return e.Err
}

// HasErrors returns true if any of the validation errors have error severity.
func HasErrors(errs []*ValidationError) bool {
	for _, err := range errs {
		if err.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Warnings returns only the issues with warning severity.
func Warnings(errs []*ValidationError) []*ValidationError {
	var result []*ValidationError
	for _, err := range errs {
		if err.Severity == SeverityWarning {
			result = append(result, err)
		}
	}
	return result
}
