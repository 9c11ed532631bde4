// Package configfile reads and writes the MCP server section of a client
// config file. JSON files keep servers under "mcpServers", TOML files under
// the "mcp_servers" table; every other top-level key is left alone.
package configfile

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Format is the on-disk encoding of a config file.
type Format int

const (
	FormatJSON Format = iota
	FormatTOML
)

// Keys holding the server map in each format.
const (
	JSONServersKey = "mcpServers"
	TOMLServersKey = "mcp_servers"
)

// FormatFor picks the format by extension: .toml is TOML, anything else JSON.
func FormatFor(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		return FormatTOML
	}
	return FormatJSON
}

func (f Format) String() string {
	switch f {
	case FormatJSON:
		return "json"
	case FormatTOML:
		return "toml"
	default:
		return fmt.Sprintf("format(%d)", int(f))
	}
}

// ParseError reports a config file whose content could not be decoded.
type ParseError struct {
	Path   string
	Format Format
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("parsing %s: %s", e.Format, e.Reason)
	}
	return fmt.Sprintf("parsing %s file %s: %s", e.Format, e.Path, e.Reason)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

func parseError(path string, format Format, err error, reason string) *ParseError {
	if reason == "" && err != nil {
		reason = err.Error()
	}
	return &ParseError{Path: path, Format: format, Reason: reason, Err: err}
}
