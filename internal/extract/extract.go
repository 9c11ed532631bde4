// Package extract turns text pasted by a user into server configs.
//
// JSON input is parsed forgivingly: typographic quotes are straightened,
// missing outer braces are added, trailing commas are dropped, and a
// surrounding {"mcpServers": ...} wrapper is optional. TOML input must be a
// document with an [mcp_servers] table.
package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/thoreinstein/mcpm/internal/configfile"
	"github.com/thoreinstein/mcpm/internal/errors"
	"github.com/thoreinstein/mcpm/internal/mcp"
)

// ErrNoServers is returned when the input parses but contains no server.
var ErrNoServers = errors.New("no servers found")

// ExtractError reports input that could not be parsed at all.
type ExtractError struct {
	Format configfile.Format
	Reason string
	Err    error
}

func (e *ExtractError) Error() string {
	return fmt.Sprintf("cannot parse %s input: %s", e.Format, e.Reason)
}

func (e *ExtractError) Unwrap() error {
	return e.Err
}

var trailingComma = regexp.MustCompile(`,\s*([}\]])`)

var quoteReplacer = strings.NewReplacer(
	"“", `"`, "”", `"`, "„", `"`, "«", `"`, "»", `"`,
	"‘", "'", "’", "'", "‚", "'", "‹", "'", "›", "'",
)

// NormalizeQuotes replaces typographic quotes with their ASCII forms.
func NormalizeQuotes(s string) string {
	return quoteReplacer.Replace(s)
}

// Servers dispatches on format.
func Servers(ctx context.Context, blob string, format configfile.Format) (map[string]mcp.ServerConfig, error) {
	if format == configfile.FormatTOML {
		return TOML(ctx, blob)
	}
	return JSON(blob)
}

// JSON extracts servers from a pasted JSON object or fragment such as
//
//	"fs": {"command": "npx", "args": ["-y", "server-filesystem"]},
//
// Entries that are not objects are skipped.
func JSON(blob string) (map[string]mcp.ServerConfig, error) {
	doc, err := decodeForgiving(blob)
	if err != nil {
		return nil, err
	}

	entries := doc
	if wrapped, ok := doc[configfile.JSONServersKey].(map[string]any); ok {
		entries = wrapped
	}

	servers := make(map[string]mcp.ServerConfig, len(entries))
	for name, v := range entries {
		dict, ok := v.(map[string]any)
		if !ok {
			continue
		}
		cfg, err := decodeEntry(dict)
		if err != nil {
			continue
		}
		servers[name] = cfg
	}
	if len(servers) == 0 {
		return nil, ErrNoServers
	}
	return servers, nil
}

// TOML extracts servers from a pasted document with an [mcp_servers] table.
func TOML(ctx context.Context, blob string) (map[string]mcp.ServerConfig, error) {
	data := []byte(strings.TrimSpace(NormalizeQuotes(blob)))

	var doc map[string]any
	if err := toml.Unmarshal(data, &doc); err != nil {
		return nil, &ExtractError{Format: configfile.FormatTOML, Reason: err.Error(), Err: err}
	}
	if _, ok := doc[configfile.TOMLServersKey].(map[string]any); !ok {
		return nil, &ExtractError{Format: configfile.FormatTOML, Reason: "missing [" + configfile.TOMLServersKey + "] table"}
	}

	servers, err := configfile.Parse(ctx, data, configfile.FormatTOML, "")
	if err != nil {
		return nil, &ExtractError{Format: configfile.FormatTOML, Reason: err.Error(), Err: err}
	}
	if len(servers) == 0 {
		return nil, ErrNoServers
	}
	return servers, nil
}

// Single decodes one server config, as typed into an edit buffer. JSON gets
// the same forgiving treatment as in Servers; TOML may be a bare table of keys or
// a document holding exactly one [mcp_servers.<name>] table.
func Single(ctx context.Context, blob string, format configfile.Format) (mcp.ServerConfig, error) {
	if format == configfile.FormatTOML {
		return singleTOML(ctx, blob)
	}

	doc, err := decodeForgiving(blob)
	if err != nil {
		return mcp.ServerConfig{}, err
	}
	if wrapped, ok := doc[configfile.JSONServersKey].(map[string]any); ok {
		if len(wrapped) != 1 {
			return mcp.ServerConfig{}, &ExtractError{Format: configfile.FormatJSON, Reason: "expected exactly one server"}
		}
		for _, v := range wrapped {
			dict, ok := v.(map[string]any)
			if !ok {
				return mcp.ServerConfig{}, &ExtractError{Format: configfile.FormatJSON, Reason: "server entry is not an object"}
			}
			doc = dict
		}
	}
	cfg, err := decodeEntry(doc)
	if err != nil {
		return mcp.ServerConfig{}, &ExtractError{Format: configfile.FormatJSON, Reason: err.Error(), Err: err}
	}
	return cfg, nil
}

func singleTOML(ctx context.Context, blob string) (mcp.ServerConfig, error) {
	data := []byte(strings.TrimSpace(NormalizeQuotes(blob)))

	var doc map[string]any
	if err := toml.Unmarshal(data, &doc); err != nil {
		return mcp.ServerConfig{}, &ExtractError{Format: configfile.FormatTOML, Reason: err.Error(), Err: err}
	}

	if _, ok := doc[configfile.TOMLServersKey]; !ok {
		wrapped, err := toml.Marshal(map[string]any{configfile.TOMLServersKey: map[string]any{"_": doc}})
		if err != nil {
			return mcp.ServerConfig{}, &ExtractError{Format: configfile.FormatTOML, Reason: err.Error(), Err: err}
		}
		data = wrapped
	}

	servers, err := configfile.Parse(ctx, data, configfile.FormatTOML, "")
	if err != nil {
		return mcp.ServerConfig{}, &ExtractError{Format: configfile.FormatTOML, Reason: err.Error(), Err: err}
	}
	if len(servers) != 1 {
		return mcp.ServerConfig{}, &ExtractError{Format: configfile.FormatTOML, Reason: fmt.Sprintf("expected exactly one server, found %d", len(servers))}
	}
	for _, cfg := range servers {
		return cfg, nil
	}
	return mcp.ServerConfig{}, ErrNoServers
}

func decodeForgiving(blob string) (map[string]any, error) {
	s := NormalizeQuotes(strings.TrimSpace(blob))
	if s == "" {
		return nil, ErrNoServers
	}
	if !strings.HasPrefix(s, "{") {
		s = "{" + s + "}"
	}
	s = trailingComma.ReplaceAllString(s, "$1")

	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()
	var doc map[string]any
	if err := dec.Decode(&doc); err != nil {
		return nil, &ExtractError{Format: configfile.FormatJSON, Reason: err.Error(), Err: err}
	}
	if doc == nil {
		return nil, &ExtractError{Format: configfile.FormatJSON, Reason: "top-level value is not an object"}
	}
	return doc, nil
}

// decodeEntry cleans up loosely typed fields and decodes the result through
// the regular ServerConfig decoder, so unknown keys are kept.
func decodeEntry(dict map[string]any) (mcp.ServerConfig, error) {
	clean := normalizeEntry(dict)

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(clean); err != nil {
		return mcp.ServerConfig{}, err
	}

	var cfg mcp.ServerConfig
	if err := json.Unmarshal(buf.Bytes(), &cfg); err != nil {
		return mcp.ServerConfig{}, err
	}
	return cfg, nil
}
