package configfile

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"maps"
	"slices"

	"github.com/pelletier/go-toml/v2"

	"github.com/thoreinstein/mcpm/internal/errors"
	"github.com/thoreinstein/mcpm/internal/logging"
	"github.com/thoreinstein/mcpm/internal/mcp"
	"github.com/thoreinstein/mcpm/pkg/fileutil"
)

// Read returns the servers defined in the file at path. A missing file is an
// empty map. Undecodable content is a *ParseError; a single entry that fails
// to decode is skipped with a warning.
func Read(ctx context.Context, path string) (map[string]mcp.ServerConfig, error) {
	data, ok, err := fileutil.ReadFileIfExists(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s", path)
	}
	if !ok {
		logging.FromContext(ctx).Debug("config file missing, treating as empty", "path", path)
		return map[string]mcp.ServerConfig{}, nil
	}
	return Parse(ctx, data, FormatFor(path), path)
}

// Parse decodes the server section of a whole config document. path is only
// used for messages.
func Parse(ctx context.Context, data []byte, format Format, path string) (map[string]mcp.ServerConfig, error) {
	var (
		entries map[string]json.RawMessage
		err     error
	)
	switch format {
	case FormatTOML:
		entries, err = tomlEntries(data, path)
	default:
		entries, err = jsonEntries(data, path)
	}
	if err != nil {
		return nil, err
	}

	logger := logging.FromContext(ctx)
	servers := make(map[string]mcp.ServerConfig, len(entries))
	for _, name := range slices.Sorted(maps.Keys(entries)) {
		var cfg mcp.ServerConfig
		if err := json.Unmarshal(entries[name], &cfg); err != nil {
			logger.Warn("skipping server entry that failed to decode",
				slog.String("path", path),
				slog.String("server", name),
				slog.String("error", err.Error()))
			continue
		}
		servers[name] = cfg
	}
	logger.Debug("read config file", "path", path, "format", format.String(), "servers", len(servers))
	return servers, nil
}

func jsonEntries(data []byte, path string) (map[string]json.RawMessage, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}

	doc, err := decodeJSONDocument(data)
	if err != nil {
		return nil, parseError(path, FormatJSON, err, "")
	}

	raw, ok := doc[JSONServersKey]
	if !ok || isJSONNull(raw) {
		return nil, nil
	}
	var entries map[string]json.RawMessage
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, parseError(path, FormatJSON, err, JSONServersKey+" is not an object")
	}
	return entries, nil
}

// tomlEntries converts each mcp_servers sub-table to JSON so both formats
// share one decoding path.
func tomlEntries(data []byte, path string) (map[string]json.RawMessage, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}

	var doc map[string]any
	if err := toml.Unmarshal(data, &doc); err != nil {
		return nil, parseError(path, FormatTOML, err, tomlReason(err))
	}

	raw, ok := doc[TOMLServersKey]
	if !ok {
		return nil, nil
	}
	table, ok := raw.(map[string]any)
	if !ok {
		return nil, parseError(path, FormatTOML, nil, TOMLServersKey+" is not a table")
	}

	entries := make(map[string]json.RawMessage, len(table))
	for name, v := range table {
		encoded, err := json.Marshal(tomlToJSONValue(v))
		if err != nil {
			return nil, parseError(path, FormatTOML, err, "server "+name+": "+err.Error())
		}
		entries[name] = encoded
	}
	return entries, nil
}

// decodeJSONDocument decodes a top-level object keeping every value raw.
func decodeJSONDocument(data []byte) (map[string]json.RawMessage, error) {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, errors.New("top-level value is not an object")
	}
	return doc, nil
}

func isJSONNull(v json.RawMessage) bool {
	return string(bytes.TrimSpace(v)) == "null"
}

func tomlReason(err error) string {
	var decodeErr *toml.DecodeError
	if errors.As(err, &decodeErr) {
		row, col := decodeErr.Position()
		return fmt.Sprintf("line %d, column %d: %s", row, col, decodeErr.Error())
	}
	return err.Error()
}
