package configfile

import (
	"bytes"
	"context"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"

	"github.com/thoreinstein/mcpm/internal/errors"
	"github.com/thoreinstein/mcpm/internal/logging"
	"github.com/thoreinstein/mcpm/internal/mcp"
	"github.com/thoreinstein/mcpm/internal/paths"
	"github.com/thoreinstein/mcpm/pkg/fileutil"
)

// newFilePerm applies to config files mcpm creates; existing files keep
// their mode.
const newFilePerm = 0o600

// Write replaces the server section of the file at path with servers and
// writes the whole document back atomically. The values of the rest of the
// document are preserved; the file is re-encoded, so JSON keys come out
// sorted and TOML comments are lost. An existing file that cannot be parsed is left untouched and a
// *ParseError is returned.
func Write(ctx context.Context, path string, servers map[string]mcp.ServerConfig) error {
	format := FormatFor(path)

	existing, _, err := fileutil.ReadFileIfExists(path)
	if err != nil {
		return errors.Wrapf(err, "reading %s", path)
	}

	data, err := Render(existing, format, servers)
	if err != nil {
		var pe *ParseError
		if errors.As(err, &pe) {
			pe.Path = path
		}
		return err
	}

	if err := paths.EnsureDir(filepath.Dir(path), 0); err != nil {
		return errors.Wrapf(err, "creating directory for %s", path)
	}
	if err := fileutil.AtomicWriteFile(path, data, fileutil.PermOf(path, newFilePerm)); err != nil {
		return errors.Wrapf(err, "writing %s", path)
	}

	logging.FromContext(ctx).Debug("wrote config file", "path", path, "format", format.String(), "servers", len(servers))
	return nil
}

// Render returns existing with its server section replaced by servers.
// existing may be empty.
func Render(existing []byte, format Format, servers map[string]mcp.ServerConfig) ([]byte, error) {
	if servers == nil {
		servers = map[string]mcp.ServerConfig{}
	}
	if format == FormatTOML {
		return renderTOML(existing, servers)
	}
	return renderJSON(existing, servers)
}

func renderJSON(existing []byte, servers map[string]mcp.ServerConfig) ([]byte, error) {
	doc := map[string]any{}
	if len(bytes.TrimSpace(existing)) > 0 {
		raw, err := decodeJSONDocument(existing)
		if err != nil {
			return nil, parseError("", FormatJSON, err, "")
		}
		for k, v := range raw {
			doc[k] = v
		}
	}
	doc[JSONServersKey] = servers
	return fileutil.MarshalJSON(doc)
}

func renderTOML(existing []byte, servers map[string]mcp.ServerConfig) ([]byte, error) {
	doc := map[string]any{}
	if len(bytes.TrimSpace(existing)) > 0 {
		if err := toml.Unmarshal(existing, &doc); err != nil {
			return nil, parseError("", FormatTOML, err, tomlReason(err))
		}
	}

	table := make(map[string]any, len(servers))
	for name, cfg := range servers {
		data, err := cfg.MarshalJSON()
		if err != nil {
			return nil, errors.Wrapf(err, "encoding server %q", name)
		}
		entry, err := configToTOML(data)
		if err != nil {
			return nil, errors.Wrapf(err, "converting server %q", name)
		}
		table[name] = entry
	}
	doc[TOMLServersKey] = table

	out, err := toml.Marshal(doc)
	if err != nil {
		return nil, errors.Wrap(err, "marshaling TOML")
	}
	out = dropBareHeader(out, TOMLServersKey)
	if len(out) > 0 && out[len(out)-1] != '\n' {
		out = append(out, '\n')
	}
	return out, nil
}

// dropBareHeader removes the "[key]" line go-toml emits above "[key.name]"
// tables. It is kept when the table has no children, so an empty server
// section still parses as a table.
func dropBareHeader(out []byte, key string) []byte {
	header := "[" + key + "]"
	lines := bytes.SplitAfter(out, []byte("\n"))
	for i, line := range lines {
		if string(bytes.TrimSpace(line)) != header {
			continue
		}
		for _, next := range lines[i+1:] {
			next = bytes.TrimSpace(next)
			if len(next) == 0 {
				continue
			}
			if bytes.HasPrefix(next, []byte("["+key+".")) {
				trimmed := append(lines[:i:i], lines[i+1:]...)
				return bytes.Join(trimmed, nil)
			}
			break
		}
		break
	}
	return out
}

// Marshal renders servers as a standalone document in format, the shape
// used by export: {"mcpServers": {...}} or an [mcp_servers] table.
func Marshal(servers map[string]mcp.ServerConfig, format Format) ([]byte, error) {
	return Render(nil, format, servers)
}
