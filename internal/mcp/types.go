package mcp

import (
	"bytes"
	"encoding/json"
	"maps"
	"net/url"
	"reflect"
	"slices"
	"strings"

	"github.com/thoreinstein/mcpm/internal/errors"
)

// Server type tags seen in the wild.
const (
	TypeStdio = "stdio"
	TypeHTTP  = "http"
	TypeSSE   = "sse"
)

// Transport describes an explicit transport block. Keys other than type, url
// and headers are kept verbatim.
type Transport struct {
	Type    string
	URL     string
	Headers map[string]string

	extra map[string]any
}

// Remote is one entry of a server's remotes list.
type Remote struct {
	Type    string            `json:"type"`
	URL     string            `json:"url"`
	Headers map[string]string `json:"headers,omitempty"`
}

// ServerConfig holds one MCP server's launch or connection parameters as they
// appear in a config file. Every key the struct does not model is kept in
// extra and written back unchanged.
type ServerConfig struct {
	Command   string
	Args      []string
	Cwd       string
	Env       map[string]string
	Transport *Transport
	Remotes   []Remote
	Type      string
	URL       string
	HTTPURL   string
	Headers   map[string]string

	extra map[string]any
}

var serverKnownKeys = []string{
	"command", "args", "cwd", "env", "transport", "remotes",
	"type", "url", "httpUrl", "headers",
}

// Extra returns the value of an unmodeled key.
func (c ServerConfig) Extra(key string) (any, bool) {
	v, ok := c.extra[key]
	return v, ok
}

// ExtraKeys returns the unmodeled keys in sorted order.
func (c ServerConfig) ExtraKeys() []string {
	return slices.Sorted(maps.Keys(c.extra))
}

// SetExtra stores an unmodeled key. A nil value removes it. Known keys are
// rejected so the typed fields stay authoritative.
func (c *ServerConfig) SetExtra(key string, value any) error {
	if slices.Contains(serverKnownKeys, key) {
		return errors.Newf("%q is a known field", key)
	}
	if value == nil {
		delete(c.extra, key)
		return nil
	}
	if c.extra == nil {
		c.extra = make(map[string]any)
	}
	c.extra[key] = value
	return nil
}

// IsValid reports whether the config names at least one way to reach the
// server. Blank means empty after trimming whitespace.
func (c ServerConfig) IsValid() bool {
	switch {
	case c.Type == TypeStdio && !blank(c.Command):
		return true
	case c.Type == TypeHTTP && !blank(c.URL):
		return true
	case !blank(c.HTTPURL):
		return true
	case c.Type == TypeSSE && !blank(c.URL):
		return true
	case !blank(c.URL):
		return true
	}
	return !blank(c.Command) || c.Transport != nil || len(c.Remotes) > 0
}

// Summary is a one-line description for listings and search.
func (c ServerConfig) Summary() string {
	if (c.Type == TypeHTTP || c.Type == TypeSSE) && !blank(c.URL) {
		return strings.ToUpper(c.Type) + " → " + urlHost(c.URL)
	}
	if !blank(c.Command) {
		return strings.TrimSpace(c.Command)
	}
	if !blank(c.HTTPURL) {
		return "HTTP → " + urlHost(c.HTTPURL)
	}
	if t := c.Transport; t != nil {
		host := "custom endpoint"
		if t.URL != "" {
			host = urlHost(t.URL)
		}
		return "Remote " + t.Type + " → " + host
	}
	if len(c.Remotes) > 0 {
		r := c.Remotes[0]
		return "Remote " + r.Type + " → " + urlHost(r.URL)
	}
	if c.URL != "" {
		return "Remote → " + urlHost(c.URL)
	}
	return "Custom server configuration"
}

// Clone returns a deep copy.
func (c ServerConfig) Clone() ServerConfig {
	out := c
	out.Args = slices.Clone(c.Args)
	out.Env = maps.Clone(c.Env)
	out.Headers = maps.Clone(c.Headers)
	if c.Transport != nil {
		t := *c.Transport
		t.Headers = maps.Clone(c.Transport.Headers)
		t.extra = cloneExtra(c.Transport.extra)
		out.Transport = &t
	}
	if c.Remotes != nil {
		out.Remotes = make([]Remote, len(c.Remotes))
		for i, r := range c.Remotes {
			r.Headers = maps.Clone(r.Headers)
			out.Remotes[i] = r
		}
	}
	out.extra = cloneExtra(c.extra)
	return out
}

// Equal reports whether c and other encode to the same document.
func (c ServerConfig) Equal(other ServerConfig) bool {
	a, errA := json.Marshal(c)
	b, errB := json.Marshal(other)
	if errA != nil || errB != nil {
		return reflect.DeepEqual(c, other)
	}
	return bytes.Equal(a, b)
}

// MarshalJSON writes known fields that are set plus every extra key.
// Empty args, env, remotes and headers are omitted.
func (c ServerConfig) MarshalJSON() ([]byte, error) {
	result := make(map[string]any, len(c.extra)+4)
	for k, v := range c.extra {
		result[k] = v
	}

	if c.Command != "" {
		result["command"] = c.Command
	}
	if len(c.Args) > 0 {
		result["args"] = c.Args
	}
	if c.Cwd != "" {
		result["cwd"] = c.Cwd
	}
	if len(c.Env) > 0 {
		result["env"] = c.Env
	}
	if c.Transport != nil {
		result["transport"] = c.Transport
	}
	if len(c.Remotes) > 0 {
		result["remotes"] = c.Remotes
	}
	if c.Type != "" {
		result["type"] = c.Type
	}
	if c.URL != "" {
		result["url"] = c.URL
	}
	if c.HTTPURL != "" {
		result["httpUrl"] = c.HTTPURL
	}
	if len(c.Headers) > 0 {
		result["headers"] = c.Headers
	}

	return marshalObject(result)
}

// UnmarshalJSON decodes known fields strictly and keeps the rest in extra.
// A known key holding the wrong JSON type is an error.
func (c *ServerConfig) UnmarshalJSON(data []byte) error {
	raw, err := decodeObject(data)
	if err != nil {
		return err
	}

	*c = ServerConfig{}
	fields := []struct {
		key string
		dst any
	}{
		{"command", &c.Command},
		{"args", &c.Args},
		{"cwd", &c.Cwd},
		{"env", &c.Env},
		{"transport", &c.Transport},
		{"remotes", &c.Remotes},
		{"type", &c.Type},
		{"url", &c.URL},
		{"httpUrl", &c.HTTPURL},
		{"headers", &c.Headers},
	}
	for _, f := range fields {
		v, ok := raw[f.key]
		if !ok {
			continue
		}
		delete(raw, f.key)
		if isNull(v) {
			continue
		}
		if err := json.Unmarshal(v, f.dst); err != nil {
			return errors.Wrapf(err, "field %q", f.key)
		}
	}
	for i, r := range c.Remotes {
		if r.Type == "" || r.URL == "" {
			return errors.Newf("remotes[%d]: type and url are required", i)
		}
	}

	c.extra, err = decodeExtra(raw)
	return err
}

// MarshalJSON writes type, url when set, headers when non-empty, and extras.
func (t Transport) MarshalJSON() ([]byte, error) {
	result := make(map[string]any, len(t.extra)+3)
	for k, v := range t.extra {
		result[k] = v
	}
	result["type"] = t.Type
	if t.URL != "" {
		result["url"] = t.URL
	}
	if len(t.Headers) > 0 {
		result["headers"] = t.Headers
	}
	return marshalObject(result)
}

// UnmarshalJSON requires a string type and keeps unknown keys.
func (t *Transport) UnmarshalJSON(data []byte) error {
	raw, err := decodeObject(data)
	if err != nil {
		return err
	}

	*t = Transport{}
	typ, ok := raw["type"]
	if !ok || isNull(typ) {
		return errors.New("transport: type is required")
	}
	if err := json.Unmarshal(typ, &t.Type); err != nil {
		return errors.Wrap(err, "transport: field \"type\"")
	}
	delete(raw, "type")

	if v, ok := raw["url"]; ok {
		if !isNull(v) {
			if err := json.Unmarshal(v, &t.URL); err != nil {
				return errors.Wrap(err, "transport: field \"url\"")
			}
		}
		delete(raw, "url")
	}
	if v, ok := raw["headers"]; ok {
		if !isNull(v) {
			if err := json.Unmarshal(v, &t.Headers); err != nil {
				return errors.Wrap(err, "transport: field \"headers\"")
			}
		}
		delete(raw, "headers")
	}

	t.extra, err = decodeExtra(raw)
	return err
}

// marshalObject encodes m with sorted keys and without HTML escaping, so
// URLs containing & survive a read/write cycle byte for byte.
func marshalObject(m map[string]any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(m); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

func decodeObject(data []byte) (map[string]json.RawMessage, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, errors.New("expected a JSON object")
	}
	return raw, nil
}

// decodeExtra turns leftover raw values into generic values. Numbers stay
// json.Number so integers survive untouched and JSON and TOML sources
// produce equal configs.
func decodeExtra(raw map[string]json.RawMessage) (map[string]any, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	out := make(map[string]any, len(raw))
	for k, v := range raw {
		dec := json.NewDecoder(bytes.NewReader(v))
		dec.UseNumber()
		var val any
		if err := dec.Decode(&val); err != nil {
			return nil, errors.Wrapf(err, "field %q", k)
		}
		out[k] = val
	}
	return out, nil
}

func cloneExtra(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return cloneExtra(t)
	case []any:
		out := make([]any, len(t))
		for i := range t {
			out[i] = cloneValue(t[i])
		}
		return out
	default:
		return v
	}
}

func isNull(v json.RawMessage) bool {
	return string(bytes.TrimSpace(v)) == "null"
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}

func urlHost(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Hostname() == "" {
		return raw
	}
	return u.Hostname()
}
