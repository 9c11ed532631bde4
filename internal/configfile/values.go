package configfile

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// tomlToJSONValue prepares a decoded TOML value for JSON encoding. Numbers
// become json.Number; integral floats keep a ".0" so they stay floats when
// written back as TOML.
func tomlToJSONValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = tomlToJSONValue(val)
		}
		return out
	case []map[string]any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = tomlToJSONValue(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = tomlToJSONValue(val)
		}
		return out
	case int64:
		return json.Number(strconv.FormatInt(t, 10))
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return strconv.FormatFloat(t, 'g', -1, 64)
		}
		s := strconv.FormatFloat(t, 'f', -1, 64)
		if !strings.ContainsAny(s, ".eE") {
			s += ".0"
		}
		return json.Number(s)
	default:
		return v
	}
}

// jsonToTOMLValue converts a generic JSON value to something go-toml can
// encode. JSON null has no TOML form, so nulls are dropped from tables and
// arrays.
func jsonToTOMLValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			if val == nil {
				continue
			}
			out[k] = jsonToTOMLValue(val)
		}
		return out
	case []any:
		out := make([]any, 0, len(t))
		for _, val := range t {
			if val == nil {
				continue
			}
			out = append(out, jsonToTOMLValue(val))
		}
		return out
	case json.Number:
		s := t.String()
		if !strings.ContainsAny(s, ".eE") {
			if i, err := t.Int64(); err == nil {
				return i
			}
		}
		if f, err := t.Float64(); err == nil {
			return f
		}
		return s
	default:
		return v
	}
}

// configToTOML renders one server as a generic TOML table.
func configToTOML(data []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var m map[string]any
	if err := dec.Decode(&m); err != nil {
		return nil, err
	}
	return jsonToTOMLValue(m).(map[string]any), nil
}
