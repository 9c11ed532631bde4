package extract

// normalizeEntry returns a copy of dict with the loose shapes people paste
// rewritten into the ones ServerConfig accepts:
//   - command given as an array becomes command plus args
//   - "environment" is an alias for "env" and wins when both are present
//   - env and header maps keep only string values
//   - string fields of the wrong type are dropped
//   - transports without a string type and remotes without type and url
//     are dropped
func normalizeEntry(dict map[string]any) map[string]any {
	out := make(map[string]any, len(dict))
	for k, v := range dict {
		out[k] = v
	}

	if cmd, ok := out["command"].([]any); ok {
		parts := stringsOf(cmd)
		delete(out, "command")
		if len(parts) > 0 {
			out["command"] = parts[0]
			if len(parts) > 1 {
				out["args"] = toAny(parts[1:])
			}
		}
	}

	if args, ok := out["args"].([]any); ok {
		out["args"] = toAny(stringsOf(args))
	} else if _, present := out["args"]; present {
		delete(out, "args")
	}

	env, hasEnvironment := out["environment"]
	delete(out, "environment")
	if !hasEnvironment {
		env = out["env"]
	}
	if m := stringMap(env); m != nil {
		out["env"] = m
	} else {
		delete(out, "env")
	}

	if _, present := out["headers"]; present {
		if m := stringMap(out["headers"]); m != nil {
			out["headers"] = m
		} else {
			delete(out, "headers")
		}
	}

	for _, key := range []string{"type", "url", "httpUrl", "cwd"} {
		if v, present := out[key]; present {
			if _, ok := v.(string); !ok {
				delete(out, key)
			}
		}
	}

	if t, present := out["transport"]; present {
		if tr := normalizeTransport(t); tr != nil {
			out["transport"] = tr
		} else {
			delete(out, "transport")
		}
	}

	if r, present := out["remotes"]; present {
		if remotes := normalizeRemotes(r); len(remotes) > 0 {
			out["remotes"] = remotes
		} else {
			delete(out, "remotes")
		}
	}

	return out
}

func normalizeTransport(v any) map[string]any {
	dict, ok := v.(map[string]any)
	if !ok {
		return nil
	}
	typ, ok := dict["type"].(string)
	if !ok {
		return nil
	}
	out := map[string]any{"type": typ}
	if u, ok := dict["url"].(string); ok {
		out["url"] = u
	}
	if h := stringMap(dict["headers"]); h != nil {
		out["headers"] = h
	}
	return out
}

func normalizeRemotes(v any) []any {
	list, ok := v.([]any)
	if !ok {
		return nil
	}
	var out []any
	for _, item := range list {
		dict, ok := item.(map[string]any)
		if !ok {
			continue
		}
		typ, okType := dict["type"].(string)
		u, okURL := dict["url"].(string)
		if !okType || !okURL || typ == "" || u == "" {
			continue
		}
		remote := map[string]any{"type": typ, "url": u}
		if h := stringMap(dict["headers"]); h != nil {
			remote["headers"] = h
		}
		out = append(out, remote)
	}
	return out
}

func stringMap(v any) map[string]any {
	dict, ok := v.(map[string]any)
	if !ok {
		return nil
	}
	out := make(map[string]any, len(dict))
	for k, val := range dict {
		if s, ok := val.(string); ok {
			out[k] = s
		}
	}
	return out
}

func stringsOf(list []any) []string {
	out := make([]string, 0, len(list))
	for _, v := range list {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func toAny(list []string) []any {
	out := make([]any, len(list))
	for i, s := range list {
		out[i] = s
	}
	return out
}
