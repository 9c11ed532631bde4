// Package redact masks secrets in server environments, headers and URLs
// before they reach terminal output or log lines.
package redact

import (
	"net/url"
	"strings"
)

// SecretKeyPatterns are substrings of env or header names that mark the value
// as sensitive. Matching is case-insensitive.
var SecretKeyPatterns = []string{
	"TOKEN",
	"KEY",
	"SECRET",
	"PASSWORD",
	"AUTH",
	"CREDENTIAL",
	"PRIVATE",
	"BEARER",
}

// TokenPrefixes are well known API token prefixes. A value starting with one
// of them is masked regardless of its key.
var TokenPrefixes = []string{
	"ghp_",  // GitHub personal access token
	"gho_",  // GitHub OAuth token
	"ghu_",  // GitHub user-to-server token
	"ghs_",  // GitHub server-to-server token
	"ghr_",  // GitHub refresh token
	"sk-",   // OpenAI/Anthropic keys
	"pk-",   // Stripe-style publishable keys
	"AKIA",  // AWS access key
	"xoxb-", // Slack bot token
	"xoxp-", // Slack user token
	"xoxa-", // Slack app token
	"xoxr-", // Slack refresh token
	"Bearer ",
}

const masked = "********"

// Map returns a copy of m with sensitive values masked.
// Works for both env maps and header maps.
func Map(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}

	out := make(map[string]string, len(m))
	for k, v := range m {
		if ShouldMask(k) || ContainsTokenPrefix(v) {
			out[k] = Value(v)
		} else {
			out[k] = v
		}
	}
	return out
}

// Value masks s, keeping the last four characters when s is long enough
// that they do not give it away.
func Value(s string) string {
	if len(s) <= 4 {
		return masked
	}
	return "****" + s[len(s)-4:]
}

// URL hides the password part of user info and the values of query
// parameters whose names look sensitive. Unparseable input is returned as is.
func URL(rawURL string) string {
	if rawURL == "" {
		return rawURL
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}

	changed := false
	if parsed.User != nil {
		if password, ok := parsed.User.Password(); ok && password != "" {
			parsed.User = url.UserPassword(parsed.User.Username(), Value(password))
			changed = true
		}
	}

	if parsed.RawQuery != "" {
		q := parsed.Query()
		for k, vals := range q {
			if !ShouldMask(k) {
				continue
			}
			for i := range vals {
				vals[i] = Value(vals[i])
			}
			q[k] = vals
			changed = true
		}
		if changed {
			parsed.RawQuery = q.Encode()
		}
	}

	if !changed {
		return rawURL
	}
	return parsed.String()
}

// Args masks arguments that carry a token value, either as a bare token
// (`ghp_...`) or as the value half of `--api-key=...`.
func Args(args []string) []string {
	if args == nil {
		return nil
	}
	out := make([]string, len(args))
	for i, a := range args {
		switch {
		case ContainsTokenPrefix(a):
			out[i] = Value(a)
		case strings.HasPrefix(a, "-") && strings.Contains(a, "="):
			k, v, _ := strings.Cut(a, "=")
			if ShouldMask(strings.TrimLeft(k, "-")) {
				out[i] = k + "=" + Value(v)
			} else {
				out[i] = a
			}
		default:
			out[i] = a
		}
	}
	return out
}

// ShouldMask reports whether key names a sensitive value.
func ShouldMask(key string) bool {
	upper := strings.ToUpper(key)
	for _, pattern := range SecretKeyPatterns {
		if strings.Contains(upper, pattern) {
			return true
		}
	}
	return false
}

// ContainsTokenPrefix reports whether value starts with a known token prefix.
func ContainsTokenPrefix(value string) bool {
	for _, prefix := range TokenPrefixes {
		if strings.HasPrefix(value, prefix) {
			return true
		}
	}
	return false
}
