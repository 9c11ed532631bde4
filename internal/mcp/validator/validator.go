package validator

import (
	"net/url"
	"slices"
	"strings"

	"github.com/thoreinstein/mcpm/internal/mcp"
)

// knownTypes are the type tags clients understand. Anything else is
// passed through but flagged.
var knownTypes = []string{mcp.TypeStdio, mcp.TypeHTTP, mcp.TypeSSE, "streamable-http", ""}

// Validate returns a name to reason entry for every config that would be
// rejected by import or edit. It returns an empty, non-nil map when all are valid.
func Validate(servers map[string]mcp.ServerConfig) map[string]string {
	out := make(map[string]string)
	for name, cfg := range servers {
		if strings.TrimSpace(name) == "" {
			out[name] = ErrMissingServerName.Error()
			continue
		}
		if reason := Reason(cfg); reason != "" {
			out[name] = reason
		}
	}
	return out
}

// Reason returns why cfg is rejected, or "" when it is accepted.
func Reason(cfg mcp.ServerConfig) string {
	if cfg.IsValid() {
		return ""
	}
	switch cfg.Type {
	case mcp.TypeStdio:
		return "stdio server requires a command"
	case mcp.TypeHTTP, mcp.TypeSSE:
		return cfg.Type + " server requires a url"
	}
	return ErrUnreachable.Error()
}

// Check returns every issue found in one server: the blocking error from
// Reason plus non-blocking warnings. It returns nil for a clean config.
func Check(name string, cfg mcp.ServerConfig) []*ValidationError {
	var errs []*ValidationError

	if strings.TrimSpace(name) == "" {
		errs = append(errs, &ValidationError{
			Field:    "name",
			Message:  ErrMissingServerName.Error(),
			Severity: SeverityError,
			Err:      ErrMissingServerName,
		})
	}

	if reason := Reason(cfg); reason != "" {
		errs = append(errs, &ValidationError{
			ServerName: name,
			Message:    reason,
			Severity:   SeverityError,
			Err:        ErrUnreachable,
		})
	}

	if !slices.Contains(knownTypes, cfg.Type) {
		errs = append(errs, &ValidationError{
			ServerName: name,
			Field:      "type",
			Message:    "unrecognized type " + cfg.Type,
			Severity:   SeverityWarning,
			Err:        ErrUnknownType,
		})
	}

	if cfg.Command != "" && cfg.URL != "" {
		errs = append(errs, &ValidationError{
			ServerName: name,
			Message:    "server has both command and url; clients differ on which wins",
			Severity:   SeverityWarning,
		})
	}

	errs = append(errs, checkURL(name, "url", cfg.URL)...)
	errs = append(errs, checkURL(name, "httpUrl", cfg.HTTPURL)...)
	if cfg.Transport != nil {
		errs = append(errs, checkURL(name, "transport.url", cfg.Transport.URL)...)
		errs = append(errs, checkKeys(name, "transport.headers", cfg.Transport.Headers, ErrEmptyHeaderKey)...)
	}
	for _, r := range cfg.Remotes {
		errs = append(errs, checkURL(name, "remotes.url", r.URL)...)
	}

	errs = append(errs, checkKeys(name, "env", cfg.Env, ErrEmptyEnvKey)...)
	errs = append(errs, checkKeys(name, "headers", cfg.Headers, ErrEmptyHeaderKey)...)

	if len(errs) == 0 {
		return nil
	}
	return errs
}

func checkURL(name, field, raw string) []*ValidationError {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	u, err := url.Parse(raw)
	if err == nil && u.Scheme != "" && u.Host != "" {
		return nil
	}
	return []*ValidationError{{
		ServerName: name,
		Field:      field,
		Message:    "not an absolute URL: " + raw,
		Severity:   SeverityWarning,
		Err:        ErrInvalidURL,
	}}
}

func checkKeys(name, field string, m map[string]string, sentinel error) []*ValidationError {
	for key := range m {
		if strings.TrimSpace(key) == "" {
			return []*ValidationError{{
				ServerName: name,
				Field:      field,
				Message:    sentinel.Error(),
				Severity:   SeverityWarning,
				Err:        sentinel,
			}}
		}
	}
	return nil
}
