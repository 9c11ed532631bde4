package validator

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/thoreinstein/mcpm/internal/mcp"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		servers map[string]mcp.ServerConfig
		want    map[string]string
	}{
		{
			name:    "nil input",
			servers: nil,
			want:    map[string]string{},
		},
		{
			name: "all valid",
			servers: map[string]mcp.ServerConfig{
				"fs":  {Command: "npx"},
				"web": {Type: mcp.TypeHTTP, URL: "https://x.dev"},
			},
			want: map[string]string{},
		},
		{
			name: "mixed batch",
			servers: map[string]mcp.ServerConfig{
				"fs":     {Command: "npx"},
				"empty":  {},
				"stdio":  {Type: mcp.TypeStdio},
				"http":   {Type: mcp.TypeHTTP, URL: "  "},
				"   ":    {Command: "npx"},
				"remote": {Remotes: []mcp.Remote{{Type: "sse", URL: "https://r.dev"}}},
			},
			want: map[string]string{
				"empty": ErrUnreachable.Error(),
				"stdio": "stdio server requires a command",
				"http":  "http server requires a url",
				"   ":   ErrMissingServerName.Error(),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Validate(tt.servers)
			if got == nil {
				t.Fatal("Validate() returned nil map")
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Validate() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestReason(t *testing.T) {
	tests := []struct {
		name string
		cfg  mcp.ServerConfig
		want string
	}{
		{"valid command", mcp.ServerConfig{Command: "uvx"}, ""},
		{"valid httpUrl", mcp.ServerConfig{HTTPURL: "https://h.dev"}, ""},
		{"sse without url", mcp.ServerConfig{Type: mcp.TypeSSE}, "sse server requires a url"},
		{"args only", mcp.ServerConfig{Args: []string{"-y"}}, ErrUnreachable.Error()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Reason(tt.cfg); got != tt.want {
				t.Errorf("Reason() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCheck(t *testing.T) {
	tests := []struct {
		name         string
		server       string
		cfg          mcp.ServerConfig
		wantErrors   int
		wantWarnings int
		wantErr      error
	}{
		{
			name:   "clean",
			server: "fs",
			cfg:    mcp.ServerConfig{Command: "npx", Env: map[string]string{"A": "1"}},
		},
		{
			name:       "unreachable",
			server:     "x",
			cfg:        mcp.ServerConfig{},
			wantErrors: 1,
			wantErr:    ErrUnreachable,
		},
		{
			name:       "blank name",
			server:     "",
			cfg:        mcp.ServerConfig{Command: "npx"},
			wantErrors: 1,
			wantErr:    ErrMissingServerName,
		},
		{
			name:         "unknown type",
			server:       "ws",
			cfg:          mcp.ServerConfig{Type: "websocket", URL: "wss://ws.dev"},
			wantWarnings: 1,
			wantErr:      ErrUnknownType,
		},
		{
			name:         "command and url",
			server:       "both",
			cfg:          mcp.ServerConfig{Command: "npx", URL: "https://x.dev"},
			wantWarnings: 1,
		},
		{
			name:         "relative url",
			server:       "rel",
			cfg:          mcp.ServerConfig{URL: "/mcp"},
			wantWarnings: 1,
			wantErr:      ErrInvalidURL,
		},
		{
			name:         "empty env key",
			server:       "env",
			cfg:          mcp.ServerConfig{Command: "npx", Env: map[string]string{"": "x"}},
			wantWarnings: 1,
			wantErr:      ErrEmptyEnvKey,
		},
		{
			name:         "empty transport header key",
			server:       "tr",
			cfg:          mcp.ServerConfig{Transport: &mcp.Transport{Type: "sse", URL: "https://t.dev", Headers: map[string]string{" ": "x"}}},
			wantWarnings: 1,
			wantErr:      ErrEmptyHeaderKey,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			issues := Check(tt.server, tt.cfg)

			var errCount int
			for _, issue := range issues {
				if issue.Severity == SeverityError {
					errCount++
				}
			}
			if errCount != tt.wantErrors {
				t.Errorf("errors = %d, want %d: %v", errCount, tt.wantErrors, issues)
			}
			if got := len(Warnings(issues)); got != tt.wantWarnings {
				t.Errorf("warnings = %d, want %d: %v", got, tt.wantWarnings, issues)
			}
			if HasErrors(issues) != (tt.wantErrors > 0) {
				t.Errorf("HasErrors() = %v", HasErrors(issues))
			}
			if tt.wantErr != nil {
				found := false
				for _, issue := range issues {
					if errors.Is(issue, tt.wantErr) {
						found = true
					}
				}
				if !found {
					t.Errorf("no issue wraps %v: %v", tt.wantErr, issues)
				}
			}
			if tt.wantErrors == 0 && tt.wantWarnings == 0 && issues != nil {
				t.Errorf("Check() = %v, want nil", issues)
			}
		})
	}
}

func TestValidationError_Error(t *testing.T) {
	tests := []struct {
		err  *ValidationError
		want string
	}{
		{&ValidationError{ServerName: "fs", Field: "env", Message: "bad", Severity: SeverityWarning}, `warning: server "fs" field "env": bad`},
		{&ValidationError{ServerName: "fs", Message: "bad"}, `error: server "fs": bad`},
		{&ValidationError{Field: "name", Message: "bad"}, `error: field "name": bad`},
		{&ValidationError{Message: "bad"}, "error: bad"},
	}

	for _, tt := range tests {
		if got := tt.err.Error(); got != tt.want {
			t.Errorf("Error() = %q, want %q", got, tt.want)
		}
		if !strings.Contains(tt.err.Error(), tt.err.Message) {
			t.Errorf("Error() %q lacks message", tt.err.Error())
		}
	}
}
