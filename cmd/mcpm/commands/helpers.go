package commands

import (
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"golang.org/x/term"

	"github.com/thoreinstein/mcpm/internal/cli/prompt"
	"github.com/thoreinstein/mcpm/internal/errors"
	"github.com/thoreinstein/mcpm/internal/manager"
	"github.com/thoreinstein/mcpm/internal/mcp"
	"github.com/thoreinstein/mcpm/internal/redact"
	"github.com/thoreinstein/mcpm/pkg/fileutil"
)

// Output colors. fatih/color turns them off when stdout is not a terminal
// or NO_COLOR is set.
var (
	bold   = color.New(color.Bold).SprintFunc()
	cyan   = color.New(color.FgCyan, color.Bold).SprintFunc()
	green  = color.New(color.FgGreen).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
	gray   = color.New(color.FgHiBlack).SprintFunc()
)

// newSelector builds the prompt used for pickers and confirmations.
// Tests replace it to feed answers.
var newSelector = prompt.NewSelector

// truncate shortens a string to maxLen characters, adding "..." if truncated.
func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}

// serverArg returns args[0] or, when no name was given, lets the user pick
// one of the servers visible in the active universe.
func serverArg(m *manager.Manager, args []string, promptText string) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}

	servers := m.Filtered(manager.FilterAll, "")
	items := make([]prompt.Item, len(servers))
	for i, s := range servers {
		items[i] = prompt.Item{
			Name:    s.Name,
			Label:   s.Name + "  " + s.Config.Summary(),
			Preview: configJSON(redactConfig(s.Config)),
		}
	}

	item, err := newSelector().Select(promptText, items)
	if err != nil {
		if errors.Is(err, prompt.ErrNoItems) {
			return "", errors.NewUserError(errors.Wrap(errors.ErrMissingName, "no servers in the active universe"), "Add one with: mcpm add")
		}
		return "", errors.NewUserError(err, "Pass the server name as an argument")
	}
	return item.Name, nil
}

// readInput returns the text to parse for add and edit: the arguments
// joined, the contents of file ("-" for stdin), or stdin when it is not a
// terminal. ok is false when none of those apply.
func readInput(in io.Reader, args []string, file string) (text string, ok bool, err error) {
	switch {
	case file == "-":
		data, err := io.ReadAll(in)
		if err != nil {
			return "", false, errors.Wrap(err, "reading stdin")
		}
		return string(data), true, nil
	case file != "":
		data, err := os.ReadFile(file)
		if err != nil {
			return "", false, errors.NewUserError(errors.Wrapf(err, "reading %s", file), "")
		}
		return string(data), true, nil
	case len(args) > 0:
		return strings.Join(args, " "), true, nil
	}

	if f, isFile := in.(*os.File); isFile && term.IsTerminal(int(f.Fd())) {
		return "", false, nil
	}
	data, err := io.ReadAll(in)
	if err != nil {
		return "", false, errors.Wrap(err, "reading stdin")
	}
	if strings.TrimSpace(string(data)) == "" {
		return "", false, nil
	}
	return string(data), true, nil
}

// redactConfig masks secrets in env, headers, args and URLs. Unmodeled keys
// are left alone.
func redactConfig(cfg mcp.ServerConfig) mcp.ServerConfig {
	out := cfg.Clone()
	out.Args = redact.Args(out.Args)
	out.Env = redact.Map(out.Env)
	out.Headers = redact.Map(out.Headers)
	out.URL = redact.URL(out.URL)
	out.HTTPURL = redact.URL(out.HTTPURL)
	if out.Transport != nil {
		out.Transport.URL = redact.URL(out.Transport.URL)
		out.Transport.Headers = redact.Map(out.Transport.Headers)
	}
	for i := range out.Remotes {
		out.Remotes[i].URL = redact.URL(out.Remotes[i].URL)
		out.Remotes[i].Headers = redact.Map(out.Remotes[i].Headers)
	}
	return out
}

// displayConfig is cfg as it should be printed.
func displayConfig(cfg mcp.ServerConfig, showSecrets bool) mcp.ServerConfig {
	if showSecrets {
		return cfg
	}
	return redactConfig(cfg)
}

// membership renders InConfigs as "claude,gemini".
func membership(s *mcp.ServerModel) string {
	var names []string
	for _, u := range mcp.Universes() {
		if s.InConfigs[u] {
			names = append(names, u.String())
		}
	}
	if len(names) == 0 {
		return "-"
	}
	return strings.Join(names, ",")
}

func tagNames(tags []mcp.Tag) string {
	if len(tags) == 0 {
		return ""
	}
	names := make([]string, len(tags))
	for i, t := range tags {
		names[i] = string(t)
	}
	return strings.Join(names, ",")
}

// configJSON renders cfg as indented JSON for previews and show.
func configJSON(cfg mcp.ServerConfig) string {
	data, err := fileutil.MarshalJSON(cfg)
	if err != nil {
		return "{}"
	}
	return strings.TrimRight(string(data), "\n")
}

// statusText reports whether s is in the active universe's file.
func statusText(s *mcp.ServerModel, active mcp.Universe) string {
	if s.InConfigs[active] {
		return green("enabled")
	}
	return gray("disabled")
}
