// Package editor runs the user's text editor on a scratch copy of a server
// config so it can be changed by hand.
package editor

import (
	"bytes"
	"context"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/thoreinstein/mcpm/internal/errors"
	"github.com/thoreinstein/mcpm/internal/logging"
)

// ErrUnchanged is returned by Edit when the buffer was saved as it was.
var ErrUnchanged = errors.New("no changes made")

// Streams are the terminal the editor is attached to.
type Streams struct {
	In  io.Reader
	Out io.Writer
	Err io.Writer
}

// Std attaches to the process's own terminal.
func Std() Streams {
	return Streams{In: os.Stdin, Out: os.Stdout, Err: os.Stderr}
}

// Open launches the user's preferred editor for path and waits for it to
// exit. $EDITOR and $VISUAL may carry arguments, e.g. "code --wait".
func Open(ctx context.Context, path string, s Streams) error {
	argv := strings.Fields(detectEditor())
	logging.FromContext(ctx).Debug("launching editor", "editor", argv[0], "path", path)

	cmd := exec.CommandContext(ctx, argv[0], append(argv[1:], path)...)
	cmd.Stdin = s.In
	cmd.Stdout = s.Out
	cmd.Stderr = s.Err

	if err := cmd.Run(); err != nil {
		return errors.Wrap(err, "running editor")
	}
	return nil
}

// Edit writes initial to a private temp file named with suffix (".json" or
// ".toml" so editors pick the right syntax), opens it, and returns what was
// saved. The temp file is removed afterwards.
func Edit(ctx context.Context, initial []byte, suffix string, s Streams) ([]byte, error) {
	f, err := os.CreateTemp("", "mcpm-edit-*"+suffix)
	if err != nil {
		return nil, errors.Wrap(err, "creating edit buffer")
	}
	path := f.Name()
	defer os.Remove(path)

	if _, err := f.Write(initial); err != nil {
		f.Close()
		return nil, errors.Wrap(err, "writing edit buffer")
	}
	if err := f.Close(); err != nil {
		return nil, errors.Wrap(err, "writing edit buffer")
	}

	if err := Open(ctx, path, s); err != nil {
		return nil, err
	}

	edited, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "reading edit buffer")
	}
	if bytes.Equal(bytes.TrimSpace(edited), bytes.TrimSpace(initial)) {
		return edited, ErrUnchanged
	}
	return edited, nil
}

// detectEditor returns the editor command. Fallback chain: $EDITOR, $VISUAL,
// nano, vi.
func detectEditor() string {
	if editor := strings.TrimSpace(os.Getenv("EDITOR")); editor != "" {
		return editor
	}

	if visual := strings.TrimSpace(os.Getenv("VISUAL")); visual != "" {
		return visual
	}

	// nano is easier for people who have never used vi.
	if _, err := exec.LookPath("nano"); err == nil {
		return "nano"
	}

	return "vi"
}
