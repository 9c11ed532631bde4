// Package prompt provides interactive CLI prompts: picking a server when no
// name was given, and confirming destructive commands.
package prompt

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/ktr0731/go-fuzzyfinder"
	"golang.org/x/term"

	"github.com/thoreinstein/mcpm/internal/errors"
)

// Sentinel errors for selection.
var (
	ErrNoItems            = errors.New("nothing to select from")
	ErrInvalidSelection   = errors.New("invalid selection")
	ErrSelectionCancelled = errors.New("selection cancelled")
)

// Item is one choice. Label is what the list shows; Preview fills the
// side pane of the fuzzy finder.
type Item struct {
	Name    string
	Label   string
	Preview string
}

func (it Item) label() string {
	if it.Label != "" {
		return it.Label
	}
	return it.Name
}

// findFunc picks an index from items, as fuzzyfinder.Find does.
type findFunc func(prompt string, items []Item) (int, error)

// Selector handles interactive prompts.
type Selector struct {
	reader io.Reader
	writer io.Writer
	find   findFunc
}

// NewSelector creates a Selector on stdin and stdout. When both are
// terminals, Select uses a fuzzy finder; otherwise it prints a numbered list.
func NewSelector() *Selector {
	s := NewSelectorWithIO(os.Stdin, os.Stdout)
	if term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd())) {
		s.find = fuzzyFind
	}
	return s
}

// NewSelectorWithIO creates a non-interactive Selector with custom reader
// and writer for testing.
func NewSelectorWithIO(r io.Reader, w io.Writer) *Selector {
	return &Selector{reader: bufio.NewReader(r), writer: w}
}

// Interactive reports whether Select opens the fuzzy finder.
func (s *Selector) Interactive() bool {
	return s.find != nil
}

func fuzzyFind(prompt string, items []Item) (int, error) {
	return fuzzyfinder.Find(
		items,
		func(i int) string { return items[i].label() },
		fuzzyfinder.WithPromptString(prompt+"> "),
		fuzzyfinder.WithPreviewWindow(func(i, _, _ int) string {
			if i == -1 {
				return ""
			}
			return items[i].Preview
		}),
	)
}

// Select asks the user to choose one of items.
//
// Returns:
//   - ErrNoItems if the list is empty
//   - the item if only one exists (without prompting)
//   - ErrInvalidSelection if the typed number is out of range
//   - ErrSelectionCancelled on EOF or when the finder is aborted
func (s *Selector) Select(prompt string, items []Item) (*Item, error) {
	if len(items) == 0 {
		return nil, ErrNoItems
	}
	if len(items) == 1 {
		return &items[0], nil
	}

	if s.find != nil {
		idx, err := s.find(prompt, items)
		if err != nil {
			if errors.Is(err, fuzzyfinder.ErrAbort) {
				return nil, ErrSelectionCancelled
			}
			return nil, errors.Wrap(err, "interactive selection failed")
		}
		return &items[idx], nil
	}

	fmt.Fprintf(s.writer, "%s:\n", prompt)
	for i, it := range items {
		fmt.Fprintf(s.writer, "  [%d] %s\n", i+1, it.label())
	}
	fmt.Fprintf(s.writer, "Select [1]: ")

	input, err := s.readLine()
	if err != nil {
		return nil, err
	}
	if input == "" {
		return &items[0], nil
	}

	selection, err := strconv.Atoi(input)
	if err != nil {
		return nil, errors.Wrapf(ErrInvalidSelection, "%q is not a number", input)
	}
	if selection < 1 || selection > len(items) {
		return nil, errors.Wrapf(ErrInvalidSelection, "%d is out of range [1-%d]", selection, len(items))
	}
	return &items[selection-1], nil
}

// Confirm asks a yes/no question. An empty answer returns def; EOF returns
// ErrSelectionCancelled.
func (s *Selector) Confirm(question string, def bool) (bool, error) {
	hint := "y/N"
	if def {
		hint = "Y/n"
	}
	fmt.Fprintf(s.writer, "%s [%s]: ", question, hint)

	input, err := s.readLine()
	if err != nil {
		return false, err
	}
	switch strings.ToLower(input) {
	case "":
		return def, nil
	case "y", "yes":
		return true, nil
	case "n", "no":
		return false, nil
	}
	return false, errors.Wrapf(ErrInvalidSelection, "%q is not yes or no", input)
}

func (s *Selector) readLine() (string, error) {
	br, ok := s.reader.(*bufio.Reader)
	if !ok {
		br = bufio.NewReader(s.reader)
	}
	input, err := br.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && input == "" {
			return "", ErrSelectionCancelled
		}
		if !errors.Is(err, io.EOF) {
			return "", errors.Wrap(err, "reading input")
		}
	}
	return strings.TrimSpace(input), nil
}
