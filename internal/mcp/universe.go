package mcp

import (
	"strconv"
	"strings"

	"github.com/thoreinstein/mcpm/internal/errors"
)

// Universe identifies the config file family a server belongs to.
// Claude and Gemini share one partition; Codex is isolated from both.
type Universe int

const (
	UniverseClaude Universe = iota
	UniverseGemini
	UniverseCodex
)

// NumUniverses is the number of config sources.
const NumUniverses = 3

// ErrUnknownUniverse is returned by ParseUniverse.
var ErrUnknownUniverse = errors.New("unknown config universe")

var universeNames = [NumUniverses]string{"claude", "gemini", "codex"}

// Universes returns all universes in source order.
func Universes() []Universe {
	return []Universe{UniverseClaude, UniverseGemini, UniverseCodex}
}

func (u Universe) String() string {
	if !u.Valid() {
		return "universe(" + strconv.Itoa(int(u)) + ")"
	}
	return universeNames[u]
}

// Valid reports whether u is one of the three known universes.
func (u Universe) Valid() bool {
	return u >= UniverseClaude && u <= UniverseCodex
}

// Isolated reports whether u sits in the Codex partition.
func (u Universe) Isolated() bool {
	return u == UniverseCodex
}

// SamePartition reports whether servers of a and b may be shown and merged
// together.
func SamePartition(a, b Universe) bool {
	return a.Isolated() == b.Isolated()
}

// ParseUniverse accepts an index ("0".."2") or a name ("claude", "gemini", "codex").
func ParseUniverse(s string) (Universe, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if i, err := strconv.Atoi(s); err == nil {
		u := Universe(i)
		if u.Valid() {
			return u, nil
		}
		return 0, errors.Wrapf(ErrUnknownUniverse, "%d", i)
	}
	for i, name := range universeNames {
		if name == s {
			return Universe(i), nil
		}
	}
	return 0, errors.Wrapf(ErrUnknownUniverse, "%q", s)
}
