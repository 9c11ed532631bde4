package mcp

import (
	"slices"
	"strings"

	"github.com/thoreinstein/mcpm/internal/errors"
)

// Tag is a user-assigned category.
type Tag string

const (
	TagUI         Tag = "UI"
	TagBackend    Tag = "Backend"
	TagCreativity Tag = "Creativity"
	TagDevOps     Tag = "Dev Ops"
	TagAdvanced   Tag = "Advanced"
)

// ErrUnknownTag is returned by ParseTag.
var ErrUnknownTag = errors.New("unknown tag")

// AllTags returns every tag in display order.
func AllTags() []Tag {
	return []Tag{TagUI, TagBackend, TagCreativity, TagDevOps, TagAdvanced}
}

// Valid reports whether t is one of the known tags.
func (t Tag) Valid() bool {
	return slices.Contains(AllTags(), t)
}

// ParseTag matches s against the known tags ignoring case, spaces, dashes
// and underscores, so "devops", "dev-ops" and "Dev Ops" are the same tag.
func ParseTag(s string) (Tag, error) {
	key := tagKey(s)
	for _, t := range AllTags() {
		if tagKey(string(t)) == key {
			return t, nil
		}
	}
	return "", errors.Wrapf(ErrUnknownTag, "%q", s)
}

// NormalizeTags drops unknown tags and duplicates and sorts the rest.
func NormalizeTags(tags []Tag) []Tag {
	if len(tags) == 0 {
		return nil
	}
	out := make([]Tag, 0, len(tags))
	for _, t := range tags {
		if t.Valid() && !slices.Contains(out, t) {
			out = append(out, t)
		}
	}
	slices.Sort(out)
	if len(out) == 0 {
		return nil
	}
	return out
}

func tagKey(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '-', '_':
			return -1
		}
		return r
	}, strings.ToLower(strings.TrimSpace(s)))
}
