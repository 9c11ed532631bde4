package mcp

import (
	"bytes"
	"cmp"
	"encoding/json"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/thoreinstein/mcpm/internal/errors"
)

// ServerModel is the merged record for one server name. The universe it was
// first seen in is fixed at creation.
type ServerModel struct {
	ID        uuid.UUID
	Name      string
	Config    ServerConfig
	Enabled   bool
	UpdatedAt time.Time
	// InConfigs[i] is true when the name is a key in config source i.
	InConfigs        [NumUniverses]bool
	RegistryImageURL string
	CustomIconPath   string
	Tags             []Tag

	sourceUniverse Universe
}

// NewServerModel creates a record for a name seen for the first time in
// universe u. Membership starts with only u set.
func NewServerModel(id uuid.UUID, name string, cfg ServerConfig, u Universe, now time.Time) *ServerModel {
	s := &ServerModel{
		ID:             id,
		Name:           name,
		Config:         cfg,
		UpdatedAt:      now,
		sourceUniverse: u,
	}
	if u.Valid() {
		s.InConfigs[u] = true
	}
	return s
}

// SourceUniverse is the universe the server was created in.
func (s *ServerModel) SourceUniverse() Universe {
	return s.sourceUniverse
}

// VisibleIn reports whether the server belongs to active's partition.
func (s *ServerModel) VisibleIn(active Universe) bool {
	return SamePartition(s.sourceUniverse, active)
}

// InAnyConfig reports whether any source file currently lists the server.
func (s *ServerModel) InAnyConfig() bool {
	return slices.Contains(s.InConfigs[:], true)
}

// HasTag reports whether t is assigned.
func (s *ServerModel) HasTag(t Tag) bool {
	return slices.Contains(s.Tags, t)
}

// Clone returns a deep copy that keeps the source universe.
func (s *ServerModel) Clone() *ServerModel {
	out := *s
	out.Config = s.Config.Clone()
	out.Tags = slices.Clone(s.Tags)
	return &out
}

// ConfigJSON renders the config as indented JSON with sorted keys.
func (s *ServerModel) ConfigJSON() string {
	data, err := s.Config.MarshalJSON()
	if err != nil {
		return "{}"
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, data, "", "  "); err != nil {
		return "{}"
	}
	return buf.String()
}

type serverModelJSON struct {
	ID               uuid.UUID    `json:"id"`
	Name             string       `json:"name"`
	Config           ServerConfig `json:"config"`
	Enabled          bool         `json:"enabled"`
	UpdatedAt        time.Time    `json:"updatedAt"`
	InConfigs        []bool       `json:"inConfigs"`
	RegistryImageURL string       `json:"registryImageUrl,omitempty"`
	CustomIconPath   string       `json:"customIconPath,omitempty"`
	Tags             []Tag        `json:"tags,omitempty"`
	SourceUniverse   *Universe    `json:"sourceUniverse,omitempty"`
}

// MarshalJSON encodes the cache representation, including the source universe.
func (s ServerModel) MarshalJSON() ([]byte, error) {
	u := s.sourceUniverse
	return json.Marshal(serverModelJSON{
		ID:               s.ID,
		Name:             s.Name,
		Config:           s.Config,
		Enabled:          s.Enabled,
		UpdatedAt:        s.UpdatedAt,
		InConfigs:        s.InConfigs[:],
		RegistryImageURL: s.RegistryImageURL,
		CustomIconPath:   s.CustomIconPath,
		Tags:             s.Tags,
		SourceUniverse:   &u,
	})
}

// UnmarshalJSON decodes the cache representation. Older caches carry a
// two-element inConfigs and no sourceUniverse; those default to universe 0,
// or to Codex when only the third source lists the server.
func (s *ServerModel) UnmarshalJSON(data []byte) error {
	var v serverModelJSON
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	if v.Name == "" {
		return errors.New("server model: name is required")
	}
	if len(v.InConfigs) > NumUniverses {
		return errors.Newf("server model %q: inConfigs has %d entries", v.Name, len(v.InConfigs))
	}

	*s = ServerModel{
		ID:               v.ID,
		Name:             v.Name,
		Config:           v.Config,
		Enabled:          v.Enabled,
		UpdatedAt:        v.UpdatedAt,
		RegistryImageURL: v.RegistryImageURL,
		CustomIconPath:   v.CustomIconPath,
		Tags:             NormalizeTags(v.Tags),
	}
	copy(s.InConfigs[:], v.InConfigs)
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}

	switch {
	case v.SourceUniverse != nil:
		if !v.SourceUniverse.Valid() {
			return errors.Wrapf(ErrUnknownUniverse, "server model %q: %d", v.Name, *v.SourceUniverse)
		}
		s.sourceUniverse = *v.SourceUniverse
	case s.InConfigs[UniverseCodex] && !s.InConfigs[UniverseClaude] && !s.InConfigs[UniverseGemini]:
		s.sourceUniverse = UniverseCodex
	default:
		s.sourceUniverse = UniverseClaude
	}
	return nil
}

// SortByName sorts servers by name using byte order.
func SortByName(servers []*ServerModel) {
	slices.SortFunc(servers, func(a, b *ServerModel) int {
		return cmp.Compare(a.Name, b.Name)
	})
}
