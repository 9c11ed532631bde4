package merge

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thoreinstein/mcpm/internal/logging"
	"github.com/thoreinstein/mcpm/internal/mcp"
)

var epoch = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

func fixedClock() time.Time { return epoch }

// sequentialIDs returns a generator yielding deterministic UUIDs.
func sequentialIDs() func() uuid.UUID {
	var n byte
	return func() uuid.UUID {
		n++
		var id uuid.UUID
		id[15] = n
		return id
	}
}

func testOptions(t *testing.T) []Option {
	return []Option{
		WithClock(fixedClock),
		WithIDGenerator(sequentialIDs()),
		WithLogger(logging.ForTest(t)),
	}
}

func stdio(command string, args ...string) mcp.ServerConfig {
	return mcp.ServerConfig{Command: command, Args: args}
}

func byName(t *testing.T, servers []*mcp.ServerModel, name string) *mcp.ServerModel {
	t.Helper()
	for _, s := range servers {
		if s.Name == name {
			return s
		}
	}
	t.Fatalf("server %q not in merge result", name)
	return nil
}

func names(servers []*mcp.ServerModel) []string {
	out := make([]string, 0, len(servers))
	for _, s := range servers {
		out = append(out, s.Name)
	}
	return out
}

func TestMerge_SingleSourceScenario(t *testing.T) {
	got := Merge(nil, Sources{
		{"fs": stdio("npx")},
		{},
		{},
	}, testOptions(t)...)

	require.Len(t, got, 1)
	fs := got[0]
	assert.Equal(t, "fs", fs.Name)
	assert.Equal(t, mcp.UniverseClaude, fs.SourceUniverse())
	assert.Equal(t, [3]bool{true, false, false}, fs.InConfigs)
	assert.Equal(t, "npx", fs.Config.Command)
	assert.Equal(t, epoch, fs.UpdatedAt)
	assert.NotEqual(t, uuid.Nil, fs.ID)
}

func TestMerge_CachedRecordSurvivesEmptySources(t *testing.T) {
	old := mcp.NewServerModel(uuid.New(), "old", stdio("old-cmd"), mcp.UniverseCodex, epoch.Add(-time.Hour))
	old.InConfigs = [3]bool{}
	old.Tags = []mcp.Tag{mcp.TagBackend}
	old.CustomIconPath = "old.png"

	got := Merge([]*mcp.ServerModel{old}, Sources{}, testOptions(t)...)

	require.Len(t, got, 1)
	assert.Equal(t, old.ID, got[0].ID)
	assert.Equal(t, mcp.UniverseCodex, got[0].SourceUniverse())
	assert.Equal(t, [3]bool{}, got[0].InConfigs)
	assert.Equal(t, old.Tags, got[0].Tags)
	assert.Equal(t, old.CustomIconPath, got[0].CustomIconPath)
	assert.Equal(t, old.UpdatedAt, got[0].UpdatedAt)
	assert.True(t, old.Config.Equal(got[0].Config))
}

func TestMerge_SourceOneWinsOverSourceTwo(t *testing.T) {
	got := Merge(nil, Sources{
		{"shared": stdio("from-claude")},
		{"shared": stdio("from-gemini")},
		{},
	}, testOptions(t)...)

	shared := byName(t, got, "shared")
	assert.Equal(t, "from-claude", shared.Config.Command)
	assert.Equal(t, [3]bool{true, true, false}, shared.InConfigs)
	assert.Equal(t, mcp.UniverseClaude, shared.SourceUniverse())
}

func TestMerge_SourceTwoOverwritesWhenSourceOneAbsent(t *testing.T) {
	cached := mcp.NewServerModel(uuid.New(), "g", stdio("stale"), mcp.UniverseClaude, epoch)
	// The cache claims source 1 membership, but source 1 no longer lists it.
	cached.InConfigs = [3]bool{true, true, false}

	got := Merge([]*mcp.ServerModel{cached}, Sources{
		{},
		{"g": stdio("fresh")},
		{},
	}, testOptions(t)...)

	g := byName(t, got, "g")
	assert.Equal(t, "fresh", g.Config.Command)
	assert.Equal(t, [3]bool{false, true, false}, g.InConfigs)

	again := Merge(got, Sources{{}, {"g": stdio("fresh")}, {}}, testOptions(t)...)
	assert.Equal(t, "fresh", byName(t, again, "g").Config.Command, "a second merge keeps the same config")
}

func TestMerge_SourceThreeAlwaysOverwrites(t *testing.T) {
	cached := mcp.NewServerModel(uuid.New(), "cx", stdio("cached"), mcp.UniverseCodex, epoch)

	got := Merge([]*mcp.ServerModel{cached}, Sources{
		{},
		{},
		{"cx": stdio("from-codex")},
	}, testOptions(t)...)

	cx := byName(t, got, "cx")
	assert.Equal(t, "from-codex", cx.Config.Command)
	assert.Equal(t, [3]bool{false, false, true}, cx.InConfigs)
	assert.Equal(t, mcp.UniverseCodex, cx.SourceUniverse())
}

func TestMerge_UniverseIsSticky(t *testing.T) {
	first := Merge(nil, Sources{
		{},
		{"g": stdio("gem")},
		{},
	}, testOptions(t)...)
	require.Equal(t, mcp.UniverseGemini, byName(t, first, "g").SourceUniverse())

	// Later the same name shows up in source 1 and source 3 too.
	second := Merge(first, Sources{
		{"g": stdio("claude")},
		{"g": stdio("gem")},
		{"g": stdio("codex")},
	}, testOptions(t)...)

	g := byName(t, second, "g")
	assert.Equal(t, mcp.UniverseGemini, g.SourceUniverse())
	assert.Equal(t, [3]bool{true, true, true}, g.InConfigs)
	assert.Equal(t, byName(t, first, "g").ID, g.ID)
}

func TestMerge_NewRecordUniverseFollowsFirstSource(t *testing.T) {
	got := Merge(nil, Sources{
		{"a": stdio("a")},
		{"b": stdio("b"), "a": stdio("a2")},
		{"c": stdio("c"), "b": stdio("b3")},
	}, testOptions(t)...)

	assert.Equal(t, []string{"a", "b", "c"}, names(got))
	assert.Equal(t, mcp.UniverseClaude, byName(t, got, "a").SourceUniverse())
	assert.Equal(t, mcp.UniverseGemini, byName(t, got, "b").SourceUniverse())
	assert.Equal(t, mcp.UniverseCodex, byName(t, got, "c").SourceUniverse())
	assert.Equal(t, "b3", byName(t, got, "b").Config.Command)
}

func TestMerge_ExternalDeletionKeepsMetadata(t *testing.T) {
	first := Merge(nil, Sources{
		{"fs": stdio("npx")},
		{"fs": stdio("npx")},
		{},
	}, testOptions(t)...)
	fs := byName(t, first, "fs")
	fs.Tags = []mcp.Tag{mcp.TagDevOps, mcp.TagUI}
	fs.CustomIconPath = "fs.png"
	fs.RegistryImageURL = "https://registry.example/fs.png"

	// fs was removed from source 2 by hand.
	second := Merge(first, Sources{
		{"fs": stdio("npx")},
		{},
		{},
	}, testOptions(t)...)

	got := byName(t, second, "fs")
	assert.Equal(t, [3]bool{true, false, false}, got.InConfigs)
	assert.Equal(t, fs.Tags, got.Tags)
	assert.Equal(t, "fs.png", got.CustomIconPath)
	assert.Equal(t, "https://registry.example/fs.png", got.RegistryImageURL)
	assert.Equal(t, mcp.UniverseClaude, got.SourceUniverse())
	assert.Equal(t, fs.ID, got.ID)
}

func TestMerge_Idempotent(t *testing.T) {
	sources := Sources{
		{"fs": stdio("npx", "-y", "server-filesystem"), "shared": stdio("one")},
		{"shared": stdio("two"), "web": {URL: "https://web.example/mcp", Type: mcp.TypeHTTP}},
		{"codex-only": stdio("uvx", "codex-tool")},
	}

	first := Merge(nil, sources, testOptions(t)...)
	second := Merge(first, sources, WithClock(func() time.Time { return epoch.Add(time.Hour) }))

	require.Equal(t, names(first), names(second))
	for i := range first {
		a, b := first[i], second[i]
		assert.Equal(t, a.ID, b.ID, a.Name)
		assert.Equal(t, a.InConfigs, b.InConfigs, a.Name)
		assert.Equal(t, a.SourceUniverse(), b.SourceUniverse(), a.Name)
		assert.Equal(t, a.UpdatedAt, b.UpdatedAt, a.Name)
		assert.True(t, a.Config.Equal(b.Config), a.Name)
	}
}

func TestMerge_DoesNotMutateCache(t *testing.T) {
	cached := mcp.NewServerModel(uuid.New(), "fs", stdio("old", "x"), mcp.UniverseClaude, epoch)
	cached.Tags = []mcp.Tag{mcp.TagUI}
	before := cached.Clone()

	got := Merge([]*mcp.ServerModel{cached}, Sources{
		{},
		{"fs": stdio("new")},
		{},
	}, testOptions(t)...)

	byName(t, got, "fs").Tags[0] = mcp.TagAdvanced
	assert.Equal(t, before.InConfigs, cached.InConfigs)
	assert.True(t, before.Config.Equal(cached.Config))
	assert.Equal(t, before.Tags, cached.Tags)
}

func TestMerge_DeterministicCreation(t *testing.T) {
	sources := Sources{{"b": stdio("b"), "a": stdio("a"), "c": stdio("c")}}

	first := Merge(nil, sources, WithIDGenerator(sequentialIDs()), WithClock(fixedClock))
	second := Merge(nil, sources, WithIDGenerator(sequentialIDs()), WithClock(fixedClock))

	for i := range first {
		assert.Equal(t, first[i].ID, second[i].ID)
	}
	// IDs are handed out in name order.
	assert.Equal(t, byte(1), byName(t, first, "a").ID[15])
	assert.Equal(t, byte(3), byName(t, first, "c").ID[15])
}

func TestMerge_SortedByteOrder(t *testing.T) {
	got := Merge(nil, Sources{
		{"beta": stdio("x"), "Alpha": stdio("x"), "alpha": stdio("x"), "_under": stdio("x")},
	}, testOptions(t)...)
	assert.Equal(t, []string{"Alpha", "_under", "alpha", "beta"}, names(got))
}

func TestMerge_NilInputs(t *testing.T) {
	got := Merge([]*mcp.ServerModel{nil}, Sources{nil, nil, nil})
	assert.Empty(t, got)
}

func TestSplit(t *testing.T) {
	servers := Merge(nil, Sources{
		{"a": stdio("a"), "shared": stdio("one")},
		{"shared": stdio("two")},
		{"c": stdio("c")},
	}, testOptions(t)...)

	split := Split(servers)
	assert.ElementsMatch(t, []string{"a", "shared"}, keys(split[mcp.UniverseClaude]))
	assert.ElementsMatch(t, []string{"shared"}, keys(split[mcp.UniverseGemini]))
	assert.ElementsMatch(t, []string{"c"}, keys(split[mcp.UniverseCodex]))

	// Both sources receive source 1's config for the shared name.
	assert.Equal(t, "one", split[mcp.UniverseGemini]["shared"].Command)
}

func TestSplit_EmptyIsNonNil(t *testing.T) {
	split := Split(nil)
	for _, u := range mcp.Universes() {
		assert.NotNil(t, split[u])
		assert.Empty(t, split[u])
	}
}

func keys(m map[string]mcp.ServerConfig) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
