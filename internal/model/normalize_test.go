package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultProjectMatchesWelcomeDefaults(t *testing.T) {
	p := Default()
	assert.Equal(t, "Welcome to TheStuu", p.Name)
	assert.Equal(t, 128.0, p.BPM)
	assert.Equal(t, 32, p.ViewBars)
	assert.Equal(t, 92.0, p.ViewBarWidth)
	require.Len(t, p.Tracks, 1)
	assert.Equal(t, 1, p.Tracks[0].ID)
	require.Len(t, p.Mixer, 1)
	strip := p.Mixer[0]
	assert.Equal(t, 1, strip.TrackID)
	assert.Equal(t, 0.85, strip.Volume)
	assert.Equal(t, 0.0, strip.Pan)
	assert.False(t, strip.Mute)
	assert.False(t, strip.Solo)
	assert.False(t, strip.RecordArm)
	assert.Empty(t, Validate(p))
}

func TestNormalizeIsIdempotent(t *testing.T) {
	p := Default()
	p.Tracks = append(p.Tracks, &Track{ID: 99, Name: ""})
	Normalize(p)
	snapshot := cloneProjectForTest(p)
	Normalize(p)
	assert.Equal(t, snapshot, p)
}

func TestNormalizeDensifiesTrackIDsAndRewritesOwners(t *testing.T) {
	p := &Project{
		Tracks: []*Track{{ID: 1}, {ID: 5}},
		Nodes:  []*PluginNode{{ID: "n1", TrackID: 5, PluginIndex: 0}},
		Mixer:  []*MixerStrip{{TrackID: 5, Volume: 1}},
	}
	Normalize(p)
	require.Len(t, p.Tracks, 2)
	assert.Equal(t, 1, p.Tracks[0].ID)
	assert.Equal(t, 2, p.Tracks[1].ID)
	require.Len(t, p.Nodes, 1)
	assert.Equal(t, 2, p.Nodes[0].TrackID)
	require.Len(t, p.Mixer, 2)
}

func TestNormalizeDropsOrphanMixerStrips(t *testing.T) {
	p := &Project{
		Tracks: []*Track{{ID: 1}},
		Mixer:  []*MixerStrip{{TrackID: 1, Volume: 1}, {TrackID: 7, Volume: 1}},
	}
	Normalize(p)
	require.Len(t, p.Mixer, 1)
	assert.Equal(t, 1, p.Mixer[0].TrackID)
}

func TestNormalizeSynthesizesStubPatternForDanglingClip(t *testing.T) {
	p := &Project{
		Tracks: []*Track{{ID: 1, Clips: []*Clip{
			{ID: "c1", Start: 0, Length: 1, Kind: ClipPattern, PatternID: "missing"},
		}}},
	}
	Normalize(p)
	require.Len(t, p.Patterns, 1)
	assert.Equal(t, "missing", p.Patterns[0].ID)
	assert.Empty(t, Validate(p))
}

func TestNormalizeEnsuresNonEmptyProject(t *testing.T) {
	p := &Project{}
	Normalize(p)
	require.Len(t, p.Tracks, 1)
	require.Len(t, p.Mixer, 1)
}

func TestNormalizePluginIndexesDense(t *testing.T) {
	p := &Project{
		Tracks: []*Track{{ID: 1}},
		Nodes: []*PluginNode{
			{ID: "a", TrackID: 1, PluginIndex: 5},
			{ID: "b", TrackID: 1, PluginIndex: 2},
		},
	}
	Normalize(p)
	require.Len(t, p.Nodes, 2)
	assert.Equal(t, "b", p.Nodes[0].ID)
	assert.Equal(t, 0, p.Nodes[0].PluginIndex)
	assert.Equal(t, "a", p.Nodes[1].ID)
	assert.Equal(t, 1, p.Nodes[1].PluginIndex)
}

func TestGridQuantization(t *testing.T) {
	assert.Equal(t, 0.375, QuantizeToGrid(0.37))
	assert.True(t, IsOnGrid(0.375))
	assert.False(t, IsOnGrid(0.37))
}

func cloneProjectForTest(p *Project) *Project {
	data, err := json.Marshal(p)
	if err != nil {
		panic(err)
	}
	var cp Project
	if err := json.Unmarshal(data, &cp); err != nil {
		panic(err)
	}
	return &cp
}
