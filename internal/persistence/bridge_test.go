package persistence

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thestuu/engine/internal/model"
)

// With no project file present, EnsureDefault writes the default project,
// then loads it back with the documented values.
func TestEnsureDefaultSeedsWelcomeProject(t *testing.T) {
	b := New(t.TempDir())
	require.NoError(t, b.EnsureDir())

	p, err := b.EnsureDefault("welcome.stu")
	require.NoError(t, err)

	assert.Equal(t, "Welcome to TheStuu", p.Name)
	assert.Equal(t, 128.0, p.BPM)
	assert.Equal(t, 32, p.ViewBars)
	assert.Equal(t, 92.0, p.ViewBarWidth)
	require.NotEmpty(t, p.Tracks)
	assert.Equal(t, 1, p.Tracks[0].ID)
	strip, ok := model.FindMixerStrip(p, 1)
	require.True(t, ok)
	assert.Equal(t, 0.85, strip.Volume)
	assert.Equal(t, 0.0, strip.Pan)
	assert.False(t, strip.Mute)
	assert.False(t, strip.Solo)
	assert.False(t, strip.RecordArm)
}

func TestSaveLoadRoundTripEqualsNormalizedInput(t *testing.T) {
	b := New(t.TempDir())
	p := model.Default()
	p.Tracks = append(p.Tracks, &model.Track{ID: 2, Name: "Bass"})
	model.Normalize(p)

	require.NoError(t, b.Save("roundtrip.stu", p))
	loaded, err := b.Load("roundtrip.stu")
	require.NoError(t, err)

	assert.Equal(t, p.Name, loaded.Name)
	assert.Equal(t, p.BPM, loaded.BPM)
	require.Len(t, loaded.Tracks, len(p.Tracks))
	for i := range p.Tracks {
		assert.Equal(t, p.Tracks[i].ID, loaded.Tracks[i].ID)
		assert.Equal(t, p.Tracks[i].Name, loaded.Tracks[i].Name)
	}
	assert.Len(t, loaded.Mixer, len(p.Mixer))
	assert.Empty(t, model.Validate(loaded))
}

func TestLoadMissingFileReportsNotExist(t *testing.T) {
	b := New(t.TempDir())
	_, err := b.Load("absent.stu")
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadNormalizesOutOfRangeDocument(t *testing.T) {
	dir := t.TempDir()
	raw := `{
		"version": "1.0.0-alpha",
		"project_name": "Wild",
		"bpm": 900,
		"playlist_view_bars": 2,
		"playlist_bar_width": 500,
		"playlist": [{"track_id": 7, "name": "Solo", "clips": []}],
		"patterns": [],
		"mixer": [],
		"nodes": []
	}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "wild.stu"), []byte(raw), 0o644))

	b := New(dir)
	p, err := b.Load("wild.stu")
	require.NoError(t, err)
	assert.Equal(t, model.MaxBPM, p.BPM)
	assert.Equal(t, model.MinViewBars, p.ViewBars)
	assert.Equal(t, model.MaxBarWidth, p.ViewBarWidth)
	require.Len(t, p.Tracks, 1)
	assert.Equal(t, 1, p.Tracks[0].ID)
	require.Len(t, p.Mixer, 1)
	assert.Empty(t, model.Validate(p))
}

func TestLoadCorruptFileIsNotOverwrittenByEnsureDefault(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.stu"), []byte("{not json"), 0o644))

	b := New(dir)
	_, err := b.EnsureDefault("bad.stu")
	require.Error(t, err)

	raw, readErr := os.ReadFile(filepath.Join(dir, "bad.stu"))
	require.NoError(t, readErr)
	assert.Equal(t, "{not json", string(raw))
}

func TestSaveCreatesProjectDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "projects")
	b := New(dir)
	require.NoError(t, b.Save("fresh.stu", model.Default()))
	_, err := os.Stat(filepath.Join(dir, "fresh.stu"))
	require.NoError(t, err)
}
