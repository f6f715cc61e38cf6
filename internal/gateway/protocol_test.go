package gateway

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thestuu/engine/internal/engine"
	"github.com/thestuu/engine/internal/model"
)

func TestDecodeTransportCommands(t *testing.T) {
	cmd, err := decodeCommand("play", nil)
	require.NoError(t, err)
	assert.IsType(t, engine.CmdPlay{}, cmd)

	cmd, err = decodeCommand("set-bpm", map[string]any{"bpm": 140.0})
	require.NoError(t, err)
	assert.Equal(t, engine.CmdSetBPM{BPM: 140}, cmd)

	cmd, err = decodeCommand("seek", map[string]any{"position_bars": 2.0})
	require.NoError(t, err)
	seek := cmd.(engine.CmdSeek)
	require.NotNil(t, seek.PositionBars)
	assert.Equal(t, 2.0, *seek.PositionBars)

	_, err = decodeCommand("seek", map[string]any{})
	assert.Error(t, err)
}

func TestDecodeTrackAndMixerCommands(t *testing.T) {
	cmd, err := decodeCommand("track.insert", map[string]any{"after_track_id": 1.0})
	require.NoError(t, err)
	assert.Equal(t, engine.CmdTrackInsert{AfterTrackID: 1}, cmd)

	cmd, err = decodeCommand("track.bulk-delete", map[string]any{"track_ids": []any{1.0, 3.0}})
	require.NoError(t, err)
	assert.Equal(t, engine.CmdTrackBulkDelete{TrackIDs: []int{1, 3}}, cmd)

	cmd, err = decodeCommand("mixer.set-volume", map[string]any{"track_id": 2.0, "volume": 0.5})
	require.NoError(t, err)
	assert.Equal(t, engine.CmdSetVolume{TrackID: 2, Volume: 0.5}, cmd)

	_, err = decodeCommand("mixer.set-volume", map[string]any{"track_id": 2.0})
	assert.Error(t, err)
}

func TestDecodePatternCreateRemarshalsPayload(t *testing.T) {
	cmd, err := decodeCommand("pattern.create", map[string]any{
		"pattern": map[string]any{
			"id":     "p9",
			"kind":   "drum",
			"length": 16.0,
			"steps": []any{
				map[string]any{"lane": "kick", "step": 0.0, "velocity": 1.0},
			},
		},
	})
	require.NoError(t, err)
	create := cmd.(engine.CmdPatternCreate)
	require.NotNil(t, create.Pattern)
	assert.Equal(t, "p9", create.Pattern.ID)
	assert.Equal(t, model.PatternDrum, create.Pattern.Kind)
	require.Len(t, create.Pattern.Steps, 1)
	assert.Equal(t, "kick", create.Pattern.Steps[0].Lane)
}

func TestDecodeClipImportFile(t *testing.T) {
	cmd, err := decodeCommand("clip.import-file", map[string]any{
		"track_id":    1.0,
		"filename":    "kick.wav",
		"format":      "wav",
		"byte_size":   1024.0,
		"source_path": "/tmp/kick.wav",
	})
	require.NoError(t, err)
	imp := cmd.(engine.CmdClipImportFile)
	assert.Equal(t, 1, imp.TrackID)
	assert.Equal(t, "kick.wav", imp.Source.Filename)
	require.NotNil(t, imp.Source.ByteSize)
	assert.Equal(t, int64(1024), *imp.Source.ByteSize)
}

func TestDecodePluginSetParameterRequiresAddress(t *testing.T) {
	_, err := decodeCommand("plugin.set-parameter", map[string]any{"param_id": "gain", "value": 0.5})
	assert.Error(t, err)

	cmd, err := decodeCommand("plugin.set-parameter", map[string]any{
		"param_id": "gain", "value": 0.5, "node_id": "n1",
	})
	require.NoError(t, err)
	assert.Equal(t, "n1", cmd.(engine.CmdPluginSetParameter).NodeID)
}

func TestDecodeUnknownCommandFails(t *testing.T) {
	_, err := decodeCommand("definitely.not.a.command", nil)
	assert.Error(t, err)
}

func TestAckMessageEchoesIDAndMergesData(t *testing.T) {
	env := commandEnvelope{ID: json.RawMessage(`42`), Cmd: "track.create"}
	raw := ackMessage(env, engine.Result{OK: true, Data: map[string]any{"trackId": 3}})

	var msg map[string]any
	require.NoError(t, json.Unmarshal(raw, &msg))
	assert.Equal(t, "ack", msg["type"])
	assert.Equal(t, 42.0, msg["id"])
	assert.Equal(t, true, msg["ok"])
	assert.Equal(t, 3.0, msg["trackId"])
	_, hasError := msg["error"]
	assert.False(t, hasError)
}

func TestAckMessageCarriesErrorAndSyncReport(t *testing.T) {
	env := commandEnvelope{Cmd: "track.delete"}
	raw := ackMessage(env, engine.Result{
		OK:         false,
		Error:      "no track 9",
		NativeSync: &engine.SyncReport{Restored: 1, Failed: 1, Errors: []string{"vst:load x: timeout"}},
	})

	var msg map[string]any
	require.NoError(t, json.Unmarshal(raw, &msg))
	assert.Equal(t, false, msg["ok"])
	assert.Equal(t, "no track 9", msg["error"])
	sync := msg["nativeSync"].(map[string]any)
	assert.Equal(t, 1.0, sync["restored"])
	assert.Equal(t, 1.0, sync["failed"])
}
