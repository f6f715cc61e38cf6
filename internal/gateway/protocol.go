// Package gateway is the Client Gateway: it multiplexes N websocket
// clients, delivers initial state on connect, pushes state/transport/meter
// events, and routes incoming commands to the Mutation Engine with
// per-command acknowledgment.
package gateway

import (
	"encoding/json"
	"fmt"

	jsoniter "github.com/json-iterator/go"

	"github.com/thestuu/engine/internal/engine"
	"github.com/thestuu/engine/internal/model"
)

var codec = jsoniter.ConfigCompatibleWithStandardLibrary

// commandEnvelope is the JSON shape clients send: a wire command name, an
// optional correlation id echoed back on the ack, and a free-form payload.
type commandEnvelope struct {
	ID      json.RawMessage `json:"id,omitempty"`
	Cmd     string          `json:"cmd"`
	Payload map[string]any  `json:"payload"`
}

// decodeCommand maps a wire command name and payload onto the engine's
// typed command sum. Unknown names and malformed payloads return an
// error; they never reach the engine.
func decodeCommand(cmd string, payload map[string]any) (engine.Command, error) {
	if payload == nil {
		payload = map[string]any{}
	}
	switch cmd {
	// Transport
	case "play":
		return engine.CmdPlay{}, nil
	case "pause":
		return engine.CmdPause{}, nil
	case "stop":
		return engine.CmdStop{}, nil
	case "set-bpm":
		bpm, err := reqFloat(payload, "bpm")
		if err != nil {
			return nil, err
		}
		return engine.CmdSetBPM{BPM: bpm}, nil
	case "seek":
		c := engine.CmdSeek{
			PositionBeats: optFloat(payload, "position_beats"),
			PositionBars:  optFloat(payload, "position_bars"),
		}
		if c.PositionBeats == nil && c.PositionBars == nil {
			return nil, fmt.Errorf("seek: position_beats or position_bars required")
		}
		return c, nil

	// Track lifecycle
	case "track.create":
		return engine.CmdTrackCreate{}, nil
	case "track.insert":
		after, err := reqInt(payload, "after_track_id")
		if err != nil {
			return nil, err
		}
		return engine.CmdTrackInsert{AfterTrackID: after}, nil
	case "track.reorder":
		trackID, err := reqInt(payload, "track_id")
		if err != nil {
			return nil, err
		}
		to, err := reqInt(payload, "to_index")
		if err != nil {
			return nil, err
		}
		return engine.CmdTrackReorder{TrackID: trackID, ToIndex: to}, nil
	case "track.delete":
		trackID, err := reqInt(payload, "track_id")
		if err != nil {
			return nil, err
		}
		return engine.CmdTrackDelete{TrackID: trackID}, nil
	case "track.bulk-delete":
		ids, err := reqIntSlice(payload, "track_ids")
		if err != nil {
			return nil, err
		}
		return engine.CmdTrackBulkDelete{TrackIDs: ids}, nil
	case "track.duplicate":
		trackID, err := reqInt(payload, "track_id")
		if err != nil {
			return nil, err
		}
		return engine.CmdTrackDuplicate{TrackID: trackID}, nil
	case "track.set-name":
		trackID, err := reqInt(payload, "track_id")
		if err != nil {
			return nil, err
		}
		name, err := reqString(payload, "name")
		if err != nil {
			return nil, err
		}
		return engine.CmdTrackSetName{TrackID: trackID, Name: name}, nil
	case "track.set-chain-collapsed":
		trackID, err := reqInt(payload, "track_id")
		if err != nil {
			return nil, err
		}
		return engine.CmdTrackSetChainCollapsed{TrackID: trackID, Collapsed: optBoolOr(payload, "collapsed", false)}, nil
	case "track.set-chain-enabled":
		trackID, err := reqInt(payload, "track_id")
		if err != nil {
			return nil, err
		}
		return engine.CmdTrackSetChainEnabled{TrackID: trackID, Enabled: optBoolOr(payload, "enabled", true)}, nil

	// Mixer
	case "mixer.set-volume":
		trackID, err := reqInt(payload, "track_id")
		if err != nil {
			return nil, err
		}
		v, err := reqFloat(payload, "volume")
		if err != nil {
			return nil, err
		}
		return engine.CmdSetVolume{TrackID: trackID, Volume: v}, nil
	case "mixer.set-pan":
		trackID, err := reqInt(payload, "track_id")
		if err != nil {
			return nil, err
		}
		v, err := reqFloat(payload, "pan")
		if err != nil {
			return nil, err
		}
		return engine.CmdSetPan{TrackID: trackID, Pan: v}, nil
	case "mixer.set-mute":
		trackID, err := reqInt(payload, "track_id")
		if err != nil {
			return nil, err
		}
		return engine.CmdSetMute{TrackID: trackID, Mute: optBoolOr(payload, "mute", false)}, nil
	case "mixer.set-solo":
		trackID, err := reqInt(payload, "track_id")
		if err != nil {
			return nil, err
		}
		return engine.CmdSetSolo{TrackID: trackID, Solo: optBoolOr(payload, "solo", false)}, nil
	case "mixer.set-record-arm":
		trackID, err := reqInt(payload, "track_id")
		if err != nil {
			return nil, err
		}
		return engine.CmdSetRecordArm{TrackID: trackID, Armed: optBoolOr(payload, "armed", false)}, nil

	// Pattern
	case "pattern.create":
		raw, ok := payload["pattern"]
		if !ok {
			return nil, fmt.Errorf("pattern.create: pattern required")
		}
		var pat model.Pattern
		if err := remarshal(raw, &pat); err != nil {
			return nil, fmt.Errorf("pattern.create: malformed pattern: %w", err)
		}
		return engine.CmdPatternCreate{Pattern: &pat}, nil
	case "pattern.update":
		patternID, err := reqString(payload, "pattern_id")
		if err != nil {
			return nil, err
		}
		return engine.CmdPatternUpdate{
			PatternID: patternID,
			Length:    optInt(payload, "length"),
			Swing:     optFloat(payload, "swing"),
		}, nil
	case "pattern.update-step":
		patternID, err := reqString(payload, "pattern_id")
		if err != nil {
			return nil, err
		}
		lane, err := reqString(payload, "lane")
		if err != nil {
			return nil, err
		}
		step, err := reqInt(payload, "step_index")
		if err != nil {
			return nil, err
		}
		vel, err := reqFloat(payload, "velocity")
		if err != nil {
			return nil, err
		}
		return engine.CmdPatternUpdateStep{PatternID: patternID, Lane: lane, StepIndex: step, Velocity: vel}, nil
	case "pattern.delete":
		patternID, err := reqString(payload, "pattern_id")
		if err != nil {
			return nil, err
		}
		return engine.CmdPatternDelete{PatternID: patternID}, nil
	case "pattern.move-midi-note":
		patternID, err := reqString(payload, "pattern_id")
		if err != nil {
			return nil, err
		}
		noteID, err := reqString(payload, "note_id")
		if err != nil {
			return nil, err
		}
		return engine.CmdMoveMIDINote{
			PatternID: patternID,
			NoteID:    noteID,
			Start:     optFloat(payload, "start"),
			Length:    optFloat(payload, "length"),
			Pitch:     optInt(payload, "pitch"),
			Velocity:  optFloat(payload, "velocity"),
		}, nil

	// Clip
	case "clip.create":
		trackID, err := reqInt(payload, "track_id")
		if err != nil {
			return nil, err
		}
		patternID, err := reqString(payload, "pattern_id")
		if err != nil {
			return nil, err
		}
		return engine.CmdClipCreate{
			TrackID:   trackID,
			PatternID: patternID,
			ID:        optStringOr(payload, "id", ""),
			Start:     optFloat(payload, "start"),
			Length:    optFloat(payload, "length"),
		}, nil
	case "clip.import-file":
		trackID, err := reqInt(payload, "track_id")
		if err != nil {
			return nil, err
		}
		filename, err := reqString(payload, "filename")
		if err != nil {
			return nil, err
		}
		src := engine.ImportSource{
			Filename:    filename,
			Format:      optStringOr(payload, "format", ""),
			MimeType:    optStringOr(payload, "mime_type", ""),
			SourcePath:  optStringOr(payload, "source_path", ""),
			Kind:        model.ClipKind(optStringOr(payload, "type", "")),
			DurationSec: optFloat(payload, "duration_seconds"),
		}
		if size := optFloat(payload, "byte_size"); size != nil {
			b := int64(*size)
			src.ByteSize = &b
		}
		return engine.CmdClipImportFile{
			TrackID: trackID,
			Source:  src,
			Start:   optFloat(payload, "start"),
			Length:  optFloat(payload, "length"),
		}, nil
	case "clip.move":
		trackID, err := reqInt(payload, "track_id")
		if err != nil {
			return nil, err
		}
		clipID, err := reqString(payload, "clip_id")
		if err != nil {
			return nil, err
		}
		start, err := reqFloat(payload, "start")
		if err != nil {
			return nil, err
		}
		return engine.CmdClipMove{
			TrackID:   trackID,
			ClipID:    clipID,
			Start:     start,
			ToTrackID: optInt(payload, "to_track_id"),
		}, nil
	case "clip.resize":
		trackID, err := reqInt(payload, "track_id")
		if err != nil {
			return nil, err
		}
		clipID, err := reqString(payload, "clip_id")
		if err != nil {
			return nil, err
		}
		length, err := reqFloat(payload, "length")
		if err != nil {
			return nil, err
		}
		return engine.CmdClipResize{TrackID: trackID, ClipID: clipID, Length: length}, nil
	case "clip.delete":
		trackID, err := reqInt(payload, "track_id")
		if err != nil {
			return nil, err
		}
		clipID, err := reqString(payload, "clip_id")
		if err != nil {
			return nil, err
		}
		return engine.CmdClipDelete{TrackID: trackID, ClipID: clipID}, nil

	// Plugin
	case "plugin.scan":
		return engine.CmdPluginScan{}, nil
	case "plugin.add":
		trackID, err := reqInt(payload, "track_id")
		if err != nil {
			return nil, err
		}
		uid, err := reqString(payload, "plugin_uid")
		if err != nil {
			return nil, err
		}
		return engine.CmdPluginAdd{
			TrackID:     trackID,
			PluginUID:   uid,
			InsertIndex: optInt(payload, "insert_index"),
			Bypassed:    optBool(payload, "bypassed"),
		}, nil
	case "plugin.remove":
		return engine.CmdPluginRemove{
			NodeID:      optStringOr(payload, "node_id", ""),
			TrackID:     optInt(payload, "track_id"),
			PluginIndex: optInt(payload, "plugin_index"),
		}, nil
	case "plugin.reorder":
		trackID, err := reqInt(payload, "track_id")
		if err != nil {
			return nil, err
		}
		from, err := reqInt(payload, "from_index")
		if err != nil {
			return nil, err
		}
		to, err := reqInt(payload, "to_index")
		if err != nil {
			return nil, err
		}
		return engine.CmdPluginReorder{TrackID: trackID, FromIndex: from, ToIndex: to}, nil
	case "plugin.set-bypass":
		return engine.CmdPluginSetBypass{
			NodeID:      optStringOr(payload, "node_id", ""),
			TrackID:     optInt(payload, "track_id"),
			PluginIndex: optInt(payload, "plugin_index"),
			Bypassed:    optBoolOr(payload, "bypassed", true),
		}, nil
	case "plugin.set-parameter":
		paramID, err := reqString(payload, "param_id")
		if err != nil {
			return nil, err
		}
		value, err := reqFloat(payload, "value")
		if err != nil {
			return nil, err
		}
		c := engine.CmdPluginSetParameter{
			ParamID: paramID,
			Value:   value,
			NodeID:  optStringOr(payload, "node_id", ""),
		}
		if c.NodeID == "" {
			trackID, err := reqInt(payload, "track_id")
			if err != nil {
				return nil, err
			}
			index, err := reqInt(payload, "plugin_index")
			if err != nil {
				return nil, err
			}
			c.TrackID = trackID
			c.PluginIndex = index
		}
		return c, nil

	// Project I/O
	case "project.load":
		filename, err := reqString(payload, "filename")
		if err != nil {
			return nil, err
		}
		return engine.CmdProjectLoad{Filename: filename}, nil
	case "project.save":
		return engine.CmdProjectSave{Filename: optStringOr(payload, "filename", "")}, nil
	case "project.update-view":
		return engine.CmdUpdateView{
			Bars:           optInt(payload, "bars"),
			BarWidth:       optFloat(payload, "bar_width"),
			ShowTrackNodes: optBool(payload, "show_track_nodes"),
		}, nil

	default:
		return nil, fmt.Errorf("unknown command %q", cmd)
	}
}

// ackMessage assembles exactly one acknowledgment for a command: the
// result's data fields merged at the top level next to ok/error, the
// client's correlation id echoed verbatim.
func ackMessage(env commandEnvelope, res engine.Result) []byte {
	msg := map[string]any{
		"type": "ack",
		"cmd":  env.Cmd,
		"ok":   res.OK,
	}
	if len(env.ID) > 0 {
		msg["id"] = json.RawMessage(env.ID)
	}
	for k, v := range res.Data {
		msg[k] = v
	}
	if !res.OK {
		msg["error"] = res.Error
	}
	if res.NativeSync != nil {
		msg["nativeSync"] = res.NativeSync
	}
	return mustMarshal(msg)
}

func errorEvent(cmd string, err error) []byte {
	return mustMarshal(map[string]any{"type": "error", "event": cmd, "error": err.Error()})
}

func mustMarshal(v any) []byte {
	data, err := codec.Marshal(v)
	if err != nil {
		// Every message we emit is built from plain maps and model types;
		// a marshal failure is a programming error.
		panic(fmt.Sprintf("gateway: marshal: %v", err))
	}
	return data
}

func remarshal(src any, dst any) error {
	raw, err := codec.Marshal(src)
	if err != nil {
		return err
	}
	return codec.Unmarshal(raw, dst)
}

func reqFloat(m map[string]any, key string) (float64, error) {
	v, ok := m[key]
	if !ok {
		return 0, fmt.Errorf("%s is required", key)
	}
	f, ok := asFloat(v)
	if !ok {
		return 0, fmt.Errorf("%s must be a number", key)
	}
	return f, nil
}

func reqInt(m map[string]any, key string) (int, error) {
	f, err := reqFloat(m, key)
	if err != nil {
		return 0, err
	}
	return int(f), nil
}

func reqString(m map[string]any, key string) (string, error) {
	v, ok := m[key]
	if !ok {
		return "", fmt.Errorf("%s is required", key)
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return "", fmt.Errorf("%s must be a non-empty string", key)
	}
	return s, nil
}

func reqIntSlice(m map[string]any, key string) ([]int, error) {
	v, ok := m[key]
	if !ok {
		return nil, fmt.Errorf("%s is required", key)
	}
	list, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("%s must be an array of integers", key)
	}
	out := make([]int, 0, len(list))
	for _, entry := range list {
		f, ok := asFloat(entry)
		if !ok {
			return nil, fmt.Errorf("%s must be an array of integers", key)
		}
		out = append(out, int(f))
	}
	return out, nil
}

func optFloat(m map[string]any, key string) *float64 {
	if v, ok := m[key]; ok {
		if f, ok := asFloat(v); ok {
			return &f
		}
	}
	return nil
}

func optInt(m map[string]any, key string) *int {
	if f := optFloat(m, key); f != nil {
		i := int(*f)
		return &i
	}
	return nil
}

func optBool(m map[string]any, key string) *bool {
	if v, ok := m[key]; ok {
		if b, ok := v.(bool); ok {
			return &b
		}
	}
	return nil
}

func optBoolOr(m map[string]any, key string, fallback bool) bool {
	if b := optBool(m, key); b != nil {
		return *b
	}
	return fallback
}

func optStringOr(m map[string]any, key, fallback string) string {
	if v, ok := m[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return fallback
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}
