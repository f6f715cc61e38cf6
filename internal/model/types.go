// Package model is the typed in-memory representation of a TheStuu project:
// tracks, clips, patterns, plugin nodes, mixer strips and view state. It is
// pure data plus a canonical normalizer/validator — no I/O, no network, no
// backend knowledge.
package model

// GridUnit is the single quantization constant used throughout the core:
// one sixteenth of a beat. All clip/note start and length values snap to
// multiples of it.
const GridUnit = 1.0 / 16.0

const (
	MinBPM = 20.0
	MaxBPM = 300.0

	MinTrackNameLen = 1
	MaxTrackNameLen = 25

	MinViewBars = 8
	MaxViewBars = 4096
	MinBarWidth = 36.0
	MaxBarWidth = 220.0

	MinVolume = 0.0
	MaxVolume = 1.2
	MinPan    = -1.0
	MaxPan    = 1.0

	MinPatternLength = 1
	MaxPatternLength = 128
	MinSwing         = 0.0
	MaxSwing         = 0.95

	MinVelocity = 0.0
	MaxVelocity = 1.0

	MinPitch = 0
	MaxPitch = 127

	MaxWaveformPeaks = 2048

	SchemaVersion = "1.0.0-alpha"
)

// PatternKind distinguishes the two Pattern variants.
type PatternKind string

const (
	PatternDrum PatternKind = "drum"
	PatternMIDI PatternKind = "midi"
)

// ClipKind distinguishes the pattern/audio/midi clip variants.
type ClipKind string

const (
	ClipPattern ClipKind = "pattern"
	ClipAudio   ClipKind = "audio"
	ClipMIDI    ClipKind = "midi"
)

// Project is the root entity.
type Project struct {
	Version string  `json:"version"`
	Name    string  `json:"project_name"`
	BPM     float64 `json:"bpm"`

	ViewBars           int     `json:"playlist_view_bars"`
	ViewBarWidth       float64 `json:"playlist_bar_width"`
	ViewShowTrackNodes bool    `json:"playlist_show_track_nodes"`

	Tracks   []*Track      `json:"playlist"`
	Patterns []*Pattern    `json:"patterns"`
	Mixer    []*MixerStrip `json:"mixer"`
	Nodes    []*PluginNode `json:"nodes"`
}

// Track is identified by a positive, 1-based, contiguous track_id.
type Track struct {
	ID             int     `json:"track_id"`
	Name           string  `json:"name"`
	ChainCollapsed bool    `json:"chain_collapsed"`
	ChainEnabled   bool    `json:"chain_enabled"`
	Clips          []*Clip `json:"clips"`
}

// Clip is identified by an opaque string unique within its track.
type Clip struct {
	ID     string   `json:"id"`
	Start  float64  `json:"start"`
	Length float64  `json:"length"`
	Kind   ClipKind `json:"type"`

	// Pattern clip.
	PatternID string `json:"pattern_id,omitempty"`

	// Audio/MIDI (file-imported) clip.
	SourceFilename string    `json:"source_filename,omitempty"`
	SourceFormat   string    `json:"source_format,omitempty"`
	MimeType       string    `json:"mime_type,omitempty"`
	ByteSize       *int64    `json:"byte_size,omitempty"`
	DurationSec    *float64  `json:"duration_seconds,omitempty"`
	WaveformPeaks  []float64 `json:"waveform_peaks,omitempty"`
	SourcePath     string    `json:"source_path,omitempty"`
}

// Pattern is an opaque string id unique within the project.
type Pattern struct {
	ID     string      `json:"id"`
	Kind   PatternKind `json:"kind"`
	Length int         `json:"length"`
	Swing  float64     `json:"swing"`

	// Drum pattern: lane -> step index -> velocity.
	Steps []DrumStep `json:"steps,omitempty"`

	// MIDI pattern.
	Notes []*MIDINote `json:"notes,omitempty"`
}

// DrumStep is one (lane, step_index, velocity) triple. (lane, step_index)
// pairs are unique within a pattern.
type DrumStep struct {
	Lane     string  `json:"lane"`
	Step     int     `json:"step"`
	Velocity float64 `json:"velocity"`
}

// MIDINote is one note in a MIDI pattern's ordered sequence.
type MIDINote struct {
	ID       string  `json:"id"`
	Start    float64 `json:"start"`
	Length   float64 `json:"length"`
	Pitch    int     `json:"pitch"`
	Velocity float64 `json:"velocity"`
}

// PluginParam describes one entry of a plugin node's parameter schema.
type PluginParam struct {
	ID      string  `json:"id"`
	Name    string  `json:"name"`
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
	Default float64 `json:"default"`
}

// PluginNode is one stage in a track's processing chain.
type PluginNode struct {
	ID          string `json:"id"`
	NodeType    string `json:"node_type"`
	PluginName  string `json:"plugin_name"`
	PluginUID   string `json:"plugin_uid"`
	TrackID     int    `json:"track_id"`
	PluginIndex int    `json:"plugin_index"`
	Bypassed    bool   `json:"bypassed"`

	Parameters []PluginParam      `json:"parameters"`
	Values     map[string]float64 `json:"values"`
}

// MixerStrip is one per track, keyed by track_id.
type MixerStrip struct {
	TrackID   int     `json:"track_id"`
	Volume    float64 `json:"volume"`
	Pan       float64 `json:"pan"`
	Mute      bool    `json:"mute"`
	Solo      bool    `json:"solo"`
	RecordArm bool    `json:"record_arm"`
}
