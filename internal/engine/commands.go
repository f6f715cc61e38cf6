package engine

import "github.com/thestuu/engine/internal/model"

// Transport commands.

type CmdPlay struct{}
type CmdPause struct{}
type CmdStop struct{}
type CmdSetBPM struct{ BPM float64 }
type CmdSeek struct {
	PositionBeats *float64
	PositionBars  *float64
}

func (CmdPlay) commandName() string   { return "play" }
func (CmdPause) commandName() string  { return "pause" }
func (CmdStop) commandName() string   { return "stop" }
func (CmdSetBPM) commandName() string { return "set-bpm" }
func (CmdSeek) commandName() string   { return "seek" }

// Track lifecycle commands.

type CmdTrackCreate struct{}
type CmdTrackInsert struct{ AfterTrackID int }
type CmdTrackReorder struct {
	TrackID int
	ToIndex int
}
type CmdTrackDelete struct{ TrackID int }
type CmdTrackBulkDelete struct{ TrackIDs []int }
type CmdTrackDuplicate struct{ TrackID int }
type CmdTrackSetName struct {
	TrackID int
	Name    string
}
type CmdTrackSetChainCollapsed struct {
	TrackID   int
	Collapsed bool
}
type CmdTrackSetChainEnabled struct {
	TrackID int
	Enabled bool
}

func (CmdTrackCreate) commandName() string            { return "track.create" }
func (CmdTrackInsert) commandName() string            { return "track.insert" }
func (CmdTrackReorder) commandName() string           { return "track.reorder" }
func (CmdTrackDelete) commandName() string            { return "track.delete" }
func (CmdTrackBulkDelete) commandName() string        { return "track.bulk-delete" }
func (CmdTrackDuplicate) commandName() string         { return "track.duplicate" }
func (CmdTrackSetName) commandName() string           { return "track.set-name" }
func (CmdTrackSetChainCollapsed) commandName() string { return "track.set-chain-collapsed" }
func (CmdTrackSetChainEnabled) commandName() string   { return "track.set-chain-enabled" }

// Mixer commands.

type CmdSetVolume struct {
	TrackID int
	Volume  float64
}
type CmdSetPan struct {
	TrackID int
	Pan     float64
}
type CmdSetMute struct {
	TrackID int
	Mute    bool
}
type CmdSetSolo struct {
	TrackID int
	Solo    bool
}
type CmdSetRecordArm struct {
	TrackID int
	Armed   bool
}

func (CmdSetVolume) commandName() string    { return "mixer.set-volume" }
func (CmdSetPan) commandName() string       { return "mixer.set-pan" }
func (CmdSetMute) commandName() string      { return "mixer.set-mute" }
func (CmdSetSolo) commandName() string      { return "mixer.set-solo" }
func (CmdSetRecordArm) commandName() string { return "mixer.set-record-arm" }

// Pattern commands.

type CmdPatternCreate struct{ Pattern *model.Pattern }
type CmdPatternUpdate struct {
	PatternID string
	Length    *int
	Swing     *float64
}
type CmdPatternUpdateStep struct {
	PatternID string
	Lane      string
	StepIndex int
	Velocity  float64
}
type CmdPatternDelete struct{ PatternID string }
type CmdMoveMIDINote struct {
	PatternID string
	NoteID    string
	Start     *float64
	Length    *float64
	Pitch     *int
	Velocity  *float64
}

func (CmdPatternCreate) commandName() string     { return "pattern.create" }
func (CmdPatternUpdate) commandName() string     { return "pattern.update" }
func (CmdPatternUpdateStep) commandName() string { return "pattern.update-step" }
func (CmdPatternDelete) commandName() string     { return "pattern.delete" }
func (CmdMoveMIDINote) commandName() string      { return "pattern.move-midi-note" }

// Clip commands.

// ImportSource carries the metadata an import-file command supplies for an
// audio or MIDI clip.
type ImportSource struct {
	Filename    string
	Format      string
	MimeType    string
	ByteSize    *int64
	DurationSec *float64
	SourcePath  string
	Kind        model.ClipKind
}

type CmdClipCreate struct {
	TrackID   int
	PatternID string
	ID        string
	Start     *float64
	Length    *float64
}
type CmdClipImportFile struct {
	TrackID int
	Source  ImportSource
	Start   *float64
	Length  *float64
}
type CmdClipMove struct {
	TrackID   int
	ClipID    string
	Start     float64
	ToTrackID *int
}
type CmdClipResize struct {
	TrackID int
	ClipID  string
	Length  float64
}
type CmdClipDelete struct {
	TrackID int
	ClipID  string
}

func (CmdClipCreate) commandName() string     { return "clip.create" }
func (CmdClipImportFile) commandName() string { return "clip.import-file" }
func (CmdClipMove) commandName() string       { return "clip.move" }
func (CmdClipResize) commandName() string     { return "clip.resize" }
func (CmdClipDelete) commandName() string     { return "clip.delete" }

// Plugin commands.

type CmdPluginScan struct{}
type CmdPluginAdd struct {
	TrackID     int
	PluginUID   string
	InsertIndex *int
	Bypassed    *bool
}
type CmdPluginRemove struct {
	NodeID      string
	TrackID     *int
	PluginIndex *int
}
type CmdPluginReorder struct {
	TrackID   int
	FromIndex int
	ToIndex   int
}
type CmdPluginSetBypass struct {
	NodeID      string
	TrackID     *int
	PluginIndex *int
	Bypassed    bool
}
type CmdPluginSetParameter struct {
	TrackID     int
	PluginIndex int
	ParamID     string
	Value       float64
	NodeID      string
}

func (CmdPluginScan) commandName() string         { return "plugin.scan" }
func (CmdPluginAdd) commandName() string          { return "plugin.add" }
func (CmdPluginRemove) commandName() string       { return "plugin.remove" }
func (CmdPluginReorder) commandName() string      { return "plugin.reorder" }
func (CmdPluginSetBypass) commandName() string    { return "plugin.set-bypass" }
func (CmdPluginSetParameter) commandName() string { return "plugin.set-parameter" }

// Project I/O commands.

type CmdProjectLoad struct{ Filename string }
type CmdProjectSave struct {
	Filename string
	Project  *model.Project
}
type CmdUpdateView struct {
	Bars           *int
	BarWidth       *float64
	ShowTrackNodes *bool
}

func (CmdProjectLoad) commandName() string { return "project.load" }
func (CmdProjectSave) commandName() string { return "project.save" }
func (CmdUpdateView) commandName() string  { return "project.update-view" }
