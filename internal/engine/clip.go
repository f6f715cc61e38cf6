package engine

import (
	"context"
	"strings"

	"github.com/thestuu/engine/internal/media"
	"github.com/thestuu/engine/internal/model"
)

// doClipCreate binds a pattern onto a track's timeline. An omitted start
// places the clip at the grid-rounded end of the track's existing content;
// an omitted length defaults to one beat.
func (e *Engine) doClipCreate(c CmdClipCreate) Result {
	t, okT := model.FindTrack(e.project, c.TrackID)
	if !okT {
		return fail(model.NotFound("clip.create: no track %d", c.TrackID))
	}
	if _, okP := model.FindPattern(e.project, c.PatternID); !okP {
		return fail(model.NotFound("clip.create: no pattern %q", c.PatternID))
	}
	id := c.ID
	if id == "" {
		id = model.NewID()
	}
	if _, _, exists := model.FindClip(e.project, c.TrackID, id); exists {
		return fail(model.Validation("clip.create: duplicate clip id %q on track %d", id, c.TrackID))
	}
	start := model.CeilToGrid(model.MaxClipEnd(e.project, c.TrackID))
	if c.Start != nil {
		if !finite(*c.Start) || *c.Start < 0 {
			return fail(model.Validation("clip.create: start must be a finite value >= 0"))
		}
		start = model.QuantizeToGrid(*c.Start)
	}
	length := 1.0
	if c.Length != nil {
		if !finite(*c.Length) || *c.Length <= 0 {
			return fail(model.Validation("clip.create: length must be a finite value > 0"))
		}
		length = model.QuantizeToGrid(*c.Length)
		if length <= 0 {
			length = model.GridUnit
		}
	}
	clip := &model.Clip{ID: id, Start: start, Length: length, Kind: model.ClipPattern, PatternID: c.PatternID}
	t.Clips = append(t.Clips, clip)
	return e.finish(map[string]any{"trackId": t.ID, "clipId": clip.ID, "start": clip.Start, "length": clip.Length})
}

// doClipImportFile inserts a file-backed audio or MIDI clip. After the
// local insert succeeds, the source file is forwarded to the backend when
// connected and a source path is present; backend errors there are logged,
// never surfaced as command failures.
func (e *Engine) doClipImportFile(ctx context.Context, c CmdClipImportFile) Result {
	t, okT := model.FindTrack(e.project, c.TrackID)
	if !okT {
		return fail(model.NotFound("clip.import-file: no track %d", c.TrackID))
	}
	if c.Source.Filename == "" {
		return fail(model.Validation("clip.import-file: source filename is required"))
	}
	format := strings.ToLower(strings.TrimPrefix(c.Source.Format, "."))
	kind := c.Source.Kind
	switch {
	case model.AudioExtensions[format]:
		if kind == "" {
			kind = model.ClipAudio
		}
	case model.MIDIExtensions[format]:
		if kind == "" {
			kind = model.ClipMIDI
		}
	default:
		return fail(model.Validation("clip.import-file: unsupported source format %q", c.Source.Format))
	}
	if !model.ValidSourceFormat(kind, format) {
		return fail(model.Validation("clip.import-file: format %q does not match type %q", format, kind))
	}
	if c.Source.ByteSize != nil && *c.Source.ByteSize < 0 {
		return fail(model.Validation("clip.import-file: byte size must be >= 0"))
	}
	if c.Source.DurationSec != nil && (!finite(*c.Source.DurationSec) || *c.Source.DurationSec <= 0) {
		return fail(model.Validation("clip.import-file: duration must be a finite value > 0"))
	}

	start := model.CeilToGrid(model.MaxClipEnd(e.project, c.TrackID))
	if c.Start != nil {
		if !finite(*c.Start) || *c.Start < 0 {
			return fail(model.Validation("clip.import-file: start must be a finite value >= 0"))
		}
		start = model.QuantizeToGrid(*c.Start)
	}
	length := 8.0
	if c.Length != nil {
		if !finite(*c.Length) || *c.Length <= 0 {
			return fail(model.Validation("clip.import-file: length must be a finite value > 0"))
		}
		length = model.QuantizeToGrid(*c.Length)
		if length <= 0 {
			length = model.GridUnit
		}
	}

	clip := &model.Clip{
		ID:             model.NewID(),
		Start:          start,
		Length:         length,
		Kind:           kind,
		SourceFilename: c.Source.Filename,
		SourceFormat:   format,
		MimeType:       c.Source.MimeType,
		ByteSize:       c.Source.ByteSize,
		DurationSec:    c.Source.DurationSec,
		SourcePath:     c.Source.SourcePath,
	}
	if clip.DurationSec == nil && clip.SourcePath != "" {
		e.fillImportDuration(clip, format)
	}
	t.Clips = append(t.Clips, clip)

	if e.NativeConnected() && clip.SourcePath != "" {
		_, err := e.ipc.Request(ctx, "clip:import-file", map[string]any{
			"track_id":    t.ID,
			"source_path": clip.SourcePath,
			"start":       clip.Start,
			"length":      clip.Length,
			"type":        string(clip.Kind),
		})
		if err != nil {
			e.log.Warn().Err(err).Str("clip", clip.ID).Msg("backend clip import failed, keeping local clip")
		}
	}
	return e.finish(map[string]any{"trackId": t.ID, "clipId": clip.ID, "start": clip.Start, "length": clip.Length})
}

// fillImportDuration reads the source file's header to fill an omitted
// duration. Best-effort: failures are logged and the field stays unset.
func (e *Engine) fillImportDuration(clip *model.Clip, format string) {
	switch {
	case format == "wav":
		sec, err := media.WAVDuration(clip.SourcePath)
		if err != nil || sec <= 0 {
			e.log.Debug().Err(err).Str("path", clip.SourcePath).Msg("could not read wav duration")
			return
		}
		clip.DurationSec = &sec
	case model.MIDIExtensions[format]:
		beats, err := media.MIDIDuration(clip.SourcePath)
		if err != nil || beats <= 0 {
			e.log.Debug().Err(err).Str("path", clip.SourcePath).Msg("could not read midi duration")
			return
		}
		bpm := e.project.BPM
		if bpm <= 0 {
			bpm = 120
		}
		sec := beats * 60.0 / bpm
		clip.DurationSec = &sec
	}
}

// doClipMove moves a clip within its track or onto another one, quantizing
// the new start.
func (e *Engine) doClipMove(c CmdClipMove) Result {
	clip, src, ok := model.FindClip(e.project, c.TrackID, c.ClipID)
	if !ok {
		return fail(model.NotFound("clip.move: no clip %q on track %d", c.ClipID, c.TrackID))
	}
	if !finite(c.Start) || c.Start < 0 {
		return fail(model.Validation("clip.move: start must be a finite value >= 0"))
	}
	dst := src
	if c.ToTrackID != nil && *c.ToTrackID != src.ID {
		t, okT := model.FindTrack(e.project, *c.ToTrackID)
		if !okT {
			return fail(model.NotFound("clip.move: no target track %d", *c.ToTrackID))
		}
		if _, _, exists := model.FindClip(e.project, t.ID, clip.ID); exists {
			return fail(model.Validation("clip.move: clip id %q already exists on track %d", clip.ID, t.ID))
		}
		dst = t
	}
	clip.Start = model.QuantizeToGrid(c.Start)
	if dst != src {
		kept := src.Clips[:0:0]
		for _, existing := range src.Clips {
			if existing.ID != clip.ID {
				kept = append(kept, existing)
			}
		}
		src.Clips = kept
		dst.Clips = append(dst.Clips, clip)
	}
	return e.finish(map[string]any{"trackId": dst.ID, "clipId": clip.ID, "start": clip.Start})
}

func (e *Engine) doClipResize(c CmdClipResize) Result {
	clip, t, ok := model.FindClip(e.project, c.TrackID, c.ClipID)
	if !ok {
		return fail(model.NotFound("clip.resize: no clip %q on track %d", c.ClipID, c.TrackID))
	}
	if !finite(c.Length) || c.Length <= 0 {
		return fail(model.Validation("clip.resize: length must be a finite value > 0"))
	}
	clip.Length = model.QuantizeToGrid(c.Length)
	if clip.Length <= 0 {
		clip.Length = model.GridUnit
	}
	return e.finish(map[string]any{"trackId": t.ID, "clipId": clip.ID, "length": clip.Length})
}

func (e *Engine) doClipDelete(c CmdClipDelete) Result {
	_, t, ok := model.FindClip(e.project, c.TrackID, c.ClipID)
	if !ok {
		return fail(model.NotFound("clip.delete: no clip %q on track %d", c.ClipID, c.TrackID))
	}
	kept := t.Clips[:0:0]
	for _, existing := range t.Clips {
		if existing.ID != c.ClipID {
			kept = append(kept, existing)
		}
	}
	t.Clips = kept
	return e.finish(map[string]any{"trackId": t.ID, "clipId": c.ClipID})
}
