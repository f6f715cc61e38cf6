package engine

import (
	"github.com/thestuu/engine/internal/model"
)

// mixer commands upsert the strip for the given track id, clamping to
// declared ranges. A missing track is a NotFoundError;
// upsert never creates a strip for a nonexistent track.
func (e *Engine) strip(trackID int) (*model.MixerStrip, error) {
	t, ok := model.FindTrack(e.project, trackID)
	if !ok {
		return nil, model.NotFound("no track %d", trackID)
	}
	s, ok := model.FindMixerStrip(e.project, trackID)
	if !ok {
		s = model.DefaultMixerStrip(t.ID)
		e.project.Mixer = append(e.project.Mixer, s)
	}
	return s, nil
}

func (e *Engine) doSetVolume(c CmdSetVolume) Result {
	s, err := e.strip(c.TrackID)
	if err != nil {
		return fail(err)
	}
	s.Volume = model.Clamp(c.Volume, model.MinVolume, model.MaxVolume)
	return e.finish(map[string]any{"trackId": c.TrackID, "volume": s.Volume})
}

func (e *Engine) doSetPan(c CmdSetPan) Result {
	s, err := e.strip(c.TrackID)
	if err != nil {
		return fail(err)
	}
	s.Pan = model.Clamp(c.Pan, model.MinPan, model.MaxPan)
	return e.finish(map[string]any{"trackId": c.TrackID, "pan": s.Pan})
}

func (e *Engine) doSetMute(c CmdSetMute) Result {
	s, err := e.strip(c.TrackID)
	if err != nil {
		return fail(err)
	}
	s.Mute = c.Mute
	return e.finish(map[string]any{"trackId": c.TrackID, "mute": s.Mute})
}

func (e *Engine) doSetSolo(c CmdSetSolo) Result {
	s, err := e.strip(c.TrackID)
	if err != nil {
		return fail(err)
	}
	s.Solo = c.Solo
	return e.finish(map[string]any{"trackId": c.TrackID, "solo": s.Solo})
}

func (e *Engine) doSetRecordArm(c CmdSetRecordArm) Result {
	s, err := e.strip(c.TrackID)
	if err != nil {
		return fail(err)
	}
	s.RecordArm = c.Armed
	return e.finish(map[string]any{"trackId": c.TrackID, "recordArm": s.RecordArm})
}
