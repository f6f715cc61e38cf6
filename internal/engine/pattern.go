package engine

import (
	"github.com/thestuu/engine/internal/model"
)

// doPatternCreate adds a pattern to the project, minting an id when the
// caller omitted one.
func (e *Engine) doPatternCreate(c CmdPatternCreate) Result {
	pat := c.Pattern
	if pat == nil {
		return fail(model.Validation("pattern.create: pattern is required"))
	}
	if pat.Kind != model.PatternDrum && pat.Kind != model.PatternMIDI {
		return fail(model.Validation("pattern.create: kind must be %q or %q", model.PatternDrum, model.PatternMIDI))
	}
	if pat.ID == "" {
		pat.ID = model.NewID()
	}
	if _, exists := model.FindPattern(e.project, pat.ID); exists {
		return fail(model.Validation("pattern.create: duplicate pattern id %q", pat.ID))
	}
	if pat.Length == 0 {
		pat.Length = 16
	}
	e.project.Patterns = append(e.project.Patterns, pat)
	return e.finish(map[string]any{"patternId": pat.ID})
}

func (e *Engine) doPatternUpdate(c CmdPatternUpdate) Result {
	pat, ok := model.FindPattern(e.project, c.PatternID)
	if !ok {
		return fail(model.NotFound("pattern.update: no pattern %q", c.PatternID))
	}
	if c.Length == nil && c.Swing == nil {
		return fail(model.Validation("pattern.update: nothing to update"))
	}
	if c.Length != nil {
		pat.Length = model.ClampInt(*c.Length, model.MinPatternLength, model.MaxPatternLength)
	}
	if c.Swing != nil {
		pat.Swing = model.Clamp(*c.Swing, model.MinSwing, model.MaxSwing)
	}
	return e.finish(map[string]any{"patternId": pat.ID, "length": pat.Length, "swing": pat.Swing})
}

// doPatternUpdateStep upserts one (lane, step) velocity on a drum pattern;
// a velocity <= 0 removes the step.
func (e *Engine) doPatternUpdateStep(c CmdPatternUpdateStep) Result {
	pat, ok := model.FindPattern(e.project, c.PatternID)
	if !ok {
		return fail(model.NotFound("pattern.update-step: no pattern %q", c.PatternID))
	}
	if pat.Kind != model.PatternDrum {
		return fail(model.Validation("pattern.update-step: pattern %q is not a drum pattern", c.PatternID))
	}
	if c.Lane == "" {
		return fail(model.Validation("pattern.update-step: lane is required"))
	}
	if c.StepIndex < 0 || c.StepIndex >= pat.Length {
		return fail(model.Validation("pattern.update-step: step %d out of range [0,%d)", c.StepIndex, pat.Length))
	}
	if !finite(c.Velocity) {
		return fail(model.Validation("pattern.update-step: velocity must be finite"))
	}

	if c.Velocity <= 0 {
		kept := pat.Steps[:0:0]
		for _, s := range pat.Steps {
			if !(s.Lane == c.Lane && s.Step == c.StepIndex) {
				kept = append(kept, s)
			}
		}
		pat.Steps = kept
		return e.finish(map[string]any{"patternId": pat.ID, "lane": c.Lane, "step": c.StepIndex, "removed": true})
	}

	vel := model.Clamp(c.Velocity, 0, model.MaxVelocity)
	for i := range pat.Steps {
		if pat.Steps[i].Lane == c.Lane && pat.Steps[i].Step == c.StepIndex {
			pat.Steps[i].Velocity = vel
			return e.finish(map[string]any{"patternId": pat.ID, "lane": c.Lane, "step": c.StepIndex, "velocity": vel})
		}
	}
	pat.Steps = append(pat.Steps, model.DrumStep{Lane: c.Lane, Step: c.StepIndex, Velocity: vel})
	return e.finish(map[string]any{"patternId": pat.ID, "lane": c.Lane, "step": c.StepIndex, "velocity": vel})
}

// doPatternDelete removes the pattern and cascades: every clip referencing
// it, on every track, is dropped.
func (e *Engine) doPatternDelete(c CmdPatternDelete) Result {
	if _, ok := model.FindPattern(e.project, c.PatternID); !ok {
		return fail(model.NotFound("pattern.delete: no pattern %q", c.PatternID))
	}
	kept := e.project.Patterns[:0:0]
	for _, pat := range e.project.Patterns {
		if pat.ID != c.PatternID {
			kept = append(kept, pat)
		}
	}
	e.project.Patterns = kept

	dropped := 0
	for _, t := range e.project.Tracks {
		clips := t.Clips[:0:0]
		for _, clip := range t.Clips {
			if clip.Kind == model.ClipPattern && clip.PatternID == c.PatternID {
				dropped++
				continue
			}
			clips = append(clips, clip)
		}
		t.Clips = clips
	}
	e.log.Info().Str("pattern", c.PatternID).Int("clipsDropped", dropped).Msg("pattern deleted")
	return e.finish(map[string]any{"patternId": c.PatternID, "clipsDropped": dropped})
}

func (e *Engine) doMoveMIDINote(c CmdMoveMIDINote) Result {
	pat, ok := model.FindPattern(e.project, c.PatternID)
	if !ok {
		return fail(model.NotFound("pattern.move-midi-note: no pattern %q", c.PatternID))
	}
	if pat.Kind != model.PatternMIDI {
		return fail(model.Validation("pattern.move-midi-note: pattern %q is not a midi pattern", c.PatternID))
	}
	var note *model.MIDINote
	for _, n := range pat.Notes {
		if n.ID == c.NoteID {
			note = n
			break
		}
	}
	if note == nil {
		return fail(model.NotFound("pattern.move-midi-note: no note %q in pattern %q", c.NoteID, c.PatternID))
	}
	if c.Start != nil && (!finite(*c.Start) || *c.Start < 0) {
		return fail(model.Validation("pattern.move-midi-note: start must be a finite value >= 0"))
	}
	if c.Length != nil && (!finite(*c.Length) || *c.Length <= 0) {
		return fail(model.Validation("pattern.move-midi-note: length must be a finite value > 0"))
	}
	if c.Velocity != nil && !finite(*c.Velocity) {
		return fail(model.Validation("pattern.move-midi-note: velocity must be finite"))
	}
	if c.Start != nil {
		note.Start = model.QuantizeToGrid(*c.Start)
	}
	if c.Length != nil {
		note.Length = model.QuantizeToGrid(*c.Length)
		if note.Length <= 0 {
			note.Length = model.GridUnit
		}
	}
	if c.Pitch != nil {
		note.Pitch = model.ClampInt(*c.Pitch, model.MinPitch, model.MaxPitch)
	}
	if c.Velocity != nil {
		note.Velocity = model.Clamp(*c.Velocity, model.MinVelocity, model.MaxVelocity)
	}
	return e.finish(map[string]any{"patternId": pat.ID, "noteId": note.ID})
}
