package engine

import (
	"github.com/thestuu/engine/internal/model"
)

// doProjectLoad replaces the live project with the named document, which
// the Persistence Bridge normalizes on read. The loaded
// bpm drives the fallback clock; a connected backend keeps its own tempo
// until the next set-bpm.
func (e *Engine) doProjectLoad(c CmdProjectLoad) Result {
	if c.Filename == "" {
		return fail(model.Validation("project.load: filename is required"))
	}
	p, err := e.bridge.Load(c.Filename)
	if err != nil {
		return fail(err)
	}
	if errs := model.Validate(p); len(errs) > 0 {
		return fail(model.Validation("project.load: %s still invalid after normalization: %v", c.Filename, errs[0]))
	}
	e.project = p
	e.setCurrentFile(c.Filename)
	if !e.NativeConnected() {
		e.clock.SetBPM(p.BPM)
	}
	e.log.Info().Str("file", c.Filename).Int("tracks", len(p.Tracks)).Msg("project loaded")
	return e.finish(map[string]any{"file": c.Filename})
}

// doProjectSave writes the live project (or an explicitly supplied one)
// through the Persistence Bridge's normalize-validate-atomic-write path.
// Mutations never persist implicitly; save is the one explicit write.
func (e *Engine) doProjectSave(c CmdProjectSave) Result {
	filename := c.Filename
	if filename == "" {
		filename = e.currentFile
	}
	if filename == "" {
		return fail(model.Validation("project.save: no filename given and no project loaded"))
	}
	project := c.Project
	if project == nil {
		project = e.project
	}
	if err := e.bridge.Save(filename, project); err != nil {
		return fail(err)
	}
	if project == e.project {
		e.setCurrentFile(filename)
	}
	return ok(map[string]any{"file": filename})
}

func (e *Engine) doUpdateView(c CmdUpdateView) Result {
	if c.Bars == nil && c.BarWidth == nil && c.ShowTrackNodes == nil {
		return fail(model.Validation("project.update-view: nothing to update"))
	}
	if c.Bars != nil {
		e.project.ViewBars = model.ClampInt(*c.Bars, model.MinViewBars, model.MaxViewBars)
	}
	if c.BarWidth != nil {
		e.project.ViewBarWidth = model.Clamp(*c.BarWidth, model.MinBarWidth, model.MaxBarWidth)
	}
	if c.ShowTrackNodes != nil {
		e.project.ViewShowTrackNodes = *c.ShowTrackNodes
	}
	return e.finish(map[string]any{
		"bars":           e.project.ViewBars,
		"barWidth":       e.project.ViewBarWidth,
		"showTrackNodes": e.project.ViewShowTrackNodes,
	})
}
