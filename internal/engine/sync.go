package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/thestuu/engine/internal/model"
)

// fallbackPluginUID is the known internal plugin loaded when a node's own
// uid is missing and the backend reports "VST not found". Tried once per
// node, never recursively.
const fallbackPluginUID = "thestuu.internal.passthrough"

// SyncReport is the collect-errors result of one best-effort re-sync pass:
// the local model stays authoritative and individual failures accumulate
// instead of aborting.
type SyncReport struct {
	Restored int      `json:"restored"`
	Failed   int      `json:"failed"`
	Errors   []string `json:"errors"`
}

func (r *SyncReport) addError(format string, args ...any) {
	r.Failed++
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

// resync replays the whole plugin graph and every file-backed clip into the
// backend after a structural change. Call sites run it after
// model.Normalize so plugin indexes are already dense and e.project.Nodes
// is already in (track_id, plugin_index) order. Returns nil when the
// backend is not connected; the replay then happens on the next structural
// operation after reconnect.
func (e *Engine) resync(ctx context.Context) *SyncReport {
	if !e.NativeConnected() {
		return nil
	}
	report := &SyncReport{Errors: []string{}}

	trackCount := e.cfg.DefaultTrackCount
	for _, n := range e.project.Nodes {
		if n.TrackID > trackCount {
			trackCount = n.TrackID
		}
	}
	for _, t := range e.project.Tracks {
		if t.ID > trackCount {
			trackCount = t.ID
		}
	}

	if _, err := e.ipc.Request(ctx, "edit:reset", map[string]any{"track_count": trackCount}); err != nil {
		report.addError("edit:reset: %v", err)
		e.log.Warn().Err(err).Msg("backend edit reset failed, aborting resync")
		return report
	}

	for _, n := range e.project.Nodes {
		if err := e.syncNode(ctx, n, report); err != nil {
			report.addError("vst:load %s (track %d): %v", n.PluginUID, n.TrackID, err)
			continue
		}
		report.Restored++
	}

	for _, t := range e.project.Tracks {
		for _, clip := range t.Clips {
			if clip.SourcePath == "" || clip.Start < 0 || clip.Length <= 0 {
				continue
			}
			if clip.Kind != model.ClipAudio && clip.Kind != model.ClipMIDI {
				continue
			}
			_, err := e.ipc.Request(ctx, "clip:import-file", map[string]any{
				"track_id":    t.ID,
				"source_path": clip.SourcePath,
				"start":       clip.Start,
				"length":      clip.Length,
				"type":        string(clip.Kind),
			})
			if err != nil {
				report.addError("clip:import-file %s (track %d): %v", clip.SourceFilename, t.ID, err)
				continue
			}
			report.Restored++
		}
	}

	if report.Failed > 0 {
		e.log.Warn().Int("restored", report.Restored).Int("failed", report.Failed).
			Strs("errors", report.Errors).Msg("backend resync finished with failures")
	} else {
		e.log.Debug().Int("restored", report.Restored).Msg("backend resync complete")
	}
	return report
}

// syncNode loads one plugin node into the backend and replays its stored
// parameter values, adopting everything the backend reports back.
// Parameter failures accumulate in report but do not fail the node.
func (e *Engine) syncNode(ctx context.Context, n *model.PluginNode, report *SyncReport) error {
	resp, err := e.ipc.Request(ctx, "vst:load", map[string]any{"plugin_uid": n.PluginUID, "track_id": n.TrackID})
	if err != nil && n.PluginUID == "" && isVSTNotFound(err) {
		resp, err = e.ipc.Request(ctx, "vst:load", map[string]any{"plugin_uid": fallbackPluginUID, "track_id": n.TrackID})
	}
	if err != nil {
		return err
	}
	adoptPluginPayload(n, resp)

	for paramID, value := range n.Values {
		pResp, err := e.ipc.Request(ctx, "vst:param:set", map[string]any{
			"track_id":     n.TrackID,
			"plugin_index": n.PluginIndex,
			"param_id":     paramID,
			"value":        value,
		})
		if err != nil {
			report.addError("vst:param:set %s on %s: %v", paramID, n.PluginUID, err)
			continue
		}
		n.Values[paramID] = appliedParamValue(pResp, value)
	}
	return nil
}

func isVSTNotFound(err error) bool {
	return err != nil && strings.Contains(err.Error(), "VST not found")
}

// adoptPluginPayload copies the backend's reported name, uid, trackId,
// pluginIndex and parameter schema onto the local node.
func adoptPluginPayload(n *model.PluginNode, payload map[string]any) {
	plugin, ok := payload["plugin"].(map[string]any)
	if !ok {
		return
	}
	if name, ok := plugin["name"].(string); ok && name != "" {
		n.PluginName = name
	}
	if uid, ok := plugin["uid"].(string); ok && uid != "" {
		n.PluginUID = uid
	}
	if v, ok := plugin["trackId"]; ok {
		if id := int(toFloat(v)); id > 0 {
			n.TrackID = id
		}
	}
	if v, ok := plugin["pluginIndex"]; ok {
		if idx := int(toFloat(v)); idx >= 0 {
			n.PluginIndex = idx
		}
	}
	if params := paramSchemaFromPayload(plugin["parameters"]); params != nil {
		n.Parameters = params
	}
}

// paramSchemaFromPayload decodes a backend parameter list into the model's
// schema shape.
func paramSchemaFromPayload(v any) []model.PluginParam {
	list, ok := v.([]any)
	if !ok {
		return nil
	}
	params := make([]model.PluginParam, 0, len(list))
	for _, entry := range list {
		m, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		p := model.PluginParam{}
		if id, ok := m["id"].(string); ok {
			p.ID = id
		}
		if name, ok := m["name"].(string); ok {
			p.Name = name
		}
		p.Min = toFloat(m["min"])
		p.Max = toFloat(m["max"])
		p.Default = toFloat(m["value"])
		if p.ID == "" {
			continue
		}
		params = append(params, p)
	}
	return params
}

// appliedParamValue extracts the value the backend actually applied from a
// vst:param:set response, falling back to the requested value when the
// backend omits it.
func appliedParamValue(payload map[string]any, requested float64) float64 {
	param, ok := payload["parameter"].(map[string]any)
	if !ok {
		return requested
	}
	v, ok := param["value"]
	if !ok {
		return requested
	}
	applied := toFloat(v)
	if !finite(applied) {
		return requested
	}
	return applied
}
