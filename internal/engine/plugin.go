package engine

import (
	"context"

	"github.com/thestuu/engine/internal/model"
)

// resolveNode finds a plugin node either by its opaque id or by the
// (track_id, plugin_index) pair, the two addressing forms the plugin
// remove and set-bypass commands accept.
func (e *Engine) resolveNode(nodeID string, trackID, pluginIndex *int) (*model.PluginNode, error) {
	if nodeID != "" {
		n, ok := model.FindNode(e.project, nodeID)
		if !ok {
			return nil, model.NotFound("no plugin node %q", nodeID)
		}
		return n, nil
	}
	if trackID == nil || pluginIndex == nil {
		return nil, model.Validation("node_id or track_id+plugin_index required")
	}
	n, ok := model.FindNodeByTrackIndex(e.project, *trackID, *pluginIndex)
	if !ok {
		return nil, model.NotFound("no plugin at index %d on track %d", *pluginIndex, *trackID)
	}
	return n, nil
}

// doPluginScan proxies the scan to the backend; there is no
// local plugin registry to serve it from.
func (e *Engine) doPluginScan(ctx context.Context) Result {
	if !e.NativeConnected() {
		return fail(model.Validation("plugin.scan: backend not connected"))
	}
	payload, err := e.ipc.Request(ctx, "vst:scan", map[string]any{})
	if err != nil {
		return fail(classifyIPCError(err))
	}
	return ok(map[string]any{"plugins": payload["plugins"]})
}

// doPluginAdd appends a node to the track's chain. When the backend is
// connected it issues vst:load first and adopts the reported name, index
// and parameter schema; offline it records the node with the uid as its
// display name until the next re-sync fills in the rest.
func (e *Engine) doPluginAdd(ctx context.Context, c CmdPluginAdd) Result {
	t, okT := model.FindTrack(e.project, c.TrackID)
	if !okT {
		return fail(model.NotFound("plugin.add: no track %d", c.TrackID))
	}
	if c.PluginUID == "" {
		return fail(model.Validation("plugin.add: plugin_uid is required"))
	}

	nextIndex := 0
	for _, n := range e.project.Nodes {
		if n.TrackID == t.ID && n.PluginIndex >= nextIndex {
			nextIndex = n.PluginIndex + 1
		}
	}
	node := &model.PluginNode{
		ID:          model.NewID(),
		NodeType:    "vst_instrument",
		PluginName:  c.PluginUID,
		PluginUID:   c.PluginUID,
		TrackID:     t.ID,
		PluginIndex: nextIndex,
		Values:      map[string]float64{},
	}
	if c.Bypassed != nil {
		node.Bypassed = *c.Bypassed
	}

	if e.NativeConnected() {
		resp, err := e.ipc.Request(ctx, "vst:load", map[string]any{"plugin_uid": c.PluginUID, "track_id": t.ID})
		if err != nil {
			return fail(classifyIPCError(err))
		}
		adoptPluginPayload(node, resp)
		node.TrackID = t.ID
		node.PluginIndex = nextIndex
		for _, p := range node.Parameters {
			node.Values[p.ID] = p.Default
		}
	}
	e.project.Nodes = append(e.project.Nodes, node)

	if c.InsertIndex != nil && *c.InsertIndex != nextIndex {
		moveNodeToIndex(e.project, node, *c.InsertIndex)
		return e.finishWithSync(ctx, map[string]any{"nodeId": node.ID, "trackId": node.TrackID, "pluginIndex": node.PluginIndex})
	}
	if e.NativeConnected() {
		// The backend already holds this node from the vst:load above; a
		// full replay keeps both sides' chain order identical.
		return e.finishWithSync(ctx, map[string]any{"nodeId": node.ID, "trackId": node.TrackID, "pluginIndex": node.PluginIndex})
	}
	return e.finish(map[string]any{"nodeId": node.ID, "trackId": node.TrackID, "pluginIndex": node.PluginIndex})
}

// moveNodeToIndex repositions node within its track's chain: every node at
// or above the target index shifts up, normalization then densifies.
func moveNodeToIndex(p *model.Project, node *model.PluginNode, toIndex int) {
	if toIndex < 0 {
		toIndex = 0
	}
	for _, n := range p.Nodes {
		if n.TrackID == node.TrackID && n != node && n.PluginIndex >= toIndex {
			n.PluginIndex++
		}
	}
	node.PluginIndex = toIndex
}

func (e *Engine) doPluginRemove(ctx context.Context, c CmdPluginRemove) Result {
	node, err := e.resolveNode(c.NodeID, c.TrackID, c.PluginIndex)
	if err != nil {
		return fail(err)
	}
	kept := e.project.Nodes[:0:0]
	for _, n := range e.project.Nodes {
		if n != node {
			kept = append(kept, n)
		}
	}
	e.project.Nodes = kept
	return e.finishWithSync(ctx, map[string]any{"nodeId": node.ID, "trackId": node.TrackID})
}

func (e *Engine) doPluginReorder(ctx context.Context, c CmdPluginReorder) Result {
	node, ok := model.FindNodeByTrackIndex(e.project, c.TrackID, c.FromIndex)
	if !ok {
		return fail(model.NotFound("plugin.reorder: no plugin at index %d on track %d", c.FromIndex, c.TrackID))
	}
	moveNodeToIndex(e.project, node, c.ToIndex)
	return e.finishWithSync(ctx, map[string]any{"nodeId": node.ID, "trackId": node.TrackID, "pluginIndex": node.PluginIndex})
}

// doPluginSetBypass flips the local bypass flag only; the backend chain is
// untouched.
func (e *Engine) doPluginSetBypass(c CmdPluginSetBypass) Result {
	node, err := e.resolveNode(c.NodeID, c.TrackID, c.PluginIndex)
	if err != nil {
		return fail(err)
	}
	node.Bypassed = c.Bypassed
	return e.finish(map[string]any{"nodeId": node.ID, "bypassed": node.Bypassed})
}

// doPluginSetParameter forwards the value to the backend and stores the
// value the backend reports it actually applied, falling back to the
// requested value when the backend omits it or is offline.
func (e *Engine) doPluginSetParameter(ctx context.Context, c CmdPluginSetParameter) Result {
	var node *model.PluginNode
	var err error
	if c.NodeID != "" {
		node, err = e.resolveNode(c.NodeID, nil, nil)
	} else {
		node, err = e.resolveNode("", &c.TrackID, &c.PluginIndex)
	}
	if err != nil {
		return fail(err)
	}
	if c.ParamID == "" {
		return fail(model.Validation("plugin.set-parameter: param_id is required"))
	}
	if !finite(c.Value) {
		return fail(model.Validation("plugin.set-parameter: value must be finite"))
	}
	if len(node.Parameters) > 0 && !hasParam(node.Parameters, c.ParamID) {
		return fail(model.NotFound("plugin.set-parameter: no parameter %q on %s", c.ParamID, node.PluginName))
	}

	applied := c.Value
	if e.NativeConnected() {
		resp, err := e.ipc.Request(ctx, "vst:param:set", map[string]any{
			"track_id":     node.TrackID,
			"plugin_index": node.PluginIndex,
			"param_id":     c.ParamID,
			"value":        c.Value,
		})
		if err != nil {
			return fail(classifyIPCError(err))
		}
		applied = appliedParamValue(resp, c.Value)
	}
	node.Values[c.ParamID] = applied
	return e.finish(map[string]any{"nodeId": node.ID, "paramId": c.ParamID, "value": applied})
}

func hasParam(params []model.PluginParam, id string) bool {
	for _, p := range params {
		if p.ID == id {
			return true
		}
	}
	return false
}
