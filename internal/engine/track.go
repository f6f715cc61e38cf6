package engine

import (
	"context"
	"fmt"

	"github.com/thestuu/engine/internal/model"
)

// doTrackCreate appends a new track with the next track_id and a default
// mixer strip.
func (e *Engine) doTrackCreate(ctx context.Context) Result {
	id := model.MaxTrackID(e.project) + 1
	t := &model.Track{ID: id, Name: fmt.Sprintf("Track %d", id)}
	e.project.Tracks = append(e.project.Tracks, t)
	e.project.Mixer = append(e.project.Mixer, model.DefaultMixerStrip(id))
	return e.finishWithSync(ctx, map[string]any{"trackId": id})
}

// doTrackInsert shifts every track id >= after+1 up by one and inserts the
// new track there.
func (e *Engine) doTrackInsert(ctx context.Context, c CmdTrackInsert) Result {
	if c.AfterTrackID < 0 {
		return fail(fmt.Errorf("track.insert: after_track_id must be >= 0"))
	}
	newID := e.insertBlankTrackAfter(c.AfterTrackID)
	return e.finishWithSync(ctx, map[string]any{"trackId": newID})
}

// insertBlankTrackAfter shifts every track id >= after+1 up by one, inserts
// a blank track there, and gives it a default mixer strip, returning its
// new id. It does not run the normalize/broadcast post-step — callers that
// do further structural work (doTrackDuplicate) finish once at the end.
func (e *Engine) insertBlankTrackAfter(after int) int {
	newID := after + 1
	for _, t := range e.project.Tracks {
		if t.ID >= newID {
			t.ID++
		}
	}
	for _, n := range e.project.Nodes {
		if n.TrackID >= newID {
			n.TrackID++
		}
	}
	for _, s := range e.project.Mixer {
		if s.TrackID >= newID {
			s.TrackID++
		}
	}
	t := &model.Track{ID: newID, Name: fmt.Sprintf("Track %d", newID)}
	inserted := false
	tracks := make([]*model.Track, 0, len(e.project.Tracks)+1)
	for _, existing := range e.project.Tracks {
		if !inserted && existing.ID > newID {
			tracks = append(tracks, t)
			inserted = true
		}
		tracks = append(tracks, existing)
	}
	if !inserted {
		tracks = append(tracks, t)
	}
	e.project.Tracks = tracks
	e.project.Mixer = append(e.project.Mixer, model.DefaultMixerStrip(newID))
	return newID
}

// doTrackReorder removes the track and reinserts it at the 0-based index,
// then lets Normalize reassign ids to the new slice order.
func (e *Engine) doTrackReorder(ctx context.Context, c CmdTrackReorder) Result {
	idx := -1
	for i, t := range e.project.Tracks {
		if t.ID == c.TrackID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return fail(model.NotFound("track.reorder: no track %d", c.TrackID))
	}
	to := c.ToIndex
	if to < 0 {
		to = 0
	}
	if to > len(e.project.Tracks)-1 {
		to = len(e.project.Tracks) - 1
	}
	t := e.project.Tracks[idx]
	tracks := append(e.project.Tracks[:idx:idx], e.project.Tracks[idx+1:]...)
	tracks = append(tracks[:to], append([]*model.Track{t}, tracks[to:]...)...)
	e.project.Tracks = tracks
	return e.finishWithSync(ctx, map[string]any{"trackId": t.ID})
}

// doTrackDelete removes the track and every entity it owns (clips, strip,
// plugin nodes), then lets Normalize densify the remaining ids.
func (e *Engine) doTrackDelete(ctx context.Context, c CmdTrackDelete) Result {
	return e.deleteTracks(ctx, []int{c.TrackID})
}

func (e *Engine) doTrackBulkDelete(ctx context.Context, c CmdTrackBulkDelete) Result {
	if len(c.TrackIDs) == 0 {
		return fail(fmt.Errorf("track.bulk-delete: no track ids given"))
	}
	return e.deleteTracks(ctx, c.TrackIDs)
}

func (e *Engine) deleteTracks(ctx context.Context, ids []int) Result {
	toDelete := make(map[int]bool, len(ids))
	for _, id := range ids {
		if _, ok := model.FindTrack(e.project, id); !ok {
			return fail(model.NotFound("track: no track %d", id))
		}
		toDelete[id] = true
	}
	kept := e.project.Tracks[:0:0]
	for _, t := range e.project.Tracks {
		if !toDelete[t.ID] {
			kept = append(kept, t)
		}
	}
	e.project.Tracks = kept
	// Normalize drops the nodes/strips whose track no longer exists.
	return e.finishWithSync(ctx, map[string]any{"deleted": ids})
}

// doTrackDuplicate inserts a deep copy of the track immediately after the
// source, with fresh clip and plugin-node ids and a copied mixer strip.
func (e *Engine) doTrackDuplicate(ctx context.Context, c CmdTrackDuplicate) Result {
	src, ok := model.FindTrack(e.project, c.TrackID)
	if !ok {
		return fail(model.NotFound("track.duplicate: no track %d", c.TrackID))
	}
	srcStrip, _ := model.FindMixerStrip(e.project, c.TrackID)
	srcName, srcCollapsed, srcEnabled := src.Name, src.ChainCollapsed, src.ChainEnabled
	srcClips := append([]*model.Clip(nil), src.Clips...)
	var srcNodes []*model.PluginNode
	for _, n := range e.project.Nodes {
		if n.TrackID == c.TrackID {
			srcNodes = append(srcNodes, n)
		}
	}

	// insertBlankTrackAfter renumbers ids > c.TrackID, but c.TrackID itself
	// is unaffected, so the source's id is stable across the insert.
	newID := e.insertBlankTrackAfter(c.TrackID)

	dst, ok := model.FindTrack(e.project, newID)
	if !ok {
		return fail(fmt.Errorf("track.duplicate: inserted track vanished"))
	}
	dst.Name = srcName
	dst.ChainCollapsed = srcCollapsed
	dst.ChainEnabled = srcEnabled
	for _, clip := range srcClips {
		dst.Clips = append(dst.Clips, model.CloneClip(clip))
	}
	for _, n := range srcNodes {
		e.project.Nodes = append(e.project.Nodes, model.CloneNode(n, newID))
	}
	if dstStrip, ok := model.FindMixerStrip(e.project, newID); ok && srcStrip != nil {
		dstStrip.Volume = srcStrip.Volume
		dstStrip.Pan = srcStrip.Pan
		dstStrip.Mute = srcStrip.Mute
		dstStrip.Solo = srcStrip.Solo
		dstStrip.RecordArm = srcStrip.RecordArm
	}
	return e.finishWithSync(ctx, map[string]any{"trackId": newID})
}

func (e *Engine) doTrackSetName(c CmdTrackSetName) Result {
	t, ok := model.FindTrack(e.project, c.TrackID)
	if !ok {
		return fail(model.NotFound("track.set-name: no track %d", c.TrackID))
	}
	name := c.Name
	if len(name) == 0 {
		return fail(model.Validation("track.set-name: name must not be empty"))
	}
	t.Name = name
	return e.finish(map[string]any{"trackId": t.ID})
}

func (e *Engine) doTrackSetChainCollapsed(c CmdTrackSetChainCollapsed) Result {
	t, ok := model.FindTrack(e.project, c.TrackID)
	if !ok {
		return fail(model.NotFound("track.set-chain-collapsed: no track %d", c.TrackID))
	}
	t.ChainCollapsed = c.Collapsed
	return e.finish(map[string]any{"trackId": t.ID})
}

// doTrackSetChainEnabled also toggles `bypassed` on every plugin node on
// the track.
func (e *Engine) doTrackSetChainEnabled(ctx context.Context, c CmdTrackSetChainEnabled) Result {
	t, ok := model.FindTrack(e.project, c.TrackID)
	if !ok {
		return fail(model.NotFound("track.set-chain-enabled: no track %d", c.TrackID))
	}
	t.ChainEnabled = c.Enabled
	for _, n := range e.project.Nodes {
		if n.TrackID == c.TrackID {
			n.Bypassed = !c.Enabled
		}
	}
	return e.finishWithSync(ctx, map[string]any{"trackId": t.ID})
}
