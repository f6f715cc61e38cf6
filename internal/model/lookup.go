package model

// FindTrack returns the track with the given id, or nil, false.
func FindTrack(p *Project, id int) (*Track, bool) {
	for _, t := range p.Tracks {
		if t.ID == id {
			return t, true
		}
	}
	return nil, false
}

// FindPattern returns the pattern with the given id, or nil, false.
func FindPattern(p *Project, id string) (*Pattern, bool) {
	for _, pat := range p.Patterns {
		if pat.ID == id {
			return pat, true
		}
	}
	return nil, false
}

// FindClip returns the clip with id on track trackID, along with its owning
// track, or nil, nil, false.
func FindClip(p *Project, trackID int, clipID string) (*Clip, *Track, bool) {
	t, ok := FindTrack(p, trackID)
	if !ok {
		return nil, nil, false
	}
	for _, c := range t.Clips {
		if c.ID == clipID {
			return c, t, true
		}
	}
	return nil, t, false
}

// FindNode returns the plugin node with the given id, or nil, false.
func FindNode(p *Project, id string) (*PluginNode, bool) {
	for _, n := range p.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return nil, false
}

// FindNodeByTrackIndex returns the plugin node at plugin_index on trackID,
// or nil, false.
func FindNodeByTrackIndex(p *Project, trackID, pluginIndex int) (*PluginNode, bool) {
	for _, n := range p.Nodes {
		if n.TrackID == trackID && n.PluginIndex == pluginIndex {
			return n, true
		}
	}
	return nil, false
}

// FindMixerStrip returns the mixer strip keyed by trackID, or nil, false.
func FindMixerStrip(p *Project, trackID int) (*MixerStrip, bool) {
	for _, s := range p.Mixer {
		if s.TrackID == trackID {
			return s, true
		}
	}
	return nil, false
}

// MaxTrackID returns the highest track_id in the project, or 0 if empty.
func MaxTrackID(p *Project) int {
	max := 0
	for _, t := range p.Tracks {
		if t.ID > max {
			max = t.ID
		}
	}
	return max
}

// MaxClipEnd returns the end (start+length) of the latest clip on trackID,
// or 0 if the track has no clips.
func MaxClipEnd(p *Project, trackID int) float64 {
	t, ok := FindTrack(p, trackID)
	if !ok {
		return 0
	}
	var end float64
	for _, c := range t.Clips {
		if e := c.Start + c.Length; e > end {
			end = e
		}
	}
	return end
}
