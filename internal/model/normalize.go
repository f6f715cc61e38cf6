package model

import (
	"sort"
	"strconv"
)

// Normalize is the single idempotent, total pass every structural mutation
// and every document load runs through. It clamps numerics, quantizes beat
// values, densifies track ids and plugin indexes, synthesizes missing
// mixer strips, drops orphan strips, synthesizes stub patterns for
// dangling clip references, and guarantees at least one track survives.
//
// Normalize(Normalize(p)) == Normalize(p) for any p.
func Normalize(p *Project) {
	if p == nil {
		return
	}
	if p.Version == "" {
		p.Version = SchemaVersion
	}
	p.BPM = Clamp(p.BPM, MinBPM, MaxBPM)
	p.ViewBars = ClampInt(p.ViewBars, MinViewBars, MaxViewBars)
	p.ViewBarWidth = Clamp(p.ViewBarWidth, MinBarWidth, MaxBarWidth)

	normalizeTrackIDs(p)
	normalizePatterns(p)
	normalizeClips(p)
	synthesizeStubPatterns(p)
	normalizePluginNodes(p)
	normalizeMixer(p)
	ensureNonEmpty(p)
}

// normalizeTrackIDs reassigns track_id to the contiguous prefix 1..N in
// slice order, clamps the display name, and rewrites every PluginNode's
// track_id and MixerStrip's track_id that previously pointed at the old id.
// A node or strip whose track_id matches no track is set to 0, so it cannot
// collide with a renumbered id and is dropped as an orphan later in the pass.
func normalizeTrackIDs(p *Project) {
	remap := make(map[int]int, len(p.Tracks))
	for i, t := range p.Tracks {
		newID := i + 1
		remap[t.ID] = newID
		t.ID = newID
		t.Name = normalizeTrackName(t.Name, newID)
	}
	for _, n := range p.Nodes {
		if newID, ok := remap[n.TrackID]; ok {
			n.TrackID = newID
		} else {
			n.TrackID = 0
		}
	}
	for _, s := range p.Mixer {
		if newID, ok := remap[s.TrackID]; ok {
			s.TrackID = newID
		} else {
			s.TrackID = 0
		}
	}
}

func normalizeTrackName(name string, id int) string {
	if len(name) == 0 {
		return defaultTrackName(id)
	}
	r := []rune(name)
	if len(r) > MaxTrackNameLen {
		r = r[:MaxTrackNameLen]
	}
	return string(r)
}

func defaultTrackName(id int) string {
	return "Track " + strconv.Itoa(id)
}

func normalizePatterns(p *Project) {
	for _, pat := range p.Patterns {
		pat.Length = ClampInt(pat.Length, MinPatternLength, MaxPatternLength)
		pat.Swing = Clamp(pat.Swing, MinSwing, MaxSwing)
		switch pat.Kind {
		case PatternDrum:
			pat.Notes = nil
			pat.Steps = normalizeDrumSteps(pat.Steps)
		case PatternMIDI:
			pat.Steps = nil
			for _, n := range pat.Notes {
				n.Start = QuantizeToGrid(Clamp(n.Start, 0, 1e9))
				n.Length = QuantizeToGrid(Clamp(n.Length, GridUnit, 1e9))
				n.Pitch = ClampInt(n.Pitch, MinPitch, MaxPitch)
				n.Velocity = Clamp(n.Velocity, MinVelocity, MaxVelocity)
				if n.ID == "" {
					n.ID = NewID()
				}
			}
		}
	}
}

// normalizeDrumSteps drops non-positive-velocity steps and collapses
// duplicate (lane, step) pairs keeping the last occurrence, matching
// update-step's own "velocity <= 0 removes the step" semantics.
func normalizeDrumSteps(steps []DrumStep) []DrumStep {
	seen := make(map[[2]any]int)
	out := steps[:0:0]
	for _, s := range steps {
		s.Velocity = Clamp(s.Velocity, 0, MaxVelocity)
		if s.Velocity <= 0 {
			continue
		}
		key := [2]any{s.Lane, s.Step}
		if idx, ok := seen[key]; ok {
			out[idx] = s
			continue
		}
		seen[key] = len(out)
		out = append(out, s)
	}
	return out
}

func normalizeClips(p *Project) {
	for _, t := range p.Tracks {
		for _, c := range t.Clips {
			c.Start = QuantizeToGrid(Clamp(c.Start, 0, 1e9))
			c.Length = QuantizeToGrid(Clamp(c.Length, GridUnit, 1e9))
			if c.Length <= 0 {
				c.Length = GridUnit
			}
			if c.ID == "" {
				c.ID = NewID()
			}
			if c.ByteSize != nil && *c.ByteSize < 0 {
				zero := int64(0)
				c.ByteSize = &zero
			}
			if c.DurationSec != nil && *c.DurationSec <= 0 {
				c.DurationSec = nil
			}
			if len(c.WaveformPeaks) > MaxWaveformPeaks {
				c.WaveformPeaks = c.WaveformPeaks[:MaxWaveformPeaks]
			}
			for i, v := range c.WaveformPeaks {
				c.WaveformPeaks[i] = Clamp(v, 0, 1)
			}
		}
	}
}

// synthesizeStubPatterns keeps every clip's pattern reference resolvable
// without discarding clips: a pattern clip with no matching Pattern gets a
// freshly minted drum stub, the same synthesis a document load performs.
func synthesizeStubPatterns(p *Project) {
	known := make(map[string]bool, len(p.Patterns))
	for _, pat := range p.Patterns {
		known[pat.ID] = true
	}
	for _, t := range p.Tracks {
		for _, c := range t.Clips {
			if c.Kind != ClipPattern || c.PatternID == "" || known[c.PatternID] {
				continue
			}
			stub := &Pattern{ID: c.PatternID, Kind: PatternDrum, Length: 16, Swing: 0}
			p.Patterns = append(p.Patterns, stub)
			known[stub.ID] = true
		}
	}
}

// normalizePluginNodes drops nodes whose track_id no longer exists, then
// densifies plugin_index to 0..K-1 per track in (track_id, plugin_index,
// insertion order) order.
func normalizePluginNodes(p *Project) {
	trackExists := make(map[int]bool, len(p.Tracks))
	for _, t := range p.Tracks {
		trackExists[t.ID] = true
	}
	kept := p.Nodes[:0:0]
	for _, n := range p.Nodes {
		if trackExists[n.TrackID] {
			kept = append(kept, n)
		}
	}
	p.Nodes = kept

	sort.SliceStable(p.Nodes, func(i, j int) bool {
		if p.Nodes[i].TrackID != p.Nodes[j].TrackID {
			return p.Nodes[i].TrackID < p.Nodes[j].TrackID
		}
		return p.Nodes[i].PluginIndex < p.Nodes[j].PluginIndex
	})

	next := make(map[int]int)
	for _, n := range p.Nodes {
		n.PluginIndex = next[n.TrackID]
		next[n.TrackID]++
		if n.ID == "" {
			n.ID = NewID()
		}
		if n.Values == nil {
			n.Values = map[string]float64{}
		}
		for k, v := range n.Values {
			n.Values[k] = firstFinite(v)
		}
	}
}

func firstFinite(v float64) float64 {
	if finite(v) {
		return v
	}
	return 0
}

// normalizeMixer guarantees exactly one strip per track, synthesizing
// defaults for missing ones and dropping orphans.
func normalizeMixer(p *Project) {
	byTrack := make(map[int]*MixerStrip, len(p.Mixer))
	for _, s := range p.Mixer {
		if _, dup := byTrack[s.TrackID]; dup {
			continue
		}
		byTrack[s.TrackID] = s
	}
	out := make([]*MixerStrip, 0, len(p.Tracks))
	for _, t := range p.Tracks {
		s, ok := byTrack[t.ID]
		if !ok {
			s = DefaultMixerStrip(t.ID)
		} else {
			s.Volume = Clamp(s.Volume, MinVolume, MaxVolume)
			s.Pan = Clamp(s.Pan, MinPan, MaxPan)
		}
		out = append(out, s)
	}
	p.Mixer = out
}

// DefaultMixerStrip is the strip synthesized for a track with none, and the
// strip a brand new track is given.
func DefaultMixerStrip(trackID int) *MixerStrip {
	return &MixerStrip{TrackID: trackID, Volume: 0.85, Pan: 0}
}

// ensureNonEmpty re-creates a default track and strip if normalization would
// otherwise leave the project with zero tracks.
func ensureNonEmpty(p *Project) {
	if len(p.Tracks) > 0 {
		return
	}
	t := &Track{ID: 1, Name: defaultTrackName(1)}
	p.Tracks = append(p.Tracks, t)
	p.Mixer = append(p.Mixer, DefaultMixerStrip(1))
}
