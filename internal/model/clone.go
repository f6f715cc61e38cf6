package model

// CloneClip deep-copies a clip, assigning it a fresh id.
func CloneClip(c *Clip) *Clip {
	cp := *c
	cp.ID = NewID()
	if c.WaveformPeaks != nil {
		cp.WaveformPeaks = append([]float64(nil), c.WaveformPeaks...)
	}
	if c.ByteSize != nil {
		v := *c.ByteSize
		cp.ByteSize = &v
	}
	if c.DurationSec != nil {
		v := *c.DurationSec
		cp.DurationSec = &v
	}
	return &cp
}

// CloneNode deep-copies a plugin node onto a (possibly different) track,
// assigning it a fresh id.
func CloneNode(n *PluginNode, trackID int) *PluginNode {
	cp := *n
	cp.ID = NewID()
	cp.TrackID = trackID
	cp.Parameters = append([]PluginParam(nil), n.Parameters...)
	cp.Values = make(map[string]float64, len(n.Values))
	for k, v := range n.Values {
		cp.Values[k] = v
	}
	return &cp
}
