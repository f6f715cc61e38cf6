package model

import "fmt"

// Validate is a pure, read-only checker returning every invariant violation
// it finds rather than stopping at the first, so the Persistence
// Bridge can report a concatenated error list. It never
// mutates p. Called on an already-Normalize()'d project; a freshly
// normalized project should always validate clean — Validate exists to
// catch documents normalization could not repair (e.g. this is the contract
// test surface, not a second normalization pass).
func Validate(p *Project) []error {
	var errs []error
	if p == nil {
		return []error{fmt.Errorf("project is nil")}
	}
	if !finite(p.BPM) || p.BPM < MinBPM || p.BPM > MaxBPM {
		errs = append(errs, fmt.Errorf("bpm %v out of range [%v,%v]", p.BPM, MinBPM, MaxBPM))
	}
	if p.ViewBars < MinViewBars || p.ViewBars > MaxViewBars {
		errs = append(errs, fmt.Errorf("playlist_view_bars %d out of range [%d,%d]", p.ViewBars, MinViewBars, MaxViewBars))
	}
	if !finite(p.ViewBarWidth) || p.ViewBarWidth < MinBarWidth || p.ViewBarWidth > MaxBarWidth {
		errs = append(errs, fmt.Errorf("playlist_bar_width %v out of range [%v,%v]", p.ViewBarWidth, MinBarWidth, MaxBarWidth))
	}
	if len(p.Tracks) == 0 {
		errs = append(errs, fmt.Errorf("project has no tracks"))
	}

	patternIDs := make(map[string]*Pattern, len(p.Patterns))
	seenPatternID := make(map[string]bool, len(p.Patterns))
	for _, pat := range p.Patterns {
		if seenPatternID[pat.ID] {
			errs = append(errs, fmt.Errorf("duplicate pattern id %q", pat.ID))
		}
		seenPatternID[pat.ID] = true
		patternIDs[pat.ID] = pat
		errs = append(errs, validatePattern(pat)...)
	}

	wantTrackID := 1
	for _, t := range p.Tracks {
		if t.ID != wantTrackID {
			errs = append(errs, fmt.Errorf("track ids not contiguous: expected %d, got %d", wantTrackID, t.ID))
		}
		wantTrackID++
		if len(t.Name) < MinTrackNameLen || len(t.Name) > MaxTrackNameLen {
			errs = append(errs, fmt.Errorf("track %d name length %d out of range [%d,%d]", t.ID, len(t.Name), MinTrackNameLen, MaxTrackNameLen))
		}
		seenClipID := make(map[string]bool, len(t.Clips))
		for _, c := range t.Clips {
			errs = append(errs, validateClip(t.ID, c, patternIDs, seenClipID)...)
		}
	}

	errs = append(errs, validatePluginNodes(p)...)
	errs = append(errs, validateMixer(p)...)
	return errs
}

func validatePattern(pat *Pattern) []error {
	var errs []error
	if pat.ID == "" {
		errs = append(errs, fmt.Errorf("pattern has empty id"))
	}
	if pat.Length < MinPatternLength || pat.Length > MaxPatternLength {
		errs = append(errs, fmt.Errorf("pattern %q length %d out of range [%d,%d]", pat.ID, pat.Length, MinPatternLength, MaxPatternLength))
	}
	if !finite(pat.Swing) || pat.Swing < MinSwing || pat.Swing > MaxSwing {
		errs = append(errs, fmt.Errorf("pattern %q swing %v out of range [%v,%v]", pat.ID, pat.Swing, MinSwing, MaxSwing))
	}
	switch pat.Kind {
	case PatternDrum:
		seen := make(map[[2]any]bool, len(pat.Steps))
		for _, s := range pat.Steps {
			key := [2]any{s.Lane, s.Step}
			if seen[key] {
				errs = append(errs, fmt.Errorf("pattern %q duplicate step lane=%s step=%d", pat.ID, s.Lane, s.Step))
			}
			seen[key] = true
			if s.Velocity <= 0 || s.Velocity > MaxVelocity {
				errs = append(errs, fmt.Errorf("pattern %q step lane=%s step=%d velocity %v out of (0,%v]", pat.ID, s.Lane, s.Step, s.Velocity, MaxVelocity))
			}
		}
	case PatternMIDI:
		for _, n := range pat.Notes {
			if !IsOnGrid(n.Start) {
				errs = append(errs, fmt.Errorf("pattern %q note %q start %v not grid-quantized", pat.ID, n.ID, n.Start))
			}
			if n.Length <= 0 || !IsOnGrid(n.Length) {
				errs = append(errs, fmt.Errorf("pattern %q note %q length %v invalid", pat.ID, n.ID, n.Length))
			}
			if n.Pitch < MinPitch || n.Pitch > MaxPitch {
				errs = append(errs, fmt.Errorf("pattern %q note %q pitch %d out of range [%d,%d]", pat.ID, n.ID, n.Pitch, MinPitch, MaxPitch))
			}
			if !finite(n.Velocity) || n.Velocity < MinVelocity || n.Velocity > MaxVelocity {
				errs = append(errs, fmt.Errorf("pattern %q note %q velocity %v out of range [%v,%v]", pat.ID, n.ID, n.Velocity, MinVelocity, MaxVelocity))
			}
		}
	default:
		errs = append(errs, fmt.Errorf("pattern %q has unknown kind %q", pat.ID, pat.Kind))
	}
	return errs
}

func validateClip(trackID int, c *Clip, patterns map[string]*Pattern, seenID map[string]bool) []error {
	var errs []error
	if c.ID == "" {
		errs = append(errs, fmt.Errorf("track %d has clip with empty id", trackID))
	} else if seenID[c.ID] {
		errs = append(errs, fmt.Errorf("track %d duplicate clip id %q", trackID, c.ID))
	}
	seenID[c.ID] = true

	if !finite(c.Start) || c.Start < 0 || !IsOnGrid(c.Start) {
		errs = append(errs, fmt.Errorf("clip %q start %v invalid", c.ID, c.Start))
	}
	if !finite(c.Length) || c.Length <= 0 || !IsOnGrid(c.Length) {
		errs = append(errs, fmt.Errorf("clip %q length %v invalid", c.ID, c.Length))
	}

	switch c.Kind {
	case ClipPattern:
		if c.PatternID == "" {
			errs = append(errs, fmt.Errorf("clip %q references no pattern", c.ID))
		} else if _, ok := patterns[c.PatternID]; !ok {
			errs = append(errs, fmt.Errorf("clip %q references missing pattern %q", c.ID, c.PatternID))
		}
	case ClipAudio, ClipMIDI:
		if c.SourceFilename == "" {
			errs = append(errs, fmt.Errorf("clip %q missing source filename", c.ID))
		}
		if !ValidSourceFormat(c.Kind, c.SourceFormat) {
			errs = append(errs, fmt.Errorf("clip %q has unsupported source format %q", c.ID, c.SourceFormat))
		}
		if c.ByteSize != nil && *c.ByteSize < 0 {
			errs = append(errs, fmt.Errorf("clip %q byte_size %d must be >= 0", c.ID, *c.ByteSize))
		}
		if c.DurationSec != nil && *c.DurationSec <= 0 {
			errs = append(errs, fmt.Errorf("clip %q duration_seconds %v must be > 0", c.ID, *c.DurationSec))
		}
		if len(c.WaveformPeaks) > MaxWaveformPeaks {
			errs = append(errs, fmt.Errorf("clip %q has %d waveform peaks, max %d", c.ID, len(c.WaveformPeaks), MaxWaveformPeaks))
		}
		for _, v := range c.WaveformPeaks {
			if !finite(v) || v < 0 || v > 1 {
				errs = append(errs, fmt.Errorf("clip %q waveform peak %v out of [0,1]", c.ID, v))
				break
			}
		}
	default:
		errs = append(errs, fmt.Errorf("clip %q has unknown kind %q", c.ID, c.Kind))
	}
	return errs
}

// AudioExtensions and MIDIExtensions are the closed set of recognized source
// formats.
var (
	AudioExtensions = map[string]bool{"wav": true, "aiff": true, "flac": true, "mp3": true, "ogg": true}
	MIDIExtensions  = map[string]bool{"mid": true, "midi": true}
)

func ValidSourceFormat(kind ClipKind, format string) bool {
	switch kind {
	case ClipAudio:
		return AudioExtensions[format]
	case ClipMIDI:
		return MIDIExtensions[format]
	default:
		return false
	}
}

func validatePluginNodes(p *Project) []error {
	var errs []error
	trackExists := make(map[int]bool, len(p.Tracks))
	for _, t := range p.Tracks {
		trackExists[t.ID] = true
	}
	perTrack := make(map[int][]int)
	seenID := make(map[string]bool, len(p.Nodes))
	for _, n := range p.Nodes {
		if n.ID == "" {
			errs = append(errs, fmt.Errorf("plugin node has empty id"))
		} else if seenID[n.ID] {
			errs = append(errs, fmt.Errorf("duplicate plugin node id %q", n.ID))
		}
		seenID[n.ID] = true
		if !trackExists[n.TrackID] {
			errs = append(errs, fmt.Errorf("plugin node %q references missing track %d", n.ID, n.TrackID))
			continue
		}
		perTrack[n.TrackID] = append(perTrack[n.TrackID], n.PluginIndex)
		for paramID, v := range n.Values {
			if !finite(v) {
				errs = append(errs, fmt.Errorf("plugin node %q parameter %q value not finite", n.ID, paramID))
			}
		}
	}
	for trackID, indexes := range perTrack {
		want := make(map[int]bool, len(indexes))
		for _, idx := range indexes {
			if idx < 0 || idx >= len(indexes) || want[idx] {
				errs = append(errs, fmt.Errorf("track %d plugin indexes not a dense 0..%d permutation", trackID, len(indexes)-1))
				break
			}
			want[idx] = true
		}
	}
	return errs
}

func validateMixer(p *Project) []error {
	var errs []error
	trackExists := make(map[int]bool, len(p.Tracks))
	for _, t := range p.Tracks {
		trackExists[t.ID] = true
	}
	seen := make(map[int]bool, len(p.Mixer))
	for _, s := range p.Mixer {
		if !trackExists[s.TrackID] {
			errs = append(errs, fmt.Errorf("mixer strip references missing track %d", s.TrackID))
			continue
		}
		if seen[s.TrackID] {
			errs = append(errs, fmt.Errorf("duplicate mixer strip for track %d", s.TrackID))
		}
		seen[s.TrackID] = true
		if !finite(s.Volume) || s.Volume < MinVolume || s.Volume > MaxVolume {
			errs = append(errs, fmt.Errorf("track %d volume %v out of range [%v,%v]", s.TrackID, s.Volume, MinVolume, MaxVolume))
		}
		if !finite(s.Pan) || s.Pan < MinPan || s.Pan > MaxPan {
			errs = append(errs, fmt.Errorf("track %d pan %v out of range [%v,%v]", s.TrackID, s.Pan, MinPan, MaxPan))
		}
	}
	for _, t := range p.Tracks {
		if !seen[t.ID] {
			errs = append(errs, fmt.Errorf("track %d has no mixer strip", t.ID))
		}
	}
	return errs
}
