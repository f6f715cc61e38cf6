package model

// Default builds the project seeded on first run:
// "Welcome to TheStuu", 128 bpm, a 32-bar / 92px playlist view, one track
// and its matching mixer strip, and a starter drum pattern so the project
// isn't silent.
func Default() *Project {
	pat := &Pattern{ID: NewID(), Kind: PatternDrum, Length: 16, Swing: 0,
		Steps: []DrumStep{
			{Lane: "kick", Step: 0, Velocity: 1},
			{Lane: "kick", Step: 8, Velocity: 1},
			{Lane: "snare", Step: 4, Velocity: 0.9},
			{Lane: "snare", Step: 12, Velocity: 0.9},
			{Lane: "hat", Step: 2, Velocity: 0.6},
			{Lane: "hat", Step: 6, Velocity: 0.6},
			{Lane: "hat", Step: 10, Velocity: 0.6},
			{Lane: "hat", Step: 14, Velocity: 0.6},
		},
	}
	track := &Track{ID: 1, Name: "Track 1", Clips: []*Clip{
		{ID: NewID(), Start: 0, Length: 4, Kind: ClipPattern, PatternID: pat.ID},
	}}
	p := &Project{
		Version:            SchemaVersion,
		Name:               "Welcome to TheStuu",
		BPM:                128,
		ViewBars:           32,
		ViewBarWidth:       92,
		ViewShowTrackNodes: true,
		Tracks:             []*Track{track},
		Patterns:           []*Pattern{pat},
		Mixer:              []*MixerStrip{DefaultMixerStrip(1)},
	}
	Normalize(p)
	return p
}
