// Package transport is the Transport Clock: backend-authoritative snapshots
// when the IPC Client is Connected, a local monotonic fallback otherwise.
// Both strategies live behind the single Clock type's Snapshot() accessor.
package transport

import (
	"math"
	"sync"
	"time"
)

const (
	beatsPerBar  = 4
	stepsPerBeat = 4
)

// Snapshot is the canonical transport tuple.
type Snapshot struct {
	Playing       bool    `json:"playing"`
	BPM           float64 `json:"bpm"`
	Bar           int     `json:"bar"`
	Beat          int     `json:"beat"`
	Step          int     `json:"step"`
	StepIndex     int     `json:"stepIndex"`
	PositionBars  float64 `json:"positionBars"`
	PositionBeats float64 `json:"positionBeats"`
	Timestamp     int64   `json:"timestamp"`
}

// nowFunc is overridable in tests.
type nowFunc func() time.Time

// Clock holds either backend-authoritative or local-fallback state. Adopt
// feeds it backend snapshots; Play/Pause/Stop/Seek drive the fallback
// directly. Only one set of inputs is "live" at a time, selected by the
// authoritative flag, but both keep enough state to resume cleanly should
// the mode flip.
//
// The Mutation Engine goroutine writes the clock and the Client Gateway's
// broadcast ticker reads it, so every method takes the mutex.
type Clock struct {
	mu  sync.Mutex
	now nowFunc

	authoritative bool
	last          Snapshot // last adopted backend snapshot; its playing flag and position drive Snapshot while authoritative
	adoptedAtMs   int64    // wall time last was adopted, for smooth fallback seeding

	bpm         float64
	offsetBeats float64
	startedAtMs int64 // 0 means not playing
	playing     bool
}

func New() *Clock {
	return &Clock{now: func() time.Time { return time.Now() }, bpm: 120}
}

// Adopt ingests an authoritative snapshot from the backend (a transport.tick
// event, or a response to a transport command), clamping integer fields to
// >=0 and coercing non-finite numerics, and switches the clock into
// backend-authoritative mode.
func (c *Clock) Adopt(s Snapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if s.Bar < 0 {
		s.Bar = 0
	}
	if s.Beat < 0 {
		s.Beat = 0
	}
	if s.Step < 0 {
		s.Step = 0
	}
	if s.StepIndex < 0 {
		s.StepIndex = 0
	}
	if !finite(s.PositionBars) || s.PositionBars < 0 {
		s.PositionBars = 0
	}
	if !finite(s.PositionBeats) || s.PositionBeats < 0 {
		s.PositionBeats = 0
	}
	if s.BPM > 0 && finite(s.BPM) {
		c.bpm = s.BPM
	}
	s.BPM = c.bpm
	c.authoritative = true
	c.last = s
	c.adoptedAtMs = c.now().UnixMilli()
	c.playing = s.Playing
}

// ToFallback switches the clock to local-fallback mode, seeding
// offset_beats from the last known authoritative position and, if it was
// playing, starting the local ticker now so playback continues smoothly.
// Time elapsed between the last adopted
// snapshot and the moment disconnection was noticed is folded into the
// seed, so detection latency never rewinds the position.
func (c *Clock) ToFallback() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.authoritative {
		return
	}
	c.authoritative = false
	c.offsetBeats = c.last.PositionBeats
	c.playing = c.last.Playing
	if c.playing {
		now := c.now().UnixMilli()
		if c.adoptedAtMs > 0 && now > c.adoptedAtMs {
			c.offsetBeats += float64(now-c.adoptedAtMs) * c.bpm / 60000.0
		}
		c.startedAtMs = now
	} else {
		c.startedAtMs = 0
	}
}

// BPM returns the clock's current tempo. The backend's reported bpm in any
// snapshot is authoritative whenever present and is written through to the
// local model by the caller.
func (c *Clock) BPM() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.bpm
}

// SetBPM updates the fallback tempo. Used when the backend is unreachable
// and set-bpm must be served locally.
func (c *Clock) SetBPM(bpm float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if bpm < 20 || bpm > 300 || !finite(bpm) {
		return
	}
	c.foldLocked()
	c.bpm = bpm
}

// Play starts the local fallback clock if it is not already playing.
func (c *Clock) Play() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.authoritative = false
	if c.playing {
		return
	}
	c.playing = true
	c.startedAtMs = c.now().UnixMilli()
}

// Pause folds elapsed time into offsetBeats and stops the local clock.
func (c *Clock) Pause() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.authoritative = false
	c.foldLocked()
	c.playing = false
	c.startedAtMs = 0
}

// Stop resets the local fallback clock to the origin.
func (c *Clock) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.authoritative = false
	c.offsetBeats = 0
	c.startedAtMs = 0
	c.playing = false
}

// Seek sets the fallback position, keeping the clock running if it was
// already playing.
func (c *Clock) Seek(positionBeats float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.authoritative = false
	if !finite(positionBeats) || positionBeats < 0 {
		positionBeats = 0
	}
	c.offsetBeats = positionBeats
	if c.playing {
		c.startedAtMs = c.now().UnixMilli()
	}
}

// foldLocked collapses elapsed playing time into offsetBeats, used before
// any state change that would otherwise lose the in-flight position. Must
// be called with c.mu held.
func (c *Clock) foldLocked() {
	if c.startedAtMs == 0 {
		return
	}
	now := c.now().UnixMilli()
	elapsedMs := now - c.startedAtMs
	c.offsetBeats += float64(elapsedMs) * c.bpm / 60000.0
	c.startedAtMs = now
}

// Snapshot computes the current transport snapshot, dispatching on whether
// the clock is backend-authoritative or running the local fallback, then
// deriving bar/beat/step the same way regardless of mode.
func (c *Clock) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.authoritative {
		return deriveFrom(c.last.Playing, c.bpm, c.last.PositionBeats, c.now().UnixMilli())
	}
	positionBeats := c.offsetBeats
	if c.startedAtMs != 0 {
		now := c.now().UnixMilli()
		elapsedMs := now - c.startedAtMs
		positionBeats += float64(elapsedMs) * c.bpm / 60000.0
	}
	return deriveFrom(c.playing, c.bpm, positionBeats, c.now().UnixMilli())
}

func deriveFrom(playing bool, bpm, positionBeats float64, timestamp int64) Snapshot {
	positionBeats = round6(positionBeats)
	positionBars := round6(positionBeats / beatsPerBar)
	bar := int(math.Floor(positionBeats/beatsPerBar)) + 1
	beatInBar := int(math.Floor(math.Mod(positionBeats, beatsPerBar))) + 1
	stepIndex := int(math.Mod(math.Floor(positionBeats*stepsPerBeat), beatsPerBar*stepsPerBeat))
	if stepIndex < 0 {
		stepIndex += beatsPerBar * stepsPerBeat
	}
	return Snapshot{
		Playing:       playing,
		BPM:           bpm,
		Bar:           bar,
		Beat:          beatInBar,
		Step:          stepIndex + 1,
		StepIndex:     stepIndex,
		PositionBars:  positionBars,
		PositionBeats: positionBeats,
		Timestamp:     timestamp,
	}
}

func round6(v float64) float64 { return math.Round(v*1e6) / 1e6 }

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }
