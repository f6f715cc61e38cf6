package transport

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock lets tests advance time deterministically.
type fakeClock struct{ ms int64 }

func (f *fakeClock) now() time.Time          { return time.UnixMilli(f.ms) }
func (f *fakeClock) advance(d time.Duration) { f.ms += d.Milliseconds() }

func newTestClock() (*Clock, *fakeClock) {
	fc := &fakeClock{ms: 1_000_000}
	c := New()
	c.now = fc.now
	return c, fc
}

func TestFallbackPlayAdvancesPosition(t *testing.T) {
	c, fc := newTestClock()
	c.SetBPM(120)
	c.Play()
	fc.advance(time.Second)

	snap := c.Snapshot()
	assert.True(t, snap.Playing)
	assert.InDelta(t, 2.0, snap.PositionBeats, 1e-9) // 120 bpm = 2 beats/sec
}

func TestFallbackPauseFoldsElapsed(t *testing.T) {
	c, fc := newTestClock()
	c.SetBPM(120)
	c.Play()
	fc.advance(time.Second)
	c.Pause()
	fc.advance(5 * time.Second)

	snap := c.Snapshot()
	assert.False(t, snap.Playing)
	assert.InDelta(t, 2.0, snap.PositionBeats, 1e-9)
}

func TestFallbackStopResets(t *testing.T) {
	c, fc := newTestClock()
	c.Play()
	fc.advance(3 * time.Second)
	c.Stop()

	snap := c.Snapshot()
	assert.False(t, snap.Playing)
	assert.Zero(t, snap.PositionBeats)
	assert.Equal(t, 1, snap.Bar)
	assert.Equal(t, 1, snap.Beat)
}

func TestFallbackSeekWhilePlayingKeepsRunning(t *testing.T) {
	c, fc := newTestClock()
	c.SetBPM(60)
	c.Play()
	fc.advance(time.Second)
	c.Seek(10)
	fc.advance(time.Second)

	snap := c.Snapshot()
	assert.True(t, snap.Playing)
	assert.InDelta(t, 11.0, snap.PositionBeats, 1e-9)
}

func TestFallbackSeekWhilePausedHolds(t *testing.T) {
	c, fc := newTestClock()
	c.Seek(8)
	fc.advance(time.Second)

	snap := c.Snapshot()
	assert.False(t, snap.Playing)
	assert.InDelta(t, 8.0, snap.PositionBeats, 1e-9)
}

func TestAdoptClampsNegativeAndNonFiniteFields(t *testing.T) {
	c, _ := newTestClock()
	c.Adopt(Snapshot{Bar: -3, Beat: -1, Step: -1, StepIndex: -4, PositionBeats: -2, PositionBars: -1, BPM: 140})

	snap := c.Snapshot()
	assert.Zero(t, snap.PositionBeats)
	assert.Equal(t, 140.0, snap.BPM)
}

func TestDerivedBarBeatStepFields(t *testing.T) {
	c, _ := newTestClock()
	c.Adopt(Snapshot{Playing: true, BPM: 120, PositionBeats: 12.5})

	snap := c.Snapshot()
	// floor(12.5/4)+1 = 4, floor(12.5 mod 4)+1 = 1, floor(12.5*4) mod 16 = 2
	assert.Equal(t, 4, snap.Bar)
	assert.Equal(t, 1, snap.Beat)
	assert.Equal(t, 2, snap.StepIndex)
	assert.Equal(t, 3, snap.Step)
	assert.InDelta(t, 3.125, snap.PositionBars, 1e-9)
}

// Backend playing at 12.5 beats, 120 bpm, then disconnects; one second
// later the fallback clock reads ~14.5 and is still playing.
func TestFallbackResumesSmoothlyAfterBackendLoss(t *testing.T) {
	c, fc := newTestClock()
	c.Adopt(Snapshot{Playing: true, BPM: 120, PositionBeats: 12.5})

	// Disconnection noticed 100 ms after the last tick; the gap is folded
	// into the fallback seed rather than lost.
	fc.advance(100 * time.Millisecond)
	c.ToFallback()
	fc.advance(900 * time.Millisecond)

	snap := c.Snapshot()
	require.True(t, snap.Playing)
	assert.InDelta(t, 14.5, snap.PositionBeats, 0.05)
}

func TestToFallbackWhilePausedStaysPut(t *testing.T) {
	c, fc := newTestClock()
	c.Adopt(Snapshot{Playing: false, BPM: 100, PositionBeats: 6})
	c.ToFallback()
	fc.advance(2 * time.Second)

	snap := c.Snapshot()
	assert.False(t, snap.Playing)
	assert.InDelta(t, 6.0, snap.PositionBeats, 1e-9)
}

func TestToFallbackWithoutAdoptIsNoop(t *testing.T) {
	c, _ := newTestClock()
	c.Seek(3)
	c.ToFallback()
	assert.InDelta(t, 3.0, c.Snapshot().PositionBeats, 1e-9)
}

func TestAdoptedBPMSurvivesModeSwitch(t *testing.T) {
	c, fc := newTestClock()
	c.Adopt(Snapshot{Playing: true, BPM: 90, PositionBeats: 0})
	c.ToFallback()
	fc.advance(2 * time.Second)

	snap := c.Snapshot()
	assert.Equal(t, 90.0, snap.BPM)
	assert.InDelta(t, 3.0, snap.PositionBeats, 1e-9) // 90 bpm = 1.5 beats/sec
}

func TestPositionsRoundedToSixDecimals(t *testing.T) {
	c, fc := newTestClock()
	c.SetBPM(133)
	c.Play()
	fc.advance(333 * time.Millisecond)

	snap := c.Snapshot()
	assert.Equal(t, snap.PositionBeats, round6(snap.PositionBeats))
	assert.Equal(t, snap.PositionBars, round6(snap.PositionBars))
}
