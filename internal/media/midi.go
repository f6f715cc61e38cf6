package media

import (
	"fmt"

	"gitlab.com/gomidi/midi/v2/smf"
)

// MIDIDuration reads a Standard MIDI File's header and track events and
// returns the position in beats of the latest event of any kind across all
// tracks (normally the end-of-track marker), used to fill an omitted MIDI clip's
// implied duration on import. Best-effort, same policy as WAVDuration.
func MIDIDuration(path string) (beats float64, err error) {
	s, err := smf.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("media: read smf: %w", err)
	}
	ticksPerQuarter, ok := s.TimeFormat.(smf.MetricTicks)
	if !ok {
		return 0, fmt.Errorf("media: smf uses unsupported time format")
	}
	var lastTick int64
	for _, track := range s.Tracks {
		var tick int64
		for _, ev := range track {
			tick += int64(ev.Delta)
			if tick > lastTick {
				lastTick = tick
			}
		}
	}
	if ticksPerQuarter.Ticks4th() == 0 {
		return 0, fmt.Errorf("media: smf has zero ticks-per-quarter")
	}
	beats = float64(lastTick) / float64(ticksPerQuarter.Ticks4th())
	return beats, nil
}
