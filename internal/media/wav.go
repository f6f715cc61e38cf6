// Package media reads header metadata from imported audio/MIDI source files
// to fill in optional Clip fields the client omitted. It never decodes
// sample data or produces waveform previews; that work belongs to the
// audio backend.
package media

import (
	"fmt"
	"os"

	"github.com/go-audio/wav"
)

const (
	wavFormatPCM        = 1
	wavFormatExtensible = 65534
)

// WAVDuration reads a WAV file's RIFF/fmt header (not its sample data) and
// returns its duration in seconds. Best-effort: callers log a failure and
// leave the clip's duration field unset rather than surfacing it as a
// command error.
func WAVDuration(path string) (float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("media: open wav: %w", err)
	}
	defer f.Close()

	d := wav.NewDecoder(f)
	if !d.IsValidFile() {
		return 0, fmt.Errorf("media: %s is not a valid wav file", path)
	}
	d.ReadInfo()

	if int(d.WavAudioFormat) != wavFormatPCM && int(d.WavAudioFormat) != wavFormatExtensible {
		dur, err := d.Duration()
		if err != nil {
			return 0, fmt.Errorf("media: wav duration (non-pcm): %w", err)
		}
		return dur.Seconds(), nil
	}

	if d.SampleRate == 0 {
		return 0, fmt.Errorf("media: wav has zero sample rate")
	}
	bytesPerSample := int64(d.BitDepth) / 8
	if bytesPerSample <= 0 {
		return 0, fmt.Errorf("media: wav has invalid bit depth %d", d.BitDepth)
	}
	chans := int64(d.NumChans)
	if chans <= 0 {
		return 0, fmt.Errorf("media: wav has invalid channel count %d", d.NumChans)
	}

	info, err := f.Stat()
	if err != nil {
		return 0, fmt.Errorf("media: stat wav: %w", err)
	}
	// Header-only estimate: total file size minus a conservative header
	// allowance, divided out to frames. Good enough for an "optional
	// duration" hint; the backend is authoritative for playback.
	const approxHeaderBytes = 44
	dataBytes := info.Size() - approxHeaderBytes
	if dataBytes <= 0 {
		return 0, nil
	}
	frames := dataBytes / (bytesPerSample * chans)
	seconds := float64(frames) / float64(d.SampleRate)
	return seconds, nil
}
