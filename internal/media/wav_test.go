package media

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeWAV synthesizes a canonical 44-byte PCM WAV header followed by
// dataBytes of silence, so duration math can be checked against known
// sample rates without shipping binary fixtures.
func writeWAV(t *testing.T, path string, sampleRate uint32, bitDepth, channels uint16, dataBytes int) {
	t.Helper()
	var buf bytes.Buffer
	byteRate := sampleRate * uint32(bitDepth/8) * uint32(channels)
	blockAlign := channels * bitDepth / 8

	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, uint32(36+dataBytes))
	buf.WriteString("WAVE")
	buf.WriteString("fmt ")
	binary.Write(&buf, binary.LittleEndian, uint32(16))
	binary.Write(&buf, binary.LittleEndian, uint16(1)) // PCM
	binary.Write(&buf, binary.LittleEndian, channels)
	binary.Write(&buf, binary.LittleEndian, sampleRate)
	binary.Write(&buf, binary.LittleEndian, byteRate)
	binary.Write(&buf, binary.LittleEndian, blockAlign)
	binary.Write(&buf, binary.LittleEndian, bitDepth)
	buf.WriteString("data")
	binary.Write(&buf, binary.LittleEndian, uint32(dataBytes))
	buf.Write(make([]byte, dataBytes))

	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
}

func TestWAVDuration(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name       string
		sampleRate uint32
		bitDepth   uint16
		channels   uint16
		dataBytes  int
		want       float64
	}{
		{name: "mono 16-bit 8kHz one second", sampleRate: 8000, bitDepth: 16, channels: 1, dataBytes: 16000, want: 1.0},
		{name: "stereo 16-bit 44.1kHz one second", sampleRate: 44100, bitDepth: 16, channels: 2, dataBytes: 44100 * 4, want: 1.0},
		{name: "mono 8-bit 8kHz half second", sampleRate: 8000, bitDepth: 8, channels: 1, dataBytes: 4000, want: 0.5},
		{name: "header only, no samples", sampleRate: 8000, bitDepth: 16, channels: 1, dataBytes: 0, want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.name+".wav")
			writeWAV(t, path, tt.sampleRate, tt.bitDepth, tt.channels, tt.dataBytes)

			got, err := WAVDuration(path)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 0.01)
		})
	}
}

func TestWAVDurationRejectsNonWAVFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "garbage.wav")
	require.NoError(t, os.WriteFile(path, []byte("definitely not riff data"), 0o644))

	_, err := WAVDuration(path)
	assert.Error(t, err)
}

func TestWAVDurationMissingFile(t *testing.T) {
	_, err := WAVDuration(filepath.Join(t.TempDir(), "absent.wav"))
	assert.Error(t, err)
}

func TestWAVDurationRejectsZeroSampleRate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "zero-rate.wav")
	writeWAV(t, path, 0, 16, 1, 1600)

	_, err := WAVDuration(path)
	assert.Error(t, err)
}
