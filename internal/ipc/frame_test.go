package ipc

import (
	"bufio"
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWriteReadFrameRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	env := Envelope{Type: TypeRequest, ID: 7, Cmd: "transport.play", Payload: map[string]any{"foo": "bar"}}
	require.NoError(t, WriteFrame(&buf, env))

	got, err := ReadFrame(bufio.NewReader(&buf))
	require.NoError(t, err)
	require.Equal(t, env.Type, got.Type)
	require.Equal(t, env.ID, got.ID)
	require.Equal(t, env.Cmd, got.Cmd)
	require.Equal(t, "bar", got.Payload["foo"])
}

func TestReadFrameRejectsOversizedLength(t *testing.T) {
	var buf bytes.Buffer
	buf.Write([]byte{0xFF, 0xFF, 0xFF, 0xFF})
	_, err := ReadFrame(bufio.NewReader(&buf))
	require.Error(t, err)
}
