// Package ipc is the Backend IPC Client: a framed binary message client to
// the single local real-time audio backend peer, over a stream socket.
package ipc

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/vmihailenco/msgpack/v5"
)

// maxFrameBytes guards against a corrupt length prefix turning one bad byte
// into a multi-gigabyte allocation.
const maxFrameBytes = 64 << 20

// MessageType distinguishes the three message kinds on the wire.
type MessageType string

const (
	TypeRequest  MessageType = "request"
	TypeResponse MessageType = "response"
	TypeEvent    MessageType = "event"
)

// Envelope is the self-describing binary object graph carried by every
// frame. The payload root must be a map; Payload is therefore a
// string-keyed map, matching the decoder's recursive null/bool/int/double/
// string/array/map data model one-to-one via msgpack.
type Envelope struct {
	Type    MessageType    `msgpack:"type"`
	ID      int64          `msgpack:"id,omitempty"`
	Cmd     string         `msgpack:"cmd,omitempty"`
	Event   string         `msgpack:"event,omitempty"`
	OK      bool           `msgpack:"ok,omitempty"`
	Error   string         `msgpack:"error,omitempty"`
	Payload map[string]any `msgpack:"payload,omitempty"`
}

// WriteFrame encodes env as msgpack and writes it as a 4-byte big-endian
// length prefix followed by exactly that many payload bytes.
func WriteFrame(w io.Writer, env Envelope) error {
	body, err := msgpack.Marshal(env)
	if err != nil {
		return fmt.Errorf("ipc: encode frame: %w", err)
	}
	if len(body) > maxFrameBytes {
		return fmt.Errorf("ipc: frame too large (%d bytes)", len(body))
	}
	var header [4]byte
	binary.BigEndian.PutUint32(header[:], uint32(len(body)))
	if _, err := w.Write(header[:]); err != nil {
		return fmt.Errorf("ipc: write frame header: %w", err)
	}
	if _, err := w.Write(body); err != nil {
		return fmt.Errorf("ipc: write frame body: %w", err)
	}
	return nil
}

// ReadFrame blocks until a full frame is available on r, or returns an error
// (including io.EOF on orderly close). A malformed frame (bad length, body
// that fails to decode into a map) is reported via the returned error; the
// caller decides whether to keep draining the stream.
func ReadFrame(r *bufio.Reader) (Envelope, error) {
	var header [4]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return Envelope{}, err
	}
	length := binary.BigEndian.Uint32(header[:])
	if length > maxFrameBytes {
		return Envelope{}, fmt.Errorf("ipc: frame length %d exceeds limit", length)
	}
	body := make([]byte, length)
	if _, err := io.ReadFull(r, body); err != nil {
		return Envelope{}, fmt.Errorf("ipc: read frame body: %w", err)
	}
	var env Envelope
	if err := msgpack.Unmarshal(body, &env); err != nil {
		return Envelope{}, fmt.Errorf("ipc: decode frame: %w", err)
	}
	if env.Type != TypeRequest && env.Payload == nil {
		env.Payload = map[string]any{}
	}
	return env, nil
}
