package engine

import (
	"context"
	"fmt"
	"math"

	"github.com/thestuu/engine/internal/ipc"
	"github.com/thestuu/engine/internal/transport"
)

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

// snapshotFromPayload decodes a backend response/event payload's "transport"
// (or the payload itself, for transport.tick events) into a Snapshot.
// Missing or non-numeric fields read as zero; values are not clamped here —
// Adopt clamps negative fields and replaces non-finite numerics.
func snapshotFromPayload(payload map[string]any) transport.Snapshot {
	var s transport.Snapshot
	get := func(key string) (any, bool) { v, ok := payload[key]; return v, ok }
	if v, ok := get("playing"); ok {
		if b, ok := v.(bool); ok {
			s.Playing = b
		}
	}
	if v, ok := get("bpm"); ok {
		s.BPM = toFloat(v)
	}
	s.Bar = int(toFloat(valueOr(payload, "bar")))
	s.Beat = int(toFloat(valueOr(payload, "beat")))
	s.Step = int(toFloat(valueOr(payload, "step")))
	s.StepIndex = int(toFloat(valueOr(payload, "stepIndex")))
	s.PositionBars = toFloat(valueOr(payload, "positionBars"))
	s.PositionBeats = toFloat(valueOr(payload, "positionBeats"))
	s.Timestamp = int64(toFloat(valueOr(payload, "timestamp")))
	return s
}

func valueOr(m map[string]any, key string) any { return m[key] }

// toFloat coerces the numeric types the msgpack and JSON decoders may
// produce for a wire number; anything else reads as zero.
func toFloat(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case int32:
		return float64(n)
	case int16:
		return float64(n)
	case int8:
		return float64(n)
	case uint:
		return float64(n)
	case uint64:
		return float64(n)
	case uint32:
		return float64(n)
	case uint16:
		return float64(n)
	case uint8:
		return float64(n)
	default:
		return 0
	}
}

func transportPayload(payload map[string]any) map[string]any {
	if v, ok := payload["transport"].(map[string]any); ok {
		return v
	}
	return payload
}

// forwardTransport sends cmd to the backend if connected and adopts its
// reported snapshot; otherwise drives the Transport Clock's local fallback
// via fallback. Either way the clock's resulting bpm (the backend's reported
// bpm, when a connected response carried one) is written through to the
// project model afterward.
func (e *Engine) forwardTransport(ctx context.Context, cmd string, payload map[string]any, fallback func()) (transport.Snapshot, error) {
	if e.NativeConnected() {
		resp, err := e.ipc.Request(ctx, cmd, payload)
		if err != nil {
			return transport.Snapshot{}, classifyIPCError(err)
		}
		snap := snapshotFromPayload(transportPayload(resp))
		e.clock.Adopt(snap)
	} else {
		fallback()
	}
	snap := e.clock.Snapshot()
	e.project.BPM = clampBPM(snap.BPM)
	return snap, nil
}

func classifyIPCError(err error) error {
	switch err {
	case ipc.ErrTimeout:
		return fmt.Errorf("backend request timed out: %w", err)
	case ipc.ErrDisconnected:
		return fmt.Errorf("backend disconnected: %w", err)
	default:
		return err
	}
}

func clampBPM(bpm float64) float64 {
	if bpm < 20 {
		return 20
	}
	if bpm > 300 {
		return 300
	}
	return bpm
}

func (e *Engine) doPlay(ctx context.Context) Result {
	snap, err := e.forwardTransport(ctx, "transport.play", map[string]any{}, e.clock.Play)
	if err != nil {
		return fail(err)
	}
	e.bcast.BroadcastTransport(snap)
	return ok(map[string]any{"transport": snap})
}

func (e *Engine) doPause(ctx context.Context) Result {
	snap, err := e.forwardTransport(ctx, "transport.pause", map[string]any{}, e.clock.Pause)
	if err != nil {
		return fail(err)
	}
	e.bcast.BroadcastTransport(snap)
	return ok(map[string]any{"transport": snap})
}

func (e *Engine) doStop(ctx context.Context) Result {
	snap, err := e.forwardTransport(ctx, "transport.stop", map[string]any{}, e.clock.Stop)
	if err != nil {
		return fail(err)
	}
	e.bcast.BroadcastTransport(snap)
	return ok(map[string]any{"transport": snap})
}

func (e *Engine) doSetBPM(ctx context.Context, c CmdSetBPM) Result {
	if !finite(c.BPM) {
		return fail(fmt.Errorf("set-bpm: bpm must be finite"))
	}
	bpm := clampBPM(c.BPM)
	snap, err := e.forwardTransport(ctx, "transport.set_bpm", map[string]any{"bpm": bpm}, func() {
		e.clock.SetBPM(bpm)
	})
	if err != nil {
		return fail(err)
	}
	e.bcast.BroadcastTransport(snap)
	return ok(map[string]any{"transport": snap})
}

func (e *Engine) doSeek(ctx context.Context, c CmdSeek) Result {
	var beats float64
	switch {
	case c.PositionBeats != nil:
		beats = *c.PositionBeats
	case c.PositionBars != nil:
		beats = *c.PositionBars * 4
	default:
		return fail(fmt.Errorf("seek: requires position_beats or position_bars"))
	}
	if !finite(beats) {
		return fail(fmt.Errorf("seek: position must be finite"))
	}
	snap, err := e.forwardTransport(ctx, "transport.seek", map[string]any{"position_beats": beats}, func() {
		e.clock.Seek(beats)
	})
	if err != nil {
		return fail(err)
	}
	e.bcast.BroadcastTransport(snap)
	return ok(map[string]any{"transport": snap})
}
