package engine

import (
	"context"

	"github.com/thestuu/engine/internal/ipc"
)

// Backend events enter the engine as internal commands on the same channel
// client commands use, so transport.tick adoption is serialized with
// mutations and "late ticks overwrite earlier ones" falls out of FIFO
// ordering.

type cmdAdoptSnapshot struct{ payload map[string]any }
type cmdBackendState struct{ state ipc.State }

func (cmdAdoptSnapshot) commandName() string { return "internal.adopt-snapshot" }
func (cmdBackendState) commandName() string  { return "internal.backend-state" }

// BindIPC subscribes the engine to the IPC Client's events and connection
// state. Call once after New, before Run.
func (e *Engine) BindIPC() {
	if e.ipc == nil {
		return
	}
	e.ipc.OnEvent(func(event string, payload map[string]any) {
		switch event {
		case "transport.tick", "transport.state":
			e.post(cmdAdoptSnapshot{payload: payload})
		}
	})
	e.ipc.OnStateChange(func(s ipc.State) {
		e.post(cmdBackendState{state: s})
	})
	e.ipc.OnError(func(err error) {
		e.log.Warn().Err(err).Msg("backend stream error")
	})
}

// post enqueues an internal command without waiting for its result. A full
// queue drops the event: ticks arrive every ~40 ms, so a dropped one is
// superseded almost immediately.
func (e *Engine) post(cmd Command) {
	req := request{ctx: context.Background(), cmd: cmd, result: make(chan Result, 1)}
	select {
	case e.commands <- req:
	case <-e.done:
	default:
		e.log.Debug().Str("cmd", cmd.commandName()).Msg("command queue full, dropping backend event")
	}
}

// doAdoptSnapshot ingests an authoritative backend snapshot, writes the
// reported bpm through to the project model, and rebroadcasts transport to
// every client.
func (e *Engine) doAdoptSnapshot(c cmdAdoptSnapshot) Result {
	snap := snapshotFromPayload(transportPayload(c.payload))
	e.clock.Adopt(snap)
	current := e.clock.Snapshot()
	e.project.BPM = clampBPM(current.BPM)
	e.bcast.BroadcastTransport(current)
	return ok(nil)
}

// doBackendState reacts to IPC connection transitions: a disconnect flips
// the Transport Clock into its local fallback so playback continues
// smoothly; a connect just rebroadcasts state so clients see
// nativeTransport change. The plugin graph re-sync is deliberately
// deferred to the next structural operation.
func (e *Engine) doBackendState(c cmdBackendState) Result {
	switch c.state {
	case ipc.Disconnected:
		e.clock.ToFallback()
		e.log.Warn().Msg("backend disconnected, transport clock running in local fallback")
	case ipc.Connected:
		e.log.Info().Msg("backend connected")
	}
	e.bcast.BroadcastState(e.project, e.NativeConnected())
	e.bcast.BroadcastTransport(e.clock.Snapshot())
	return ok(nil)
}
