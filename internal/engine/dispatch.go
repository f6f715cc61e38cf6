package engine

import (
	"context"
	"fmt"

	"github.com/thestuu/engine/internal/model"
	"github.com/thestuu/engine/internal/obslog"
)

// Command is the marker interface implemented by every command struct in
// this package. It carries no behavior itself — dispatch.go's execute is
// the only place that interprets a Command, by type switch, matching the
// "typed command enum with a single executor" design note.
type Command interface {
	commandName() string
}

// execute is the Mutation Engine's one executor. Every branch follows the
// same shape: validate inputs against the current project, mutate a copy
// or the live project, and — for anything structural — run the
// normalize, resync and broadcast post-step shared by all commands.
func (e *Engine) execute(ctx context.Context, cmd Command) Result {
	e.log.Debug().Str("cmd", cmd.commandName()).Str("client", obslog.RequestIDFromContext(ctx)).Msg("dispatch")

	switch c := cmd.(type) {
	// Transport
	case CmdPlay:
		return e.doPlay(ctx)
	case CmdPause:
		return e.doPause(ctx)
	case CmdStop:
		return e.doStop(ctx)
	case CmdSetBPM:
		return e.doSetBPM(ctx, c)
	case CmdSeek:
		return e.doSeek(ctx, c)

	// Track lifecycle
	case CmdTrackCreate:
		return e.doTrackCreate(ctx)
	case CmdTrackInsert:
		return e.doTrackInsert(ctx, c)
	case CmdTrackReorder:
		return e.doTrackReorder(ctx, c)
	case CmdTrackDelete:
		return e.doTrackDelete(ctx, c)
	case CmdTrackBulkDelete:
		return e.doTrackBulkDelete(ctx, c)
	case CmdTrackDuplicate:
		return e.doTrackDuplicate(ctx, c)
	case CmdTrackSetName:
		return e.doTrackSetName(c)
	case CmdTrackSetChainCollapsed:
		return e.doTrackSetChainCollapsed(c)
	case CmdTrackSetChainEnabled:
		return e.doTrackSetChainEnabled(ctx, c)

	// Mixer
	case CmdSetVolume:
		return e.doSetVolume(c)
	case CmdSetPan:
		return e.doSetPan(c)
	case CmdSetMute:
		return e.doSetMute(c)
	case CmdSetSolo:
		return e.doSetSolo(c)
	case CmdSetRecordArm:
		return e.doSetRecordArm(c)

	// Pattern
	case CmdPatternCreate:
		return e.doPatternCreate(c)
	case CmdPatternUpdate:
		return e.doPatternUpdate(c)
	case CmdPatternUpdateStep:
		return e.doPatternUpdateStep(c)
	case CmdPatternDelete:
		return e.doPatternDelete(c)
	case CmdMoveMIDINote:
		return e.doMoveMIDINote(c)

	// Clip
	case CmdClipCreate:
		return e.doClipCreate(c)
	case CmdClipImportFile:
		return e.doClipImportFile(ctx, c)
	case CmdClipMove:
		return e.doClipMove(c)
	case CmdClipResize:
		return e.doClipResize(c)
	case CmdClipDelete:
		return e.doClipDelete(c)

	// Plugin
	case CmdPluginScan:
		return e.doPluginScan(ctx)
	case CmdPluginAdd:
		return e.doPluginAdd(ctx, c)
	case CmdPluginRemove:
		return e.doPluginRemove(ctx, c)
	case CmdPluginReorder:
		return e.doPluginReorder(ctx, c)
	case CmdPluginSetBypass:
		return e.doPluginSetBypass(c)
	case CmdPluginSetParameter:
		return e.doPluginSetParameter(ctx, c)

	// Backend events routed through the command queue (events.go)
	case cmdAdoptSnapshot:
		return e.doAdoptSnapshot(c)
	case cmdBackendState:
		return e.doBackendState(c)

	// Project I/O
	case CmdProjectLoad:
		return e.doProjectLoad(c)
	case CmdProjectSave:
		return e.doProjectSave(c)
	case CmdUpdateView:
		return e.doUpdateView(c)

	default:
		return fail(fmt.Errorf("engine: unknown command %T", cmd))
	}
}

// finish runs the shared post-step: normalize, broadcast state to every
// client, and return an ok Result. Commands that also need a backend
// re-sync call e.resync first and attach its report.
func (e *Engine) finish(data map[string]any) Result {
	model.Normalize(e.project)
	e.bcast.BroadcastState(e.project, e.NativeConnected())
	return ok(data)
}

func (e *Engine) finishWithSync(ctx context.Context, data map[string]any) Result {
	model.Normalize(e.project)
	report := e.resync(ctx)
	e.bcast.BroadcastState(e.project, e.NativeConnected())
	res := ok(data)
	if report != nil {
		res.NativeSync = report
	}
	return res
}
