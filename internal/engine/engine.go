// Package engine is the Mutation Engine: the single source of truth for
// project mutations. It defines a closed sum of Command types,
// one pattern-matched executor (dispatch.go), and the validate → mutate →
// normalize → broadcast post-step every command shares.
package engine

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/thestuu/engine/internal/ipc"
	"github.com/thestuu/engine/internal/model"
	"github.com/thestuu/engine/internal/obslog"
	"github.com/thestuu/engine/internal/persistence"
	"github.com/thestuu/engine/internal/transport"
)

// Broadcaster is the engine's sink for state/transport/error events; the
// Client Gateway fans them out to connected clients. Kept as a narrow
// interface so the engine package never imports gateway.
type Broadcaster interface {
	BroadcastState(p *model.Project, nativeConnected bool)
	BroadcastTransport(s transport.Snapshot)
	NotifyError(clientID string, event string, err error)
}

type noopBroadcaster struct{}

func (noopBroadcaster) BroadcastState(*model.Project, bool)   {}
func (noopBroadcaster) BroadcastTransport(transport.Snapshot) {}
func (noopBroadcaster) NotifyError(string, string, error)     {}

// Config configures the subset of runtime options the engine itself
// consumes.
type Config struct {
	DefaultTrackCount  int
	DefaultProjectFile string
}

// Engine owns the Project Model exclusively. All mutation is serialized
// through a single command channel; no locking is required because the run
// loop is the only goroutine that ever touches project.
type Engine struct {
	cfg     Config
	project *model.Project

	ipc    *ipc.Client
	clock  *transport.Clock
	bridge *persistence.Bridge
	bcast  Broadcaster
	log    zerolog.Logger

	fileMu      sync.Mutex
	currentFile string

	commands chan request
	done     chan struct{}
}

type request struct {
	ctx    context.Context
	cmd    Command
	client string
	result chan Result
}

// Result is the ack every command produces: exactly one per dispatched
// command, in `{ok, ...}` / `{ok: false, error}` shape.
type Result struct {
	OK         bool           `json:"ok"`
	Error      string         `json:"error,omitempty"`
	Data       map[string]any `json:"-"`
	NativeSync *SyncReport    `json:"nativeSync,omitempty"`
}

func ok(data map[string]any) Result {
	if data == nil {
		data = map[string]any{}
	}
	return Result{OK: true, Data: data}
}

func fail(err error) Result {
	return Result{OK: false, Error: err.Error()}
}

// New constructs an Engine. project is the already-normalized project the
// Persistence Bridge loaded or seeded at startup.
func New(cfg Config, project *model.Project, ipcClient *ipc.Client, clock *transport.Clock, bridge *persistence.Bridge, currentFile string) *Engine {
	if cfg.DefaultTrackCount <= 0 {
		cfg.DefaultTrackCount = 4
	}
	e := &Engine{
		cfg:         cfg,
		project:     project,
		ipc:         ipcClient,
		clock:       clock,
		bridge:      bridge,
		bcast:       noopBroadcaster{},
		log:         obslog.New("engine"),
		currentFile: currentFile,
		commands:    make(chan request, 32),
		done:        make(chan struct{}),
	}
	return e
}

// SetBroadcaster wires the Client Gateway's broadcast sink. Must be called
// before Run.
func (e *Engine) SetBroadcaster(b Broadcaster) {
	if b == nil {
		b = noopBroadcaster{}
	}
	e.bcast = b
}

// Run drains the command queue until ctx is cancelled, executing commands
// strictly in arrival order.
func (e *Engine) Run(ctx context.Context) {
	defer close(e.done)
	for {
		select {
		case <-ctx.Done():
			return
		case req := <-e.commands:
			res := e.execute(req.ctx, req.cmd)
			select {
			case req.result <- res:
			default:
			}
		}
	}
}

// Dispatch enqueues cmd and blocks until it has been executed, returning
// its Result. Safe to call concurrently from many Client Gateway
// goroutines; ordering across callers is FIFO on the underlying channel.
func (e *Engine) Dispatch(ctx context.Context, clientID string, cmd Command) Result {
	resCh := make(chan Result, 1)
	select {
	case e.commands <- request{ctx: ctx, cmd: cmd, client: clientID, result: resCh}:
	case <-ctx.Done():
		return fail(fmt.Errorf("engine: %w", ctx.Err()))
	case <-e.done:
		return fail(fmt.Errorf("engine: stopped"))
	}
	select {
	case res := <-resCh:
		return res
	case <-ctx.Done():
		return fail(fmt.Errorf("engine: %w", ctx.Err()))
	}
}

// Project returns the current project snapshot. Callers on the engine
// goroutine (command handlers) may mutate it directly; callers elsewhere
// (e.g. a fresh Gateway connection) must only read it, and should prefer
// routing through Dispatch for anything that changes state.
func (e *Engine) Project() *model.Project { return e.project }

// TransportSnapshot returns the current transport snapshot.
func (e *Engine) TransportSnapshot() transport.Snapshot { return e.clock.Snapshot() }

// NativeConnected reports whether the Backend IPC Client is currently
// Connected.
func (e *Engine) NativeConnected() bool {
	return e.ipc != nil && e.ipc.State() == ipc.Connected
}

// CurrentFile returns the project filename currently loaded. Guarded
// because the Client Gateway reads it from connection goroutines while
// project.load may replace it.
func (e *Engine) CurrentFile() string {
	e.fileMu.Lock()
	defer e.fileMu.Unlock()
	return e.currentFile
}

func (e *Engine) setCurrentFile(name string) {
	e.fileMu.Lock()
	e.currentFile = name
	e.fileMu.Unlock()
}
