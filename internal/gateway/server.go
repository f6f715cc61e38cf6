package gateway

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/thestuu/engine/internal/engine"
	"github.com/thestuu/engine/internal/model"
	"github.com/thestuu/engine/internal/obslog"
	"github.com/thestuu/engine/internal/transport"
)

// tickInterval is the periodic transport/meter broadcast cadence.
const tickInterval = 120 * time.Millisecond

var errMissingCmd = errors.New("cmd is required")

func errString(s string) error { return errors.New(s) }

func failResult(err error) engine.Result {
	return engine.Result{OK: false, Error: err.Error()}
}

// Config carries the gateway's runtime options.
type Config struct {
	Host           string
	Port           int
	BackendSocket  string
	BackendEnabled bool
}

// Server is the Client Gateway. It owns the clients list exclusively and
// implements engine.Broadcaster, so every successful mutation fans out
// here.
type Server struct {
	cfg    Config
	engine *engine.Engine
	log    zerolog.Logger

	upgrader websocket.Upgrader

	mu          sync.RWMutex
	clients     map[*client]bool
	lastState   []byte
	meterTracks []int

	httpServer *http.Server
}

func New(cfg Config, eng *engine.Engine) *Server {
	s := &Server{
		cfg:     cfg,
		engine:  eng,
		log:     obslog.New("gateway"),
		clients: map[*client]bool{},
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// The engine serves local UI clients only; origin checks are
			// the embedding application's concern.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
	// Seed the state cache so the first client to connect gets a snapshot
	// even before any mutation has broadcast one.
	s.BroadcastState(eng.Project(), eng.NativeConnected())
	return s
}

// Router builds the HTTP surface: a single websocket upgrade endpoint.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/ws", s.handleWS)
	return r
}

// ListenAndServe runs the gateway until ctx is cancelled, including the
// 120 ms transport/meter ticker.
func (s *Server) ListenAndServe(ctx context.Context) error {
	addr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go s.tickLoop(ctx)
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.httpServer.Shutdown(shutdownCtx)
	}()

	s.log.Info().Str("addr", addr).Msg("client gateway listening")
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("gateway: %w", err)
	}
	return nil
}

// handleWS upgrades the connection and emits, in order: ready, the full
// state snapshot, and the current transport snapshot.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	c := &client{
		id:   uuid.NewString(),
		srv:  s,
		conn: conn,
		send: make(chan []byte, sendQueueSize),
	}
	c.log = s.log.With().Str("client", c.id).Logger()

	ready := map[string]any{
		"type":            "ready",
		"enginePort":      s.cfg.Port,
		"projectFile":     s.engine.CurrentFile(),
		"nativeTransport": s.engine.NativeConnected(),
	}
	if s.cfg.BackendEnabled {
		ready["nativeSocketPath"] = s.cfg.BackendSocket
	}
	c.enqueue(mustMarshal(ready))

	s.mu.Lock()
	s.clients[c] = true
	state := s.lastState
	s.mu.Unlock()

	if state != nil {
		c.enqueue(state)
	}
	c.enqueue(transportMessage(s.engine.TransportSnapshot()))

	c.log.Info().Msg("client connected")
	go c.writePump()
	// The request context dies when this handler returns; the hijacked
	// connection outlives it, so command dispatch runs on its own context.
	go c.readPump(context.Background())
}

func (s *Server) unregister(c *client) {
	s.mu.Lock()
	if _, ok := s.clients[c]; ok {
		delete(s.clients, c)
		close(c.send)
	}
	s.mu.Unlock()
	c.log.Info().Msg("client disconnected")
}

func (s *Server) broadcast(msg []byte) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for c := range s.clients {
		c.enqueue(msg)
	}
}

// BroadcastState implements engine.Broadcaster. It marshals on the calling
// (engine) goroutine so the project is never read concurrently with a
// mutation, caches the encoded event for future connects, and fans it out.
func (s *Server) BroadcastState(p *model.Project, nativeConnected bool) {
	msg := mustMarshal(map[string]any{
		"type":            "state",
		"project":         p,
		"nativeTransport": nativeConnected,
	})
	trackIDs := make([]int, 0, len(p.Tracks))
	for _, t := range p.Tracks {
		trackIDs = append(trackIDs, t.ID)
	}
	s.mu.Lock()
	s.lastState = msg
	s.meterTracks = trackIDs
	s.mu.Unlock()
	s.broadcast(msg)
}

// BroadcastTransport implements engine.Broadcaster.
func (s *Server) BroadcastTransport(snap transport.Snapshot) {
	s.broadcast(transportMessage(snap))
}

// NotifyError implements engine.Broadcaster: an error event attributed to
// one client's command goes only to that client.
func (s *Server) NotifyError(clientID string, event string, err error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for c := range s.clients {
		if c.id == clientID {
			c.enqueue(errorEvent(event, err))
			return
		}
	}
}

func transportMessage(snap transport.Snapshot) []byte {
	return mustMarshal(map[string]any{
		"type":          "transport",
		"playing":       snap.Playing,
		"bpm":           snap.BPM,
		"bar":           snap.Bar,
		"beat":          snap.Beat,
		"step":          snap.Step,
		"stepIndex":     snap.StepIndex,
		"positionBars":  snap.PositionBars,
		"positionBeats": snap.PositionBeats,
		"timestamp":     snap.Timestamp,
	})
}

// tickLoop emits transport and meter events every 120 ms.
func (s *Server) tickLoop(ctx context.Context) {
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			snap := s.engine.TransportSnapshot()
			s.broadcast(transportMessage(snap))
			s.broadcast(s.meterMessage(snap))
		}
	}
}

// meterMessage builds the per-track {peak, rms} event: zeros when the
// backend is authoritative (real metering is out of scope), small random
// values simulating activity while the local fallback clock is playing.
func (s *Server) meterMessage(snap transport.Snapshot) []byte {
	s.mu.RLock()
	trackIDs := s.meterTracks
	s.mu.RUnlock()

	simulate := snap.Playing && !s.engine.NativeConnected()
	meters := make([]map[string]any, 0, len(trackIDs))
	for _, id := range trackIDs {
		peak, rms := 0.0, 0.0
		if simulate {
			peak = 0.15 + rand.Float64()*0.35
			rms = peak * (0.5 + rand.Float64()*0.25)
		}
		meters = append(meters, map[string]any{"trackId": id, "peak": peak, "rms": rms})
	}
	return mustMarshal(map[string]any{
		"type":      "meter",
		"playing":   snap.Playing,
		"timestamp": snap.Timestamp,
		"meters":    meters,
	})
}
