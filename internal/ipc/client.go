package ipc

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/thestuu/engine/internal/obslog"
)

// State is a point in the client's {Idle, Connecting, Connected,
// Disconnected} machine.
type State int

const (
	Idle State = iota
	Connecting
	Connected
	Disconnected
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case Disconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}

var (
	ErrStopped      = errors.New("ipc: stopped")
	ErrDisconnected = errors.New("ipc: disconnected")
	ErrTimeout      = errors.New("ipc: timeout")
	ErrNotConnected = errors.New("ipc: not connected")
)

// Config configures dial target and timeouts.
type Config struct {
	SocketPath     string
	RequestTimeout time.Duration
	ReconnectDelay time.Duration
}

func (c Config) withDefaults() Config {
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = 2 * time.Second
	}
	if c.ReconnectDelay <= 0 {
		c.ReconnectDelay = 750 * time.Millisecond
	}
	return c
}

// EventHandler receives unsolicited backend events.
type EventHandler func(event string, payload map[string]any)

// StateHandler is notified on Connected and Disconnected transitions.
// Handlers run with the client's internal lock held and must not call back
// into the Client; enqueue and return.
type StateHandler func(State)

// dialFunc exists so tests can substitute an in-memory pipe for a real unix
// socket dial.
type dialFunc func(ctx context.Context, path string) (net.Conn, error)

func defaultDial(ctx context.Context, path string) (net.Conn, error) {
	var d net.Dialer
	return d.DialContext(ctx, "unix", path)
}

// Client is the Backend IPC Client. It is safe for concurrent Request
// calls; internally frame writes are serialized behind writeMu, pending-request
// bookkeeping behind mu, and frame decoding happens strictly sequentially on
// a single read-loop goroutine.
type Client struct {
	cfg  Config
	dial dialFunc
	log  zerolog.Logger

	writeMu sync.Mutex

	mu      sync.Mutex
	state   State
	conn    net.Conn
	nextID  int64
	pending map[int64]chan Envelope
	stopped bool
	stopCh  chan struct{}

	stateHandlers []StateHandler
	eventHandlers []EventHandler
	errorHandler  func(error)
}

func New(cfg Config) *Client {
	return &Client{
		cfg:     cfg.withDefaults(),
		dial:    defaultDial,
		log:     obslog.New("ipc"),
		state:   Idle,
		pending: make(map[int64]chan Envelope),
		stopCh:  make(chan struct{}),
	}
}

func (c *Client) OnEvent(h EventHandler)       { c.eventHandlers = append(c.eventHandlers, h) }
func (c *Client) OnStateChange(h StateHandler) { c.stateHandlers = append(c.stateHandlers, h) }
func (c *Client) OnError(h func(error))        { c.errorHandler = h }

// State returns the client's current connection state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Start opens the connection. If the initial dial fails, the client enters
// the reconnect cycle and Start still returns nil — "not yet connected" is
// not a Start-time error.
func (c *Client) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return ErrStopped
	}
	c.mu.Unlock()
	c.connect(ctx)
	return nil
}

// Stop cancels reconnection, rejects every pending request with ErrStopped,
// and closes the socket.
func (c *Client) Stop() {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return
	}
	c.stopped = true
	close(c.stopCh)
	conn := c.conn
	c.conn = nil
	c.setStateLocked(Idle)
	c.rejectAllLocked(ErrStopped)
	c.mu.Unlock()
	if conn != nil {
		_ = conn.Close()
	}
}

func (c *Client) connect(ctx context.Context) {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return
	}
	c.setStateLocked(Connecting)
	c.mu.Unlock()

	conn, err := c.dial(ctx, c.cfg.SocketPath)
	if err != nil {
		c.log.Debug().Err(err).Str("socket", c.cfg.SocketPath).Msg("backend dial failed")
		c.handleDisconnect()
		return
	}

	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		_ = conn.Close()
		return
	}
	c.conn = conn
	c.setStateLocked(Connected)
	c.mu.Unlock()

	go c.readLoop(conn)
}

func (c *Client) readLoop(conn net.Conn) {
	reader := bufio.NewReader(conn)
	for {
		env, err := ReadFrame(reader)
		if err != nil {
			c.log.Debug().Err(err).Msg("backend connection closed or malformed frame")
			if c.errorHandler != nil && !isCleanClose(err) {
				c.errorHandler(err)
			}
			c.mu.Lock()
			sameConn := c.conn == conn
			c.mu.Unlock()
			if sameConn {
				c.handleDisconnect()
			}
			return
		}
		switch env.Type {
		case TypeResponse:
			c.deliver(env)
		case TypeEvent:
			for _, h := range c.eventHandlers {
				h(env.Event, env.Payload)
			}
		default:
			if c.errorHandler != nil {
				c.errorHandler(fmt.Errorf("ipc: unexpected frame type %q", env.Type))
			}
		}
	}
}

func isCleanClose(err error) bool {
	return errors.Is(err, net.ErrClosed)
}

func (c *Client) deliver(env Envelope) {
	c.mu.Lock()
	ch, ok := c.pending[env.ID]
	if ok {
		delete(c.pending, env.ID)
	}
	c.mu.Unlock()
	if !ok {
		// Late response for a cancelled/unknown id: dropped silently.
		return
	}
	ch <- env
}

func (c *Client) handleDisconnect() {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return
	}
	c.conn = nil
	c.setStateLocked(Disconnected)
	c.rejectAllLocked(ErrDisconnected)
	c.mu.Unlock()

	go func() {
		select {
		case <-c.stopCh:
			return
		case <-time.After(c.cfg.ReconnectDelay):
			c.connect(context.Background())
		}
	}()
}

// setStateLocked must be called with c.mu held. Subscribers are notified on
// Connected transitions and on Disconnected ones, which the
// Transport Clock needs to switch into its local fallback without waiting
// for the next failed request.
func (c *Client) setStateLocked(s State) {
	prev := c.state
	c.state = s
	if s == prev {
		return
	}
	if s == Connected || s == Disconnected {
		for _, h := range c.stateHandlers {
			h(s)
		}
	}
}

// rejectAllLocked must be called with c.mu held.
func (c *Client) rejectAllLocked(cause error) {
	for id, ch := range c.pending {
		delete(c.pending, id)
		ch <- Envelope{Type: TypeResponse, OK: false, Error: cause.Error()}
	}
}

// Request sends a request and waits for its correlated response, failing
// with ErrTimeout after cfg.RequestTimeout and ErrDisconnected if the socket
// closes first.
func (c *Client) Request(ctx context.Context, cmd string, payload map[string]any) (map[string]any, error) {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return nil, ErrStopped
	}
	if c.state != Connected || c.conn == nil {
		c.mu.Unlock()
		return nil, ErrNotConnected
	}
	c.nextID++
	id := c.nextID
	ch := make(chan Envelope, 1)
	c.pending[id] = ch
	conn := c.conn
	c.mu.Unlock()

	env := Envelope{Type: TypeRequest, ID: id, Cmd: cmd, Payload: payload}
	c.writeMu.Lock()
	err := WriteFrame(conn, env)
	c.writeMu.Unlock()
	if err != nil {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
		return nil, fmt.Errorf("ipc: %s: %w", cmd, err)
	}

	timeout := c.cfg.RequestTimeout
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case resp := <-ch:
		if resp.Error == ErrDisconnected.Error() {
			return nil, ErrDisconnected
		}
		if resp.Error == ErrStopped.Error() {
			return nil, ErrStopped
		}
		if !resp.OK {
			return nil, fmt.Errorf("ipc: %s: backend error: %s", cmd, resp.Error)
		}
		return resp.Payload, nil
	case <-timer.C:
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
		return nil, ErrTimeout
	case <-ctx.Done():
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
		return nil, ctx.Err()
	case <-c.stopCh:
		return nil, ErrStopped
	}
}
