package gateway

import (
	"context"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/thestuu/engine/internal/obslog"
)

// Websocket timeout constants following the gorilla chat-example shape.
const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait).
	pingPeriod = 54 * time.Second

	// Maximum message size allowed from peer. Commands are small JSON
	// envelopes; imported file bytes never travel over this channel.
	maxMessageSize = 1 << 20

	// Outbound queue depth per client before slow consumers get dropped.
	sendQueueSize = 64
)

// client is one connected websocket peer: a read pump that decodes command
// envelopes and dispatches them to the Mutation Engine in arrival order,
// and a write pump that drains the send queue.
type client struct {
	id   string
	srv  *Server
	conn *websocket.Conn
	send chan []byte
	log  zerolog.Logger
}

// readPump consumes command envelopes until the connection drops. Each
// command completes (engine round trip included) before the next one from
// this client starts, so one client's commands never reorder.
func (c *client) readPump(ctx context.Context) {
	defer func() {
		c.srv.unregister(c)
		_ = c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Debug().Err(err).Msg("client connection closed unexpectedly")
			}
			return
		}
		var env commandEnvelope
		if err := codec.Unmarshal(raw, &env); err != nil {
			c.enqueue(errorEvent("", err))
			continue
		}
		if env.Cmd == "" {
			c.enqueue(errorEvent("", errMissingCmd))
			continue
		}
		cmd, err := decodeCommand(env.Cmd, env.Payload)
		if err != nil {
			// A malformed command acks with the error and additionally
			// emits an error event; the client stays connected.
			c.enqueue(ackMessage(env, failResult(err)))
			c.enqueue(errorEvent(env.Cmd, err))
			continue
		}
		res := c.srv.engine.Dispatch(obslog.ContextWithRequestID(ctx, c.id), c.id, cmd)
		c.enqueue(ackMessage(env, res))
		if !res.OK {
			c.enqueue(errorEvent(env.Cmd, errString(res.Error)))
		}
	}
}

// writePump drains the send queue onto the socket and keeps the connection
// alive with pings.
func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// enqueue queues msg for delivery, dropping it if this client's queue is
// full — a slow consumer must not stall the broadcast path.
func (c *client) enqueue(msg []byte) {
	select {
	case c.send <- msg:
	default:
		c.log.Warn().Msg("client send queue full, dropping message")
	}
}
