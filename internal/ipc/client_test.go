package ipc

import (
	"bufio"
	"context"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// fakeBackend is a minimal unix-socket server that answers every request
// with ok:true, unless a respond hook handles it and supplies the frame to
// write instead.
type fakeBackend struct {
	ln      net.Listener
	respond func(Envelope) (Envelope, bool) // return (response, handled)
}

func newFakeBackend(t *testing.T, path string) *fakeBackend {
	ln, err := net.Listen("unix", path)
	require.NoError(t, err)
	fb := &fakeBackend{ln: ln}
	go fb.acceptLoop(t)
	return fb
}

func (fb *fakeBackend) acceptLoop(t *testing.T) {
	for {
		conn, err := fb.ln.Accept()
		if err != nil {
			return
		}
		go fb.serve(t, conn)
	}
}

func (fb *fakeBackend) serve(t *testing.T, conn net.Conn) {
	defer conn.Close()
	reader := bufio.NewReader(conn)
	for {
		env, err := ReadFrame(reader)
		if err != nil {
			return
		}
		if fb.respond != nil {
			if resp, handled := fb.respond(env); handled {
				_ = WriteFrame(conn, resp)
				continue
			}
		}
		_ = WriteFrame(conn, Envelope{Type: TypeResponse, ID: env.ID, OK: true, Payload: map[string]any{}})
	}
}

func (fb *fakeBackend) close() { fb.ln.Close() }

func socketPath(t *testing.T) string {
	return filepath.Join(t.TempDir(), "backend.sock")
}

func TestClientRequestResponseRoundTrip(t *testing.T) {
	path := socketPath(t)
	fb := newFakeBackend(t, path)
	defer fb.close()

	c := New(Config{SocketPath: path, RequestTimeout: time.Second})
	require.NoError(t, c.Start(context.Background()))
	defer c.Stop()
	waitForState(t, c, Connected)

	payload, err := c.Request(context.Background(), "transport.get_state", map[string]any{})
	require.NoError(t, err)
	require.NotNil(t, payload)
}

func TestClientRequestIDsStrictlyIncreasing(t *testing.T) {
	path := socketPath(t)
	fb := newFakeBackend(t, path)
	defer fb.close()

	var seen []int64
	fb.respond = func(env Envelope) (Envelope, bool) {
		seen = append(seen, env.ID)
		return Envelope{Type: TypeResponse, ID: env.ID, OK: true}, true
	}

	c := New(Config{SocketPath: path, RequestTimeout: time.Second})
	require.NoError(t, c.Start(context.Background()))
	defer c.Stop()
	waitForState(t, c, Connected)

	for i := 0; i < 5; i++ {
		_, err := c.Request(context.Background(), "noop", nil)
		require.NoError(t, err)
	}
	require.Len(t, seen, 5)
	for i := 1; i < len(seen); i++ {
		require.Greater(t, seen[i], seen[i-1])
	}
}

func TestClientRequestTimesOutWhenBackendNeverResponds(t *testing.T) {
	path := socketPath(t)
	fb := newFakeBackend(t, path)
	defer fb.close()
	fb.respond = func(env Envelope) (Envelope, bool) {
		return Envelope{}, true // reply with an untyped frame the client ignores, never a response
	}

	c := New(Config{SocketPath: path, RequestTimeout: 50 * time.Millisecond})
	require.NoError(t, c.Start(context.Background()))
	defer c.Stop()
	waitForState(t, c, Connected)

	_, err := c.Request(context.Background(), "transport.play", nil)
	require.ErrorIs(t, err, ErrTimeout)

	c.mu.Lock()
	pendingCount := len(c.pending)
	c.mu.Unlock()
	require.Zero(t, pendingCount)
}

func TestClientStartWithoutBackendEntersReconnectAndReturnsNil(t *testing.T) {
	path := filepath.Join(t.TempDir(), "never-there.sock")
	c := New(Config{SocketPath: path, ReconnectDelay: 20 * time.Millisecond})
	require.NoError(t, c.Start(context.Background()))
	defer c.Stop()
	require.Equal(t, Disconnected, c.State())

	_, err := c.Request(context.Background(), "transport.play", nil)
	require.ErrorIs(t, err, ErrNotConnected)
}

func TestClientReconnectsAfterBackendComesUpLate(t *testing.T) {
	path := socketPath(t)
	c := New(Config{SocketPath: path, ReconnectDelay: 20 * time.Millisecond})
	require.NoError(t, c.Start(context.Background()))
	defer c.Stop()
	require.Equal(t, Disconnected, c.State())

	fb := newFakeBackend(t, path)
	defer fb.close()
	waitForState(t, c, Connected)
}

func TestClientStopRejectsPendingRequests(t *testing.T) {
	path := socketPath(t)
	fb := newFakeBackend(t, path)
	defer fb.close()
	fb.respond = func(env Envelope) (Envelope, bool) { return Envelope{}, true }

	c := New(Config{SocketPath: path, RequestTimeout: 5 * time.Second})
	require.NoError(t, c.Start(context.Background()))
	waitForState(t, c, Connected)

	done := make(chan error, 1)
	go func() {
		_, err := c.Request(context.Background(), "transport.play", nil)
		done <- err
	}()
	time.Sleep(20 * time.Millisecond)
	c.Stop()

	select {
	case err := <-done:
		require.ErrorIs(t, err, ErrStopped)
	case <-time.After(time.Second):
		t.Fatal("request did not reject after Stop")
	}
}

func waitForState(t *testing.T, c *Client, want State) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if c.State() == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for state %s, got %s", want, c.State())
}

func TestMain(m *testing.M) {
	os.Exit(m.Run())
}
