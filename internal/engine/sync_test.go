package engine

import (
	"bufio"
	"context"
	"net"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thestuu/engine/internal/ipc"
	"github.com/thestuu/engine/internal/model"
	"github.com/thestuu/engine/internal/transport"
)

// fakeBackend answers every IPC request like the native audio backend
// would, recording the command sequence it saw.
type fakeBackend struct {
	ln net.Listener

	mu   sync.Mutex
	cmds []string
}

func startFakeBackend(t *testing.T) (*fakeBackend, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "native.sock")
	ln, err := net.Listen("unix", path)
	require.NoError(t, err)
	fb := &fakeBackend{ln: ln}
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go fb.serve(conn)
		}
	}()
	t.Cleanup(func() { _ = ln.Close() })
	return fb, path
}

func (fb *fakeBackend) serve(conn net.Conn) {
	defer conn.Close()
	reader := bufio.NewReader(conn)
	for {
		env, err := ipc.ReadFrame(reader)
		if err != nil {
			return
		}
		fb.mu.Lock()
		fb.cmds = append(fb.cmds, env.Cmd)
		fb.mu.Unlock()

		resp := ipc.Envelope{Type: ipc.TypeResponse, ID: env.ID, OK: true, Payload: map[string]any{}}
		switch env.Cmd {
		case "vst:load":
			uid, _ := env.Payload["plugin_uid"].(string)
			resp.Payload = map[string]any{"plugin": map[string]any{
				"name":        "Loaded " + uid,
				"uid":         uid,
				"trackId":     env.Payload["track_id"],
				"pluginIndex": 0,
				"parameters": []any{
					map[string]any{"id": "gain", "name": "Gain", "min": 0.0, "max": 1.0, "value": 0.5},
				},
			}}
		case "vst:param:set":
			resp.Payload = map[string]any{"parameter": map[string]any{
				"id": env.Payload["param_id"], "value": 0.42,
			}}
		case "transport.play":
			resp.Payload = map[string]any{"transport": map[string]any{
				"playing": true, "bpm": 120.0, "positionBeats": 0.0, "positionBars": 0.0,
				"bar": 1, "beat": 1, "step": 1, "stepIndex": 0, "timestamp": time.Now().UnixMilli(),
			}}
		}
		_ = ipc.WriteFrame(conn, resp)
	}
}

func (fb *fakeBackend) commands() []string {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	return append([]string(nil), fb.cmds...)
}

func newConnectedEngine(t *testing.T, p *model.Project) (*Engine, *fakeBackend) {
	t.Helper()
	fb, path := startFakeBackend(t)
	client := ipc.New(ipc.Config{SocketPath: path, RequestTimeout: time.Second})
	require.NoError(t, client.Start(context.Background()))
	t.Cleanup(client.Stop)
	waitConnected(t, client)

	model.Normalize(p)
	e := New(Config{DefaultTrackCount: 4}, p, client, transport.New(), nil, "welcome.stu")
	return e, fb
}

func waitConnected(t *testing.T, c *ipc.Client) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if c.State() == ipc.Connected {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("ipc client never connected")
}

func TestPluginAddAdoptsBackendReportedSchema(t *testing.T) {
	e, fb := newConnectedEngine(t, twoTrackProject())

	res := mustOK(t, e, CmdPluginAdd{TrackID: 1, PluginUID: "uid-a"})
	nodeID := res.Data["nodeId"].(string)

	n, ok := model.FindNode(e.project, nodeID)
	require.True(t, ok)
	assert.Equal(t, "Loaded uid-a", n.PluginName)
	require.Len(t, n.Parameters, 1)
	assert.Equal(t, "gain", n.Parameters[0].ID)
	// the post-add resync replays the stored value and adopts what the
	// backend reports it applied
	assert.Equal(t, 0.42, n.Values["gain"])

	cmds := fb.commands()
	assert.Contains(t, cmds, "vst:load")
	assert.Contains(t, cmds, "edit:reset")
}

func TestResyncReplaysNodesAndAudioClips(t *testing.T) {
	p := twoTrackProject()
	p.Nodes = []*model.PluginNode{
		{ID: "n1", PluginUID: "uid-a", TrackID: 1, PluginIndex: 0, Values: map[string]float64{"gain": 0.9}},
		{ID: "n2", PluginUID: "uid-b", TrackID: 2, PluginIndex: 0},
	}
	p.Tracks[1].Clips = append(p.Tracks[1].Clips, &model.Clip{
		ID: "a1", Start: 0, Length: 8, Kind: model.ClipAudio,
		SourceFilename: "kick.wav", SourceFormat: "wav", SourcePath: "/tmp/kick.wav",
	})
	e, fb := newConnectedEngine(t, p)

	report := e.resync(context.Background())
	require.NotNil(t, report)
	assert.Zero(t, report.Failed)
	assert.Equal(t, 3, report.Restored) // two nodes + one audio clip

	cmds := fb.commands()
	require.GreaterOrEqual(t, len(cmds), 4)
	assert.Equal(t, "edit:reset", cmds[0])
	assert.Equal(t, "vst:load", cmds[1])
	assert.Contains(t, cmds, "clip:import-file")

	// backend-applied parameter value adopted
	n1, _ := model.FindNode(e.project, "n1")
	assert.Equal(t, 0.42, n1.Values["gain"])
}

func TestSetParameterAdoptsAppliedValue(t *testing.T) {
	p := twoTrackProject()
	p.Nodes = []*model.PluginNode{{
		ID: "n1", PluginUID: "uid-a", TrackID: 1, PluginIndex: 0,
		Parameters: []model.PluginParam{{ID: "gain", Name: "Gain", Min: 0, Max: 1}},
		Values:     map[string]float64{},
	}}
	e, _ := newConnectedEngine(t, p)

	mustOK(t, e, CmdPluginSetParameter{TrackID: 1, PluginIndex: 0, ParamID: "gain", Value: 0.9})
	n, _ := model.FindNode(e.project, "n1")
	assert.Equal(t, 0.42, n.Values["gain"])
}

func TestTransportForwardsToBackendAndAdoptsSnapshot(t *testing.T) {
	e, fb := newConnectedEngine(t, twoTrackProject())

	res := mustOK(t, e, CmdPlay{})
	snap := res.Data["transport"].(transport.Snapshot)
	assert.True(t, snap.Playing)
	assert.Contains(t, fb.commands(), "transport.play")
}

func TestResyncSkippedWhenDisconnected(t *testing.T) {
	e := newTestEngine(t, twoTrackProject())
	assert.Nil(t, e.resync(context.Background()))
}
