package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/a11ybridge"
	"github.com/aretw0/a11ybridge/internal/config"
	"github.com/aretw0/a11ybridge/internal/logging"
	redisAdapter "github.com/aretw0/a11ybridge/pkg/adapters/redis"
)

const fixtureYAML = `
name: checkout
cycles:
  - pixel_ratio: 2
    nodes:
      - {id: 0, children: [1, 2], rect: {right: 800, bottom: 1200}}
      - {id: 1, label: Total, value: "42.00", rect: {left: 10, top: 10, right: 200, bottom: 40}}
      - {id: 2, label: Pay, flags: [is_button], actions: [tap], rect: {left: 10, top: 100, right: 200, bottom: 160}}
  - nodes:
      - {id: 0, children: [2], rect: {right: 800, bottom: 1200}}
`

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append(args, "--config", filepath.Join(t.TempDir(), "none.yaml"), "--log-level", "error"))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func writeFixture(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "checkout.yaml")
	require.NoError(t, os.WriteFile(path, []byte(fixtureYAML), 0o644))
	return path
}

func TestVersionCmd(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "a11ybridge version "+a11ybridge.Version+"\n", out)
}

func TestReplayCmd(t *testing.T) {
	out, err := run(t, "replay", writeFixture(t), "--tree", "--style", "notty")
	require.NoError(t, err)

	assert.Contains(t, out, `replaying "checkout": 2 cycles via memory`)
	assert.Contains(t, out, "cycle 1 (")
	assert.Contains(t, out, "3 sent, 0 deleted, 0 dropped in 1 messages, root updated")
	assert.Contains(t, out, "1 sent, 1 deleted, 0 dropped in 2 messages, root updated")
	assert.Contains(t, out, "is_button")
}

func TestInspectCmd(t *testing.T) {
	out, err := run(t, "inspect", writeFixture(t), "--format", "wire", "--hit", "50,120", "--hit", "50,20")
	require.NoError(t, err)

	dec := json.NewDecoder(bytes.NewReader([]byte(out)))
	var wire map[string]json.RawMessage
	require.NoError(t, dec.Decode(&wire))
	assert.Len(t, wire, 2)
	assert.Contains(t, wire, "2")

	// The second cycle pruned node 1, so its old area falls back to the root.
	assert.Contains(t, out, "hit (50, 120) -> node 2")
	assert.Contains(t, out, "hit (50, 20) -> node 0")

	_, err = run(t, "inspect", writeFixture(t), "--hit", "nope")
	assert.ErrorContains(t, err, "invalid point")

	_, err = run(t, "inspect", writeFixture(t), "--format", "svg")
	assert.ErrorContains(t, err, "unknown format")
}

func TestInspectCmd_Mermaid(t *testing.T) {
	out, err := run(t, "inspect", writeFixture(t), "--format", "mermaid", "--hit", "50,120")
	require.NoError(t, err)
	assert.Contains(t, out, "graph TD\n")
	assert.Contains(t, out, "n0 --> n2")
	assert.Contains(t, out, "class n2 hit;")
	assert.NotContains(t, out, "n1")
}

func TestReplayCmd_Errors(t *testing.T) {
	_, err := run(t, "replay", filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = run(t, "replay", writeFixture(t), "--transport", "pigeon")
	assert.ErrorIs(t, err, config.ErrInvalid)

	_, err = run(t, "replay")
	assert.Error(t, err)
}

func TestOpenTransport_Redis(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := config.Default()
	cfg.Tree = "checkout"
	cfg.Transport.Kind = config.TransportRedis
	cfg.Transport.Codec = "protobuf"
	cfg.Redis.Addr = mr.Addr()

	handle, err := openTransport(context.Background(), cfg, logging.NewNop())
	require.NoError(t, err)
	defer handle.Close()
	require.NotNil(t, handle.Redis)
	assert.Equal(t, "a11ybridge:tree:checkout", handle.Redis.Stream())

	bridge := newBridge(cfg, handle, logging.NewNop())
	require.NoError(t, bridge.Announce(context.Background(), "hello"))

	msgs, err := handle.Redis.ReadAll(context.Background())
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "hello", msgs[0].Event.Announce.Message)

	locker := redisAdapter.NewLocker(handle.Redis.Client(), cfg.Redis.Prefix)
	unlock, err := locker.Lock(context.Background(), cfg.Tree, cfg.Redis.LockTTL)
	require.NoError(t, err)
	assert.True(t, mr.Exists("a11ybridge:lock:checkout"))
	require.NoError(t, unlock(context.Background()))
}

func TestOpenTransport_Unreachable(t *testing.T) {
	cfg := config.Default()
	cfg.Transport.Kind = config.TransportRedis
	cfg.Redis.Addr = "127.0.0.1:1"
	_, err := openTransport(context.Background(), cfg, logging.NewNop())
	assert.ErrorContains(t, err, "unreachable")

	cfg.Transport.Kind = config.TransportWebSocket
	cfg.WebSocket.URL = "ws://127.0.0.1:1/a11y"
	_, err = openTransport(context.Background(), cfg, logging.NewNop())
	assert.Error(t, err)
}

func TestOpenTransport_MemoryHistory(t *testing.T) {
	cfg := config.Default()
	cfg.Memory.History = 4

	handle, err := openTransport(context.Background(), cfg, logging.NewNop())
	require.NoError(t, err)
	defer handle.Close()
	require.NotNil(t, handle.Memory)

	bridge := newBridge(cfg, handle, logging.NewNop())
	for range 10 {
		require.NoError(t, bridge.Announce(context.Background(), "tick"))
	}
	assert.Len(t, handle.Memory.Messages(), 4)
	assert.Equal(t, 6, handle.Memory.Evicted())
}

func TestOpenTransport_WebSocket(t *testing.T) {
	closed := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := (&websocket.Upgrader{}).Upgrade(w, r, nil)
		if err != nil {
			return
		}
		<-closed
		_ = ws.Close()
	}))
	defer srv.Close()

	cfg := config.Default()
	cfg.Transport.Kind = config.TransportWebSocket
	cfg.WebSocket.URL = "ws" + strings.TrimPrefix(srv.URL, "http")

	handle, err := openTransport(context.Background(), cfg, logging.NewNop())
	require.NoError(t, err)
	defer handle.Close()
	require.NotNil(t, handle.WebSocket)

	close(closed)
	select {
	case <-handle.WebSocket.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("dropped connection not reported")
	}
}
