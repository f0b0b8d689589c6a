package http

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/a11ybridge"
	"github.com/aretw0/a11ybridge/pkg/adapters/memory"
	"github.com/aretw0/a11ybridge/pkg/domain"
	"github.com/aretw0/a11ybridge/pkg/observability"
	"github.com/aretw0/a11ybridge/pkg/ports"
)

const cycleBody = `{
	"pixel_ratio": 1,
	"nodes": [
		{"id": 0, "children": [1], "rect": {"right": 100, "bottom": 100}},
		{"id": 1, "label": "Play", "flags": ["is_button"], "actions": ["tap"], "rect": {"left": 10, "top": 10, "right": 50, "bottom": 50}}
	]
}`

type fixture struct {
	transport *memory.Transport
	bridge    *a11ybridge.Bridge
	recorder  *observability.Recorder
	streams   *StreamManager
	handler   http.Handler
	taps      []int32
	modes     []bool
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		transport: memory.New(),
		recorder:  observability.NewRecorder(8),
		streams:   NewStreamManager(),
	}
	reg := prometheus.NewRegistry()
	metrics, err := observability.NewMetrics(reg, "test")
	require.NoError(t, err)

	f.bridge = a11ybridge.New(f.transport,
		a11ybridge.WithHooks(metrics.Hooks()),
		a11ybridge.WithHooks(f.recorder.Hooks()),
		a11ybridge.WithHooks(f.streams.Hooks()),
		a11ybridge.WithDelegate(ports.DelegateFuncs{
			Dispatch:   func(id int32, _ domain.SemanticsAction) { f.taps = append(f.taps, id) },
			SetEnabled: func(enabled bool) { f.modes = append(f.modes, enabled) },
		}),
	)
	f.handler = NewHandler(f.bridge,
		WithRecorder(f.recorder),
		WithStreams(f.streams),
		WithGatherer(reg),
		WithName("test"),
	)
	return f
}

func (f *fixture) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	w := httptest.NewRecorder()
	f.handler.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(w.Body).Decode(&v))
	return v
}

func TestServer_UpdateHitTestAndAction(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodPost, "/v1/updates", cycleBody)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := decode[UpdateResponse](t, w)
	assert.ElementsMatch(t, []uint32{0, 1}, resp.Report.Sent)
	assert.Empty(t, resp.Errors)
	assert.Contains(t, f.transport.Tree(), uint32(1))

	w = f.do(t, http.MethodGet, "/v1/hit-test?x=20&y=20", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, map[string]uint32{"node_id": 1}, decode[map[string]uint32](t, w))

	w = f.do(t, http.MethodPost, "/v1/actions", `{"node_id": 1, "action": "default"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, map[string]bool{"accepted": true}, decode[map[string]bool](t, w))
	assert.Equal(t, []int32{1}, f.taps)

	w = f.do(t, http.MethodPost, "/v1/actions", `{"node_id": 1, "action": "set_value"}`)
	assert.Equal(t, map[string]bool{"accepted": false}, decode[map[string]bool](t, w))

	w = f.do(t, http.MethodGet, "/v1/tree", "")
	tree := decode[TreeResponse](t, w)
	assert.Equal(t, float32(1), tree.PixelRatio)
	assert.Len(t, tree.Nodes, 2)

	w = f.do(t, http.MethodGet, "/v1/cycles", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"nodes_sent":2`)

	w = f.do(t, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `a11ybridge_cycles_total{tree="test"} 1`)
}

func TestServer_UpdateReportsPartialFailures(t *testing.T) {
	f := newFixture(t)
	f.transport.FailWith(assert.AnError)

	w := f.do(t, http.MethodPost, "/v1/updates", cycleBody)
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[UpdateResponse](t, w)
	assert.NotEmpty(t, resp.Errors)
	assert.Empty(t, resp.Report.Sent)
}

func TestServer_BadRequests(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
	}{
		{"Malformed update body", http.MethodPost, "/v1/updates", "{"},
		{"Unknown flag", http.MethodPost, "/v1/updates", `{"nodes":[{"id":0,"flags":["is_loud"]}]}`},
		{"Unknown action", http.MethodPost, "/v1/actions", `{"node_id":1,"action":"explode"}`},
		{"Missing coordinates", http.MethodGet, "/v1/hit-test?x=1", ""},
		{"Semantics without flag", http.MethodPut, "/v1/semantics", `{}`},
		{"Empty announcement", http.MethodPost, "/v1/announce", `{"message":""}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := f.do(t, tt.method, tt.path, tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestServer_Semantics(t *testing.T) {
	f := newFixture(t)
	f.do(t, http.MethodPost, "/v1/updates", cycleBody)

	w := f.do(t, http.MethodPut, "/v1/semantics", `{"enabled": true}`)
	require.Equal(t, http.StatusOK, w.Code)
	w = f.do(t, http.MethodGet, "/v1/semantics", "")
	assert.Equal(t, map[string]bool{"enabled": true}, decode[map[string]bool](t, w))

	f.do(t, http.MethodPut, "/v1/semantics", `{"enabled": false}`)
	assert.Equal(t, []bool{true, false}, f.modes)
	assert.Empty(t, f.bridge.Snapshot())
}

func TestServer_Announce(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodPost, "/v1/announce", `{"message": "Saved"}`)
	assert.Equal(t, http.StatusNoContent, w.Code)
	require.Len(t, f.transport.Messages(), 1)

	f.transport.FailWith(assert.AnError)
	w = f.do(t, http.MethodPost, "/v1/announce", `{"message": "Saved"}`)
	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func TestServer_HealthInfoAndCORS(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodGet, "/health", "")
	assert.Equal(t, map[string]string{"status": "ok"}, decode[map[string]string](t, w))

	w = f.do(t, http.MethodGet, "/info", "")
	info := decode[map[string]string](t, w)
	assert.Equal(t, a11ybridge.Version, info["version"])
	assert.Equal(t, "test", info["tree"])

	w = f.do(t, http.MethodOptions, "/v1/updates", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestServer_CyclesWithoutRecorder(t *testing.T) {
	handler := NewHandler(a11ybridge.New(memory.New()))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/cycles", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestServer_SubscribeEvents(t *testing.T) {
	f := newFixture(t)
	srv := httptest.NewServer(f.handler)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/v1/events", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	line, err := reader.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "event: ping\n", line)

	// Subscription is registered before the ping is written.
	_, err = f.bridge.Update(ctx, mustUpdates(t), 1)
	require.NoError(t, err)

	for {
		line, err = reader.ReadString('\n')
		require.NoError(t, err)
		if strings.HasPrefix(line, "event: cycle_committed") {
			break
		}
	}
	data, err := reader.ReadString('\n')
	require.NoError(t, err)
	assert.Contains(t, data, `"nodes_sent":2`)
}

func TestStreamManager_ErrorEvents(t *testing.T) {
	sm := NewStreamManager()
	ch, cancel := sm.Subscribe()
	defer cancel()

	sm.Hooks().OnTransportError(context.Background(), &domain.TransportEvent{
		EventBase: domain.EventBase{Type: domain.EventTransportError},
		Operation: "commit",
		Err:       assert.AnError,
	})

	msg := <-ch
	assert.Equal(t, "transport_error", msg.Event)
	assert.Contains(t, msg.Data, `"operation":"commit"`)
	assert.Contains(t, msg.Data, assert.AnError.Error())

	cancel()
	cancel()
	_, ok := <-ch
	assert.False(t, ok)
}

func mustUpdates(t *testing.T) domain.SemanticsNodeUpdates {
	t.Helper()
	return domain.SemanticsNodeUpdates{
		0: {ID: 0, ChildrenInHitTestOrder: []int32{1}, ChildrenInTraversalOrder: []int32{1}},
		1: {ID: 1, Label: "x"},
	}
}
