package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/a11ybridge"
	"github.com/aretw0/a11ybridge/pkg/adapters/memory"
	"github.com/aretw0/a11ybridge/pkg/domain"
	"github.com/aretw0/a11ybridge/pkg/ports"
)

type rpcResponse struct {
	Result struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
		Contents []struct {
			URI  string `json:"uri"`
			Text string `json:"text"`
		} `json:"contents"`
		StructuredContent json.RawMessage `json:"structuredContent"`
		IsError           bool            `json:"isError"`
	} `json:"result"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

type harness struct {
	t         *testing.T
	server    *Server
	transport *memory.Transport
	bridge    *a11ybridge.Bridge
	dispatch  []int32
	id        int
}

func newHarness(t *testing.T) *harness {
	h := &harness{t: t, transport: memory.New()}
	h.bridge = a11ybridge.New(h.transport, a11ybridge.WithDelegate(ports.DelegateFuncs{
		Dispatch: func(id int32, _ domain.SemanticsAction) { h.dispatch = append(h.dispatch, id) },
	}))
	h.server = NewServer(h.bridge)
	h.call("initialize", map[string]any{
		"protocolVersion": "2024-11-05",
		"clientInfo":      map[string]any{"name": "test", "version": "0"},
		"capabilities":    map[string]any{},
	})
	return h
}

func (h *harness) call(method string, params any) rpcResponse {
	h.t.Helper()
	h.id++
	msg, err := json.Marshal(map[string]any{
		"jsonrpc": "2.0",
		"id":      h.id,
		"method":  method,
		"params":  params,
	})
	require.NoError(h.t, err)

	out := h.server.MCPServer().HandleMessage(context.Background(), msg)
	raw, err := json.Marshal(out)
	require.NoError(h.t, err)

	var resp rpcResponse
	require.NoError(h.t, json.Unmarshal(raw, &resp), string(raw))
	require.Nil(h.t, resp.Error, string(raw))
	return resp
}

func (h *harness) tool(name string, args map[string]any) rpcResponse {
	h.t.Helper()
	return h.call("tools/call", map[string]any{"name": name, "arguments": args})
}

const cycle = `{"pixel_ratio": 1, "nodes": [
	{"id": 0, "children": [1], "rect": {"right": 100, "bottom": 100}},
	{"id": 1, "label": "Next", "flags": ["is_button"], "actions": ["tap"], "rect": {"left": 10, "top": 10, "right": 40, "bottom": 40}}
]}`

func TestServer_Tools(t *testing.T) {
	h := newHarness(t)

	resp := h.tool("apply_update", map[string]any{"cycle": cycle})
	require.False(t, resp.Result.IsError, resp.Result.Content)
	assert.Contains(t, resp.Result.Content[0].Text, `"sent":[`)
	assert.Contains(t, h.transport.Tree(), uint32(1))

	resp = h.tool("hit_test", map[string]any{"x": 20, "y": 20})
	require.False(t, resp.Result.IsError)
	var hit HitTestResponse
	require.NoError(t, json.Unmarshal(resp.Result.StructuredContent, &hit))
	assert.Equal(t, uint32(1), hit.NodeID)

	resp = h.tool("dispatch_action", map[string]any{"node_id": 1, "action": "default"})
	require.False(t, resp.Result.IsError)
	var action ActionResponse
	require.NoError(t, json.Unmarshal(resp.Result.StructuredContent, &action))
	assert.True(t, action.Accepted)
	assert.Equal(t, []int32{1}, h.dispatch)

	resp = h.tool("get_tree", nil)
	assert.Contains(t, resp.Result.Content[0].Text, `"pixel_ratio":1`)

	resp = h.tool("announce", map[string]any{"message": "Page loaded"})
	require.False(t, resp.Result.IsError)
	msgs := h.transport.Messages()
	assert.Equal(t, "Page loaded", msgs[len(msgs)-1].Event.Announce.Message)

	resp = h.tool("set_semantics", map[string]any{"enabled": false})
	require.False(t, resp.Result.IsError)
	assert.Empty(t, h.bridge.Snapshot())
}

func TestServer_ToolErrors(t *testing.T) {
	h := newHarness(t)

	tests := []struct {
		name string
		tool string
		args map[string]any
	}{
		{"Malformed cycle", "apply_update", map[string]any{"cycle": "{"}},
		{"Unknown flag", "apply_update", map[string]any{"cycle": `{"nodes":[{"id":0,"flags":["nope"]}]}`}},
		{"Unknown action", "dispatch_action", map[string]any{"node_id": 1, "action": "fly"}},
		{"Negative node", "dispatch_action", map[string]any{"node_id": -1, "action": "default"}},
		{"Fractional node", "dispatch_action", map[string]any{"node_id": 1.5, "action": "default"}},
		{"Node beyond uint32", "dispatch_action", map[string]any{"node_id": float64(math.MaxUint32) + 2, "action": "default"}},
		{"Missing message", "announce", map[string]any{}},
		{"Missing flag", "set_semantics", map[string]any{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := h.tool(tt.tool, tt.args)
			assert.True(t, resp.Result.IsError, fmt.Sprint(resp.Result.Content))
		})
	}

	assert.Empty(t, h.dispatch, "rejected requests never reach the framework")

	h.transport.FailWith(assert.AnError)
	resp := h.tool("announce", map[string]any{"message": "hi"})
	assert.True(t, resp.Result.IsError)
}

func TestNodeID(t *testing.T) {
	tests := []struct {
		in      float64
		want    uint32
		wantErr bool
	}{
		{0, 0, false},
		{42, 42, false},
		{math.MaxUint32, math.MaxUint32, false},
		{-1, 0, true},
		{0.5, 0, true},
		{math.MaxUint32 + 1, 0, true},
		{math.Inf(1), 0, true},
		{math.NaN(), 0, true},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.in), func(t *testing.T) {
			got, err := nodeID(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestJSONResult_EncodeFailure(t *testing.T) {
	res := jsonResult(map[string]float64{"ratio": math.NaN()})
	assert.True(t, res.IsError)

	res = jsonResult(map[string]int{"sent": 1})
	assert.False(t, res.IsError)
}

func TestServer_TreeResource(t *testing.T) {
	h := newHarness(t)
	h.tool("apply_update", map[string]any{"cycle": cycle})

	resp := h.call("resources/read", map[string]any{"uri": TreeURI})
	require.Len(t, resp.Result.Contents, 1)
	assert.Equal(t, TreeURI, resp.Result.Contents[0].URI)

	var tree struct {
		Nodes []a11ybridge.Node `json:"nodes"`
	}
	require.NoError(t, json.Unmarshal([]byte(resp.Result.Contents[0].Text), &tree))
	assert.Len(t, tree.Nodes, 2)
}
