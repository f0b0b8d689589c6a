package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/aretw0/a11ybridge"
	"github.com/aretw0/a11ybridge/internal/dto"
	"github.com/aretw0/a11ybridge/pkg/domain"
)

// TreeURI is the resource exposing the mirrored tree.
const TreeURI = "a11y://tree"

// Bridge defines the interface required by the MCP server.
type Bridge interface {
	Update(ctx context.Context, updates domain.SemanticsNodeUpdates, pixelRatio float32) (a11ybridge.CycleReport, error)
	DispatchRemoteAction(ctx context.Context, nodeID uint32, action domain.RemoteAction) bool
	HitTest(x, y float32) uint32
	OnSemanticsModeChanged(enabled bool)
	Announce(ctx context.Context, message string) error
	Snapshot() []a11ybridge.Node
	PixelRatio() float32
}

// HitTestResponse is the structured result of hit_test.
type HitTestResponse struct {
	NodeID uint32 `json:"node_id" jsonschema_description:"The deepest focusable node under the point, or 0 for the root"`
}

// ActionResponse is the structured result of dispatch_action.
type ActionResponse struct {
	Accepted bool `json:"accepted" jsonschema_description:"Whether the action was forwarded to the framework"`
}

// UpdateResponse is the structured result of apply_update.
type UpdateResponse struct {
	Report a11ybridge.CycleReport `json:"report"`
	Errors []string               `json:"errors,omitempty"`
}

type hitTestArgs struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type actionArgs struct {
	NodeID float64 `json:"node_id"`
	Action string  `json:"action"`
}

// Server exposes a Bridge as an MCP server so agents can inspect and drive
// the accessibility tree.
type Server struct {
	bridge    Bridge
	mcpServer *server.MCPServer
}

// NewServer creates a new MCP Server instance.
func NewServer(bridge Bridge) *Server {
	s := &Server{
		bridge:    bridge,
		mcpServer: server.NewMCPServer("a11ybridge-mcp", a11ybridge.Version),
	}
	s.registerTools()
	s.registerResources()
	return s
}

// MCPServer returns the underlying server.
func (s *Server) MCPServer() *server.MCPServer { return s.mcpServer }

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE serves MCP over SSE on addr until ctx ends.
func (s *Server) ServeSSE(ctx context.Context, addr, baseURL string) error {
	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", sseServer.SSEHandler())
	mux.Handle("/message", sseServer.MessageHandler())
	httpServer := &http.Server{Addr: addr, Handler: mux}

	serverErrors := make(chan error, 1)
	go func() {
		slog.Info("MCP Server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool("hit_test",
		mcp.WithDescription("Find the accessibility node under a screen point."),
		mcp.WithNumber("x", mcp.Required(), mcp.Description("Horizontal coordinate in logical pixels")),
		mcp.WithNumber("y", mcp.Required(), mcp.Description("Vertical coordinate in logical pixels")),
		mcp.WithOutputSchema[HitTestResponse](),
	), mcp.NewStructuredToolHandler(s.handleHitTest))

	s.mcpServer.AddTool(mcp.NewTool("dispatch_action",
		mcp.WithDescription("Request an accessibility action on a node, as an assistive technology would."),
		mcp.WithNumber("node_id", mcp.Required(), mcp.Description("Target node ID")),
		mcp.WithString("action", mcp.Required(),
			mcp.Description("Remote action name"),
			mcp.Enum("default", "secondary", "set_focus", "set_value", "show_on_screen", "decrement", "increment"),
		),
		mcp.WithOutputSchema[ActionResponse](),
	), mcp.NewStructuredToolHandler(s.handleDispatchAction))

	s.mcpServer.AddTool(mcp.NewTool("apply_update",
		mcp.WithDescription("Apply one batch of semantics node updates and sync the remote tree."),
		mcp.WithString("cycle", mcp.Required(), mcp.Description(`JSON object {"pixel_ratio": n, "nodes": [...]}`)),
	), s.handleApplyUpdate)

	s.mcpServer.AddTool(mcp.NewTool("set_semantics",
		mcp.WithDescription("Enable or disable semantics, as the remote service would."),
		mcp.WithBoolean("enabled", mcp.Required(), mcp.Description("New semantics mode")),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		enabled, err := request.RequireBool("enabled")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		s.bridge.OnSemanticsModeChanged(enabled)
		return mcp.NewToolResultText(fmt.Sprintf("semantics enabled: %t", enabled)), nil
	})

	s.mcpServer.AddTool(mcp.NewTool("announce",
		mcp.WithDescription("Ask the remote service to speak a message."),
		mcp.WithString("message", mcp.Required(), mcp.Description("Text to announce")),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		message, err := request.RequireString("message")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if err := s.bridge.Announce(ctx, message); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("announce failed: %v", err)), nil
		}
		return mcp.NewToolResultText("announced"), nil
	})

	s.mcpServer.AddTool(mcp.NewTool("get_tree",
		mcp.WithDescription("Get the mirrored accessibility tree with screen rects."),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return jsonResult(s.tree()), nil
	})
}

func (s *Server) handleHitTest(ctx context.Context, request mcp.CallToolRequest, args hitTestArgs) (HitTestResponse, error) {
	return HitTestResponse{NodeID: s.bridge.HitTest(float32(args.X), float32(args.Y))}, nil
}

func (s *Server) handleDispatchAction(ctx context.Context, request mcp.CallToolRequest, args actionArgs) (ActionResponse, error) {
	action, err := domain.ParseRemoteAction(args.Action)
	if err != nil {
		return ActionResponse{}, err
	}
	id, err := nodeID(args.NodeID)
	if err != nil {
		return ActionResponse{}, err
	}
	return ActionResponse{Accepted: s.bridge.DispatchRemoteAction(ctx, id, action)}, nil
}

// nodeID converts a JSON number to a remote node ID, rejecting values that
// do not name exactly one node.
func nodeID(v float64) (uint32, error) {
	switch {
	case v < 0:
		return 0, fmt.Errorf("%w: %v", domain.ErrNegativeID, v)
	case v != math.Trunc(v) || v > math.MaxUint32:
		return 0, fmt.Errorf("invalid node id %v: want an integer in [0, %d]", v, uint32(math.MaxUint32))
	}
	return uint32(v), nil
}

func (s *Server) handleApplyUpdate(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := request.RequireString("cycle")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	var cycle dto.Cycle
	if err := json.Unmarshal([]byte(raw), &cycle); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid cycle: %v", err)), nil
	}
	updates, ratio, err := cycle.Updates()
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid cycle: %v", err)), nil
	}

	report, err := s.bridge.Update(ctx, updates, ratio)
	resp := UpdateResponse{Report: report}
	if err != nil {
		slog.Warn("MCP apply_update: cycle completed with errors", "cycle_id", report.CycleID, "error", err)
		resp.Errors = []string{err.Error()}
	}
	return jsonResult(resp), nil
}

// jsonResult encodes v as the tool's text result. Encoding failures become a
// tool error rather than an empty result.
func jsonResult(v any) *mcp.CallToolResult {
	jsonBytes, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to encode result: %v", err))
	}
	return mcp.NewToolResultText(string(jsonBytes))
}

type treeResponse struct {
	PixelRatio float32           `json:"pixel_ratio"`
	Nodes      []a11ybridge.Node `json:"nodes"`
}

func (s *Server) tree() treeResponse {
	return treeResponse{PixelRatio: s.bridge.PixelRatio(), Nodes: s.bridge.Snapshot()}
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource(TreeURI, "Mirrored Accessibility Tree",
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		jsonBytes, err := json.Marshal(s.tree())
		if err != nil {
			return nil, fmt.Errorf("failed to encode tree: %w", err)
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      TreeURI,
				MIMEType: "application/json",
				Text:     string(jsonBytes),
			},
		}, nil
	})
}
