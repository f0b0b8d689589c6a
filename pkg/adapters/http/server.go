package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aretw0/a11ybridge"
	"github.com/aretw0/a11ybridge/internal/dto"
	"github.com/aretw0/a11ybridge/pkg/domain"
	"github.com/aretw0/a11ybridge/pkg/observability"
)

// Bridge defines the operations the HTTP API exposes.
type Bridge interface {
	Update(ctx context.Context, updates domain.SemanticsNodeUpdates, pixelRatio float32) (a11ybridge.CycleReport, error)
	DispatchRemoteAction(ctx context.Context, nodeID uint32, action domain.RemoteAction) bool
	HitTest(x, y float32) uint32
	OnSemanticsModeChanged(enabled bool)
	SemanticsEnabled() bool
	Announce(ctx context.Context, message string) error
	Snapshot() []a11ybridge.Node
	PixelRatio() float32
}

var _ Bridge = (*a11ybridge.Bridge)(nil)

// Server serves the bridge over HTTP.
type Server struct {
	Bridge   Bridge
	Streams  *StreamManager
	Recorder *observability.Recorder
	Gatherer prometheus.Gatherer
	Name     string
}

// Option configures the Server built by NewHandler.
type Option func(*Server)

// WithStreams sets the stream manager feeding GET /v1/events. Its Hooks must
// be registered on the bridge for events to flow.
func WithStreams(sm *StreamManager) Option {
	return func(s *Server) {
		s.Streams = sm
	}
}

// WithRecorder exposes the recorder's history on GET /v1/cycles.
func WithRecorder(r *observability.Recorder) Option {
	return func(s *Server) {
		s.Recorder = r
	}
}

// WithGatherer serves g on GET /metrics.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(s *Server) {
		s.Gatherer = g
	}
}

// WithName sets the tree name reported by GET /info.
func WithName(name string) Option {
	return func(s *Server) {
		s.Name = name
	}
}

// NewHandler creates a new HTTP handler for the bridge.
func NewHandler(bridge Bridge, opts ...Option) http.Handler {
	s := &Server{Bridge: bridge}
	for _, opt := range opts {
		opt(s)
	}
	if s.Streams == nil {
		s.Streams = NewStreamManager()
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/health", s.GetHealth)
	r.Get("/info", s.GetInfo)
	if s.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/v1", func(r chi.Router) {
		r.Post("/updates", s.PostUpdates)
		r.Post("/actions", s.PostAction)
		r.Get("/hit-test", s.GetHitTest)
		r.Get("/semantics", s.GetSemantics)
		r.Put("/semantics", s.PutSemantics)
		r.Post("/announce", s.PostAnnounce)
		r.Get("/tree", s.GetTree)
		r.Get("/cycles", s.GetCycles)
		r.Get("/events", s.SubscribeEvents)
	})

	return enableCORS(r)
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Custom-Header")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// UpdateResponse is the body of POST /v1/updates.
type UpdateResponse struct {
	Report a11ybridge.CycleReport `json:"report"`
	Errors []string               `json:"errors,omitempty"`
}

// PostUpdates handles POST /v1/updates. Per-node and transport failures do
// not fail the request; they are listed in the response.
func (s *Server) PostUpdates(w http.ResponseWriter, r *http.Request) {
	var body dto.Cycle
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		slog.Warn("PostUpdates: Invalid request body", "error", err)
		return
	}
	updates, ratio, err := body.Updates()
	if err != nil {
		http.Error(w, fmt.Sprintf("Invalid nodes: %v", err), http.StatusBadRequest)
		return
	}

	report, err := s.Bridge.Update(r.Context(), updates, ratio)
	resp := UpdateResponse{Report: report}
	if err != nil {
		slog.Warn("PostUpdates: cycle completed with errors", "cycle_id", report.CycleID, "error", err)
		resp.Errors = splitJoined(err)
	}
	writeJSON(w, http.StatusOK, resp)
}

// ActionRequest is the body of POST /v1/actions.
type ActionRequest struct {
	NodeID uint32 `json:"node_id"`
	Action string `json:"action"`
}

// PostAction handles POST /v1/actions.
func (s *Server) PostAction(w http.ResponseWriter, r *http.Request) {
	var body ActionRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		slog.Warn("PostAction: Invalid request body", "error", err)
		return
	}
	action, err := domain.ParseRemoteAction(body.Action)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	accepted := s.Bridge.DispatchRemoteAction(r.Context(), body.NodeID, action)
	writeJSON(w, http.StatusOK, map[string]bool{"accepted": accepted})
}

// GetHitTest handles GET /v1/hit-test?x=..&y=..
func (s *Server) GetHitTest(w http.ResponseWriter, r *http.Request) {
	x, errX := strconv.ParseFloat(r.URL.Query().Get("x"), 32)
	y, errY := strconv.ParseFloat(r.URL.Query().Get("y"), 32)
	if errX != nil || errY != nil {
		http.Error(w, "x and y must be numbers", http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, map[string]uint32{"node_id": s.Bridge.HitTest(float32(x), float32(y))})
}

type semanticsBody struct {
	Enabled *bool `json:"enabled"`
}

// GetSemantics handles GET /v1/semantics.
func (s *Server) GetSemantics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"enabled": s.Bridge.SemanticsEnabled()})
}

// PutSemantics handles PUT /v1/semantics, the remote semantics mode toggle.
func (s *Server) PutSemantics(w http.ResponseWriter, r *http.Request) {
	var body semanticsBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Enabled == nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	s.Bridge.OnSemanticsModeChanged(*body.Enabled)
	writeJSON(w, http.StatusOK, map[string]bool{"enabled": *body.Enabled})
}

// PostAnnounce handles POST /v1/announce.
func (s *Server) PostAnnounce(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Message string `json:"message"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Message == "" {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := s.Bridge.Announce(r.Context(), body.Message); err != nil {
		http.Error(w, fmt.Sprintf("Announce error: %v", err), http.StatusBadGateway)
		slog.Error("Announce failed", "error", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// TreeResponse is the body of GET /v1/tree.
type TreeResponse struct {
	PixelRatio float32           `json:"pixel_ratio"`
	Nodes      []a11ybridge.Node `json:"nodes"`
}

// GetTree handles GET /v1/tree.
func (s *Server) GetTree(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, TreeResponse{
		PixelRatio: s.Bridge.PixelRatio(),
		Nodes:      s.Bridge.Snapshot(),
	})
}

// GetCycles handles GET /v1/cycles.
func (s *Server) GetCycles(w http.ResponseWriter, r *http.Request) {
	if s.Recorder == nil {
		http.Error(w, "Cycle history not enabled", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"cycles": s.Recorder.Cycles(),
		"totals": s.Recorder.Totals(),
	})
}

// GetHealth handles the GET /health request.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetInfo handles the GET /info request.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"app":     "a11ybridge-http",
		"version": a11ybridge.Version,
		"tree":    s.Name,
	})
}

// SubscribeEvents handles the GET /v1/events request (SSE).
func (s *Server) SubscribeEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		slog.Error("SubscribeEvents: Streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch, cancel := s.Streams.Subscribe()
	defer cancel()

	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			slog.Debug("SSE client disconnected")
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", msg.Event, msg.Data)
			flusher.Flush()
		}
	}
}

// -- Helpers --

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("response encode failed", "error", err)
	}
}

func splitJoined(err error) []string {
	var joined interface{ Unwrap() []error }
	if errors.As(err, &joined) {
		out := make([]string, 0, len(joined.Unwrap()))
		for _, e := range joined.Unwrap() {
			out = append(out, e.Error())
		}
		return out
	}
	return []string{err.Error()}
}
