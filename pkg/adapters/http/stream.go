package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/aretw0/a11ybridge/pkg/domain"
)

// StreamMessage is one server-sent event.
type StreamMessage struct {
	Event string
	Data  string
}

// StreamManager fans sync events out to SSE subscribers.
type StreamManager struct {
	mu          sync.RWMutex
	subscribers map[chan StreamMessage]struct{}
}

func NewStreamManager() *StreamManager {
	return &StreamManager{
		subscribers: make(map[chan StreamMessage]struct{}),
	}
}

// Subscribe registers a subscriber. The returned func unsubscribes and
// closes the channel.
func (sm *StreamManager) Subscribe() (<-chan StreamMessage, func()) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	ch := make(chan StreamMessage, 10)
	sm.subscribers[ch] = struct{}{}

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			sm.mu.Lock()
			defer sm.mu.Unlock()
			delete(sm.subscribers, ch)
			close(ch)
		})
	}
}

// Broadcast sends msg to every subscriber without blocking.
func (sm *StreamManager) Broadcast(msg StreamMessage) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	for ch := range sm.subscribers {
		select {
		case ch <- msg:
		default:
			// Drop message if channel is full (slow client)
			slog.Warn("SSE: Client buffer full, dropping message", "event", msg.Event)
		}
	}
}

// Hooks returns sync hooks that broadcast every event as JSON.
func (sm *StreamManager) Hooks() domain.SyncHooks {
	return domain.SyncHooks{
		OnCycle:          func(_ context.Context, e *domain.CycleEvent) { sm.publish(e.Type, e) },
		OnNodeDropped:    func(_ context.Context, e *domain.NodeEvent) { sm.publish(e.Type, errorEvent{e, e.Err}) },
		OnAction:         func(_ context.Context, e *domain.ActionEvent) { sm.publish(e.Type, e) },
		OnTransportError: func(_ context.Context, e *domain.TransportEvent) { sm.publish(e.Type, errorEvent{e, e.Err}) },
	}
}

// errorEvent adds the error text, which events do not serialize themselves.
type errorEvent struct {
	Event any
	Err   error
}

func (e errorEvent) MarshalJSON() ([]byte, error) {
	raw, err := json.Marshal(e.Event)
	if err != nil {
		return nil, err
	}
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, err
	}
	if e.Err != nil {
		fields["error"] = e.Err.Error()
	}
	return json.Marshal(fields)
}

func (sm *StreamManager) publish(t domain.EventType, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		slog.Error("SSE: event encode failed", "event", t, "error", err)
		return
	}
	sm.Broadcast(StreamMessage{Event: string(t), Data: string(data)})
}
