package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventCycleCommitted EventType = "cycle_committed"
	EventNodeDropped    EventType = "node_dropped"
	EventActionRequest  EventType = "action_request"
	EventTransportError EventType = "transport_error"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	CycleID   string    `json:"cycle_id,omitempty"`
}

// CycleEvent summarizes one completed update cycle.
type CycleEvent struct {
	EventBase
	NodesSent   int           `json:"nodes_sent"`
	Messages    int           `json:"messages"`
	Deleted     int           `json:"deleted"`
	Dropped     int           `json:"dropped"`
	RootUpdated bool          `json:"root_updated"`
	Duration    time.Duration `json:"duration"`
}

// NodeEvent reports a node that could not be sent.
type NodeEvent struct {
	EventBase
	NodeID int32 `json:"node_id"`
	Size   int   `json:"size"`
	Err    error `json:"-"`
}

// ActionEvent reports an inbound remote action request.
type ActionEvent struct {
	EventBase
	NodeID   uint32       `json:"node_id"`
	Action   RemoteAction `json:"action"`
	Accepted bool         `json:"accepted"`
}

// TransportEvent reports a failed outbound send.
type TransportEvent struct {
	EventBase
	Operation string `json:"operation"`
	Err       error  `json:"-"`
}

// SyncHooks defines optional callbacks for engine observability.
type SyncHooks struct {
	OnCycle          func(context.Context, *CycleEvent)
	OnNodeDropped    func(context.Context, *NodeEvent)
	OnAction         func(context.Context, *ActionEvent)
	OnTransportError func(context.Context, *TransportEvent)
}

// Merge returns hooks that call h first and then other.
func (h SyncHooks) Merge(other SyncHooks) SyncHooks {
	return SyncHooks{
		OnCycle:          chain(h.OnCycle, other.OnCycle),
		OnNodeDropped:    chain(h.OnNodeDropped, other.OnNodeDropped),
		OnAction:         chain(h.OnAction, other.OnAction),
		OnTransportError: chain(h.OnTransportError, other.OnTransportError),
	}
}

func chain[E any](a, b func(context.Context, E)) func(context.Context, E) {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	}
	return func(ctx context.Context, e E) {
		a(ctx, e)
		b(ctx, e)
	}
}
