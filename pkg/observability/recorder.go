package observability

import (
	"context"
	"sync"

	"github.com/aretw0/a11ybridge/pkg/domain"
)

// DefaultHistory is the number of cycles a Recorder keeps when none is given.
const DefaultHistory = 64

// Recorder keeps the most recent cycle events in memory for inspection.
// It is safe for concurrent use.
type Recorder struct {
	mu     sync.RWMutex
	cycles []domain.CycleEvent
	next   int
	full   bool

	dropped   int
	actions   int
	transport int
}

// NewRecorder creates a Recorder holding up to size cycles.
func NewRecorder(size int) *Recorder {
	if size <= 0 {
		size = DefaultHistory
	}
	return &Recorder{cycles: make([]domain.CycleEvent, size)}
}

// Hooks returns sync hooks that record into r.
func (r *Recorder) Hooks() domain.SyncHooks {
	return domain.SyncHooks{
		OnCycle: func(_ context.Context, e *domain.CycleEvent) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.cycles[r.next] = *e
			r.next = (r.next + 1) % len(r.cycles)
			if r.next == 0 {
				r.full = true
			}
		},
		OnNodeDropped: func(context.Context, *domain.NodeEvent) {
			r.mu.Lock()
			r.dropped++
			r.mu.Unlock()
		},
		OnAction: func(context.Context, *domain.ActionEvent) {
			r.mu.Lock()
			r.actions++
			r.mu.Unlock()
		},
		OnTransportError: func(context.Context, *domain.TransportEvent) {
			r.mu.Lock()
			r.transport++
			r.mu.Unlock()
		},
	}
}

// Cycles returns the recorded cycles, oldest first.
func (r *Recorder) Cycles() []domain.CycleEvent {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if !r.full {
		return append([]domain.CycleEvent(nil), r.cycles[:r.next]...)
	}
	out := make([]domain.CycleEvent, 0, len(r.cycles))
	out = append(out, r.cycles[r.next:]...)
	return append(out, r.cycles[:r.next]...)
}

// Totals are counters accumulated since the Recorder was created.
type Totals struct {
	Dropped         int `json:"dropped"`
	Actions         int `json:"actions"`
	TransportErrors int `json:"transport_errors"`
}

// Totals returns the accumulated counters.
func (r *Recorder) Totals() Totals {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return Totals{Dropped: r.dropped, Actions: r.actions, TransportErrors: r.transport}
}
