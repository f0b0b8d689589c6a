// Package memory provides an in-process Transport that records every message
// it is given. It backs replays, inspection and tests.
package memory

import (
	"context"
	"maps"
	"slices"
	"sync"

	"github.com/aretw0/a11ybridge/pkg/codec"
	"github.com/aretw0/a11ybridge/pkg/domain"
)

// Transport implements ports.Transport in memory.
// Safe for concurrent use.
type Transport struct {
	mu       sync.RWMutex
	messages []codec.Message
	history  int
	evicted  int
	commits  int
	failWith error

	committed map[uint32]domain.WireNode
	pending   map[uint32]domain.WireNode
	deleted   []uint32
}

// Option configures a Transport.
type Option func(*Transport)

// WithHistory keeps only the n most recent messages. The committed tree is
// maintained independently of the log. n <= 0 keeps every message.
func WithHistory(n int) Option {
	return func(t *Transport) {
		t.history = n
	}
}

// New creates an empty recording transport.
func New(opts ...Option) *Transport {
	t := &Transport{
		committed: make(map[uint32]domain.WireNode),
		pending:   make(map[uint32]domain.WireNode),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// FailWith makes every subsequent send return err. A nil err restores normal
// operation.
func (t *Transport) FailWith(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.failWith = err
}

func (t *Transport) record(m codec.Message) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.failWith != nil {
		return t.failWith
	}
	t.apply(m)
	t.messages = append(t.messages, m)
	// Compact once the log holds twice the history so trimming stays amortized.
	if t.history > 0 && len(t.messages) >= 2*t.history {
		drop := len(t.messages) - t.history
		t.evicted += drop
		t.messages = slices.Clone(t.messages[drop:])
	}
	return nil
}

// apply folds m into the remote view. Updates and deletions take effect at
// the next commit, deletions last.
func (t *Transport) apply(m codec.Message) {
	switch m.Kind {
	case codec.KindUpdate:
		for _, n := range m.Nodes {
			t.pending[n.NodeID] = n
		}
	case codec.KindDelete:
		t.deleted = append(t.deleted, m.DeletedIDs...)
	case codec.KindCommit:
		maps.Copy(t.committed, t.pending)
		for _, id := range t.deleted {
			delete(t.committed, id)
		}
		clear(t.pending)
		t.deleted = nil
	}
}

// UpdateSemanticNodes records an update message. The batch is copied.
func (t *Transport) UpdateSemanticNodes(_ context.Context, nodes []domain.WireNode) error {
	return t.record(codec.UpdateMessage(slices.Clone(nodes)))
}

// DeleteSemanticNodes records a deletion message. The IDs are copied.
func (t *Transport) DeleteSemanticNodes(_ context.Context, ids []uint32) error {
	return t.record(codec.DeleteMessage(slices.Clone(ids)))
}

// CommitUpdates records a commit and invokes done synchronously.
func (t *Transport) CommitUpdates(_ context.Context, done func()) error {
	if err := t.record(codec.CommitMessage()); err != nil {
		return err
	}
	t.mu.Lock()
	t.commits++
	t.mu.Unlock()
	if done != nil {
		done()
	}
	return nil
}

// SendSemanticEvent records an event message.
func (t *Transport) SendSemanticEvent(_ context.Context, event domain.SemanticEvent) error {
	return t.record(codec.EventMessage(event))
}

// Messages returns a copy of the retained messages in order.
func (t *Transport) Messages() []codec.Message {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.history > 0 && len(t.messages) > t.history {
		return slices.Clone(t.messages[len(t.messages)-t.history:])
	}
	return slices.Clone(t.messages)
}

// Evicted returns how many messages fell out of the history.
func (t *Transport) Evicted() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.history > 0 && len(t.messages) > t.history {
		return t.evicted + len(t.messages) - t.history
	}
	return t.evicted
}

// Commits returns the number of commits recorded.
func (t *Transport) Commits() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.commits
}

// Reset discards every recorded message and the remote view.
func (t *Transport) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.messages = nil
	t.evicted = 0
	t.commits = 0
	clear(t.committed)
	clear(t.pending)
	t.deleted = nil
}

// Tree returns the remote view as of the last commit, keyed by node ID.
func (t *Transport) Tree() map[uint32]domain.WireNode {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return maps.Clone(t.committed)
}
