package a11ybridge

import (
	"context"
	"log/slog"
	"sync"

	"github.com/aretw0/a11ybridge/internal/classifier"
	"github.com/aretw0/a11ybridge/internal/logging"
	"github.com/aretw0/a11ybridge/internal/runtime"
	"github.com/aretw0/a11ybridge/internal/tree"
	"github.com/aretw0/a11ybridge/pkg/domain"
	"github.com/aretw0/a11ybridge/pkg/ports"
)

// CycleReport summarizes one update cycle.
type CycleReport = runtime.CycleReport

// Node is a mirrored semantics node as seen by hit-testing.
type Node = tree.Node

// Bridge is the high-level entry point of the library. It serializes every
// operation on one mirrored tree.
type Bridge struct {
	mu     sync.Mutex
	driver *runtime.Driver

	delegate       ports.Delegate
	hooks          domain.SyncHooks
	logger         *slog.Logger
	limits         classifier.Limits
	maxMessageSize int
	Name           string
}

// Option defines a functional option for configuring the Bridge.
type Option func(*Bridge)

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Bridge) {
		b.logger = logger
	}
}

// WithDelegate sets the framework delegate receiving actions and semantics
// mode changes.
func WithDelegate(delegate ports.Delegate) Option {
	return func(b *Bridge) {
		b.delegate = delegate
	}
}

// WithHooks registers observability hooks. Repeated calls are merged.
func WithHooks(hooks domain.SyncHooks) Option {
	return func(b *Bridge) {
		b.hooks = b.hooks.Merge(hooks)
	}
}

// WithMaxMessageSize sets the transport's maximum message size in bytes.
func WithMaxMessageSize(n int) Option {
	return func(b *Bridge) {
		b.maxMessageSize = n
	}
}

// WithStringLimits sets the maximum label and value sizes in bytes. Longer
// strings are truncated.
func WithStringLimits(maxLabel, maxValue int) Option {
	return func(b *Bridge) {
		b.limits = classifier.Limits{MaxLabelSize: maxLabel, MaxValueSize: maxValue}
	}
}

// WithName labels the tree in logs.
func WithName(name string) Option {
	return func(b *Bridge) {
		b.Name = name
	}
}

// New creates a Bridge sending to transport.
func New(transport ports.Transport, opts ...Option) *Bridge {
	b := &Bridge{
		delegate: ports.DelegateFuncs{},
		limits:   classifier.DefaultLimits(),
	}
	for _, opt := range opts {
		opt(b)
	}

	if b.logger == nil {
		b.logger = logging.NewNop()
	}
	if b.Name != "" {
		b.logger = b.logger.With("tree", b.Name)
	}

	b.driver = runtime.NewDriver(transport,
		runtime.WithLogger(b.logger),
		runtime.WithDelegate(b.delegate),
		runtime.WithHooks(b.hooks),
		runtime.WithLimits(b.limits),
		runtime.WithMaxMessageSize(b.maxMessageSize),
	)
	return b
}

// Update applies one batch of semantics node updates observed at pixelRatio
// and synchronizes the remote tree. The returned error joins per-node and
// transport failures; the cycle always runs to its commit.
func (b *Bridge) Update(ctx context.Context, updates domain.SemanticsNodeUpdates, pixelRatio float32) (CycleReport, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.driver.Update(ctx, updates, pixelRatio)
}

// DispatchRemoteAction forwards a remote action request to the delegate and
// reports whether it was accepted.
func (b *Bridge) DispatchRemoteAction(ctx context.Context, nodeID uint32, action domain.RemoteAction) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.driver.DispatchRemoteAction(ctx, nodeID, action)
}

// HitTest returns the node under (x, y), falling back to the root.
func (b *Bridge) HitTest(x, y float32) uint32 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.driver.HitTest(x, y)
}

// SetSemanticsEnabled records whether semantics are enabled. Disabling
// clears the mirrored tree.
func (b *Bridge) SetSemanticsEnabled(enabled bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.driver.SetSemanticsEnabled(enabled)
}

// SemanticsEnabled reports whether semantics are enabled.
func (b *Bridge) SemanticsEnabled() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.driver.SemanticsEnabled()
}

// OnSemanticsModeChanged handles a semantics toggle coming from the remote
// service: the local state is updated and the delegate is told to start or
// stop producing semantics.
func (b *Bridge) OnSemanticsModeChanged(enabled bool) {
	b.mu.Lock()
	b.driver.SetSemanticsEnabled(enabled)
	b.mu.Unlock()

	b.logger.Info("semantics mode changed", "enabled", enabled)
	b.delegate.SetSemanticsEnabled(enabled)
}

// Announce asks the remote service to speak message.
func (b *Bridge) Announce(ctx context.Context, message string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.driver.Announce(ctx, message)
}

// Snapshot returns copies of every mirrored node ordered by ID.
func (b *Bridge) Snapshot() []Node {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.driver.Snapshot()
}

// Node returns the mirrored node with the given ID.
func (b *Bridge) Node(id int32) (Node, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.driver.Node(id)
}

// PixelRatio returns the last pixel ratio applied to the root.
func (b *Bridge) PixelRatio() float32 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.driver.PixelRatio()
}
