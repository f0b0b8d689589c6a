// Package runtime drives the synchronization of a mirrored semantics tree
// with the remote accessibility service and bridges remote actions back to
// the framework.
//
// A Driver is not safe for concurrent use. Callers serialize every method
// call, including hit-tests and action requests.
package runtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"math"
	"slices"
	"time"

	"github.com/aretw0/a11ybridge/internal/classifier"
	"github.com/aretw0/a11ybridge/internal/encoder"
	"github.com/aretw0/a11ybridge/internal/logging"
	"github.com/aretw0/a11ybridge/internal/tree"
	"github.com/aretw0/a11ybridge/pkg/domain"
	"github.com/aretw0/a11ybridge/pkg/ports"
	"github.com/google/uuid"
)

// Driver owns one mirrored tree and its outbound transport.
type Driver struct {
	transport      ports.Transport
	delegate       ports.Delegate
	store          *tree.Store
	classifier     classifier.Classifier
	maxMessageSize int
	logger         *slog.Logger
	hooks          domain.SyncHooks
	newCycleID     func() string

	phase   Phase
	enabled bool
	// root is the last raw root node received. Its effective transform is
	// recomputed whenever it changes or the pixel ratio does.
	root           *domain.SemanticsNode
	lastPixelRatio float32
}

// Option configures a Driver.
type Option func(*Driver)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Driver) {
		d.logger = logger
	}
}

// WithDelegate sets the framework delegate that receives actions.
func WithDelegate(delegate ports.Delegate) Option {
	return func(d *Driver) {
		d.delegate = delegate
	}
}

// WithHooks registers observability hooks.
func WithHooks(hooks domain.SyncHooks) Option {
	return func(d *Driver) {
		d.hooks = hooks
	}
}

// WithLimits sets the label and value truncation limits.
func WithLimits(limits classifier.Limits) Option {
	return func(d *Driver) {
		d.classifier = classifier.New(limits)
	}
}

// WithMaxMessageSize sets the transport's maximum message size.
func WithMaxMessageSize(n int) Option {
	return func(d *Driver) {
		d.maxMessageSize = n
	}
}

// WithCycleIDs overrides the cycle ID generator.
func WithCycleIDs(next func() string) Option {
	return func(d *Driver) {
		d.newCycleID = next
	}
}

// NewDriver creates a Driver sending to transport.
func NewDriver(transport ports.Transport, opts ...Option) *Driver {
	d := &Driver{
		transport:      transport,
		delegate:       ports.DelegateFuncs{},
		classifier:     classifier.New(classifier.DefaultLimits()),
		maxMessageSize: classifier.DefaultMaxMessageSize,
		logger:         logging.NewNop(),
		newCycleID:     uuid.NewString,
		lastPixelRatio: 1,
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.maxMessageSize <= 0 {
		d.maxMessageSize = classifier.DefaultMaxMessageSize
	}
	d.store = tree.New(tree.WithLogger(d.logger))
	return d
}

// CycleReport summarizes one update cycle.
type CycleReport struct {
	CycleID string `json:"cycle_id"`
	// Messages counts update and deletion messages handed to the transport.
	Messages    int      `json:"messages"`
	Sent        []uint32 `json:"sent,omitempty"`
	Deleted     []uint32 `json:"deleted,omitempty"`
	Dropped     []int32  `json:"dropped,omitempty"`
	RootUpdated bool     `json:"root_updated"`
	// Skipped is set when the cycle was a no-op.
	Skipped  bool          `json:"skipped,omitempty"`
	Duration time.Duration `json:"duration"`
}

// Phase returns the step the driver is executing.
func (d *Driver) Phase() Phase { return d.phase }

// SemanticsEnabled reports the last value passed to SetSemanticsEnabled.
func (d *Driver) SemanticsEnabled() bool { return d.enabled }

// SetSemanticsEnabled records whether the framework produces semantics.
// Disabling clears the mirrored tree and the cached root.
func (d *Driver) SetSemanticsEnabled(enabled bool) {
	d.enabled = enabled
	if !enabled {
		d.store.Clear()
		d.root = nil
		d.logger.Debug("semantics disabled, tree cleared")
	}
}

// Snapshot returns copies of every mirrored node ordered by ID.
func (d *Driver) Snapshot() []tree.Node { return d.store.Snapshot() }

// Node returns a copy of the mirrored node with the given ID.
func (d *Driver) Node(id int32) (tree.Node, bool) { return d.store.Get(id) }

// PixelRatio returns the last pixel ratio applied to the root.
func (d *Driver) PixelRatio() float32 { return d.lastPixelRatio }

// Update runs one update cycle: it mirrors and encodes the nodes, flushes the
// batches, prunes unreachable nodes, refreshes screen rects and commits.
//
// Per-node failures are joined into the returned error; they never abort the
// cycle. An empty batch is a no-op unless the pixel ratio changed and a root
// is known, in which case only the root is recomputed and sent.
func (d *Driver) Update(ctx context.Context, updates domain.SemanticsNodeUpdates, pixelRatio float32) (CycleReport, error) {
	start := time.Now()
	d.phase = PhaseIngesting
	defer func() { d.phase = PhaseIdle }()

	if !validPixelRatio(pixelRatio) {
		d.logger.Warn("ignoring invalid pixel ratio", "pixel_ratio", pixelRatio, "using", d.lastPixelRatio)
		pixelRatio = d.lastPixelRatio
	}
	ratioChanged := pixelRatio != d.lastPixelRatio

	if len(updates) == 0 && !(ratioChanged && d.root != nil) {
		return CycleReport{Skipped: true}, nil
	}

	report := CycleReport{CycleID: d.newCycleID()}
	logger := d.logger.With("cycle_id", report.CycleID)

	rootUpdate, hasRoot := updates[domain.RootNodeID]
	if !hasRoot && !d.store.Has(domain.RootNodeID) {
		logger.Error("update received without ever getting a root node", "error", domain.ErrMissingRoot)
	}

	var errs []error
	drop := func(id int32, size int, err error) {
		report.Dropped = append(report.Dropped, id)
		errs = append(errs, err)
		logger.Error("semantics node not sent", "node_id", id, "size", size, "error", err)
		if d.hooks.OnNodeDropped != nil {
			d.hooks.OnNodeDropped(ctx, &domain.NodeEvent{
				EventBase: d.event(domain.EventNodeDropped, report.CycleID),
				NodeID:    id,
				Size:      size,
				Err:       err,
			})
		}
	}

	d.phase = PhaseEncoding
	batcher := encoder.NewBatcher(d.maxMessageSize)
	for _, id := range slices.Sorted(maps.Keys(updates)) {
		if id == domain.RootNodeID {
			continue
		}
		node := updates[id]
		node.ID = id
		if id < 0 {
			drop(id, 0, fmt.Errorf("node %d: %w", id, domain.ErrNegativeID))
			continue
		}

		transform := node.Transform.OrIdentity()
		d.store.Upsert(mirror(node, transform))
		if err := d.encode(batcher, node, transform, logger); err != nil {
			drop(id, sizeOf(err), err)
		}
	}

	if hasRoot || ratioChanged {
		d.lastPixelRatio = pixelRatio
		if hasRoot {
			rootUpdate.ID = domain.RootNodeID
			d.root = &rootUpdate
		}
		if d.root != nil {
			transform := d.rootTransform()
			d.store.Upsert(mirror(*d.root, transform))
			if err := d.encode(batcher, *d.root, transform, logger); err != nil {
				drop(domain.RootNodeID, sizeOf(err), err)
			}
			report.RootUpdated = true
		}
	}

	d.phase = PhaseFlushing
	for _, batch := range batcher.Finish() {
		report.Messages++
		if err := d.transport.UpdateSemanticNodes(ctx, batch.Nodes); err != nil {
			errs = append(errs, d.transportFailed(ctx, logger, report.CycleID, "update", err))
			continue
		}
		report.Sent = append(report.Sent, batch.IDs()...)
	}

	if d.store.Has(domain.RootNodeID) {
		d.phase = PhasePruning
		removed := d.store.Prune(d.store.Reachable(domain.RootNodeID))
		chunker := encoder.NewDeletionChunker(d.maxMessageSize)
		for _, id := range removed {
			chunker.Add(uint32(id))
		}
		for _, chunk := range chunker.Finish() {
			report.Messages++
			if err := d.transport.DeleteSemanticNodes(ctx, chunk); err != nil {
				errs = append(errs, d.transportFailed(ctx, logger, report.CycleID, "delete", err))
				continue
			}
			report.Deleted = append(report.Deleted, chunk...)
		}

		d.phase = PhaseRectUpdating
		d.store.UpdateScreenRects(domain.RootNodeID)
	}

	d.phase = PhaseCommitting
	cycleID := report.CycleID
	done := func() { logger.Debug("commit handed off", "cycle_id", cycleID) }
	if err := d.transport.CommitUpdates(ctx, done); err != nil {
		errs = append(errs, d.transportFailed(ctx, logger, report.CycleID, "commit", err))
	}

	report.Duration = time.Since(start)
	logger.Debug("update cycle committed",
		"nodes", len(updates), "sent", len(report.Sent), "deleted", len(report.Deleted),
		"dropped", len(report.Dropped), "messages", report.Messages, "root_updated", report.RootUpdated)

	if d.hooks.OnCycle != nil {
		d.hooks.OnCycle(ctx, &domain.CycleEvent{
			EventBase:   d.event(domain.EventCycleCommitted, report.CycleID),
			NodesSent:   len(report.Sent),
			Messages:    report.Messages,
			Deleted:     len(report.Deleted),
			Dropped:     len(report.Dropped),
			RootUpdated: report.RootUpdated,
			Duration:    report.Duration,
		})
	}
	return report, errors.Join(errs...)
}

// rootTransform is the root's raw transform followed by the inverse pixel
// ratio scale. No other node receives this correction.
func (d *Driver) rootTransform() domain.Mat4 {
	inverse := 1 / d.lastPixelRatio
	return d.root.Transform.OrIdentity().Mul(domain.Scale(inverse, inverse, 1))
}

// sizedError carries the estimated size of a rejected node.
type sizedError struct {
	size int
	err  error
}

func (e *sizedError) Error() string { return e.err.Error() }
func (e *sizedError) Unwrap() error { return e.err }

func sizeOf(err error) int {
	var se *sizedError
	if errors.As(err, &se) {
		return se.size
	}
	return 0
}

func (d *Driver) encode(b *encoder.Batcher, node domain.SemanticsNode, transform domain.Mat4, logger *slog.Logger) error {
	conv, err := d.classifier.Convert(node, transform)
	if err != nil {
		return err
	}
	if len(conv.SkippedChildren) > 0 {
		logger.Warn("dropping negative child IDs", "node_id", node.ID,
			"children", conv.SkippedChildren, "error", domain.ErrNegativeID)
	}
	if err := b.Add(conv.Node, conv.Size); err != nil {
		return &sizedError{size: conv.Size, err: err}
	}
	return nil
}

func (d *Driver) transportFailed(ctx context.Context, logger *slog.Logger, cycleID, op string, err error) error {
	logger.Error("transport send failed", "operation", op, "error", err)
	if d.hooks.OnTransportError != nil {
		d.hooks.OnTransportError(ctx, &domain.TransportEvent{
			EventBase: d.event(domain.EventTransportError, cycleID),
			Operation: op,
			Err:       err,
		})
	}
	return fmt.Errorf("%s: %w", op, err)
}

func (d *Driver) event(t domain.EventType, cycleID string) domain.EventBase {
	return domain.EventBase{Timestamp: time.Now(), Type: t, CycleID: cycleID}
}

// mirror builds the stored record for a raw node. Negative hit-test children
// are left out since they never materialize.
func mirror(n domain.SemanticsNode, transform domain.Mat4) tree.Node {
	children := make([]int32, 0, len(n.ChildrenInHitTestOrder))
	for _, child := range n.ChildrenInHitTestOrder {
		if child >= 0 {
			children = append(children, child)
		}
	}
	return tree.Node{
		ID:        n.ID,
		Flags:     n.Flags,
		Focusable: classifier.IsFocusable(n),
		Rect:      n.Rect,
		Transform: transform,
		Children:  children,
	}
}

func validPixelRatio(r float32) bool {
	f := float64(r)
	return f > 0 && !math.IsInf(f, 0) && !math.IsNaN(f)
}
