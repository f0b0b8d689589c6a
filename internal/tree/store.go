// Package tree holds the local mirror of the framework's semantics tree.
//
// Nodes live in an arena keyed by ID and reference their children by ID, so
// duplicate parents or cycles coming from the framework can never cause
// ownership problems; traversals guard against them and log instead.
// The Store does no locking: callers serialize access.
package tree

import (
	"io"
	"log/slog"
	"sort"

	"github.com/aretw0/a11ybridge/pkg/domain"
)

// Node is the mirrored state kept per semantics node.
type Node struct {
	ID        int32        `json:"id"`
	Flags     domain.Flags `json:"flags"`
	Focusable bool         `json:"focusable"`
	Rect      domain.Rect  `json:"rect"`
	// Transform is the effective transform used for screen rects. For the
	// root it includes the inverse pixel ratio correction.
	Transform  domain.Mat4 `json:"transform"`
	ScreenRect domain.Rect `json:"screen_rect"`
	// Children are in hit-test order.
	Children []int32 `json:"children,omitempty"`
}

// Hidden reports whether the framework marked the node hidden.
func (n Node) Hidden() bool { return n.Flags.Has(domain.FlagIsHidden) }

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for contract-violation diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// Store is the arena of mirrored nodes.
type Store struct {
	nodes  map[int32]*Node
	logger *slog.Logger
}

// New creates an empty Store.
func New(opts ...Option) *Store {
	s := &Store{
		nodes:  make(map[int32]*Node),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Upsert inserts or overwrites the node with n.ID.
func (s *Store) Upsert(n Node) {
	n.Children = append([]int32(nil), n.Children...)
	s.nodes[n.ID] = &n
}

// Get returns a copy of the node with the given ID.
func (s *Store) Get(id int32) (Node, bool) {
	n, ok := s.nodes[id]
	if !ok {
		return Node{}, false
	}
	out := *n
	out.Children = append([]int32(nil), n.Children...)
	return out, true
}

// Has reports whether the ID is mirrored.
func (s *Store) Has(id int32) bool {
	_, ok := s.nodes[id]
	return ok
}

// Len returns the number of mirrored nodes.
func (s *Store) Len() int { return len(s.nodes) }

// Clear drops every node.
func (s *Store) Clear() {
	clear(s.nodes)
}

// IDs returns every mirrored ID in ascending order.
func (s *Store) IDs() []int32 {
	ids := make([]int32, 0, len(s.nodes))
	for id := range s.nodes {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Snapshot returns copies of every node ordered by ID.
func (s *Store) Snapshot() []Node {
	out := make([]Node, 0, len(s.nodes))
	for _, id := range s.IDs() {
		n, _ := s.Get(id)
		out = append(out, n)
	}
	return out
}

// Reachable walks hit-test children breadth-first from root and returns the
// visited IDs, root included. A child seen a second time is not revisited.
func (s *Store) Reachable(root int32) map[int32]struct{} {
	visited := map[int32]struct{}{root: {}}
	queue := []int32{root}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]

		n, ok := s.nodes[id]
		if !ok {
			continue
		}
		for _, child := range n.Children {
			if _, seen := visited[child]; seen {
				s.logger.Error("ignoring child already listed under another parent",
					"node_id", child, "parent_id", id, "error", domain.ErrDuplicateChild)
				continue
			}
			visited[child] = struct{}{}
			queue = append(queue, child)
		}
	}
	return visited
}

// Prune removes every node not in reachable and returns the removed IDs in
// ascending order.
func (s *Store) Prune(reachable map[int32]struct{}) []int32 {
	var removed []int32
	for id := range s.nodes {
		if _, ok := reachable[id]; !ok {
			removed = append(removed, id)
		}
	}
	sort.Slice(removed, func(i, j int) bool { return removed[i] < removed[j] })
	for _, id := range removed {
		delete(s.nodes, id)
	}
	return removed
}

// UpdateScreenRects walks the tree depth-first from root and caches each
// node's screen rect: (parent transform × node transform) applied to the
// node's local rect, normalized.
func (s *Store) UpdateScreenRects(root int32) {
	visited := make(map[int32]struct{})
	s.updateScreenRects(root, domain.Identity(), visited)
}

func (s *Store) updateScreenRects(id int32, parent domain.Mat4, visited map[int32]struct{}) {
	n, ok := s.nodes[id]
	if !ok {
		s.logger.Error("screen rect update reached unknown node", "node_id", id)
		return
	}
	visited[id] = struct{}{}

	current := parent.Mul(n.Transform)
	n.ScreenRect = current.MapRect(n.Rect).Sort()

	for _, child := range n.Children {
		if _, seen := visited[child]; seen {
			s.logger.Warn("screen rect walk skipped revisited node",
				"node_id", child, "parent_id", id, "error", domain.ErrDuplicateChild)
			continue
		}
		s.updateScreenRects(child, current, visited)
	}
}

// HitTest searches for the deepest focusable node under (x, y), starting at
// root. A hidden node, or one whose screen rect misses the point, is not a
// candidate itself but its children are still searched. Children are tried
// in hit-test order and the first match wins over the parent.
func (s *Store) HitTest(root int32, x, y float32) (int32, bool) {
	visited := make(map[int32]struct{})
	return s.hitTest(root, x, y, visited)
}

func (s *Store) hitTest(id int32, x, y float32, visited map[int32]struct{}) (int32, bool) {
	n, ok := s.nodes[id]
	if !ok {
		s.logger.Error("hit test reached unknown node", "node_id", id)
		return 0, false
	}
	visited[id] = struct{}{}

	for _, child := range n.Children {
		if _, seen := visited[child]; seen {
			continue
		}
		if hit, ok := s.hitTest(child, x, y, visited); ok {
			return hit, true
		}
	}

	candidate := !n.Hidden() && n.ScreenRect.Contains(x, y)
	if candidate && n.Focusable {
		return id, true
	}
	return 0, false
}
