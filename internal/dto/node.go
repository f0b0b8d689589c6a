package dto

import (
	"fmt"

	"github.com/aretw0/a11ybridge/pkg/domain"
)

// Rect is the serialized form of domain.Rect.
type Rect struct {
	Left   float32 `json:"left" yaml:"left" mapstructure:"left"`
	Top    float32 `json:"top" yaml:"top" mapstructure:"top"`
	Right  float32 `json:"right" yaml:"right" mapstructure:"right"`
	Bottom float32 `json:"bottom" yaml:"bottom" mapstructure:"bottom"`
}

// Node is the human-writable form of a semantics node used by fixtures and
// the HTTP API. Flags and actions are given by name.
// It uses "mapstructure" tags so documents decoded into generic maps map
// onto it with the same keys as YAML and JSON.
type Node struct {
	ID        int32     `json:"id" yaml:"id" mapstructure:"id"`
	Label     string    `json:"label,omitempty" yaml:"label,omitempty" mapstructure:"label"`
	Value     string    `json:"value,omitempty" yaml:"value,omitempty" mapstructure:"value"`
	Hint      string    `json:"hint,omitempty" yaml:"hint,omitempty" mapstructure:"hint"`
	Flags     []string  `json:"flags,omitempty" yaml:"flags,omitempty" mapstructure:"flags"`
	Actions   []string  `json:"actions,omitempty" yaml:"actions,omitempty" mapstructure:"actions"`
	Rect      Rect      `json:"rect" yaml:"rect" mapstructure:"rect"`
	Transform []float32 `json:"transform,omitempty" yaml:"transform,omitempty" mapstructure:"transform"`
	Elevation float64   `json:"elevation,omitempty" yaml:"elevation,omitempty" mapstructure:"elevation"`
	Thickness float64   `json:"thickness,omitempty" yaml:"thickness,omitempty" mapstructure:"thickness"`

	PlatformViewID *int64 `json:"platform_view_id,omitempty" yaml:"platform_view_id,omitempty" mapstructure:"platform_view_id"`

	// Children are in hit-test order.
	Children []int32 `json:"children,omitempty" yaml:"children,omitempty" mapstructure:"children"`
	// Traversal defaults to Children when empty.
	Traversal []int32 `json:"traversal,omitempty" yaml:"traversal,omitempty" mapstructure:"traversal"`
}

// ToDomain converts the DTO. A missing transform becomes the identity.
func (n Node) ToDomain() (domain.SemanticsNode, error) {
	flags, err := domain.ParseFlags(n.Flags)
	if err != nil {
		return domain.SemanticsNode{}, fmt.Errorf("node %d: %w", n.ID, err)
	}
	actions, err := domain.ParseActions(n.Actions)
	if err != nil {
		return domain.SemanticsNode{}, fmt.Errorf("node %d: %w", n.ID, err)
	}

	transform := domain.Identity()
	switch len(n.Transform) {
	case 0:
	case 16:
		copy(transform[:], n.Transform)
	default:
		return domain.SemanticsNode{}, fmt.Errorf("node %d: transform needs 16 values, got %d", n.ID, len(n.Transform))
	}

	traversal := n.Traversal
	if len(traversal) == 0 {
		traversal = n.Children
	}

	return domain.SemanticsNode{
		ID:                       n.ID,
		Flags:                    flags,
		Actions:                  actions,
		Label:                    n.Label,
		Value:                    n.Value,
		Hint:                     n.Hint,
		Rect:                     domain.LTRB(n.Rect.Left, n.Rect.Top, n.Rect.Right, n.Rect.Bottom),
		Transform:                transform,
		Elevation:                n.Elevation,
		Thickness:                n.Thickness,
		PlatformViewID:           n.PlatformViewID,
		ChildrenInHitTestOrder:   append([]int32(nil), n.Children...),
		ChildrenInTraversalOrder: append([]int32(nil), traversal...),
	}, nil
}

// FromDomain converts a domain node back to its DTO.
func FromDomain(n domain.SemanticsNode) Node {
	out := Node{
		ID:             n.ID,
		Label:          n.Label,
		Value:          n.Value,
		Hint:           n.Hint,
		Flags:          n.Flags.Names(),
		Actions:        n.Actions.Names(),
		Rect:           Rect{Left: n.Rect.Left, Top: n.Rect.Top, Right: n.Rect.Right, Bottom: n.Rect.Bottom},
		Elevation:      n.Elevation,
		Thickness:      n.Thickness,
		PlatformViewID: n.PlatformViewID,
		Children:       append([]int32(nil), n.ChildrenInHitTestOrder...),
	}
	if t := n.Transform.OrIdentity(); t != domain.Identity() {
		out.Transform = append([]float32(nil), t[:]...)
	}
	if !equalIDs(n.ChildrenInHitTestOrder, n.ChildrenInTraversalOrder) {
		out.Traversal = append([]int32(nil), n.ChildrenInTraversalOrder...)
	}
	return out
}

func equalIDs(a, b []int32) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
