// Package classifier derives the remote representation of a framework
// semantics node: role, attributes, states, actions and focusability, plus the
// estimated wire size of the result. Every function is pure.
package classifier

import (
	"fmt"

	"github.com/aretw0/a11ybridge/pkg/domain"
)

// Wire size accounting. These approximate the encoded size of the remote
// node record and are what the batching encoder budgets against.
const (
	DefaultMaxMessageSize = 64 * 1024
	DefaultMaxLabelSize   = 16 * 1024
	DefaultMaxValueSize   = 16 * 1024

	// NodeOverhead is the fixed cost of one node record, excluding strings and lists.
	NodeOverhead = 152
	// StatesOverhead is the fixed cost of the states table.
	StatesOverhead = 24
	// ActionSize is the cost of one emitted action.
	ActionSize = 4
	// NodeIDSize is the cost of one node ID, in child lists and deletion lists.
	NodeIDSize = 4
)

// Limits bounds the strings copied onto the wire.
type Limits struct {
	MaxLabelSize int
	MaxValueSize int
}

// DefaultLimits returns the remote service's published limits.
func DefaultLimits() Limits {
	return Limits{
		MaxLabelSize: DefaultMaxLabelSize,
		MaxValueSize: DefaultMaxValueSize,
	}
}

// Classifier converts raw nodes under a fixed set of limits.
type Classifier struct {
	limits Limits
}

// New creates a Classifier. Non-positive limits fall back to the defaults.
func New(limits Limits) Classifier {
	def := DefaultLimits()
	if limits.MaxLabelSize <= 0 {
		limits.MaxLabelSize = def.MaxLabelSize
	}
	if limits.MaxValueSize <= 0 {
		limits.MaxValueSize = def.MaxValueSize
	}
	return Classifier{limits: limits}
}

// Limits returns the effective limits.
func (c Classifier) Limits() Limits { return c.limits }

// Role infers the remote role. The first matching rule wins.
func Role(n domain.SemanticsNode) domain.Role {
	switch {
	case n.HasFlag(domain.FlagIsButton):
		return domain.RoleButton
	case n.HasFlag(domain.FlagIsTextField):
		return domain.RoleTextField
	case n.HasFlag(domain.FlagIsLink):
		return domain.RoleLink
	case n.HasFlag(domain.FlagIsSlider):
		return domain.RoleSlider
	case n.HasFlag(domain.FlagIsHeader):
		return domain.RoleHeader
	case n.HasFlag(domain.FlagIsImage):
		return domain.RoleImage
	// Nodes that can be incremented or decremented need slider gestures on
	// the remote side.
	case n.HasAction(domain.ActionIncrease), n.HasAction(domain.ActionDecrease):
		return domain.RoleSlider
	case n.HasFlag(domain.FlagHasCheckedState):
		if n.HasFlag(domain.FlagIsInMutuallyExclusiveGroup) {
			return domain.RoleRadioButton
		}
		return domain.RoleCheckBox
	case n.HasFlag(domain.FlagHasToggledState):
		return domain.RoleToggleSwitch
	}
	return domain.RoleUnknown
}

// Attributes builds the attribute table and returns the bytes it adds.
func (c Classifier) Attributes(n domain.SemanticsNode) (domain.Attributes, int) {
	label := truncate(n.Label, c.limits.MaxLabelSize)
	return domain.Attributes{
		Label:         label,
		IsKeyboardKey: n.HasFlag(domain.FlagIsKeyboardKey),
	}, len(label)
}

// States builds the state table and returns the bytes it adds.
// The framework's hidden flag means something different from the remote
// hidden state and is deliberately not mapped.
func (c Classifier) States(n domain.SemanticsNode) (domain.States, int) {
	states := domain.States{
		CheckedState: domain.CheckedStateNone,
		Selected:     n.HasFlag(domain.FlagIsSelected),
		Value:        truncate(n.Value, c.limits.MaxValueSize),
	}
	if n.HasFlag(domain.FlagHasCheckedState) {
		states.CheckedState = domain.CheckedStateUnchecked
		if n.HasFlag(domain.FlagIsChecked) {
			states.CheckedState = domain.CheckedStateChecked
		}
	}
	if n.HasFlag(domain.FlagHasToggledState) {
		states.ToggledState = domain.ToggledStateOff
		if n.HasFlag(domain.FlagIsToggled) {
			states.ToggledState = domain.ToggledStateOn
		}
	}
	return states, StatesOverhead + len(states.Value)
}

var actionTable = []struct {
	local  domain.SemanticsAction
	remote domain.RemoteAction
}{
	{domain.ActionTap, domain.RemoteActionDefault},
	{domain.ActionLongPress, domain.RemoteActionSecondary},
	{domain.ActionShowOnScreen, domain.RemoteActionShowOnScreen},
	{domain.ActionIncrease, domain.RemoteActionIncrement},
	{domain.ActionDecrease, domain.RemoteActionDecrement},
}

// Actions maps the node's supported actions to remote actions, in a fixed
// order, and returns the bytes they add.
func Actions(n domain.SemanticsNode) ([]domain.RemoteAction, int) {
	var out []domain.RemoteAction
	for _, entry := range actionTable {
		if n.HasAction(entry.local) {
			out = append(out, entry.remote)
		}
	}
	return out, len(out) * ActionSize
}

// FrameworkAction returns the framework action for a remote action.
// Remote actions without a framework equivalent return ErrUnsupportedAction.
func FrameworkAction(action domain.RemoteAction) (domain.SemanticsAction, error) {
	for _, entry := range actionTable {
		if entry.remote == action {
			return entry.local, nil
		}
	}
	return 0, fmt.Errorf("%w: %s", domain.ErrUnsupportedAction, action)
}

// IsFocusable decides whether a screen reader may land on the node.
// The order of the checks matters.
func IsFocusable(n domain.SemanticsNode) bool {
	if n.HasFlag(domain.FlagScopesRoute) {
		return false
	}
	if n.HasFlag(domain.FlagIsFocusable) {
		return true
	}
	if n.IsPlatformViewNode() {
		return true
	}
	if n.Actions != 0 {
		return true
	}
	return n.Label != "" || n.Value != "" || n.Hint != ""
}

// Location returns the node's bounding box. Elevation and thickness become
// the Z extents.
func Location(n domain.SemanticsNode) domain.BoundingBox {
	return domain.BoundingBox{
		Min: domain.Vec3{X: n.Rect.Left, Y: n.Rect.Top, Z: float32(n.Elevation)},
		Max: domain.Vec3{X: n.Rect.Right, Y: n.Rect.Bottom, Z: float32(n.Thickness)},
	}
}

// WireID converts a framework node ID to the remote ID space.
func WireID(id int32) (uint32, error) {
	if id < 0 {
		return 0, fmt.Errorf("%w: %d", domain.ErrNegativeID, id)
	}
	return uint32(id), nil
}

// Conversion is the result of converting one node.
type Conversion struct {
	Node domain.WireNode
	// Size is the estimated wire size of Node.
	Size int
	// SkippedChildren lists negative child IDs left out of Node.ChildIDs.
	SkippedChildren []int32
}

// Convert builds the wire node for n using transform as its wire transform.
// Children are emitted in traversal order.
func (c Classifier) Convert(n domain.SemanticsNode, transform domain.Mat4) (Conversion, error) {
	id, err := WireID(n.ID)
	if err != nil {
		return Conversion{}, err
	}

	size := NodeOverhead
	attributes, added := c.Attributes(n)
	size += added
	states, added := c.States(n)
	size += added
	actions, added := Actions(n)
	size += added

	var conv Conversion
	childIDs := make([]uint32, 0, len(n.ChildrenInTraversalOrder))
	for _, child := range n.ChildrenInTraversalOrder {
		wireChild, err := WireID(child)
		if err != nil {
			conv.SkippedChildren = append(conv.SkippedChildren, child)
			continue
		}
		childIDs = append(childIDs, wireChild)
	}
	size += NodeIDSize * len(childIDs)

	conv.Node = domain.WireNode{
		NodeID:     id,
		Role:       Role(n),
		States:     states,
		Attributes: attributes,
		Actions:    actions,
		ChildIDs:   childIDs,
		Location:   Location(n),
		Transform:  transform,
	}
	conv.Size = size
	return conv, nil
}

func truncate(s string, max int) string {
	if len(s) > max {
		return s[:max]
	}
	return s
}
