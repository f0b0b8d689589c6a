package ports

import "github.com/aretw0/a11ybridge/pkg/domain"

// Delegate is the host framework side of the bridge.
// Implementations must not call back into the bridge synchronously.
type Delegate interface {
	// DispatchSemanticsAction forwards an accepted remote action to the framework.
	DispatchSemanticsAction(nodeID int32, action domain.SemanticsAction)

	// SetSemanticsEnabled asks the framework to start or stop producing semantics.
	SetSemanticsEnabled(enabled bool)
}

// DelegateFuncs adapts plain functions to Delegate. Nil fields are no-ops.
type DelegateFuncs struct {
	Dispatch   func(nodeID int32, action domain.SemanticsAction)
	SetEnabled func(enabled bool)
}

func (d DelegateFuncs) DispatchSemanticsAction(nodeID int32, action domain.SemanticsAction) {
	if d.Dispatch != nil {
		d.Dispatch(nodeID, action)
	}
}

func (d DelegateFuncs) SetSemanticsEnabled(enabled bool) {
	if d.SetEnabled != nil {
		d.SetEnabled(enabled)
	}
}
