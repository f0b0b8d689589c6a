package runtime

import (
	"context"
	"math"

	"github.com/aretw0/a11ybridge/internal/classifier"
	"github.com/aretw0/a11ybridge/pkg/domain"
)

// DispatchRemoteAction forwards a remote action request to the framework.
// It reports false when the node is unknown or the action has no framework
// equivalent; nothing is dispatched in that case.
func (d *Driver) DispatchRemoteAction(ctx context.Context, nodeID uint32, action domain.RemoteAction) bool {
	accepted := d.dispatch(nodeID, action)
	if d.hooks.OnAction != nil {
		d.hooks.OnAction(ctx, &domain.ActionEvent{
			EventBase: d.event(domain.EventActionRequest, ""),
			NodeID:    nodeID,
			Action:    action,
			Accepted:  accepted,
		})
	}
	return accepted
}

func (d *Driver) dispatch(nodeID uint32, action domain.RemoteAction) bool {
	if nodeID > math.MaxInt32 || !d.store.Has(int32(nodeID)) {
		d.logger.Error("action requested for unknown node",
			"node_id", nodeID, "action", action, "error", domain.ErrNodeNotFound)
		return false
	}

	local, err := classifier.FrameworkAction(action)
	if err != nil {
		d.logger.Warn("unsupported action requested", "node_id", nodeID, "action", action, "error", err)
		return false
	}

	d.delegate.DispatchSemanticsAction(int32(nodeID), local)
	return true
}

// HitTest returns the deepest focusable node whose screen rect contains
// (x, y). When nothing matches the root is returned and the miss is logged,
// since the root is expected to always be hit-testable.
func (d *Driver) HitTest(x, y float32) uint32 {
	if id, ok := d.store.HitTest(domain.RootNodeID, x, y); ok {
		return uint32(id)
	}
	d.logger.Error("hit test matched no node, falling back to root", "x", x, "y", y)
	return uint32(domain.RootNodeID)
}

// Announce asks the remote service to speak message.
func (d *Driver) Announce(ctx context.Context, message string) error {
	event := domain.SemanticEvent{Announce: &domain.AnnounceEvent{Message: message}}
	if err := d.transport.SendSemanticEvent(ctx, event); err != nil {
		return d.transportFailed(ctx, d.logger, "", "announce", err)
	}
	return nil
}
