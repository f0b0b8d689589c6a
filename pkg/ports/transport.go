package ports

import (
	"context"

	"github.com/aretw0/a11ybridge/pkg/domain"
)

// Transport is the outbound channel to the remote accessibility service.
// Calls within one update cycle are made in order: every update batch, then
// every deletion chunk, then a single commit.
type Transport interface {
	// UpdateSemanticNodes sends one batch of node updates.
	UpdateSemanticNodes(ctx context.Context, nodes []domain.WireNode) error

	// DeleteSemanticNodes sends one chunk of node deletions.
	DeleteSemanticNodes(ctx context.Context, ids []uint32) error

	// CommitUpdates makes every update and deletion sent since the last
	// commit visible. done is invoked once the commit has been handed off;
	// it may be nil.
	CommitUpdates(ctx context.Context, done func()) error

	// SendSemanticEvent delivers a fire-and-forget event such as an announcement.
	SendSemanticEvent(ctx context.Context, event domain.SemanticEvent) error
}
