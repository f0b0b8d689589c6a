package ports

import (
	"context"
	"time"
)

// UnlockFunc releases a lock acquired through OwnerLocker.
type UnlockFunc func(ctx context.Context) error

// OwnerLocker coordinates which bridge instance publishes a tree when several
// replicas share one transport backend.
type OwnerLocker interface {
	// Lock blocks until the tree key is owned, the context is canceled or the
	// backend fails. The returned UnlockFunc MUST be called to release it.
	Lock(ctx context.Context, key string, ttl time.Duration) (UnlockFunc, error)
}
