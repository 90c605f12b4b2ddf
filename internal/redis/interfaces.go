package redis

import (
	"context"
	"time"
)

// LockStoreInterface defines the interface for distributed scope locking.
type LockStoreInterface interface {
	AcquireScopeLock(ctx context.Context, scope, periodKey string, ttl time.Duration) (bool, error)
	ReleaseScopeLock(ctx context.Context, scope, periodKey string) error
}

// Ensure concrete types implement interfaces.
var _ LockStoreInterface = (*LockStore)(nil)
