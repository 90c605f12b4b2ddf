package repository

import (
	"context"
	"time"

	"logbook/internal/domain"
)

// PeriodLockRepository defines the persistence operations for period locks.
type PeriodLockRepository interface {
	// Create persists a new period lock.
	Create(ctx context.Context, lock *domain.PeriodLock) error

	// Get retrieves the lock for a (scope, periodKey) pair.
	// Returns ErrNotFound when the period has never been locked.
	Get(ctx context.Context, scope, periodKey string) (*domain.PeriodLock, error)

	// FindCovering retrieves a locked period whose window contains t and
	// whose scope covers the vehicle (the vehicle's own scope or the
	// organization-wide scope). Returns nil when no such lock exists.
	FindCovering(ctx context.Context, vehicleID string, t time.Time) (*domain.PeriodLock, error)
}
