package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"logbook/internal/domain"
	"logbook/internal/repository"
)

// PeriodLockRepository is a PostgreSQL implementation of repository.PeriodLockRepository.
type PeriodLockRepository struct {
	q Querier
}

// NewPeriodLockRepository creates a new PostgreSQL period lock repository.
func NewPeriodLockRepository(db *sql.DB) *PeriodLockRepository {
	return &PeriodLockRepository{q: db}
}

// NewPeriodLockRepositoryWithTx creates a period lock repository using a transaction.
func NewPeriodLockRepositoryWithTx(tx *sql.Tx) *PeriodLockRepository {
	return &PeriodLockRepository{q: tx}
}

const periodLockColumns = `id, scope, period_key, state, starts_at, ends_before, locked_by, locked_at`

// Create persists a new period lock.
func (r *PeriodLockRepository) Create(ctx context.Context, lock *domain.PeriodLock) error {
	query := `
		INSERT INTO period_locks (` + periodLockColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.q.ExecContext(ctx, query,
		lock.ID,
		lock.Scope,
		lock.PeriodKey,
		lock.State,
		lock.StartsAt,
		lock.EndsBefore,
		lock.LockedBy,
		lock.LockedAt,
	)

	return err
}

func scanPeriodLock(row interface{ Scan(...any) error }) (*domain.PeriodLock, error) {
	var lock domain.PeriodLock
	err := row.Scan(
		&lock.ID,
		&lock.Scope,
		&lock.PeriodKey,
		&lock.State,
		&lock.StartsAt,
		&lock.EndsBefore,
		&lock.LockedBy,
		&lock.LockedAt,
	)
	if err != nil {
		return nil, err
	}
	return &lock, nil
}

// Get retrieves the lock for a (scope, periodKey) pair.
func (r *PeriodLockRepository) Get(ctx context.Context, scope, periodKey string) (*domain.PeriodLock, error) {
	query := `SELECT ` + periodLockColumns + ` FROM period_locks WHERE scope = $1 AND period_key = $2`

	lock, err := scanPeriodLock(r.q.QueryRowContext(ctx, query, scope, periodKey))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return lock, nil
}

// FindCovering retrieves a locked period covering the vehicle at time t.
// Returns nil when no such lock exists.
func (r *PeriodLockRepository) FindCovering(ctx context.Context, vehicleID string, t time.Time) (*domain.PeriodLock, error) {
	query := `
		SELECT ` + periodLockColumns + ` FROM period_locks
		WHERE state = $1 AND (scope = $2 OR scope = $3)
			AND starts_at <= $4 AND ends_before > $4
		LIMIT 1
	`

	lock, err := scanPeriodLock(r.q.QueryRowContext(ctx, query,
		domain.LockStateLocked, domain.ScopeOrganization, vehicleID, t))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return lock, nil
}

// Ensure PeriodLockRepository implements repository.PeriodLockRepository.
var _ repository.PeriodLockRepository = (*PeriodLockRepository)(nil)
