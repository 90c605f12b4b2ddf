package postgres

import (
	"context"
	"database/sql"

	"logbook/internal/repository"
)

// TxRunner runs functions inside a single PostgreSQL transaction, handing
// them transaction-scoped repositories.
type TxRunner struct {
	db *sql.DB
}

// NewTxRunner creates a TxRunner over the given database.
func NewTxRunner(db *sql.DB) *TxRunner {
	return &TxRunner{db: db}
}

// WithinTx begins a transaction, runs fn with repositories bound to it, and
// commits. Any error from fn rolls the transaction back and is returned
// unchanged.
func (r *TxRunner) WithinTx(ctx context.Context, fn func(repository.TxRepos) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	repos := repository.TxRepos{
		Trips:       NewTripRepositoryWithTx(tx),
		Readings:    NewReadingRepositoryWithTx(tx),
		Audit:       NewAuditRepositoryWithTx(tx),
		PeriodLocks: NewPeriodLockRepositoryWithTx(tx),
		Reports:     NewReportRepositoryWithTx(tx),
	}

	if err := fn(repos); err != nil {
		_ = tx.Rollback()
		return err
	}

	return tx.Commit()
}

// Ensure TxRunner implements repository.TxRunner.
var _ repository.TxRunner = (*TxRunner)(nil)
