package repository

import "context"

// TxRepos bundles the repositories scoped to one transaction. A ledger
// commit and its audit append go through the same TxRepos so both land or
// neither does.
type TxRepos struct {
	Trips       TripRepository
	Readings    ReadingRepository
	Audit       AuditRepository
	PeriodLocks PeriodLockRepository
	Reports     ReportRepository
}

// TxRunner executes fn inside a single transaction. If fn returns an error
// the transaction is rolled back and the error returned unchanged.
type TxRunner interface {
	WithinTx(ctx context.Context, fn func(TxRepos) error) error
}
