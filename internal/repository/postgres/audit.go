package postgres

import (
	"context"
	"database/sql"

	"logbook/internal/domain"
	"logbook/internal/repository"
)

// AuditRepository is a PostgreSQL implementation of repository.AuditRepository.
// The backing table is append-only; no UPDATE or DELETE statement exists in
// this file and none may be added.
type AuditRepository struct {
	q Querier
}

// NewAuditRepository creates a new PostgreSQL audit repository.
func NewAuditRepository(db *sql.DB) *AuditRepository {
	return &AuditRepository{q: db}
}

// NewAuditRepositoryWithTx creates an audit repository using a transaction.
func NewAuditRepositoryWithTx(tx *sql.Tx) *AuditRepository {
	return &AuditRepository{q: tx}
}

// Append persists a new audit entry and fills in its assigned ID.
func (r *AuditRepository) Append(ctx context.Context, entry *domain.AuditEntry) error {
	query := `
		INSERT INTO audit_entries (subject_type, subject_id, op, actor_id, recorded_at, before_snapshot, after_snapshot)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`

	var before, after []byte
	if len(entry.Before) > 0 {
		before = entry.Before
	}
	if len(entry.After) > 0 {
		after = entry.After
	}

	return r.q.QueryRowContext(ctx, query,
		entry.SubjectType,
		entry.SubjectID,
		entry.Op,
		entry.ActorID,
		entry.RecordedAt,
		before,
		after,
	).Scan(&entry.ID)
}

// ListBySubject retrieves the entries for one subject record, oldest first.
func (r *AuditRepository) ListBySubject(ctx context.Context, subjectType, subjectID string) ([]*domain.AuditEntry, error) {
	query := `
		SELECT id, subject_type, subject_id, op, actor_id, recorded_at, before_snapshot, after_snapshot
		FROM audit_entries
		WHERE subject_type = $1 AND subject_id = $2
		ORDER BY id
	`

	rows, err := r.q.QueryContext(ctx, query, subjectType, subjectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectAuditEntries(rows)
}

// ListRecent retrieves the most recent entries, newest first.
func (r *AuditRepository) ListRecent(ctx context.Context, limit int) ([]*domain.AuditEntry, error) {
	query := `
		SELECT id, subject_type, subject_id, op, actor_id, recorded_at, before_snapshot, after_snapshot
		FROM audit_entries
		ORDER BY id DESC
		LIMIT $1
	`

	rows, err := r.q.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectAuditEntries(rows)
}

func collectAuditEntries(rows *sql.Rows) ([]*domain.AuditEntry, error) {
	var entries []*domain.AuditEntry
	for rows.Next() {
		var entry domain.AuditEntry
		var before, after []byte
		if err := rows.Scan(
			&entry.ID,
			&entry.SubjectType,
			&entry.SubjectID,
			&entry.Op,
			&entry.ActorID,
			&entry.RecordedAt,
			&before,
			&after,
		); err != nil {
			return nil, err
		}
		entry.Before = before
		entry.After = after
		entries = append(entries, &entry)
	}
	return entries, rows.Err()
}

// Ensure AuditRepository implements repository.AuditRepository.
var _ repository.AuditRepository = (*AuditRepository)(nil)
