package repository

import (
	"context"

	"logbook/internal/domain"
)

// AuditRepository defines the persistence operations for audit entries.
// The interface is append-only: no update or delete exists, at this layer
// or any other.
type AuditRepository interface {
	// Append persists a new audit entry and fills in its assigned ID.
	Append(ctx context.Context, entry *domain.AuditEntry) error

	// ListBySubject retrieves the entries for one subject record, oldest
	// first.
	ListBySubject(ctx context.Context, subjectType, subjectID string) ([]*domain.AuditEntry, error)

	// ListRecent retrieves the most recent entries, newest first.
	ListRecent(ctx context.Context, limit int) ([]*domain.AuditEntry, error)
}
