package repository

import (
	"context"

	"logbook/internal/domain"
)

// ReportRepository defines the persistence operations for VAT reports.
type ReportRepository interface {
	// Create persists a new report.
	Create(ctx context.Context, report *domain.VatReport) error

	// GetByID retrieves a report by ID.
	GetByID(ctx context.Context, id string) (*domain.VatReport, error)

	// GetByScopePeriod retrieves the report for a (scope, periodKey) pair.
	// Returns nil when none has been generated yet.
	GetByScopePeriod(ctx context.Context, scope, periodKey string) (*domain.VatReport, error)
}
