package postgres

import (
	"context"
	"database/sql"
	"errors"

	"logbook/internal/domain"
	"logbook/internal/repository"
)

// ReportRepository is a PostgreSQL implementation of repository.ReportRepository.
type ReportRepository struct {
	q Querier
}

// NewReportRepository creates a new PostgreSQL report repository.
func NewReportRepository(db *sql.DB) *ReportRepository {
	return &ReportRepository{q: db}
}

// NewReportRepositoryWithTx creates a report repository using a transaction.
func NewReportRepositoryWithTx(tx *sql.Tx) *ReportRepository {
	return &ReportRepository{q: tx}
}

const reportColumns = `id, scope, period_key, total_km, business_km, private_km,
	cost_total_cents, trip_count, state, artifact_ref, generated_by, generated_at`

// Create persists a new report.
func (r *ReportRepository) Create(ctx context.Context, report *domain.VatReport) error {
	query := `
		INSERT INTO vat_reports (` + reportColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err := r.q.ExecContext(ctx, query,
		report.ID,
		report.Scope,
		report.PeriodKey,
		report.TotalKm,
		report.BusinessKm,
		report.PrivateKm,
		report.CostTotalCents,
		report.TripCount,
		report.State,
		report.ArtifactRef,
		report.GeneratedBy,
		report.GeneratedAt,
	)

	return err
}

func scanReport(row interface{ Scan(...any) error }) (*domain.VatReport, error) {
	var report domain.VatReport
	err := row.Scan(
		&report.ID,
		&report.Scope,
		&report.PeriodKey,
		&report.TotalKm,
		&report.BusinessKm,
		&report.PrivateKm,
		&report.CostTotalCents,
		&report.TripCount,
		&report.State,
		&report.ArtifactRef,
		&report.GeneratedBy,
		&report.GeneratedAt,
	)
	if err != nil {
		return nil, err
	}
	return &report, nil
}

// GetByID retrieves a report by ID.
func (r *ReportRepository) GetByID(ctx context.Context, id string) (*domain.VatReport, error) {
	query := `SELECT ` + reportColumns + ` FROM vat_reports WHERE id = $1`

	report, err := scanReport(r.q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return report, nil
}

// GetByScopePeriod retrieves the report for a (scope, periodKey) pair.
// Returns nil when none has been generated yet.
func (r *ReportRepository) GetByScopePeriod(ctx context.Context, scope, periodKey string) (*domain.VatReport, error) {
	query := `SELECT ` + reportColumns + ` FROM vat_reports WHERE scope = $1 AND period_key = $2`

	report, err := scanReport(r.q.QueryRowContext(ctx, query, scope, periodKey))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return report, nil
}

// Ensure ReportRepository implements repository.ReportRepository.
var _ repository.ReportRepository = (*ReportRepository)(nil)
