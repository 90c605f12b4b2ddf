package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"logbook/internal/domain"
	"logbook/internal/repository"
)

// ReadingRepository is a PostgreSQL implementation of repository.ReadingRepository.
type ReadingRepository struct {
	q Querier
}

// NewReadingRepository creates a new PostgreSQL reading repository.
func NewReadingRepository(db *sql.DB) *ReadingRepository {
	return &ReadingRepository{q: db}
}

// NewReadingRepositoryWithTx creates a reading repository using a transaction.
func NewReadingRepositoryWithTx(tx *sql.Tx) *ReadingRepository {
	return &ReadingRepository{q: tx}
}

const readingColumns = `id, vehicle_id, recorded_at, km, source, confidence, created_at`

// Create persists a new reading.
func (r *ReadingRepository) Create(ctx context.Context, reading *domain.OdometerReading) error {
	query := `
		INSERT INTO odometer_readings (` + readingColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.q.ExecContext(ctx, query,
		reading.ID,
		reading.VehicleID,
		reading.RecordedAt,
		reading.Km,
		reading.Source,
		reading.Confidence,
		reading.CreatedAt,
	)

	return err
}

func scanReading(row interface{ Scan(...any) error }) (*domain.OdometerReading, error) {
	var reading domain.OdometerReading
	err := row.Scan(
		&reading.ID,
		&reading.VehicleID,
		&reading.RecordedAt,
		&reading.Km,
		&reading.Source,
		&reading.Confidence,
		&reading.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &reading, nil
}

// GetByID retrieves a reading by ID.
func (r *ReadingRepository) GetByID(ctx context.Context, id string) (*domain.OdometerReading, error) {
	query := `SELECT ` + readingColumns + ` FROM odometer_readings WHERE id = $1`

	reading, err := scanReading(r.q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return reading, nil
}

// ListByVehicle retrieves all readings for a vehicle ordered by recording time.
func (r *ReadingRepository) ListByVehicle(ctx context.Context, vehicleID string) ([]*domain.OdometerReading, error) {
	query := `
		SELECT ` + readingColumns + ` FROM odometer_readings
		WHERE vehicle_id = $1
		ORDER BY recorded_at
	`

	rows, err := r.q.QueryContext(ctx, query, vehicleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectReadings(rows)
}

// ListByVehicleBetween retrieves a vehicle's readings recorded in [from, to).
func (r *ReadingRepository) ListByVehicleBetween(ctx context.Context, vehicleID string, from, to time.Time) ([]*domain.OdometerReading, error) {
	query := `
		SELECT ` + readingColumns + ` FROM odometer_readings
		WHERE vehicle_id = $1 AND recorded_at >= $2 AND recorded_at < $3
		ORDER BY recorded_at
	`

	rows, err := r.q.QueryContext(ctx, query, vehicleID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectReadings(rows)
}

func collectReadings(rows *sql.Rows) ([]*domain.OdometerReading, error) {
	var readings []*domain.OdometerReading
	for rows.Next() {
		reading, err := scanReading(rows)
		if err != nil {
			return nil, err
		}
		readings = append(readings, reading)
	}
	return readings, rows.Err()
}

// Ensure ReadingRepository implements repository.ReadingRepository.
var _ repository.ReadingRepository = (*ReadingRepository)(nil)
