package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"logbook/internal/domain"
	"logbook/internal/repository"
)

// TripRepository is a PostgreSQL implementation of repository.TripRepository.
type TripRepository struct {
	q Querier
}

// NewTripRepository creates a new PostgreSQL trip repository.
func NewTripRepository(db *sql.DB) *TripRepository {
	return &TripRepository{q: db}
}

// NewTripRepositoryWithTx creates a trip repository using a transaction.
func NewTripRepositoryWithTx(tx *sql.Tx) *TripRepository {
	return &TripRepository{q: tx}
}

const tripColumns = `id, vehicle_id, driver_id, started_at, ended_at, start_location, end_location,
	purpose, distance_km, odometer_linked, start_km, end_km,
	cost_fuel_cents, cost_toll_cents, cost_parking_cents, cost_other_cents,
	created_at, updated_at`

// Create persists a new trip.
func (r *TripRepository) Create(ctx context.Context, trip *domain.Trip) error {
	query := `
		INSERT INTO trips (` + tripColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
	`

	_, err := r.q.ExecContext(ctx, query,
		trip.ID,
		trip.VehicleID,
		trip.DriverID,
		trip.StartedAt,
		trip.EndedAt,
		trip.StartLocation,
		trip.EndLocation,
		trip.Purpose,
		trip.DistanceKm,
		trip.OdometerLinked,
		trip.StartKm,
		trip.EndKm,
		trip.CostFuelCents,
		trip.CostTollCents,
		trip.CostParkingCents,
		trip.CostOtherCents,
		trip.CreatedAt,
		trip.UpdatedAt,
	)

	return err
}

func scanTrip(row interface{ Scan(...any) error }) (*domain.Trip, error) {
	var trip domain.Trip
	err := row.Scan(
		&trip.ID,
		&trip.VehicleID,
		&trip.DriverID,
		&trip.StartedAt,
		&trip.EndedAt,
		&trip.StartLocation,
		&trip.EndLocation,
		&trip.Purpose,
		&trip.DistanceKm,
		&trip.OdometerLinked,
		&trip.StartKm,
		&trip.EndKm,
		&trip.CostFuelCents,
		&trip.CostTollCents,
		&trip.CostParkingCents,
		&trip.CostOtherCents,
		&trip.CreatedAt,
		&trip.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &trip, nil
}

// GetByID retrieves a trip by ID.
func (r *TripRepository) GetByID(ctx context.Context, id string) (*domain.Trip, error) {
	query := `SELECT ` + tripColumns + ` FROM trips WHERE id = $1`

	trip, err := scanTrip(r.q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return trip, nil
}

// GetAll retrieves recent trips, newest first.
func (r *TripRepository) GetAll(ctx context.Context) ([]*domain.Trip, error) {
	query := `SELECT ` + tripColumns + ` FROM trips ORDER BY started_at DESC LIMIT 100`

	rows, err := r.q.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectTrips(rows)
}

// Update updates an existing trip.
func (r *TripRepository) Update(ctx context.Context, trip *domain.Trip) error {
	query := `
		UPDATE trips
		SET vehicle_id = $1, driver_id = $2, started_at = $3, ended_at = $4,
			start_location = $5, end_location = $6, purpose = $7, distance_km = $8,
			odometer_linked = $9, start_km = $10, end_km = $11,
			cost_fuel_cents = $12, cost_toll_cents = $13, cost_parking_cents = $14, cost_other_cents = $15,
			updated_at = $16
		WHERE id = $17
	`

	result, err := r.q.ExecContext(ctx, query,
		trip.VehicleID,
		trip.DriverID,
		trip.StartedAt,
		trip.EndedAt,
		trip.StartLocation,
		trip.EndLocation,
		trip.Purpose,
		trip.DistanceKm,
		trip.OdometerLinked,
		trip.StartKm,
		trip.EndKm,
		trip.CostFuelCents,
		trip.CostTollCents,
		trip.CostParkingCents,
		trip.CostOtherCents,
		trip.UpdatedAt,
		trip.ID,
	)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// Delete removes a trip.
func (r *TripRepository) Delete(ctx context.Context, id string) error {
	result, err := r.q.ExecContext(ctx, `DELETE FROM trips WHERE id = $1`, id)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// ListByVehicleBetween retrieves a vehicle's trips starting in [from, to).
func (r *TripRepository) ListByVehicleBetween(ctx context.Context, vehicleID string, from, to time.Time) ([]*domain.Trip, error) {
	query := `
		SELECT ` + tripColumns + ` FROM trips
		WHERE vehicle_id = $1 AND started_at >= $2 AND started_at < $3
		ORDER BY started_at
	`

	rows, err := r.q.QueryContext(ctx, query, vehicleID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectTrips(rows)
}

// ListBetween retrieves all trips starting in [from, to).
func (r *TripRepository) ListBetween(ctx context.Context, from, to time.Time) ([]*domain.Trip, error) {
	query := `
		SELECT ` + tripColumns + ` FROM trips
		WHERE started_at >= $1 AND started_at < $2
		ORDER BY started_at
	`

	rows, err := r.q.QueryContext(ctx, query, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectTrips(rows)
}

func collectTrips(rows *sql.Rows) ([]*domain.Trip, error) {
	var trips []*domain.Trip
	for rows.Next() {
		trip, err := scanTrip(rows)
		if err != nil {
			return nil, err
		}
		trips = append(trips, trip)
	}
	return trips, rows.Err()
}

// Ensure TripRepository implements repository.TripRepository.
var _ repository.TripRepository = (*TripRepository)(nil)
