package repository

import (
	"context"
	"time"

	"logbook/internal/domain"
)

// ReadingRepository defines the persistence operations for odometer readings.
type ReadingRepository interface {
	// Create persists a new reading.
	Create(ctx context.Context, reading *domain.OdometerReading) error

	// GetByID retrieves a reading by ID.
	GetByID(ctx context.Context, id string) (*domain.OdometerReading, error)

	// ListByVehicle retrieves all readings for a vehicle ordered by
	// recording time.
	ListByVehicle(ctx context.Context, vehicleID string) ([]*domain.OdometerReading, error)

	// ListByVehicleBetween retrieves a vehicle's readings recorded in
	// [from, to), ordered by recording time.
	ListByVehicleBetween(ctx context.Context, vehicleID string, from, to time.Time) ([]*domain.OdometerReading, error)
}
