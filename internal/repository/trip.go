package repository

import (
	"context"
	"time"

	"logbook/internal/domain"
)

// TripRepository defines the persistence operations for trips.
type TripRepository interface {
	// Create persists a new trip.
	Create(ctx context.Context, trip *domain.Trip) error

	// GetByID retrieves a trip by ID.
	GetByID(ctx context.Context, id string) (*domain.Trip, error)

	// GetAll retrieves recent trips, newest first.
	GetAll(ctx context.Context) ([]*domain.Trip, error)

	// Update updates an existing trip.
	Update(ctx context.Context, trip *domain.Trip) error

	// Delete removes a trip.
	Delete(ctx context.Context, id string) error

	// ListByVehicleBetween retrieves a vehicle's trips whose start falls in
	// [from, to), ordered by start time.
	ListByVehicleBetween(ctx context.Context, vehicleID string, from, to time.Time) ([]*domain.Trip, error)

	// ListBetween retrieves all trips whose start falls in [from, to),
	// ordered by start time. Used for organization-wide period checks.
	ListBetween(ctx context.Context, from, to time.Time) ([]*domain.Trip, error)
}
