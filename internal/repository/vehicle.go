package repository

import (
	"context"

	"logbook/internal/domain"
)

// VehicleRepository defines the persistence operations for vehicles.
// Vehicles are written only through the fleet-management sync; the core
// otherwise treats them as read-only.
type VehicleRepository interface {
	// Create persists a vehicle supplied by fleet management.
	Create(ctx context.Context, vehicle *domain.Vehicle) error

	// GetByID retrieves a vehicle by ID.
	GetByID(ctx context.Context, id string) (*domain.Vehicle, error)

	// GetAll retrieves all vehicles.
	GetAll(ctx context.Context) ([]*domain.Vehicle, error)
}
