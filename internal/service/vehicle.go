package service

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"logbook/internal/domain"
	"logbook/internal/redis"
	"logbook/internal/repository"
)

// VehicleService reads vehicles and accepts the fleet-management sync.
// Vehicles are otherwise read-only to this service.
type VehicleService struct {
	vehicleRepo repository.VehicleRepository
	tripRepo    repository.TripRepository
	cache       *redis.CacheStore
	classifier  *RegimeClassifier
	gate        *Gate
	log         *logrus.Logger
}

// NewVehicleService creates a new VehicleService.
func NewVehicleService(
	vehicleRepo repository.VehicleRepository,
	tripRepo repository.TripRepository,
	cache *redis.CacheStore,
	classifier *RegimeClassifier,
	gate *Gate,
	log *logrus.Logger,
) *VehicleService {
	return &VehicleService{
		vehicleRepo: vehicleRepo,
		tripRepo:    tripRepo,
		cache:       cache,
		classifier:  classifier,
		gate:        gate,
		log:         log,
	}
}

// SyncVehicleRequest contains a vehicle as supplied by fleet management.
type SyncVehicleRequest struct {
	ID           string
	Registration string
	Ownership    domain.OwnershipType
	Regime       domain.VatRegime
	StartingKm   float64
	Active       bool
	TolerancePct float64
	ToleranceKm  float64
}

// Sync stores a vehicle handed over by the fleet-management collaborator.
func (s *VehicleService) Sync(ctx context.Context, principal domain.Principal, req SyncVehicleRequest) (*domain.Vehicle, error) {
	if err := requireOp(s.gate, principal, OpVehicleManage, ""); err != nil {
		return nil, err
	}
	if req.ID == "" {
		return nil, ErrInvalidVehicleID
	}

	vehicle := &domain.Vehicle{
		ID:           req.ID,
		Registration: req.Registration,
		Ownership:    req.Ownership,
		Regime:       req.Regime,
		StartingKm:   req.StartingKm,
		Active:       req.Active,
		TolerancePct: req.TolerancePct,
		ToleranceKm:  req.ToleranceKm,
	}

	if err := s.vehicleRepo.Create(ctx, vehicle); err != nil {
		return nil, err
	}

	if s.cache != nil {
		_ = s.cache.InvalidateVehicle(ctx, vehicle.ID)
	}

	s.log.WithFields(logrus.Fields{
		"vehicle_id":   vehicle.ID,
		"registration": vehicle.Registration,
		"regime":       vehicle.Regime,
	}).Info("vehicle synced")

	return vehicle, nil
}

// Get retrieves a vehicle, serving from cache when possible.
func (s *VehicleService) Get(ctx context.Context, principal domain.Principal, vehicleID string) (*domain.Vehicle, error) {
	if err := requireOp(s.gate, principal, OpVehicleView, ""); err != nil {
		return nil, err
	}
	if vehicleID == "" {
		return nil, ErrInvalidVehicleID
	}

	if s.cache != nil {
		cached, err := s.cache.GetVehicle(ctx, vehicleID)
		if err == nil && cached != nil {
			return &domain.Vehicle{
				ID:           cached.ID,
				Registration: cached.Registration,
				Ownership:    domain.OwnershipType(cached.Ownership),
				Regime:       domain.VatRegime(cached.Regime),
				StartingKm:   cached.StartingKm,
				Active:       cached.Active,
				TolerancePct: cached.TolerancePct,
				ToleranceKm:  cached.ToleranceKm,
			}, nil
		}
	}

	vehicle, err := s.vehicleRepo.GetByID(ctx, vehicleID)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		_ = s.cache.SetVehicle(ctx, &redis.CachedVehicle{
			ID:           vehicle.ID,
			Registration: vehicle.Registration,
			Ownership:    string(vehicle.Ownership),
			Regime:       string(vehicle.Regime),
			StartingKm:   vehicle.StartingKm,
			Active:       vehicle.Active,
			TolerancePct: vehicle.TolerancePct,
			ToleranceKm:  vehicle.ToleranceKm,
		})
	}

	return vehicle, nil
}

// GetAll retrieves all vehicles.
func (s *VehicleService) GetAll(ctx context.Context, principal domain.Principal) ([]*domain.Vehicle, error) {
	if err := requireOp(s.gate, principal, OpVehicleView, ""); err != nil {
		return nil, err
	}
	return s.vehicleRepo.GetAll(ctx)
}

// BusinessUse computes the vehicle's rolling business-use percentage over
// [from, to). Reporting and risk flagging only; never blocks writes.
func (s *VehicleService) BusinessUse(ctx context.Context, principal domain.Principal, vehicleID string, from, to time.Time) (float64, error) {
	if err := requireOp(s.gate, principal, OpVehicleView, ""); err != nil {
		return 0, err
	}
	if vehicleID == "" {
		return 0, ErrInvalidVehicleID
	}

	trips, err := s.tripRepo.ListByVehicleBetween(ctx, vehicleID, from, to)
	if err != nil {
		return 0, err
	}

	return s.classifier.BusinessUseShare(trips, from, to), nil
}
