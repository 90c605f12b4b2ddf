package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"logbook/internal/domain"
	"logbook/internal/redis"
	"logbook/internal/repository"
)

// TripLedger owns trip entries. Every write passes the Authorization Gate,
// the period lock check, the Odometer Continuity Validator and the VAT
// Regime Classifier, in that order; the first failure short-circuits.
// Odometer integrity runs before regime classification because a continuity
// failure can indicate data corruption rather than a policy violation.
// Ledger commit and audit append are a single transaction: a write is not
// successful unless both land.
type TripLedger struct {
	txRunner    repository.TxRunner
	tripRepo    repository.TripRepository
	vehicleRepo repository.VehicleRepository
	lockRepo    repository.PeriodLockRepository
	gate        *Gate
	continuity  *ContinuityValidator
	classifier  *RegimeClassifier
	scopeLocks  redis.LockStoreInterface
	tolerance   Tolerance
	lockTTL     time.Duration
	log         *logrus.Logger
}

// NewTripLedger creates a new TripLedger.
func NewTripLedger(
	txRunner repository.TxRunner,
	tripRepo repository.TripRepository,
	vehicleRepo repository.VehicleRepository,
	lockRepo repository.PeriodLockRepository,
	gate *Gate,
	continuity *ContinuityValidator,
	classifier *RegimeClassifier,
	scopeLocks redis.LockStoreInterface,
	tolerance Tolerance,
	lockTTL time.Duration,
	log *logrus.Logger,
) *TripLedger {
	return &TripLedger{
		txRunner:    txRunner,
		tripRepo:    tripRepo,
		vehicleRepo: vehicleRepo,
		lockRepo:    lockRepo,
		gate:        gate,
		continuity:  continuity,
		classifier:  classifier,
		scopeLocks:  scopeLocks,
		tolerance:   tolerance,
		lockTTL:     lockTTL,
		log:         log,
	}
}

// monthKey is the period scope key a timestamp falls in.
func monthKey(t time.Time) string {
	return t.UTC().Format("2006-01")
}

// snapshot captures a record for an audit entry.
func snapshot(v any) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return b
}

// CreateTripRequest contains the parameters for recording a trip.
type CreateTripRequest struct {
	VehicleID     string
	DriverID      string
	StartedAt     time.Time
	EndedAt       time.Time
	StartLocation string
	EndLocation   string
	Purpose       domain.TripPurpose
	DistanceKm    float64

	// Both set links the trip to its odometer readings; both nil leaves it
	// unlinked. A linked 0.0 km reading is valid.
	StartKm *float64
	EndKm   *float64

	CostFuelCents    int64
	CostTollCents    int64
	CostParkingCents int64
	CostOtherCents   int64
}

func (r *CreateTripRequest) validate() error {
	if r.VehicleID == "" {
		return ErrInvalidVehicleID
	}
	if r.DriverID == "" {
		return ErrInvalidDriverID
	}
	if !r.EndedAt.After(r.StartedAt) {
		return ErrInvalidTimeRange
	}
	if r.DistanceKm <= 0 {
		return ErrInvalidDistance
	}
	if r.Purpose != domain.TripPurposeBusiness && r.Purpose != domain.TripPurposePrivate {
		return ErrInvalidPurpose
	}
	// Odometer linkage is both readings or neither.
	if (r.StartKm != nil) != (r.EndKm != nil) {
		return ErrInvalidKm
	}
	if r.StartKm != nil && (*r.StartKm < 0 || *r.EndKm < 0) {
		return ErrInvalidKm
	}
	return nil
}

// Create records a new trip.
func (s *TripLedger) Create(ctx context.Context, principal domain.Principal, req CreateTripRequest) (*domain.Trip, error) {
	if err := requireOp(s.gate, principal, OpTripCreate, req.DriverID); err != nil {
		return nil, err
	}

	if err := req.validate(); err != nil {
		return nil, err
	}

	vehicle, err := s.vehicleRepo.GetByID(ctx, req.VehicleID)
	if err != nil {
		return nil, err
	}
	if !vehicle.Active {
		return nil, ErrVehicleInactive
	}

	trip := &domain.Trip{
		ID:               uuid.New().String(),
		VehicleID:        req.VehicleID,
		DriverID:         req.DriverID,
		StartedAt:        req.StartedAt,
		EndedAt:          req.EndedAt,
		StartLocation:    req.StartLocation,
		EndLocation:      req.EndLocation,
		Purpose:          req.Purpose,
		DistanceKm:       req.DistanceKm,
		CostFuelCents:    req.CostFuelCents,
		CostTollCents:    req.CostTollCents,
		CostParkingCents: req.CostParkingCents,
		CostOtherCents:   req.CostOtherCents,
		CreatedAt:        time.Now(),
		UpdatedAt:        time.Now(),
	}
	if req.StartKm != nil {
		trip.OdometerLinked = true
		trip.StartKm = *req.StartKm
		trip.EndKm = *req.EndKm
	}

	release, err := s.acquireScope(ctx, trip.VehicleID, trip.StartedAt)
	if err != nil {
		return nil, err
	}
	defer release()

	if err := s.checkWritable(ctx, trip.VehicleID, trip.StartedAt); err != nil {
		return nil, err
	}

	if err := s.validateTrip(trip, vehicle); err != nil {
		return nil, err
	}

	err = s.txRunner.WithinTx(ctx, func(repos repository.TxRepos) error {
		if err := repos.Trips.Create(ctx, trip); err != nil {
			return err
		}
		return repos.Audit.Append(ctx, &domain.AuditEntry{
			SubjectType: domain.SubjectTrip,
			SubjectID:   trip.ID,
			Op:          domain.AuditOpCreate,
			ActorID:     principal.ID,
			RecordedAt:  time.Now(),
			After:       snapshot(trip),
		})
	})
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"trip_id":    trip.ID,
		"vehicle_id": trip.VehicleID,
		"actor_id":   principal.ID,
	}).Info("trip created")

	return trip, nil
}

// UpdateTripRequest is a partial update. Nil fields are left unchanged.
type UpdateTripRequest struct {
	StartedAt     *time.Time
	EndedAt       *time.Time
	StartLocation *string
	EndLocation   *string
	Purpose       *domain.TripPurpose
	DistanceKm    *float64
	StartKm       *float64
	EndKm         *float64

	CostFuelCents    *int64
	CostTollCents    *int64
	CostParkingCents *int64
	CostOtherCents   *int64
}

func (r *UpdateTripRequest) apply(trip *domain.Trip) {
	if r.StartedAt != nil {
		trip.StartedAt = *r.StartedAt
	}
	if r.EndedAt != nil {
		trip.EndedAt = *r.EndedAt
	}
	if r.StartLocation != nil {
		trip.StartLocation = *r.StartLocation
	}
	if r.EndLocation != nil {
		trip.EndLocation = *r.EndLocation
	}
	if r.Purpose != nil {
		trip.Purpose = *r.Purpose
	}
	if r.DistanceKm != nil {
		trip.DistanceKm = *r.DistanceKm
	}
	if r.StartKm != nil {
		trip.StartKm = *r.StartKm
		trip.OdometerLinked = true
	}
	if r.EndKm != nil {
		trip.EndKm = *r.EndKm
		trip.OdometerLinked = true
	}
	if r.CostFuelCents != nil {
		trip.CostFuelCents = *r.CostFuelCents
	}
	if r.CostTollCents != nil {
		trip.CostTollCents = *r.CostTollCents
	}
	if r.CostParkingCents != nil {
		trip.CostParkingCents = *r.CostParkingCents
	}
	if r.CostOtherCents != nil {
		trip.CostOtherCents = *r.CostOtherCents
	}
}

// Update applies a patch to an existing trip.
func (s *TripLedger) Update(ctx context.Context, principal domain.Principal, tripID string, req UpdateTripRequest) (*domain.Trip, error) {
	if tripID == "" {
		return nil, ErrInvalidTripID
	}

	existing, err := s.tripRepo.GetByID(ctx, tripID)
	if err != nil {
		return nil, err
	}

	if err := requireOp(s.gate, principal, OpTripUpdate, existing.DriverID); err != nil {
		return nil, err
	}

	// Linking a previously unlinked trip requires both readings at once.
	if !existing.OdometerLinked && (req.StartKm != nil) != (req.EndKm != nil) {
		return nil, ErrInvalidKm
	}

	before := snapshot(existing)
	updated := *existing
	req.apply(&updated)
	updated.UpdatedAt = time.Now()

	if !updated.EndedAt.After(updated.StartedAt) {
		return nil, ErrInvalidTimeRange
	}
	if updated.DistanceKm <= 0 {
		return nil, ErrInvalidDistance
	}
	if updated.Purpose != domain.TripPurposeBusiness && updated.Purpose != domain.TripPurposePrivate {
		return nil, ErrInvalidPurpose
	}
	if updated.OdometerLinked && (updated.StartKm < 0 || updated.EndKm < 0) {
		return nil, ErrInvalidKm
	}

	vehicle, err := s.vehicleRepo.GetByID(ctx, updated.VehicleID)
	if err != nil {
		return nil, err
	}

	release, err := s.acquireScope(ctx, existing.VehicleID, existing.StartedAt)
	if err != nil {
		return nil, err
	}
	defer release()

	// A cross-period move holds both the source and destination scopes so
	// neither period can lock mid-write.
	if monthKey(updated.StartedAt) != monthKey(existing.StartedAt) {
		releaseDst, err := s.acquireScope(ctx, updated.VehicleID, updated.StartedAt)
		if err != nil {
			return nil, err
		}
		defer releaseDst()
	}

	// Both the record's current period and its new period must be open.
	if err := s.checkWritable(ctx, existing.VehicleID, existing.StartedAt); err != nil {
		return nil, err
	}
	if !updated.StartedAt.Equal(existing.StartedAt) {
		if err := s.checkWritable(ctx, updated.VehicleID, updated.StartedAt); err != nil {
			return nil, err
		}
	}

	if err := s.validateTrip(&updated, vehicle); err != nil {
		return nil, err
	}

	err = s.txRunner.WithinTx(ctx, func(repos repository.TxRepos) error {
		if err := repos.Trips.Update(ctx, &updated); err != nil {
			return err
		}
		return repos.Audit.Append(ctx, &domain.AuditEntry{
			SubjectType: domain.SubjectTrip,
			SubjectID:   updated.ID,
			Op:          domain.AuditOpUpdate,
			ActorID:     principal.ID,
			RecordedAt:  time.Now(),
			Before:      before,
			After:       snapshot(&updated),
		})
	})
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"trip_id":  updated.ID,
		"actor_id": principal.ID,
	}).Info("trip updated")

	return &updated, nil
}

// Delete removes a trip.
func (s *TripLedger) Delete(ctx context.Context, principal domain.Principal, tripID string) error {
	if tripID == "" {
		return ErrInvalidTripID
	}

	existing, err := s.tripRepo.GetByID(ctx, tripID)
	if err != nil {
		return err
	}

	if err := requireOp(s.gate, principal, OpTripDelete, existing.DriverID); err != nil {
		return err
	}

	release, err := s.acquireScope(ctx, existing.VehicleID, existing.StartedAt)
	if err != nil {
		return err
	}
	defer release()

	if err := s.checkWritable(ctx, existing.VehicleID, existing.StartedAt); err != nil {
		return err
	}

	err = s.txRunner.WithinTx(ctx, func(repos repository.TxRepos) error {
		if err := repos.Trips.Delete(ctx, tripID); err != nil {
			return err
		}
		return repos.Audit.Append(ctx, &domain.AuditEntry{
			SubjectType: domain.SubjectTrip,
			SubjectID:   tripID,
			Op:          domain.AuditOpDelete,
			ActorID:     principal.ID,
			RecordedAt:  time.Now(),
			Before:      snapshot(existing),
		})
	})
	if err != nil {
		return err
	}

	s.log.WithFields(logrus.Fields{
		"trip_id":  tripID,
		"actor_id": principal.ID,
	}).Info("trip deleted")

	return nil
}

// Get retrieves a trip by ID.
func (s *TripLedger) Get(ctx context.Context, principal domain.Principal, tripID string) (*domain.Trip, error) {
	if err := requireOp(s.gate, principal, OpTripView, ""); err != nil {
		return nil, err
	}
	if tripID == "" {
		return nil, ErrInvalidTripID
	}
	return s.tripRepo.GetByID(ctx, tripID)
}

// GetAll retrieves recent trips.
func (s *TripLedger) GetAll(ctx context.Context, principal domain.Principal) ([]*domain.Trip, error) {
	if err := requireOp(s.gate, principal, OpTripView, ""); err != nil {
		return nil, err
	}
	return s.tripRepo.GetAll(ctx)
}

// validateTrip runs the domain validators in their required order:
// continuity first, regime second.
func (s *TripLedger) validateTrip(trip *domain.Trip, vehicle *domain.Vehicle) error {
	if err := s.continuity.ValidateTripDistance(trip, s.tolerance.ForVehicle(vehicle)); err != nil {
		return err
	}
	return s.classifier.classifyErr(vehicle, trip.Purpose)
}

// checkWritable rejects writes whose timestamp falls inside a locked period.
func (s *TripLedger) checkWritable(ctx context.Context, vehicleID string, t time.Time) error {
	lock, err := s.lockRepo.FindCovering(ctx, vehicleID, t)
	if err != nil {
		return err
	}
	if lock != nil {
		return fmt.Errorf("%w: %s/%s", ErrPeriodLocked, lock.Scope, lock.PeriodKey)
	}
	return nil
}

// acquireScope takes the single-writer lock for the trip's (vehicle,
// period) scope. The returned func releases it.
func (s *TripLedger) acquireScope(ctx context.Context, vehicleID string, t time.Time) (func(), error) {
	period := monthKey(t)
	ok, err := s.scopeLocks.AcquireScopeLock(ctx, vehicleID, period, s.lockTTL)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrWriteContention
	}
	return func() {
		_ = s.scopeLocks.ReleaseScopeLock(ctx, vehicleID, period)
	}, nil
}
