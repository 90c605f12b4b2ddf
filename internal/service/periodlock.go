package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"logbook/internal/domain"
	"logbook/internal/redis"
	"logbook/internal/repository"
)

// PeriodLockService closes reporting windows. The open → locked transition
// is terminal: no unlock path exists. Every record inside the window is
// re-checked at lock time, not only at original write time, to catch
// inconsistencies introduced by reconciled disputes or backfilled data.
type PeriodLockService struct {
	txRunner    repository.TxRunner
	lockRepo    repository.PeriodLockRepository
	tripRepo    repository.TripRepository
	readingRepo repository.ReadingRepository
	vehicleRepo repository.VehicleRepository
	gate        *Gate
	continuity  *ContinuityValidator
	classifier  *RegimeClassifier
	scopeLocks  redis.LockStoreInterface
	tolerance   Tolerance
	lockTTL     time.Duration
	log         *logrus.Logger
}

// NewPeriodLockService creates a new PeriodLockService.
func NewPeriodLockService(
	txRunner repository.TxRunner,
	lockRepo repository.PeriodLockRepository,
	tripRepo repository.TripRepository,
	readingRepo repository.ReadingRepository,
	vehicleRepo repository.VehicleRepository,
	gate *Gate,
	continuity *ContinuityValidator,
	classifier *RegimeClassifier,
	scopeLocks redis.LockStoreInterface,
	tolerance Tolerance,
	lockTTL time.Duration,
	log *logrus.Logger,
) *PeriodLockService {
	return &PeriodLockService{
		txRunner:    txRunner,
		lockRepo:    lockRepo,
		tripRepo:    tripRepo,
		readingRepo: readingRepo,
		vehicleRepo: vehicleRepo,
		gate:        gate,
		continuity:  continuity,
		classifier:  classifier,
		scopeLocks:  scopeLocks,
		tolerance:   tolerance,
		lockTTL:     lockTTL,
		log:         log,
	}
}

// Lock closes the period for the given scope. Locking an already-locked
// period is a no-op success and appends no audit entry. A period with any
// failing record never locks; the error enumerates the offending ids.
func (s *PeriodLockService) Lock(ctx context.Context, principal domain.Principal, scope, periodKey string) (*domain.PeriodLock, error) {
	if err := requireOp(s.gate, principal, OpPeriodLock, ""); err != nil {
		return nil, err
	}
	if scope == "" {
		return nil, ErrInvalidScope
	}

	start, end, err := domain.ParsePeriodKey(periodKey)
	if err != nil {
		return nil, err
	}

	vehicles, err := s.scopeVehicles(ctx, scope)
	if err != nil {
		return nil, err
	}

	// Serialize against ledger writes and competing lock attempts. Ledger
	// writes hold (vehicle, month) keys, so the lock attempt takes every
	// such key its window covers; an in-flight write anywhere in the window
	// surfaces as contention instead of racing the re-check.
	release, err := s.acquireWindow(ctx, vehicles, start, end)
	if err != nil {
		return nil, err
	}
	defer release()

	existing, err := s.lockRepo.Get(ctx, scope, periodKey)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}
	if existing != nil && existing.State == domain.LockStateLocked {
		return existing, nil
	}

	failing, err := s.recheck(ctx, vehicles, start, end)
	if err != nil {
		return nil, err
	}
	if len(failing) > 0 {
		return nil, &PeriodNotReadyError{Scope: scope, PeriodKey: periodKey, RecordIDs: failing}
	}

	lock := &domain.PeriodLock{
		ID:         uuid.New().String(),
		Scope:      scope,
		PeriodKey:  periodKey,
		State:      domain.LockStateLocked,
		StartsAt:   start,
		EndsBefore: end,
		LockedBy:   principal.ID,
		LockedAt:   time.Now(),
	}

	err = s.txRunner.WithinTx(ctx, func(repos repository.TxRepos) error {
		if err := repos.PeriodLocks.Create(ctx, lock); err != nil {
			return err
		}
		return repos.Audit.Append(ctx, &domain.AuditEntry{
			SubjectType: domain.SubjectPeriodLock,
			SubjectID:   lock.ID,
			Op:          domain.AuditOpCreate,
			ActorID:     principal.ID,
			RecordedAt:  time.Now(),
			After:       snapshot(lock),
		})
	})
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"scope":      scope,
		"period_key": periodKey,
		"locked_by":  principal.ID,
	}).Info("period locked")

	return lock, nil
}

// Get retrieves the lock state for a (scope, periodKey) pair.
func (s *PeriodLockService) Get(ctx context.Context, principal domain.Principal, scope, periodKey string) (*domain.PeriodLock, error) {
	if err := requireOp(s.gate, principal, OpPeriodView, ""); err != nil {
		return nil, err
	}
	return s.lockRepo.Get(ctx, scope, periodKey)
}

// scopeVehicles resolves a lock scope to the vehicles it covers.
func (s *PeriodLockService) scopeVehicles(ctx context.Context, scope string) ([]*domain.Vehicle, error) {
	if scope == domain.ScopeOrganization {
		return s.vehicleRepo.GetAll(ctx)
	}
	vehicle, err := s.vehicleRepo.GetByID(ctx, scope)
	if err != nil {
		return nil, err
	}
	return []*domain.Vehicle{vehicle}, nil
}

// acquireWindow takes the (vehicle, month) scope key for every vehicle and
// month the lock window covers. All keys or none: any contention releases
// what was taken and fails the attempt. The returned func releases all
// held keys.
func (s *PeriodLockService) acquireWindow(ctx context.Context, vehicles []*domain.Vehicle, start, end time.Time) (func(), error) {
	type scopeKey struct {
		vehicleID string
		period    string
	}
	var held []scopeKey

	release := func() {
		for i := len(held) - 1; i >= 0; i-- {
			_ = s.scopeLocks.ReleaseScopeLock(ctx, held[i].vehicleID, held[i].period)
		}
	}

	for _, vehicle := range vehicles {
		for t := start; t.Before(end); t = t.AddDate(0, 1, 0) {
			period := monthKey(t)
			ok, err := s.scopeLocks.AcquireScopeLock(ctx, vehicle.ID, period, s.lockTTL)
			if err != nil {
				release()
				return nil, err
			}
			if !ok {
				release()
				return nil, ErrWriteContention
			}
			held = append(held, scopeKey{vehicleID: vehicle.ID, period: period})
		}
	}

	return release, nil
}

// recheck runs the full consistency validation over every record in the
// window: odometer continuity first, then the distance tolerance and regime
// rule per trip. Returns the ids of all failing records.
func (s *PeriodLockService) recheck(ctx context.Context, vehicles []*domain.Vehicle, start, end time.Time) ([]string, error) {
	var failing []string
	for _, vehicle := range vehicles {
		readings, err := s.readingRepo.ListByVehicleBetween(ctx, vehicle.ID, start, end)
		if err != nil {
			return nil, err
		}
		failing = append(failing, s.continuity.ValidateSequence(readings)...)

		trips, err := s.tripRepo.ListByVehicleBetween(ctx, vehicle.ID, start, end)
		if err != nil {
			return nil, err
		}

		tol := s.tolerance.ForVehicle(vehicle)
		for _, trip := range trips {
			if err := s.continuity.ValidateTripDistance(trip, tol); err != nil {
				failing = append(failing, trip.ID)
				continue
			}
			if cls := s.classifier.Classify(vehicle, trip.Purpose); !cls.Permitted {
				failing = append(failing, trip.ID)
			}
		}
	}

	return failing, nil
}
