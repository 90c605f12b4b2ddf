package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"logbook/internal/domain"
	"logbook/internal/redis"
	"logbook/internal/repository"
)

// ReadingService handles odometer reading writes. Readings go through the
// same gate → period lock → continuity → audited commit pipeline as trips.
type ReadingService struct {
	txRunner    repository.TxRunner
	readingRepo repository.ReadingRepository
	vehicleRepo repository.VehicleRepository
	lockRepo    repository.PeriodLockRepository
	gate        *Gate
	continuity  *ContinuityValidator
	scopeLocks  redis.LockStoreInterface
	recognizer  Recognizer
	ocrTimeout  time.Duration
	retries     int
	lockTTL     time.Duration
	log         *logrus.Logger
}

// NewReadingService creates a new ReadingService.
func NewReadingService(
	txRunner repository.TxRunner,
	readingRepo repository.ReadingRepository,
	vehicleRepo repository.VehicleRepository,
	lockRepo repository.PeriodLockRepository,
	gate *Gate,
	continuity *ContinuityValidator,
	scopeLocks redis.LockStoreInterface,
	recognizer Recognizer,
	ocrTimeout time.Duration,
	retries int,
	lockTTL time.Duration,
	log *logrus.Logger,
) *ReadingService {
	return &ReadingService{
		txRunner:    txRunner,
		readingRepo: readingRepo,
		vehicleRepo: vehicleRepo,
		lockRepo:    lockRepo,
		gate:        gate,
		continuity:  continuity,
		scopeLocks:  scopeLocks,
		recognizer:  recognizer,
		ocrTimeout:  ocrTimeout,
		retries:     retries,
		lockTTL:     lockTTL,
		log:         log,
	}
}

// CreateReadingRequest contains the parameters for recording a manual
// odometer reading.
type CreateReadingRequest struct {
	VehicleID  string
	RecordedAt time.Time
	Km         float64
}

// Create records a manual odometer reading.
func (s *ReadingService) Create(ctx context.Context, principal domain.Principal, req CreateReadingRequest) (*domain.OdometerReading, error) {
	reading := &domain.OdometerReading{
		ID:         uuid.New().String(),
		VehicleID:  req.VehicleID,
		RecordedAt: req.RecordedAt,
		Km:         req.Km,
		Source:     domain.ReadingSourceManual,
		CreatedAt:  time.Now(),
	}

	return s.create(ctx, principal, reading)
}

// IngestOCR recognizes an odometer photo through the external OCR service
// and records the result. A low-confidence recognition is stored with its
// confidence, not rejected.
func (s *ReadingService) IngestOCR(ctx context.Context, principal domain.Principal, vehicleID string, recordedAt time.Time, image []byte) (*domain.OdometerReading, error) {
	if err := requireOp(s.gate, principal, OpReadingCreate, principal.ID); err != nil {
		return nil, err
	}
	if vehicleID == "" {
		return nil, ErrInvalidVehicleID
	}

	result, err := callExternal(ctx, s.ocrTimeout, s.retries, func(ctx context.Context) (*OCRResult, error) {
		return s.recognizer.Recognize(ctx, image)
	})
	if err != nil {
		return nil, err
	}

	reading := &domain.OdometerReading{
		ID:         uuid.New().String(),
		VehicleID:  vehicleID,
		RecordedAt: recordedAt,
		Km:         result.OdometerKm,
		Source:     domain.ReadingSourceOCR,
		Confidence: result.Confidence,
		CreatedAt:  time.Now(),
	}

	return s.create(ctx, principal, reading)
}

func (s *ReadingService) create(ctx context.Context, principal domain.Principal, reading *domain.OdometerReading) (*domain.OdometerReading, error) {
	if err := requireOp(s.gate, principal, OpReadingCreate, principal.ID); err != nil {
		return nil, err
	}
	if reading.VehicleID == "" {
		return nil, ErrInvalidVehicleID
	}
	if reading.Km < 0 {
		return nil, ErrInvalidKm
	}

	vehicle, err := s.vehicleRepo.GetByID(ctx, reading.VehicleID)
	if err != nil {
		return nil, err
	}
	if !vehicle.Active {
		return nil, ErrVehicleInactive
	}

	period := monthKey(reading.RecordedAt)
	ok, err := s.scopeLocks.AcquireScopeLock(ctx, reading.VehicleID, period, s.lockTTL)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrWriteContention
	}
	defer func() {
		_ = s.scopeLocks.ReleaseScopeLock(ctx, reading.VehicleID, period)
	}()

	lock, err := s.lockRepo.FindCovering(ctx, reading.VehicleID, reading.RecordedAt)
	if err != nil {
		return nil, err
	}
	if lock != nil {
		return nil, fmt.Errorf("%w: %s/%s", ErrPeriodLocked, lock.Scope, lock.PeriodKey)
	}

	existing, err := s.readingRepo.ListByVehicle(ctx, reading.VehicleID)
	if err != nil {
		return nil, err
	}
	if err := s.continuity.Validate(reading, existing); err != nil {
		return nil, err
	}

	err = s.txRunner.WithinTx(ctx, func(repos repository.TxRepos) error {
		if err := repos.Readings.Create(ctx, reading); err != nil {
			return err
		}
		return repos.Audit.Append(ctx, &domain.AuditEntry{
			SubjectType: domain.SubjectReading,
			SubjectID:   reading.ID,
			Op:          domain.AuditOpCreate,
			ActorID:     principal.ID,
			RecordedAt:  time.Now(),
			After:       snapshot(reading),
		})
	})
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"reading_id": reading.ID,
		"vehicle_id": reading.VehicleID,
		"source":     reading.Source,
	}).Info("odometer reading recorded")

	return reading, nil
}

// ListByVehicle retrieves a vehicle's readings ordered by recording time.
func (s *ReadingService) ListByVehicle(ctx context.Context, principal domain.Principal, vehicleID string) ([]*domain.OdometerReading, error) {
	if err := requireOp(s.gate, principal, OpReadingView, ""); err != nil {
		return nil, err
	}
	if vehicleID == "" {
		return nil, ErrInvalidVehicleID
	}
	return s.readingRepo.ListByVehicle(ctx, vehicleID)
}
