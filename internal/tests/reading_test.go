package tests

import (
	"context"
	"errors"
	"testing"
	"time"

	"logbook/internal/domain"
	"logbook/internal/service"
)

// ──────────────────────────────────────────────
// ODOMETER READING SERVICE
// ──────────────────────────────────────────────

type readingFixture struct {
	readings   *MockReadingRepository
	audit      *MockAuditRepository
	locks      *MockPeriodLockRepository
	vehicles   *MockVehicleRepository
	lockStore  *MockLockStore
	recognizer *MockRecognizer
	svc        *service.ReadingService
}

func newReadingFixture() *readingFixture {
	f := &readingFixture{
		readings:   NewMockReadingRepository(),
		audit:      NewMockAuditRepository(),
		locks:      NewMockPeriodLockRepository(),
		vehicles:   NewMockVehicleRepository(),
		lockStore:  NewMockLockStore(),
		recognizer: &MockRecognizer{Result: &service.OCRResult{OdometerKm: 1200, Confidence: 0.97}},
	}

	txRunner := NewMockTxRunner(NewMockTripRepository(), f.readings, f.audit, f.locks, NewMockReportRepository())

	f.svc = service.NewReadingService(txRunner, f.readings, f.vehicles, f.locks,
		service.NewGate(), service.NewContinuityValidator(), f.lockStore, f.recognizer,
		50*time.Millisecond, 3, 30*time.Second, newTestLogger())
	return f
}

func TestReading_ManualCreate(t *testing.T) {
	t.Parallel()

	f := newReadingFixture()
	f.vehicles.AddVehicle(mixedVehicle("veh-1"))

	driver := domain.Principal{ID: "driver-1", Role: domain.RoleDriver}
	created, err := f.svc.Create(context.Background(), driver, service.CreateReadingRequest{
		VehicleID:  "veh-1",
		RecordedAt: time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC),
		Km:         1200,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if created.Source != domain.ReadingSourceManual {
		t.Errorf("expected manual source, got %s", created.Source)
	}
	if f.readings.GetReading(created.ID) == nil {
		t.Fatal("reading not persisted")
	}
	if len(f.audit.Entries()) != 1 {
		t.Errorf("expected 1 audit entry, got %d", len(f.audit.Entries()))
	}
}

func TestReading_DecreasingReadingRejected(t *testing.T) {
	t.Parallel()

	f := newReadingFixture()
	f.vehicles.AddVehicle(mixedVehicle("veh-1"))
	f.readings.AddReading(reading("r-1", time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC), 1500))

	driver := domain.Principal{ID: "driver-1", Role: domain.RoleDriver}
	_, err := f.svc.Create(context.Background(), driver, service.CreateReadingRequest{
		VehicleID:  "veh-1",
		RecordedAt: time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC),
		Km:         1400,
	})
	if !errors.Is(err, service.ErrDecreasingOdometer) {
		t.Errorf("expected ErrDecreasingOdometer, got %v", err)
	}
	if len(f.audit.Entries()) != 0 {
		t.Error("rejected reading must not produce an audit entry")
	}
}

func TestReading_LockedPeriodRejected(t *testing.T) {
	t.Parallel()

	f := newReadingFixture()
	f.vehicles.AddVehicle(mixedVehicle("veh-1"))
	f.locks.AddLock(&domain.PeriodLock{
		ID:         "lock-1",
		Scope:      domain.ScopeOrganization,
		PeriodKey:  "2025-03",
		State:      domain.LockStateLocked,
		StartsAt:   time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		EndsBefore: time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC),
	})

	driver := domain.Principal{ID: "driver-1", Role: domain.RoleDriver}
	_, err := f.svc.Create(context.Background(), driver, service.CreateReadingRequest{
		VehicleID:  "veh-1",
		RecordedAt: time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC),
		Km:         1200,
	})
	if !errors.Is(err, service.ErrPeriodLocked) {
		t.Errorf("expected ErrPeriodLocked, got %v", err)
	}
}

func TestReading_OCRStoresConfidence(t *testing.T) {
	t.Parallel()

	f := newReadingFixture()
	f.vehicles.AddVehicle(mixedVehicle("veh-1"))
	// Low confidence is data, not an error.
	f.recognizer.Result = &service.OCRResult{OdometerKm: 1200, Confidence: 0.41}

	driver := domain.Principal{ID: "driver-1", Role: domain.RoleDriver}
	created, err := f.svc.IngestOCR(context.Background(), driver, "veh-1",
		time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC), []byte("image-bytes"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if created.Source != domain.ReadingSourceOCR {
		t.Errorf("expected ocr source, got %s", created.Source)
	}
	if created.Confidence != 0.41 {
		t.Errorf("expected confidence 0.41, got %.2f", created.Confidence)
	}
	if created.Km != 1200 {
		t.Errorf("expected 1200 km, got %.1f", created.Km)
	}
}

func TestReading_OCRTimeoutAfterRetries(t *testing.T) {
	t.Parallel()

	f := newReadingFixture()
	f.vehicles.AddVehicle(mixedVehicle("veh-1"))
	f.recognizer.Hang = true

	driver := domain.Principal{ID: "driver-1", Role: domain.RoleDriver}
	_, err := f.svc.IngestOCR(context.Background(), driver, "veh-1",
		time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC), []byte("image-bytes"))
	if !errors.Is(err, service.ErrExternalServiceTimeout) {
		t.Errorf("expected ErrExternalServiceTimeout, got %v", err)
	}
	if f.recognizer.RecognizeCallCount != 3 {
		t.Errorf("expected 3 attempts, got %d", f.recognizer.RecognizeCallCount)
	}
	if f.readings.CreateCallCount != 0 {
		t.Error("timed-out recognition must not persist a reading")
	}
}

func TestReading_OCRResultStillPassesContinuity(t *testing.T) {
	t.Parallel()

	f := newReadingFixture()
	f.vehicles.AddVehicle(mixedVehicle("veh-1"))
	f.readings.AddReading(reading("r-1", time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC), 1500))
	f.recognizer.Result = &service.OCRResult{OdometerKm: 1400, Confidence: 0.99}

	driver := domain.Principal{ID: "driver-1", Role: domain.RoleDriver}
	_, err := f.svc.IngestOCR(context.Background(), driver, "veh-1",
		time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC), []byte("image-bytes"))
	if !errors.Is(err, service.ErrDecreasingOdometer) {
		t.Errorf("ocr readings must pass continuity: expected ErrDecreasingOdometer, got %v", err)
	}
}

func TestReading_ViewerMayNotCreate(t *testing.T) {
	t.Parallel()

	f := newReadingFixture()
	f.vehicles.AddVehicle(mixedVehicle("veh-1"))

	viewer := domain.Principal{ID: "view-1", Role: domain.RoleViewer}
	_, err := f.svc.Create(context.Background(), viewer, service.CreateReadingRequest{
		VehicleID:  "veh-1",
		RecordedAt: time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC),
		Km:         1200,
	})
	if !errors.Is(err, service.ErrUnauthorized) {
		t.Errorf("expected ErrUnauthorized, got %v", err)
	}
}
