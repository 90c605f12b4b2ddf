package tests

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"logbook/internal/config"
	"logbook/internal/domain"
	"logbook/internal/service"
)

// ──────────────────────────────────────────────
// TRIP LEDGER
// ──────────────────────────────────────────────

type ledgerFixture struct {
	trips     *MockTripRepository
	readings  *MockReadingRepository
	audit     *MockAuditRepository
	locks     *MockPeriodLockRepository
	reports   *MockReportRepository
	vehicles  *MockVehicleRepository
	lockStore *MockLockStore
	ledger    *service.TripLedger
}

func newLedgerFixture() *ledgerFixture {
	f := &ledgerFixture{
		trips:     NewMockTripRepository(),
		readings:  NewMockReadingRepository(),
		audit:     NewMockAuditRepository(),
		locks:     NewMockPeriodLockRepository(),
		reports:   NewMockReportRepository(),
		vehicles:  NewMockVehicleRepository(),
		lockStore: NewMockLockStore(),
	}

	txRunner := NewMockTxRunner(f.trips, f.readings, f.audit, f.locks, f.reports)
	tolerance := service.Tolerance{Mode: config.TolerancePercent, Pct: 5.0}

	f.ledger = service.NewTripLedger(txRunner, f.trips, f.vehicles, f.locks,
		service.NewGate(), service.NewContinuityValidator(), service.NewRegimeClassifier(),
		f.lockStore, tolerance, 30*time.Second, newTestLogger())
	return f
}

func mixedVehicle(id string) *domain.Vehicle {
	return &domain.Vehicle{
		ID:           id,
		Registration: "AB-123-C",
		Ownership:    domain.OwnershipCompany,
		Regime:       domain.VatRegimeMixed,
		Active:       true,
	}
}

func floatPtr(v float64) *float64 { return &v }

func validTripRequest(vehicleID, driverID string) service.CreateTripRequest {
	started := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	return service.CreateTripRequest{
		VehicleID:  vehicleID,
		DriverID:   driverID,
		StartedAt:  started,
		EndedAt:    started.Add(time.Hour),
		Purpose:    domain.TripPurposeBusiness,
		DistanceKm: 42,
	}
}

func TestLedger_CreateTrip(t *testing.T) {
	t.Parallel()

	f := newLedgerFixture()
	f.vehicles.AddVehicle(mixedVehicle("veh-1"))

	driver := domain.Principal{ID: "driver-1", Role: domain.RoleDriver}
	trip, err := f.ledger.Create(context.Background(), driver, validTripRequest("veh-1", "driver-1"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if f.trips.GetTrip(trip.ID) == nil {
		t.Fatal("trip not persisted")
	}
	if released := f.lockStore.ReleaseCallCount; released != 1 {
		t.Errorf("expected scope lock released once, got %d", released)
	}
}

func TestLedger_PrivateTripOnFullBusinessVehicleRejected(t *testing.T) {
	t.Parallel()

	f := newLedgerFixture()
	f.vehicles.AddVehicle(&domain.Vehicle{
		ID:           "veh-1",
		Registration: "AB-123-C",
		Regime:       domain.VatRegimeFullBusiness,
		Active:       true,
	})

	driver := domain.Principal{ID: "driver-1", Role: domain.RoleDriver}
	req := validTripRequest("veh-1", "driver-1")
	req.Purpose = domain.TripPurposePrivate

	_, err := f.ledger.Create(context.Background(), driver, req)
	if !errors.Is(err, service.ErrPrivateTripOnFullBusinessVehicle) {
		t.Errorf("expected ErrPrivateTripOnFullBusinessVehicle, got %v", err)
	}
	if f.trips.Count() != 0 {
		t.Errorf("expected no trips persisted, got %d", f.trips.Count())
	}
	if len(f.audit.Entries()) != 0 {
		t.Error("rejected write must not produce an audit entry")
	}
}

func TestLedger_ConcurrentPrivateTripsAllRejected(t *testing.T) {
	t.Parallel()

	f := newLedgerFixture()
	f.vehicles.AddVehicle(&domain.Vehicle{
		ID:     "veh-1",
		Regime: domain.VatRegimeFullBusiness,
		Active: true,
	})

	driver := domain.Principal{ID: "driver-1", Role: domain.RoleDriver}

	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			req := validTripRequest("veh-1", "driver-1")
			// Spread across months so contention does not mask the rule.
			req.StartedAt = req.StartedAt.AddDate(0, i, 0)
			req.EndedAt = req.StartedAt.Add(time.Hour)
			req.Purpose = domain.TripPurposePrivate
			_, errs[i] = f.ledger.Create(context.Background(), driver, req)
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if !errors.Is(err, service.ErrPrivateTripOnFullBusinessVehicle) {
			t.Errorf("attempt %d: expected ErrPrivateTripOnFullBusinessVehicle, got %v", i, err)
		}
	}
	if f.trips.Count() != 0 {
		t.Errorf("expected no trips persisted, got %d", f.trips.Count())
	}
}

func TestLedger_CreateAppendsExactlyOneAuditEntry(t *testing.T) {
	t.Parallel()

	f := newLedgerFixture()
	f.vehicles.AddVehicle(mixedVehicle("veh-1"))

	driver := domain.Principal{ID: "driver-1", Role: domain.RoleDriver}
	trip, err := f.ledger.Create(context.Background(), driver, validTripRequest("veh-1", "driver-1"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	entries := f.audit.Entries()
	if len(entries) != 1 {
		t.Fatalf("expected exactly 1 audit entry, got %d", len(entries))
	}

	entry := entries[0]
	if entry.SubjectType != domain.SubjectTrip || entry.SubjectID != trip.ID {
		t.Errorf("audit entry targets %s/%s, want %s/%s",
			entry.SubjectType, entry.SubjectID, domain.SubjectTrip, trip.ID)
	}
	if entry.Op != domain.AuditOpCreate {
		t.Errorf("expected create op, got %s", entry.Op)
	}
	if entry.ActorID != "driver-1" {
		t.Errorf("expected actor driver-1, got %s", entry.ActorID)
	}
	if entry.Before != nil {
		t.Error("create entry must not carry a before snapshot")
	}

	var after domain.Trip
	if err := json.Unmarshal(entry.After, &after); err != nil {
		t.Fatalf("after snapshot not valid JSON: %v", err)
	}
	if after.ID != trip.ID || after.DistanceKm != trip.DistanceKm {
		t.Error("after snapshot does not match the persisted trip")
	}
}

func TestLedger_AuditAppendFailureRollsBackTrip(t *testing.T) {
	t.Parallel()

	f := newLedgerFixture()
	f.vehicles.AddVehicle(mixedVehicle("veh-1"))
	f.audit.AppendError = errors.New("audit store unavailable")

	driver := domain.Principal{ID: "driver-1", Role: domain.RoleDriver}
	_, err := f.ledger.Create(context.Background(), driver, validTripRequest("veh-1", "driver-1"))
	if err == nil {
		t.Fatal("expected error when audit append fails")
	}

	if f.trips.Count() != 0 {
		t.Errorf("trip must not survive a failed audit append, got %d trips", f.trips.Count())
	}
}

func TestLedger_WriteIntoLockedPeriodRejected(t *testing.T) {
	t.Parallel()

	f := newLedgerFixture()
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
	_, err := f.ledger.Create(context.Background(), driver, validTripRequest("veh-1", "driver-1"))
	if !errors.Is(err, service.ErrPeriodLocked) {
		t.Errorf("expected ErrPeriodLocked, got %v", err)
	}
	if f.trips.Count() != 0 {
		t.Error("locked period write must not persist")
	}
}

func TestLedger_UpdateMovingTripIntoLockedPeriodRejected(t *testing.T) {
	t.Parallel()

	f := newLedgerFixture()
	f.vehicles.AddVehicle(mixedVehicle("veh-1"))

	started := time.Date(2025, 4, 10, 9, 0, 0, 0, time.UTC)
	f.trips.AddTrip(&domain.Trip{
		ID:         "trip-1",
		VehicleID:  "veh-1",
		DriverID:   "driver-1",
		StartedAt:  started,
		EndedAt:    started.Add(time.Hour),
		Purpose:    domain.TripPurposeBusiness,
		DistanceKm: 42,
	})
	f.locks.AddLock(&domain.PeriodLock{
		ID:         "lock-1",
		Scope:      domain.ScopeOrganization,
		PeriodKey:  "2025-03",
		State:      domain.LockStateLocked,
		StartsAt:   time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		EndsBefore: time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC),
	})

	driver := domain.Principal{ID: "driver-1", Role: domain.RoleDriver}
	moved := time.Date(2025, 3, 15, 9, 0, 0, 0, time.UTC)
	movedEnd := moved.Add(time.Hour)
	_, err := f.ledger.Update(context.Background(), driver, "trip-1", service.UpdateTripRequest{
		StartedAt: &moved,
		EndedAt:   &movedEnd,
	})
	if !errors.Is(err, service.ErrPeriodLocked) {
		t.Errorf("expected ErrPeriodLocked, got %v", err)
	}
}

func TestLedger_DriverCannotEditAnotherDriversTrip(t *testing.T) {
	t.Parallel()

	f := newLedgerFixture()
	f.vehicles.AddVehicle(mixedVehicle("veh-1"))

	started := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	f.trips.AddTrip(&domain.Trip{
		ID:         "trip-1",
		VehicleID:  "veh-1",
		DriverID:   "driver-1",
		StartedAt:  started,
		EndedAt:    started.Add(time.Hour),
		Purpose:    domain.TripPurposeBusiness,
		DistanceKm: 42,
	})

	distance := 50.0

	other := domain.Principal{ID: "driver-2", Role: domain.RoleDriver}
	_, err := f.ledger.Update(context.Background(), other, "trip-1", service.UpdateTripRequest{DistanceKm: &distance})
	if !errors.Is(err, service.ErrUnauthorized) {
		t.Errorf("expected ErrUnauthorized for other driver, got %v", err)
	}

	accountant := domain.Principal{ID: "acct-1", Role: domain.RoleAccountant}
	updated, err := f.ledger.Update(context.Background(), accountant, "trip-1", service.UpdateTripRequest{DistanceKm: &distance})
	if err != nil {
		t.Fatalf("accountant update failed: %v", err)
	}
	if updated.DistanceKm != 50.0 {
		t.Errorf("expected distance 50, got %.1f", updated.DistanceKm)
	}
}

func TestLedger_DeleteAppendsBeforeSnapshot(t *testing.T) {
	t.Parallel()

	f := newLedgerFixture()
	f.vehicles.AddVehicle(mixedVehicle("veh-1"))

	started := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	f.trips.AddTrip(&domain.Trip{
		ID:         "trip-1",
		VehicleID:  "veh-1",
		DriverID:   "driver-1",
		StartedAt:  started,
		EndedAt:    started.Add(time.Hour),
		Purpose:    domain.TripPurposeBusiness,
		DistanceKm: 42,
	})

	accountant := domain.Principal{ID: "acct-1", Role: domain.RoleAccountant}
	if err := f.ledger.Delete(context.Background(), accountant, "trip-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if f.trips.GetTrip("trip-1") != nil {
		t.Error("trip should be deleted")
	}

	entries := f.audit.Entries()
	if len(entries) != 1 {
		t.Fatalf("expected 1 audit entry, got %d", len(entries))
	}
	if entries[0].Op != domain.AuditOpDelete {
		t.Errorf("expected delete op, got %s", entries[0].Op)
	}
	if entries[0].Before == nil || entries[0].After != nil {
		t.Error("delete entry must carry before and no after")
	}
}

func TestLedger_InactiveVehicleRejected(t *testing.T) {
	t.Parallel()

	f := newLedgerFixture()
	vehicle := mixedVehicle("veh-1")
	vehicle.Active = false
	f.vehicles.AddVehicle(vehicle)

	driver := domain.Principal{ID: "driver-1", Role: domain.RoleDriver}
	_, err := f.ledger.Create(context.Background(), driver, validTripRequest("veh-1", "driver-1"))
	if !errors.Is(err, service.ErrVehicleInactive) {
		t.Errorf("expected ErrVehicleInactive, got %v", err)
	}
}

func TestLedger_WriteContentionSurfaces(t *testing.T) {
	t.Parallel()

	f := newLedgerFixture()
	f.vehicles.AddVehicle(mixedVehicle("veh-1"))
	f.lockStore.FailAcquire = true

	driver := domain.Principal{ID: "driver-1", Role: domain.RoleDriver}
	_, err := f.ledger.Create(context.Background(), driver, validTripRequest("veh-1", "driver-1"))
	if !errors.Is(err, service.ErrWriteContention) {
		t.Errorf("expected ErrWriteContention, got %v", err)
	}
}

func TestLedger_DistanceMismatchRejected(t *testing.T) {
	t.Parallel()

	f := newLedgerFixture()
	f.vehicles.AddVehicle(mixedVehicle("veh-1"))

	driver := domain.Principal{ID: "driver-1", Role: domain.RoleDriver}
	req := validTripRequest("veh-1", "driver-1")
	req.DistanceKm = 50
	req.StartKm = floatPtr(1000)
	req.EndKm = floatPtr(1100)

	_, err := f.ledger.Create(context.Background(), driver, req)
	if !errors.Is(err, service.ErrDistanceMismatch) {
		t.Errorf("expected ErrDistanceMismatch, got %v", err)
	}
}

func TestLedger_LinkedZeroKmStartAccepted(t *testing.T) {
	t.Parallel()

	f := newLedgerFixture()
	f.vehicles.AddVehicle(mixedVehicle("veh-1"))

	// Factory-new vehicle: a linked start of 0.0 km is a real reading,
	// not an absent one.
	driver := domain.Principal{ID: "driver-1", Role: domain.RoleDriver}
	req := validTripRequest("veh-1", "driver-1")
	req.StartKm = floatPtr(0)
	req.EndKm = floatPtr(42)

	trip, err := f.ledger.Create(context.Background(), driver, req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !trip.HasOdometerLink() {
		t.Error("zero-km start must still link the trip to its readings")
	}
	if trip.StartKm != 0 || trip.EndKm != 42 {
		t.Errorf("expected linked readings 0/42, got %.1f/%.1f", trip.StartKm, trip.EndKm)
	}
}

func TestLedger_HalfLinkedKmRejected(t *testing.T) {
	t.Parallel()

	f := newLedgerFixture()
	f.vehicles.AddVehicle(mixedVehicle("veh-1"))

	driver := domain.Principal{ID: "driver-1", Role: domain.RoleDriver}
	req := validTripRequest("veh-1", "driver-1")
	req.StartKm = floatPtr(1000)

	_, err := f.ledger.Create(context.Background(), driver, req)
	if !errors.Is(err, service.ErrInvalidKm) {
		t.Errorf("start without end must be rejected, got %v", err)
	}
}

func TestLedger_CrossMonthMoveHoldsDestinationScope(t *testing.T) {
	t.Parallel()

	f := newLedgerFixture()
	f.vehicles.AddVehicle(mixedVehicle("veh-1"))

	started := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	f.trips.AddTrip(&domain.Trip{
		ID:         "trip-1",
		VehicleID:  "veh-1",
		DriverID:   "driver-1",
		StartedAt:  started,
		EndedAt:    started.Add(time.Hour),
		Purpose:    domain.TripPurposeBusiness,
		DistanceKm: 42,
	})

	// Another writer holds the destination month.
	ctx := context.Background()
	if ok, err := f.lockStore.AcquireScopeLock(ctx, "veh-1", "2025-04", time.Minute); err != nil || !ok {
		t.Fatalf("pre-holding destination key failed: ok=%v err=%v", ok, err)
	}

	driver := domain.Principal{ID: "driver-1", Role: domain.RoleDriver}
	moved := time.Date(2025, 4, 15, 9, 0, 0, 0, time.UTC)
	movedEnd := moved.Add(time.Hour)
	_, err := f.ledger.Update(ctx, driver, "trip-1", service.UpdateTripRequest{
		StartedAt: &moved,
		EndedAt:   &movedEnd,
	})
	if !errors.Is(err, service.ErrWriteContention) {
		t.Errorf("move into a held month must contend, got %v", err)
	}

	if got := f.trips.GetTrip("trip-1"); got == nil || !got.StartedAt.Equal(started) {
		t.Error("contended move must leave the trip in its source period")
	}
}
