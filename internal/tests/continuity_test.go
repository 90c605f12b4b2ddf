package tests

import (
	"errors"
	"testing"
	"time"

	"logbook/internal/config"
	"logbook/internal/domain"
	"logbook/internal/service"
)

// ──────────────────────────────────────────────
// ODOMETER CONTINUITY VALIDATOR
// ──────────────────────────────────────────────

func reading(id string, at time.Time, km float64) *domain.OdometerReading {
	return &domain.OdometerReading{
		ID:         id,
		VehicleID:  "veh-1",
		RecordedAt: at,
		Km:         km,
		Source:     domain.ReadingSourceManual,
	}
}

func TestContinuity_DecreasingOdometerRejected(t *testing.T) {
	t.Parallel()

	v := service.NewContinuityValidator()
	base := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)

	existing := []*domain.OdometerReading{
		reading("r-1", base, 500),
	}

	candidate := reading("r-2", base.Add(24*time.Hour), 400)
	err := v.Validate(candidate, existing)
	if !errors.Is(err, service.ErrDecreasingOdometer) {
		t.Errorf("expected ErrDecreasingOdometer, got %v", err)
	}
}

func TestContinuity_ExceedsNextReadingRejected(t *testing.T) {
	t.Parallel()

	v := service.NewContinuityValidator()
	base := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)

	existing := []*domain.OdometerReading{
		reading("r-1", base, 500),
		reading("r-2", base.Add(48*time.Hour), 600),
	}

	// Backfilled between the two, but above the later reading.
	candidate := reading("r-3", base.Add(24*time.Hour), 700)
	err := v.Validate(candidate, existing)
	if !errors.Is(err, service.ErrExceedsNextReading) {
		t.Errorf("expected ErrExceedsNextReading, got %v", err)
	}
}

func TestContinuity_DuplicateTimestampRejected(t *testing.T) {
	t.Parallel()

	v := service.NewContinuityValidator()
	at := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)

	existing := []*domain.OdometerReading{
		reading("r-1", at, 500),
	}

	candidate := reading("r-2", at, 500)
	err := v.Validate(candidate, existing)
	if !errors.Is(err, service.ErrDuplicateTimestamp) {
		t.Errorf("expected ErrDuplicateTimestamp, got %v", err)
	}
}

func TestContinuity_EqualNeighborsAllowed(t *testing.T) {
	t.Parallel()

	v := service.NewContinuityValidator()
	base := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)

	// Stationary vehicle: same km at different times is fine.
	existing := []*domain.OdometerReading{
		reading("r-1", base, 500),
		reading("r-2", base.Add(48*time.Hour), 500),
	}

	candidate := reading("r-3", base.Add(24*time.Hour), 500)
	if err := v.Validate(candidate, existing); err != nil {
		t.Errorf("equal readings should pass: %v", err)
	}
}

func TestContinuity_InsertBetweenBracketingReadings(t *testing.T) {
	t.Parallel()

	v := service.NewContinuityValidator()
	base := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)

	existing := []*domain.OdometerReading{
		reading("r-1", base, 500),
		reading("r-2", base.Add(48*time.Hour), 600),
	}

	candidate := reading("r-3", base.Add(24*time.Hour), 550)
	if err := v.Validate(candidate, existing); err != nil {
		t.Errorf("bracketed reading should pass: %v", err)
	}
}

func TestContinuity_ValidateSequenceReportsFailingIDs(t *testing.T) {
	t.Parallel()

	v := service.NewContinuityValidator()
	base := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)

	readings := []*domain.OdometerReading{
		reading("r-1", base, 500),
		reading("r-2", base.Add(24*time.Hour), 450),
		reading("r-3", base.Add(48*time.Hour), 600),
	}

	failing := v.ValidateSequence(readings)
	if len(failing) != 1 || failing[0] != "r-2" {
		t.Errorf("expected [r-2], got %v", failing)
	}
}

// ──────────────────────────────────────────────
// TRIP DISTANCE TOLERANCE
// ──────────────────────────────────────────────

func TestTolerance_PercentMode(t *testing.T) {
	t.Parallel()

	v := service.NewContinuityValidator()
	tol := service.Tolerance{Mode: config.TolerancePercent, Pct: 5.0}

	// Declared 50 km, odometer delta 100 km: far beyond 5%.
	trip := &domain.Trip{
		ID:             "trip-1",
		DistanceKm:     50,
		OdometerLinked: true,
		StartKm:        1000,
		EndKm:          1100,
	}
	err := v.ValidateTripDistance(trip, tol)
	if !errors.Is(err, service.ErrDistanceMismatch) {
		t.Errorf("expected ErrDistanceMismatch, got %v", err)
	}

	// Within 5%.
	trip = &domain.Trip{
		ID:             "trip-2",
		DistanceKm:     100,
		OdometerLinked: true,
		StartKm:        1000,
		EndKm:          1104,
	}
	if err := v.ValidateTripDistance(trip, tol); err != nil {
		t.Errorf("4%% deviation should pass at 5%% tolerance: %v", err)
	}
}

func TestTolerance_AbsoluteMode(t *testing.T) {
	t.Parallel()

	v := service.NewContinuityValidator()
	tol := service.Tolerance{Mode: config.ToleranceAbsolute, Km: 2.0}

	trip := &domain.Trip{
		ID:             "trip-1",
		DistanceKm:     100,
		OdometerLinked: true,
		StartKm:        1000,
		EndKm:          1103,
	}
	err := v.ValidateTripDistance(trip, tol)
	if !errors.Is(err, service.ErrDistanceMismatch) {
		t.Errorf("3 km deviation should fail at 2 km tolerance, got %v", err)
	}

	trip.EndKm = 1102
	if err := v.ValidateTripDistance(trip, tol); err != nil {
		t.Errorf("2 km deviation should pass at 2 km tolerance: %v", err)
	}
}

func TestTolerance_NegativeDeltaAlwaysMismatch(t *testing.T) {
	t.Parallel()

	v := service.NewContinuityValidator()
	tol := service.Tolerance{Mode: config.TolerancePercent, Pct: 100.0}

	trip := &domain.Trip{
		ID:             "trip-1",
		DistanceKm:     10,
		OdometerLinked: true,
		StartKm:        1100,
		EndKm:          1000,
	}
	err := v.ValidateTripDistance(trip, tol)
	if !errors.Is(err, service.ErrDistanceMismatch) {
		t.Errorf("negative odometer delta must mismatch, got %v", err)
	}
}

func TestTolerance_LinkedZeroStartValidated(t *testing.T) {
	t.Parallel()

	v := service.NewContinuityValidator()
	tol := service.Tolerance{Mode: config.TolerancePercent, Pct: 5.0}

	// Factory-new vehicle: a linked start of 0.0 km still counts as linked.
	trip := &domain.Trip{
		ID:             "trip-1",
		DistanceKm:     42,
		OdometerLinked: true,
		StartKm:        0,
		EndKm:          100,
	}
	err := v.ValidateTripDistance(trip, tol)
	if !errors.Is(err, service.ErrDistanceMismatch) {
		t.Errorf("linked zero-km start must be validated, got %v", err)
	}

	trip.EndKm = 42
	if err := v.ValidateTripDistance(trip, tol); err != nil {
		t.Errorf("matching delta from 0 km should pass: %v", err)
	}
}

func TestTolerance_TripWithoutOdometerLinkSkipped(t *testing.T) {
	t.Parallel()

	v := service.NewContinuityValidator()
	tol := service.Tolerance{Mode: config.TolerancePercent, Pct: 5.0}

	trip := &domain.Trip{
		ID:         "trip-1",
		DistanceKm: 50,
	}
	if err := v.ValidateTripDistance(trip, tol); err != nil {
		t.Errorf("unlinked trip must be skipped: %v", err)
	}
}

func TestTolerance_VehicleOverrides(t *testing.T) {
	t.Parallel()

	policy := service.Tolerance{Mode: config.TolerancePercent, Pct: 5.0}

	vehicle := &domain.Vehicle{ID: "veh-1", ToleranceKm: 10.0}
	tol := policy.ForVehicle(vehicle)

	// The per-vehicle absolute tolerance wins over the policy percent.
	if !tol.Within(100, 108) {
		t.Error("8 km deviation should pass with a 10 km vehicle override")
	}
	if tol.Within(100, 111) {
		t.Error("11 km deviation should fail with a 10 km vehicle override")
	}
}
