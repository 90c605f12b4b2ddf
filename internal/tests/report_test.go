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
// VAT REPORT GENERATOR
// ──────────────────────────────────────────────

type reportFixture struct {
	trips    *MockTripRepository
	audit    *MockAuditRepository
	locks    *MockPeriodLockRepository
	reports  *MockReportRepository
	exporter *MockExporter
	svc      *service.ReportService
}

func newReportFixture() *reportFixture {
	f := &reportFixture{
		trips:    NewMockTripRepository(),
		audit:    NewMockAuditRepository(),
		locks:    NewMockPeriodLockRepository(),
		reports:  NewMockReportRepository(),
		exporter: &MockExporter{ArtifactRef: "artifact://reports/1"},
	}

	txRunner := NewMockTxRunner(f.trips, NewMockReadingRepository(), f.audit, f.locks, f.reports)

	f.svc = service.NewReportService(txRunner, f.reports, f.locks, f.trips,
		service.NewGate(), f.exporter, 50*time.Millisecond, 3, newTestLogger())
	return f
}

func (f *reportFixture) lockPeriod(scope, key string, start, end time.Time) {
	f.locks.AddLock(&domain.PeriodLock{
		ID:         "lock-" + scope + "-" + key,
		Scope:      scope,
		PeriodKey:  key,
		State:      domain.LockStateLocked,
		StartsAt:   start,
		EndsBefore: end,
	})
}

func (f *reportFixture) addTrip(id, vehicleID string, started time.Time, purpose domain.TripPurpose, km float64, costCents int64) {
	f.trips.AddTrip(&domain.Trip{
		ID:            id,
		VehicleID:     vehicleID,
		DriverID:      "driver-1",
		StartedAt:     started,
		EndedAt:       started.Add(time.Hour),
		Purpose:       purpose,
		DistanceKm:    km,
		CostFuelCents: costCents,
	})
}

func TestReport_UnlockedPeriodRejected(t *testing.T) {
	t.Parallel()

	f := newReportFixture()

	accountant := domain.Principal{ID: "acct-1", Role: domain.RoleAccountant}
	_, err := f.svc.Generate(context.Background(), accountant, service.GenerateReportRequest{PeriodKey: "2025-03"})
	if !errors.Is(err, service.ErrPeriodNotLocked) {
		t.Errorf("expected ErrPeriodNotLocked, got %v", err)
	}
	if f.exporter.ExportCallCount != 0 {
		t.Error("export must not run for an unlocked period")
	}
}

func TestReport_AggregatesLockedPeriod(t *testing.T) {
	t.Parallel()

	f := newReportFixture()
	start := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)
	f.lockPeriod(domain.ScopeOrganization, "2025-03", start, end)

	f.addTrip("t-1", "veh-1", start.AddDate(0, 0, 5), domain.TripPurposeBusiness, 300, 4500)
	f.addTrip("t-2", "veh-2", start.AddDate(0, 0, 10), domain.TripPurposePrivate, 100, 1500)
	// Outside the window: excluded.
	f.addTrip("t-3", "veh-1", end.AddDate(0, 0, 1), domain.TripPurposeBusiness, 999, 9900)

	accountant := domain.Principal{ID: "acct-1", Role: domain.RoleAccountant}
	report, err := f.svc.Generate(context.Background(), accountant, service.GenerateReportRequest{PeriodKey: "2025-03"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if report.TotalKm != 400 || report.BusinessKm != 300 || report.PrivateKm != 100 {
		t.Errorf("wrong totals: total=%.1f business=%.1f private=%.1f",
			report.TotalKm, report.BusinessKm, report.PrivateKm)
	}
	if report.CostTotalCents != 6000 {
		t.Errorf("expected 6000 cents, got %d", report.CostTotalCents)
	}
	if report.TripCount != 2 {
		t.Errorf("expected 2 trips, got %d", report.TripCount)
	}
	if report.State != domain.ReportStateLocked {
		t.Errorf("expected locked report, got %s", report.State)
	}
	if report.ArtifactRef != "artifact://reports/1" {
		t.Errorf("expected exporter artifact ref, got %s", report.ArtifactRef)
	}
	if len(f.audit.Entries()) != 1 {
		t.Errorf("expected 1 audit entry, got %d", len(f.audit.Entries()))
	}
}

func TestReport_RegenerationReturnsStoredReport(t *testing.T) {
	t.Parallel()

	f := newReportFixture()
	start := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)
	f.lockPeriod(domain.ScopeOrganization, "2025-03", start, end)
	f.addTrip("t-1", "veh-1", start.AddDate(0, 0, 5), domain.TripPurposeBusiness, 300, 0)

	accountant := domain.Principal{ID: "acct-1", Role: domain.RoleAccountant}
	first, err := f.svc.Generate(context.Background(), accountant, service.GenerateReportRequest{PeriodKey: "2025-03"})
	if err != nil {
		t.Fatalf("first generation failed: %v", err)
	}

	second, err := f.svc.Generate(context.Background(), accountant, service.GenerateReportRequest{PeriodKey: "2025-03"})
	if err != nil {
		t.Fatalf("regeneration failed: %v", err)
	}

	if second.ID != first.ID {
		t.Error("regeneration must return the stored report")
	}
	if second.TotalKm != first.TotalKm || second.TripCount != first.TripCount {
		t.Error("regenerated totals must be identical")
	}
	if f.exporter.ExportCallCount != 1 {
		t.Errorf("export must run once, got %d", f.exporter.ExportCallCount)
	}
	if len(f.audit.Entries()) != 1 {
		t.Errorf("regeneration must not append audit entries, got %d", len(f.audit.Entries()))
	}
}

func TestReport_VehicleScopeSatisfiedByOrgLock(t *testing.T) {
	t.Parallel()

	f := newReportFixture()
	start := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)
	f.lockPeriod(domain.ScopeOrganization, "2025-03", start, end)
	f.addTrip("t-1", "veh-1", start.AddDate(0, 0, 5), domain.TripPurposeBusiness, 300, 0)
	f.addTrip("t-2", "veh-2", start.AddDate(0, 0, 6), domain.TripPurposeBusiness, 500, 0)

	accountant := domain.Principal{ID: "acct-1", Role: domain.RoleAccountant}
	report, err := f.svc.Generate(context.Background(), accountant, service.GenerateReportRequest{
		PeriodKey: "2025-03",
		VehicleID: "veh-1",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if report.Scope != "veh-1" {
		t.Errorf("expected vehicle scope, got %s", report.Scope)
	}
	if report.TotalKm != 300 {
		t.Errorf("vehicle report must only cover that vehicle, got %.1f km", report.TotalKm)
	}
}

func TestReport_ExportTimeoutSurfacesAfterRetries(t *testing.T) {
	t.Parallel()

	f := newReportFixture()
	start := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)
	f.lockPeriod(domain.ScopeOrganization, "2025-03", start, end)
	f.addTrip("t-1", "veh-1", start.AddDate(0, 0, 5), domain.TripPurposeBusiness, 300, 0)
	f.exporter.Hang = true

	accountant := domain.Principal{ID: "acct-1", Role: domain.RoleAccountant}
	_, err := f.svc.Generate(context.Background(), accountant, service.GenerateReportRequest{PeriodKey: "2025-03"})
	if !errors.Is(err, service.ErrExternalServiceTimeout) {
		t.Errorf("expected ErrExternalServiceTimeout, got %v", err)
	}
	if f.exporter.ExportCallCount != 3 {
		t.Errorf("expected 3 attempts, got %d", f.exporter.ExportCallCount)
	}
	if f.reports.CreateCallCount != 0 {
		t.Error("failed export must not persist a report")
	}
	if len(f.audit.Entries()) != 0 {
		t.Error("failed export must not append audit entries")
	}
}

func TestReport_ViewerMayNotGenerate(t *testing.T) {
	t.Parallel()

	f := newReportFixture()

	viewer := domain.Principal{ID: "view-1", Role: domain.RoleViewer}
	_, err := f.svc.Generate(context.Background(), viewer, service.GenerateReportRequest{PeriodKey: "2025-03"})
	if !errors.Is(err, service.ErrUnauthorized) {
		t.Errorf("expected ErrUnauthorized, got %v", err)
	}
}
