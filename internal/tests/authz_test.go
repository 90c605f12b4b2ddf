package tests

import (
	"testing"

	"logbook/internal/domain"
	"logbook/internal/service"
)

// ──────────────────────────────────────────────
// AUTHORIZATION GATE
// ──────────────────────────────────────────────

func TestGate_RoleCapabilities(t *testing.T) {
	t.Parallel()

	gate := service.NewGate()

	cases := []struct {
		name    string
		role    domain.Role
		op      service.Operation
		ownerID string
		allowed bool
	}{
		{"admin locks periods", domain.RoleAdmin, service.OpPeriodLock, "", true},
		{"admin manages vehicles", domain.RoleAdmin, service.OpVehicleManage, "", true},
		{"accountant locks periods", domain.RoleAccountant, service.OpPeriodLock, "", true},
		{"accountant generates reports", domain.RoleAccountant, service.OpReportGenerate, "", true},
		{"accountant may not manage vehicles", domain.RoleAccountant, service.OpVehicleManage, "", false},
		{"driver creates own trip", domain.RoleDriver, service.OpTripCreate, "driver-1", true},
		{"driver may not create another's trip", domain.RoleDriver, service.OpTripCreate, "driver-2", false},
		{"driver may not lock periods", domain.RoleDriver, service.OpPeriodLock, "", false},
		{"driver may not view audit", domain.RoleDriver, service.OpAuditView, "", false},
		{"driver may not generate reports", domain.RoleDriver, service.OpReportGenerate, "", false},
		{"viewer views trips", domain.RoleViewer, service.OpTripView, "", true},
		{"viewer views reports", domain.RoleViewer, service.OpReportView, "", true},
		{"viewer may not create trips", domain.RoleViewer, service.OpTripCreate, "viewer-1", false},
		{"viewer may not lock periods", domain.RoleViewer, service.OpPeriodLock, "", false},
		{"unknown role denied everything", domain.Role("intern"), service.OpTripView, "", false},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			principal := domain.Principal{ID: "driver-1", Role: tc.role}
			decision := gate.Authorize(principal, tc.op, tc.ownerID)
			if decision.Allowed != tc.allowed {
				t.Errorf("Authorize(%s, %s, %q) = %v, want %v (reason: %s)",
					tc.role, tc.op, tc.ownerID, decision.Allowed, tc.allowed, decision.Reason)
			}
			if !decision.Allowed && decision.Reason == "" {
				t.Error("denial must carry a reason")
			}
		})
	}
}

func TestGate_DriverOwnershipAppliesOnlyToMutations(t *testing.T) {
	t.Parallel()

	gate := service.NewGate()
	driver := domain.Principal{ID: "driver-1", Role: domain.RoleDriver}

	// Viewing another driver's trip is allowed; mutating it is not.
	if d := gate.Authorize(driver, service.OpTripView, "driver-2"); !d.Allowed {
		t.Errorf("driver should view other trips: %s", d.Reason)
	}
	if d := gate.Authorize(driver, service.OpTripUpdate, "driver-2"); d.Allowed {
		t.Error("driver must not update another driver's trip")
	}
	if d := gate.Authorize(driver, service.OpTripDelete, "driver-2"); d.Allowed {
		t.Error("driver must not delete another driver's trip")
	}
}

func TestGate_AccountantActsOnAnyDriversRecords(t *testing.T) {
	t.Parallel()

	gate := service.NewGate()
	accountant := domain.Principal{ID: "acct-1", Role: domain.RoleAccountant}

	if d := gate.Authorize(accountant, service.OpTripUpdate, "driver-2"); !d.Allowed {
		t.Errorf("accountant should update any trip: %s", d.Reason)
	}
	if d := gate.Authorize(accountant, service.OpTripDelete, "driver-2"); !d.Allowed {
		t.Errorf("accountant should delete any trip: %s", d.Reason)
	}
}
