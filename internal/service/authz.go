package service

import (
	"fmt"

	"logbook/internal/domain"
)

// Operation identifies one core operation for authorization purposes.
type Operation string

const (
	OpTripCreate     Operation = "trip.create"
	OpTripUpdate     Operation = "trip.update"
	OpTripDelete     Operation = "trip.delete"
	OpTripView       Operation = "trip.view"
	OpReadingCreate  Operation = "reading.create"
	OpReadingView    Operation = "reading.view"
	OpPeriodLock     Operation = "period.lock"
	OpPeriodView     Operation = "period.view"
	OpReportGenerate Operation = "report.generate"
	OpReportView     Operation = "report.view"
	OpAuditView      Operation = "audit.view"
	OpVehicleManage  Operation = "vehicle.manage"
	OpVehicleView    Operation = "vehicle.view"
)

// ownedOperations are the operations a driver may only perform on their own
// records.
var ownedOperations = map[Operation]bool{
	OpTripCreate: true,
	OpTripUpdate: true,
	OpTripDelete: true,
}

// capabilities is the full role → operation table. Authorization is a pure
// lookup here; no call site carries its own role conditionals.
var capabilities = map[domain.Role]map[Operation]bool{
	domain.RoleAdmin: {
		OpTripCreate: true, OpTripUpdate: true, OpTripDelete: true, OpTripView: true,
		OpReadingCreate: true, OpReadingView: true,
		OpPeriodLock: true, OpPeriodView: true,
		OpReportGenerate: true, OpReportView: true,
		OpAuditView:     true,
		OpVehicleManage: true, OpVehicleView: true,
	},
	domain.RoleAccountant: {
		OpTripCreate: true, OpTripUpdate: true, OpTripDelete: true, OpTripView: true,
		OpReadingCreate: true, OpReadingView: true,
		OpPeriodLock: true, OpPeriodView: true,
		OpReportGenerate: true, OpReportView: true,
		OpAuditView:   true,
		OpVehicleView: true,
	},
	domain.RoleDriver: {
		OpTripCreate: true, OpTripUpdate: true, OpTripDelete: true, OpTripView: true,
		OpReadingCreate: true, OpReadingView: true,
		OpPeriodView:  true,
		OpVehicleView: true,
	},
	domain.RoleViewer: {
		OpTripView: true, OpReadingView: true,
		OpPeriodView: true, OpReportView: true,
		OpVehicleView: true,
	},
}

// Decision is the result of an authorization check. Denial is a value, not
// an exception: callers use Reason for the user-facing message.
type Decision struct {
	Allowed bool
	Reason  string
}

func allow() Decision {
	return Decision{Allowed: true}
}

func deny(format string, args ...any) Decision {
	return Decision{Allowed: false, Reason: fmt.Sprintf(format, args...)}
}

// Gate answers allow/deny for (principal, operation, resource owner). It is
// stateless and side-effect free.
type Gate struct{}

// NewGate creates a Gate.
func NewGate() *Gate {
	return &Gate{}
}

// Authorize decides whether the principal may perform op. ownerID is the
// driver owning the target resource; empty when ownership does not apply.
func (g *Gate) Authorize(p domain.Principal, op Operation, ownerID string) Decision {
	ops, ok := capabilities[p.Role]
	if !ok {
		return deny("unknown role %q", p.Role)
	}

	if !ops[op] {
		return deny("role %s may not perform %s", p.Role, op)
	}

	// Drivers act only on their own records.
	if p.Role == domain.RoleDriver && ownedOperations[op] && ownerID != p.ID {
		return deny("drivers may only modify their own trips")
	}

	return allow()
}

// requireOp converts a denial into the Unauthorized error kind, keeping the
// gate's reason for the caller's message.
func requireOp(g *Gate, p domain.Principal, op Operation, ownerID string) error {
	if d := g.Authorize(p, op, ownerID); !d.Allowed {
		return fmt.Errorf("%w: %s", ErrUnauthorized, d.Reason)
	}
	return nil
}
