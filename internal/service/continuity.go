package service

import (
	"fmt"
	"math"
	"sort"

	"logbook/internal/config"
	"logbook/internal/domain"
)

// Tolerance is the allowed deviation between a trip's declared distance and
// its linked odometer delta.
type Tolerance struct {
	Mode config.ToleranceMode
	Pct  float64
	Km   float64
}

// ForVehicle applies a vehicle's tolerance overrides to the policy default.
func (t Tolerance) ForVehicle(v *domain.Vehicle) Tolerance {
	out := t
	if v.TolerancePct > 0 {
		out.Mode = config.TolerancePercent
		out.Pct = v.TolerancePct
	}
	if v.ToleranceKm > 0 {
		out.Mode = config.ToleranceAbsolute
		out.Km = v.ToleranceKm
	}
	return out
}

// Within reports whether actual is an acceptable odometer delta for the
// declared distance.
func (t Tolerance) Within(declared, actual float64) bool {
	deviation := math.Abs(actual - declared)
	if t.Mode == config.ToleranceAbsolute {
		return deviation <= t.Km
	}
	return deviation <= declared*t.Pct/100
}

// ContinuityValidator checks that a vehicle's odometer readings form a
// non-decreasing, gap-consistent sequence. It is pure: it never mutates or
// auto-corrects, only reports.
type ContinuityValidator struct{}

// NewContinuityValidator creates a ContinuityValidator.
func NewContinuityValidator() *ContinuityValidator {
	return &ContinuityValidator{}
}

// Validate checks a candidate reading against the vehicle's existing
// readings, which must be ordered by recording time. The candidate must sit
// between the values of the readings bracketing its timestamp; equality is
// allowed (stationary vehicle).
func (v *ContinuityValidator) Validate(candidate *domain.OdometerReading, existing []*domain.OdometerReading) error {
	if candidate.Km < 0 {
		return ErrInvalidKm
	}

	// Index of the first existing reading at or after the candidate.
	idx := sort.Search(len(existing), func(i int) bool {
		return !existing[i].RecordedAt.Before(candidate.RecordedAt)
	})

	if idx < len(existing) && existing[idx].RecordedAt.Equal(candidate.RecordedAt) && existing[idx].ID != candidate.ID {
		return fmt.Errorf("%w: vehicle %s at %s", ErrDuplicateTimestamp, candidate.VehicleID, candidate.RecordedAt.Format("2006-01-02T15:04:05Z07:00"))
	}

	if idx > 0 {
		prev := existing[idx-1]
		if candidate.Km < prev.Km {
			return fmt.Errorf("%w: %.1f km after reading %s at %.1f km", ErrDecreasingOdometer, candidate.Km, prev.ID, prev.Km)
		}
	}

	if idx < len(existing) {
		next := existing[idx]
		if candidate.Km > next.Km {
			return fmt.Errorf("%w: %.1f km before reading %s at %.1f km", ErrExceedsNextReading, candidate.Km, next.ID, next.Km)
		}
	}

	return nil
}

// ValidateSequence re-checks a full ordered sequence of readings and
// returns the ids of readings that break continuity. Used by the period
// lock re-check, where already-persisted data may have been backfilled.
func (v *ContinuityValidator) ValidateSequence(readings []*domain.OdometerReading) []string {
	var failing []string
	for i := 1; i < len(readings); i++ {
		if readings[i].Km < readings[i-1].Km {
			failing = append(failing, readings[i].ID)
		}
	}
	return failing
}

// ValidateTripDistance checks a trip's linked odometer readings against its
// declared distance. Trips without a full odometer link are skipped.
// Violations are reported, never corrected: silent correction outside
// driver or accountant review would defeat the audit purpose.
func (v *ContinuityValidator) ValidateTripDistance(trip *domain.Trip, tol Tolerance) error {
	if !trip.HasOdometerLink() {
		return nil
	}

	delta := trip.EndKm - trip.StartKm
	if delta < 0 || !tol.Within(trip.DistanceKm, delta) {
		return fmt.Errorf("%w: trip %s declares %.1f km, odometer delta %.1f km",
			ErrDistanceMismatch, trip.ID, trip.DistanceKm, delta)
	}

	return nil
}
