package service

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnauthorized is returned when the principal's role does not permit
	// the operation.
	ErrUnauthorized = errors.New("operation not permitted")

	// ErrPeriodLocked is returned when a write targets a locked period.
	ErrPeriodLocked = errors.New("period is locked")

	// ErrPeriodNotReady is returned when a period cannot be locked because
	// records inside it fail the consistency re-check.
	ErrPeriodNotReady = errors.New("period not ready to lock")

	// ErrPeriodNotLocked is returned when a report is requested for a
	// period that is not locked.
	ErrPeriodNotLocked = errors.New("period is not locked")

	// ErrDecreasingOdometer is returned when a reading is below its
	// preceding reading.
	ErrDecreasingOdometer = errors.New("odometer value below preceding reading")

	// ErrExceedsNextReading is returned when a reading is above its
	// following reading.
	ErrExceedsNextReading = errors.New("odometer value above following reading")

	// ErrDuplicateTimestamp is returned when a reading collides with an
	// existing reading's timestamp.
	ErrDuplicateTimestamp = errors.New("duplicate reading timestamp")

	// ErrDistanceMismatch is returned when a trip's declared distance
	// deviates from its linked odometer delta beyond the tolerance.
	ErrDistanceMismatch = errors.New("declared distance does not match odometer delta")

	// ErrPrivateTripOnFullBusinessVehicle is returned when a private trip
	// is submitted for a vehicle in the 100% business regime.
	ErrPrivateTripOnFullBusinessVehicle = errors.New("private trip not permitted on 100% business vehicle")

	// ErrExternalServiceTimeout is returned when an OCR or export call
	// exceeds its deadline after all retries. Retryable by the caller.
	ErrExternalServiceTimeout = errors.New("external service timed out")

	// ErrWriteContention is returned when another write holds the
	// (vehicle, period) scope. The caller should retry.
	ErrWriteContention = errors.New("concurrent write in progress for this vehicle and period")

	// ErrVehicleInactive is returned when a write targets a deactivated
	// vehicle.
	ErrVehicleInactive = errors.New("vehicle is not active")

	// ErrInvalidVehicleID is returned when vehicle ID is empty.
	ErrInvalidVehicleID = errors.New("invalid vehicle id")

	// ErrInvalidDriverID is returned when driver ID is empty.
	ErrInvalidDriverID = errors.New("invalid driver id")

	// ErrInvalidTripID is returned when trip ID is empty.
	ErrInvalidTripID = errors.New("invalid trip id")

	// ErrInvalidReadingID is returned when reading ID is empty.
	ErrInvalidReadingID = errors.New("invalid reading id")

	// ErrInvalidTimeRange is returned when a trip ends at or before its
	// start.
	ErrInvalidTimeRange = errors.New("trip end must be after start")

	// ErrInvalidDistance is returned when declared distance is not positive.
	ErrInvalidDistance = errors.New("invalid declared distance")

	// ErrInvalidPurpose is returned when the trip purpose is unknown.
	ErrInvalidPurpose = errors.New("invalid trip purpose")

	// ErrInvalidKm is returned when an odometer value is negative.
	ErrInvalidKm = errors.New("invalid odometer value")

	// ErrInvalidScope is returned when a lock scope is empty.
	ErrInvalidScope = errors.New("invalid lock scope")
)

// PeriodNotReadyError reports the records blocking a period lock. It
// unwraps to ErrPeriodNotReady so callers can match the kind while still
// reading the offending ids.
type PeriodNotReadyError struct {
	Scope     string
	PeriodKey string
	RecordIDs []string
}

func (e *PeriodNotReadyError) Error() string {
	return fmt.Sprintf("period %s/%s not ready to lock: failing records [%s]",
		e.Scope, e.PeriodKey, strings.Join(e.RecordIDs, ", "))
}

func (e *PeriodNotReadyError) Unwrap() error {
	return ErrPeriodNotReady
}
