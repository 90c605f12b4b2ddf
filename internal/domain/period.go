package domain

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// LockState represents the state of a reporting period.
type LockState string

const (
	LockStateOpen   LockState = "open"
	LockStateLocked LockState = "locked"
)

// ScopeOrganization is the lock scope covering every vehicle. Any other
// scope value is a vehicle id.
const ScopeOrganization = "org"

// PeriodLock represents the closure state of one reporting window for one
// scope. Once locked, the transition back to open is not offered.
type PeriodLock struct {
	ID        string
	Scope     string
	PeriodKey string
	State     LockState

	// Window covered by PeriodKey: [StartsAt, EndsBefore).
	StartsAt   time.Time
	EndsBefore time.Time

	LockedBy string
	LockedAt time.Time
}

// ErrInvalidPeriodKey is returned when a period key is not of the form
// "YYYY-MM" or "YYYY-Qn".
var ErrInvalidPeriodKey = errors.New("invalid period key")

// ParsePeriodKey resolves a period key into its UTC half-open window.
// Supported forms: "2025-01" (month) and "2025-Q1" (quarter).
func ParsePeriodKey(key string) (start, end time.Time, err error) {
	parts := strings.SplitN(key, "-", 2)
	if len(parts) != 2 {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: %q", ErrInvalidPeriodKey, key)
	}

	year, yerr := strconv.Atoi(parts[0])
	if yerr != nil || year < 1 {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: %q", ErrInvalidPeriodKey, key)
	}

	if q, ok := strings.CutPrefix(parts[1], "Q"); ok {
		quarter, qerr := strconv.Atoi(q)
		if qerr != nil || quarter < 1 || quarter > 4 {
			return time.Time{}, time.Time{}, fmt.Errorf("%w: %q", ErrInvalidPeriodKey, key)
		}
		start = time.Date(year, time.Month((quarter-1)*3+1), 1, 0, 0, 0, 0, time.UTC)
		return start, start.AddDate(0, 3, 0), nil
	}

	month, merr := strconv.Atoi(parts[1])
	if merr != nil || month < 1 || month > 12 {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: %q", ErrInvalidPeriodKey, key)
	}
	start = time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 1, 0), nil
}

// Contains reports whether t falls inside the lock's window.
func (p *PeriodLock) Contains(t time.Time) bool {
	return !t.Before(p.StartsAt) && t.Before(p.EndsBefore)
}

// Covers reports whether the lock applies to the given vehicle.
func (p *PeriodLock) Covers(vehicleID string) bool {
	return p.Scope == ScopeOrganization || p.Scope == vehicleID
}
