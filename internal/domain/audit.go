package domain

import (
	"encoding/json"
	"time"
)

// AuditOp represents the kind of mutation an audit entry records.
type AuditOp string

const (
	AuditOpCreate AuditOp = "create"
	AuditOpUpdate AuditOp = "update"
	AuditOpDelete AuditOp = "delete"
)

// Audit subject types.
const (
	SubjectTrip       = "trip"
	SubjectReading    = "odometer_reading"
	SubjectPeriodLock = "period_lock"
	SubjectVatReport  = "vat_report"
)

// AuditEntry is an immutable record of a single change. Entries are only
// ever appended; no update or delete capability exists at any layer.
type AuditEntry struct {
	ID          int64
	SubjectType string
	SubjectID   string
	Op          AuditOp
	ActorID     string
	RecordedAt  time.Time

	// Full snapshots of the subject record. Before is empty for creates,
	// After is empty for deletes.
	Before json.RawMessage
	After  json.RawMessage
}
