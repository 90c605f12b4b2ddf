package domain

import "time"

// ReportState represents the lifecycle state of a VAT report.
type ReportState string

const (
	ReportStateDraft  ReportState = "draft"
	ReportStateLocked ReportState = "locked"
)

// VatReport aggregates the trips of one locked period into the totals the
// statutory filing requires. A report handed to a caller is always locked.
type VatReport struct {
	ID        string
	Scope     string
	PeriodKey string

	TotalKm        float64
	BusinessKm     float64
	PrivateKm      float64
	CostTotalCents int64
	TripCount      int

	State       ReportState
	ArtifactRef string
	GeneratedBy string
	GeneratedAt time.Time
}
