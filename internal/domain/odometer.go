package domain

import "time"

// ReadingSource represents how an odometer reading was captured.
type ReadingSource string

const (
	ReadingSourceManual  ReadingSource = "manual"
	ReadingSourceOCR     ReadingSource = "ocr"
	ReadingSourceDerived ReadingSource = "derived"
)

// OdometerReading represents a single odometer observation for a vehicle.
// For a given vehicle, readings ordered by RecordedAt must be non-decreasing
// in Km; a reading inside a locked period is immutable.
type OdometerReading struct {
	ID         string
	VehicleID  string
	RecordedAt time.Time
	Km         float64
	Source     ReadingSource

	// Confidence is only meaningful for OCR readings (0..1). A low value is
	// stored as-is, not treated as an error.
	Confidence float64

	CreatedAt time.Time
}
