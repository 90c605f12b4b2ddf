package domain

import "time"

// TripPurpose represents the declared purpose of a trip.
type TripPurpose string

const (
	TripPurposeBusiness TripPurpose = "business"
	TripPurposePrivate  TripPurpose = "private"
)

// Trip represents a single recorded vehicle movement.
type Trip struct {
	ID            string
	VehicleID     string
	DriverID      string
	StartedAt     time.Time
	EndedAt       time.Time
	StartLocation string
	EndLocation   string
	Purpose       TripPurpose
	DistanceKm    float64

	// Linked odometer state. StartKm/EndKm are meaningful only when
	// OdometerLinked is set; a linked reading of 0.0 km is valid
	// (factory-new vehicle).
	OdometerLinked bool
	StartKm        float64
	EndKm          float64

	// Cost annotations in cents of the reporting currency.
	CostFuelCents    int64
	CostTollCents    int64
	CostParkingCents int64
	CostOtherCents   int64

	CreatedAt time.Time
	UpdatedAt time.Time
}

// HasOdometerLink reports whether start and end readings are linked.
func (t *Trip) HasOdometerLink() bool {
	return t.OdometerLinked
}

// CostTotalCents returns the sum of all cost annotations.
func (t *Trip) CostTotalCents() int64 {
	return t.CostFuelCents + t.CostTollCents + t.CostParkingCents + t.CostOtherCents
}
