package domain

// OwnershipType represents who owns a vehicle.
type OwnershipType string

const (
	OwnershipCompany OwnershipType = "company"
	OwnershipPrivate OwnershipType = "private"
)

// VatRegime represents the declared VAT/ownership regime of a vehicle.
type VatRegime string

const (
	VatRegimeFullBusiness VatRegime = "100_business"
	VatRegimeMixed        VatRegime = "50_mixed"
	VatRegimePrivate      VatRegime = "0_private"
)

// Vehicle represents a fleet vehicle. Vehicles are supplied by the fleet
// management collaborator; the core reads them as given.
type Vehicle struct {
	ID           string
	Registration string
	Ownership    OwnershipType
	Regime       VatRegime
	StartingKm   float64
	Active       bool

	// Per-vehicle overrides for the distance matching tolerance.
	// Zero means the configured policy default applies.
	TolerancePct float64
	ToleranceKm  float64
}
