package service

import (
	"fmt"
	"time"

	"logbook/internal/domain"
)

// Classification is the result of checking a trip purpose against a
// vehicle's VAT regime. Blocked is distinct from any odometer failure so
// the caller can surface the vehicle-specific rule.
type Classification struct {
	Permitted     bool
	FlagForReview bool
	Reason        string
}

// RegimeClassifier decides, per vehicle and per trip, whether a trip
// purpose is permitted under the vehicle's declared VAT regime.
type RegimeClassifier struct{}

// NewRegimeClassifier creates a RegimeClassifier.
func NewRegimeClassifier() *RegimeClassifier {
	return &RegimeClassifier{}
}

// Classify applies the regime rule table.
//
//	100_business: business permitted, private blocked
//	50_mixed:     both permitted
//	0_private:    both permitted, business flagged for review
func (c *RegimeClassifier) Classify(vehicle *domain.Vehicle, purpose domain.TripPurpose) Classification {
	if vehicle.Regime == domain.VatRegimeFullBusiness && purpose == domain.TripPurposePrivate {
		return Classification{
			Permitted: false,
			Reason:    fmt.Sprintf("vehicle %s is declared 100%% business use", vehicle.Registration),
		}
	}

	if vehicle.Regime == domain.VatRegimePrivate && purpose == domain.TripPurposeBusiness {
		return Classification{Permitted: true, FlagForReview: true,
			Reason: "business trip on privately-held vehicle"}
	}

	return Classification{Permitted: true}
}

// classifyErr converts a blocked classification into its error kind.
func (c *RegimeClassifier) classifyErr(vehicle *domain.Vehicle, purpose domain.TripPurpose) error {
	if cls := c.Classify(vehicle, purpose); !cls.Permitted {
		return fmt.Errorf("%w: %s", ErrPrivateTripOnFullBusinessVehicle, cls.Reason)
	}
	return nil
}

// BusinessUseShare computes the rolling business-use percentage of a
// vehicle over the trips whose start falls in [from, to). Pure aggregation:
// used for reporting and risk flags, never to block writes. Returns 0 when
// the window holds no distance.
func (c *RegimeClassifier) BusinessUseShare(trips []*domain.Trip, from, to time.Time) float64 {
	var businessKm, totalKm float64
	for _, trip := range trips {
		if trip.StartedAt.Before(from) || !trip.StartedAt.Before(to) {
			continue
		}
		totalKm += trip.DistanceKm
		if trip.Purpose == domain.TripPurposeBusiness {
			businessKm += trip.DistanceKm
		}
	}

	if totalKm == 0 {
		return 0
	}
	return businessKm / totalKm * 100
}
