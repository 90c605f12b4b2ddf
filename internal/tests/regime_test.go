package tests

import (
	"testing"
	"time"

	"logbook/internal/domain"
	"logbook/internal/service"
)

// ──────────────────────────────────────────────
// VAT REGIME CLASSIFIER
// ──────────────────────────────────────────────

func TestRegime_RuleTable(t *testing.T) {
	t.Parallel()

	classifier := service.NewRegimeClassifier()

	cases := []struct {
		name      string
		regime    domain.VatRegime
		purpose   domain.TripPurpose
		permitted bool
		flagged   bool
	}{
		{"full business + business", domain.VatRegimeFullBusiness, domain.TripPurposeBusiness, true, false},
		{"full business + private", domain.VatRegimeFullBusiness, domain.TripPurposePrivate, false, false},
		{"mixed + business", domain.VatRegimeMixed, domain.TripPurposeBusiness, true, false},
		{"mixed + private", domain.VatRegimeMixed, domain.TripPurposePrivate, true, false},
		{"private + private", domain.VatRegimePrivate, domain.TripPurposePrivate, true, false},
		{"private + business flagged", domain.VatRegimePrivate, domain.TripPurposeBusiness, true, true},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			vehicle := &domain.Vehicle{ID: "veh-1", Registration: "AB-123-C", Regime: tc.regime}
			cls := classifier.Classify(vehicle, tc.purpose)

			if cls.Permitted != tc.permitted {
				t.Errorf("Permitted = %v, want %v", cls.Permitted, tc.permitted)
			}
			if cls.FlagForReview != tc.flagged {
				t.Errorf("FlagForReview = %v, want %v", cls.FlagForReview, tc.flagged)
			}
			if !cls.Permitted && cls.Reason == "" {
				t.Error("blocked classification must carry a reason")
			}
		})
	}
}

func TestRegime_BusinessUseShare(t *testing.T) {
	t.Parallel()

	classifier := service.NewRegimeClassifier()
	from := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	trips := []*domain.Trip{
		{ID: "t-1", StartedAt: from.Add(24 * time.Hour), Purpose: domain.TripPurposeBusiness, DistanceKm: 300},
		{ID: "t-2", StartedAt: from.Add(48 * time.Hour), Purpose: domain.TripPurposePrivate, DistanceKm: 100},
		// Outside the window: ignored.
		{ID: "t-3", StartedAt: to.Add(time.Hour), Purpose: domain.TripPurposePrivate, DistanceKm: 1000},
	}

	share := classifier.BusinessUseShare(trips, from, to)
	if share != 75.0 {
		t.Errorf("expected 75%% business use, got %.1f", share)
	}
}

func TestRegime_BusinessUseShareEmptyWindow(t *testing.T) {
	t.Parallel()

	classifier := service.NewRegimeClassifier()
	from := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(1, 0, 0)

	if share := classifier.BusinessUseShare(nil, from, to); share != 0 {
		t.Errorf("expected 0 for empty window, got %.1f", share)
	}
}
