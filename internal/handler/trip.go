package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"logbook/internal/domain"
	"logbook/internal/service"
)

// TripHandler handles HTTP requests for trip ledger entries.
type TripHandler struct {
	ledger *service.TripLedger
}

// NewTripHandler creates a new TripHandler.
func NewTripHandler(ledger *service.TripLedger) *TripHandler {
	return &TripHandler{ledger: ledger}
}

// CreateTripRequest is the HTTP request body for recording a trip.
type CreateTripRequest struct {
	VehicleID     string    `json:"vehicle_id"`
	DriverID      string    `json:"driver_id"`
	StartedAt     time.Time `json:"started_at"`
	EndedAt       time.Time `json:"ended_at"`
	StartLocation string    `json:"start_location,omitempty"`
	EndLocation   string    `json:"end_location,omitempty"`
	Purpose       string    `json:"purpose"` // business, private
	DistanceKm    float64   `json:"distance_km"`

	// Both present links the trip to its odometer readings; a linked
	// reading may be 0.0.
	StartKm *float64 `json:"start_km,omitempty"`
	EndKm   *float64 `json:"end_km,omitempty"`

	CostFuelCents    int64 `json:"cost_fuel_cents,omitempty"`
	CostTollCents    int64 `json:"cost_toll_cents,omitempty"`
	CostParkingCents int64 `json:"cost_parking_cents,omitempty"`
	CostOtherCents   int64 `json:"cost_other_cents,omitempty"`
}

// UpdateTripRequest is the HTTP request body for patching a trip. Absent
// fields are left unchanged.
type UpdateTripRequest struct {
	StartedAt     *time.Time `json:"started_at,omitempty"`
	EndedAt       *time.Time `json:"ended_at,omitempty"`
	StartLocation *string    `json:"start_location,omitempty"`
	EndLocation   *string    `json:"end_location,omitempty"`
	Purpose       *string    `json:"purpose,omitempty"`
	DistanceKm    *float64   `json:"distance_km,omitempty"`
	StartKm       *float64   `json:"start_km,omitempty"`
	EndKm         *float64   `json:"end_km,omitempty"`

	CostFuelCents    *int64 `json:"cost_fuel_cents,omitempty"`
	CostTollCents    *int64 `json:"cost_toll_cents,omitempty"`
	CostParkingCents *int64 `json:"cost_parking_cents,omitempty"`
	CostOtherCents   *int64 `json:"cost_other_cents,omitempty"`
}

// TripResponse is the HTTP response for trip operations.
type TripResponse struct {
	ID            string  `json:"id"`
	VehicleID     string  `json:"vehicle_id"`
	DriverID      string  `json:"driver_id"`
	StartedAt     string  `json:"started_at"`
	EndedAt       string  `json:"ended_at"`
	StartLocation string  `json:"start_location,omitempty"`
	EndLocation   string  `json:"end_location,omitempty"`
	Purpose       string  `json:"purpose"`
	DistanceKm    float64 `json:"distance_km"`

	OdometerLinked bool    `json:"odometer_linked"`
	StartKm        float64 `json:"start_km,omitempty"`
	EndKm          float64 `json:"end_km,omitempty"`

	CostFuelCents    int64 `json:"cost_fuel_cents,omitempty"`
	CostTollCents    int64 `json:"cost_toll_cents,omitempty"`
	CostParkingCents int64 `json:"cost_parking_cents,omitempty"`
	CostOtherCents   int64 `json:"cost_other_cents,omitempty"`
	CostTotalCents   int64 `json:"cost_total_cents"`
}

func toTripResponse(trip *domain.Trip) TripResponse {
	return TripResponse{
		ID:               trip.ID,
		VehicleID:        trip.VehicleID,
		DriverID:         trip.DriverID,
		StartedAt:        trip.StartedAt.Format(time.RFC3339),
		EndedAt:          trip.EndedAt.Format(time.RFC3339),
		StartLocation:    trip.StartLocation,
		EndLocation:      trip.EndLocation,
		Purpose:          string(trip.Purpose),
		DistanceKm:       trip.DistanceKm,
		OdometerLinked:   trip.OdometerLinked,
		StartKm:          trip.StartKm,
		EndKm:            trip.EndKm,
		CostFuelCents:    trip.CostFuelCents,
		CostTollCents:    trip.CostTollCents,
		CostParkingCents: trip.CostParkingCents,
		CostOtherCents:   trip.CostOtherCents,
		CostTotalCents:   trip.CostTotalCents(),
	}
}

// CreateTrip handles POST /v1/trips
func (h *TripHandler) CreateTrip(c *gin.Context) {
	principal, ok := requirePrincipal(c)
	if !ok {
		return
	}

	var req CreateTripRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body: " + err.Error()})
		return
	}

	trip, err := h.ledger.Create(c.Request.Context(), principal, service.CreateTripRequest{
		VehicleID:        req.VehicleID,
		DriverID:         req.DriverID,
		StartedAt:        req.StartedAt,
		EndedAt:          req.EndedAt,
		StartLocation:    req.StartLocation,
		EndLocation:      req.EndLocation,
		Purpose:          domain.TripPurpose(req.Purpose),
		DistanceKm:       req.DistanceKm,
		StartKm:          req.StartKm,
		EndKm:            req.EndKm,
		CostFuelCents:    req.CostFuelCents,
		CostTollCents:    req.CostTollCents,
		CostParkingCents: req.CostParkingCents,
		CostOtherCents:   req.CostOtherCents,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusCreated, toTripResponse(trip))
}

// UpdateTrip handles PATCH /v1/trips/:id
func (h *TripHandler) UpdateTrip(c *gin.Context) {
	principal, ok := requirePrincipal(c)
	if !ok {
		return
	}

	var req UpdateTripRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body: " + err.Error()})
		return
	}

	patch := service.UpdateTripRequest{
		StartedAt:        req.StartedAt,
		EndedAt:          req.EndedAt,
		StartLocation:    req.StartLocation,
		EndLocation:      req.EndLocation,
		DistanceKm:       req.DistanceKm,
		StartKm:          req.StartKm,
		EndKm:            req.EndKm,
		CostFuelCents:    req.CostFuelCents,
		CostTollCents:    req.CostTollCents,
		CostParkingCents: req.CostParkingCents,
		CostOtherCents:   req.CostOtherCents,
	}
	if req.Purpose != nil {
		purpose := domain.TripPurpose(*req.Purpose)
		patch.Purpose = &purpose
	}

	trip, err := h.ledger.Update(c.Request.Context(), principal, c.Param("id"), patch)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toTripResponse(trip))
}

// DeleteTrip handles DELETE /v1/trips/:id
func (h *TripHandler) DeleteTrip(c *gin.Context) {
	principal, ok := requirePrincipal(c)
	if !ok {
		return
	}

	if err := h.ledger.Delete(c.Request.Context(), principal, c.Param("id")); err != nil {
		respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// GetTrip handles GET /v1/trips/:id
func (h *TripHandler) GetTrip(c *gin.Context) {
	principal, ok := requirePrincipal(c)
	if !ok {
		return
	}

	trip, err := h.ledger.Get(c.Request.Context(), principal, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toTripResponse(trip))
}

// GetAllTrips handles GET /v1/trips
func (h *TripHandler) GetAllTrips(c *gin.Context) {
	principal, ok := requirePrincipal(c)
	if !ok {
		return
	}

	trips, err := h.ledger.GetAll(c.Request.Context(), principal)
	if err != nil {
		respondError(c, err)
		return
	}

	responses := make([]TripResponse, 0, len(trips))
	for _, trip := range trips {
		responses = append(responses, toTripResponse(trip))
	}

	respondJSON(c, http.StatusOK, responses)
}
