package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"logbook/internal/domain"
	"logbook/internal/service"
)

// VehicleHandler handles HTTP requests for vehicles.
type VehicleHandler struct {
	vehicleService *service.VehicleService
}

// NewVehicleHandler creates a new VehicleHandler.
func NewVehicleHandler(vehicleService *service.VehicleService) *VehicleHandler {
	return &VehicleHandler{vehicleService: vehicleService}
}

// SyncVehicleRequest is the HTTP request body for the fleet-management sync.
type SyncVehicleRequest struct {
	ID           string  `json:"id"`
	Registration string  `json:"registration"`
	Ownership    string  `json:"ownership"` // company, private
	Regime       string  `json:"regime"`    // 100_business, 50_mixed, 0_private
	StartingKm   float64 `json:"starting_km"`
	Active       bool    `json:"active"`
	TolerancePct float64 `json:"tolerance_pct,omitempty"`
	ToleranceKm  float64 `json:"tolerance_km,omitempty"`
}

// VehicleResponse is the HTTP response for vehicle operations.
type VehicleResponse struct {
	ID           string  `json:"id"`
	Registration string  `json:"registration"`
	Ownership    string  `json:"ownership"`
	Regime       string  `json:"regime"`
	StartingKm   float64 `json:"starting_km"`
	Active       bool    `json:"active"`
	TolerancePct float64 `json:"tolerance_pct,omitempty"`
	ToleranceKm  float64 `json:"tolerance_km,omitempty"`
}

// BusinessUseResponse is the HTTP response for the business-use query.
type BusinessUseResponse struct {
	VehicleID          string  `json:"vehicle_id"`
	From               string  `json:"from"`
	To                 string  `json:"to"`
	BusinessUsePercent float64 `json:"business_use_percent"`
}

func toVehicleResponse(vehicle *domain.Vehicle) VehicleResponse {
	return VehicleResponse{
		ID:           vehicle.ID,
		Registration: vehicle.Registration,
		Ownership:    string(vehicle.Ownership),
		Regime:       string(vehicle.Regime),
		StartingKm:   vehicle.StartingKm,
		Active:       vehicle.Active,
		TolerancePct: vehicle.TolerancePct,
		ToleranceKm:  vehicle.ToleranceKm,
	}
}

// SyncVehicle handles POST /v1/vehicles
func (h *VehicleHandler) SyncVehicle(c *gin.Context) {
	principal, ok := requirePrincipal(c)
	if !ok {
		return
	}

	var req SyncVehicleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body: " + err.Error()})
		return
	}

	vehicle, err := h.vehicleService.Sync(c.Request.Context(), principal, service.SyncVehicleRequest{
		ID:           req.ID,
		Registration: req.Registration,
		Ownership:    domain.OwnershipType(req.Ownership),
		Regime:       domain.VatRegime(req.Regime),
		StartingKm:   req.StartingKm,
		Active:       req.Active,
		TolerancePct: req.TolerancePct,
		ToleranceKm:  req.ToleranceKm,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusCreated, toVehicleResponse(vehicle))
}

// GetVehicle handles GET /v1/vehicles/:id
func (h *VehicleHandler) GetVehicle(c *gin.Context) {
	principal, ok := requirePrincipal(c)
	if !ok {
		return
	}

	vehicle, err := h.vehicleService.Get(c.Request.Context(), principal, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toVehicleResponse(vehicle))
}

// GetAllVehicles handles GET /v1/vehicles
func (h *VehicleHandler) GetAllVehicles(c *gin.Context) {
	principal, ok := requirePrincipal(c)
	if !ok {
		return
	}

	vehicles, err := h.vehicleService.GetAll(c.Request.Context(), principal)
	if err != nil {
		respondError(c, err)
		return
	}

	responses := make([]VehicleResponse, 0, len(vehicles))
	for _, vehicle := range vehicles {
		responses = append(responses, toVehicleResponse(vehicle))
	}

	respondJSON(c, http.StatusOK, responses)
}

// GetBusinessUse handles GET /v1/vehicles/:id/business-use?from=...&to=...
// The window defaults to the trailing twelve months.
func (h *VehicleHandler) GetBusinessUse(c *gin.Context) {
	principal, ok := requirePrincipal(c)
	if !ok {
		return
	}

	to := time.Now().UTC()
	from := to.AddDate(-1, 0, 0)

	if raw := c.Query("from"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "from must be RFC3339"})
			return
		}
		from = parsed
	}
	if raw := c.Query("to"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "to must be RFC3339"})
			return
		}
		to = parsed
	}

	share, err := h.vehicleService.BusinessUse(c.Request.Context(), principal, c.Param("id"), from, to)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, BusinessUseResponse{
		VehicleID:          c.Param("id"),
		From:               from.Format(time.RFC3339),
		To:                 to.Format(time.RFC3339),
		BusinessUsePercent: share,
	})
}
