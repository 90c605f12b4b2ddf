package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"logbook/internal/domain"
	"logbook/internal/service"
)

// ReportHandler handles HTTP requests for VAT reports.
type ReportHandler struct {
	reportService *service.ReportService
}

// NewReportHandler creates a new ReportHandler.
func NewReportHandler(reportService *service.ReportService) *ReportHandler {
	return &ReportHandler{reportService: reportService}
}

// GenerateReportRequest is the HTTP request body for generating a report.
// An empty vehicle_id requests the organization-wide report.
type GenerateReportRequest struct {
	PeriodKey string `json:"period_key"`
	VehicleID string `json:"vehicle_id,omitempty"`
}

// ReportResponse is the HTTP response for report operations.
type ReportResponse struct {
	ID             string  `json:"id"`
	Scope          string  `json:"scope"`
	PeriodKey      string  `json:"period_key"`
	TotalKm        float64 `json:"total_km"`
	BusinessKm     float64 `json:"business_km"`
	PrivateKm      float64 `json:"private_km"`
	CostTotalCents int64   `json:"cost_total_cents"`
	TripCount      int     `json:"trip_count"`
	State          string  `json:"state"`
	ArtifactRef    string  `json:"artifact_ref,omitempty"`
	GeneratedBy    string  `json:"generated_by"`
	GeneratedAt    string  `json:"generated_at"`
}

func toReportResponse(report *domain.VatReport) ReportResponse {
	return ReportResponse{
		ID:             report.ID,
		Scope:          report.Scope,
		PeriodKey:      report.PeriodKey,
		TotalKm:        report.TotalKm,
		BusinessKm:     report.BusinessKm,
		PrivateKm:      report.PrivateKm,
		CostTotalCents: report.CostTotalCents,
		TripCount:      report.TripCount,
		State:          string(report.State),
		ArtifactRef:    report.ArtifactRef,
		GeneratedBy:    report.GeneratedBy,
		GeneratedAt:    report.GeneratedAt.Format(time.RFC3339),
	}
}

// GenerateReport handles POST /v1/reports
func (h *ReportHandler) GenerateReport(c *gin.Context) {
	principal, ok := requirePrincipal(c)
	if !ok {
		return
	}

	var req GenerateReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body: " + err.Error()})
		return
	}

	report, err := h.reportService.Generate(c.Request.Context(), principal, service.GenerateReportRequest{
		PeriodKey: req.PeriodKey,
		VehicleID: req.VehicleID,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toReportResponse(report))
}

// GetReport handles GET /v1/reports/:id
func (h *ReportHandler) GetReport(c *gin.Context) {
	principal, ok := requirePrincipal(c)
	if !ok {
		return
	}

	report, err := h.reportService.Get(c.Request.Context(), principal, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toReportResponse(report))
}
