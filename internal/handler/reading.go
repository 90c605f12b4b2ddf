package handler

import (
	"encoding/base64"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"logbook/internal/domain"
	"logbook/internal/service"
)

// ReadingHandler handles HTTP requests for odometer readings.
type ReadingHandler struct {
	readingService *service.ReadingService
}

// NewReadingHandler creates a new ReadingHandler.
func NewReadingHandler(readingService *service.ReadingService) *ReadingHandler {
	return &ReadingHandler{readingService: readingService}
}

// CreateReadingRequest is the HTTP request body for a manual reading.
type CreateReadingRequest struct {
	RecordedAt time.Time `json:"recorded_at"`
	Km         float64   `json:"km"`
}

// OCRReadingRequest is the HTTP request body for an OCR-sourced reading.
// Image is the base64-encoded odometer photo.
type OCRReadingRequest struct {
	RecordedAt time.Time `json:"recorded_at"`
	Image      string    `json:"image"`
}

// ReadingResponse is the HTTP response for reading operations.
type ReadingResponse struct {
	ID         string  `json:"id"`
	VehicleID  string  `json:"vehicle_id"`
	RecordedAt string  `json:"recorded_at"`
	Km         float64 `json:"km"`
	Source     string  `json:"source"`
	Confidence float64 `json:"confidence,omitempty"`
}

func toReadingResponse(reading *domain.OdometerReading) ReadingResponse {
	return ReadingResponse{
		ID:         reading.ID,
		VehicleID:  reading.VehicleID,
		RecordedAt: reading.RecordedAt.Format(time.RFC3339),
		Km:         reading.Km,
		Source:     string(reading.Source),
		Confidence: reading.Confidence,
	}
}

// CreateReading handles POST /v1/vehicles/:id/readings
func (h *ReadingHandler) CreateReading(c *gin.Context) {
	principal, ok := requirePrincipal(c)
	if !ok {
		return
	}

	var req CreateReadingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body: " + err.Error()})
		return
	}

	reading, err := h.readingService.Create(c.Request.Context(), principal, service.CreateReadingRequest{
		VehicleID:  c.Param("id"),
		RecordedAt: req.RecordedAt,
		Km:         req.Km,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusCreated, toReadingResponse(reading))
}

// IngestOCRReading handles POST /v1/vehicles/:id/readings/ocr
func (h *ReadingHandler) IngestOCRReading(c *gin.Context) {
	principal, ok := requirePrincipal(c)
	if !ok {
		return
	}

	var req OCRReadingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body: " + err.Error()})
		return
	}

	image, err := base64.StdEncoding.DecodeString(req.Image)
	if err != nil || len(image) == 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "image must be non-empty base64"})
		return
	}

	reading, err := h.readingService.IngestOCR(c.Request.Context(), principal, c.Param("id"), req.RecordedAt, image)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusCreated, toReadingResponse(reading))
}

// ListReadings handles GET /v1/vehicles/:id/readings
func (h *ReadingHandler) ListReadings(c *gin.Context) {
	principal, ok := requirePrincipal(c)
	if !ok {
		return
	}

	readings, err := h.readingService.ListByVehicle(c.Request.Context(), principal, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	responses := make([]ReadingResponse, 0, len(readings))
	for _, reading := range readings {
		responses = append(responses, toReadingResponse(reading))
	}

	respondJSON(c, http.StatusOK, responses)
}
