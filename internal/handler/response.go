package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"logbook/internal/domain"
	"logbook/internal/middleware"
	"logbook/internal/repository"
	"logbook/internal/service"
)

// ErrorResponse represents an error response. Records carries the ids
// blocking a period lock when the error is PeriodNotReady.
type ErrorResponse struct {
	Error   string   `json:"error"`
	Records []string `json:"records,omitempty"`
}

// respondError sends an error response with the appropriate HTTP status code.
func respondError(c *gin.Context, err error) {
	code := mapErrorToHTTPStatus(err)

	resp := ErrorResponse{Error: err.Error()}
	var notReady *service.PeriodNotReadyError
	if errors.As(err, &notReady) {
		resp.Records = notReady.RecordIDs
	}

	c.JSON(code, resp)
}

// respondJSON sends a JSON response with the given status code.
func respondJSON(c *gin.Context, code int, data any) {
	c.JSON(code, data)
}

// requirePrincipal pulls the authenticated principal set by the auth
// middleware, aborting with 401 when absent.
func requirePrincipal(c *gin.Context) (domain.Principal, bool) {
	principal, ok := middleware.PrincipalFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "authentication required"})
	}
	return principal, ok
}

// mapErrorToHTTPStatus maps service/repository errors to HTTP status codes.
func mapErrorToHTTPStatus(err error) int {
	switch {
	// Not found errors
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound

	// Authorization denials
	case errors.Is(err, service.ErrUnauthorized):
		return http.StatusForbidden

	// Validation errors - Bad Request
	case errors.Is(err, service.ErrInvalidVehicleID),
		errors.Is(err, service.ErrInvalidDriverID),
		errors.Is(err, service.ErrInvalidTripID),
		errors.Is(err, service.ErrInvalidReadingID),
		errors.Is(err, service.ErrInvalidTimeRange),
		errors.Is(err, service.ErrInvalidDistance),
		errors.Is(err, service.ErrInvalidPurpose),
		errors.Is(err, service.ErrInvalidKm),
		errors.Is(err, service.ErrInvalidScope),
		errors.Is(err, domain.ErrInvalidPeriodKey):
		return http.StatusBadRequest

	// Conflict errors
	case errors.Is(err, service.ErrPeriodLocked),
		errors.Is(err, service.ErrPeriodNotReady),
		errors.Is(err, service.ErrPeriodNotLocked),
		errors.Is(err, service.ErrWriteContention),
		errors.Is(err, service.ErrVehicleInactive):
		return http.StatusConflict

	// Domain-rule violations
	case errors.Is(err, service.ErrDecreasingOdometer),
		errors.Is(err, service.ErrExceedsNextReading),
		errors.Is(err, service.ErrDuplicateTimestamp),
		errors.Is(err, service.ErrDistanceMismatch),
		errors.Is(err, service.ErrPrivateTripOnFullBusinessVehicle):
		return http.StatusUnprocessableEntity

	// External collaborator timeouts - retryable
	case errors.Is(err, service.ErrExternalServiceTimeout):
		return http.StatusGatewayTimeout

	// Default to internal server error
	default:
		return http.StatusInternalServerError
	}
}
