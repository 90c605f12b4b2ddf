package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"logbook/internal/domain"
	"logbook/internal/service"
)

// PeriodHandler handles HTTP requests for period locks.
type PeriodHandler struct {
	lockService *service.PeriodLockService
}

// NewPeriodHandler creates a new PeriodHandler.
func NewPeriodHandler(lockService *service.PeriodLockService) *PeriodHandler {
	return &PeriodHandler{lockService: lockService}
}

// LockPeriodRequest is the HTTP request body for locking a period. Scope is
// either "org" or a vehicle id.
type LockPeriodRequest struct {
	Scope     string `json:"scope"`
	PeriodKey string `json:"period_key"`
}

// PeriodLockResponse is the HTTP response for period lock operations.
type PeriodLockResponse struct {
	ID         string `json:"id"`
	Scope      string `json:"scope"`
	PeriodKey  string `json:"period_key"`
	State      string `json:"state"`
	StartsAt   string `json:"starts_at"`
	EndsBefore string `json:"ends_before"`
	LockedBy   string `json:"locked_by,omitempty"`
	LockedAt   string `json:"locked_at,omitempty"`
}

func toPeriodLockResponse(lock *domain.PeriodLock) PeriodLockResponse {
	resp := PeriodLockResponse{
		ID:         lock.ID,
		Scope:      lock.Scope,
		PeriodKey:  lock.PeriodKey,
		State:      string(lock.State),
		StartsAt:   lock.StartsAt.Format(time.RFC3339),
		EndsBefore: lock.EndsBefore.Format(time.RFC3339),
		LockedBy:   lock.LockedBy,
	}
	if !lock.LockedAt.IsZero() {
		resp.LockedAt = lock.LockedAt.Format(time.RFC3339)
	}
	return resp
}

// LockPeriod handles POST /v1/periods/lock
func (h *PeriodHandler) LockPeriod(c *gin.Context) {
	principal, ok := requirePrincipal(c)
	if !ok {
		return
	}

	var req LockPeriodRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body: " + err.Error()})
		return
	}

	lock, err := h.lockService.Lock(c.Request.Context(), principal, req.Scope, req.PeriodKey)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toPeriodLockResponse(lock))
}

// GetPeriod handles GET /v1/periods/:scope/:key
func (h *PeriodHandler) GetPeriod(c *gin.Context) {
	principal, ok := requirePrincipal(c)
	if !ok {
		return
	}

	lock, err := h.lockService.Get(c.Request.Context(), principal, c.Param("scope"), c.Param("key"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toPeriodLockResponse(lock))
}
