package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"logbook/internal/domain"
	"logbook/internal/service"
)

// AuditHandler handles HTTP requests for the audit log. Read-only.
type AuditHandler struct {
	auditService *service.AuditService
}

// NewAuditHandler creates a new AuditHandler.
func NewAuditHandler(auditService *service.AuditService) *AuditHandler {
	return &AuditHandler{auditService: auditService}
}

// AuditEntryResponse is the HTTP representation of one audit entry.
type AuditEntryResponse struct {
	ID          int64           `json:"id"`
	SubjectType string          `json:"subject_type"`
	SubjectID   string          `json:"subject_id"`
	Op          string          `json:"op"`
	ActorID     string          `json:"actor_id"`
	RecordedAt  string          `json:"recorded_at"`
	Before      json.RawMessage `json:"before,omitempty"`
	After       json.RawMessage `json:"after,omitempty"`
}

func toAuditEntryResponse(entry *domain.AuditEntry) AuditEntryResponse {
	return AuditEntryResponse{
		ID:          entry.ID,
		SubjectType: entry.SubjectType,
		SubjectID:   entry.SubjectID,
		Op:          string(entry.Op),
		ActorID:     entry.ActorID,
		RecordedAt:  entry.RecordedAt.Format(time.RFC3339),
		Before:      entry.Before,
		After:       entry.After,
	}
}

// ListAudit handles GET /v1/audit. With subject_type and subject_id query
// params it returns one record's history, oldest first; without them it
// returns the most recent entries, newest first.
func (h *AuditHandler) ListAudit(c *gin.Context) {
	principal, ok := requirePrincipal(c)
	if !ok {
		return
	}

	subjectType := c.Query("subject_type")
	subjectID := c.Query("subject_id")

	var (
		entries []*domain.AuditEntry
		err     error
	)
	if subjectType != "" && subjectID != "" {
		entries, err = h.auditService.ListBySubject(c.Request.Context(), principal, subjectType, subjectID)
	} else {
		entries, err = h.auditService.ListRecent(c.Request.Context(), principal)
	}
	if err != nil {
		respondError(c, err)
		return
	}

	responses := make([]AuditEntryResponse, 0, len(entries))
	for _, entry := range entries {
		responses = append(responses, toAuditEntryResponse(entry))
	}

	respondJSON(c, http.StatusOK, responses)
}
