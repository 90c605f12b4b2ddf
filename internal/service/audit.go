package service

import (
	"context"

	"logbook/internal/domain"
	"logbook/internal/repository"
)

// AuditService exposes read access to the audit log. Writes happen only
// inside ledger transactions; there is no mutation surface here.
type AuditService struct {
	auditRepo repository.AuditRepository
	gate      *Gate
	listLimit int
}

// NewAuditService creates a new AuditService.
func NewAuditService(auditRepo repository.AuditRepository, gate *Gate, listLimit int) *AuditService {
	return &AuditService{auditRepo: auditRepo, gate: gate, listLimit: listLimit}
}

// ListBySubject retrieves the change history of one record, oldest first.
func (s *AuditService) ListBySubject(ctx context.Context, principal domain.Principal, subjectType, subjectID string) ([]*domain.AuditEntry, error) {
	if err := requireOp(s.gate, principal, OpAuditView, ""); err != nil {
		return nil, err
	}
	return s.auditRepo.ListBySubject(ctx, subjectType, subjectID)
}

// ListRecent retrieves the most recent audit entries, newest first.
func (s *AuditService) ListRecent(ctx context.Context, principal domain.Principal) ([]*domain.AuditEntry, error) {
	if err := requireOp(s.gate, principal, OpAuditView, ""); err != nil {
		return nil, err
	}
	return s.auditRepo.ListRecent(ctx, s.listLimit)
}
