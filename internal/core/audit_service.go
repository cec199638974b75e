package core

import (
	"context"
	"fmt"

	"github.com/example/summarist/internal/db"
	"github.com/example/summarist/internal/models"
)

// auditService implements the AuditService interface.
type auditService struct {
	auditRepo db.AuditRepository
}

// NewAuditService creates a new AuditService instance.
func NewAuditService(auditRepo db.AuditRepository) AuditService {
	return &auditService{auditRepo: auditRepo}
}

func (s *auditService) CreateAuditLog(ctx context.Context, logEntry models.AuditLog) error {
	if s.auditRepo == nil {
		return fmt.Errorf("AuditRepository not initialized in AuditService")
	}
	if err := s.auditRepo.Create(ctx, logEntry); err != nil {
		return fmt.Errorf("failed to create audit log via repository: %w", err)
	}
	return nil
}

const maxAuditPage = 50

// ListForUser returns the newest entries first, capped at 50.
func (s *auditService) ListForUser(ctx context.Context, uid string, limit int) ([]*models.AuditLog, error) {
	if s.auditRepo == nil {
		return nil, fmt.Errorf("AuditRepository not initialized in AuditService")
	}
	if limit <= 0 || limit > maxAuditPage {
		limit = maxAuditPage
	}
	logs, err := s.auditRepo.ListByUser(ctx, uid, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit logs: %w", err)
	}
	if logs == nil {
		logs = []*models.AuditLog{}
	}
	return logs, nil
}
