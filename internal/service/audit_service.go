package service

import (
	"context"
	"log/slog"

	"student-registry/internal/models"
	"student-registry/internal/repository"
)

const (
	DefaultAuditLimit = 50
	MaxAuditLimit     = 500
)

type AuditService struct {
	auditRepo *repository.AuditRepository
}

func NewAuditService(auditRepo *repository.AuditRepository) *AuditService {
	return &AuditService{auditRepo: auditRepo}
}

// Record writes an audit entry. Failures are logged and never returned to the caller.
func (s *AuditService) Record(ctx context.Context, actor, action, details string) {
	if err := s.auditRepo.CreateAuditLog(ctx, actor, action, details); err != nil {
		slog.WarnContext(ctx, "failed to write audit log", "action", action, "actor", actor, "error", err)
	}
}

// Recent lists the newest audit entries (owner only)
func (s *AuditService) Recent(ctx context.Context, actor *models.User, limit int) ([]models.AuditLog, error) {
	if err := Authorize(actor, OpManageUsers); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = DefaultAuditLimit
	}
	if limit > MaxAuditLimit {
		limit = MaxAuditLimit
	}
	return s.auditRepo.ListRecent(ctx, limit)
}
