package repository

import (
	"context"

	"student-registry/internal/models"

	"gorm.io/gorm"
)

type AuditRepository struct {
	db *gorm.DB
}

func NewAuditRepo(db *gorm.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

// CreateAuditLog creates a new audit log entry
func (r *AuditRepository) CreateAuditLog(ctx context.Context, actor, action, details string) error {
	log := &models.AuditLog{
		Actor:   actor,
		Action:  action,
		Details: details,
	}
	return translate(r.db.WithContext(ctx).Create(log).Error, "audit log")
}

// ListRecent returns up to limit entries, newest first
func (r *AuditRepository) ListRecent(ctx context.Context, limit int) ([]models.AuditLog, error) {
	var logs []models.AuditLog
	err := r.db.WithContext(ctx).Order("id DESC").Limit(limit).Find(&logs).Error
	if err != nil {
		return nil, translate(err, "audit logs")
	}
	return logs, nil
}
