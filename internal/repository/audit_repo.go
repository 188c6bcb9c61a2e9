package repository

import (
	"context"

	"clinic-call-queue/internal/models"

	"gorm.io/gorm"
)

type AuditRepository struct {
	db *gorm.DB
}

func NewAuditRepo(db *gorm.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

// CreateAuditLog creates a new audit log entry
func (r *AuditRepository) CreateAuditLog(ctx context.Context, action, patientName, room, details string) error {
	log := &models.AuditLog{
		Action:      action,
		PatientName: patientName,
		Room:        room,
		Details:     details,
	}
	return r.db.WithContext(ctx).Create(log).Error
}

// ListRecent returns the newest audit entries first
func (r *AuditRepository) ListRecent(ctx context.Context, limit int) ([]models.AuditLog, error) {
	var logs []models.AuditLog
	q := r.db.WithContext(ctx).Order("created_at DESC, id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&logs).Error
	return logs, err
}
