package models

import "time"

// AuditLog represents the audit_logs table
// Used to track operator commands against the queue
type AuditLog struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Action      string    `gorm:"size:100;not null;index" json:"action"`
	PatientName string    `gorm:"size:255;index" json:"patient_name"`
	Room        string    `gorm:"size:100" json:"room"`
	Details     string    `gorm:"type:text" json:"details"`
	CreatedAt   time.Time `json:"created_at"`
}

// TableName specifies the table name for AuditLog model
func (AuditLog) TableName() string {
	return "audit_logs"
}
