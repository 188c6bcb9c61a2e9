package models

import "time"

// CallLogSlot represents the call_log_slots table
// Each row is one named slot holding the whole serialized call log
type CallLogSlot struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:100;uniqueIndex;not null" json:"name"`
	Payload   string    `gorm:"type:text" json:"payload"`
	Version   int64     `gorm:"not null;default:0" json:"version"` // bumped on every save
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the table name for CallLogSlot model
func (CallLogSlot) TableName() string {
	return "call_log_slots"
}
