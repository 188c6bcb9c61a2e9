package repository

import (
	"context"
	"errors"

	"clinic-call-queue/internal/calllog"
	"clinic-call-queue/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CallLogSlotRepository stores the call log in one row of call_log_slots.
// It implements calllog.SlotStore for MySQL and PostgreSQL.
type CallLogSlotRepository struct {
	db   *gorm.DB
	name string
}

func NewCallLogSlotRepo(db *gorm.DB, name string) *CallLogSlotRepository {
	return &CallLogSlotRepository{db: db, name: name}
}

// Load returns the slot payload and version; a missing row reads as empty
func (r *CallLogSlotRepository) Load(ctx context.Context) ([]byte, int64, error) {
	var slot models.CallLogSlot
	err := r.db.WithContext(ctx).Where("name = ?", r.name).First(&slot).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, 0, nil
		}
		return nil, 0, err
	}
	return []byte(slot.Payload), slot.Version, nil
}

// Save replaces the payload inside a transaction holding a row lock
func (r *CallLogSlotRepository) Save(ctx context.Context, data []byte, expected int64) (int64, error) {
	var newVersion int64

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var slot models.CallLogSlot
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("name = ?", r.name).
			First(&slot).Error

		exists := true
		if errors.Is(err, gorm.ErrRecordNotFound) {
			exists = false
		} else if err != nil {
			return err
		}

		newVersion, err = nextSlotVersion(exists, slot.Version, expected)
		if err != nil {
			return err
		}

		if !exists {
			slot = models.CallLogSlot{
				Name:    r.name,
				Payload: string(data),
				Version: newVersion,
			}
			if err := tx.Create(&slot).Error; err != nil {
				// another writer created the slot first
				if errors.Is(err, gorm.ErrDuplicatedKey) {
					return calllog.ErrVersionConflict
				}
				return err
			}
			return nil
		}

		return tx.Model(&models.CallLogSlot{}).
			Where("id = ? AND version = ?", slot.ID, slot.Version).
			Updates(map[string]interface{}{
				"payload": string(data),
				"version": newVersion,
			}).Error
	})
	if err != nil {
		return 0, err
	}
	return newVersion, nil
}

// EnsureSlot creates the slot row with an empty log if it doesn't exist
func (r *CallLogSlotRepository) EnsureSlot(ctx context.Context) error {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.CallLogSlot{}).Where("name = ?", r.name).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	_, err := r.Save(ctx, []byte("[]"), 0)
	if errors.Is(err, calllog.ErrVersionConflict) {
		return nil
	}
	return err
}

// nextSlotVersion decides a save against the locked row. A missing slot is
// at version 0. expected < 0 skips the check.
func nextSlotVersion(exists bool, current, expected int64) (int64, error) {
	if !exists {
		current = 0
	}
	if expected >= 0 && current != expected {
		return 0, calllog.ErrVersionConflict
	}
	return current + 1, nil
}
