package repositories

import (
	"context"

	"github.com/lucsky/cuid"
	"gorm.io/gorm"

	"github.com/openairwaves/onair-go/internal/database/models"
)

// TimeSlotRepository handles schedule time slot data access.
type TimeSlotRepository struct {
	db *gorm.DB
}

// NewTimeSlotRepository creates a new TimeSlotRepository.
func NewTimeSlotRepository(db *gorm.DB) *TimeSlotRepository {
	return &TimeSlotRepository{db: db}
}

// FindByID returns a time slot by ID, or nil if it does not exist.
func (r *TimeSlotRepository) FindByID(ctx context.Context, id string) (*models.TimeSlot, error) {
	var slot models.TimeSlot
	result := r.db.WithContext(ctx).First(&slot, "id = ?", id)
	if result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, result.Error
	}
	return &slot, nil
}

// FindMatchingLive returns active live slots that authorize the user (as
// assignee or backup) at the given weekday and "HH:MM" time-of-day.
// Ordered by start_time so overlapping slots resolve deterministically.
func (r *TimeSlotRepository) FindMatchingLive(ctx context.Context, userID string, dayOfWeek int, timeOfDay string) ([]models.TimeSlot, error) {
	var slots []models.TimeSlot
	result := r.db.WithContext(ctx).
		Where("(user_id = ? OR backup_user_id = ?)", userID, userID).
		Where("day_of_week = ?", dayOfWeek).
		Where("slot_type = ?", models.SlotTypeLive).
		Where("is_active = ?", true).
		Where("start_time <= ? AND end_time >= ?", timeOfDay, timeOfDay).
		Order("start_time ASC").
		Find(&slots)
	return slots, result.Error
}

// FindByDay returns all active slots for a weekday, for schedule display.
func (r *TimeSlotRepository) FindByDay(ctx context.Context, dayOfWeek int) ([]models.TimeSlot, error) {
	var slots []models.TimeSlot
	result := r.db.WithContext(ctx).
		Where("day_of_week = ? AND is_active = ?", dayOfWeek, true).
		Order("start_time ASC").
		Find(&slots)
	return slots, result.Error
}

// Create creates a new time slot.
func (r *TimeSlotRepository) Create(ctx context.Context, slot *models.TimeSlot) error {
	if slot.ID == "" {
		slot.ID = cuid.New()
	}
	return r.db.WithContext(ctx).Create(slot).Error
}

// Update updates an existing time slot.
func (r *TimeSlotRepository) Update(ctx context.Context, slot *models.TimeSlot) error {
	return r.db.WithContext(ctx).Save(slot).Error
}

// Delete deletes a time slot by ID.
func (r *TimeSlotRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Delete(&models.TimeSlot{}, "id = ?", id).Error
}
