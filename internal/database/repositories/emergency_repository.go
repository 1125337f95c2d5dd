package repositories

import (
	"context"
	"encoding/json"

	"github.com/lucsky/cuid"
	"gorm.io/gorm"

	"github.com/openairwaves/onair-go/internal/database/models"
)

// EmergencyRepository handles emergency broadcast data access.
type EmergencyRepository struct {
	db *gorm.DB
}

// NewEmergencyRepository creates a new EmergencyRepository.
func NewEmergencyRepository(db *gorm.DB) *EmergencyRepository {
	return &EmergencyRepository{db: db}
}

// CreateWithOverride inserts the emergency broadcast and flags the affected
// sessions' emergency-override bit in the same transaction. The affected
// session IDs are recorded on the emergency row as a JSON array.
func (r *EmergencyRepository) CreateWithOverride(ctx context.Context, eb *models.EmergencyBroadcast, affectedSessionIDs []string) error {
	if eb.ID == "" {
		eb.ID = cuid.New()
	}
	idsJSON, err := json.Marshal(affectedSessionIDs)
	if err != nil {
		return err
	}
	eb.AffectedSessionIDs = string(idsJSON)

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(eb).Error; err != nil {
			return err
		}
		if len(affectedSessionIDs) == 0 {
			return nil
		}
		return tx.Model(&models.BroadcastSession{}).
			Where("id IN ?", affectedSessionIDs).
			Update("emergency_override", true).Error
	})
}

// FindByID returns an emergency broadcast by ID, or nil if it does not exist.
func (r *EmergencyRepository) FindByID(ctx context.Context, id string) (*models.EmergencyBroadcast, error) {
	var eb models.EmergencyBroadcast
	result := r.db.WithContext(ctx).First(&eb, "id = ?", id)
	if result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, result.Error
	}
	return &eb, nil
}

// FindActive returns emergency broadcasts still in active status, newest first.
func (r *EmergencyRepository) FindActive(ctx context.Context) ([]models.EmergencyBroadcast, error) {
	var ebs []models.EmergencyBroadcast
	result := r.db.WithContext(ctx).
		Where("status = ?", "active").
		Order("created_at DESC").
		Find(&ebs)
	return ebs, result.Error
}

// Resolve marks an emergency broadcast as resolved.
func (r *EmergencyRepository) Resolve(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).
		Model(&models.EmergencyBroadcast{}).
		Where("id = ?", id).
		Update("status", "resolved").Error
}

// AffectedSessions decodes the affected session ID list from a row.
func AffectedSessions(eb *models.EmergencyBroadcast) []string {
	var ids []string
	if eb.AffectedSessionIDs == "" {
		return ids
	}
	_ = json.Unmarshal([]byte(eb.AffectedSessionIDs), &ids)
	return ids
}
