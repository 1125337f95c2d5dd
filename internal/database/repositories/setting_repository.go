package repositories

import (
	"context"

	"github.com/lucsky/cuid"
	"gorm.io/gorm"

	"github.com/openairwaves/onair-go/internal/database/models"
)

// SettingRepository handles station setting data access.
type SettingRepository struct {
	db *gorm.DB
}

// NewSettingRepository creates a new SettingRepository.
func NewSettingRepository(db *gorm.DB) *SettingRepository {
	return &SettingRepository{db: db}
}

// FindByKey returns a setting by key, or nil if it does not exist.
func (r *SettingRepository) FindByKey(ctx context.Context, key string) (*models.Setting, error) {
	var setting models.Setting
	result := r.db.WithContext(ctx).First(&setting, "key = ?", key)
	if result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, result.Error
	}
	return &setting, nil
}

// Upsert creates or updates a setting value by key.
func (r *SettingRepository) Upsert(ctx context.Context, key, value string) error {
	existing, err := r.FindByKey(ctx, key)
	if err != nil {
		return err
	}
	if existing != nil {
		existing.Value = value
		return r.db.WithContext(ctx).Save(existing).Error
	}
	return r.db.WithContext(ctx).Create(&models.Setting{
		ID:    cuid.New(),
		Key:   key,
		Value: value,
	}).Error
}
