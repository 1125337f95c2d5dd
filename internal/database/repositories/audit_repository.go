package repositories

import (
	"context"

	"github.com/lucsky/cuid"
	"gorm.io/gorm"

	"github.com/openairwaves/onair-go/internal/database/models"
)

// AuditRepository handles audit entry data access.
type AuditRepository struct {
	db *gorm.DB
}

// NewAuditRepository creates a new AuditRepository.
func NewAuditRepository(db *gorm.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

// Create creates a new audit entry.
func (r *AuditRepository) Create(ctx context.Context, entry *models.AuditEntry) error {
	if entry.ID == "" {
		entry.ID = cuid.New()
	}
	return r.db.WithContext(ctx).Create(entry).Error
}

// FindRecent returns the most recent audit entries.
func (r *AuditRepository) FindRecent(ctx context.Context, limit int) ([]models.AuditEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	var entries []models.AuditEntry
	result := r.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&entries)
	return entries, result.Error
}

// FindBySession returns audit entries attached to a session, oldest first.
func (r *AuditRepository) FindBySession(ctx context.Context, sessionID string) ([]models.AuditEntry, error) {
	var entries []models.AuditEntry
	result := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("created_at ASC").
		Find(&entries)
	return entries, result.Error
}
