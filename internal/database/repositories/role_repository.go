package repositories

import (
	"context"

	"github.com/lucsky/cuid"
	"gorm.io/gorm"

	"github.com/openairwaves/onair-go/internal/database/models"
)

// RoleRepository handles user role data access.
type RoleRepository struct {
	db *gorm.DB
}

// NewRoleRepository creates a new RoleRepository.
func NewRoleRepository(db *gorm.DB) *RoleRepository {
	return &RoleRepository{db: db}
}

// FindRolesByUser returns the roles assigned to a user.
func (r *RoleRepository) FindRolesByUser(ctx context.Context, userID string) ([]models.Role, error) {
	var rows []models.UserRole
	result := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Find(&rows)
	if result.Error != nil {
		return nil, result.Error
	}
	roles := make([]models.Role, 0, len(rows))
	for _, row := range rows {
		roles = append(roles, row.Role)
	}
	return roles, nil
}

// Assign assigns a role to a user. Assigning an already-held role is a no-op.
func (r *RoleRepository) Assign(ctx context.Context, userID string, role models.Role) error {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.UserRole{}).
		Where("user_id = ? AND role = ?", userID, role).
		Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&models.UserRole{
		ID:     cuid.New(),
		UserID: userID,
		Role:   role,
	}).Error
}

// Revoke removes a role from a user.
func (r *RoleRepository) Revoke(ctx context.Context, userID string, role models.Role) error {
	return r.db.WithContext(ctx).
		Delete(&models.UserRole{}, "user_id = ? AND role = ?", userID, role).Error
}
