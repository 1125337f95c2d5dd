package repositories

import (
	"context"
	"time"

	"github.com/lucsky/cuid"
	"gorm.io/gorm"

	"github.com/openairwaves/onair-go/internal/database/models"
)

// SessionRepository handles broadcast session data access.
type SessionRepository struct {
	db *gorm.DB
}

// NewSessionRepository creates a new SessionRepository.
func NewSessionRepository(db *gorm.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// FindByID returns a session by ID, or nil if it does not exist.
func (r *SessionRepository) FindByID(ctx context.Context, id string) (*models.BroadcastSession, error) {
	var session models.BroadcastSession
	result := r.db.WithContext(ctx).First(&session, "id = ?", id)
	if result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, result.Error
	}
	return &session, nil
}

// FindActiveByBroadcaster returns the broadcaster's active session, or nil.
func (r *SessionRepository) FindActiveByBroadcaster(ctx context.Context, broadcasterID string) (*models.BroadcastSession, error) {
	var session models.BroadcastSession
	result := r.db.WithContext(ctx).
		Where("broadcaster_id = ? AND status = ?", broadcasterID, models.SessionStatusActive).
		Order("started_at DESC").
		First(&session)
	if result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, result.Error
	}
	return &session, nil
}

// FindAllActive returns every active session across broadcasters.
func (r *SessionRepository) FindAllActive(ctx context.Context) ([]models.BroadcastSession, error) {
	var sessions []models.BroadcastSession
	result := r.db.WithContext(ctx).
		Where("status = ?", models.SessionStatusActive).
		Order("started_at ASC").
		Find(&sessions)
	return sessions, result.Error
}

// FindByBroadcaster returns the broadcaster's session history, newest first.
func (r *SessionRepository) FindByBroadcaster(ctx context.Context, broadcasterID string, limit int) ([]models.BroadcastSession, error) {
	var sessions []models.BroadcastSession
	q := r.db.WithContext(ctx).
		Where("broadcaster_id = ?", broadcasterID).
		Order("started_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	result := q.Find(&sessions)
	return sessions, result.Error
}

// StartExclusive interrupts any active session for the broadcaster and
// inserts the new active session in a single transaction. This keeps the
// "at most one active session per broadcaster" invariant without a
// client-driven update-then-insert sequence that could interleave with a
// concurrent start from another tab.
func (r *SessionRepository) StartExclusive(ctx context.Context, broadcasterID string, sessionType models.SessionType) (*models.BroadcastSession, error) {
	now := time.Now()
	session := &models.BroadcastSession{
		ID:               cuid.New(),
		BroadcasterID:    broadcasterID,
		SessionType:      sessionType,
		Status:           models.SessionStatusActive,
		StartedAt:        now,
		MicrophoneActive: false,
		CurrentMode:      models.ModeAutomation,
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.BroadcastSession{}).
			Where("broadcaster_id = ? AND status = ?", broadcasterID, models.SessionStatusActive).
			Updates(map[string]interface{}{
				"status":   models.SessionStatusInterrupted,
				"ended_at": now,
			}).Error; err != nil {
			return err
		}
		return tx.Create(session).Error
	})
	if err != nil {
		return nil, err
	}
	return session, nil
}

// End transitions an active session to ended and stamps the end time.
// Returns gorm.ErrRecordNotFound if the session is not active.
func (r *SessionRepository) End(ctx context.Context, id string) (*models.BroadcastSession, error) {
	now := time.Now()
	var session models.BroadcastSession

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ? AND status = ?", id, models.SessionStatusActive).
			First(&session).Error; err != nil {
			return err
		}
		session.Status = models.SessionStatusEnded
		session.EndedAt = &now
		session.MicrophoneActive = false
		session.CurrentMode = models.ModeAutomation
		return tx.Save(&session).Error
	})
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// SetMicrophone persists the microphone flag of a session.
func (r *SessionRepository) SetMicrophone(ctx context.Context, id string, active bool) error {
	return r.db.WithContext(ctx).
		Model(&models.BroadcastSession{}).
		Where("id = ?", id).
		Update("microphone_active", active).Error
}

// SetMode persists the current mode of a session.
func (r *SessionRepository) SetMode(ctx context.Context, id string, mode models.BroadcastMode) error {
	return r.db.WithContext(ctx).
		Model(&models.BroadcastSession{}).
		Where("id = ?", id).
		Update("current_mode", mode).Error
}

// FlagEmergencyOverride sets the emergency-override flag on the given sessions.
func (r *SessionRepository) FlagEmergencyOverride(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&models.BroadcastSession{}).
		Where("id IN ?", ids).
		Update("emergency_override", true).Error
}
