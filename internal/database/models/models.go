// Package models contains the database model definitions.
// These models map directly to the SQLite database tables backing
// the OnAir broadcast console.
package models

import (
	"time"
)

// SessionType distinguishes a live DJ session from automated playout.
type SessionType string

const (
	SessionTypeLive       SessionType = "live"
	SessionTypeAutomation SessionType = "automation"
)

// SessionStatus is the lifecycle state of a broadcast session.
// A session leaves "active" exactly once, either by an explicit end
// or by being interrupted (newer session or emergency override).
type SessionStatus string

const (
	SessionStatusActive      SessionStatus = "active"
	SessionStatusEnded       SessionStatus = "ended"
	SessionStatusInterrupted SessionStatus = "interrupted"
)

// BroadcastMode is the on-air output mode of an active session.
type BroadcastMode string

const (
	ModeLive       BroadcastMode = "live"
	ModeAutomation BroadcastMode = "automation"
)

// Role is a station role assigned to a user.
type Role string

const (
	RoleAdmin     Role = "admin"
	RoleDJ        Role = "dj"
	RolePresenter Role = "presenter"
	RoleListener  Role = "listener"
)

// SlotType categorizes a schedule time slot.
type SlotType string

const (
	SlotTypeLive        SlotType = "live"
	SlotTypeAutomation  SlotType = "automation"
	SlotTypeMaintenance SlotType = "maintenance"
)

// BroadcastSession represents one contiguous broadcasting attempt.
// Table: broadcast_sessions
//
// Invariant: at most one row with status "active" per broadcaster_id.
// Enforced by SessionRepository.StartExclusive, which interrupts prior
// active rows and inserts the new one inside a single transaction.
type BroadcastSession struct {
	ID                string        `gorm:"column:id;primaryKey" json:"id"`
	BroadcasterID     string        `gorm:"column:broadcaster_id;index:idx_sessions_broadcaster_status" json:"broadcasterId"`
	SessionType       SessionType   `gorm:"column:session_type;default:live" json:"sessionType"`
	Status            SessionStatus `gorm:"column:status;default:active;index:idx_sessions_broadcaster_status" json:"status"`
	StartedAt         time.Time     `gorm:"column:started_at" json:"startedAt"`
	EndedAt           *time.Time    `gorm:"column:ended_at" json:"endedAt"`
	MicrophoneActive  bool          `gorm:"column:microphone_active;default:false" json:"microphoneActive"`
	CurrentMode       BroadcastMode `gorm:"column:current_mode;default:automation" json:"currentMode"`
	EmergencyOverride bool          `gorm:"column:emergency_override;default:false" json:"emergencyOverride"`
	Notes             *string       `gorm:"column:notes" json:"notes"`
	CreatedAt         time.Time     `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
	UpdatedAt         time.Time     `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`
}

func (BroadcastSession) TableName() string { return "broadcast_sessions" }

// IsActive reports whether the session is currently on air.
func (s *BroadcastSession) IsActive() bool {
	return s.Status == SessionStatusActive
}

// Duration returns the elapsed on-air time of the session.
func (s *BroadcastSession) Duration() time.Duration {
	if s.EndedAt != nil {
		return s.EndedAt.Sub(s.StartedAt)
	}
	return time.Since(s.StartedAt)
}

// TimeSlot represents a calendar window granting broadcast rights.
// Table: time_slots
//
// Read-only from the broadcast core's perspective; rows are managed by
// station admin tooling.
type TimeSlot struct {
	ID           string    `gorm:"column:id;primaryKey" json:"id"`
	Name         string    `gorm:"column:name" json:"name"`
	UserID       string    `gorm:"column:user_id;index" json:"userId"`
	BackupUserID *string   `gorm:"column:backup_user_id;index" json:"backupUserId"`
	DayOfWeek    int       `gorm:"column:day_of_week" json:"dayOfWeek"` // 0 = Sunday ... 6 = Saturday
	StartTime    string    `gorm:"column:start_time" json:"startTime"`  // "HH:MM", station-local
	EndTime      string    `gorm:"column:end_time" json:"endTime"`      // "HH:MM", station-local
	IsRecurring  bool      `gorm:"column:is_recurring;default:true" json:"isRecurring"`
	SlotType     SlotType  `gorm:"column:slot_type;default:live" json:"slotType"`
	IsActive     bool      `gorm:"column:is_active;default:true" json:"isActive"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
	UpdatedAt    time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`
}

func (TimeSlot) TableName() string { return "time_slots" }

// UserRole assigns a role to a user. A user may hold several roles.
// Table: user_roles
type UserRole struct {
	ID        string    `gorm:"column:id;primaryKey" json:"id"`
	UserID    string    `gorm:"column:user_id;index" json:"userId"`
	Role      Role      `gorm:"column:role" json:"role"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
}

func (UserRole) TableName() string { return "user_roles" }

// EmergencyBroadcast represents an admin-triggered override signal.
// Table: emergency_broadcasts
type EmergencyBroadcast struct {
	ID                 string    `gorm:"column:id;primaryKey" json:"id"`
	Title              string    `gorm:"column:title" json:"title"`
	Message            string    `gorm:"column:message" json:"message"`
	Priority           string    `gorm:"column:priority;default:high" json:"priority"`
	BroadcastType      string    `gorm:"column:broadcast_type;default:alert" json:"broadcastType"`
	TriggeredBy        string    `gorm:"column:triggered_by;index" json:"triggeredBy"`
	Status             string    `gorm:"column:status;default:active" json:"status"`
	AffectedSessionIDs string    `gorm:"column:affected_session_ids;default:[]" json:"-"` // JSON array of session IDs
	CreatedAt          time.Time `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
	UpdatedAt          time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`
}

func (EmergencyBroadcast) TableName() string { return "emergency_broadcasts" }

// AuditEntry records a broadcast console action for later review.
// Table: audit_entries
type AuditEntry struct {
	ID        string    `gorm:"column:id;primaryKey" json:"id"`
	UserID    string    `gorm:"column:user_id;index" json:"userId"`
	Action    string    `gorm:"column:action;index" json:"action"`
	Detail    string    `gorm:"column:detail" json:"detail"`
	SessionID *string   `gorm:"column:session_id;index" json:"sessionId"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
}

func (AuditEntry) TableName() string { return "audit_entries" }

// Setting represents a station setting.
// Table: settings
type Setting struct {
	ID        string    `gorm:"column:id;primaryKey" json:"id"`
	Key       string    `gorm:"column:key;uniqueIndex" json:"key"`
	Value     string    `gorm:"column:value" json:"value"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`
}

func (Setting) TableName() string { return "settings" }
