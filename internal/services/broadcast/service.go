// Package broadcast implements the live-broadcast session state machine.
//
// A session moves Idle -> Active -> Ended | Interrupted. Every mutating
// operation validates the caller's capabilities first, then performs a
// single row write (or one transaction), so a failed call leaves no
// partial state behind.
package broadcast

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/openairwaves/onair-go/internal/database/models"
	"github.com/openairwaves/onair-go/internal/database/repositories"
	"github.com/openairwaves/onair-go/internal/services/permissions"
	"github.com/openairwaves/onair-go/internal/services/pubsub"
	"github.com/openairwaves/onair-go/internal/services/schedule"
)

var (
	// ErrPermissionDenied means the caller's roles lack the capability.
	ErrPermissionDenied = errors.New("permission denied")
	// ErrOutsideTimeSlot means no time slot authorizes the caller right now.
	ErrOutsideTimeSlot = errors.New("no authorized time slot for the current time")
	// ErrNoActiveSession means the caller has no active session to operate on.
	ErrNoActiveSession = errors.New("no active broadcast session")
	// ErrInvalidSessionType rejects session types outside live/automation.
	ErrInvalidSessionType = errors.New("invalid session type")
	// ErrInvalidMode rejects modes outside live/automation.
	ErrInvalidMode = errors.New("invalid broadcast mode")
)

// SessionEvent names the change carried by a session update.
type SessionEvent string

const (
	EventStarted     SessionEvent = "started"
	EventEnded       SessionEvent = "ended"
	EventInterrupted SessionEvent = "interrupted"
	EventMicrophone  SessionEvent = "microphone"
	EventMode        SessionEvent = "mode"
	EventEmergency   SessionEvent = "emergency"
)

// SessionUpdate is published on TopicSessionUpdated, filtered by broadcaster.
type SessionUpdate struct {
	Event   SessionEvent             `json:"event"`
	Session *models.BroadcastSession `json:"session"`
}

// EmergencyAlert is published unfiltered on TopicEmergencyBroadcast.
type EmergencyAlert struct {
	Emergency        *models.EmergencyBroadcast `json:"emergency"`
	AffectedSessions []string                   `json:"affectedSessions"`
}

// ControlEvent is published on TopicHardwareStatus when the hardware bridge
// reports a recognized control change.
type ControlEvent struct {
	BroadcasterID string    `json:"broadcasterId"`
	Control       string    `json:"control"`
	Value         int       `json:"value"`
	Timestamp     time.Time `json:"timestamp"`
}

// EmergencyInput carries the fields of a new emergency broadcast.
type EmergencyInput struct {
	Title         string `json:"title"`
	Message       string `json:"message"`
	Priority      string `json:"priority"`
	BroadcastType string `json:"broadcastType"`
}

// State is the read model the console UI renders from.
type State struct {
	Session          *models.BroadcastSession `json:"session"`
	MicrophoneActive bool                     `json:"microphoneActive"`
	CurrentMode      models.BroadcastMode     `json:"currentMode"`
	IsLive           bool                     `json:"isLive"`
	CanBroadcast     bool                     `json:"canBroadcast"`
	Capabilities     permissions.Capabilities `json:"permissions"`
	CurrentTimeSlot  *models.TimeSlot         `json:"currentTimeSlot"`
}

// Service coordinates broadcast sessions, emergency overrides, and the
// audit trail. All dependencies are injected; there is no ambient client.
type Service struct {
	sessions    *repositories.SessionRepository
	emergencies *repositories.EmergencyRepository
	resolver    *permissions.Resolver
	gate        *schedule.Gate
	audit       AuditSink
	events      *pubsub.PubSub
}

// NewService creates a new broadcast Service. A nil audit sink records nothing.
func NewService(
	sessions *repositories.SessionRepository,
	emergencies *repositories.EmergencyRepository,
	resolver *permissions.Resolver,
	gate *schedule.Gate,
	audit AuditSink,
	events *pubsub.PubSub,
) *Service {
	if audit == nil {
		audit = NoopSink{}
	}
	return &Service{
		sessions:    sessions,
		emergencies: emergencies,
		resolver:    resolver,
		gate:        gate,
		audit:       audit,
		events:      events,
	}
}

// Start begins a new broadcast session for the user. Requires the go-live
// capability and a passing time-slot gate; permission and gate failures are
// distinct errors and nothing is written on either. Any prior active
// session for the same broadcaster is interrupted in the same transaction
// that inserts the new one.
func (s *Service) Start(ctx context.Context, userID string, sessionType models.SessionType) (*models.BroadcastSession, error) {
	switch sessionType {
	case models.SessionTypeLive, models.SessionTypeAutomation:
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidSessionType, sessionType)
	}

	caps := s.resolver.Resolve(ctx, userID)
	if !caps.CanGoLive {
		return nil, ErrPermissionDenied
	}
	if !s.gate.CanBroadcastNow(ctx, userID) {
		return nil, ErrOutsideTimeSlot
	}

	prior, err := s.sessions.FindActiveByBroadcaster(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("checking active session: %w", err)
	}

	session, err := s.sessions.StartExclusive(ctx, userID, sessionType)
	if err != nil {
		return nil, fmt.Errorf("starting session: %w", err)
	}

	if prior != nil {
		prior.Status = models.SessionStatusInterrupted
		s.publishSession(EventInterrupted, prior)
		s.record(ctx, userID, "session_interrupt", "superseded by "+session.ID, &prior.ID)
	}

	s.publishSession(EventStarted, session)
	s.record(ctx, userID, "session_start", "type="+string(sessionType), &session.ID)
	return session, nil
}

// End finishes the caller's active session. The terminal row has the
// microphone off and automation mode, so stale clients reset cleanly.
func (s *Service) End(ctx context.Context, userID string) (*models.BroadcastSession, error) {
	active, err := s.sessions.FindActiveByBroadcaster(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("checking active session: %w", err)
	}
	if active == nil {
		return nil, ErrNoActiveSession
	}

	ended, err := s.sessions.End(ctx, active.ID)
	if err != nil {
		return nil, fmt.Errorf("ending session: %w", err)
	}

	s.publishSession(EventEnded, ended)
	s.record(ctx, userID, "session_end", fmt.Sprintf("duration=%s", ended.Duration().Round(time.Second)), &ended.ID)
	return ended, nil
}

// ToggleMicrophone flips the microphone flag of the caller's active session
// and returns the new value.
func (s *Service) ToggleMicrophone(ctx context.Context, userID string) (bool, error) {
	caps := s.resolver.Resolve(ctx, userID)
	if !caps.CanControlMicrophone {
		return false, ErrPermissionDenied
	}

	active, err := s.sessions.FindActiveByBroadcaster(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("checking active session: %w", err)
	}
	if active == nil {
		return false, ErrNoActiveSession
	}

	next := !active.MicrophoneActive
	if err := s.sessions.SetMicrophone(ctx, active.ID, next); err != nil {
		return false, fmt.Errorf("persisting microphone state: %w", err)
	}
	active.MicrophoneActive = next

	s.publishSession(EventMicrophone, active)
	s.record(ctx, userID, "microphone_toggle", fmt.Sprintf("active=%t", next), &active.ID)
	return next, nil
}

// SwitchMode changes the on-air mode of the caller's active session.
// The previous mode is preserved in the audit record.
func (s *Service) SwitchMode(ctx context.Context, userID string, mode models.BroadcastMode) (*models.BroadcastSession, error) {
	switch mode {
	case models.ModeLive, models.ModeAutomation:
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidMode, mode)
	}

	caps := s.resolver.Resolve(ctx, userID)
	if !caps.CanSwitchModes {
		return nil, ErrPermissionDenied
	}

	active, err := s.sessions.FindActiveByBroadcaster(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("checking active session: %w", err)
	}
	if active == nil {
		return nil, ErrNoActiveSession
	}

	previous := active.CurrentMode
	if err := s.sessions.SetMode(ctx, active.ID, mode); err != nil {
		return nil, fmt.Errorf("persisting mode: %w", err)
	}
	active.CurrentMode = mode

	s.publishSession(EventMode, active)
	s.record(ctx, userID, "mode_switch", fmt.Sprintf("from=%s to=%s", previous, mode), &active.ID)
	return active, nil
}

// TriggerEmergencyOverride creates an emergency broadcast and flags every
// active session with the override bit. This is a signaling primitive:
// downstream consumers subscribed to the emergency topic decide what to do
// with their audio output.
func (s *Service) TriggerEmergencyOverride(ctx context.Context, userID string, input EmergencyInput) (*models.EmergencyBroadcast, error) {
	caps := s.resolver.Resolve(ctx, userID)
	if !caps.CanEmergencyOverride {
		return nil, ErrPermissionDenied
	}

	active, err := s.sessions.FindAllActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing active sessions: %w", err)
	}
	affected := make([]string, 0, len(active))
	for _, session := range active {
		affected = append(affected, session.ID)
	}

	eb := &models.EmergencyBroadcast{
		Title:         input.Title,
		Message:       input.Message,
		Priority:      input.Priority,
		BroadcastType: input.BroadcastType,
		TriggeredBy:   userID,
		Status:        "active",
	}
	if eb.Priority == "" {
		eb.Priority = "high"
	}
	if eb.BroadcastType == "" {
		eb.BroadcastType = "alert"
	}

	if err := s.emergencies.CreateWithOverride(ctx, eb, affected); err != nil {
		return nil, fmt.Errorf("creating emergency broadcast: %w", err)
	}

	s.events.PublishAll(pubsub.TopicEmergencyBroadcast, &EmergencyAlert{
		Emergency:        eb,
		AffectedSessions: affected,
	})
	for i := range active {
		active[i].EmergencyOverride = true
		s.publishSession(EventEmergency, &active[i])
	}
	s.record(ctx, userID, "emergency_override", fmt.Sprintf("title=%q sessions=%d", input.Title, len(affected)), nil)
	return eb, nil
}

// LogControlChange records a hardware control delta against the caller's
// session. Best effort: the hardware bridge fires these without waiting,
// and a failure here must never surface to the performer mid-stream.
func (s *Service) LogControlChange(ctx context.Context, userID, control string, value int) {
	event := &ControlEvent{
		BroadcasterID: userID,
		Control:       control,
		Value:         value,
		Timestamp:     time.Now(),
	}
	s.events.Publish(pubsub.TopicHardwareStatus, userID, event)

	active, err := s.sessions.FindActiveByBroadcaster(ctx, userID)
	if err != nil {
		log.Printf("broadcast: control change lookup failed for %s: %v", userID, err)
		return
	}
	var sessionID *string
	if active != nil {
		sessionID = &active.ID
	}
	s.record(ctx, userID, "control_change", fmt.Sprintf("%s=%d", control, value), sessionID)
}

// State assembles the console read model for a user.
func (s *Service) State(ctx context.Context, userID string) (*State, error) {
	caps := s.resolver.Resolve(ctx, userID)

	session, err := s.sessions.FindActiveByBroadcaster(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("loading active session: %w", err)
	}

	state := &State{
		Session:         session,
		CurrentMode:     models.ModeAutomation,
		Capabilities:    caps,
		CanBroadcast:    caps.CanGoLive && s.gate.CanBroadcastNow(ctx, userID),
		CurrentTimeSlot: s.gate.CurrentSlot(ctx, userID),
	}
	if session != nil {
		state.MicrophoneActive = session.MicrophoneActive
		state.CurrentMode = session.CurrentMode
		state.IsLive = session.IsActive()
	}
	return state, nil
}

// publishSession fans a session update out to the broadcaster's subscribers.
func (s *Service) publishSession(event SessionEvent, session *models.BroadcastSession) {
	s.events.Publish(pubsub.TopicSessionUpdated, session.BroadcasterID, &SessionUpdate{
		Event:   event,
		Session: session,
	})
}

func (s *Service) record(ctx context.Context, userID, action, detail string, sessionID *string) {
	s.audit.Record(ctx, models.AuditEntry{
		UserID:    userID,
		Action:    action,
		Detail:    detail,
		SessionID: sessionID,
	})
}
