// Package schedule gates broadcast starts against the station time-slot calendar.
package schedule

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/openairwaves/onair-go/internal/database/models"
	"github.com/openairwaves/onair-go/internal/database/repositories"
	"github.com/openairwaves/onair-go/internal/services/permissions"
)

// Gate decides whether a user may broadcast at the current wall-clock time.
type Gate struct {
	slots    *repositories.TimeSlotRepository
	resolver *permissions.Resolver
	location *time.Location

	// now is injected for tests; defaults to time.Now.
	now func() time.Time
}

// NewGate creates a new Gate. location may be nil for host local time.
func NewGate(slots *repositories.TimeSlotRepository, resolver *permissions.Resolver, location *time.Location) *Gate {
	if location == nil {
		location = time.Local
	}
	return &Gate{
		slots:    slots,
		resolver: resolver,
		location: location,
		now:      time.Now,
	}
}

// SetClock overrides the gate's clock. Used by tests.
func (g *Gate) SetClock(now func() time.Time) {
	g.now = now
}

// CanBroadcastNow reports whether the user is authorized to start a live
// broadcast right now. Admins always pass. For everyone else an active
// live slot assigned to them (or naming them as backup) must cover the
// current weekday and time of day. Read errors close the gate.
func (g *Gate) CanBroadcastNow(ctx context.Context, userID string) bool {
	if userID == "" {
		return false
	}
	if g.resolver.IsAdmin(ctx, userID) {
		return true
	}
	return g.CurrentSlot(ctx, userID) != nil
}

// CurrentSlot returns the time slot authorizing the user right now, or nil.
// When overlapping slots match, the one with the earliest start time is
// reported; any match satisfies the gate.
func (g *Gate) CurrentSlot(ctx context.Context, userID string) *models.TimeSlot {
	now := g.now().In(g.location)
	day := int(now.Weekday())
	timeOfDay := fmt.Sprintf("%02d:%02d", now.Hour(), now.Minute())

	matches, err := g.slots.FindMatchingLive(ctx, userID, day, timeOfDay)
	if err != nil {
		log.Printf("schedule: slot lookup failed for %s: %v", userID, err)
		return nil
	}
	if len(matches) == 0 {
		return nil
	}
	return &matches[0]
}

// SlotsForToday returns all active slots on the current weekday, for the
// schedule panel in the console UI.
func (g *Gate) SlotsForToday(ctx context.Context) ([]models.TimeSlot, error) {
	now := g.now().In(g.location)
	return g.slots.FindByDay(ctx, int(now.Weekday()))
}
