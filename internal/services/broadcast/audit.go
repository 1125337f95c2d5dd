package broadcast

import (
	"context"
	"log"

	"github.com/openairwaves/onair-go/internal/database/models"
	"github.com/openairwaves/onair-go/internal/database/repositories"
)

// AuditSink receives console action records. Injected so callers can choose
// between persistence and a no-op; audit failures never abort the action
// they describe.
type AuditSink interface {
	Record(ctx context.Context, entry models.AuditEntry)
}

// NoopSink discards audit records.
type NoopSink struct{}

// Record implements AuditSink.
func (NoopSink) Record(ctx context.Context, entry models.AuditEntry) {}

// DatabaseSink writes audit records to the audit_entries table.
type DatabaseSink struct {
	repo *repositories.AuditRepository
}

// NewDatabaseSink creates a DatabaseSink.
func NewDatabaseSink(repo *repositories.AuditRepository) *DatabaseSink {
	return &DatabaseSink{repo: repo}
}

// Record implements AuditSink. Write failures are logged, not returned.
func (s *DatabaseSink) Record(ctx context.Context, entry models.AuditEntry) {
	if err := s.repo.Create(ctx, &entry); err != nil {
		log.Printf("audit: failed to record %s for %s: %v", entry.Action, entry.UserID, err)
	}
}
