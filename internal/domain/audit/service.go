package audit

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Logger is the append-only security event sink. Every component writes
// through it; nothing ever updates or deletes an entry.
type Logger struct {
	repo Repository
	log  zerolog.Logger
}

func NewLogger(repo Repository, log zerolog.Logger) *Logger {
	return &Logger{repo: repo, log: log}
}

// Log persists an audit entry. INFO and WARNING entries are best-effort: an
// insert failure is logged operationally and swallowed so that a logging
// problem never blocks the primary action. CRITICAL and ALERT entries are
// the security record itself, so their failure is returned and the parent
// operation aborts rather than proceed unrecorded.
func (l *Logger) Log(ctx context.Context, userID uuid.UUID, action, resourceType string, resourceID *uuid.UUID, metadata map[string]interface{}, severity string) error {
	entry := &Entry{
		UserID:       userID,
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		Metadata:     metadata,
		Severity:     severity,
	}

	err := l.repo.Insert(ctx, entry)
	if err == nil {
		return nil
	}

	if entry.IsSecurityCritical() {
		return fmt.Errorf("audit write failed for %s: %w", action, err)
	}

	l.log.Error().
		Err(err).
		Str("action", action).
		Str("user_id", userID.String()).
		Str("severity", severity).
		Msg("failed to write audit entry")
	return nil
}

// Search returns audit entries matching the filter, newest first.
func (l *Logger) Search(ctx context.Context, filter SearchFilter, limit, offset int) ([]*Entry, int, error) {
	return l.repo.Search(ctx, filter, limit, offset)
}
