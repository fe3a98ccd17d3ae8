package grant

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, g *AccessGrant) error
	// LatestActive returns the most recent grant for the pair whose
	// expires_at is strictly after now, or nil when none exists.
	LatestActive(ctx context.Context, doctorID, patientID uuid.UUID, now time.Time) (*AccessGrant, error)
	// ListActiveForPatient returns every unexpired grant on the patient,
	// newest first.
	ListActiveForPatient(ctx context.Context, patientID uuid.UUID, now time.Time, limit, offset int) ([]*AccessGrant, int, error)
}
