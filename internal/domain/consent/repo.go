package consent

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, r *AccessRequest) error
	GetByID(ctx context.Context, id uuid.UUID) (*AccessRequest, error)
	// FindPending returns the pending request for the pair, or nil.
	FindPending(ctx context.Context, doctorID, patientID uuid.UUID) (*AccessRequest, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) error
	// ListPendingForPatient returns the patient's pending requests, newest
	// first, each joined with the requesting doctor's display fields.
	ListPendingForPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*PendingRequest, int, error)
}
