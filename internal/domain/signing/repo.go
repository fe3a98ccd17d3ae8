package signing

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	CreateReport(ctx context.Context, report *LabReport, items []*ReportItem) error
	GetReport(ctx context.Context, id uuid.UUID) (*LabReport, error)
	// GetItems returns the report's items ordered by position.
	GetItems(ctx context.Context, reportID uuid.UUID) ([]*ReportItem, error)
	// SaveSignature overwrites the report's hash, signature and signer.
	SaveSignature(ctx context.Context, id uuid.UUID, hash, signature string, hospitalID uuid.UUID) error
}
