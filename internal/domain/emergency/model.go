package emergency

import (
	"errors"

	"github.com/google/uuid"

	"github.com/nikohealth/trustcore/internal/domain/grant"
)

var (
	// ErrNotDoctor is returned when a non-doctor account tries to use the
	// break-glass protocol.
	ErrNotDoctor = errors.New("only doctors may use emergency access")
	// ErrPatientNotFound is returned when no citizen carries the national id
	// and placeholder creation was not requested.
	ErrPatientNotFound = errors.New("patient not found with this national id")
)

// PatientSummary is the minimal patient view returned to the emergency UI.
type PatientSummary struct {
	ID           uuid.UUID `json:"id"`
	Name         *string   `json:"name"`
	Email        string    `json:"email"`
	NationalIDNo *string   `json:"national_id_no"`
}

// SearchResult reports a national-id lookup. Not finding a patient is a
// normal outcome, not an error.
type SearchResult struct {
	Found   bool            `json:"found"`
	Patient *PatientSummary `json:"patient"`
}

// BreakGlassResult is the outcome of a successful break-glass activation.
type BreakGlassResult struct {
	Grant      *grant.AccessGrant `json:"grant"`
	Patient    *PatientSummary    `json:"patient,omitempty"`
	WasCreated bool               `json:"was_created"`
}
