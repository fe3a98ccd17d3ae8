package grant

import (
	"time"

	"github.com/google/uuid"
)

// Grant types. CONSENT grants come from an approved access request and last
// three days; EMERGENCY grants come from break-glass activation and last
// thirty minutes.
const (
	TypeConsent   = "CONSENT"
	TypeEmergency = "EMERGENCY"
)

const (
	ConsentDuration   = 72 * time.Hour
	EmergencyDuration = 30 * time.Minute
)

// AccessGrant maps to the access_grants table. Rows are never updated or
// deleted; a grant simply stops satisfying access checks once expires_at
// passes.
type AccessGrant struct {
	ID        uuid.UUID `db:"id" json:"id"`
	DoctorID  uuid.UUID `db:"doctor_id" json:"doctor_id"`
	PatientID uuid.UUID `db:"patient_id" json:"patient_id"`
	GrantType string    `db:"grant_type" json:"grant_type"`
	Reason    string    `db:"reason" json:"reason"`
	ExpiresAt time.Time `db:"expires_at" json:"expires_at"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Decision is the outcome of an access check.
type Decision struct {
	Allowed    bool       `json:"allowed"`
	SelfAccess bool       `json:"self_access,omitempty"`
	GrantID    *uuid.UUID `json:"grant_id,omitempty"`
	GrantType  string     `json:"grant_type,omitempty"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
}
