package consent

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Request statuses. PENDING is the only non-terminal state.
const (
	StatusPending  = "PENDING"
	StatusApproved = "APPROVED"
	StatusRejected = "REJECTED"
)

var (
	// ErrRequestNotFound is returned when the request id resolves to nothing.
	ErrRequestNotFound = errors.New("access request not found")
	// ErrNotRequestOwner is returned when a caller other than the request's
	// patient tries to decide it.
	ErrNotRequestOwner = errors.New("only the requested patient may decide this request")
	// ErrRequestAlreadyDecided is returned when approving or rejecting a
	// request that already reached a terminal state.
	ErrRequestAlreadyDecided = errors.New("access request already decided")
)

// AccessRequest maps to the access_requests table.
type AccessRequest struct {
	ID        uuid.UUID `db:"id" json:"id"`
	DoctorID  uuid.UUID `db:"doctor_id" json:"doctor_id"`
	PatientID uuid.UUID `db:"patient_id" json:"patient_id"`
	Status    string    `db:"status" json:"status"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// PendingRequest is an access request joined with the requesting doctor's
// display fields for the patient-facing list.
type PendingRequest struct {
	AccessRequest
	DoctorName  *string `db:"doctor_name" json:"doctor_name,omitempty"`
	DoctorEmail string  `db:"doctor_email" json:"doctor_email"`
}

// RequestOutcome reports whether RequestAccess created a new request or found
// an existing pending one.
type RequestOutcome struct {
	Request        *AccessRequest `json:"request"`
	AlreadyPending bool           `json:"already_pending"`
}
