package ca

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Key types stored in system_keys. Only ROOT_CA is used today; the column
// exists so future system-level keys land in the same table.
const KeyTypeRootCA = "ROOT_CA"

var (
	// ErrRootCANotInitialized is returned when an operation needs the root
	// key material and no ROOT_CA row exists yet.
	ErrRootCANotInitialized = errors.New("root CA not initialized")
	// ErrHospitalNotFound is returned when the hospital id resolves to nothing.
	ErrHospitalNotFound = errors.New("hospital not found")
)

// SystemKey maps to the system_keys table. The private key is stored only in
// envelope-encrypted form.
type SystemKey struct {
	ID             uuid.UUID `db:"id" json:"id"`
	KeyType        string    `db:"key_type" json:"key_type"`
	PublicKey      string    `db:"public_key" json:"public_key"`
	PrivateKeyEnc  string    `db:"private_key_enc" json:"-"`
	CertificatePEM string    `db:"certificate_pem" json:"certificate_pem"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

// Hospital maps to the hospitals table. The PKI columns are null until the
// ministry issues the hospital its digital identity.
type Hospital struct {
	ID                uuid.UUID  `db:"id" json:"id"`
	Name              string     `db:"name" json:"name"`
	ContactNumber     string     `db:"contact_number" json:"contact_number"`
	Email             string     `db:"email" json:"email"`
	Province          *string    `db:"province" json:"province,omitempty"`
	District          *string    `db:"district" json:"district,omitempty"`
	City              *string    `db:"city" json:"city,omitempty"`
	PublicKey         *string    `db:"public_key" json:"public_key,omitempty"`
	PrivateKeyEnc     *string    `db:"private_key_enc" json:"-"`
	CertificatePEM    *string    `db:"certificate_pem" json:"certificate_pem,omitempty"`
	CertificateSerial *string    `db:"certificate_serial" json:"certificate_serial,omitempty"`
	IdentityIssuedAt  *time.Time `db:"identity_issued_at" json:"identity_issued_at,omitempty"`
	CreatedAt         time.Time  `db:"created_at" json:"created_at"`
}

// HasIdentity reports whether the hospital holds issued key material.
func (h *Hospital) HasIdentity() bool {
	return h.PrivateKeyEnc != nil && h.CertificatePEM != nil
}

// InitResult is the outcome of InitializeRootCA. Created is false when a
// root already existed and nothing was changed.
type InitResult struct {
	Created        bool   `json:"created"`
	CertificatePEM string `json:"certificate_pem"`
}
