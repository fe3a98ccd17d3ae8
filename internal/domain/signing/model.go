package signing

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrReportNotFound is returned when the report id resolves to nothing.
	ErrReportNotFound = errors.New("lab report not found")
	// ErrHospitalIdentityMissing is returned when signing is requested for a
	// hospital that was never issued key material.
	ErrHospitalIdentityMissing = errors.New("hospital identity not found")
)

// LabReport maps to the lab_reports table. Hash, signature and signer are
// null until the report is signed; re-signing overwrites them.
type LabReport struct {
	ID               uuid.UUID  `db:"id" json:"id"`
	RecordID         uuid.UUID  `db:"record_id" json:"record_id"`
	ReportType       string     `db:"report_type" json:"report_type"`
	ReportDate       time.Time  `db:"report_date" json:"report_date"`
	ReportHash       *string    `db:"report_hash" json:"report_hash,omitempty"`
	Signature        *string    `db:"signature" json:"signature,omitempty"`
	SignerHospitalID *uuid.UUID `db:"signer_hospital_id" json:"signer_hospital_id,omitempty"`
	SignedAt         *time.Time `db:"signed_at" json:"signed_at,omitempty"`
}

// ReportItem maps to the lab_report_items table. Position fixes the item
// order inside the signed payload; two signings of an unchanged report
// produce identical bytes.
type ReportItem struct {
	ID       uuid.UUID `db:"id" json:"id"`
	ReportID uuid.UUID `db:"report_id" json:"report_id"`
	TestName string    `db:"test_name" json:"test_name"`
	Result   string    `db:"result" json:"result"`
	Unit     *string   `db:"unit" json:"unit,omitempty"`
	Position int       `db:"position" json:"position"`
}

// VerifyResult is the public verification verdict. It is always produced;
// verification never errors toward the caller.
type VerifyResult struct {
	Valid       bool   `json:"valid"`
	Message     string `json:"message,omitempty"`
	Issuer      string `json:"issuer,omitempty"`
	ReportDate  string `json:"report_date,omitempty"`
	ReferenceID string `json:"reference_id,omitempty"`
}
