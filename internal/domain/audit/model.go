package audit

import (
	"time"

	"github.com/google/uuid"
)

// Severity levels for audit entries.
const (
	SeverityInfo     = "INFO"
	SeverityWarning  = "WARNING"
	SeverityCritical = "CRITICAL"
	SeverityAlert    = "ALERT"
)

// Actions recorded by the engine.
const (
	ActionRootCAInitialized      = "ROOT_CA_INITIALIZED"
	ActionHospitalIdentityIssued = "HOSPITAL_IDENTITY_ISSUED"
	ActionAccessRequestCreated   = "ACCESS_REQUEST_CREATED"
	ActionAccessRequestApproved  = "ACCESS_REQUEST_APPROVED"
	ActionAccessRequestRejected  = "ACCESS_REQUEST_REJECTED"
	ActionEmergencyAttempt       = "EMERGENCY_ACCESS_ATTEMPT"
	ActionEmergencySearch        = "EMERGENCY_ACCESS_SEARCH"
	ActionEmergencyPatientCreate = "EMERGENCY_PATIENT_CREATED"
	ActionEmergencyGranted       = "EMERGENCY_ACCESS_GRANTED"
	ActionReportSigned           = "LAB_REPORT_SIGNED"
)

// Entry maps to the audit_logs table. Rows are immutable once written.
type Entry struct {
	ID           uuid.UUID              `db:"id" json:"id"`
	UserID       uuid.UUID              `db:"user_id" json:"user_id"`
	Action       string                 `db:"action" json:"action"`
	ResourceType string                 `db:"resource_type" json:"resource_type"`
	ResourceID   *uuid.UUID             `db:"resource_id" json:"resource_id,omitempty"`
	Metadata     map[string]interface{} `db:"metadata" json:"metadata,omitempty"`
	Severity     string                 `db:"severity" json:"severity"`
	CreatedAt    time.Time              `db:"created_at" json:"created_at"`
}

// IsSecurityCritical reports whether a failure to persist this entry must
// abort the operation that produced it.
func (e *Entry) IsSecurityCritical() bool {
	return e.Severity == SeverityCritical || e.Severity == SeverityAlert
}
