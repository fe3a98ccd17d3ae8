package emergency

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/nikohealth/trustcore/internal/domain/account"
	"github.com/nikohealth/trustcore/internal/domain/audit"
	"github.com/nikohealth/trustcore/internal/domain/grant"
	"github.com/nikohealth/trustcore/internal/platform/auth"
)

// Service implements the break-glass protocol. The ordering contract is
// strict: the CRITICAL attempt entry is written before any grant exists, so
// a failed or interrupted activation still leaves a trace, and the ALERT
// entry is written only once the grant is live.
type Service struct {
	accounts account.Repository
	grants   *grant.Store
	audit    *audit.Logger
	log      zerolog.Logger
}

func NewService(accounts account.Repository, grants *grant.Store, auditLog *audit.Logger, log zerolog.Logger) *Service {
	return &Service{accounts: accounts, grants: grants, audit: auditLog, log: log}
}

// requireCaller loads the caller's account and evaluates the action against
// the stored role, not the token role, so a revoked doctor account cannot
// break glass with a stale token.
func (s *Service) requireCaller(ctx context.Context, callerID uuid.UUID, action string) (*account.Account, error) {
	acct, err := s.accounts.GetByID(ctx, callerID)
	if err != nil {
		return nil, fmt.Errorf("load caller account: %w", err)
	}
	if err := auth.Require(acct.Role, action); err != nil {
		return nil, ErrNotDoctor
	}
	return acct, nil
}

// ActivateBreakGlass grants the doctor thirty minutes of emergency access to
// a known patient without consent.
func (s *Service) ActivateBreakGlass(ctx context.Context, doctorID, patientID uuid.UUID, reason string) (*BreakGlassResult, error) {
	doctor, err := s.requireCaller(ctx, doctorID, auth.ActionEmergencyAccess)
	if err != nil {
		return nil, err
	}

	if err := s.audit.Log(ctx, doctorID, audit.ActionEmergencyAttempt, "patient", &patientID,
		map[string]interface{}{"reason": reason}, audit.SeverityCritical); err != nil {
		return nil, err
	}

	g := &grant.AccessGrant{
		DoctorID:  doctorID,
		PatientID: patientID,
		GrantType: grant.TypeEmergency,
		Reason:    reason,
		ExpiresAt: s.grants.Now().Add(grant.EmergencyDuration),
	}
	if err := s.grants.Grant(ctx, g); err != nil {
		return nil, fmt.Errorf("activate emergency protocol: %w", err)
	}

	if err := s.audit.Log(ctx, doctorID, audit.ActionEmergencyGranted, "patient", &patientID,
		map[string]interface{}{
			"grant_id":   g.ID.String(),
			"expires_at": g.ExpiresAt.Format(time.RFC3339),
			"reason":     reason,
		}, audit.SeverityAlert); err != nil {
		return nil, err
	}

	s.notifySecurity(doctor, patientID, reason, false)

	return &BreakGlassResult{Grant: g}, nil
}

// EmergencyAccessByNationalID resolves a patient by national id and grants
// break-glass access. When the patient has no account yet and createIfMissing
// is set, a placeholder citizen account is created so the grant has a row to
// point at; the real identity is attached later through normal registration.
func (s *Service) EmergencyAccessByNationalID(ctx context.Context, doctorID uuid.UUID, nationalID, reason string, createIfMissing bool) (*BreakGlassResult, error) {
	doctor, err := s.requireCaller(ctx, doctorID, auth.ActionEmergencyAccess)
	if err != nil {
		return nil, err
	}

	if err := s.audit.Log(ctx, doctorID, audit.ActionEmergencySearch, "patient", nil,
		map[string]interface{}{"national_id": nationalID, "reason": reason}, audit.SeverityCritical); err != nil {
		return nil, err
	}

	patient, err := s.accounts.FindCitizenByNationalID(ctx, nationalID)
	wasCreated := false
	switch {
	case err == nil:
	case errors.Is(err, account.ErrNotFound) && createIfMissing:
		patient = &account.Account{
			Email:        fmt.Sprintf("emergency_%s@placeholder.niko.health", nationalID),
			Role:         auth.RoleCitizen,
			NationalIDNo: &nationalID,
		}
		if err := s.accounts.Create(ctx, patient); err != nil {
			return nil, fmt.Errorf("create emergency patient: %w", err)
		}
		wasCreated = true
		if err := s.audit.Log(ctx, doctorID, audit.ActionEmergencyPatientCreate, "patient", &patient.ID,
			map[string]interface{}{"national_id": nationalID, "reason": reason}, audit.SeverityCritical); err != nil {
			return nil, err
		}
		s.log.Warn().
			Str("doctor_id", doctorID.String()).
			Str("patient_id", patient.ID.String()).
			Str("national_id", nationalID).
			Str("reason", reason).
			Msg("emergency patient record created")
	case errors.Is(err, account.ErrNotFound):
		return nil, ErrPatientNotFound
	default:
		return nil, fmt.Errorf("search patient by national id: %w", err)
	}

	g := &grant.AccessGrant{
		DoctorID:  doctorID,
		PatientID: patient.ID,
		GrantType: grant.TypeEmergency,
		Reason:    reason,
		ExpiresAt: s.grants.Now().Add(grant.EmergencyDuration),
	}
	if err := s.grants.Grant(ctx, g); err != nil {
		return nil, fmt.Errorf("activate emergency protocol: %w", err)
	}

	if err := s.audit.Log(ctx, doctorID, audit.ActionEmergencyGranted, "patient", &patient.ID,
		map[string]interface{}{
			"grant_id":    g.ID.String(),
			"expires_at":  g.ExpiresAt.Format(time.RFC3339),
			"reason":      reason,
			"national_id": nationalID,
			"was_created": wasCreated,
		}, audit.SeverityAlert); err != nil {
		return nil, err
	}

	s.notifySecurity(doctor, patient.ID, reason, wasCreated)

	return &BreakGlassResult{
		Grant: g,
		Patient: &PatientSummary{
			ID:           patient.ID,
			Name:         patient.Name,
			Email:        patient.Email,
			NationalIDNo: patient.NationalIDNo,
		},
		WasCreated: wasCreated,
	}, nil
}

// SearchPatientByNationalID looks up a citizen by national id for the
// emergency UI. A miss is reported as found=false, not an error.
func (s *Service) SearchPatientByNationalID(ctx context.Context, doctorID uuid.UUID, nationalID string) (*SearchResult, error) {
	if _, err := s.requireCaller(ctx, doctorID, auth.ActionPatientSearch); err != nil {
		return nil, err
	}

	patient, err := s.accounts.FindCitizenByNationalID(ctx, nationalID)
	if errors.Is(err, account.ErrNotFound) {
		return &SearchResult{Found: false}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("search patient by national id: %w", err)
	}

	return &SearchResult{
		Found: true,
		Patient: &PatientSummary{
			ID:           patient.ID,
			Name:         patient.Name,
			Email:        patient.Email,
			NationalIDNo: patient.NationalIDNo,
		},
	}, nil
}

// notifySecurity mirrors every break-glass activation into the operational
// log. This stands in for the security-desk notification channel.
func (s *Service) notifySecurity(doctor *account.Account, patientID uuid.UUID, reason string, wasCreated bool) {
	event := s.log.Warn().
		Str("doctor_id", doctor.ID.String()).
		Str("patient_id", patientID.String()).
		Str("reason", reason).
		Bool("patient_created", wasCreated)
	if doctor.Name != nil {
		event = event.Str("doctor_name", *doctor.Name)
	}
	event.Msg("break-glass access activated")
}
