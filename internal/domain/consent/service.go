package consent

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/nikohealth/trustcore/internal/domain/audit"
	"github.com/nikohealth/trustcore/internal/domain/grant"
	"github.com/nikohealth/trustcore/internal/platform/db"
)

// Service runs the patient-consent workflow: a doctor requests access, the
// patient approves or rejects, and approval mints a three-day CONSENT grant.
type Service struct {
	repo   Repository
	grants *grant.Store
	audit  *audit.Logger
	pool   *pgxpool.Pool
	log    zerolog.Logger
}

func NewService(repo Repository, grants *grant.Store, auditLog *audit.Logger, pool *pgxpool.Pool, log zerolog.Logger) *Service {
	return &Service{repo: repo, grants: grants, audit: auditLog, pool: pool, log: log}
}

// RequestAccess creates a pending access request from doctor to patient, or
// returns the existing pending one if the doctor already asked. The unique
// partial index on (doctor_id, patient_id, PENDING) backs the dedup under
// concurrent requests.
func (s *Service) RequestAccess(ctx context.Context, doctorID, patientID uuid.UUID) (*RequestOutcome, error) {
	if existing, err := s.repo.FindPending(ctx, doctorID, patientID); err != nil {
		return nil, fmt.Errorf("check pending request: %w", err)
	} else if existing != nil {
		return &RequestOutcome{Request: existing, AlreadyPending: true}, nil
	}

	req := &AccessRequest{DoctorID: doctorID, PatientID: patientID}
	if err := s.repo.Create(ctx, req); err != nil {
		if IsUniquePendingViolation(err) {
			existing, ferr := s.repo.FindPending(ctx, doctorID, patientID)
			if ferr != nil || existing == nil {
				return nil, fmt.Errorf("create access request: %w", err)
			}
			return &RequestOutcome{Request: existing, AlreadyPending: true}, nil
		}
		return nil, fmt.Errorf("create access request: %w", err)
	}

	s.audit.Log(ctx, doctorID, audit.ActionAccessRequestCreated, "access_request", &req.ID,
		map[string]interface{}{"patient_id": patientID.String()}, audit.SeverityInfo)

	return &RequestOutcome{Request: req}, nil
}

// ApproveAccess lets the requested patient approve a pending request. The
// status flip and the CONSENT grant land in one transaction; a half-approved
// request cannot exist.
func (s *Service) ApproveAccess(ctx context.Context, callerID, requestID uuid.UUID) (*grant.AccessGrant, error) {
	req, err := s.repo.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req.PatientID != callerID {
		return nil, ErrNotRequestOwner
	}
	if req.Status != StatusPending {
		return nil, ErrRequestAlreadyDecided
	}

	g := &grant.AccessGrant{
		DoctorID:  req.DoctorID,
		PatientID: req.PatientID,
		GrantType: grant.TypeConsent,
		Reason:    "Patient Consent",
		ExpiresAt: s.grants.Now().Add(grant.ConsentDuration),
	}

	err = db.InTx(ctx, s.pool, func(txCtx context.Context) error {
		if err := s.repo.UpdateStatus(txCtx, req.ID, StatusApproved); err != nil {
			return err
		}
		return s.grants.Grant(txCtx, g)
	})
	if err != nil {
		return nil, fmt.Errorf("approve access request: %w", err)
	}

	s.audit.Log(ctx, callerID, audit.ActionAccessRequestApproved, "access_request", &req.ID,
		map[string]interface{}{
			"doctor_id":  req.DoctorID.String(),
			"grant_id":   g.ID.String(),
			"expires_at": g.ExpiresAt.Format(time.RFC3339),
		}, audit.SeverityInfo)

	return g, nil
}

// RejectAccess lets the requested patient reject a pending request. No grant
// is created and the doctor may ask again later.
func (s *Service) RejectAccess(ctx context.Context, callerID, requestID uuid.UUID) (*AccessRequest, error) {
	req, err := s.repo.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req.PatientID != callerID {
		return nil, ErrNotRequestOwner
	}
	if req.Status != StatusPending {
		return nil, ErrRequestAlreadyDecided
	}

	if err := s.repo.UpdateStatus(ctx, req.ID, StatusRejected); err != nil {
		return nil, fmt.Errorf("reject access request: %w", err)
	}
	req.Status = StatusRejected

	s.audit.Log(ctx, callerID, audit.ActionAccessRequestRejected, "access_request", &req.ID,
		map[string]interface{}{"doctor_id": req.DoctorID.String()}, audit.SeverityInfo)

	return req, nil
}

// PatientPendingRequests lists the caller's inbox of pending requests.
func (s *Service) PatientPendingRequests(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*PendingRequest, int, error) {
	return s.repo.ListPendingForPatient(ctx, patientID, limit, offset)
}
