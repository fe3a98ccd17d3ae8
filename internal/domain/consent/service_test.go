package consent

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/nikohealth/trustcore/internal/domain/audit"
	"github.com/nikohealth/trustcore/internal/domain/grant"
)

// -- Mock repositories --

type mockRequestRepo struct {
	requests map[uuid.UUID]*AccessRequest
	seq      int
}

func newMockRequestRepo() *mockRequestRepo {
	return &mockRequestRepo{requests: make(map[uuid.UUID]*AccessRequest)}
}

func (m *mockRequestRepo) Create(_ context.Context, r *AccessRequest) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	r.Status = StatusPending
	m.seq++
	r.CreatedAt = time.Unix(int64(m.seq), 0)
	r.UpdatedAt = r.CreatedAt
	m.requests[r.ID] = r
	return nil
}

func (m *mockRequestRepo) GetByID(_ context.Context, id uuid.UUID) (*AccessRequest, error) {
	r, ok := m.requests[id]
	if !ok {
		return nil, ErrRequestNotFound
	}
	return r, nil
}

func (m *mockRequestRepo) FindPending(_ context.Context, doctorID, patientID uuid.UUID) (*AccessRequest, error) {
	for _, r := range m.requests {
		if r.DoctorID == doctorID && r.PatientID == patientID && r.Status == StatusPending {
			return r, nil
		}
	}
	return nil, nil
}

func (m *mockRequestRepo) UpdateStatus(_ context.Context, id uuid.UUID, status string) error {
	r, ok := m.requests[id]
	if !ok {
		return ErrRequestNotFound
	}
	r.Status = status
	r.UpdatedAt = time.Now()
	return nil
}

func (m *mockRequestRepo) ListPendingForPatient(_ context.Context, patientID uuid.UUID, limit, offset int) ([]*PendingRequest, int, error) {
	var result []*PendingRequest
	for _, r := range m.requests {
		if r.PatientID == patientID && r.Status == StatusPending {
			result = append(result, &PendingRequest{AccessRequest: *r, DoctorEmail: "doc@example.org"})
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })
	return result, len(result), nil
}

type mockGrantRepo struct {
	grants []*grant.AccessGrant
}

func (m *mockGrantRepo) Create(_ context.Context, g *grant.AccessGrant) error {
	if g.ID == uuid.Nil {
		g.ID = uuid.New()
	}
	m.grants = append(m.grants, g)
	return nil
}

func (m *mockGrantRepo) LatestActive(_ context.Context, doctorID, patientID uuid.UUID, now time.Time) (*grant.AccessGrant, error) {
	for i := len(m.grants) - 1; i >= 0; i-- {
		g := m.grants[i]
		if g.DoctorID == doctorID && g.PatientID == patientID && g.ExpiresAt.After(now) {
			return g, nil
		}
	}
	return nil, nil
}

func (m *mockGrantRepo) ListActiveForPatient(_ context.Context, patientID uuid.UUID, now time.Time, limit, offset int) ([]*grant.AccessGrant, int, error) {
	var result []*grant.AccessGrant
	for _, g := range m.grants {
		if g.PatientID == patientID && g.ExpiresAt.After(now) {
			result = append(result, g)
		}
	}
	return result, len(result), nil
}

type mockAuditRepo struct {
	entries []*audit.Entry
}

func (m *mockAuditRepo) Insert(_ context.Context, e *audit.Entry) error {
	e.ID = uuid.New()
	e.CreatedAt = time.Now()
	m.entries = append(m.entries, e)
	return nil
}

func (m *mockAuditRepo) Search(_ context.Context, _ audit.SearchFilter, limit, offset int) ([]*audit.Entry, int, error) {
	return m.entries, len(m.entries), nil
}

func (m *mockAuditRepo) actions() []string {
	var result []string
	for _, e := range m.entries {
		result = append(result, e.Action)
	}
	return result
}

// -- Tests --

type consentFixture struct {
	svc      *Service
	requests *mockRequestRepo
	grants   *mockGrantRepo
	auditLog *mockAuditRepo
	now      time.Time
}

func newConsentFixture() *consentFixture {
	f := &consentFixture{
		requests: newMockRequestRepo(),
		grants:   &mockGrantRepo{},
		auditLog: &mockAuditRepo{},
		now:      time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	store := grant.NewStoreWithClock(f.grants, func() time.Time { return f.now })
	logger := audit.NewLogger(f.auditLog, zerolog.Nop())
	f.svc = NewService(f.requests, store, logger, nil, zerolog.Nop())
	return f
}

func TestRequestAccess(t *testing.T) {
	f := newConsentFixture()
	doctorID, patientID := uuid.New(), uuid.New()

	out, err := f.svc.RequestAccess(context.Background(), doctorID, patientID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.AlreadyPending {
		t.Error("first request must not report already pending")
	}
	if out.Request.Status != StatusPending {
		t.Errorf("expected PENDING, got %s", out.Request.Status)
	}

	if got := f.auditLog.actions(); len(got) != 1 || got[0] != audit.ActionAccessRequestCreated {
		t.Errorf("unexpected audit trail: %v", got)
	}
}

func TestRequestAccessDeduplicatesPending(t *testing.T) {
	f := newConsentFixture()
	doctorID, patientID := uuid.New(), uuid.New()

	first, _ := f.svc.RequestAccess(context.Background(), doctorID, patientID)
	second, err := f.svc.RequestAccess(context.Background(), doctorID, patientID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !second.AlreadyPending {
		t.Error("duplicate request must report already pending")
	}
	if second.Request.ID != first.Request.ID {
		t.Error("duplicate request must return the existing request")
	}
	if len(f.requests.requests) != 1 {
		t.Errorf("expected one stored request, got %d", len(f.requests.requests))
	}
}

func TestApproveAccess(t *testing.T) {
	f := newConsentFixture()
	doctorID, patientID := uuid.New(), uuid.New()
	out, _ := f.svc.RequestAccess(context.Background(), doctorID, patientID)

	g, err := f.svc.ApproveAccess(context.Background(), patientID, out.Request.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if out.Request.Status != StatusApproved {
		t.Errorf("expected APPROVED, got %s", out.Request.Status)
	}
	if g.GrantType != grant.TypeConsent || g.Reason != "Patient Consent" {
		t.Errorf("unexpected grant: %+v", g)
	}
	if want := f.now.Add(grant.ConsentDuration); !g.ExpiresAt.Equal(want) {
		t.Errorf("expected expiry %v, got %v", want, g.ExpiresAt)
	}
	if len(f.grants.grants) != 1 {
		t.Fatalf("expected one grant, got %d", len(f.grants.grants))
	}

	got := f.auditLog.actions()
	if len(got) != 2 || got[1] != audit.ActionAccessRequestApproved {
		t.Errorf("unexpected audit trail: %v", got)
	}
}

func TestApproveAccessNotOwner(t *testing.T) {
	f := newConsentFixture()
	doctorID, patientID := uuid.New(), uuid.New()
	out, _ := f.svc.RequestAccess(context.Background(), doctorID, patientID)

	_, err := f.svc.ApproveAccess(context.Background(), uuid.New(), out.Request.ID)
	if !errors.Is(err, ErrNotRequestOwner) {
		t.Fatalf("expected ErrNotRequestOwner, got %v", err)
	}

	if out.Request.Status != StatusPending {
		t.Error("request must stay pending")
	}
	if len(f.grants.grants) != 0 {
		t.Error("no grant may be created for a rejected approval")
	}
}

func TestApproveAccessAlreadyDecided(t *testing.T) {
	f := newConsentFixture()
	doctorID, patientID := uuid.New(), uuid.New()
	out, _ := f.svc.RequestAccess(context.Background(), doctorID, patientID)
	if _, err := f.svc.ApproveAccess(context.Background(), patientID, out.Request.ID); err != nil {
		t.Fatalf("first approve failed: %v", err)
	}

	if _, err := f.svc.ApproveAccess(context.Background(), patientID, out.Request.ID); !errors.Is(err, ErrRequestAlreadyDecided) {
		t.Errorf("expected ErrRequestAlreadyDecided, got %v", err)
	}
	if len(f.grants.grants) != 1 {
		t.Errorf("second approval must not create another grant, got %d", len(f.grants.grants))
	}
}

func TestRejectAccess(t *testing.T) {
	f := newConsentFixture()
	doctorID, patientID := uuid.New(), uuid.New()
	out, _ := f.svc.RequestAccess(context.Background(), doctorID, patientID)

	req, err := f.svc.RejectAccess(context.Background(), patientID, out.Request.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.Status != StatusRejected {
		t.Errorf("expected REJECTED, got %s", req.Status)
	}
	if len(f.grants.grants) != 0 {
		t.Error("rejection must not create a grant")
	}

	// The doctor may ask again after a rejection.
	again, err := f.svc.RequestAccess(context.Background(), doctorID, patientID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if again.AlreadyPending {
		t.Error("a new request after rejection must not be deduplicated")
	}
}

func TestRejectAccessNotFound(t *testing.T) {
	f := newConsentFixture()
	if _, err := f.svc.RejectAccess(context.Background(), uuid.New(), uuid.New()); !errors.Is(err, ErrRequestNotFound) {
		t.Errorf("expected ErrRequestNotFound, got %v", err)
	}
}

func TestPatientPendingRequests(t *testing.T) {
	f := newConsentFixture()
	patientID := uuid.New()
	f.svc.RequestAccess(context.Background(), uuid.New(), patientID)
	f.svc.RequestAccess(context.Background(), uuid.New(), patientID)
	f.svc.RequestAccess(context.Background(), uuid.New(), uuid.New())

	items, total, err := f.svc.PatientPendingRequests(context.Background(), patientID, 20, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 2 || len(items) != 2 {
		t.Fatalf("expected two pending requests, got %d", total)
	}
	if items[0].CreatedAt.Before(items[1].CreatedAt) {
		t.Error("pending requests must be newest first")
	}
}
