package emergency

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/nikohealth/trustcore/internal/domain/account"
	"github.com/nikohealth/trustcore/internal/domain/audit"
	"github.com/nikohealth/trustcore/internal/domain/grant"
	"github.com/nikohealth/trustcore/internal/platform/auth"
)

// -- Mock repositories --

type mockAccountRepo struct {
	accounts map[uuid.UUID]*account.Account
}

func newMockAccountRepo() *mockAccountRepo {
	return &mockAccountRepo{accounts: make(map[uuid.UUID]*account.Account)}
}

func (m *mockAccountRepo) add(role string, nationalID *string) *account.Account {
	a := &account.Account{ID: uuid.New(), Email: "user@example.org", Role: role, NationalIDNo: nationalID}
	m.accounts[a.ID] = a
	return a
}

func (m *mockAccountRepo) GetByID(_ context.Context, id uuid.UUID) (*account.Account, error) {
	a, ok := m.accounts[id]
	if !ok {
		return nil, account.ErrNotFound
	}
	return a, nil
}

func (m *mockAccountRepo) FindCitizenByNationalID(_ context.Context, nationalID string) (*account.Account, error) {
	for _, a := range m.accounts {
		if a.Role == auth.RoleCitizen && a.NationalIDNo != nil && *a.NationalIDNo == nationalID {
			return a, nil
		}
	}
	return nil, account.ErrNotFound
}

func (m *mockAccountRepo) Create(_ context.Context, a *account.Account) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	a.CreatedAt = time.Now()
	m.accounts[a.ID] = a
	return nil
}

type mockGrantRepo struct {
	grants  []*grant.AccessGrant
	failing bool
}

func (m *mockGrantRepo) Create(_ context.Context, g *grant.AccessGrant) error {
	if m.failing {
		return fmt.Errorf("insert failed")
	}
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

type emergencyFixture struct {
	svc      *Service
	accounts *mockAccountRepo
	grants   *mockGrantRepo
	auditLog *mockAuditRepo
	now      time.Time
}

func newEmergencyFixture() *emergencyFixture {
	f := &emergencyFixture{
		accounts: newMockAccountRepo(),
		grants:   &mockGrantRepo{},
		auditLog: &mockAuditRepo{},
		now:      time.Date(2026, 3, 1, 3, 0, 0, 0, time.UTC),
	}
	store := grant.NewStoreWithClock(f.grants, func() time.Time { return f.now })
	logger := audit.NewLogger(f.auditLog, zerolog.Nop())
	f.svc = NewService(f.accounts, store, logger, zerolog.Nop())
	return f
}

func TestActivateBreakGlass(t *testing.T) {
	f := newEmergencyFixture()
	doctor := f.accounts.add(auth.RoleDoctor, nil)
	patient := f.accounts.add(auth.RoleCitizen, nil)

	result, err := f.svc.ActivateBreakGlass(context.Background(), doctor.ID, patient.ID, "unconscious in ER")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	g := result.Grant
	if g.GrantType != grant.TypeEmergency || g.Reason != "unconscious in ER" {
		t.Errorf("unexpected grant: %+v", g)
	}
	if want := f.now.Add(grant.EmergencyDuration); !g.ExpiresAt.Equal(want) {
		t.Errorf("expected 30 minute expiry, got %v", g.ExpiresAt)
	}

	got := f.auditLog.actions()
	want := []string{audit.ActionEmergencyAttempt, audit.ActionEmergencyGranted}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("audit trail out of order: %v", got)
	}
	if f.auditLog.entries[0].Severity != audit.SeverityCritical {
		t.Errorf("attempt entry must be CRITICAL, got %s", f.auditLog.entries[0].Severity)
	}
	if f.auditLog.entries[1].Severity != audit.SeverityAlert {
		t.Errorf("granted entry must be ALERT, got %s", f.auditLog.entries[1].Severity)
	}
}

func TestActivateBreakGlassNonDoctor(t *testing.T) {
	f := newEmergencyFixture()
	nurse := f.accounts.add(auth.RoleCitizen, nil)
	patient := f.accounts.add(auth.RoleCitizen, nil)

	_, err := f.svc.ActivateBreakGlass(context.Background(), nurse.ID, patient.ID, "reason")
	if !errors.Is(err, ErrNotDoctor) {
		t.Fatalf("expected ErrNotDoctor, got %v", err)
	}
	if len(f.grants.grants) != 0 {
		t.Error("no grant may exist after a refused activation")
	}
	if len(f.auditLog.entries) != 0 {
		t.Error("no audit entry before the role check passes")
	}
}

func TestActivateBreakGlassGrantFailureKeepsAttempt(t *testing.T) {
	f := newEmergencyFixture()
	f.grants.failing = true
	doctor := f.accounts.add(auth.RoleDoctor, nil)
	patient := f.accounts.add(auth.RoleCitizen, nil)

	_, err := f.svc.ActivateBreakGlass(context.Background(), doctor.ID, patient.ID, "reason")
	if err == nil {
		t.Fatal("expected error from failing grant store")
	}

	got := f.auditLog.actions()
	if len(got) != 1 || got[0] != audit.ActionEmergencyAttempt {
		t.Errorf("the attempt entry must survive a failed grant, got %v", got)
	}
}

func TestBreakGlassAccessWindow(t *testing.T) {
	f := newEmergencyFixture()
	doctor := f.accounts.add(auth.RoleDoctor, nil)
	patient := f.accounts.add(auth.RoleCitizen, nil)

	activated := f.now
	if _, err := f.svc.ActivateBreakGlass(context.Background(), doctor.ID, patient.ID, "reason"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	check := func(at time.Time) bool {
		store := grant.NewStoreWithClock(f.grants, func() time.Time { return at })
		d, err := store.CheckAccess(context.Background(), doctor.ID, patient.ID)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		return d.Allowed
	}

	if !check(activated.Add(29 * time.Minute)) {
		t.Error("access should hold 29 minutes after activation")
	}
	if check(activated.Add(31 * time.Minute)) {
		t.Error("access must lapse 31 minutes after activation")
	}
}

func TestEmergencyAccessByNationalIDExisting(t *testing.T) {
	f := newEmergencyFixture()
	doctor := f.accounts.add(auth.RoleDoctor, nil)
	nid := "12-34-56-78901"
	patient := f.accounts.add(auth.RoleCitizen, &nid)

	result, err := f.svc.EmergencyAccessByNationalID(context.Background(), doctor.ID, nid, "roadside accident", false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.WasCreated {
		t.Error("existing patient must not be reported as created")
	}
	if result.Patient.ID != patient.ID {
		t.Error("wrong patient resolved")
	}

	got := f.auditLog.actions()
	want := []string{audit.ActionEmergencySearch, audit.ActionEmergencyGranted}
	if len(got) != 2 || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("audit trail out of order: %v", got)
	}
}

func TestEmergencyAccessByNationalIDCreatesPlaceholder(t *testing.T) {
	f := newEmergencyFixture()
	doctor := f.accounts.add(auth.RoleDoctor, nil)
	nid := "99-88-77-66554"

	result, err := f.svc.EmergencyAccessByNationalID(context.Background(), doctor.ID, nid, "unidentified patient", true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.WasCreated {
		t.Fatal("expected a placeholder account to be created")
	}

	p := result.Patient
	if p.Email != fmt.Sprintf("emergency_%s@placeholder.niko.health", nid) {
		t.Errorf("unexpected placeholder email: %s", p.Email)
	}
	if p.Name != nil {
		t.Error("placeholder name must be null")
	}
	if p.NationalIDNo == nil || *p.NationalIDNo != nid {
		t.Error("placeholder must carry the national id")
	}

	created, err := f.accounts.FindCitizenByNationalID(context.Background(), nid)
	if err != nil {
		t.Fatalf("placeholder not persisted: %v", err)
	}
	if created.Role != auth.RoleCitizen {
		t.Errorf("placeholder role must be citizen, got %s", created.Role)
	}

	got := strings.Join(f.auditLog.actions(), ",")
	want := strings.Join([]string{
		audit.ActionEmergencySearch,
		audit.ActionEmergencyPatientCreate,
		audit.ActionEmergencyGranted,
	}, ",")
	if got != want {
		t.Errorf("audit trail out of order: %s", got)
	}
}

func TestEmergencyAccessByNationalIDNotFound(t *testing.T) {
	f := newEmergencyFixture()
	doctor := f.accounts.add(auth.RoleDoctor, nil)

	_, err := f.svc.EmergencyAccessByNationalID(context.Background(), doctor.ID, "00-00-00-00000", "reason", false)
	if !errors.Is(err, ErrPatientNotFound) {
		t.Fatalf("expected ErrPatientNotFound, got %v", err)
	}
	if len(f.grants.grants) != 0 {
		t.Error("no grant without a patient")
	}

	// The search attempt itself is still on record.
	got := f.auditLog.actions()
	if len(got) != 1 || got[0] != audit.ActionEmergencySearch {
		t.Errorf("expected only the search entry, got %v", got)
	}
}

func TestSearchPatientByNationalID(t *testing.T) {
	f := newEmergencyFixture()
	doctor := f.accounts.add(auth.RoleDoctor, nil)
	nid := "11-22-33-44556"
	f.accounts.add(auth.RoleCitizen, &nid)

	found, err := f.svc.SearchPatientByNationalID(context.Background(), doctor.ID, nid)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !found.Found || found.Patient == nil {
		t.Error("expected the patient to be found")
	}

	missing, err := f.svc.SearchPatientByNationalID(context.Background(), doctor.ID, "no-such-id")
	if err != nil {
		t.Fatalf("a miss must not be an error: %v", err)
	}
	if missing.Found {
		t.Error("expected found=false")
	}
}

func TestActivateBreakGlassMinistryDenied(t *testing.T) {
	f := newEmergencyFixture()
	official := f.accounts.add(auth.RoleMinistry, nil)
	patient := f.accounts.add(auth.RoleCitizen, nil)

	_, err := f.svc.ActivateBreakGlass(context.Background(), official.ID, patient.ID, "reason")
	if !errors.Is(err, ErrNotDoctor) {
		t.Fatalf("expected ErrNotDoctor, got %v", err)
	}
	if len(f.auditLog.entries) != 0 {
		t.Error("a refused caller must not reach the audited protocol")
	}
}

func TestSearchPatientRequiresDoctor(t *testing.T) {
	f := newEmergencyFixture()
	citizen := f.accounts.add(auth.RoleCitizen, nil)

	if _, err := f.svc.SearchPatientByNationalID(context.Background(), citizen.ID, "x"); !errors.Is(err, ErrNotDoctor) {
		t.Errorf("expected ErrNotDoctor, got %v", err)
	}
}
