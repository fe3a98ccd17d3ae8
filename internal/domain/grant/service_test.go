package grant

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"
)

type mockGrantRepo struct {
	grants map[uuid.UUID]*AccessGrant
	seq    int
}

func newMockGrantRepo() *mockGrantRepo {
	return &mockGrantRepo{grants: make(map[uuid.UUID]*AccessGrant)}
}

func (m *mockGrantRepo) Create(_ context.Context, g *AccessGrant) error {
	if g.ID == uuid.Nil {
		g.ID = uuid.New()
	}
	m.seq++
	g.CreatedAt = time.Unix(int64(m.seq), 0)
	m.grants[g.ID] = g
	return nil
}

func (m *mockGrantRepo) LatestActive(_ context.Context, doctorID, patientID uuid.UUID, now time.Time) (*AccessGrant, error) {
	var latest *AccessGrant
	for _, g := range m.grants {
		if g.DoctorID != doctorID || g.PatientID != patientID {
			continue
		}
		if !g.ExpiresAt.After(now) {
			continue
		}
		if latest == nil || g.CreatedAt.After(latest.CreatedAt) {
			latest = g
		}
	}
	return latest, nil
}

func (m *mockGrantRepo) ListActiveForPatient(_ context.Context, patientID uuid.UUID, now time.Time, limit, offset int) ([]*AccessGrant, int, error) {
	var result []*AccessGrant
	for _, g := range m.grants {
		if g.PatientID == patientID && g.ExpiresAt.After(now) {
			result = append(result, g)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })
	return result, len(result), nil
}

func TestCheckAccessSelf(t *testing.T) {
	store := NewStore(newMockGrantRepo())
	id := uuid.New()

	d, err := store.CheckAccess(context.Background(), id, id)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !d.Allowed || !d.SelfAccess {
		t.Errorf("self access must be allowed, got %+v", d)
	}
}

func TestCheckAccessNoGrant(t *testing.T) {
	store := NewStore(newMockGrantRepo())

	d, err := store.CheckAccess(context.Background(), uuid.New(), uuid.New())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Allowed {
		t.Error("expected denial without a grant")
	}
}

func TestCheckAccessActiveGrant(t *testing.T) {
	repo := newMockGrantRepo()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store := NewStoreWithClock(repo, func() time.Time { return now })

	doctorID, patientID := uuid.New(), uuid.New()
	g := &AccessGrant{
		DoctorID:  doctorID,
		PatientID: patientID,
		GrantType: TypeConsent,
		Reason:    "Patient Consent",
		ExpiresAt: now.Add(ConsentDuration),
	}
	if err := store.Grant(context.Background(), g); err != nil {
		t.Fatalf("grant failed: %v", err)
	}

	d, err := store.CheckAccess(context.Background(), doctorID, patientID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !d.Allowed {
		t.Fatal("expected access")
	}
	if *d.GrantID != g.ID || d.GrantType != TypeConsent {
		t.Errorf("unexpected decision: %+v", d)
	}
	if !d.ExpiresAt.Equal(g.ExpiresAt) {
		t.Errorf("expiry mismatch: %v", d.ExpiresAt)
	}
}

func TestCheckAccessExpiryBoundary(t *testing.T) {
	repo := newMockGrantRepo()
	expiry := time.Date(2026, 3, 1, 12, 30, 0, 0, time.UTC)

	doctorID, patientID := uuid.New(), uuid.New()
	repo.Create(context.Background(), &AccessGrant{
		DoctorID: doctorID, PatientID: patientID,
		GrantType: TypeEmergency, Reason: "cardiac arrest", ExpiresAt: expiry,
	})

	check := func(now time.Time) bool {
		store := NewStoreWithClock(repo, func() time.Time { return now })
		d, err := store.CheckAccess(context.Background(), doctorID, patientID)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		return d.Allowed
	}

	if !check(expiry.Add(-time.Second)) {
		t.Error("grant should be active just before expiry")
	}
	if check(expiry) {
		t.Error("grant expiring exactly now must be denied")
	}
	if check(expiry.Add(time.Second)) {
		t.Error("grant should be denied after expiry")
	}
}

func TestCheckAccessPicksNewestGrant(t *testing.T) {
	repo := newMockGrantRepo()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store := NewStoreWithClock(repo, func() time.Time { return now })

	doctorID, patientID := uuid.New(), uuid.New()
	repo.Create(context.Background(), &AccessGrant{
		DoctorID: doctorID, PatientID: patientID,
		GrantType: TypeEmergency, Reason: "first", ExpiresAt: now.Add(10 * time.Minute),
	})
	second := &AccessGrant{
		DoctorID: doctorID, PatientID: patientID,
		GrantType: TypeConsent, Reason: "second", ExpiresAt: now.Add(ConsentDuration),
	}
	repo.Create(context.Background(), second)

	d, err := store.CheckAccess(context.Background(), doctorID, patientID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !d.Allowed || *d.GrantID != second.ID {
		t.Errorf("expected the newest grant to win, got %+v", d)
	}
}

func TestActiveGrantsForPatient(t *testing.T) {
	repo := newMockGrantRepo()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store := NewStoreWithClock(repo, func() time.Time { return now })

	patientID := uuid.New()
	repo.Create(context.Background(), &AccessGrant{
		DoctorID: uuid.New(), PatientID: patientID,
		GrantType: TypeConsent, Reason: "active", ExpiresAt: now.Add(time.Hour),
	})
	repo.Create(context.Background(), &AccessGrant{
		DoctorID: uuid.New(), PatientID: patientID,
		GrantType: TypeEmergency, Reason: "expired", ExpiresAt: now.Add(-time.Hour),
	})

	items, total, err := store.ActiveGrantsForPatient(context.Background(), patientID, 20, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 1 || len(items) != 1 {
		t.Fatalf("expected one active grant, got %d", total)
	}
	if items[0].Reason != "active" {
		t.Errorf("wrong grant returned: %s", items[0].Reason)
	}
}
