package grant

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Store answers the single question every record-reading caller asks before
// returning patient data: may this doctor see this patient right now. Every
// check reads current state; there is no caching of allows or denials.
type Store struct {
	repo Repository
	now  func() time.Time
}

func NewStore(repo Repository) *Store {
	return &Store{repo: repo, now: time.Now}
}

// NewStoreWithClock injects a deterministic clock for tests.
func NewStoreWithClock(repo Repository, now func() time.Time) *Store {
	return &Store{repo: repo, now: now}
}

// CheckAccess evaluates access for the (doctor, patient) pair. A patient
// always sees their own record. Otherwise the newest grant of either type
// whose expiry is strictly in the future satisfies the check; a grant
// expiring exactly now is already expired.
func (s *Store) CheckAccess(ctx context.Context, doctorID, patientID uuid.UUID) (*Decision, error) {
	if doctorID == patientID {
		return &Decision{Allowed: true, SelfAccess: true}, nil
	}

	g, err := s.repo.LatestActive(ctx, doctorID, patientID, s.now())
	if err != nil {
		return nil, err
	}
	if g == nil {
		return &Decision{Allowed: false}, nil
	}

	return &Decision{
		Allowed:   true,
		GrantID:   &g.ID,
		GrantType: g.GrantType,
		ExpiresAt: &g.ExpiresAt,
	}, nil
}

// Grant inserts a new access grant. Grants are immutable; expiry is fixed at
// creation time.
func (s *Store) Grant(ctx context.Context, g *AccessGrant) error {
	return s.repo.Create(ctx, g)
}

// ActiveGrantsForPatient lists who currently holds access to the patient's
// record, newest first.
func (s *Store) ActiveGrantsForPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*AccessGrant, int, error) {
	return s.repo.ListActiveForPatient(ctx, patientID, s.now(), limit, offset)
}

// Now exposes the store's clock so grant-writing callers stamp expiries from
// the same time source the checks read.
func (s *Store) Now() time.Time {
	return s.now()
}
