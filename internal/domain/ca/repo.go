package ca

import (
	"context"

	"github.com/google/uuid"
)

// KeyRepository stores system-level key material.
type KeyRepository interface {
	// GetRootKey returns the single ROOT_CA row, or ErrRootCANotInitialized.
	GetRootKey(ctx context.Context) (*SystemKey, error)
	// CreateRootKey inserts the ROOT_CA row. The unique index makes a second
	// insert fail.
	CreateRootKey(ctx context.Context, k *SystemKey) error
}

// HospitalRepository stores hospital records and their issued identities.
type HospitalRepository interface {
	Create(ctx context.Context, h *Hospital) error
	GetByID(ctx context.Context, id uuid.UUID) (*Hospital, error)
	List(ctx context.Context, limit, offset int) ([]*Hospital, int, error)
	// SaveIdentity writes the issued key material onto the hospital row,
	// overwriting any previous identity.
	SaveIdentity(ctx context.Context, id uuid.UUID, publicKey, privateKeyEnc, certPEM, serial string) error
}
