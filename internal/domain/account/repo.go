package account

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrNotFound is returned when no account matches the lookup.
var ErrNotFound = errors.New("account not found")

type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Account, error)
	// FindCitizenByNationalID returns ErrNotFound when no citizen account
	// carries the national id. Accounts with other roles never match.
	FindCitizenByNationalID(ctx context.Context, nationalID string) (*Account, error)
	Create(ctx context.Context, a *Account) error
}
