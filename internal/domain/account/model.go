package account

import (
	"time"

	"github.com/google/uuid"
)

// Account maps to the accounts table. Name is nullable: emergency placeholder
// accounts are created before the patient's name is known.
type Account struct {
	ID           uuid.UUID `db:"id" json:"id"`
	Email        string    `db:"email" json:"email"`
	Name         *string   `db:"name" json:"name,omitempty"`
	Role         string    `db:"role" json:"role"`
	NationalIDNo *string   `db:"national_id_no" json:"national_id_no,omitempty"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}
