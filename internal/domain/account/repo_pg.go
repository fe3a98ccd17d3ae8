package account

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nikohealth/trustcore/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type RepoPG struct {
	pool *pgxpool.Pool
}

func NewRepoPG(pool *pgxpool.Pool) *RepoPG {
	return &RepoPG{pool: pool}
}

func (r *RepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const accountCols = `id, email, name, role, national_id_no, created_at`

func scanAccount(row pgx.Row) (*Account, error) {
	var a Account
	err := row.Scan(&a.ID, &a.Email, &a.Name, &a.Role, &a.NationalIDNo, &a.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return &a, err
}

func (r *RepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Account, error) {
	return scanAccount(r.conn(ctx).QueryRow(ctx,
		`SELECT `+accountCols+` FROM accounts WHERE id = $1`, id))
}

func (r *RepoPG) FindCitizenByNationalID(ctx context.Context, nationalID string) (*Account, error) {
	return scanAccount(r.conn(ctx).QueryRow(ctx,
		`SELECT `+accountCols+` FROM accounts WHERE national_id_no = $1 AND role = 'citizen'`, nationalID))
}

func (r *RepoPG) Create(ctx context.Context, a *Account) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO accounts (id, email, name, role, national_id_no)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at`,
		a.ID, a.Email, a.Name, a.Role, a.NationalIDNo,
	).Scan(&a.CreatedAt)
}
