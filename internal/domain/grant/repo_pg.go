package grant

import (
	"context"
	"errors"
	"time"

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

const grantCols = `id, doctor_id, patient_id, grant_type, reason, expires_at, created_at`

func scanGrant(row pgx.Row) (*AccessGrant, error) {
	var g AccessGrant
	err := row.Scan(&g.ID, &g.DoctorID, &g.PatientID, &g.GrantType, &g.Reason, &g.ExpiresAt, &g.CreatedAt)
	return &g, err
}

func (r *RepoPG) Create(ctx context.Context, g *AccessGrant) error {
	if g.ID == uuid.Nil {
		g.ID = uuid.New()
	}
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO access_grants (id, doctor_id, patient_id, grant_type, reason, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at`,
		g.ID, g.DoctorID, g.PatientID, g.GrantType, g.Reason, g.ExpiresAt,
	).Scan(&g.CreatedAt)
}

func (r *RepoPG) LatestActive(ctx context.Context, doctorID, patientID uuid.UUID, now time.Time) (*AccessGrant, error) {
	g, err := scanGrant(r.conn(ctx).QueryRow(ctx, `
		SELECT `+grantCols+` FROM access_grants
		WHERE doctor_id = $1 AND patient_id = $2 AND expires_at > $3
		ORDER BY created_at DESC
		LIMIT 1`,
		doctorID, patientID, now))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return g, nil
}

func (r *RepoPG) ListActiveForPatient(ctx context.Context, patientID uuid.UUID, now time.Time, limit, offset int) ([]*AccessGrant, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM access_grants WHERE patient_id = $1 AND expires_at > $2`,
		patientID, now,
	).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+grantCols+` FROM access_grants
		WHERE patient_id = $1 AND expires_at > $2
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4`,
		patientID, now, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*AccessGrant
	for rows.Next() {
		g, err := scanGrant(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, g)
	}
	return items, total, rows.Err()
}
