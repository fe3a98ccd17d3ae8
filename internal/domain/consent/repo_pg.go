package consent

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

const requestCols = `id, doctor_id, patient_id, status, created_at, updated_at`

func scanRequest(row pgx.Row) (*AccessRequest, error) {
	var req AccessRequest
	err := row.Scan(&req.ID, &req.DoctorID, &req.PatientID, &req.Status, &req.CreatedAt, &req.UpdatedAt)
	return &req, err
}

// IsUniquePendingViolation reports whether err is the unique partial index on
// (doctor_id, patient_id) WHERE status = 'PENDING' firing under a concurrent
// duplicate request.
func IsUniquePendingViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func (r *RepoPG) Create(ctx context.Context, req *AccessRequest) error {
	if req.ID == uuid.Nil {
		req.ID = uuid.New()
	}
	req.Status = StatusPending
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO access_requests (id, doctor_id, patient_id, status)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at, updated_at`,
		req.ID, req.DoctorID, req.PatientID, req.Status,
	).Scan(&req.CreatedAt, &req.UpdatedAt)
}

func (r *RepoPG) GetByID(ctx context.Context, id uuid.UUID) (*AccessRequest, error) {
	req, err := scanRequest(r.conn(ctx).QueryRow(ctx,
		`SELECT `+requestCols+` FROM access_requests WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrRequestNotFound
	}
	return req, err
}

func (r *RepoPG) FindPending(ctx context.Context, doctorID, patientID uuid.UUID) (*AccessRequest, error) {
	req, err := scanRequest(r.conn(ctx).QueryRow(ctx, `
		SELECT `+requestCols+` FROM access_requests
		WHERE doctor_id = $1 AND patient_id = $2 AND status = $3`,
		doctorID, patientID, StatusPending))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return req, nil
}

func (r *RepoPG) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE access_requests SET status = $2, updated_at = NOW() WHERE id = $1`,
		id, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrRequestNotFound
	}
	return nil
}

func (r *RepoPG) ListPendingForPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*PendingRequest, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM access_requests WHERE patient_id = $1 AND status = $2`,
		patientID, StatusPending,
	).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.conn(ctx).Query(ctx, `
		SELECT ar.id, ar.doctor_id, ar.patient_id, ar.status, ar.created_at, ar.updated_at,
		       a.name AS doctor_name, a.email AS doctor_email
		FROM access_requests ar
		JOIN accounts a ON a.id = ar.doctor_id
		WHERE ar.patient_id = $1 AND ar.status = $2
		ORDER BY ar.created_at DESC
		LIMIT $3 OFFSET $4`,
		patientID, StatusPending, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*PendingRequest
	for rows.Next() {
		var p PendingRequest
		if err := rows.Scan(&p.ID, &p.DoctorID, &p.PatientID, &p.Status, &p.CreatedAt, &p.UpdatedAt,
			&p.DoctorName, &p.DoctorEmail); err != nil {
			return nil, 0, err
		}
		items = append(items, &p)
	}
	return items, total, rows.Err()
}
