package ca

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

type KeyRepoPG struct {
	pool *pgxpool.Pool
}

func NewKeyRepoPG(pool *pgxpool.Pool) *KeyRepoPG {
	return &KeyRepoPG{pool: pool}
}

func (r *KeyRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

func (r *KeyRepoPG) GetRootKey(ctx context.Context) (*SystemKey, error) {
	var k SystemKey
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT id, key_type, public_key, private_key_enc, certificate_pem, created_at
		FROM system_keys WHERE key_type = $1`,
		KeyTypeRootCA,
	).Scan(&k.ID, &k.KeyType, &k.PublicKey, &k.PrivateKeyEnc, &k.CertificatePEM, &k.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrRootCANotInitialized
	}
	if err != nil {
		return nil, err
	}
	return &k, nil
}

func (r *KeyRepoPG) CreateRootKey(ctx context.Context, k *SystemKey) error {
	if k.ID == uuid.Nil {
		k.ID = uuid.New()
	}
	k.KeyType = KeyTypeRootCA
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO system_keys (id, key_type, public_key, private_key_enc, certificate_pem)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at`,
		k.ID, k.KeyType, k.PublicKey, k.PrivateKeyEnc, k.CertificatePEM,
	).Scan(&k.CreatedAt)
}

type HospitalRepoPG struct {
	pool *pgxpool.Pool
}

func NewHospitalRepoPG(pool *pgxpool.Pool) *HospitalRepoPG {
	return &HospitalRepoPG{pool: pool}
}

func (r *HospitalRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const hospitalCols = `id, name, contact_number, email, province, district, city,
	public_key, private_key_enc, certificate_pem, certificate_serial, identity_issued_at, created_at`

func scanHospital(row pgx.Row) (*Hospital, error) {
	var h Hospital
	err := row.Scan(&h.ID, &h.Name, &h.ContactNumber, &h.Email, &h.Province, &h.District, &h.City,
		&h.PublicKey, &h.PrivateKeyEnc, &h.CertificatePEM, &h.CertificateSerial, &h.IdentityIssuedAt, &h.CreatedAt)
	return &h, err
}

func (r *HospitalRepoPG) Create(ctx context.Context, h *Hospital) error {
	if h.ID == uuid.Nil {
		h.ID = uuid.New()
	}
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO hospitals (id, name, contact_number, email, province, district, city)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at`,
		h.ID, h.Name, h.ContactNumber, h.Email, h.Province, h.District, h.City,
	).Scan(&h.CreatedAt)
}

func (r *HospitalRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Hospital, error) {
	h, err := scanHospital(r.conn(ctx).QueryRow(ctx,
		`SELECT `+hospitalCols+` FROM hospitals WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrHospitalNotFound
	}
	if err != nil {
		return nil, err
	}
	return h, nil
}

func (r *HospitalRepoPG) List(ctx context.Context, limit, offset int) ([]*Hospital, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM hospitals`).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+hospitalCols+` FROM hospitals ORDER BY name LIMIT $1 OFFSET $2`,
		limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Hospital
	for rows.Next() {
		h, err := scanHospital(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, h)
	}
	return items, total, rows.Err()
}

func (r *HospitalRepoPG) SaveIdentity(ctx context.Context, id uuid.UUID, publicKey, privateKeyEnc, certPEM, serial string) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE hospitals
		SET public_key = $2, private_key_enc = $3, certificate_pem = $4,
		    certificate_serial = $5, identity_issued_at = NOW()
		WHERE id = $1`,
		id, publicKey, privateKeyEnc, certPEM, serial)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrHospitalNotFound
	}
	return nil
}
