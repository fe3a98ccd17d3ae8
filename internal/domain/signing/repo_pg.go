package signing

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

func (r *RepoPG) CreateReport(ctx context.Context, report *LabReport, items []*ReportItem) error {
	if report.ID == uuid.Nil {
		report.ID = uuid.New()
	}
	return db.InTx(ctx, r.pool, func(txCtx context.Context) error {
		_, err := r.conn(txCtx).Exec(txCtx, `
			INSERT INTO lab_reports (id, record_id, report_type, report_date)
			VALUES ($1, $2, $3, $4)`,
			report.ID, report.RecordID, report.ReportType, report.ReportDate)
		if err != nil {
			return err
		}
		for i, item := range items {
			if item.ID == uuid.Nil {
				item.ID = uuid.New()
			}
			item.ReportID = report.ID
			item.Position = i
			_, err := r.conn(txCtx).Exec(txCtx, `
				INSERT INTO lab_report_items (id, report_id, test_name, result, unit, position)
				VALUES ($1, $2, $3, $4, $5, $6)`,
				item.ID, item.ReportID, item.TestName, item.Result, item.Unit, item.Position)
			if err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *RepoPG) GetReport(ctx context.Context, id uuid.UUID) (*LabReport, error) {
	var rep LabReport
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT id, record_id, report_type, report_date, report_hash, signature, signer_hospital_id, signed_at
		FROM lab_reports WHERE id = $1`, id,
	).Scan(&rep.ID, &rep.RecordID, &rep.ReportType, &rep.ReportDate,
		&rep.ReportHash, &rep.Signature, &rep.SignerHospitalID, &rep.SignedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrReportNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rep, nil
}

func (r *RepoPG) GetItems(ctx context.Context, reportID uuid.UUID) ([]*ReportItem, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, report_id, test_name, result, unit, position
		FROM lab_report_items WHERE report_id = $1 ORDER BY position`, reportID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*ReportItem
	for rows.Next() {
		var item ReportItem
		if err := rows.Scan(&item.ID, &item.ReportID, &item.TestName, &item.Result, &item.Unit, &item.Position); err != nil {
			return nil, err
		}
		items = append(items, &item)
	}
	return items, rows.Err()
}

func (r *RepoPG) SaveSignature(ctx context.Context, id uuid.UUID, hash, signature string, hospitalID uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE lab_reports
		SET report_hash = $2, signature = $3, signer_hospital_id = $4, signed_at = NOW()
		WHERE id = $1`,
		id, hash, signature, hospitalID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrReportNotFound
	}
	return nil
}
