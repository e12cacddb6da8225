package dispense

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ehr/orders/internal/domain/prescription"
	"github.com/ehr/orders/internal/platform/db"
	"github.com/ehr/orders/pkg/apperr"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type dispenseRepoPG struct{ pool *pgxpool.Pool }

func NewDispenseRepoPG(pool *pgxpool.Pool) Repository {
	return &dispenseRepoPG{pool: pool}
}

func (r *dispenseRepoPG) conn(ctx context.Context) queryable {
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const dispenseCols = `id, status, medication_request_id, medication_id, quantity_value, quantity_unit,
	when_handed_over, performer, created_at, updated_at`

func (r *dispenseRepoPG) scanDispense(row pgx.Row) (*DispenseRecord, error) {
	var (
		d               DispenseRecord
		unit, performer *string
	)
	err := row.Scan(&d.ID, &d.Status, &d.AuthorizingPrescriptionID, &d.MedicationID,
		&d.Quantity.Value, &unit, &d.WhenHandedOver, &performer, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if unit != nil {
		d.Quantity.Unit = *unit
	}
	if performer != nil {
		d.Performer = *performer
	}
	return &d, nil
}

func (r *dispenseRepoPG) List(ctx context.Context, limit, offset int) ([]*DispenseRecord, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM medication_dispense`).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.conn(ctx).Query(ctx, `SELECT `+dispenseCols+` FROM medication_dispense
		ORDER BY created_at DESC, id LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*DispenseRecord
	for rows.Next() {
		d, err := r.scanDispense(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, d)
	}
	return items, total, rows.Err()
}

func (r *dispenseRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*DispenseRecord, error) {
	d, err := r.scanDispense(r.conn(ctx).QueryRow(ctx,
		`SELECT `+dispenseCols+` FROM medication_dispense WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("medication dispense", id.String())
	}
	return d, err
}

func (r *dispenseRepoPG) CreateFromRequest(ctx context.Context, line *prescription.PrescriptionLine, qty prescription.Quantity, performer string) (*DispenseRecord, error) {
	var unit, perf *string
	if qty.Unit != "" {
		unit = &qty.Unit
	}
	if performer != "" {
		perf = &performer
	}
	d, err := r.scanDispense(r.conn(ctx).QueryRow(ctx, `
		INSERT INTO medication_dispense (id, status, medication_request_id, medication_id,
			quantity_value, quantity_unit, performer)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		RETURNING `+dispenseCols,
		uuid.New(), StatusPreparation, line.ID, line.MedicationID, qty.Value, unit, perf))
	if err != nil {
		return nil, err
	}
	return d, nil
}

func (r *dispenseRepoPG) UpdateStatus(ctx context.Context, id uuid.UUID, status Status, whenHandedOver *time.Time) (*DispenseRecord, error) {
	d, err := r.scanDispense(r.conn(ctx).QueryRow(ctx, `
		UPDATE medication_dispense SET status=$2, when_handed_over=COALESCE($3, when_handed_over), updated_at=NOW()
		WHERE id = $1
		RETURNING `+dispenseCols, id, status, whenHandedOver))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("medication dispense", id.String())
	}
	return d, err
}
