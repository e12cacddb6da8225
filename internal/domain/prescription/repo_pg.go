package prescription

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/ehr/orders/internal/platform/db"
	"github.com/ehr/orders/pkg/apperr"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	Begin(ctx context.Context) (pgx.Tx, error)
}

type lineRepoPG struct{ pool *pgxpool.Pool }

func NewLineRepoPG(pool *pgxpool.Pool) LineRepository {
	return &lineRepoPG{pool: pool}
}

func (r *lineRepoPG) conn(ctx context.Context) queryable {
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const lineCols = `id, status, intent, priority, patient_id, encounter_id, requester_id,
	authored_on, note, category, identifier, dosage_text, quantity_value, quantity_unit,
	group_system, group_value, medication_id, item_id, created_at, updated_at`

// Lines come back in insertion order. Every line of one CreateBatch shares
// created_at, so seq is what keeps the order the lines were submitted in.
const listByPatientSQL = `SELECT ` + lineCols + ` FROM medication_request
	WHERE patient_id = $1 ORDER BY seq LIMIT $2`

func (r *lineRepoPG) scanLine(row pgx.Row) (*PrescriptionLine, error) {
	var (
		l                      PrescriptionLine
		priority, dosage, unit *string
		qty                    *decimal.Decimal
		groupSys, groupVal     *string
	)
	err := row.Scan(&l.ID, &l.Status, &l.Intent, &priority, &l.PatientID, &l.EncounterID, &l.RequesterID,
		&l.AuthoredOn, &l.Note, &l.Category, &l.Identifier, &dosage, &qty, &unit,
		&groupSys, &groupVal, &l.MedicationID, &l.ItemID, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if priority != nil {
		l.Priority = *priority
	}
	if dosage != nil {
		l.DosageInstruction = *dosage
	}
	if qty != nil || unit != nil {
		l.DispenseQuantity = &Quantity{Value: qty}
		if unit != nil {
			l.DispenseQuantity.Unit = *unit
		}
	}
	if groupVal != nil && *groupVal != "" {
		l.GroupIdentifier = &Identifier{Value: *groupVal}
		if groupSys != nil {
			l.GroupIdentifier.System = *groupSys
		}
	}
	return &l, nil
}

func (r *lineRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*PrescriptionLine, error) {
	l, err := r.scanLine(r.conn(ctx).QueryRow(ctx, `SELECT `+lineCols+` FROM medication_request WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("medication request", id.String())
	}
	if err != nil {
		return nil, err
	}
	ings, err := r.ingredients(ctx, r.conn(ctx), []uuid.UUID{l.ID})
	if err != nil {
		return nil, err
	}
	l.SupportingInformation = ings[l.ID]
	return l, nil
}

func (r *lineRepoPG) ListByPatient(ctx context.Context, patientID uuid.UUID, limit int) ([]*PrescriptionLine, error) {
	q := r.conn(ctx)
	rows, err := q.Query(ctx, listByPatientSQL, patientID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var (
		items []*PrescriptionLine
		ids   []uuid.UUID
	)
	for rows.Next() {
		l, err := r.scanLine(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, l)
		ids = append(ids, l.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return items, nil
	}

	ings, err := r.ingredients(ctx, q, ids)
	if err != nil {
		return nil, err
	}
	for _, l := range items {
		l.SupportingInformation = ings[l.ID]
	}
	return items, nil
}

func (r *lineRepoPG) ingredients(ctx context.Context, q queryable, ids []uuid.UUID) (map[uuid.UUID][]Ingredient, error) {
	rows, err := q.Query(ctx, `
		SELECT request_id, medication_id, item_id, note, quantity, unit_code
		FROM medication_request_ingredient
		WHERE request_id = ANY($1)
		ORDER BY request_id, position`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[uuid.UUID][]Ingredient)
	for rows.Next() {
		var (
			reqID      uuid.UUID
			ing        Ingredient
			note, unit *string
		)
		if err := rows.Scan(&reqID, &ing.MedicationID, &ing.ItemID, &note, &ing.Quantity, &unit); err != nil {
			return nil, err
		}
		if note != nil {
			ing.Note = *note
		}
		if unit != nil {
			ing.UnitCode = *unit
		}
		out[reqID] = append(out[reqID], ing)
	}
	return out, rows.Err()
}

// CreateBatch inserts every line and its ingredients in one transaction.
func (r *lineRepoPG) CreateBatch(ctx context.Context, lines []*PrescriptionLine) error {
	tx, err := r.conn(ctx).Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin create batch: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, l := range lines {
		if l.ID == uuid.Nil {
			l.ID = uuid.New()
		}
		qty, unit := splitQuantity(l.DispenseQuantity)
		groupSys, groupVal := splitIdentifier(l.GroupIdentifier)
		err := tx.QueryRow(ctx, `
			INSERT INTO medication_request (id, status, intent, priority, patient_id, encounter_id,
				requester_id, authored_on, note, category, identifier, dosage_text,
				quantity_value, quantity_unit, group_system, group_value, medication_id, item_id)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18)
			RETURNING created_at, updated_at`,
			l.ID, l.Status, l.Intent, nullable(l.Priority), l.PatientID, l.EncounterID,
			l.RequesterID, l.AuthoredOn, l.Note, l.Category, l.Identifier, nullable(l.DosageInstruction),
			qty, unit, groupSys, groupVal, l.MedicationID, l.ItemID).Scan(&l.CreatedAt, &l.UpdatedAt)
		if err != nil {
			return fmt.Errorf("insert medication request: %w", err)
		}
		if err := insertIngredients(ctx, tx, l); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

// Update writes the full payload and replaces the ingredient list.
func (r *lineRepoPG) Update(ctx context.Context, l *PrescriptionLine) error {
	tx, err := r.conn(ctx).Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin update: %w", err)
	}
	defer tx.Rollback(ctx)

	qty, unit := splitQuantity(l.DispenseQuantity)
	groupSys, groupVal := splitIdentifier(l.GroupIdentifier)
	tag, err := tx.Exec(ctx, `
		UPDATE medication_request SET status=$2, intent=$3, priority=$4, patient_id=$5,
			encounter_id=$6, requester_id=$7, authored_on=$8, note=$9, category=$10,
			identifier=$11, dosage_text=$12, quantity_value=$13, quantity_unit=$14,
			group_system=$15, group_value=$16, medication_id=$17, item_id=$18, updated_at=NOW()
		WHERE id = $1`,
		l.ID, l.Status, l.Intent, nullable(l.Priority), l.PatientID,
		l.EncounterID, l.RequesterID, l.AuthoredOn, l.Note, l.Category,
		l.Identifier, nullable(l.DosageInstruction), qty, unit,
		groupSys, groupVal, l.MedicationID, l.ItemID)
	if err != nil {
		return fmt.Errorf("update medication request: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("medication request", l.ID.String())
	}
	if _, err := tx.Exec(ctx, `DELETE FROM medication_request_ingredient WHERE request_id = $1`, l.ID); err != nil {
		return fmt.Errorf("clear ingredients: %w", err)
	}
	if err := insertIngredients(ctx, tx, l); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *lineRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM medication_request WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("medication request", id.String())
	}
	return nil
}

// Dispensed returns which of ids have dispenses recorded against them. Such
// lines are referenced by medication_dispense and cannot be deleted.
func (r *lineRepoPG) Dispensed(ctx context.Context, ids []uuid.UUID) ([]uuid.UUID, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT DISTINCT medication_request_id FROM medication_dispense
		WHERE medication_request_id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func insertIngredients(ctx context.Context, tx pgx.Tx, l *PrescriptionLine) error {
	for i, ing := range l.SupportingInformation {
		_, err := tx.Exec(ctx, `
			INSERT INTO medication_request_ingredient (request_id, position, medication_id, item_id,
				note, quantity, unit_code)
			VALUES ($1,$2,$3,$4,$5,$6,$7)`,
			l.ID, i, ing.MedicationID, ing.ItemID, nullable(ing.Note), ing.Quantity, nullable(ing.UnitCode))
		if err != nil {
			return fmt.Errorf("insert ingredient %d: %w", i+1, err)
		}
	}
	return nil
}

func splitQuantity(q *Quantity) (*decimal.Decimal, *string) {
	if q == nil {
		return nil, nil
	}
	return q.Value, nullable(q.Unit)
}

func splitIdentifier(id *Identifier) (*string, *string) {
	if id == nil {
		return nil, nil
	}
	return nullable(id.System), nullable(id.Value)
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
