package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ehr/orders/internal/platform/db"
	"github.com/ehr/orders/pkg/apperr"
)

type queryable interface {
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

type stockRepoPG struct{ pool *pgxpool.Pool }

func NewStockRepoPG(pool *pgxpool.Pool) StockRepository {
	return &stockRepoPG{pool: pool}
}

func (r *stockRepoPG) conn(ctx context.Context) queryable {
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

func (r *stockRepoPG) GetStock(ctx context.Context, kind Kind, refID int64) (*StockLevel, error) {
	s := StockLevel{Kind: kind, RefID: refID}
	var unit *string
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT quantity, unit, updated_at FROM stock_level WHERE kind = $1 AND ref_id = $2`,
		string(kind), refID).Scan(&s.Quantity, &unit, &s.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound(string(kind)+" stock", fmt.Sprint(refID))
	}
	if err != nil {
		return nil, err
	}
	if unit != nil {
		s.Unit = *unit
	}
	return &s, nil
}
