package inventory

import "context"

// StockRepository reads current stock from the service of record.
type StockRepository interface {
	GetStock(ctx context.Context, kind Kind, refID int64) (*StockLevel, error)
}
