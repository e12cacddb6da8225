package inventory

import (
	"time"

	"github.com/shopspring/decimal"
)

// Kind is the kind of stock a reference id points into.
type Kind string

const (
	KindMedication  Kind = "medication"
	KindItem        Kind = "item"
	KindRawMaterial Kind = "raw-material"
)

var validKinds = map[Kind]bool{
	KindMedication:  true,
	KindItem:        true,
	KindRawMaterial: true,
}

// ParseKind validates a kind taken from a request path.
func ParseKind(s string) (Kind, bool) {
	k := Kind(s)
	return k, validKinds[k]
}

// StockLevel is the current on-hand quantity of one medication, item or raw material.
type StockLevel struct {
	Kind      Kind            `json:"kind"`
	RefID     int64           `json:"ref_id"`
	Quantity  decimal.Decimal `json:"quantity"`
	Unit      string          `json:"unit,omitempty"`
	UpdatedAt *time.Time      `json:"updated_at,omitempty"`
}
