package inventory

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/ehr/orders/internal/domain/prescription"
	"github.com/ehr/orders/pkg/apperr"
)

type Service struct {
	stock  StockRepository
	logger zerolog.Logger
}

func NewService(stock StockRepository) *Service {
	return &Service{stock: stock, logger: zerolog.Nop()}
}

func (s *Service) SetLogger(logger zerolog.Logger) {
	s.logger = logger
}

// GetStock returns the current stock. A reference without a stock row has
// nothing on hand and reports zero.
func (s *Service) GetStock(ctx context.Context, kind Kind, refID int64) (*StockLevel, error) {
	if _, ok := validKinds[kind]; !ok {
		return nil, apperr.Validationf("invalid stock kind: %s", kind)
	}
	if refID <= 0 {
		return nil, apperr.Validation("stock reference must be a positive id")
	}
	lvl, err := s.stock.GetStock(ctx, kind, refID)
	if apperr.Is(err, apperr.KindNotFound) {
		return &StockLevel{Kind: kind, RefID: refID}, nil
	}
	if err != nil {
		return nil, apperr.Boundary(err)
	}
	return lvl, nil
}

// AvailableFor returns how much of line can be dispensed from current stock.
// A simple line reads medication stock and an item line reads item stock. A
// compound is limited by its scarcest ingredient: each medication ingredient
// reads raw-material stock, each item ingredient reads item stock, and the
// stock is divided by the ingredient's per-unit quantity (1 when absent).
func (s *Service) AvailableFor(ctx context.Context, line *prescription.PrescriptionLine) (decimal.Decimal, error) {
	switch prescription.Classify(line) {
	case prescription.KindSimple:
		return s.quantity(ctx, KindMedication, *line.MedicationID)
	case prescription.KindItem:
		return s.quantity(ctx, KindItem, *line.ItemID)
	case prescription.KindCompound:
		return s.compound(ctx, line.SupportingInformation)
	default:
		return decimal.Zero, apperr.Validation("prescription line references no medication or item")
	}
}

func (s *Service) compound(ctx context.Context, ingredients []prescription.Ingredient) (decimal.Decimal, error) {
	var available *decimal.Decimal
	for _, ing := range ingredients {
		var (
			q   decimal.Decimal
			err error
		)
		switch {
		case ing.MedicationID != nil && *ing.MedicationID > 0:
			q, err = s.quantity(ctx, KindRawMaterial, *ing.MedicationID)
		case ing.ItemID != nil && *ing.ItemID > 0:
			q, err = s.quantity(ctx, KindItem, *ing.ItemID)
		default:
			continue
		}
		if err != nil {
			return decimal.Zero, err
		}
		per := decimal.NewFromInt(1)
		if ing.Quantity != nil && ing.Quantity.IsPositive() {
			per = *ing.Quantity
		}
		units := q.Div(per).Floor()
		if available == nil || units.LessThan(*available) {
			available = &units
		}
	}
	if available == nil {
		return decimal.Zero, nil
	}
	return *available, nil
}

func (s *Service) quantity(ctx context.Context, kind Kind, refID int64) (decimal.Decimal, error) {
	lvl, err := s.GetStock(ctx, kind, refID)
	if err != nil {
		return decimal.Zero, err
	}
	s.logger.Debug().Str("kind", string(kind)).Int64("ref_id", refID).
		Stringer("quantity", lvl.Quantity).Msg("stock read")
	return lvl.Quantity, nil
}
