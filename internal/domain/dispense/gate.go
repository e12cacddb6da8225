package dispense

import (
	"github.com/shopspring/decimal"

	"github.com/ehr/orders/pkg/apperr"
)

const (
	msgQuantityRequired = "quantity must be greater than zero"
	msgAlreadyFulfilled = "prescription already fulfilled, cannot create new dispense"
)

// Gate rejection reasons, used as metric labels.
const (
	ReasonQuantity  = "quantity"
	ReasonStock     = "stock"
	ReasonFulfilled = "fulfilled"
)

// CheckQuantity rejects an absent, zero or negative quantity.
func CheckQuantity(quantity *decimal.Decimal) error {
	if quantity == nil || !quantity.IsPositive() {
		return apperr.Validation(msgQuantityRequired)
	}
	return nil
}

// CheckStock decides whether a dispense of quantity may be created given the
// current stock and the line's fulfillment. It returns the rejection reason
// alongside the error. The check is advisory: nothing holds the stock between
// this call and the create.
func CheckStock(quantity *decimal.Decimal, stock decimal.Decimal, f Fulfillment) (string, error) {
	if err := CheckQuantity(quantity); err != nil {
		return ReasonQuantity, err
	}
	if quantity.GreaterThan(stock) {
		return ReasonStock, apperr.Capacityf("quantity exceeds available stock (available: %s)", stock.String())
	}
	if f.Fulfilled {
		return ReasonFulfilled, apperr.Capacity(msgAlreadyFulfilled)
	}
	return "", nil
}
