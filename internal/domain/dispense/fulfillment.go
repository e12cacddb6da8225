package dispense

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ehr/orders/internal/domain/prescription"
)

// Fulfillment is how much of a line has been handed over.
type Fulfillment struct {
	RequestID  uuid.UUID        `json:"medication_request_id"`
	Prescribed *decimal.Decimal `json:"prescribed,omitempty"`
	Dispensed  decimal.Decimal  `json:"dispensed"`
	Remaining  *decimal.Decimal `json:"remaining,omitempty"`
	Fulfilled  bool             `json:"fulfilled"`
}

// ComputeFulfillment sums the completed dispenses that point at line and
// derives what remains. Only completed records count: a reversal is recorded
// as entered-in-error and neither adds to nor gives back the remaining amount.
// Remaining is floored at zero and is nil when the line prescribes no quantity.
func ComputeFulfillment(line *prescription.PrescriptionLine, records []*DispenseRecord) Fulfillment {
	f := Fulfillment{RequestID: line.ID}
	for _, r := range records {
		if r == nil || r.AuthorizingPrescriptionID != line.ID || r.Status != StatusCompleted {
			continue
		}
		if r.Quantity.Value != nil {
			f.Dispensed = f.Dispensed.Add(*r.Quantity.Value)
		}
	}

	if p := line.PrescribedQuantity(); p != nil {
		prescribed := *p
		remaining := decimal.Max(prescribed.Sub(f.Dispensed), decimal.Zero)
		f.Prescribed = &prescribed
		f.Remaining = &remaining
	}

	f.Fulfilled = line.Status == "completed" || (f.Remaining != nil && !f.Remaining.IsPositive())
	return f
}
