package prescription

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ehr/orders/pkg/apperr"
)

const msgEmptyOrder = "prescription must contain at least one item"

// validateCompounds is the compound gate: every compound needs at least one
// ingredient. The reported position is 1-based and names the first offender.
func validateCompounds(compounds []CompoundInput) error {
	for i, c := range compounds {
		if len(c.Ingredients) == 0 {
			return apperr.Validationf("compound #%d must have at least one ingredient", i+1)
		}
	}
	return nil
}

// validateNew is validateLines for a brand new order, which must carry at
// least one line. An edit may empty the group; its lines are then deleted.
func validateNew(in *GroupInput) error {
	if in.Len() == 0 {
		return apperr.Validation(msgEmptyOrder)
	}
	return validateLines(in)
}

// validateLines runs the compound gate and then the per-line reference checks.
// It issues no calls; a failure here blocks every mutation.
func validateLines(in *GroupInput) error {
	if err := validateCompounds(in.Compound); err != nil {
		return err
	}
	for i, s := range in.Simple {
		if s.MedicationID <= 0 {
			return apperr.Validationf("medication #%d must reference a medication", i+1)
		}
		if !positiveOrAbsent(s.Quantity) {
			return apperr.Validationf("medication #%d quantity must be greater than zero", i+1)
		}
	}
	for i, c := range in.Compound {
		if !positiveOrAbsent(c.Quantity) {
			return apperr.Validationf("compound #%d quantity must be greater than zero", i+1)
		}
		for j, ing := range c.Ingredients {
			if !validRef(ing.MedicationID) && !validRef(ing.ItemID) {
				return apperr.Validationf("compound #%d ingredient #%d must reference a medication or an item", i+1, j+1)
			}
		}
	}
	for i, it := range in.Item {
		if it.ItemID <= 0 {
			return apperr.Validationf("item #%d must reference an inventory item", i+1)
		}
		if !positiveOrAbsent(it.Quantity) {
			return apperr.Validationf("item #%d quantity must be greater than zero", i+1)
		}
	}
	return nil
}

// normalizeHeader applies defaults and checks the order-level fields.
func normalizeHeader(h *Header) error {
	if h.PatientID == uuid.Nil {
		return apperr.Validation("patient_id is required")
	}
	if h.RequesterID == uuid.Nil {
		return apperr.Validation("requester_id is required")
	}
	if h.Status == "" {
		h.Status = "active"
	}
	if !validStatuses[h.Status] {
		return apperr.Validationf("invalid status: %s", h.Status)
	}
	if h.Intent == "" {
		h.Intent = "order"
	}
	if !validIntents[h.Intent] {
		return apperr.Validationf("invalid intent: %s", h.Intent)
	}
	if !validPriorities[h.Priority] {
		return apperr.Validationf("invalid priority: %s", h.Priority)
	}
	return nil
}

func positiveOrAbsent(v *decimal.Decimal) bool {
	return v == nil || v.IsPositive()
}

func validRef(id *int64) bool {
	return id != nil && *id > 0
}
