package dispense

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ehr/orders/internal/domain/prescription"
)

// Status is the lifecycle state of a dispense.
type Status string

const (
	StatusPreparation    Status = "preparation"
	StatusInProgress     Status = "in-progress"
	StatusCompleted      Status = "completed"
	StatusCancelled      Status = "cancelled"
	StatusDeclined       Status = "declined"
	StatusOnHold         Status = "on-hold"
	StatusEnteredInError Status = "entered-in-error"
)

// transitions lists the forward moves out of each state. entered-in-error is
// only reachable from completed and stands for a reversal.
var transitions = map[Status][]Status{
	StatusPreparation: {StatusInProgress, StatusCompleted, StatusCancelled, StatusDeclined, StatusOnHold},
	StatusInProgress:  {StatusCompleted, StatusCancelled, StatusDeclined, StatusOnHold},
	StatusOnHold:      {StatusInProgress, StatusCompleted, StatusCancelled, StatusDeclined},
	StatusCompleted:   {StatusEnteredInError},
}

var terminal = map[Status]bool{
	StatusCompleted:      true,
	StatusCancelled:      true,
	StatusDeclined:       true,
	StatusEnteredInError: true,
}

// CanTransition reports whether a dispense may move from one status to another.
func CanTransition(from, to Status) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Terminal reports whether no further work happens in s. A completed dispense
// can still be reversed.
func (s Status) Terminal() bool {
	return terminal[s]
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	_, ok := transitions[s]
	return ok || terminal[s]
}

// DispenseRecord is one dispense against a prescription line. Quantity is
// fixed at creation.
type DispenseRecord struct {
	ID                        uuid.UUID             `json:"id"`
	Status                    Status                `json:"status"`
	AuthorizingPrescriptionID uuid.UUID             `json:"authorizing_prescription_id"`
	MedicationID              *int64                `json:"medication_id,omitempty"`
	Quantity                  prescription.Quantity `json:"quantity"`
	WhenHandedOver            *time.Time            `json:"when_handed_over,omitempty"`
	Performer                 string                `json:"performer,omitempty"`
	CreatedAt                 time.Time             `json:"created_at"`
	UpdatedAt                 time.Time             `json:"updated_at"`
}

// DispenseRequest is the body of a create-dispense call.
type DispenseRequest struct {
	Quantity *decimal.Decimal `json:"quantity"`
	Unit     string           `json:"unit,omitempty"`
}
