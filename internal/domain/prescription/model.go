package prescription

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	// CompoundCategoryCode and CompoundMarker tag a line as a compound
	// (racikan) formulation. Either one on a category entry is enough.
	CompoundCategoryCode = "compound"
	CompoundMarker       = "racikan"

	CategorySystem     = "http://terminology.hl7.org/CodeSystem/medicationrequest-category"
	CompoundNameSystem = "urn:orders:compound-name"
)

// Quantity is a value with its unit. Value is nil when absent and is kept as
// a decimal so fractional dispenses add up exactly.
type Quantity struct {
	Value *decimal.Decimal `json:"value,omitempty"`
	Unit  string           `json:"unit,omitempty"`
}

// Concept is one entry of a line's category list.
type Concept struct {
	System string `json:"system,omitempty"`
	Code   string `json:"code,omitempty"`
	Text   string `json:"text,omitempty"`
}

// Identifier is a {system, value} pair. It is used both for a line's
// identifier tags and for the group identifier shared by every line written
// on one order.
type Identifier struct {
	System string `json:"system"`
	Value  string `json:"value"`
}

// Ingredient is one component of a compound line. Exactly one of
// MedicationID and ItemID is expected to be set.
type Ingredient struct {
	MedicationID *int64           `json:"medication_id,omitempty"`
	ItemID       *int64           `json:"item_id,omitempty"`
	Note         string           `json:"note,omitempty"`
	Quantity     *decimal.Decimal `json:"quantity,omitempty"`
	UnitCode     string           `json:"unit_code,omitempty"`
}

// PrescriptionLine is one persisted order line (a MedicationRequest). Its kind
// is never stored; see Classify.
type PrescriptionLine struct {
	ID                    uuid.UUID    `json:"id"`
	Status                string       `json:"status"`
	Intent                string       `json:"intent"`
	Priority              string       `json:"priority,omitempty"`
	PatientID             uuid.UUID    `json:"patient_id"`
	EncounterID           *uuid.UUID   `json:"encounter_id,omitempty"`
	RequesterID           uuid.UUID    `json:"requester_id"`
	AuthoredOn            *time.Time   `json:"authored_on,omitempty"`
	Note                  *string      `json:"note,omitempty"`
	Category              []Concept    `json:"category,omitempty"`
	Identifier            []Identifier `json:"identifier,omitempty"`
	DosageInstruction     string       `json:"dosage_instruction,omitempty"`
	DispenseQuantity      *Quantity    `json:"dispense_quantity,omitempty"`
	GroupIdentifier       *Identifier  `json:"group_identifier,omitempty"`
	MedicationID          *int64       `json:"medication_id,omitempty"`
	ItemID                *int64       `json:"item_id,omitempty"`
	SupportingInformation []Ingredient `json:"supporting_information,omitempty"`
	CreatedAt             time.Time    `json:"created_at"`
	UpdatedAt             time.Time    `json:"updated_at"`
}

// PrescribedQuantity returns dispenseRequest.quantity.value, or nil.
func (l *PrescriptionLine) PrescribedQuantity() *decimal.Decimal {
	if l.DispenseQuantity == nil {
		return nil
	}
	return l.DispenseQuantity.Value
}

// CompoundName returns the name recorded in the compound-name identifier.
func (l *PrescriptionLine) CompoundName() string {
	for _, id := range l.Identifier {
		if id.System == CompoundNameSystem {
			return id.Value
		}
	}
	return ""
}

// Header carries the order-level fields copied onto every line of a group.
type Header struct {
	PatientID   uuid.UUID  `json:"patient_id"`
	EncounterID *uuid.UUID `json:"encounter_id,omitempty"`
	RequesterID uuid.UUID  `json:"requester_id"`
	Status      string     `json:"status,omitempty"`
	Intent      string     `json:"intent,omitempty"`
	Priority    string     `json:"priority,omitempty"`
	Note        *string    `json:"note,omitempty"`
	AuthoredOn  *time.Time `json:"authored_on,omitempty"`
}

// SimpleInput is a desired single-medication line.
type SimpleInput struct {
	MedicationID int64            `json:"medication_id"`
	Quantity     *decimal.Decimal `json:"quantity,omitempty"`
	Unit         string           `json:"unit,omitempty"`
	Dosage       string           `json:"dosage,omitempty"`
	Note         *string          `json:"note,omitempty"`
}

// CompoundInput is a desired compound line with its ordered ingredients.
type CompoundInput struct {
	Name        string           `json:"name,omitempty"`
	Quantity    *decimal.Decimal `json:"quantity,omitempty"`
	Unit        string           `json:"unit,omitempty"`
	Dosage      string           `json:"dosage,omitempty"`
	Note        *string          `json:"note,omitempty"`
	Ingredients []Ingredient     `json:"ingredients"`
}

// ItemInput is a desired inventory-item line.
type ItemInput struct {
	ItemID   int64            `json:"item_id"`
	Quantity *decimal.Decimal `json:"quantity,omitempty"`
	Unit     string           `json:"unit,omitempty"`
	Dosage   string           `json:"dosage,omitempty"`
	Note     *string          `json:"note,omitempty"`
}

// GroupInput is a submitted order: its header and the three ordered buckets
// as the user arranged them.
type GroupInput struct {
	Header
	Simple   []SimpleInput   `json:"medications"`
	Compound []CompoundInput `json:"compounds"`
	Item     []ItemInput     `json:"items"`
}

// Len is the number of desired lines across all buckets.
func (g *GroupInput) Len() int {
	return len(g.Simple) + len(g.Compound) + len(g.Item)
}

var validStatuses = map[string]bool{
	"active": true, "on-hold": true, "cancelled": true, "completed": true,
	"entered-in-error": true, "stopped": true, "draft": true, "unknown": true,
}

var validIntents = map[string]bool{
	"proposal": true, "plan": true, "order": true, "original-order": true,
	"reflex-order": true, "filler-order": true, "instance-order": true, "option": true,
}

var validPriorities = map[string]bool{
	"": true, "routine": true, "urgent": true, "asap": true, "stat": true,
}
