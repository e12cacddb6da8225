package prescription

import "github.com/shopspring/decimal"

// builder turns desired inputs into line payloads. When base is non-nil the
// payload updates base: its id is kept, and so are its category, identifier
// and supportingInformation unless the kind-specific step recomputes them.
type builder struct {
	header Header
	group  *Identifier
}

func (b builder) start(base *PrescriptionLine) *PrescriptionLine {
	l := &PrescriptionLine{}
	if base != nil {
		l.ID = base.ID
		l.CreatedAt = base.CreatedAt
		l.Category = append([]Concept(nil), base.Category...)
		l.Identifier = append([]Identifier(nil), base.Identifier...)
		l.SupportingInformation = cloneIngredients(base.SupportingInformation)
		l.GroupIdentifier = cloneIdentifier(base.GroupIdentifier)
	}
	if b.group != nil {
		l.GroupIdentifier = cloneIdentifier(b.group)
	}
	h := b.header
	l.Status = h.Status
	l.Intent = h.Intent
	l.Priority = h.Priority
	l.PatientID = h.PatientID
	l.EncounterID = h.EncounterID
	l.RequesterID = h.RequesterID
	l.AuthoredOn = h.AuthoredOn
	l.Note = h.Note
	return l
}

func (b builder) simple(base *PrescriptionLine, in SimpleInput) *PrescriptionLine {
	l := b.start(base)
	id := in.MedicationID
	l.MedicationID = &id
	l.ItemID = nil
	l.DosageInstruction = in.Dosage
	l.DispenseQuantity = quantity(in.Quantity, in.Unit)
	if in.Note != nil {
		l.Note = in.Note
	}
	return l
}

func (b builder) item(base *PrescriptionLine, in ItemInput) *PrescriptionLine {
	l := b.start(base)
	id := in.ItemID
	l.ItemID = &id
	l.MedicationID = nil
	l.DosageInstruction = in.Dosage
	l.DispenseQuantity = quantity(in.Quantity, in.Unit)
	if in.Note != nil {
		l.Note = in.Note
	}
	return l
}

// compound always rebuilds supportingInformation from the desired ingredients
// and makes sure the compound marker and name identifier are present.
func (b builder) compound(base *PrescriptionLine, in CompoundInput) *PrescriptionLine {
	l := b.start(base)
	l.MedicationID = nil
	l.ItemID = nil
	l.SupportingInformation = cloneIngredients(in.Ingredients)
	if !hasCompoundMarker(l.Category) {
		l.Category = append(l.Category, Concept{
			System: CategorySystem,
			Code:   CompoundCategoryCode,
			Text:   CompoundMarker,
		})
	}
	l.Identifier = withCompoundName(l.Identifier, in.Name)
	l.DosageInstruction = in.Dosage
	l.DispenseQuantity = quantity(in.Quantity, in.Unit)
	if in.Note != nil {
		l.Note = in.Note
	}
	return l
}

func withCompoundName(ids []Identifier, name string) []Identifier {
	out := make([]Identifier, 0, len(ids)+1)
	for _, id := range ids {
		if id.System != CompoundNameSystem {
			out = append(out, id)
		}
	}
	if name != "" {
		out = append(out, Identifier{System: CompoundNameSystem, Value: name})
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func quantity(v *decimal.Decimal, unit string) *Quantity {
	if v == nil && unit == "" {
		return nil
	}
	q := &Quantity{Unit: unit}
	if v != nil {
		val := *v
		q.Value = &val
	}
	return q
}

func cloneIngredients(in []Ingredient) []Ingredient {
	if len(in) == 0 {
		return nil
	}
	out := make([]Ingredient, len(in))
	copy(out, in)
	return out
}

func cloneIdentifier(id *Identifier) *Identifier {
	if id == nil {
		return nil
	}
	c := *id
	return &c
}
