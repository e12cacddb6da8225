package prescription

import (
	"github.com/google/uuid"
)

// IdentifierDecision is how a reconcile resolves the group identifier.
type IdentifierDecision string

const (
	DecisionReuse IdentifierDecision = "reuse"
	DecisionMint  IdentifierDecision = "mint"
	DecisionNone  IdentifierDecision = "none"
)

type identifierCase struct {
	present bool
	grew    bool
}

// identifierDecisions keys on (existing identifier present?, any bucket grew?).
var identifierDecisions = map[identifierCase]IdentifierDecision{
	{present: true, grew: true}:   DecisionReuse,
	{present: true, grew: false}:  DecisionReuse,
	{present: false, grew: true}:  DecisionMint,
	{present: false, grew: false}: DecisionNone,
}

// ResolveGroupIdentifier applies the decision table once per reconcile. mint
// is only called for DecisionMint.
func ResolveGroupIdentifier(existing *Identifier, grew bool, mint func() *Identifier) (IdentifierDecision, *Identifier) {
	d := identifierDecisions[identifierCase{present: existing != nil, grew: grew}]
	switch d {
	case DecisionReuse:
		return d, cloneIdentifier(existing)
	case DecisionMint:
		return d, mint()
	default:
		return d, nil
	}
}

// firstGroupIdentifier returns the first non-nil group identifier in lines.
func firstGroupIdentifier(lines []*PrescriptionLine) *Identifier {
	for _, l := range lines {
		if l != nil && l.GroupIdentifier != nil && l.GroupIdentifier.Value != "" {
			return l.GroupIdentifier
		}
	}
	return nil
}

type matched[D any] struct {
	existing *PrescriptionLine
	desired  D
}

type positional[D any] struct {
	update []matched[D]
	create []D
	remove []*PrescriptionLine
}

// diffByPosition pairs existing[i] with desired[i]. The match is by position
// within one kind, not by any key: lines have no identity that survives an
// edit form, so the i-th line on screen replaces the i-th stored line.
func diffByPosition[D any](existing []*PrescriptionLine, desired []D) positional[D] {
	n := min(len(existing), len(desired))
	var p positional[D]
	for i := 0; i < n; i++ {
		p.update = append(p.update, matched[D]{existing: existing[i], desired: desired[i]})
	}
	p.create = append(p.create, desired[n:]...)
	p.remove = append(p.remove, existing[n:]...)
	return p
}

// Plan is the ordered mutation set of one reconcile. It is executed as all
// Updates, then all Creates, then all Deletes.
type Plan struct {
	Updates            []*PrescriptionLine `json:"updates"`
	Creates            []*PrescriptionLine `json:"creates"`
	Deletes            []uuid.UUID         `json:"deletes"`
	GroupIdentifier    *Identifier         `json:"group_identifier,omitempty"`
	IdentifierDecision IdentifierDecision  `json:"identifier_decision"`
}

// Size is the number of mutations in the plan.
func (p *Plan) Size() int {
	return len(p.Updates) + len(p.Creates) + len(p.Deletes)
}

// PlanReconcile computes the update/create/delete plan that moves the loaded
// group onto desired. base is the line the edit started from and may be nil.
// Nothing is issued here; the plan is pure.
func PlanReconcile(base *PrescriptionLine, loaded []*PrescriptionLine, desired *GroupInput, mint func() *Identifier) (*Plan, error) {
	if err := validateLines(desired); err != nil {
		return nil, err
	}

	existing := Bucket(loaded)
	simple := diffByPosition(existing.Simple, desired.Simple)
	compound := diffByPosition(existing.Compound, desired.Compound)
	item := diffByPosition(existing.Item, desired.Item)

	// Nothing to update and the edit started from a known line: rewrite that
	// line with the first medication instead of creating a parallel one.
	var rebase *matched[SimpleInput]
	if existing.Len() == 0 && base != nil && len(simple.create) > 0 {
		rebase = &matched[SimpleInput]{existing: base, desired: simple.create[0]}
		simple.create = simple.create[1:]
	}

	grew := len(simple.create)+len(compound.create)+len(item.create) > 0
	candidates := append(append([]*PrescriptionLine(nil), loaded...), base)
	decision, group := ResolveGroupIdentifier(firstGroupIdentifier(candidates), grew, mint)

	b := builder{header: desired.Header, group: group}
	plan := &Plan{GroupIdentifier: group, IdentifierDecision: decision}

	if rebase != nil {
		plan.Updates = append(plan.Updates, b.simple(rebase.existing, rebase.desired))
	}
	for _, m := range simple.update {
		plan.Updates = append(plan.Updates, b.simple(m.existing, m.desired))
	}
	for _, m := range compound.update {
		plan.Updates = append(plan.Updates, b.compound(m.existing, m.desired))
	}
	for _, m := range item.update {
		plan.Updates = append(plan.Updates, b.item(m.existing, m.desired))
	}

	for _, in := range simple.create {
		plan.Creates = append(plan.Creates, b.simple(nil, in))
	}
	for _, in := range compound.create {
		plan.Creates = append(plan.Creates, b.compound(nil, in))
	}
	for _, in := range item.create {
		plan.Creates = append(plan.Creates, b.item(nil, in))
	}

	for _, l := range simple.remove {
		plan.Deletes = append(plan.Deletes, l.ID)
	}
	for _, l := range compound.remove {
		plan.Deletes = append(plan.Deletes, l.ID)
	}
	for _, l := range item.remove {
		plan.Deletes = append(plan.Deletes, l.ID)
	}

	return plan, nil
}

// PlanCreate builds the create-only plan for a brand new group. A fresh group
// identifier is minted unconditionally.
func PlanCreate(desired *GroupInput, mint func() *Identifier) (*Plan, error) {
	if err := validateNew(desired); err != nil {
		return nil, err
	}
	group := mint()
	b := builder{header: desired.Header, group: group}
	plan := &Plan{GroupIdentifier: group, IdentifierDecision: DecisionMint}
	for _, in := range desired.Simple {
		plan.Creates = append(plan.Creates, b.simple(nil, in))
	}
	for _, in := range desired.Compound {
		plan.Creates = append(plan.Creates, b.compound(nil, in))
	}
	for _, in := range desired.Item {
		plan.Creates = append(plan.Creates, b.item(nil, in))
	}
	return plan, nil
}
