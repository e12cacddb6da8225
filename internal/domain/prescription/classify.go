package prescription

import (
	"strings"

	"golang.org/x/text/cases"
)

// Kind is the derived kind of a line.
type Kind int

const (
	KindUnknown Kind = iota
	KindSimple
	KindCompound
	KindItem
)

func (k Kind) String() string {
	switch k {
	case KindSimple:
		return "simple"
	case KindCompound:
		return "compound"
	case KindItem:
		return "item"
	default:
		return "unknown"
	}
}

var fold = cases.Fold()

// Classify derives the kind of a line. First match wins:
//  1. a category entry coded "compound" or with text equal to the compound marker
//  2. a positive item id
//  3. any medication id
//
// Lines matching none of these are KindUnknown and are left out of every
// bucket. Classify is the only place a kind is decided; loading and diffing
// both go through it.
func Classify(l *PrescriptionLine) Kind {
	if l == nil {
		return KindUnknown
	}
	if hasCompoundMarker(l.Category) {
		return KindCompound
	}
	if l.ItemID != nil && *l.ItemID > 0 {
		return KindItem
	}
	if l.MedicationID != nil {
		return KindSimple
	}
	return KindUnknown
}

func hasCompoundMarker(category []Concept) bool {
	marker := fold.String(CompoundMarker)
	for _, c := range category {
		if c.Code == CompoundCategoryCode {
			return true
		}
		if fold.String(strings.TrimSpace(c.Text)) == marker {
			return true
		}
	}
	return false
}

// Buckets holds lines split by kind, each in the order the lines were given.
type Buckets struct {
	Simple   []*PrescriptionLine `json:"medications"`
	Compound []*PrescriptionLine `json:"compounds"`
	Item     []*PrescriptionLine `json:"items"`
	Ignored  []*PrescriptionLine `json:"ignored,omitempty"`
}

// Bucket classifies every line and keeps the input order within a kind.
func Bucket(lines []*PrescriptionLine) Buckets {
	var b Buckets
	for _, l := range lines {
		switch Classify(l) {
		case KindSimple:
			b.Simple = append(b.Simple, l)
		case KindCompound:
			b.Compound = append(b.Compound, l)
		case KindItem:
			b.Item = append(b.Item, l)
		default:
			b.Ignored = append(b.Ignored, l)
		}
	}
	return b
}

// Len is the number of classified lines.
func (b Buckets) Len() int {
	return len(b.Simple) + len(b.Compound) + len(b.Item)
}
