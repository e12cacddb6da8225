package prescription

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ehr/orders/pkg/apperr"
)

// -- Mock Repository --

type mockLineRepo struct {
	order []uuid.UUID
	lines map[uuid.UUID]*PrescriptionLine
	calls []string

	listErr   error
	failOn    string
	failAfter int
	listLimit int
}

func newMockLineRepo() *mockLineRepo {
	return &mockLineRepo{lines: make(map[uuid.UUID]*PrescriptionLine)}
}

// seed stores lines as if they had been created earlier, in order.
func (m *mockLineRepo) seed(lines ...*PrescriptionLine) {
	for _, l := range lines {
		if l.ID == uuid.Nil {
			l.ID = uuid.New()
		}
		m.order = append(m.order, l.ID)
		m.lines[l.ID] = l
	}
}

func (m *mockLineRepo) fail(op string) error {
	if m.failOn != op {
		return nil
	}
	if m.failAfter > 0 {
		m.failAfter--
		return nil
	}
	return errors.New("service rejected " + op)
}

func (m *mockLineRepo) GetByID(_ context.Context, id uuid.UUID) (*PrescriptionLine, error) {
	m.calls = append(m.calls, "get")
	l, ok := m.lines[id]
	if !ok {
		return nil, apperr.NotFound("medication request", id.String())
	}
	return l, nil
}

func (m *mockLineRepo) ListByPatient(_ context.Context, patientID uuid.UUID, limit int) ([]*PrescriptionLine, error) {
	m.calls = append(m.calls, "list")
	m.listLimit = limit
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []*PrescriptionLine
	for _, id := range m.order {
		l, ok := m.lines[id]
		if !ok || l.PatientID != patientID {
			continue
		}
		out = append(out, l)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (m *mockLineRepo) CreateBatch(_ context.Context, lines []*PrescriptionLine) error {
	m.calls = append(m.calls, fmt.Sprintf("create:%d", len(lines)))
	if err := m.fail("create"); err != nil {
		return err
	}
	for _, l := range lines {
		l.ID = uuid.New()
		l.CreatedAt = time.Now()
		l.UpdatedAt = l.CreatedAt
		m.order = append(m.order, l.ID)
		m.lines[l.ID] = l
	}
	return nil
}

func (m *mockLineRepo) Update(_ context.Context, l *PrescriptionLine) error {
	m.calls = append(m.calls, "update:"+l.ID.String())
	if err := m.fail("update"); err != nil {
		return err
	}
	if _, ok := m.lines[l.ID]; !ok {
		return apperr.NotFound("medication request", l.ID.String())
	}
	m.lines[l.ID] = l
	return nil
}

func (m *mockLineRepo) Delete(_ context.Context, id uuid.UUID) error {
	m.calls = append(m.calls, "delete:"+id.String())
	if err := m.fail("delete"); err != nil {
		return err
	}
	delete(m.lines, id)
	return nil
}

// mutations returns the recorded calls without reads.
func (m *mockLineRepo) mutations() []string {
	var out []string
	for _, c := range m.calls {
		if c != "get" && c != "list" {
			out = append(out, c)
		}
	}
	return out
}

// -- Fixtures --

var (
	testPatient   = uuid.MustParse("11111111-1111-1111-1111-111111111111")
	testRequester = uuid.MustParse("22222222-2222-2222-2222-222222222222")
)

func i64(v int64) *int64 { return &v }

func dec(v string) *decimal.Decimal {
	d := decimal.RequireFromString(v)
	return &d
}

func str(v string) *string { return &v }

func group(v string) *Identifier { return &Identifier{System: "urn:test", Value: v} }

func simpleLine(medID int64, g *Identifier) *PrescriptionLine {
	return &PrescriptionLine{
		ID: uuid.New(), Status: "active", Intent: "order",
		PatientID: testPatient, RequesterID: testRequester,
		MedicationID: i64(medID), GroupIdentifier: g,
	}
}

func itemLine(itemID int64, g *Identifier) *PrescriptionLine {
	return &PrescriptionLine{
		ID: uuid.New(), Status: "active", Intent: "order",
		PatientID: testPatient, RequesterID: testRequester,
		ItemID: i64(itemID), GroupIdentifier: g,
	}
}

func compoundLine(g *Identifier, ingredientMedIDs ...int64) *PrescriptionLine {
	l := &PrescriptionLine{
		ID: uuid.New(), Status: "active", Intent: "order",
		PatientID: testPatient, RequesterID: testRequester,
		Category:        []Concept{{System: CategorySystem, Code: CompoundCategoryCode, Text: CompoundMarker}},
		GroupIdentifier: g,
	}
	for _, id := range ingredientMedIDs {
		l.SupportingInformation = append(l.SupportingInformation, Ingredient{MedicationID: i64(id)})
	}
	return l
}

func header() Header {
	return Header{PatientID: testPatient, RequesterID: testRequester}
}

func simpleIn(medID int64) SimpleInput {
	return SimpleInput{MedicationID: medID, Quantity: dec("10"), Unit: "tablet"}
}

func compoundIn(name string, ingredientMedIDs ...int64) CompoundInput {
	c := CompoundInput{Name: name, Quantity: dec("1"), Unit: "capsule"}
	for _, id := range ingredientMedIDs {
		c.Ingredients = append(c.Ingredients, Ingredient{MedicationID: i64(id), Quantity: dec("1")})
	}
	return c
}

func itemIn(itemID int64) ItemInput {
	return ItemInput{ItemID: itemID, Quantity: dec("2")}
}

func fixedMint(v string) func() *Identifier {
	return func() *Identifier { return &Identifier{System: "urn:test", Value: v} }
}
