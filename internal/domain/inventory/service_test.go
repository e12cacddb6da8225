package inventory

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ehr/orders/internal/domain/prescription"
	"github.com/ehr/orders/pkg/apperr"
)

// -- Mock Repository --

type mockStockRepo struct {
	levels map[string]decimal.Decimal
	err    error
	reads  []string
}

func newMockStockRepo() *mockStockRepo {
	return &mockStockRepo{levels: make(map[string]decimal.Decimal)}
}

func stockKey(kind Kind, id int64) string {
	return fmt.Sprintf("%s/%d", kind, id)
}

func (m *mockStockRepo) set(kind Kind, id int64, q string) {
	m.levels[stockKey(kind, id)] = decimal.RequireFromString(q)
}

func (m *mockStockRepo) GetStock(_ context.Context, kind Kind, refID int64) (*StockLevel, error) {
	key := stockKey(kind, refID)
	m.reads = append(m.reads, key)
	if m.err != nil {
		return nil, m.err
	}
	q, ok := m.levels[key]
	if !ok {
		return nil, apperr.NotFound(string(kind)+" stock", fmt.Sprint(refID))
	}
	return &StockLevel{Kind: kind, RefID: refID, Quantity: q}, nil
}

func i64(v int64) *int64 { return &v }

func dec(v string) *decimal.Decimal {
	d := decimal.RequireFromString(v)
	return &d
}

func TestService_GetStock(t *testing.T) {
	repo := newMockStockRepo()
	repo.set(KindMedication, 5, "42")
	svc := NewService(repo)

	lvl, err := svc.GetStock(context.Background(), KindMedication, 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !lvl.Quantity.Equal(decimal.NewFromInt(42)) {
		t.Errorf("expected 42, got %v", lvl.Quantity)
	}
}

func TestService_GetStock_MissingRowIsZero(t *testing.T) {
	svc := NewService(newMockStockRepo())

	lvl, err := svc.GetStock(context.Background(), KindItem, 9)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !lvl.Quantity.IsZero() || lvl.Kind != KindItem || lvl.RefID != 9 {
		t.Errorf("unexpected level %+v", lvl)
	}
}

func TestService_GetStock_Invalid(t *testing.T) {
	svc := NewService(newMockStockRepo())
	if _, err := svc.GetStock(context.Background(), Kind("bogus"), 1); !apperr.Is(err, apperr.KindValidation) {
		t.Errorf("expected validation error for kind, got %v", err)
	}
	if _, err := svc.GetStock(context.Background(), KindItem, 0); !apperr.Is(err, apperr.KindValidation) {
		t.Errorf("expected validation error for id, got %v", err)
	}
}

func TestService_GetStock_BoundaryError(t *testing.T) {
	repo := newMockStockRepo()
	repo.err = errors.New("inventory offline")
	svc := NewService(repo)

	_, err := svc.GetStock(context.Background(), KindMedication, 1)
	if !apperr.Is(err, apperr.KindBoundary) || err.Error() != "inventory offline" {
		t.Errorf("expected verbatim boundary error, got %v", err)
	}
}

func TestService_AvailableFor(t *testing.T) {
	repo := newMockStockRepo()
	repo.set(KindMedication, 1, "30")
	repo.set(KindItem, 2, "4")
	repo.set(KindRawMaterial, 10, "100")
	repo.set(KindRawMaterial, 11, "9")
	repo.set(KindItem, 12, "50")
	repo.set(KindRawMaterial, 20, "0.3")
	repo.set(KindRawMaterial, 21, "0.7")
	svc := NewService(repo)

	compound := &prescription.PrescriptionLine{
		ID:       uuid.New(),
		Category: []prescription.Concept{{Code: prescription.CompoundCategoryCode}},
		SupportingInformation: []prescription.Ingredient{
			{MedicationID: i64(10), Quantity: dec("5")},   // 20 units
			{MedicationID: i64(11), Quantity: dec("0.5")}, // 18 units
			{ItemID: i64(12)},                             // 50 units
		},
	}
	fractional := &prescription.PrescriptionLine{
		ID:       uuid.New(),
		Category: []prescription.Concept{{Code: prescription.CompoundCategoryCode}},
		SupportingInformation: []prescription.Ingredient{
			{MedicationID: i64(20), Quantity: dec("0.1")}, // 3 units
			{MedicationID: i64(21), Quantity: dec("0.1")}, // 7 units
		},
	}

	tests := []struct {
		name string
		line *prescription.PrescriptionLine
		want int64
	}{
		{"simple reads medication stock", &prescription.PrescriptionLine{MedicationID: i64(1)}, 30},
		{"item reads item stock", &prescription.PrescriptionLine{ItemID: i64(2)}, 4},
		{"compound is limited by scarcest ingredient", compound, 18},
		{"fractional per-unit divides exactly", fractional, 3},
		{"compound without ingredients", &prescription.PrescriptionLine{
			Category: []prescription.Concept{{Text: "racikan"}},
		}, 0},
		{"missing stock row", &prescription.PrescriptionLine{MedicationID: i64(77)}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := svc.AvailableFor(context.Background(), tt.line)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !got.Equal(decimal.NewFromInt(tt.want)) {
				t.Errorf("AvailableFor() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestService_AvailableFor_UnknownLine(t *testing.T) {
	svc := NewService(newMockStockRepo())
	_, err := svc.AvailableFor(context.Background(), &prescription.PrescriptionLine{})
	if !apperr.Is(err, apperr.KindValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestParseKind(t *testing.T) {
	for _, s := range []string{"medication", "item", "raw-material"} {
		if _, ok := ParseKind(s); !ok {
			t.Errorf("expected %q to parse", s)
		}
	}
	if _, ok := ParseKind("device"); ok {
		t.Error("expected device to be rejected")
	}
}
