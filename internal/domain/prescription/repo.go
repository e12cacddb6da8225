package prescription

import (
	"context"

	"github.com/google/uuid"
)

// LineRepository is the service boundary for persisted order lines.
type LineRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*PrescriptionLine, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID, limit int) ([]*PrescriptionLine, error)
	// CreateBatch persists lines in one call and assigns their ids.
	CreateBatch(ctx context.Context, lines []*PrescriptionLine) error
	// Update replaces the stored line with the full payload, ingredients included.
	Update(ctx context.Context, line *PrescriptionLine) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// DispenseChecker is implemented by repositories that can tell which lines
// already have dispenses. The reconciler refuses to delete those lines before
// it issues any mutation.
type DispenseChecker interface {
	Dispensed(ctx context.Context, ids []uuid.UUID) ([]uuid.UUID, error)
}
