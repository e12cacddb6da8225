package dispense

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/ehr/orders/internal/domain/prescription"
)

// Repository is the service boundary for dispenses.
type Repository interface {
	List(ctx context.Context, limit, offset int) ([]*DispenseRecord, int, error)
	GetByID(ctx context.Context, id uuid.UUID) (*DispenseRecord, error)
	// CreateFromRequest creates a dispense authorized by the given line.
	CreateFromRequest(ctx context.Context, line *prescription.PrescriptionLine, qty prescription.Quantity, performer string) (*DispenseRecord, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status Status, whenHandedOver *time.Time) (*DispenseRecord, error)
}
