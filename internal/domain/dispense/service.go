package dispense

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/ehr/orders/internal/domain/prescription"
	"github.com/ehr/orders/internal/platform/metrics"
	"github.com/ehr/orders/pkg/apperr"
)

// LineReader fetches the prescription line a dispense is authorized by.
type LineReader interface {
	GetLine(ctx context.Context, id uuid.UUID) (*prescription.PrescriptionLine, error)
}

// StockSource reports how much of a line can be dispensed from current stock.
type StockSource interface {
	AvailableFor(ctx context.Context, line *prescription.PrescriptionLine) (decimal.Decimal, error)
}

type Service struct {
	repo      Repository
	lines     LineReader
	stock     StockSource
	listLimit int
	now       func() time.Time
	logger    zerolog.Logger
}

// NewService builds the dispense service. listLimit is the page size used to
// collect a line's dispenses when computing its fulfillment.
func NewService(repo Repository, lines LineReader, stock StockSource, listLimit int) *Service {
	return &Service{
		repo:      repo,
		lines:     lines,
		stock:     stock,
		listLimit: listLimit,
		now:       time.Now,
		logger:    zerolog.Nop(),
	}
}

func (s *Service) SetLogger(logger zerolog.Logger) {
	s.logger = logger
}

func (s *Service) ListDispenses(ctx context.Context, limit, offset int) ([]*DispenseRecord, int, error) {
	items, total, err := s.repo.List(ctx, limit, offset)
	if err != nil {
		return nil, 0, apperr.Boundary(err)
	}
	return items, total, nil
}

// Fulfillment computes the fulfillment of one line from fresh data.
func (s *Service) Fulfillment(ctx context.Context, requestID uuid.UUID) (*Fulfillment, error) {
	line, err := s.lines.GetLine(ctx, requestID)
	if err != nil {
		return nil, err
	}
	f, err := s.fulfillmentOf(ctx, line)
	if err != nil {
		return nil, err
	}
	return &f, nil
}

func (s *Service) fulfillmentOf(ctx context.Context, line *prescription.PrescriptionLine) (Fulfillment, error) {
	records, _, err := s.repo.List(ctx, s.listLimit, 0)
	if err != nil {
		return Fulfillment{}, apperr.Boundary(err)
	}
	return ComputeFulfillment(line, records), nil
}

// CreateResult is a created dispense with the fulfillment it was gated on.
type CreateResult struct {
	Dispense    *DispenseRecord `json:"dispense"`
	Fulfillment Fulfillment     `json:"fulfillment"`
	Available   decimal.Decimal `json:"available"`
}

// CreateDispense gates and then creates a dispense for a line. The quantity is
// checked before any call; stock and fulfillment are read fresh. The create is
// not atomic with the gate, so a concurrent dispense may still overdraw stock;
// any rejection the service raises at write time is returned as is.
func (s *Service) CreateDispense(ctx context.Context, requestID uuid.UUID, req DispenseRequest, performer string) (*CreateResult, error) {
	if err := CheckQuantity(req.Quantity); err != nil {
		s.reject(requestID, ReasonQuantity, err)
		return nil, err
	}

	line, err := s.lines.GetLine(ctx, requestID)
	if err != nil {
		return nil, err
	}
	f, err := s.fulfillmentOf(ctx, line)
	if err != nil {
		return nil, err
	}
	available, err := s.stock.AvailableFor(ctx, line)
	if err != nil {
		return nil, err
	}

	if reason, err := CheckStock(req.Quantity, available, f); err != nil {
		s.reject(requestID, reason, err)
		return nil, err
	}

	unit := req.Unit
	if unit == "" && line.DispenseQuantity != nil {
		unit = line.DispenseQuantity.Unit
	}
	qty := prescription.Quantity{Value: req.Quantity, Unit: unit}
	d, err := s.repo.CreateFromRequest(ctx, line, qty, performer)
	if err != nil {
		return nil, apperr.Boundary(err)
	}

	s.logger.Info().
		Str("dispense_id", d.ID.String()).
		Str("medication_request_id", requestID.String()).
		Stringer("quantity", req.Quantity).
		Stringer("available", available).
		Msg("dispense created")
	return &CreateResult{Dispense: d, Fulfillment: f, Available: available}, nil
}

func (s *Service) reject(requestID uuid.UUID, reason string, err error) {
	metrics.DispenseGateRejections.WithLabelValues(reason).Inc()
	s.logger.Info().
		Str("medication_request_id", requestID.String()).
		Str("reason", reason).
		Msg(err.Error())
}

// HandOver completes a dispense and stamps the hand-over time. A dispense that
// is already completed, cancelled, declined or entered-in-error is refused
// before any update is sent.
func (s *Service) HandOver(ctx context.Context, id uuid.UUID) (*DispenseRecord, error) {
	d, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, apperr.Boundary(err)
	}
	if d.Status.Terminal() || !CanTransition(d.Status, StatusCompleted) {
		return nil, apperr.Validationf("dispense is %s and cannot be handed over", d.Status)
	}

	now := s.now().UTC()
	updated, err := s.repo.UpdateStatus(ctx, id, StatusCompleted, &now)
	if err != nil {
		return nil, apperr.Boundary(err)
	}
	metrics.DispenseHandovers.Inc()
	s.logger.Info().
		Str("dispense_id", id.String()).
		Str("from", string(d.Status)).
		Time("when_handed_over", now).
		Msg("dispense handed over")
	return updated, nil
}
