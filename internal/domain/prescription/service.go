package prescription

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ehr/orders/internal/platform/metrics"
	"github.com/ehr/orders/pkg/apperr"
)

type Service struct {
	lines  LineRepository
	loader *GroupLoader
	system string
	now    func() time.Time
	logger zerolog.Logger
}

// NewService wires the group engine onto a line repository. identifierSystem
// is the fixed system of minted group identifiers and discoveryLimit the limit
// passed when listing a patient's lines.
func NewService(lines LineRepository, identifierSystem string, discoveryLimit int) *Service {
	return &Service{
		lines:  lines,
		loader: NewGroupLoader(lines, discoveryLimit),
		system: identifierSystem,
		now:    time.Now,
		logger: zerolog.Nop(),
	}
}

func (s *Service) SetLogger(logger zerolog.Logger) {
	s.logger = logger
	s.loader.SetLogger(logger)
}

func (s *Service) mint() *Identifier {
	return &Identifier{
		System: s.system,
		Value:  strconv.FormatInt(s.now().UnixMilli(), 10),
	}
}

// Group is a loaded prescription group split into its buckets.
type Group struct {
	BaseID          uuid.UUID   `json:"base_id"`
	GroupIdentifier *Identifier `json:"group_identifier,omitempty"`
	Buckets
}

// Applied counts the mutations that reached the service.
type Applied struct {
	Updated int `json:"updated"`
	Created int `json:"created"`
	Deleted int `json:"deleted"`
}

func (a Applied) total() int {
	return a.Updated + a.Created + a.Deleted
}

// Result is the outcome of a create or reconcile.
type Result struct {
	Plan    *Plan   `json:"plan"`
	Applied Applied `json:"applied"`
	DryRun  bool    `json:"dry_run,omitempty"`
}

func (s *Service) GetLine(ctx context.Context, id uuid.UUID) (*PrescriptionLine, error) {
	l, err := s.lines.GetByID(ctx, id)
	if err != nil {
		return nil, apperr.Boundary(err)
	}
	return l, nil
}

// LoadGroup returns the group of the base line, classified.
func (s *Service) LoadGroup(ctx context.Context, baseID uuid.UUID) (*Group, error) {
	base, err := s.GetLine(ctx, baseID)
	if err != nil {
		return nil, err
	}
	lines := s.loader.Load(ctx, base)
	return &Group{
		BaseID:          base.ID,
		GroupIdentifier: firstGroupIdentifier(lines),
		Buckets:         Bucket(lines),
	}, nil
}

// CreateGroup persists a brand new order. An empty order and a compound
// without ingredients are rejected before anything is sent.
func (s *Service) CreateGroup(ctx context.Context, in *GroupInput) (*Result, error) {
	if err := validateNew(in); err != nil {
		return nil, err
	}
	if err := normalizeHeader(&in.Header); err != nil {
		return nil, err
	}
	plan, err := PlanCreate(in, s.mint)
	if err != nil {
		return nil, err
	}
	metrics.IdentifierDecisions.WithLabelValues(string(plan.IdentifierDecision)).Inc()

	s.logger.Info().
		Str("patient_id", in.PatientID.String()).
		Str("group", plan.GroupIdentifier.Value).
		Int("creates", len(plan.Creates)).
		Msg("creating prescription group")

	applied, err := s.apply(ctx, plan)
	return &Result{Plan: plan, Applied: applied}, err
}

// ReconcileGroup moves the group of baseID onto in. With dryRun the plan is
// computed and returned without issuing any mutation.
func (s *Service) ReconcileGroup(ctx context.Context, baseID uuid.UUID, in *GroupInput, dryRun bool) (*Result, error) {
	if err := validateLines(in); err != nil {
		return nil, err
	}
	base, err := s.GetLine(ctx, baseID)
	if err != nil {
		return nil, err
	}
	inheritHeader(&in.Header, base)
	if err := normalizeHeader(&in.Header); err != nil {
		return nil, err
	}

	loaded := s.loader.Load(ctx, base)
	plan, err := PlanReconcile(base, loaded, in, s.mint)
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("base_id", baseID.String()).
		Int("loaded", len(loaded)).
		Int("updates", len(plan.Updates)).
		Int("creates", len(plan.Creates)).
		Int("deletes", len(plan.Deletes)).
		Str("identifier", string(plan.IdentifierDecision)).
		Bool("dry_run", dryRun).
		Msg("reconcile plan")

	if err := s.checkDeletable(ctx, plan.Deletes); err != nil {
		return nil, err
	}
	if dryRun {
		return &Result{Plan: plan, DryRun: true}, nil
	}
	metrics.IdentifierDecisions.WithLabelValues(string(plan.IdentifierDecision)).Inc()
	applied, err := s.apply(ctx, plan)
	return &Result{Plan: plan, Applied: applied}, err
}

// checkDeletable refuses a plan that would delete a line with dispenses. It
// runs before any mutation so such a plan never leaves the group half applied.
func (s *Service) checkDeletable(ctx context.Context, ids []uuid.UUID) error {
	checker, ok := s.lines.(DispenseChecker)
	if !ok || len(ids) == 0 {
		return nil
	}
	dispensed, err := checker.Dispensed(ctx, ids)
	if err != nil {
		return apperr.Boundary(err)
	}
	if len(dispensed) > 0 {
		return apperr.Capacityf("medication request %s has dispenses and cannot be removed", dispensed[0])
	}
	return nil
}

// apply issues the plan: every update in order, then the creates in one call,
// then every delete. A failure stops the sequence; what was applied stays.
func (s *Service) apply(ctx context.Context, plan *Plan) (Applied, error) {
	var a Applied
	total := plan.Size()

	for _, l := range plan.Updates {
		if err := s.lines.Update(ctx, l); err != nil {
			return a, s.partial(err, a, total, "update "+l.ID.String())
		}
		a.Updated++
		metrics.ReconcileOperations.WithLabelValues("update").Inc()
	}

	if len(plan.Creates) > 0 {
		if err := s.lines.CreateBatch(ctx, plan.Creates); err != nil {
			return a, s.partial(err, a, total, "create "+strconv.Itoa(len(plan.Creates))+" line(s)")
		}
		a.Created = len(plan.Creates)
		metrics.ReconcileOperations.WithLabelValues("create").Add(float64(a.Created))
	}

	for _, id := range plan.Deletes {
		if err := s.lines.Delete(ctx, id); err != nil {
			return a, s.partial(err, a, total, "delete "+id.String())
		}
		a.Deleted++
		metrics.ReconcileOperations.WithLabelValues("delete").Inc()
	}
	return a, nil
}

func (s *Service) partial(err error, a Applied, total int, step string) error {
	s.logger.Error().Err(err).
		Str("step", step).
		Int("applied", a.total()).
		Int("planned", total).
		Msg("reconcile stopped, applied changes are kept")
	if a.total() == 0 {
		return apperr.Boundaryf(err, "%s", step)
	}
	return apperr.Boundaryf(err, "%s failed after %d of %d changes were applied", step, a.total(), total)
}

// inheritHeader fills order-level fields the edit form left empty from the
// line the edit started from.
func inheritHeader(h *Header, base *PrescriptionLine) {
	if h.PatientID == uuid.Nil {
		h.PatientID = base.PatientID
	}
	if h.RequesterID == uuid.Nil {
		h.RequesterID = base.RequesterID
	}
	if h.EncounterID == nil {
		h.EncounterID = base.EncounterID
	}
	if h.Status == "" {
		h.Status = base.Status
	}
	if h.Intent == "" {
		h.Intent = base.Intent
	}
	if h.Priority == "" {
		h.Priority = base.Priority
	}
	if h.AuthoredOn == nil {
		h.AuthoredOn = base.AuthoredOn
	}
}
