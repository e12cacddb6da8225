package prescription

import (
	"context"

	"github.com/rs/zerolog"
)

// GroupLoader discovers the lines that share a base line's group identifier.
type GroupLoader struct {
	lines  LineRepository
	limit  int
	logger zerolog.Logger
}

func NewGroupLoader(lines LineRepository, limit int) *GroupLoader {
	return &GroupLoader{lines: lines, limit: limit, logger: zerolog.Nop()}
}

// SetLogger attaches a logger for discovery fallbacks.
func (g *GroupLoader) SetLogger(logger zerolog.Logger) {
	g.logger = logger
}

// Load returns every line of the patient whose group identifier value equals
// the base line's, in the order the service returned them. It never fails:
// without a group identifier, or when discovery fails, the group degrades to
// the base line alone so the edit stays possible.
func (g *GroupLoader) Load(ctx context.Context, base *PrescriptionLine) []*PrescriptionLine {
	if base == nil {
		return nil
	}
	if base.GroupIdentifier == nil || base.GroupIdentifier.Value == "" {
		return []*PrescriptionLine{base}
	}

	all, err := g.lines.ListByPatient(ctx, base.PatientID, g.limit)
	if err != nil {
		g.logger.Warn().Err(err).
			Str("base_id", base.ID.String()).
			Str("group", base.GroupIdentifier.Value).
			Msg("group discovery failed, editing base line only")
		return []*PrescriptionLine{base}
	}

	value := base.GroupIdentifier.Value
	var group []*PrescriptionLine
	hasBase := false
	for _, l := range all {
		if l == nil || l.GroupIdentifier == nil || l.GroupIdentifier.Value != value {
			continue
		}
		if l.ID == base.ID {
			hasBase = true
		}
		group = append(group, l)
	}
	// The listing is capped by limit; the base line is always part of its group.
	if !hasBase {
		group = append([]*PrescriptionLine{base}, group...)
	}
	return group
}
