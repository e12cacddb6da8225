package prescription

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/google/uuid"

	"github.com/ehr/orders/internal/platform/svcclient"
	"github.com/ehr/orders/pkg/apperr"
)

type lineRepoRemote struct{ client *svcclient.Client }

// NewLineRepoRemote serves lines from the external service of record.
func NewLineRepoRemote(client *svcclient.Client) LineRepository {
	return &lineRepoRemote{client: client}
}

func (r *lineRepoRemote) GetByID(ctx context.Context, id uuid.UUID) (*PrescriptionLine, error) {
	var l PrescriptionLine
	if err := r.client.Do(ctx, http.MethodGet, "/medication-requests/"+id.String(), nil, nil, &l); err != nil {
		return nil, err
	}
	return &l, nil
}

func (r *lineRepoRemote) ListByPatient(ctx context.Context, patientID uuid.UUID, limit int) ([]*PrescriptionLine, error) {
	q := url.Values{}
	q.Set("patient", patientID.String())
	q.Set("limit", strconv.Itoa(limit))
	var lines []*PrescriptionLine
	if err := r.client.Do(ctx, http.MethodGet, "/medication-requests", q, nil, &lines); err != nil {
		return nil, err
	}
	return lines, nil
}

// CreateBatch posts every payload in one array body. The service answers with
// the created lines in the same order.
func (r *lineRepoRemote) CreateBatch(ctx context.Context, lines []*PrescriptionLine) error {
	var created []*PrescriptionLine
	if err := r.client.Do(ctx, http.MethodPost, "/medication-requests", nil, lines, &created); err != nil {
		return err
	}
	if len(created) != len(lines) {
		return apperr.Boundary(fmt.Errorf("created %d of %d medication requests", len(created), len(lines)))
	}
	for i, c := range created {
		if c == nil || c.ID == uuid.Nil {
			return apperr.Boundary(fmt.Errorf("created medication request #%d has no id", i+1))
		}
		lines[i].ID = c.ID
		lines[i].CreatedAt = c.CreatedAt
		lines[i].UpdatedAt = c.UpdatedAt
	}
	return nil
}

func (r *lineRepoRemote) Update(ctx context.Context, l *PrescriptionLine) error {
	return r.client.Do(ctx, http.MethodPut, "/medication-requests/"+l.ID.String(), nil, l, nil)
}

func (r *lineRepoRemote) Delete(ctx context.Context, id uuid.UUID) error {
	return r.client.Do(ctx, http.MethodDelete, "/medication-requests/"+id.String(), nil, nil, nil)
}
