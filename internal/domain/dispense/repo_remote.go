package dispense

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/ehr/orders/internal/domain/prescription"
	"github.com/ehr/orders/internal/platform/svcclient"
)

type dispenseRepoRemote struct{ client *svcclient.Client }

func NewDispenseRepoRemote(client *svcclient.Client) Repository {
	return &dispenseRepoRemote{client: client}
}

// List returns one page. The service reports no total, so the total is the
// number of records seen up to this page.
func (r *dispenseRepoRemote) List(ctx context.Context, limit, offset int) ([]*DispenseRecord, int, error) {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))
	if offset > 0 {
		q.Set("offset", strconv.Itoa(offset))
	}
	var items []*DispenseRecord
	if err := r.client.Do(ctx, http.MethodGet, "/medication-dispenses", q, nil, &items); err != nil {
		return nil, 0, err
	}
	return items, offset + len(items), nil
}

func (r *dispenseRepoRemote) GetByID(ctx context.Context, id uuid.UUID) (*DispenseRecord, error) {
	var d DispenseRecord
	if err := r.client.Do(ctx, http.MethodGet, "/medication-dispenses/"+id.String(), nil, nil, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

type createFromRequestBody struct {
	MedicationRequestID uuid.UUID             `json:"medication_request_id"`
	Quantity            prescription.Quantity `json:"quantity"`
	Performer           string                `json:"performer,omitempty"`
}

func (r *dispenseRepoRemote) CreateFromRequest(ctx context.Context, line *prescription.PrescriptionLine, qty prescription.Quantity, performer string) (*DispenseRecord, error) {
	body := createFromRequestBody{MedicationRequestID: line.ID, Quantity: qty, Performer: performer}
	var d DispenseRecord
	if err := r.client.Do(ctx, http.MethodPost, "/medication-dispenses/from-request", nil, body, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

type updateStatusBody struct {
	Status         Status     `json:"status"`
	WhenHandedOver *time.Time `json:"when_handed_over,omitempty"`
}

func (r *dispenseRepoRemote) UpdateStatus(ctx context.Context, id uuid.UUID, status Status, whenHandedOver *time.Time) (*DispenseRecord, error) {
	var d DispenseRecord
	body := updateStatusBody{Status: status, WhenHandedOver: whenHandedOver}
	if err := r.client.Do(ctx, http.MethodPut, "/medication-dispenses/"+id.String(), nil, body, &d); err != nil {
		return nil, err
	}
	if d.ID == uuid.Nil {
		d.ID = id
		d.Status = status
		d.WhenHandedOver = whenHandedOver
	}
	return &d, nil
}
