package inventory

import (
	"context"
	"net/http"
	"strconv"

	"github.com/ehr/orders/internal/platform/svcclient"
)

type stockRepoRemote struct{ client *svcclient.Client }

func NewStockRepoRemote(client *svcclient.Client) StockRepository {
	return &stockRepoRemote{client: client}
}

func (r *stockRepoRemote) GetStock(ctx context.Context, kind Kind, refID int64) (*StockLevel, error) {
	s := StockLevel{Kind: kind, RefID: refID}
	path := "/stock/" + string(kind) + "/" + strconv.FormatInt(refID, 10)
	if err := r.client.Do(ctx, http.MethodGet, path, nil, nil, &s); err != nil {
		return nil, err
	}
	return &s, nil
}
