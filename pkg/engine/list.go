package engine

import (
	"context"

	"github.com/google/uuid"

	"github.com/shunichi-ikebuchi/ledger-engine/pkg/store"
)

// List retrieves a filtered page of a tenant's transactions joined with
// account/category/cost-center names, plus the total match count. Rows
// whose stored status is pending but whose due date has passed are
// reported as late; the stored status is untouched. Listing runs outside
// the serializable write path, it is advisory only.
func (e *Engine) List(ctx context.Context, tenantID uuid.UUID, f store.TransactionFilter, p store.Page, sortBy string, descending bool) ([]store.TransactionRow, int, error) {
	today := e.today()
	f.Today = today

	rows, total, err := store.ListTransactions(ctx, e.conn.DB(), tenantID, f, p, sortBy, descending)
	if err != nil {
		return nil, 0, err
	}
	for i := range rows {
		rows[i].Status = rows[i].EffectiveStatus(today)
	}
	return rows, total, nil
}
