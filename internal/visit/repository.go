package visit

import (
	"context"
	"fmt"

	"github.com/evcraddock/pool-route/internal/apperr"
	"github.com/evcraddock/pool-route/internal/store"
)

// Repository reads and writes visit rows and their line items.
type Repository struct {
	store store.Store
}

// NewRepository creates a visit repository over st.
func NewRepository(st store.Store) *Repository {
	return &Repository{store: st}
}

// Get returns the visit with id.
func (r *Repository) Get(ctx context.Context, id int64) (*Visit, error) {
	visits, err := r.list(ctx, store.Eq("id", id))
	if err != nil {
		return nil, err
	}
	if len(visits) == 0 {
		return nil, apperr.NotFound("visit", id)
	}
	return visits[0], nil
}

// ForDate returns the client's visit on date (YYYY-MM-DD), or nil if there
// is none.
func (r *Repository) ForDate(ctx context.Context, clientID int64, date string) (*Visit, error) {
	visits, err := r.list(ctx, store.Eq("client_id", clientID).Where("visit_date", date))
	if err != nil {
		return nil, err
	}
	if len(visits) == 0 {
		return nil, nil
	}
	return visits[0], nil
}

// ListByClient returns all visits for a client, newest first.
func (r *Repository) ListByClient(ctx context.Context, clientID int64) ([]*Visit, error) {
	return r.list(ctx, store.Eq("client_id", clientID).OrderByDesc("visit_date").OrderByDesc("id"))
}

func (r *Repository) insert(ctx context.Context, fields store.Record) (*Visit, error) {
	rec, err := r.store.Insert(ctx, store.TableVisits, fields)
	if err != nil {
		return nil, err
	}
	return decodeVisit(rec)
}

func (r *Repository) update(ctx context.Context, id int64, fields store.Record) (*Visit, error) {
	rec, err := r.store.Update(ctx, store.TableVisits, id, fields)
	if err != nil {
		return nil, err
	}
	return decodeVisit(rec)
}

func (r *Repository) addLineItem(ctx context.Context, table string, fields store.Record) error {
	_, err := r.store.Insert(ctx, table, fields)
	return err
}

func (r *Repository) list(ctx context.Context, q store.Query) ([]*Visit, error) {
	rows, err := r.store.List(ctx, store.TableVisits, q)
	if err != nil {
		return nil, err
	}
	visits := make([]*Visit, 0, len(rows))
	for _, rec := range rows {
		v, err := decodeVisit(rec)
		if err != nil {
			return nil, err
		}
		visits = append(visits, v)
	}
	return visits, nil
}

// AppliedProducts returns the products applied during a visit, in the
// order they were added, with product details.
func (r *Repository) AppliedProducts(ctx context.Context, visitID int64) ([]*AppliedProduct, error) {
	rows, err := r.store.GetRelated(ctx, store.TableAppliedProducts, store.Eq("visit_id", visitID).OrderBy("id"), "product")
	if err != nil {
		return nil, err
	}
	items := make([]*AppliedProduct, 0, len(rows))
	for _, rec := range rows {
		var item AppliedProduct
		if err := store.Decode(rec, &item); err != nil {
			return nil, malformed("applied product", err)
		}
		items = append(items, &item)
	}
	return items, nil
}

// SuggestedNeeds returns the needs suggested during a visit, in the order
// they were added, with product details.
func (r *Repository) SuggestedNeeds(ctx context.Context, visitID int64) ([]*SuggestedNeed, error) {
	rows, err := r.store.GetRelated(ctx, store.TableSuggestedNeeds, store.Eq("visit_id", visitID).OrderBy("id"), "product")
	if err != nil {
		return nil, err
	}
	items := make([]*SuggestedNeed, 0, len(rows))
	for _, rec := range rows {
		var item SuggestedNeed
		if err := store.Decode(rec, &item); err != nil {
			return nil, malformed("suggested need", err)
		}
		st, err := ParseApprovalStatus(string(item.ApprovalStatus))
		if err != nil {
			return nil, malformed("suggested need", err)
		}
		item.ApprovalStatus = st
		items = append(items, &item)
	}
	return items, nil
}

func decodeVisit(rec store.Record) (*Visit, error) {
	var v Visit
	if err := store.Decode(rec, &v); err != nil {
		return nil, malformed("visit", err)
	}
	st, err := ParseStatus(string(v.Status))
	if err != nil || st == Pending {
		return nil, malformed("visit", fmt.Errorf("stored status %q", v.Status))
	}
	v.Status = st
	return &v, nil
}

func malformed(kind string, err error) error {
	return apperr.DataSource("reading "+kind, fmt.Errorf("malformed row: %s", err))
}
