package client

import (
	"context"
	"fmt"
	"strings"

	"github.com/evcraddock/pool-route/internal/apperr"
	"github.com/evcraddock/pool-route/internal/store"
)

// Repository provides catalog operations for clients.
type Repository struct {
	store store.Store
}

// NewRepository creates a client repository over st.
func NewRepository(st store.Store) *Repository {
	return &Repository{store: st}
}

// List returns all clients ordered by name.
func (r *Repository) List(ctx context.Context) ([]*Client, error) {
	return r.list(ctx, store.Query{}.OrderBy("full_name"))
}

// ListByWeekday returns the clients visited on day w, ordered by name.
func (r *Repository) ListByWeekday(ctx context.Context, w Weekday) ([]*Client, error) {
	if !w.Valid() {
		return nil, apperr.Validation("visit_weekday", "must be between 1 and 7, got %d", int(w))
	}
	return r.list(ctx, store.Eq("visit_weekday", int64(w)).OrderBy("full_name"))
}

// Get returns the client with id.
func (r *Repository) Get(ctx context.Context, id int64) (*Client, error) {
	clients, err := r.list(ctx, store.Eq("id", id))
	if err != nil {
		return nil, err
	}
	if len(clients) == 0 {
		return nil, apperr.NotFound("client", id)
	}
	return clients[0], nil
}

// Create validates in and stores a new client.
func (r *Repository) Create(ctx context.Context, in Input) (*Client, error) {
	fields := store.Record{}
	for _, f := range []struct {
		name  string
		value string
	}{
		{"full_name", in.FullName},
		{"address", in.Address},
		{"phone", in.Phone},
	} {
		v := strings.TrimSpace(f.value)
		if v == "" {
			return nil, apperr.Validation(f.name, "is required")
		}
		fields[f.name] = v
	}
	if !in.VisitWeekday.Valid() {
		return nil, apperr.Validation("visit_weekday", "must be between 1 and 7, got %d", int(in.VisitWeekday))
	}
	fields["visit_weekday"] = int64(in.VisitWeekday)
	if notes := strings.TrimSpace(in.Notes); notes != "" {
		fields["notes"] = notes
	}

	rec, err := r.store.Insert(ctx, store.TableClients, fields)
	if err != nil {
		return nil, err
	}
	return Decode(rec)
}

// Update writes the non-nil fields of p to the client with id.
func (r *Repository) Update(ctx context.Context, id int64, p Patch) (*Client, error) {
	fields := store.Record{}
	required := []struct {
		name  string
		value *string
	}{
		{"full_name", p.FullName},
		{"address", p.Address},
		{"phone", p.Phone},
	}
	for _, f := range required {
		if f.value == nil {
			continue
		}
		v := strings.TrimSpace(*f.value)
		if v == "" {
			return nil, apperr.Validation(f.name, "cannot be empty")
		}
		fields[f.name] = v
	}
	if p.VisitWeekday != nil {
		if !p.VisitWeekday.Valid() {
			return nil, apperr.Validation("visit_weekday", "must be between 1 and 7, got %d", int(*p.VisitWeekday))
		}
		fields["visit_weekday"] = int64(*p.VisitWeekday)
	}
	if p.Notes != nil {
		fields["notes"] = strings.TrimSpace(*p.Notes)
	}
	if len(fields) == 0 {
		return nil, apperr.Validation("fields", "nothing to update")
	}

	rec, err := r.store.Update(ctx, store.TableClients, id, fields)
	if err != nil {
		return nil, err
	}
	return Decode(rec)
}

func (r *Repository) list(ctx context.Context, q store.Query) ([]*Client, error) {
	rows, err := r.store.List(ctx, store.TableClients, q)
	if err != nil {
		return nil, err
	}
	clients := make([]*Client, 0, len(rows))
	for _, rec := range rows {
		c, err := Decode(rec)
		if err != nil {
			return nil, err
		}
		clients = append(clients, c)
	}
	return clients, nil
}

// Decode converts a clients row, plain or embedded, to a Client.
func Decode(rec store.Record) (*Client, error) {
	var c Client
	if err := store.Decode(rec, &c); err != nil {
		return nil, apperr.DataSource("reading client", fmt.Errorf("malformed row: %s", err))
	}
	return &c, nil
}
