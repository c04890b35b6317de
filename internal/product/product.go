// Package product provides the product catalog used for applied products
// and suggested needs.
package product

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/evcraddock/pool-route/internal/apperr"
	"github.com/evcraddock/pool-route/internal/store"
)

// Product is a chemical or supply with its unit of measure.
type Product struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Unit      string    `json:"unit"`
	IsDefault bool      `json:"is_default"`
	CreatedAt time.Time `json:"created_at"`
}

// Input holds the fields of a new product.
type Input struct {
	Name      string
	Unit      string
	IsDefault bool
}

// Repository provides catalog operations for products. Products are never
// modified once created.
type Repository struct {
	store store.Store
}

// NewRepository creates a product repository over st.
func NewRepository(st store.Store) *Repository {
	return &Repository{store: st}
}

// List returns all products ordered by name.
func (r *Repository) List(ctx context.Context) ([]*Product, error) {
	rows, err := r.store.List(ctx, store.TableProducts, store.Query{}.OrderBy("name"))
	if err != nil {
		return nil, err
	}
	products := make([]*Product, 0, len(rows))
	for _, rec := range rows {
		p, err := Decode(rec)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, nil
}

// Get returns the product with id.
func (r *Repository) Get(ctx context.Context, id int64) (*Product, error) {
	rows, err := r.store.List(ctx, store.TableProducts, store.Eq("id", id))
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, apperr.NotFound("product", id)
	}
	return Decode(rows[0])
}

// Create validates in and stores a new product.
func (r *Repository) Create(ctx context.Context, in Input) (*Product, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, apperr.Validation("name", "is required")
	}
	unit := strings.TrimSpace(in.Unit)
	if unit == "" {
		return nil, apperr.Validation("unit", "is required")
	}

	rec, err := r.store.Insert(ctx, store.TableProducts, store.Record{
		"name":       name,
		"unit":       unit,
		"is_default": in.IsDefault,
	})
	if err != nil {
		return nil, err
	}
	return Decode(rec)
}

// Decode converts a products row, plain or embedded, to a Product.
func Decode(rec store.Record) (*Product, error) {
	var p Product
	if err := store.Decode(rec, &p); err != nil {
		return nil, apperr.DataSource("reading product", fmt.Errorf("malformed row: %s", err))
	}
	return &p, nil
}
