// Package store defines the query/command interface the domain packages use
// to reach the relational data backend, plus a database/sql implementation.
package store

import (
	"context"
	"encoding/json"
	"fmt"
)

// Record is one row as returned by a backend, keyed by column name.
// Expanded relations appear as nested Records under the relation name.
type Record map[string]any

// Filter is an equality predicate on a column.
type Filter struct {
	Column string
	Value  any
}

// Order sorts by a column.
type Order struct {
	Column string
	Desc   bool
}

// Query selects rows by equality filters and sort order.
// With no Order, rows come back in insertion order.
type Query struct {
	Filters []Filter
	Order   []Order
}

// Eq returns a query with a single equality filter.
func Eq(column string, value any) Query {
	return Query{Filters: []Filter{{Column: column, Value: value}}}
}

// Where adds an equality filter.
func (q Query) Where(column string, value any) Query {
	q.Filters = append(append([]Filter(nil), q.Filters...), Filter{Column: column, Value: value})
	return q
}

// OrderBy adds an ascending sort on column.
func (q Query) OrderBy(column string) Query {
	q.Order = append(append([]Order(nil), q.Order...), Order{Column: column})
	return q
}

// OrderByDesc adds a descending sort on column.
func (q Query) OrderByDesc(column string) Query {
	q.Order = append(append([]Order(nil), q.Order...), Order{Column: column, Desc: true})
	return q
}

// Store is the data backend contract. Every method is a single round trip
// and fails with an apperr kind: validation for unknown tables or columns,
// not-found for updates of missing rows, conflict for uniqueness violations,
// data-source for everything else.
type Store interface {
	// List returns the rows of table matching q.
	List(ctx context.Context, table string, q Query) ([]Record, error)
	// GetRelated is List with the named relation expanded into each row.
	GetRelated(ctx context.Context, table string, q Query, expand string) ([]Record, error)
	// Insert adds a row and returns it as persisted, including id and created_at.
	Insert(ctx context.Context, table string, fields Record) (Record, error)
	// Update writes fields to the row with the given id and returns the row.
	Update(ctx context.Context, table string, id int64, fields Record) (Record, error)
}

// Pinger is implemented by backends that can report their reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Decode converts a record into dst (a pointer to a struct with json tags).
func Decode(rec Record, dst any) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encoding record: %w", err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("decoding record: %w", err)
	}
	return nil
}
