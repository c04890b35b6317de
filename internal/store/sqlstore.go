package store

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"

	"github.com/evcraddock/pool-route/internal/apperr"
)

// Dialect selects placeholder syntax and error classification.
type Dialect int

const (
	SQLite Dialect = iota
	Postgres
)

func (d Dialect) String() string {
	if d == Postgres {
		return "postgres"
	}
	return "sqlite"
}

func (d Dialect) placeholder(n int) string {
	if d == Postgres {
		return fmt.Sprintf("$%d", n)
	}
	return "?"
}

// SQLStore implements Store over a database/sql handle.
type SQLStore struct {
	db      *sql.DB
	dialect Dialect
}

var _ Store = (*SQLStore)(nil)

// NewSQLStore creates a store over an open, migrated database.
func NewSQLStore(db *sql.DB, dialect Dialect) *SQLStore {
	return &SQLStore{db: db, dialect: dialect}
}

// Ping checks that the database is reachable.
func (s *SQLStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return apperr.DataSource("pinging database", err)
	}
	return nil
}

// List returns the rows of table matching q.
func (s *SQLStore) List(ctx context.Context, table string, q Query) ([]Record, error) {
	t, err := LookupTable(table)
	if err != nil {
		return nil, err
	}
	q, err = CheckQuery(t, q)
	if err != nil {
		return nil, err
	}

	var args []any
	query := fmt.Sprintf("SELECT %s FROM %s", strings.Join(t.ColumnNames(), ", "), t.Name)

	if len(q.Filters) > 0 {
		conds := make([]string, len(q.Filters))
		for i, f := range q.Filters {
			args = append(args, f.Value)
			conds[i] = fmt.Sprintf("%s = %s", f.Column, s.dialect.placeholder(len(args)))
		}
		query += " WHERE " + strings.Join(conds, " AND ")
	}

	order := make([]string, 0, len(q.Order)+1)
	for _, o := range q.Order {
		dir := "ASC"
		if o.Desc {
			dir = "DESC"
		}
		order = append(order, o.Column+" "+dir)
	}
	order = append(order, "id ASC")
	query += " ORDER BY " + strings.Join(order, ", ")

	return s.queryRows(ctx, t, "listing "+t.Name, query, args...)
}

// GetRelated lists rows of table and attaches the row referenced by the
// expand relation under the relation name (nil when the reference is null).
func (s *SQLStore) GetRelated(ctx context.Context, table string, q Query, expand string) ([]Record, error) {
	t, err := LookupTable(table)
	if err != nil {
		return nil, err
	}
	rel, ok := t.Relation(expand)
	if !ok {
		return nil, apperr.Validation("select", "unknown relation %q on %s", expand, t.Name)
	}

	rows, err := s.List(ctx, table, q)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return rows, nil
	}

	related, err := s.byIDs(ctx, rel.Table, foreignKeys(rows, rel.Column))
	if err != nil {
		return nil, err
	}

	for _, r := range rows {
		r[rel.Name] = nil
		if id, ok := r[rel.Column].(int64); ok {
			if rec, found := related[id]; found {
				r[rel.Name] = rec
			}
		}
	}
	return rows, nil
}

// Insert adds a row and returns it as stored.
func (s *SQLStore) Insert(ctx context.Context, table string, fields Record) (Record, error) {
	t, err := LookupTable(table)
	if err != nil {
		return nil, err
	}
	fields, err = CheckFields(t, fields)
	if err != nil {
		return nil, err
	}

	names := sortedKeys(fields)
	placeholders := make([]string, len(names))
	args := make([]any, len(names))
	for i, n := range names {
		placeholders[i] = s.dialect.placeholder(i + 1)
		args[i] = fields[n]
	}

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) RETURNING %s",
		t.Name, strings.Join(names, ", "), strings.Join(placeholders, ", "),
		strings.Join(t.ColumnNames(), ", "))

	op := "inserting " + t.Singular
	rows, err := s.queryRows(ctx, t, op, query, args...)
	if err != nil {
		return nil, err
	}
	if len(rows) != 1 {
		return nil, apperr.DataSource(op, fmt.Errorf("expected 1 row, got %d", len(rows)))
	}
	return rows[0], nil
}

// Update writes fields to the row with id and returns the updated row.
func (s *SQLStore) Update(ctx context.Context, table string, id int64, fields Record) (Record, error) {
	t, err := LookupTable(table)
	if err != nil {
		return nil, err
	}
	fields, err = CheckFields(t, fields)
	if err != nil {
		return nil, err
	}

	names := sortedKeys(fields)
	sets := make([]string, len(names))
	args := make([]any, 0, len(names)+1)
	for i, n := range names {
		args = append(args, fields[n])
		sets[i] = fmt.Sprintf("%s = %s", n, s.dialect.placeholder(len(args)))
	}
	args = append(args, id)

	query := fmt.Sprintf("UPDATE %s SET %s WHERE id = %s RETURNING %s",
		t.Name, strings.Join(sets, ", "), s.dialect.placeholder(len(args)),
		strings.Join(t.ColumnNames(), ", "))

	rows, err := s.queryRows(ctx, t, "updating "+t.Singular, query, args...)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, apperr.NotFound(t.Singular, id)
	}
	return rows[0], nil
}

// byIDs loads rows of table by id, keyed by id.
func (s *SQLStore) byIDs(ctx context.Context, table string, ids []int64) (map[int64]Record, error) {
	result := make(map[int64]Record, len(ids))
	if len(ids) == 0 {
		return result, nil
	}
	t, err := LookupTable(table)
	if err != nil {
		return nil, err
	}

	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = s.dialect.placeholder(i + 1)
		args[i] = id
	}
	query := fmt.Sprintf("SELECT %s FROM %s WHERE id IN (%s)",
		strings.Join(t.ColumnNames(), ", "), t.Name, strings.Join(placeholders, ", "))

	rows, err := s.queryRows(ctx, t, "loading "+t.Name, query, args...)
	if err != nil {
		return nil, err
	}
	for _, r := range rows {
		if id, ok := r["id"].(int64); ok {
			result[id] = r
		}
	}
	return result, nil
}

// queryRows runs a row-returning statement and normalizes each row.
func (s *SQLStore) queryRows(ctx context.Context, t *Table, op, query string, args ...any) (result []Record, err error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, classify(op, err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil && err == nil {
			err = apperr.DataSource("closing rows", closeErr)
		}
	}()

	cols := t.Columns
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, apperr.DataSource("scanning "+t.Singular, err)
		}

		rec := make(Record, len(cols))
		for i, c := range cols {
			v, err := Coerce(c, values[i])
			if err != nil {
				return nil, apperr.DataSource("reading "+t.Singular, fmt.Errorf("malformed row: %s", err))
			}
			rec[c.Name] = v
		}
		result = append(result, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, classify(op, err)
	}
	if result == nil {
		result = []Record{}
	}
	return result, nil
}

// classify maps a driver error to an apperr kind.
func classify(op string, err error) error {
	if isUniqueViolation(err) {
		return apperr.Conflict(op, err)
	}
	return apperr.DataSource(op, err)
}

func foreignKeys(rows []Record, column string) []int64 {
	seen := make(map[int64]bool)
	var ids []int64
	for _, r := range rows {
		id, ok := r[column].(int64)
		if !ok || seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	return ids
}

func sortedKeys(r Record) []string {
	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
