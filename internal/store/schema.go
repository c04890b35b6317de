package store

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/evcraddock/pool-route/internal/apperr"
)

// Table names.
const (
	TableClients         = "clients"
	TableProducts        = "products"
	TableVisits          = "visits"
	TableAppliedProducts = "visit_applied_products"
	TableSuggestedNeeds  = "visit_suggested_needs"
)

// DateLayout is the wire format of date columns.
const DateLayout = "2006-01-02"

// Kind is the value type of a column.
type Kind int

const (
	KindInt Kind = iota
	KindFloat
	KindText
	KindBool
	KindDate
	KindTime
)

// Column describes one column of a table.
type Column struct {
	Name string
	Kind Kind
	// ReadOnly columns are generated by the backend and cannot be written.
	ReadOnly bool
}

// Relation is a foreign key that can be expanded into the referenced row.
type Relation struct {
	Name   string
	Table  string
	Column string
}

// Table describes a table known to the store.
type Table struct {
	Name      string
	Singular  string
	Columns   []Column
	Relations []Relation
}

// Column returns the named column.
func (t *Table) Column(name string) (Column, bool) {
	for _, c := range t.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

// Relation returns the named relation.
func (t *Table) Relation(name string) (Relation, bool) {
	for _, r := range t.Relations {
		if r.Name == name {
			return r, true
		}
	}
	return Relation{}, false
}

// ColumnNames returns the column names in declaration order.
func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

var (
	idColumn        = Column{Name: "id", Kind: KindInt, ReadOnly: true}
	createdAtColumn = Column{Name: "created_at", Kind: KindTime, ReadOnly: true}
	productRelation = Relation{Name: "product", Table: TableProducts, Column: "product_id"}
)

var tables = map[string]*Table{
	TableClients: {
		Name:     TableClients,
		Singular: "client",
		Columns: []Column{
			idColumn,
			{Name: "full_name", Kind: KindText},
			{Name: "address", Kind: KindText},
			{Name: "phone", Kind: KindText},
			{Name: "visit_weekday", Kind: KindInt},
			{Name: "notes", Kind: KindText},
			createdAtColumn,
		},
	},
	TableProducts: {
		Name:     TableProducts,
		Singular: "product",
		Columns: []Column{
			idColumn,
			{Name: "name", Kind: KindText},
			{Name: "unit", Kind: KindText},
			{Name: "is_default", Kind: KindBool},
			createdAtColumn,
		},
	},
	TableVisits: {
		Name:     TableVisits,
		Singular: "visit",
		Columns: []Column{
			idColumn,
			{Name: "client_id", Kind: KindInt},
			{Name: "visit_date", Kind: KindDate},
			{Name: "start_time", Kind: KindTime},
			{Name: "end_time", Kind: KindTime},
			{Name: "status", Kind: KindText},
			{Name: "ph", Kind: KindFloat},
			{Name: "chlorine", Kind: KindFloat},
			{Name: "alkalinity", Kind: KindFloat},
			{Name: "calcium_hardness", Kind: KindFloat},
			{Name: "cyanuric_acid", Kind: KindFloat},
			createdAtColumn,
		},
		Relations: []Relation{
			{Name: "client", Table: TableClients, Column: "client_id"},
		},
	},
	TableAppliedProducts: {
		Name:     TableAppliedProducts,
		Singular: "applied product",
		Columns: []Column{
			idColumn,
			{Name: "visit_id", Kind: KindInt},
			{Name: "product_id", Kind: KindInt},
			{Name: "quantity", Kind: KindFloat},
			createdAtColumn,
		},
		Relations: []Relation{productRelation},
	},
	TableSuggestedNeeds: {
		Name:     TableSuggestedNeeds,
		Singular: "suggested need",
		Columns: []Column{
			idColumn,
			{Name: "visit_id", Kind: KindInt},
			{Name: "product_id", Kind: KindInt},
			{Name: "quantity", Kind: KindFloat},
			{Name: "approval_status", Kind: KindText},
			createdAtColumn,
		},
		Relations: []Relation{productRelation},
	},
}

// LookupTable returns the schema of a known table.
func LookupTable(name string) (*Table, error) {
	t, ok := tables[name]
	if !ok {
		return nil, apperr.Validation("table", "unknown table %q", name)
	}
	return t, nil
}

// CheckQuery verifies that every filter and order column exists in t and
// converts filter values to the column kinds.
func CheckQuery(t *Table, q Query) (Query, error) {
	out := Query{Order: q.Order}
	for _, f := range q.Filters {
		col, ok := t.Column(f.Column)
		if !ok {
			return Query{}, apperr.Validation(f.Column, "unknown column in %s", t.Name)
		}
		v, err := Coerce(col, f.Value)
		if err != nil {
			return Query{}, err
		}
		out.Filters = append(out.Filters, Filter{Column: f.Column, Value: v})
	}
	for _, o := range q.Order {
		if _, ok := t.Column(o.Column); !ok {
			return Query{}, apperr.Validation(o.Column, "unknown column in %s", t.Name)
		}
	}
	return out, nil
}

// CheckFields verifies a write against t and converts values to the column
// kinds. Read-only columns are rejected.
func CheckFields(t *Table, fields Record) (Record, error) {
	if len(fields) == 0 {
		return nil, apperr.Validation("fields", "no fields to write to %s", t.Name)
	}
	out := make(Record, len(fields))
	for name, v := range fields {
		col, ok := t.Column(name)
		if !ok {
			return nil, apperr.Validation(name, "unknown column in %s", t.Name)
		}
		if col.ReadOnly {
			return nil, apperr.Validation(name, "column is read-only")
		}
		cv, err := Coerce(col, v)
		if err != nil {
			return nil, err
		}
		out[name] = cv
	}
	return out, nil
}

// Coerce converts an incoming value (Go value, JSON value or URL string) to
// the canonical Go type of col: int64, float64, string, bool, a
// YYYY-MM-DD string, or a UTC time.Time. Nil stays nil.
func Coerce(col Column, v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	bad := func() (any, error) {
		return nil, apperr.Validation(col.Name, "invalid value %v", v)
	}

	switch col.Kind {
	case KindInt:
		switch x := v.(type) {
		case int64:
			return x, nil
		case int:
			return int64(x), nil
		case int32:
			return int64(x), nil
		case float64:
			if x != math.Trunc(x) {
				return bad()
			}
			return int64(x), nil
		case json.Number:
			n, err := x.Int64()
			if err != nil {
				return bad()
			}
			return n, nil
		case string:
			n, err := strconv.ParseInt(x, 10, 64)
			if err != nil {
				return bad()
			}
			return n, nil
		}
	case KindFloat:
		var f float64
		switch x := v.(type) {
		case float64:
			f = x
		case float32:
			f = float64(x)
		case int64:
			f = float64(x)
		case int:
			f = float64(x)
		case json.Number:
			n, err := x.Float64()
			if err != nil {
				return bad()
			}
			f = n
		case string:
			n, err := strconv.ParseFloat(x, 64)
			if err != nil {
				return bad()
			}
			f = n
		default:
			return bad()
		}
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return bad()
		}
		return f, nil
	case KindText:
		switch x := v.(type) {
		case string:
			return x, nil
		case []byte:
			return string(x), nil
		}
	case KindBool:
		switch x := v.(type) {
		case bool:
			return x, nil
		case int64:
			return x != 0, nil
		case string:
			b, err := strconv.ParseBool(x)
			if err != nil {
				return bad()
			}
			return b, nil
		}
	case KindDate:
		switch x := v.(type) {
		case time.Time:
			return x.Format(DateLayout), nil
		case string:
			if _, err := time.Parse(DateLayout, x); err == nil {
				return x, nil
			}
			// Backends may hand back a date column as a full timestamp.
			t, err := parseTime(x)
			if err != nil {
				return bad()
			}
			return t.Format(DateLayout), nil
		}
	case KindTime:
		switch x := v.(type) {
		case time.Time:
			return x.UTC(), nil
		case string:
			t, err := parseTime(x)
			if err != nil {
				return bad()
			}
			return t.UTC(), nil
		}
	}
	return bad()
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
}

func parseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized time %q", s)
}
