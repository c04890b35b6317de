package rest

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/evcraddock/pool-route/internal/apperr"
	"github.com/evcraddock/pool-route/internal/store"
)

// Reserved query parameters. Every other parameter is a column filter.
const (
	paramSelect = "select"
	paramOrder  = "order"
)

// EncodeQuery renders q and an optional relation expansion as PostgREST
// query parameters: col=eq.value, order=col.asc, select=*,rel:table(*).
func EncodeQuery(q store.Query, rel *store.Relation) url.Values {
	v := url.Values{}

	sel := "*"
	if rel != nil {
		sel = fmt.Sprintf("*,%s:%s(*)", rel.Name, rel.Table)
	}
	v.Set(paramSelect, sel)

	for _, f := range q.Filters {
		v.Add(f.Column, "eq."+formatValue(f.Value))
	}

	if len(q.Order) > 0 {
		parts := make([]string, len(q.Order))
		for i, o := range q.Order {
			dir := "asc"
			if o.Desc {
				dir = "desc"
			}
			parts[i] = o.Column + "." + dir
		}
		v.Set(paramOrder, strings.Join(parts, ","))
	}

	return v
}

// ParseQuery is the inverse of EncodeQuery. It returns the query and the
// name of the relation to expand (empty for none). Filter values stay
// strings; the store converts them to column kinds.
func ParseQuery(v url.Values) (store.Query, string, error) {
	var q store.Query

	expand, err := parseSelect(v.Get(paramSelect))
	if err != nil {
		return store.Query{}, "", err
	}

	if order := v.Get(paramOrder); order != "" {
		for _, part := range strings.Split(order, ",") {
			col, dir, _ := strings.Cut(strings.TrimSpace(part), ".")
			switch dir {
			case "", "asc":
				q = q.OrderBy(col)
			case "desc":
				q = q.OrderByDesc(col)
			default:
				return store.Query{}, "", apperr.Validation(paramOrder, "unsupported direction %q", dir)
			}
		}
	}

	for key, values := range v {
		if key == paramSelect || key == paramOrder {
			continue
		}
		for _, raw := range values {
			op, value, ok := strings.Cut(raw, ".")
			if !ok || op != "eq" {
				return store.Query{}, "", apperr.Validation(key, "unsupported filter %q (only eq is supported)", raw)
			}
			q = q.Where(key, value)
		}
	}

	return q, expand, nil
}

// parseSelect accepts "*", "*,rel:table(*)" and "*,rel(*)".
func parseSelect(sel string) (string, error) {
	if sel == "" || sel == "*" {
		return "", nil
	}
	rest, ok := strings.CutPrefix(sel, "*,")
	if !ok || !strings.HasSuffix(rest, "(*)") {
		return "", apperr.Validation(paramSelect, "unsupported select %q", sel)
	}
	rest = strings.TrimSuffix(rest, "(*)")
	name, _, _ := strings.Cut(rest, ":")
	if name == "" || strings.ContainsAny(name, ",()") {
		return "", apperr.Validation(paramSelect, "unsupported select %q", sel)
	}
	return name, nil
}

func formatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return "null"
	case string:
		return x
	case int64:
		return strconv.FormatInt(x, 10)
	case int:
		return strconv.Itoa(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	case time.Time:
		return x.UTC().Format(time.RFC3339Nano)
	default:
		return fmt.Sprint(x)
	}
}
