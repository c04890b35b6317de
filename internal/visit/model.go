// Package visit provides the visit lifecycle, water readings and the
// per-visit product line items.
package visit

import (
	"fmt"
	"strings"
	"time"

	"github.com/evcraddock/pool-route/internal/client"
	"github.com/evcraddock/pool-route/internal/store"
)

// Status is where a visit is in its lifecycle. Pending is never stored:
// it means no visit row exists yet for the client and date.
type Status string

const (
	Pending    Status = "pending"
	InProgress Status = "in_progress"
	Completed  Status = "completed"
)

// Label returns a human-readable label for the status.
func (s Status) Label() string {
	switch s {
	case Pending:
		return "Pending"
	case InProgress:
		return "In progress"
	case Completed:
		return "Completed"
	default:
		return string(s)
	}
}

var statusAliases = map[string]Status{
	"pending":      Pending,
	"pendente":     Pending,
	"in_progress":  InProgress,
	"in progress":  InProgress,
	"em andamento": InProgress,
	"completed":    Completed,
	"concluida":    Completed,
	"concluída":    Completed,
}

// ParseStatus accepts the stored names, the display labels, and the
// Portuguese labels of rows written by the original app.
func ParseStatus(s string) (Status, error) {
	if st, ok := statusAliases[strings.ToLower(strings.TrimSpace(s))]; ok {
		return st, nil
	}
	return "", fmt.Errorf("unknown visit status %q", s)
}

// Visit is one service call at a client's pool on a date.
type Visit struct {
	ID        int64      `json:"id"`
	ClientID  int64      `json:"client_id"`
	VisitDate string     `json:"visit_date"` // YYYY-MM-DD
	StartTime *time.Time `json:"start_time,omitempty"`
	EndTime   *time.Time `json:"end_time,omitempty"`
	Status    Status     `json:"status"`
	Readings
	CreatedAt time.Time      `json:"created_at"`
	Client    *client.Client `json:"client,omitempty"`
}

// Readings are the water chemistry measurements of a visit. Nil means not
// measured.
type Readings struct {
	PH              *float64 `json:"ph,omitempty"`
	Chlorine        *float64 `json:"chlorine,omitempty"`
	Alkalinity      *float64 `json:"alkalinity,omitempty"`
	CalciumHardness *float64 `json:"calcium_hardness,omitempty"`
	CyanuricAcid    *float64 `json:"cyanuric_acid,omitempty"`
}

// ReadingFields lists the reading columns in display order.
var ReadingFields = []string{"ph", "chlorine", "alkalinity", "calcium_hardness", "cyanuric_acid"}

// Empty reports whether no reading is set.
func (r Readings) Empty() bool {
	return len(r.record()) == 0
}

// Get returns the reading for a column name.
func (r Readings) Get(field string) *float64 {
	switch field {
	case "ph":
		return r.PH
	case "chlorine":
		return r.Chlorine
	case "alkalinity":
		return r.Alkalinity
	case "calcium_hardness":
		return r.CalciumHardness
	case "cyanuric_acid":
		return r.CyanuricAcid
	}
	return nil
}

// Set stores v under a column name. Unknown names are an error.
func (r *Readings) Set(field string, v *float64) error {
	switch field {
	case "ph":
		r.PH = v
	case "chlorine":
		r.Chlorine = v
	case "alkalinity":
		r.Alkalinity = v
	case "calcium_hardness":
		r.CalciumHardness = v
	case "cyanuric_acid":
		r.CyanuricAcid = v
	default:
		return fmt.Errorf("unknown reading %q", field)
	}
	return nil
}

// record returns the set readings as store fields.
func (r Readings) record() store.Record {
	rec := store.Record{}
	for _, f := range ReadingFields {
		if v := r.Get(f); v != nil {
			rec[f] = *v
		}
	}
	return rec
}
