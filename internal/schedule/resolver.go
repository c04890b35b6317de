// Package schedule resolves which clients are due for a visit today.
package schedule

import (
	"context"
	"time"

	"github.com/evcraddock/pool-route/internal/client"
	"github.com/evcraddock/pool-route/internal/store"
	"github.com/evcraddock/pool-route/internal/visit"
)

// WeekdayCode returns the visit day code of t: Sunday is 1, Saturday is 7.
func WeekdayCode(t time.Time) int {
	return int(t.Weekday()) + 1
}

// ClientLister lists the clients visited on a weekday, ordered by name.
type ClientLister interface {
	ListByWeekday(ctx context.Context, w client.Weekday) ([]*client.Client, error)
}

// VisitFinder looks up a client's visit on a date, nil if there is none.
type VisitFinder interface {
	ForDate(ctx context.Context, clientID int64, date string) (*visit.Visit, error)
}

// Due is a client scheduled today with the state of today's visit.
type Due struct {
	Client  *client.Client `json:"client"`
	Status  visit.Status   `json:"status"`
	VisitID *int64         `json:"visit_id,omitempty"`
}

// Resolver builds the day's route.
type Resolver struct {
	Clients ClientLister
	Visits  VisitFinder
	// Now returns the current time in the route's time zone.
	Now func() time.Time
}

// NewResolver creates a resolver over st with days taken in loc.
func NewResolver(st store.Store, loc *time.Location) *Resolver {
	if loc == nil {
		loc = time.Local
	}
	return &Resolver{
		Clients: client.NewRepository(st),
		Visits:  visit.NewRepository(st),
		Now:     func() time.Time { return time.Now().In(loc) },
	}
}

// DueToday returns the clients whose visit day is today, ordered by name,
// each with today's visit status. Clients without a visit are Pending.
func (r *Resolver) DueToday(ctx context.Context) ([]Due, error) {
	now := r.Now()
	date := now.Format(store.DateLayout)

	clients, err := r.Clients.ListByWeekday(ctx, client.Weekday(WeekdayCode(now)))
	if err != nil {
		return nil, err
	}

	due := make([]Due, 0, len(clients))
	for _, c := range clients {
		v, err := r.Visits.ForDate(ctx, c.ID, date)
		if err != nil {
			return nil, err
		}
		d := Due{Client: c, Status: visit.Pending}
		if v != nil {
			id := v.ID
			d.Status = v.Status
			d.VisitID = &id
		}
		due = append(due, d)
	}
	return due, nil
}
