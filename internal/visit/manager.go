package visit

import (
	"context"
	"errors"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/evcraddock/pool-route/internal/apperr"
	"github.com/evcraddock/pool-route/internal/client"
	"github.com/evcraddock/pool-route/internal/product"
	"github.com/evcraddock/pool-route/internal/store"
)

// ErrVisitCompleted is returned when changing a visit that is already
// completed. It matches apperr.ErrValidation.
var ErrVisitCompleted = &apperr.ValidationError{Field: "status", Message: "visit is already completed"}

// Manager runs the visit lifecycle: open, record readings and line items,
// close. Every operation validates its input before touching the store.
type Manager struct {
	visits   *Repository
	clients  *client.Repository
	products *product.Repository
	loc      *time.Location
	now      func() time.Time
}

// Option configures a Manager.
type Option func(*Manager)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// NewManager creates a manager over st. Visit dates are taken in loc.
func NewManager(st store.Store, loc *time.Location, opts ...Option) *Manager {
	if loc == nil {
		loc = time.Local
	}
	m := &Manager{
		visits:   NewRepository(st),
		clients:  client.NewRepository(st),
		products: product.NewRepository(st),
		loc:      loc,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Visits exposes the underlying repository for read-only lookups.
func (m *Manager) Visits() *Repository {
	return m.visits
}

// Today returns the current date in the manager's location.
func (m *Manager) Today() string {
	return m.now().In(m.loc).Format(store.DateLayout)
}

// Open starts today's visit for a client. A second open on the same day
// fails with apperr.ErrConflict.
func (m *Manager) Open(ctx context.Context, clientID int64) (*Visit, error) {
	if _, err := m.clients.Get(ctx, clientID); err != nil {
		return nil, err
	}

	now := m.now()
	return m.visits.insert(ctx, store.Record{
		"client_id":  clientID,
		"visit_date": now.In(m.loc).Format(store.DateLayout),
		"start_time": now,
		"status":     string(InProgress),
	})
}

// OpenOrResume opens today's visit, or returns the existing one if it was
// already opened. created reports whether a new visit was inserted.
func (m *Manager) OpenOrResume(ctx context.Context, clientID int64) (v *Visit, created bool, err error) {
	v, err = m.Open(ctx, clientID)
	if err == nil {
		return v, true, nil
	}
	if !errors.Is(err, apperr.ErrConflict) {
		return nil, false, err
	}

	existing, lookupErr := m.visits.ForDate(ctx, clientID, m.Today())
	if lookupErr != nil {
		return nil, false, lookupErr
	}
	if existing == nil {
		return nil, false, err
	}
	return existing, false, nil
}

// RecordMeasurements writes the set readings to an in-progress visit.
// Readings not set are left unchanged.
func (m *Manager) RecordMeasurements(ctx context.Context, visitID int64, r Readings) (*Visit, error) {
	fields := r.record()
	if len(fields) == 0 {
		return nil, apperr.Validation("readings", "at least one reading is required")
	}
	for name, v := range fields {
		if err := checkReading(name, v.(float64)); err != nil {
			return nil, err
		}
	}

	if _, err := m.inProgress(ctx, visitID); err != nil {
		return nil, err
	}
	return m.visits.update(ctx, visitID, fields)
}

// Close completes a visit. The end time never precedes the start time.
func (m *Manager) Close(ctx context.Context, visitID int64) (*Visit, error) {
	v, err := m.inProgress(ctx, visitID)
	if err != nil {
		return nil, err
	}

	end := m.now()
	if v.StartTime != nil && end.Before(*v.StartTime) {
		end = *v.StartTime
	}
	return m.visits.update(ctx, visitID, store.Record{
		"end_time": end,
		"status":   string(Completed),
	})
}

// AddAppliedProduct records a product used during the visit and returns
// the visit's applied products.
func (m *Manager) AddAppliedProduct(ctx context.Context, visitID, productID int64, quantity float64) ([]*AppliedProduct, error) {
	if err := m.checkLineItem(ctx, visitID, productID, quantity); err != nil {
		return nil, err
	}

	if err := m.visits.addLineItem(ctx, store.TableAppliedProducts, store.Record{
		"visit_id":   visitID,
		"product_id": productID,
		"quantity":   quantity,
	}); err != nil {
		return nil, err
	}
	return m.visits.AppliedProducts(ctx, visitID)
}

// AddSuggestedNeed records a product the client should buy, awaiting
// their approval, and returns the visit's suggested needs.
func (m *Manager) AddSuggestedNeed(ctx context.Context, visitID, productID int64, quantity float64) ([]*SuggestedNeed, error) {
	if err := m.checkLineItem(ctx, visitID, productID, quantity); err != nil {
		return nil, err
	}

	if err := m.visits.addLineItem(ctx, store.TableSuggestedNeeds, store.Record{
		"visit_id":        visitID,
		"product_id":      productID,
		"quantity":        quantity,
		"approval_status": string(AwaitingApproval),
	}); err != nil {
		return nil, err
	}
	return m.visits.SuggestedNeeds(ctx, visitID)
}

// AppliedProducts lists the products applied during a visit.
func (m *Manager) AppliedProducts(ctx context.Context, visitID int64) ([]*AppliedProduct, error) {
	return m.visits.AppliedProducts(ctx, visitID)
}

// SuggestedNeeds lists the needs suggested during a visit.
func (m *Manager) SuggestedNeeds(ctx context.Context, visitID int64) ([]*SuggestedNeed, error) {
	return m.visits.SuggestedNeeds(ctx, visitID)
}

// Detail is a client with today's visit and its line items.
type Detail struct {
	Client  *client.Client    `json:"client"`
	Date    string            `json:"date"`
	Visit   *Visit            `json:"visit"`
	Applied []*AppliedProduct `json:"applied_products"`
	Needs   []*SuggestedNeed  `json:"suggested_needs"`
}

// Status returns the visit status for the day, Pending if not yet opened.
func (d *Detail) Status() Status {
	if d.Visit == nil {
		return Pending
	}
	return d.Visit.Status
}

// Detail loads a client's visit for today. Visit is nil until opened.
func (m *Manager) Detail(ctx context.Context, clientID int64) (*Detail, error) {
	c, err := m.clients.Get(ctx, clientID)
	if err != nil {
		return nil, err
	}

	d := &Detail{Client: c, Date: m.Today()}
	d.Visit, err = m.visits.ForDate(ctx, clientID, d.Date)
	if err != nil {
		return nil, err
	}
	if d.Visit == nil {
		return d, nil
	}

	if d.Applied, err = m.visits.AppliedProducts(ctx, d.Visit.ID); err != nil {
		return nil, err
	}
	if d.Needs, err = m.visits.SuggestedNeeds(ctx, d.Visit.ID); err != nil {
		return nil, err
	}
	return d, nil
}

// History returns a client's visits, newest first.
func (m *Manager) History(ctx context.Context, clientID int64) ([]*Visit, error) {
	if _, err := m.clients.Get(ctx, clientID); err != nil {
		return nil, err
	}
	return m.visits.ListByClient(ctx, clientID)
}

// inProgress loads a visit and checks that it can still be changed.
func (m *Manager) inProgress(ctx context.Context, visitID int64) (*Visit, error) {
	v, err := m.visits.Get(ctx, visitID)
	if err != nil {
		return nil, err
	}
	switch v.Status {
	case InProgress:
		return v, nil
	case Completed:
		return nil, ErrVisitCompleted
	default:
		return nil, apperr.Validation("status", "visit %d is %s, not in progress", visitID, v.Status.Label())
	}
}

// checkLineItem validates a line item before it is written: quantity,
// then product, then visit.
func (m *Manager) checkLineItem(ctx context.Context, visitID, productID int64, quantity float64) error {
	if math.IsNaN(quantity) || math.IsInf(quantity, 0) || quantity <= 0 {
		return apperr.Validation("quantity", "must be a positive number")
	}
	if productID <= 0 {
		return apperr.Validation("product_id", "a product is required")
	}

	if _, err := m.products.Get(ctx, productID); err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return apperr.Validation("product_id", "unknown product %d", productID)
		}
		return err
	}

	_, err := m.inProgress(ctx, visitID)
	return err
}

func checkReading(field string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return apperr.Validation(field, "must be a finite number")
	}
	if v < 0 {
		return apperr.Validation(field, "cannot be negative")
	}
	return nil
}

// ParseReading converts user input for a reading. Empty input means the
// reading was not taken and yields nil. A comma is accepted as the decimal
// separator.
func ParseReading(field, raw string) (*float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	v, err := parseDecimal(field, raw)
	if err != nil {
		return nil, err
	}
	if err := checkReading(field, v); err != nil {
		return nil, err
	}
	return &v, nil
}

// ParseQuantity converts user input for a line-item quantity, accepting a
// comma as the decimal separator like ParseReading.
func ParseQuantity(raw string) (float64, error) {
	v, err := parseDecimal("quantity", strings.TrimSpace(raw))
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
		return 0, apperr.Validation("quantity", "must be a positive number")
	}
	return v, nil
}

func parseDecimal(field, raw string) (float64, error) {
	s := raw
	if !strings.Contains(s, ".") {
		s = strings.Replace(s, ",", ".", 1)
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, apperr.Validation(field, "%q is not a number", raw)
	}
	return v, nil
}
