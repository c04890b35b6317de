package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/evcraddock/pool-route/internal/apperr"
	"github.com/evcraddock/pool-route/internal/db"
)

func TestInsertReturnsGeneratedFields(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	rec, err := s.Insert(ctx, TableClients, Record{
		"full_name":     "Ana Souza",
		"address":       "Rua A, 10",
		"phone":         "555-0101",
		"visit_weekday": 3,
		"notes":         "gate code 1234",
	})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}

	if id, ok := rec["id"].(int64); !ok || id == 0 {
		t.Errorf("id = %v, want non-zero int64", rec["id"])
	}
	if _, ok := rec["created_at"].(time.Time); !ok {
		t.Errorf("created_at = %T, want time.Time", rec["created_at"])
	}
	if rec["visit_weekday"] != int64(3) {
		t.Errorf("visit_weekday = %v (%T), want 3", rec["visit_weekday"], rec["visit_weekday"])
	}
	if rec["notes"] != "gate code 1234" {
		t.Errorf("notes = %v", rec["notes"])
	}
}

func TestInsertThenListRoundTrip(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	start := time.Date(2026, 2, 10, 13, 4, 5, 0, time.UTC)
	clientID := insertClient(t, s, "Ana", 3)
	inserted, err := s.Insert(ctx, TableVisits, Record{
		"client_id":  clientID,
		"visit_date": "2026-02-10",
		"start_time": start,
		"status":     "in_progress",
		"ph":         7.2,
	})
	if err != nil {
		t.Fatalf("insert visit: %v", err)
	}

	rows, err := s.List(ctx, TableVisits, Eq("client_id", clientID).Where("visit_date", "2026-02-10"))
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("got %d rows, want 1", len(rows))
	}

	got := rows[0]
	for _, col := range []string{"id", "client_id", "visit_date", "status", "ph", "chlorine", "end_time"} {
		if got[col] != inserted[col] {
			t.Errorf("%s = %v, want %v", col, got[col], inserted[col])
		}
	}
	if st, ok := got["start_time"].(time.Time); !ok || !st.Equal(start) {
		t.Errorf("start_time = %v, want %v", got["start_time"], start)
	}
	if got["visit_date"] != "2026-02-10" {
		t.Errorf("visit_date = %v", got["visit_date"])
	}
	if got["chlorine"] != nil {
		t.Errorf("chlorine = %v, want nil", got["chlorine"])
	}
}

func TestListOrder(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	for _, name := range []string{"Carla", "Ana", "Bruno"} {
		insertClient(t, s, name, 2)
	}

	rows, err := s.List(ctx, TableClients, Query{}.OrderBy("full_name"))
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	want := []string{"Ana", "Bruno", "Carla"}
	for i, r := range rows {
		if r["full_name"] != want[i] {
			t.Errorf("row %d = %v, want %s", i, r["full_name"], want[i])
		}
	}

	rows, err = s.List(ctx, TableClients, Query{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	insertion := []string{"Carla", "Ana", "Bruno"}
	for i, r := range rows {
		if r["full_name"] != insertion[i] {
			t.Errorf("insertion order row %d = %v, want %s", i, r["full_name"], insertion[i])
		}
	}

	rows, err = s.List(ctx, TableClients, Query{}.OrderByDesc("full_name"))
	if err != nil {
		t.Fatalf("list desc: %v", err)
	}
	if rows[0]["full_name"] != "Carla" {
		t.Errorf("first desc = %v, want Carla", rows[0]["full_name"])
	}
}

func TestListFilter(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	insertClient(t, s, "Ana", 3)
	insertClient(t, s, "Bruno", 4)
	insertClient(t, s, "Carla", 3)

	rows, err := s.List(ctx, TableClients, Eq("visit_weekday", 3))
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}
	for _, r := range rows {
		if r["visit_weekday"] != int64(3) {
			t.Errorf("weekday = %v, want 3", r["visit_weekday"])
		}
	}
}

func TestListEmpty(t *testing.T) {
	s := testStore(t)

	rows, err := s.List(context.Background(), TableVisits, Eq("client_id", 42))
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if rows == nil || len(rows) != 0 {
		t.Errorf("rows = %v, want empty non-nil slice", rows)
	}
}

func TestUnknownTableAndColumn(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	if _, err := s.List(ctx, "users", Query{}); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("unknown table err = %v, want validation", err)
	}
	if _, err := s.List(ctx, TableClients, Eq("password", "x")); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("unknown filter column err = %v, want validation", err)
	}
	if _, err := s.List(ctx, TableClients, Query{}.OrderBy("1; DROP TABLE clients")); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("unknown order column err = %v, want validation", err)
	}
	if _, err := s.Insert(ctx, TableClients, Record{"id": 5, "full_name": "x", "visit_weekday": 1}); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("read-only column err = %v, want validation", err)
	}
	if _, err := s.Insert(ctx, TableClients, Record{}); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("empty insert err = %v, want validation", err)
	}
}

func TestUpdatePartial(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	clientID := insertClient(t, s, "Ana", 3)
	v, err := s.Insert(ctx, TableVisits, Record{"client_id": clientID, "visit_date": "2026-02-10", "status": "in_progress"})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	id := v["id"].(int64)

	if _, err := s.Update(ctx, TableVisits, id, Record{"ph": 7.4}); err != nil {
		t.Fatalf("update ph: %v", err)
	}
	got, err := s.Update(ctx, TableVisits, id, Record{"chlorine": 1.5})
	if err != nil {
		t.Fatalf("update chlorine: %v", err)
	}

	if got["ph"] != 7.4 {
		t.Errorf("ph = %v, want 7.4", got["ph"])
	}
	if got["chlorine"] != 1.5 {
		t.Errorf("chlorine = %v, want 1.5", got["chlorine"])
	}
	if got["status"] != "in_progress" {
		t.Errorf("status = %v", got["status"])
	}
}

func TestUpdateNotFound(t *testing.T) {
	s := testStore(t)

	_, err := s.Update(context.Background(), TableVisits, 9999, Record{"status": "completed"})
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("err = %v, want not found", err)
	}
}

func TestInsertConflict(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	clientID := insertClient(t, s, "Ana", 3)
	fields := Record{"client_id": clientID, "visit_date": "2026-02-10", "status": "in_progress"}
	if _, err := s.Insert(ctx, TableVisits, fields); err != nil {
		t.Fatalf("first insert: %v", err)
	}

	_, err := s.Insert(ctx, TableVisits, fields)
	if !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("err = %v, want conflict", err)
	}
	if !errors.Is(err, apperr.ErrDataSource) {
		t.Error("conflict should also be a data-source failure")
	}
}

func TestInsertConstraintIsDataSource(t *testing.T) {
	s := testStore(t)

	_, err := s.Insert(context.Background(), TableVisits, Record{"client_id": 9999, "visit_date": "2026-02-10"})
	if !errors.Is(err, apperr.ErrDataSource) {
		t.Fatalf("err = %v, want data source", err)
	}
	if errors.Is(err, apperr.ErrConflict) {
		t.Error("foreign key failure should not be a conflict")
	}
}

func TestGetRelated(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	clientID := insertClient(t, s, "Ana", 3)
	visit, err := s.Insert(ctx, TableVisits, Record{"client_id": clientID, "visit_date": "2026-02-10", "status": "in_progress"})
	if err != nil {
		t.Fatalf("insert visit: %v", err)
	}
	visitID := visit["id"].(int64)

	chlorine := insertProduct(t, s, "Chlorine", "kg")
	algicide := insertProduct(t, s, "Algicide", "L")

	for _, item := range []struct {
		product int64
		qty     float64
	}{{chlorine, 2}, {algicide, 0.5}, {chlorine, 1}} {
		if _, err := s.Insert(ctx, TableAppliedProducts, Record{"visit_id": visitID, "product_id": item.product, "quantity": item.qty}); err != nil {
			t.Fatalf("insert applied: %v", err)
		}
	}

	rows, err := s.GetRelated(ctx, TableAppliedProducts, Eq("visit_id", visitID), "product")
	if err != nil {
		t.Fatalf("get related: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("got %d rows, want 3", len(rows))
	}

	wantNames := []string{"Chlorine", "Algicide", "Chlorine"}
	for i, r := range rows {
		p, ok := r["product"].(Record)
		if !ok {
			t.Fatalf("row %d product = %T, want Record", i, r["product"])
		}
		if p["name"] != wantNames[i] {
			t.Errorf("row %d product name = %v, want %s", i, p["name"], wantNames[i])
		}
	}

	if _, err := s.GetRelated(ctx, TableAppliedProducts, Eq("visit_id", visitID), "client"); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("unknown relation err = %v, want validation", err)
	}
}

func TestBoolColumn(t *testing.T) {
	s := testStore(t)

	rec, err := s.Insert(context.Background(), TableProducts, Record{"name": "Chlorine", "unit": "kg", "is_default": true})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if rec["is_default"] != true {
		t.Errorf("is_default = %v (%T), want true", rec["is_default"], rec["is_default"])
	}
}

func TestCanceledContext(t *testing.T) {
	s := testStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.List(ctx, TableClients, Query{})
	if !errors.Is(err, apperr.ErrDataSource) {
		t.Fatalf("err = %v, want data source", err)
	}
}

func TestPing(t *testing.T) {
	s := testStore(t)
	if err := s.Ping(context.Background()); err != nil {
		t.Fatalf("ping: %v", err)
	}
}

func TestDecode(t *testing.T) {
	var dst struct {
		ID        int64     `json:"id"`
		Name      string    `json:"name"`
		CreatedAt time.Time `json:"created_at"`
	}
	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	if err := Decode(Record{"id": int64(4), "name": "Chlorine", "created_at": created}, &dst); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if dst.ID != 4 || dst.Name != "Chlorine" || !dst.CreatedAt.Equal(created) {
		t.Errorf("decoded = %+v", dst)
	}
}

func TestCoerceDate(t *testing.T) {
	col := Column{Name: "visit_date", Kind: KindDate}
	tests := []struct {
		in      any
		want    any
		wantErr bool
	}{
		{"2026-02-10", "2026-02-10", false},
		{"2026-02-10T00:00:00Z", "2026-02-10", false},
		{"2026-02-10 13:45:00", "2026-02-10", false},
		{"2026-02-10T23:30:00-03:00", "2026-02-10", false},
		{time.Date(2026, 2, 10, 8, 0, 0, 0, time.UTC), "2026-02-10", false},
		{"2026-02-10garbage", nil, true},
		{"2026-02-10T", nil, true},
		{"2026-13-01", nil, true},
		{"", nil, true},
		{int64(20260210), nil, true},
	}

	for _, tt := range tests {
		got, err := Coerce(col, tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("Coerce(%v) err = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if err != nil && !errors.Is(err, apperr.ErrValidation) {
			t.Errorf("Coerce(%v) err = %v, want validation", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("Coerce(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func testStore(t *testing.T) *SQLStore {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	d, err := db.Open(path)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() {
		if err := d.Close(); err != nil {
			t.Errorf("close db: %v", err)
		}
	})
	return NewSQLStore(d, SQLite)
}

func insertClient(t *testing.T, s Store, name string, weekday int) int64 {
	t.Helper()
	rec, err := s.Insert(context.Background(), TableClients, Record{
		"full_name":     name,
		"address":       "Rua A",
		"phone":         "555",
		"visit_weekday": weekday,
	})
	if err != nil {
		t.Fatalf("insert client: %v", err)
	}
	return rec["id"].(int64)
}

func insertProduct(t *testing.T, s Store, name, unit string) int64 {
	t.Helper()
	rec, err := s.Insert(context.Background(), TableProducts, Record{"name": name, "unit": unit})
	if err != nil {
		t.Fatalf("insert product: %v", err)
	}
	return rec["id"].(int64)
}
