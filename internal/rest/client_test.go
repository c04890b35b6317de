package rest

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/evcraddock/pool-route/internal/apperr"
	"github.com/evcraddock/pool-route/internal/store"
)

func TestListSendsQueryAndAuth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/rest/v1/clients" {
			t.Errorf("path = %q, want /rest/v1/clients", r.URL.Path)
		}
		if r.Header.Get("apikey") != "anon-key" {
			t.Errorf("apikey = %q", r.Header.Get("apikey"))
		}
		if r.Header.Get("Authorization") != "Bearer anon-key" {
			t.Error("expected Bearer anon-key")
		}
		if got := r.URL.Query().Get("visit_weekday"); got != "eq.3" {
			t.Errorf("visit_weekday = %q, want eq.3", got)
		}
		if got := r.URL.Query().Get("order"); got != "full_name.asc" {
			t.Errorf("order = %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		writeJSON(t, w, []map[string]any{{
			"id": 1, "full_name": "Ana", "address": "Rua A", "phone": "555",
			"visit_weekday": 3, "notes": nil, "created_at": "2026-02-01T10:00:00+00:00",
		}})
	}))
	defer srv.Close()

	c := New(srv.URL, "anon-key")
	rows, err := c.List(context.Background(), store.TableClients, store.Eq("visit_weekday", 3).OrderBy("full_name"))
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("got %d rows, want 1", len(rows))
	}
	if rows[0]["id"] != int64(1) {
		t.Errorf("id = %v (%T), want int64 1", rows[0]["id"], rows[0]["id"])
	}
	if rows[0]["visit_weekday"] != int64(3) {
		t.Errorf("visit_weekday = %v", rows[0]["visit_weekday"])
	}
	created, ok := rows[0]["created_at"].(time.Time)
	if !ok || !created.Equal(time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)) {
		t.Errorf("created_at = %v", rows[0]["created_at"])
	}
}

func TestGetRelatedEmbedsProduct(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("select"); got != "*,product:products(*)" {
			t.Errorf("select = %q", got)
		}
		writeJSON(t, w, []map[string]any{{
			"id": 4, "visit_id": 2, "product_id": 9, "quantity": 1.5,
			"created_at": "2026-02-10T13:00:00Z",
			"product":    map[string]any{"id": 9, "name": "Chlorine", "unit": "kg", "is_default": true, "created_at": "2026-01-01T00:00:00Z"},
		}})
	}))
	defer srv.Close()

	c := New(srv.URL, "k")
	rows, err := c.GetRelated(context.Background(), store.TableAppliedProducts, store.Eq("visit_id", 2), "product")
	if err != nil {
		t.Fatalf("get related: %v", err)
	}
	p, ok := rows[0]["product"].(store.Record)
	if !ok {
		t.Fatalf("product = %T, want store.Record", rows[0]["product"])
	}
	if p["name"] != "Chlorine" || p["is_default"] != true {
		t.Errorf("product = %v", p)
	}
	if rows[0]["quantity"] != 1.5 {
		t.Errorf("quantity = %v", rows[0]["quantity"])
	}
}

func TestInsertReturnsRepresentation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s", r.Method)
		}
		if r.Header.Get("Prefer") != PreferRepresentation {
			t.Errorf("prefer = %q", r.Header.Get("Prefer"))
		}
		if r.Header.Get("Accept") != MediaTypeObject {
			t.Errorf("accept = %q", r.Header.Get("Accept"))
		}
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if body["name"] != "Chlorine" || body["unit"] != "kg" {
			t.Errorf("body = %v", body)
		}
		w.WriteHeader(http.StatusCreated)
		writeJSON(t, w, map[string]any{"id": 11, "name": "Chlorine", "unit": "kg", "is_default": false, "created_at": "2026-02-10T13:00:00Z"})
	}))
	defer srv.Close()

	c := New(srv.URL, "k")
	rec, err := c.Insert(context.Background(), store.TableProducts, store.Record{"name": "Chlorine", "unit": "kg"})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if rec["id"] != int64(11) {
		t.Errorf("id = %v", rec["id"])
	}
}

func TestUpdateTargetsID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPatch {
			t.Errorf("method = %s", r.Method)
		}
		if got := r.URL.Query().Get("id"); got != "eq.5" {
			t.Errorf("id filter = %q", got)
		}
		writeJSON(t, w, map[string]any{"id": 5, "client_id": 1, "visit_date": "2026-02-10", "status": "completed", "ph": 7.2})
	}))
	defer srv.Close()

	c := New(srv.URL, "k")
	rec, err := c.Update(context.Background(), store.TableVisits, 5, store.Record{"status": "completed"})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if rec["status"] != "completed" || rec["ph"] != 7.2 {
		t.Errorf("rec = %v", rec)
	}
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   any
		want   error
	}{
		{"no rows is not found", http.StatusNotAcceptable, APIError{Code: CodeNoRows, Message: "0 rows"}, apperr.ErrNotFound},
		{"conflict status", http.StatusConflict, APIError{Code: CodeUniqueViolation, Message: "duplicate key"}, apperr.ErrConflict},
		{"server error", http.StatusInternalServerError, APIError{Message: "boom"}, apperr.ErrDataSource},
		{"unauthorized", http.StatusUnauthorized, "Invalid API key", apperr.ErrDataSource},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				writeJSON(t, w, tt.body)
			}))
			defer srv.Close()

			c := New(srv.URL, "k")
			_, err := c.Update(context.Background(), store.TableVisits, 5, store.Record{"status": "completed"})
			if !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestUnreachableServer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	c := New(url, "k", WithTimeout(time.Second))
	_, err := c.List(context.Background(), store.TableClients, store.Query{})
	if !errors.Is(err, apperr.ErrDataSource) {
		t.Fatalf("err = %v, want data source", err)
	}
}

func TestValidationNeverReachesServer(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	c := New(srv.URL, "k")
	ctx := context.Background()
	if _, err := c.Insert(ctx, store.TableVisits, store.Record{"bogus": 1}); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("insert err = %v, want validation", err)
	}
	if _, err := c.List(ctx, "secrets", store.Query{}); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("list err = %v, want validation", err)
	}
	if called {
		t.Error("server should not be called for invalid input")
	}
}

func TestMalformedRowIsDataSource(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, []map[string]any{{"id": "not-a-number"}})
	}))
	defer srv.Close()

	c := New(srv.URL, "k")
	_, err := c.List(context.Background(), store.TableClients, store.Query{})
	if !errors.Is(err, apperr.ErrDataSource) {
		t.Fatalf("err = %v, want data source", err)
	}
	if errors.Is(err, apperr.ErrValidation) {
		t.Error("malformed server rows should not be reported as validation")
	}
}

func TestPing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != BasePath {
			t.Errorf("path = %q", r.URL.Path)
		}
		writeJSON(t, w, map[string]any{})
	}))
	defer srv.Close()

	if err := New(srv.URL+"/", "k").Ping(context.Background()); err != nil {
		t.Fatalf("ping: %v", err)
	}
}

func writeJSON(t *testing.T, w http.ResponseWriter, v any) {
	t.Helper()
	if err := json.NewEncoder(w).Encode(v); err != nil {
		t.Errorf("encode: %v", err)
	}
}
