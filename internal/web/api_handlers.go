package web

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/evcraddock/pool-route/internal/apperr"
	"github.com/evcraddock/pool-route/internal/rest"
	"github.com/evcraddock/pool-route/internal/store"
)

// Error codes beyond the ones the client interprets.
const (
	codeBadRequest   = "PGRST100"
	codeUnknownTable = "PGRST205"
)

const maxBodyBytes = 1 << 20

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, data any, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Warn("encoding response", "error", err)
	}
}

// writeStoreError maps an apperr kind to an HTTP status and error body.
func writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		writeJSON(w, rest.APIError{
			Code:    rest.CodeNoRows,
			Message: "JSON object requested, multiple (or no) rows returned",
			Details: err.Error(),
		}, http.StatusNotAcceptable)
	case errors.Is(err, apperr.ErrValidation):
		writeJSON(w, rest.APIError{Code: codeBadRequest, Message: err.Error()}, http.StatusBadRequest)
	case errors.Is(err, apperr.ErrConflict):
		writeJSON(w, rest.APIError{
			Code:    rest.CodeUniqueViolation,
			Message: "duplicate key value violates unique constraint",
		}, http.StatusConflict)
	default:
		slog.Error("store request failed", "error", err)
		writeJSON(w, rest.APIError{Message: "data source error"}, http.StatusInternalServerError)
	}
}

// handleTables routes /rest/v1/{table} requests.
func (s *Server) handleTables(w http.ResponseWriter, r *http.Request) {
	name := strings.Trim(strings.TrimPrefix(r.URL.Path, rest.BasePath), "/")

	// /rest/v1/ answers pings
	if name == "" {
		if r.Method != http.MethodGet {
			writeJSON(w, rest.APIError{Message: "method not allowed"}, http.StatusMethodNotAllowed)
			return
		}
		writeJSON(w, map[string]any{}, http.StatusOK)
		return
	}

	if _, err := store.LookupTable(name); err != nil {
		writeJSON(w, rest.APIError{
			Code:    codeUnknownTable,
			Message: fmt.Sprintf("Could not find the table %q", name),
		}, http.StatusNotFound)
		return
	}

	switch r.Method {
	case http.MethodGet:
		s.apiList(w, r, name)
	case http.MethodPost:
		s.apiInsert(w, r, name)
	case http.MethodPatch:
		s.apiUpdate(w, r, name)
	default:
		writeJSON(w, rest.APIError{Message: "method not allowed"}, http.StatusMethodNotAllowed)
	}
}

func (s *Server) apiList(w http.ResponseWriter, r *http.Request, table string) {
	q, expand, err := rest.ParseQuery(r.URL.Query())
	if err != nil {
		writeStoreError(w, err)
		return
	}

	var rows []store.Record
	if expand == "" {
		rows, err = s.store.List(r.Context(), table, q)
	} else {
		rows, err = s.store.GetRelated(r.Context(), table, q, expand)
	}
	if err != nil {
		writeStoreError(w, err)
		return
	}

	if wantsObject(r) {
		if len(rows) != 1 {
			writeJSON(w, rest.APIError{
				Code:    rest.CodeNoRows,
				Message: "JSON object requested, multiple (or no) rows returned",
				Details: fmt.Sprintf("The result contains %d rows", len(rows)),
			}, http.StatusNotAcceptable)
			return
		}
		writeJSON(w, rows[0], http.StatusOK)
		return
	}

	if rows == nil {
		rows = []store.Record{}
	}
	writeJSON(w, rows, http.StatusOK)
}

func (s *Server) apiInsert(w http.ResponseWriter, r *http.Request, table string) {
	fields, err := decodeRow(r)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	rec, err := s.store.Insert(r.Context(), table, fields)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeRepresentation(w, r, rec, http.StatusCreated)
}

func (s *Server) apiUpdate(w http.ResponseWriter, r *http.Request, table string) {
	id, err := idFilter(r)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	fields, err := decodeRow(r)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	rec, err := s.store.Update(r.Context(), table, id, fields)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeRepresentation(w, r, rec, http.StatusOK)
}

// writeRepresentation writes a written row when the caller asked for it.
func writeRepresentation(w http.ResponseWriter, r *http.Request, rec store.Record, code int) {
	if !strings.Contains(r.Header.Get("Prefer"), rest.PreferRepresentation) {
		w.WriteHeader(code)
		return
	}
	if wantsObject(r) {
		writeJSON(w, rec, code)
		return
	}
	writeJSON(w, []store.Record{rec}, code)
}

func wantsObject(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), rest.MediaTypeObject)
}

// idFilter extracts the row id from an id=eq.N filter, the only filter
// accepted on writes.
func idFilter(r *http.Request) (int64, error) {
	values := r.URL.Query()
	if len(values) != 1 || len(values["id"]) != 1 {
		return 0, apperr.Validation("id", "updates require exactly one id=eq filter")
	}
	raw, ok := strings.CutPrefix(values.Get("id"), "eq.")
	if !ok {
		return 0, apperr.Validation("id", "unsupported filter %q", values.Get("id"))
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, apperr.Validation("id", "invalid id %q", raw)
	}
	return id, nil
}

// decodeRow reads a JSON object, or an array holding exactly one object.
func decodeRow(r *http.Request) (store.Record, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	if err != nil {
		return nil, apperr.Validation("body", "reading body: %v", err)
	}
	if len(body) > maxBodyBytes {
		return nil, apperr.Validation("body", "request body too large")
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, apperr.Validation("body", "invalid JSON: %v", err)
	}

	switch v := raw.(type) {
	case map[string]any:
		return store.Record(v), nil
	case []any:
		if len(v) == 1 {
			if obj, ok := v[0].(map[string]any); ok {
				return store.Record(obj), nil
			}
		}
		return nil, apperr.Validation("body", "expected a single row")
	default:
		return nil, apperr.Validation("body", "expected a JSON object")
	}
}
