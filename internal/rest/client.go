// Package rest provides a store.Store backed by a PostgREST-compatible HTTP
// API, such as a hosted Supabase project or the local `pool serve` server.
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/evcraddock/pool-route/internal/apperr"
	"github.com/evcraddock/pool-route/internal/store"
)

// Wire constants shared with the server.
const (
	// BasePath prefixes every table endpoint.
	BasePath = "/rest/v1/"
	// MediaTypeObject asks for a single JSON object instead of an array.
	MediaTypeObject = "application/vnd.pgrst.object+json"
	// PreferRepresentation asks writes to return the written row.
	PreferRepresentation = "return=representation"
	// CodeNoRows is the error code for a single-object request matching no rows.
	CodeNoRows = "PGRST116"
	// CodeUniqueViolation is the SQLSTATE of a uniqueness conflict.
	CodeUniqueViolation = "23505"
)

const defaultTimeout = 30 * time.Second

// APIError is the JSON error body returned by the API.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
	Hint    string `json:"hint,omitempty"`
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return e.Message
	}
	return fmt.Sprintf("%s (%s)", e.Message, e.Code)
}

// Client is an HTTP client for the PostgREST table API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

var (
	_ store.Store  = (*Client)(nil)
	_ store.Pinger = (*Client)(nil)
)

// Option configures a Client.
type Option func(*Client)

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// New creates a new API client. apiKey is sent both as the apikey header
// and as a bearer token.
func New(baseURL, apiKey string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Ping checks that the API answers with the configured key.
func (c *Client) Ping(ctx context.Context) error {
	req, err := c.newRequest(ctx, http.MethodGet, BasePath, nil)
	if err != nil {
		return apperr.DataSource("pinging server", err)
	}
	return c.do(req, "pinging server", nil)
}

// List returns the rows of table matching q.
func (c *Client) List(ctx context.Context, table string, q store.Query) ([]store.Record, error) {
	return c.list(ctx, table, q, "")
}

// GetRelated lists rows with the named relation embedded.
func (c *Client) GetRelated(ctx context.Context, table string, q store.Query, expand string) ([]store.Record, error) {
	return c.list(ctx, table, q, expand)
}

func (c *Client) list(ctx context.Context, table string, q store.Query, expand string) ([]store.Record, error) {
	t, err := store.LookupTable(table)
	if err != nil {
		return nil, err
	}
	q, err = store.CheckQuery(t, q)
	if err != nil {
		return nil, err
	}

	var rel *store.Relation
	if expand != "" {
		r, ok := t.Relation(expand)
		if !ok {
			return nil, apperr.Validation("select", "unknown relation %q on %s", expand, t.Name)
		}
		rel = &r
	}

	op := "listing " + t.Name
	path := BasePath + t.Name + "?" + EncodeQuery(q, rel).Encode()
	req, err := c.newRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, apperr.DataSource(op, err)
	}

	var raw []map[string]any
	if err := c.do(req, op, &raw); err != nil {
		return nil, err
	}

	rows := make([]store.Record, 0, len(raw))
	for _, r := range raw {
		rec, err := toRecord(t, r, rel)
		if err != nil {
			return nil, apperr.DataSource(op, err)
		}
		rows = append(rows, rec)
	}
	return rows, nil
}

// Insert posts a new row and returns the persisted representation.
func (c *Client) Insert(ctx context.Context, table string, fields store.Record) (store.Record, error) {
	t, err := store.LookupTable(table)
	if err != nil {
		return nil, err
	}
	fields, err = store.CheckFields(t, fields)
	if err != nil {
		return nil, err
	}

	op := "inserting " + t.Singular
	req, err := c.newRequest(ctx, http.MethodPost, BasePath+t.Name, fields)
	if err != nil {
		return nil, apperr.DataSource(op, err)
	}

	return c.doObject(req, t, op)
}

// Update patches the row with id and returns the updated representation.
func (c *Client) Update(ctx context.Context, table string, id int64, fields store.Record) (store.Record, error) {
	t, err := store.LookupTable(table)
	if err != nil {
		return nil, err
	}
	fields, err = store.CheckFields(t, fields)
	if err != nil {
		return nil, err
	}

	op := "updating " + t.Singular
	path := fmt.Sprintf("%s%s?id=eq.%d", BasePath, t.Name, id)
	req, err := c.newRequest(ctx, http.MethodPatch, path, fields)
	if err != nil {
		return nil, apperr.DataSource(op, err)
	}

	rec, err := c.doObject(req, t, op)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Code == CodeNoRows {
			return nil, apperr.NotFound(t.Singular, id)
		}
		return nil, err
	}
	return rec, nil
}

// doObject performs a write that returns a single row.
func (c *Client) doObject(req *http.Request, t *store.Table, op string) (store.Record, error) {
	req.Header.Set("Prefer", PreferRepresentation)
	req.Header.Set("Accept", MediaTypeObject)

	var raw map[string]any
	if err := c.do(req, op, &raw); err != nil {
		return nil, err
	}
	rec, err := toRecord(t, raw, nil)
	if err != nil {
		return nil, apperr.DataSource(op, err)
	}
	return rec, nil
}

// newRequest builds a request with an optional JSON body.
func (c *Client) newRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshaling request: %w", err)
		}
		r = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, r)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

// do executes an HTTP request with auth headers and maps failures to
// apperr kinds.
func (c *Client) do(req *http.Request, op string, result any) error {
	if c.apiKey != "" {
		req.Header.Set("apikey", c.apiKey)
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return apperr.DataSource(op, fmt.Errorf("request failed: %w", err))
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			slog.Warn("closing response body", "error", cerr)
		}
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return apperr.DataSource(op, fmt.Errorf("reading response: %w", err))
	}

	if resp.StatusCode >= 400 {
		apiErr := &APIError{}
		if json.Unmarshal(respBody, apiErr) != nil || apiErr.Message == "" {
			apiErr = &APIError{Message: "server error: " + http.StatusText(resp.StatusCode)}
		}
		if resp.StatusCode == http.StatusConflict || apiErr.Code == CodeUniqueViolation {
			return apperr.Conflict(op, apiErr)
		}
		return apperr.DataSource(op, apiErr)
	}

	if result != nil && len(respBody) > 0 {
		dec := json.NewDecoder(bytes.NewReader(respBody))
		dec.UseNumber()
		if err := dec.Decode(result); err != nil {
			return apperr.DataSource(op, fmt.Errorf("decoding response: %w", err))
		}
	}

	return nil
}

// toRecord converts a decoded JSON object to a Record with canonical
// column types, keeping only known columns and the embedded relation.
func toRecord(t *store.Table, raw map[string]any, rel *store.Relation) (store.Record, error) {
	rec := make(store.Record, len(t.Columns)+1)
	for _, col := range t.Columns {
		v, err := store.Coerce(col, raw[col.Name])
		if err != nil {
			return nil, fmt.Errorf("malformed %s row: %s", t.Singular, err)
		}
		rec[col.Name] = v
	}

	if rel != nil {
		rec[rel.Name] = nil
		if nested, ok := raw[rel.Name].(map[string]any); ok {
			relTable, err := store.LookupTable(rel.Table)
			if err != nil {
				return nil, err
			}
			r, err := toRecord(relTable, nested, nil)
			if err != nil {
				return nil, err
			}
			rec[rel.Name] = r
		}
	}

	return rec, nil
}
