package apperr

import (
	"errors"
	"fmt"
	"testing"
)

func TestKind(t *testing.T) {
	cause := errors.New("connection refused")

	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"validation", Validation("quantity", "must be positive"), "validation"},
		{"wrapped validation", fmt.Errorf("adding product: %w", Validation("quantity", "bad")), "validation"},
		{"not found", NotFound("visit", 7), "not_found"},
		{"data source", DataSource("listing clients", cause), "data_source"},
		{"conflict", Conflict("inserting visit", cause), "conflict"},
		{"plain", cause, "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Kind(tt.err); got != tt.want {
				t.Errorf("Kind() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestConflictIsDataSource(t *testing.T) {
	err := Conflict("inserting visit", errors.New("UNIQUE constraint failed"))
	if !errors.Is(err, ErrConflict) {
		t.Error("expected ErrConflict")
	}
	if !errors.Is(err, ErrDataSource) {
		t.Error("expected conflict to also match ErrDataSource")
	}
}

func TestDataSourceKeepsCause(t *testing.T) {
	cause := errors.New("dial tcp: timeout")
	err := DataSource("listing visits", cause)
	if !errors.Is(err, cause) {
		t.Error("expected cause to be reachable")
	}
	if err.Error() != "listing visits: dial tcp: timeout" {
		t.Errorf("message = %q", err.Error())
	}
}

func TestDataSourceKeepsKnownKind(t *testing.T) {
	err := DataSource("updating visit", NotFound("visit", 3))
	if !errors.Is(err, ErrNotFound) {
		t.Error("expected not-found kind to survive")
	}
	if errors.Is(err, ErrDataSource) {
		t.Error("not-found should not become a data-source failure")
	}
}

func TestValidationError(t *testing.T) {
	err := Validation("visit_weekday", "must be 1-7, got %d", 9)

	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatal("expected *ValidationError")
	}
	if ve.Field != "visit_weekday" {
		t.Errorf("field = %q", ve.Field)
	}
	if err.Error() != "visit_weekday: must be 1-7, got 9" {
		t.Errorf("message = %q", err.Error())
	}
}
