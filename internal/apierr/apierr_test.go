package apierr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

// TestKindOf verifies classification survives wrapping and unknown errors
// fall back to internal.
func TestKindOf(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{name: "validation", err: Validation("missing field"), want: KindValidation},
		{name: "configuration", err: Configuration("no credentials"), want: KindConfiguration},
		{name: "not_found", err: NotFound("blob %q", "x"), want: KindNotFound},
		{name: "storage", err: Storage(errors.New("boom"), "download"), want: KindStorage},
		{name: "wrapped", err: fmt.Errorf("outer: %w", NotFound("inner")), want: KindNotFound},
		{name: "plain", err: errors.New("boom"), want: KindInternal},
		{name: "nil", err: nil, want: KindInternal},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := KindOf(tc.err); got != tc.want {
				t.Fatalf("KindOf()=%v, want %v", got, tc.want)
			}
		})
	}
}

// TestHTTPStatus verifies the status mapping per failure class.
func TestHTTPStatus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "validation_400", err: Validation("x"), want: http.StatusBadRequest},
		{name: "not_found_404", err: NotFound("x"), want: http.StatusNotFound},
		{name: "configuration_500", err: Configuration("x"), want: http.StatusInternalServerError},
		{name: "storage_500", err: Storage(errors.New("y"), "x"), want: http.StatusInternalServerError},
		{name: "internal_500", err: errors.New("y"), want: http.StatusInternalServerError},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := HTTPStatus(tc.err); got != tc.want {
				t.Fatalf("HTTPStatus()=%d, want %d", got, tc.want)
			}
		})
	}
}

// TestErrorUnwrap verifies the cause chain is preserved.
func TestErrorUnwrap(t *testing.T) {
	t.Parallel()

	cause := errors.New("socket closed")
	err := Storage(cause, "download %q", "a/b.csv")
	if !errors.Is(err, cause) {
		t.Fatalf("errors.Is(err, cause)=false, want true")
	}
	if got := err.Error(); got != `download "a/b.csv": socket closed` {
		t.Fatalf("Error()=%q", got)
	}
}
