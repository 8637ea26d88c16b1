package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestKindOf(t *testing.T) {
	if got := KindOf(Validation("bad input")); got != KindValidation {
		t.Fatalf("expected KindValidation, got %v", got)
	}
	if got := KindOf(errors.New("driver exploded")); got != KindUnexpected {
		t.Fatalf("plain errors must be unexpected, got %v", got)
	}
	if got := KindOf(nil); got != KindUnexpected {
		t.Fatalf("nil must be unexpected, got %v", got)
	}

	// Classification survives wrapping.
	wrapped := fmt.Errorf("handler: %w", NotFound("no such room"))
	if got := KindOf(wrapped); got != KindNotFound {
		t.Fatalf("wrapped error lost its kind, got %v", got)
	}
}

func TestPublicMessageHidesInternals(t *testing.T) {
	if got := PublicMessage(Forbidden("You do not have access")); got != "You do not have access" {
		t.Fatalf("classified message should pass through, got %q", got)
	}
	if got := PublicMessage(Wrap("insert failed", errors.New("pq: connection reset"))); got != "Unexpected server error" {
		t.Fatalf("unexpected errors must not leak internals, got %q", got)
	}
	if got := PublicMessage(errors.New("raw")); got != "Unexpected server error" {
		t.Fatalf("plain errors must not leak, got %q", got)
	}
}

func TestHTTPStatus(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{Validation("v"), http.StatusBadRequest},
		{NotFound("n"), http.StatusNotFound},
		{Forbidden("f"), http.StatusForbidden},
		{Conflict("c"), http.StatusConflict},
		{Auth("a"), http.StatusUnauthorized},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if got := HTTPStatus(tc.err); got != tc.want {
			t.Fatalf("HTTPStatus(%v) = %d, want %d", tc.err, got, tc.want)
		}
	}
}

func TestErrorStringIncludesCause(t *testing.T) {
	err := Wrap("insert failed", errors.New("timeout"))
	if err.Error() != "insert failed: timeout" {
		t.Fatalf("unexpected error string: %q", err.Error())
	}
	if !errors.Is(err, err.Err) {
		t.Fatal("wrapped cause must be reachable through errors.Is")
	}
}

func TestKindString(t *testing.T) {
	pairs := map[Kind]string{
		KindValidation: "validation",
		KindNotFound:   "not_found",
		KindForbidden:  "forbidden",
		KindConflict:   "conflict",
		KindAuth:       "auth",
		KindUnexpected: "unexpected",
	}
	for kind, want := range pairs {
		if kind.String() != want {
			t.Fatalf("Kind(%d).String() = %q, want %q", kind, kind.String(), want)
		}
	}
}
