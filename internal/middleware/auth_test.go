package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
)

type fakeValidator struct {
	accept string
	userID int64
	email  string
}

func (f *fakeValidator) ValidateToken(tokenString string) (int64, string, error) {
	if tokenString != f.accept {
		return 0, "", errors.New("bad token")
	}
	return f.userID, f.email, nil
}

func authedHandler(t *testing.T, gotIdentity *Identity) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := IdentityFrom(r.Context())
		if !ok {
			t.Fatal("identity missing from authenticated request context")
		}
		*gotIdentity = id
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthAcceptsBearerHeader(t *testing.T) {
	am := NewAuthMiddleware(&fakeValidator{accept: "good", userID: 7, email: "a@test.local"}, zerolog.Nop())

	var id Identity
	req := httptest.NewRequest(http.MethodGet, "/api/users/me", nil)
	req.Header.Set("Authorization", "Bearer good")
	rec := httptest.NewRecorder()

	am.Handle(authedHandler(t, &id)).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if id.UserID != 7 || id.Email != "a@test.local" {
		t.Fatalf("wrong identity bound: %+v", id)
	}
}

func TestAuthFallsBackToQueryToken(t *testing.T) {
	am := NewAuthMiddleware(&fakeValidator{accept: "good", userID: 7}, zerolog.Nop())

	var id Identity
	req := httptest.NewRequest(http.MethodGet, "/ws?token=good", nil)
	rec := httptest.NewRecorder()

	am.Handle(authedHandler(t, &id)).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 via query token, got %d", rec.Code)
	}
	if id.UserID != 7 {
		t.Fatalf("wrong identity bound: %+v", id)
	}
}

func TestAuthRejectsMissingToken(t *testing.T) {
	am := NewAuthMiddleware(&fakeValidator{accept: "good"}, zerolog.Nop())

	req := httptest.NewRequest(http.MethodGet, "/api/users/me", nil)
	rec := httptest.NewRecorder()

	called := false
	am.Handle(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	})).ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if called {
		t.Fatal("handler must not run without a token")
	}
}

func TestAuthRejectsInvalidToken(t *testing.T) {
	am := NewAuthMiddleware(&fakeValidator{accept: "good"}, zerolog.Nop())

	req := httptest.NewRequest(http.MethodGet, "/api/users/me", nil)
	req.Header.Set("Authorization", "Bearer forged")
	rec := httptest.NewRecorder()

	am.Handle(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run with an invalid token")
	})).ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestAuthRejectsMalformedHeader(t *testing.T) {
	am := NewAuthMiddleware(&fakeValidator{accept: "good"}, zerolog.Nop())

	req := httptest.NewRequest(http.MethodGet, "/api/users/me", nil)
	req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
	rec := httptest.NewRecorder()

	am.Handle(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run with a non-bearer scheme")
	})).ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestIdentityFromWithoutBinding(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if _, ok := IdentityFrom(req.Context()); ok {
		t.Fatal("unbound context must not yield an identity")
	}
}
