package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"chat-connect/internal/apperr"
	"chat-connect/internal/httpx"
)

type contextKey string

const identityKey contextKey = "identity"

// Identity is the authenticated caller bound to a request. It comes only from
// a verified token, never from client-supplied message fields, and the binding
// is immutable for the lifetime of the request or connection.
type Identity struct {
	UserID int64
	Email  string
}

// TokenValidator decouples the middleware from the user service.
type TokenValidator interface {
	ValidateToken(tokenString string) (int64, string, error)
}

type AuthMiddleware struct {
	validator TokenValidator
	logger    zerolog.Logger
}

func NewAuthMiddleware(v TokenValidator, logger zerolog.Logger) *AuthMiddleware {
	return &AuthMiddleware{validator: v, logger: logger}
}

// Handle extracts a bearer token from the Authorization header, falling back
// to the `token` query parameter for the websocket handshake leg where the
// browser cannot set headers. A missing or invalid token terminates the
// request before any identity binding occurs.
func (am *AuthMiddleware) Handle(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenString := ""

		authHeader := r.Header.Get("Authorization")
		if authHeader != "" {
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
				tokenString = parts[1]
			}
		}

		if tokenString == "" {
			tokenString = r.URL.Query().Get("token")
		}

		if tokenString == "" {
			httpx.Error(w, r, am.logger, apperr.Auth("Missing authentication token"))
			return
		}

		userID, email, err := am.validator.ValidateToken(tokenString)
		if err != nil {
			httpx.Error(w, r, am.logger, apperr.Auth("Invalid or expired token"))
			return
		}

		ctx := context.WithValue(r.Context(), identityKey, Identity{UserID: userID, Email: email})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// IdentityFrom returns the authenticated identity bound to ctx.
func IdentityFrom(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey).(Identity)
	return id, ok
}
