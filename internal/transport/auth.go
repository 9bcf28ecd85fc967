package transport

import (
	"context"
	"errors"
	"net/http"
	"strings"
)

// ErrUnauthorized indicates invalid or missing credentials.
var ErrUnauthorized = errors.New("unauthorized")

type userKey struct{}

// UserResolver resolves a user ID from a bearer token.
type UserResolver interface {
	ResolveUser(ctx context.Context, token string) (string, error)
}

// UserFromContext returns the user ID from context, if present.
func UserFromContext(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(userKey{}).(string)
	return userID, ok
}

// WithUser returns a context carrying userID.
func WithUser(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userKey{}, userID)
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) string {
	token := strings.TrimPrefix(strings.TrimSpace(header), "Bearer ")
	return strings.TrimSpace(token)
}

// AuthMiddleware enforces bearer token authentication.
func AuthMiddleware(resolver UserResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := BearerToken(r.Header.Get("Authorization"))
			if token == "" {
				WriteError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing bearer token")
				return
			}

			userID, err := resolver.ResolveUser(r.Context(), token)
			if err != nil || userID == "" {
				WriteError(w, http.StatusUnauthorized, "UNAUTHORIZED", "invalid bearer token")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), userID)))
		})
	}
}

// NoAuthMiddleware attributes every request to defaultUser.
func NoAuthMiddleware(defaultUser string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), defaultUser)))
		})
	}
}
