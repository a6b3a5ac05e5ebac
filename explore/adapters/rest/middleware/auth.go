package middleware

import (
	"context"
	"net/http"
	"strings"
)

const tokenPrefix = "Token "

type AuthChecker interface {
	ParseToken(string) (string, error)
}

type userKey struct{}

// WithUser returns a copy of ctx carrying the authenticated user name.
func WithUser(ctx context.Context, user string) context.Context {
	return context.WithValue(ctx, userKey{}, user)
}

func UserFromContext(ctx context.Context) (string, bool) {
	user, ok := ctx.Value(userKey{}).(string)
	return user, ok && user != ""
}

// AuthMiddleware rejects requests without a valid "Token <jwt>" header.
func AuthMiddleware(auth AuthChecker) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := authenticate(auth, r)
			if !ok {
				http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
		})
	}
}

// OptionalAuth lets anonymous requests through but still rejects a
// present and invalid token.
func OptionalAuth(auth AuthChecker) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Authorization") == "" {
				next.ServeHTTP(w, r)
				return
			}
			user, ok := authenticate(auth, r)
			if !ok {
				http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
		})
	}
}

func authenticate(auth AuthChecker, r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	if !strings.HasPrefix(h, tokenPrefix) {
		return "", false
	}
	token := strings.TrimSpace(h[len(tokenPrefix):])
	if token == "" {
		return "", false
	}
	user, err := auth.ParseToken(token)
	if err != nil || user == "" {
		return "", false
	}
	return user, true
}
