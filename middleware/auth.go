package middleware

import (
	"context"
	"net/http"
	"strings"

	"gamedex/core"

	"github.com/go-chi/render"
	"github.com/sirupsen/logrus"
)

type contextKey string

const UserContextKey = contextKey("user")

// TokenVerifier resolves a bearer token to a user.
type TokenVerifier interface {
	GetUser(ctx context.Context, token string) (*core.User, error)
}

// AuthBearer rejects requests without a verifiable bearer token and stores
// the resolved *core.User in the request context.
func AuthBearer(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString, ok := BearerToken(r)
			if !ok {
				unauthorized(w, r)
				return
			}

			user, err := verifier.GetUser(r.Context(), tokenString)
			if err != nil || user == nil {
				logrus.WithField("error", err).Debug("Bearer token rejected")
				unauthorized(w, r)
				return
			}

			ctx := context.WithValue(r.Context(), UserContextKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// BearerToken extracts the token from an "Authorization: Bearer <token>" header.
func BearerToken(r *http.Request) (string, bool) {
	parts := strings.Fields(r.Header.Get("Authorization"))
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return "", false
	}
	return parts[1], true
}

// UserFromContext returns the user stored by AuthBearer.
func UserFromContext(ctx context.Context) (*core.User, bool) {
	user, ok := ctx.Value(UserContextKey).(*core.User)
	return user, ok && user != nil
}

func unauthorized(w http.ResponseWriter, r *http.Request) {
	render.Status(r, http.StatusUnauthorized)
	render.JSON(w, r, map[string]string{"error": "Unauthorized"})
}
