package http

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/taskflow/task-service/internal/auth"
	"github.com/taskflow/task-service/pkg/logger"
)

type ctxKey struct{}

// TokenVerifier checks a bearer token and returns its claims.
type TokenVerifier interface {
	Verify(token string) (*auth.Claims, error)
}

// Authenticate rejects requests without a valid bearer token and stores the
// caller's user id in the request context.
func Authenticate(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || strings.TrimSpace(token) == "" {
				respondWithError(w, http.StatusUnauthorized, "Not authorized, no token")
				return
			}

			claims, err := verifier.Verify(strings.TrimSpace(token))
			if err != nil {
				logger.Log.WithError(err).Debug("Token rejected")
				msg := "Not authorized, token failed"
				if errors.Is(err, auth.ErrExpiredToken) {
					msg = "Not authorized, token expired"
				}
				respondWithError(w, http.StatusUnauthorized, msg)
				return
			}

			ctx := context.WithValue(r.Context(), ctxKey{}, claims.UserID())
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserID returns the authenticated user id, or "" outside Authenticate.
func UserID(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}
