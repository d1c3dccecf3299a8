package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/copiqat-backend/internal/models"
	"github.com/copiqat-backend/internal/service"
)

type contextKey string

// userIDKey carries the authenticated user's ID through the request context
const userIDKey contextKey = "userID"

// TokenVerifier validates access tokens for the auth middleware
type TokenVerifier interface {
	VerifyAccessToken(ctx context.Context, tokenString string) (*service.Claims, error)
}

// UserGetter loads a user record, used by the staff gate
type UserGetter interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
}

// AuthMiddleware requires a valid bearer access token and stashes the
// caller's user ID in the request context.
func AuthMiddleware(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				respondError(w, http.StatusUnauthorized, ErrCodeUnauthorized, "Authorization header required", nil)
				return
			}

			claims, err := verifier.VerifyAccessToken(r.Context(), token)
			if err != nil {
				respondWithError(w, err)
				return
			}

			ctx := context.WithValue(r.Context(), userIDKey, claims.UserID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// StaffMiddleware gates a route to staff accounts. It runs inside
// AuthMiddleware, so the user ID is already trusted.
func StaffMiddleware(users UserGetter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID := UserIDFromContext(r.Context())
			if userID == "" {
				respondError(w, http.StatusUnauthorized, ErrCodeUnauthorized, "Authentication required", nil)
				return
			}

			user, err := users.GetByID(r.Context(), userID)
			if err != nil {
				respondWithError(w, err)
				return
			}
			if !user.IsStaff {
				respondError(w, http.StatusForbidden, ErrCodeForbidden, "Staff access required", nil)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// UserIDFromContext returns the authenticated user ID, or "" when the
// request did not pass through AuthMiddleware.
func UserIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(userIDKey).(string)
	return id
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
