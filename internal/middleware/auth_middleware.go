package middleware

import (
	"context"
	"net/http"
	"strings"

	"vidstream-server/internal/domain"
	"vidstream-server/internal/repository"
	"vidstream-server/pkg/response"
	"vidstream-server/pkg/token"
)

type contextKey string

const (
	UserIDKey contextKey = "userID"
	UserKey   contextKey = "user"
)

// AuthMiddleware verifies the bearer access token and resolves the account
// it names, attaching the sanitized user to the request context. A token
// whose account no longer exists is rejected the same way as a bad token.
func AuthMiddleware(tokens *token.Manager, users repository.UserRepository) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				response.Unauthorized(w, "missing authorization header")
				return
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				response.Unauthorized(w, "invalid authorization header format")
				return
			}

			claims, err := tokens.VerifyAccess(parts[1])
			if err != nil {
				response.Unauthorized(w, "invalid or expired token")
				return
			}

			user, err := users.FindByID(r.Context(), claims.UserID)
			if err != nil {
				response.Unauthorized(w, "invalid or expired token")
				return
			}

			ctx := context.WithValue(r.Context(), UserIDKey, user.ID)
			ctx = context.WithValue(ctx, UserKey, user.Sanitized())
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetUserID returns the authenticated account id, or "" outside the
// protected chain.
func GetUserID(r *http.Request) string {
	userID, ok := r.Context().Value(UserIDKey).(string)
	if !ok {
		return ""
	}
	return userID
}

// GetUser returns the authenticated, sanitized account, or nil.
func GetUser(r *http.Request) *domain.User {
	user, ok := r.Context().Value(UserKey).(*domain.User)
	if !ok {
		return nil
	}
	return user
}
