package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"hrportal/internal/domain/auth"
)

type ctxKey string

const ctxKeyUser ctxKey = "user"

// SessionStore validates session tokens and resolves the caller's
// department. Both checks are skipped when the store is nil, which the
// tests rely on.
type SessionStore interface {
	SessionValid(ctx context.Context, userID, tokenHash string) (bool, error)
	DepartmentIDForUser(ctx context.Context, userID string) (string, error)
}

// Auth parses a bearer token when one is present and attaches the caller
// identity to the request context. Requests without valid credentials pass
// through anonymously; RequirePermission is what actually gates access.
func Auth(secret string, sessions SessionStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				next.ServeHTTP(w, r)
				return
			}
			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
				next.ServeHTTP(w, r)
				return
			}

			claims, err := auth.ParseToken(secret, parts[1])
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}

			user := auth.UserContext{
				UserID:   claims.UserID,
				RoleID:   claims.RoleID,
				RoleName: claims.RoleName,
			}

			if sessions != nil {
				valid, err := sessions.SessionValid(r.Context(), claims.UserID, auth.HashToken(parts[1]))
				if err != nil {
					slog.Warn("session lookup failed", "err", err, "requestId", GetRequestID(r.Context()))
					next.ServeHTTP(w, r)
					return
				}
				if !valid {
					next.ServeHTTP(w, r)
					return
				}
				if deptID, err := sessions.DepartmentIDForUser(r.Context(), claims.UserID); err == nil {
					user.DepartmentID = deptID
				}
			}

			ctx := context.WithValue(r.Context(), ctxKeyUser, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func GetUser(ctx context.Context) (auth.UserContext, bool) {
	user, ok := ctx.Value(ctxKeyUser).(auth.UserContext)
	return user, ok
}
