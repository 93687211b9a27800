package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"slices"
	"strings"
)

type ctxKey string

const (
	userIDKey ctxKey = "user_id"
	rolesKey  ctxKey = "roles"
)

func UserIDFromContext(ctx context.Context) (uint64, bool) {
	v := ctx.Value(userIDKey)
	id, ok := v.(uint64)
	return id, ok
}

func RolesFromContext(ctx context.Context) []string {
	roles, _ := ctx.Value(rolesKey).([]string)
	return roles
}

// WithUser is what RequireAuth stores for downstream handlers.
func WithUser(ctx context.Context, userID uint64, roles []string) context.Context {
	ctx = context.WithValue(ctx, userIDKey, userID)
	return context.WithValue(ctx, rolesKey, roles)
}

func RequireAuth(jwtSvc *JWT) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := r.Header.Get("Authorization")
			if h == "" || !strings.HasPrefix(h, "Bearer ") {
				deny(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			token := strings.TrimPrefix(h, "Bearer ")

			claims, err := jwtSvc.Verify(token)
			if err != nil {
				deny(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			uid, _ := claims.UserID()

			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), uid, claims.Roles)))
		})
	}
}

// RequireRole must sit behind RequireAuth.
func RequireRole(role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !slices.Contains(RolesFromContext(r.Context()), role) {
				deny(w, http.StatusForbidden, "forbidden")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func deny(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
