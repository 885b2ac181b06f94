package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/tigercode/backend/internal/models"
)

type contextKey string

const (
	contextUserID contextKey = "user_id"
	contextRole   contextKey = "user_role"
)

// UserID extracts the authenticated user id from the request context.
func UserID(r *http.Request) (int64, bool) {
	uid, ok := r.Context().Value(contextUserID).(int64)
	return uid, ok
}

// RoleOf returns the authenticated user's role, defaulting to the regular
// user role when no identity is attached.
func RoleOf(r *http.Request) models.Role {
	if role, ok := r.Context().Value(contextRole).(models.Role); ok {
		return role
	}
	return models.RoleUser
}

// Middleware rejects requests that lack a valid bearer token and attaches
// the identity claims to the request context.
func Middleware(secret []byte) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, role, ok := identityFromRequest(secret, r)
			if !ok {
				writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Authentication required"})
				return
			}
			next.ServeHTTP(w, r.WithContext(withIdentity(r.Context(), userID, role)))
		})
	}
}

// OptionalMiddleware attaches identity claims when a valid token is
// present and lets the request through either way. Used by public
// endpoints that record progress for logged-in callers.
func OptionalMiddleware(secret []byte) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if userID, role, ok := identityFromRequest(secret, r); ok {
				r = r.WithContext(withIdentity(r.Context(), userID, role))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAdmin rejects authenticated non-admin callers. Must run inside
// Middleware.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if RoleOf(r) != models.RoleAdmin {
			writeJSON(w, http.StatusForbidden, models.ErrorResponse{Error: "Admin access required"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func identityFromRequest(secret []byte, r *http.Request) (int64, models.Role, bool) {
	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return 0, "", false
	}
	userID, role, err := parseToken(secret, strings.TrimPrefix(header, "Bearer "))
	if err != nil {
		return 0, "", false
	}
	return userID, role, true
}

func withIdentity(ctx context.Context, userID int64, role models.Role) context.Context {
	ctx = context.WithValue(ctx, contextUserID, userID)
	return context.WithValue(ctx, contextRole, role)
}
