package middleware

import (
	"context"
	"net/http"
)

type AdminStore interface {
	IsAdmin(ctx context.Context, accountID string) (bool, bool, error)
	HasRole(ctx context.Context, accountID, role string) (bool, error)
}

// RequireAdmin admits super admins, and other admins holding role. An empty
// role admits any admin.
func RequireAdmin(adminStore AdminStore, role string) func(http.Handler) http.Handler {
	return requireAdmin(adminStore, role, false)
}

func RequireSuperAdmin(adminStore AdminStore) func(http.Handler) http.Handler {
	return requireAdmin(adminStore, "", true)
}

func requireAdmin(adminStore AdminStore, role string, superOnly bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			accountID, ok := AccountIDFromContext(r.Context())
			if !ok {
				writeError(w, http.StatusUnauthorized, "unauthorized", "unauthorized")
				return
			}
			isAdmin, isSuper, err := adminStore.IsAdmin(r.Context(), accountID)
			if err != nil {
				writeError(w, http.StatusInternalServerError, "unable to verify admin", "internal")
				return
			}
			if !isAdmin {
				writeError(w, http.StatusForbidden, "admin privileges required", "forbidden")
				return
			}
			if isSuper {
				next.ServeHTTP(w, r)
				return
			}
			if superOnly {
				writeError(w, http.StatusForbidden, "super admin privileges required", "forbidden")
				return
			}
			if role == "" {
				next.ServeHTTP(w, r)
				return
			}
			hasRole, err := adminStore.HasRole(r.Context(), accountID, role)
			if err != nil {
				writeError(w, http.StatusInternalServerError, "unable to verify role", "internal")
				return
			}
			if !hasRole {
				writeError(w, http.StatusForbidden, "missing required role", "forbidden")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
