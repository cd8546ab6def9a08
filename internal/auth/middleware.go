package auth

import (
	"context"
	"net/http"
)

type contextKey string

// AdminIdentityKey is the request-context key holding the admin identity.
const AdminIdentityKey contextKey = "admin_identity"

// AdminOnly guards the admin surface. It extracts the bearer token, requires
// the ADMIN role, and stashes the caller identity for authorized_by fields.
func AdminOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenString, err := ExtractTokenFromRequest(r)
		if err != nil {
			http.Error(w, "Authorization required: "+err.Error(), http.StatusUnauthorized)
			return
		}

		isAdmin, err := HasAdminRole(tokenString)
		if err != nil {
			http.Error(w, "Invalid token: "+err.Error(), http.StatusUnauthorized)
			return
		}
		if !isAdmin {
			http.Error(w, "Admin role required", http.StatusForbidden)
			return
		}

		identity, err := ExtractAdminIdentity(tokenString)
		if err != nil {
			http.Error(w, "Invalid token: "+err.Error(), http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), AdminIdentityKey, identity)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// AdminIdentityFromContext returns the identity stored by AdminOnly.
func AdminIdentityFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(AdminIdentityKey).(string); ok {
		return v
	}
	return ""
}
