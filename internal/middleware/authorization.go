package middleware

import (
	"net/http"

	"github.com/kurokana/SiTeJo-Web/internal/identity"
	"github.com/kurokana/SiTeJo-Web/internal/models"
	"github.com/kurokana/SiTeJo-Web/internal/utils"
)

// RequireAuth blocks when no user is present in context (set by WithAuth).
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := identity.CurrentUser(r.Context()); !ok {
			utils.Error(w, http.StatusUnauthorized, "authentication required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireRoles allows the request only if the caller holds one of roles.
// Use after RequireAuth.
func RequireRoles(roles ...models.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := identity.CurrentUser(r.Context()); !ok {
				utils.Error(w, http.StatusUnauthorized, "authentication required")
				return
			}
			if !identity.HasRole(r.Context(), roles...) {
				utils.Error(w, http.StatusForbidden, "forbidden")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
