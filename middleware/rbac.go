// ABOUTME: Role guard gating views by the numeric role of the resolved user
// ABOUTME: Pure RoleAllowed check plus the RequireRoles redirect middleware

package middleware

import (
	"fmt"
	"net/http"
	"slices"

	"github.com/MuhammadJalaludinRumi/frontend-gereja/logger"
	"github.com/MuhammadJalaludinRumi/frontend-gereja/metrics"
	"github.com/MuhammadJalaludinRumi/frontend-gereja/models"
)

// NoAccessPath is where role mismatches are sent.
const NoAccessPath = "/no-access"

// RoleAllowed reports whether user's role is in allowed. A nil or empty
// allow-list admits everyone; otherwise a missing user is denied (fail-closed).
// role_id is compared numerically whether the backend sent it as a number or a string.
func RoleAllowed(user *models.User, allowed []int) bool {
	if len(allowed) == 0 {
		return true
	}
	if user == nil {
		return false
	}
	return slices.Contains(allowed, int(user.RoleID))
}

// RequireRoles returns middleware that enforces a role allow-list.
// Must be chained after RequireSession, which places the user in the context.
// Panics if a role ID is not positive (catches route table mistakes at startup).
// Mismatches are redirected to the no-access view; the session is left untouched.
func RequireRoles(roles ...int) func(http.HandlerFunc) http.HandlerFunc {
	for _, role := range roles {
		if role <= 0 {
			panic(fmt.Sprintf("RequireRoles: invalid role ID %d", role))
		}
	}
	allowed := slices.Clone(roles)

	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			user := UserFromContext(r.Context())
			if !RoleAllowed(user, allowed) {
				userRole, username := 0, ""
				if user != nil {
					userRole, username = int(user.RoleID), user.Username
				}
				logger.FromContext(r.Context()).Warn("Role guard denied navigation",
					"path", sanitizePath(r.URL.Path),
					"allowed_roles", allowed,
					"user_role", userRole,
					"username", username,
				)
				metrics.GuardDecisions.WithLabelValues("role", "deny", "role_mismatch").Inc()
				Redirect(w, r, NoAccessPath, http.StatusForbidden)
				return
			}

			if len(allowed) > 0 {
				metrics.GuardDecisions.WithLabelValues("role", "allow", "role_match").Inc()
			}
			next(w, r)
		}
	}
}
