// ABOUTME: Console view handlers reached through the route and role guards
// ABOUTME: Each view answers with a JSON description of the page and the admitted user

package handlers

import (
	"net/http"

	"github.com/MuhammadJalaludinRumi/frontend-gereja/middleware"
	"github.com/MuhammadJalaludinRumi/frontend-gereja/models"
)

// View returns a handler describing the named console page.
func (h *Handler) View(name string, roles []int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.writeJSON(w, http.StatusOK, models.ViewResponse{
			View:  name,
			Path:  r.URL.Path,
			Roles: roles,
			User:  middleware.UserFromContext(r.Context()),
		})
	}
}

// NoAccess is where the role guard sends users whose role is not allowed.
func (h *Handler) NoAccess(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, models.ViewResponse{
		View: "no-access",
		Path: middleware.NoAccessPath,
		User: middleware.UserFromContext(r.Context()),
	})
}
