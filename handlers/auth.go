// ABOUTME: Auth handlers for the console login view, login, logout and identity endpoints
// ABOUTME: Backend credentials stay in the server-side session; the browser only holds CONSOLE_SID

package handlers

import (
	"encoding/json"
	"errors"
	"mime"
	"net/http"

	"github.com/MuhammadJalaludinRumi/frontend-gereja/logger"
	"github.com/MuhammadJalaludinRumi/frontend-gereja/middleware"
	"github.com/MuhammadJalaludinRumi/frontend-gereja/models"
	"github.com/MuhammadJalaludinRumi/frontend-gereja/services"
)

// maxLoginBodyBytes bounds the login request body.
const maxLoginBodyBytes = 64 << 10

// LoginView serves the login page description, or sends an already active user home.
func (h *Handler) LoginView(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromContext(r.Context())
	if sess != nil && sess.User().IsActive() {
		middleware.Redirect(w, r, "/", http.StatusOK)
		return
	}

	h.writeJSON(w, http.StatusOK, models.ViewResponse{View: "login", Path: middleware.LoginPath})
}

// Login authenticates against the backend in a fresh, unstored session and, on
// success, points CONSOLE_SID at it. The browser's previous session is discarded.
// Failed attempts leave nothing in the registry.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())

	req, isForm, err := decodeLoginRequest(r)
	if err != nil {
		h.writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	fresh, err := h.registry.New(r.Context())
	if err != nil {
		log.Error("Failed to allocate session for login", "error", err)
		h.writeError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	user, err := h.gateway.Login(r.Context(), fresh, req.Username, req.Password)
	if err != nil {
		status, message := http.StatusUnauthorized, err.Error()
		var authErr *services.AuthError
		if errors.As(err, &authErr) {
			message = authErr.Message
			if authErr.Status == http.StatusBadRequest {
				status = http.StatusBadRequest
			}
		}
		h.writeJSON(w, status, models.LoginResponse{Success: false, Error: message})
		return
	}

	middleware.ReplaceSession(w, r, fresh)

	if isForm && !middleware.WantsJSON(r) {
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}
	h.writeJSON(w, http.StatusOK, models.LoginResponse{Success: true, User: user})
}

// Logout tells the backend to end its session, then ends the console session.
// The browser is sent to the login view even when the backend cannot be reached.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if sess := middleware.SessionFromContext(r.Context()); sess != nil {
		h.gateway.Logout(r.Context(), sess)
	}
	middleware.EndSession(w, r)
	middleware.Redirect(w, r, middleware.LoginPath, http.StatusOK)
}

// Me returns the user admitted by the route guard.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r.Context())
	if user == nil {
		h.writeError(w, "Not authenticated", http.StatusUnauthorized)
		return
	}
	h.writeJSON(w, http.StatusOK, user)
}

// decodeLoginRequest accepts a JSON body or an HTML form post.
func decodeLoginRequest(r *http.Request) (models.LoginRequest, bool, error) {
	var req models.LoginRequest
	r.Body = http.MaxBytesReader(nil, r.Body, maxLoginBodyBytes)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "application/x-www-form-urlencoded", "multipart/form-data":
		parse := r.ParseForm
		if mediaType == "multipart/form-data" {
			parse = func() error { return r.ParseMultipartForm(maxLoginBodyBytes) }
		}
		if err := parse(); err != nil {
			return req, true, err
		}
		req.Username = r.PostFormValue("username")
		req.Password = r.PostFormValue("password")
		return req, true, nil
	default:
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return req, false, err
		}
		return req, false, nil
	}
}
