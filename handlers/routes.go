// ABOUTME: Declarative route table for the console server
// ABOUTME: Each route carries its guard metadata; Register builds the middleware chain from it

package handlers

import (
	"net/http"
	"time"

	"github.com/MuhammadJalaludinRumi/frontend-gereja/metrics"
	"github.com/MuhammadJalaludinRumi/frontend-gereja/middleware"
	"github.com/MuhammadJalaludinRumi/frontend-gereja/models"
)

// Access selects how much of the middleware chain a route runs behind.
type Access int

const (
	// AccessGuarded routes need an active user and pass the role guard.
	AccessGuarded Access = iota
	// AccessPublic routes get a console session but skip the route guard.
	AccessPublic
	// AccessBare routes run without a console session.
	AccessBare
)

// Route defines a console endpoint with its HTTP method, handler and guard metadata.
type Route struct {
	Method      string           // HTTP method (GET, POST, etc.)
	Path        string           // ServeMux pattern path (e.g., "/members", "/api/{path...}")
	Handler     http.HandlerFunc // Handler function
	Access      Access
	Roles       []int // role allow-list; empty admits any active user
	RateLimited bool  // counts against the login rate limit
}

// view describes a console page reachable by navigation.
type view struct {
	name  string
	path  string
	roles []int
}

const (
	roleSuperAdmin = models.SuperAdminRoleID
	roleAdmin      = 2
)

var views = []view{
	{name: "dashboard", path: "/"},
	{name: "members", path: "/members"},
	{name: "assets", path: "/assets"},
	{name: "organizations", path: "/organizations", roles: []int{roleSuperAdmin, roleAdmin}},
	{name: "users", path: "/users", roles: []int{roleSuperAdmin}},
	{name: "roles", path: "/roles", roles: []int{roleSuperAdmin}},
	{name: "acls", path: "/acls", roles: []int{roleSuperAdmin}},
	{name: "loans", path: "/loans"},
	{name: "maintenances", path: "/maintenances"},
	{name: "invoices", path: "/invoices", roles: []int{roleSuperAdmin, roleAdmin}},
	{name: "news", path: "/news"},
}

// proxyMethods are relayed to the backend under /api/.
var proxyMethods = []string{
	http.MethodGet,
	http.MethodPost,
	http.MethodPut,
	http.MethodPatch,
	http.MethodDelete,
}

// Routes returns all console routes for registration.
func (h *Handler) Routes() []Route {
	routes := []Route{
		// Health & Metrics
		{Method: http.MethodGet, Path: "/healthz", Handler: h.Health, Access: AccessBare},
		{Method: http.MethodGet, Path: "/metrics", Handler: metrics.Handler().ServeHTTP, Access: AccessBare},

		// Auth
		{Method: http.MethodGet, Path: middleware.LoginPath, Handler: h.LoginView, Access: AccessPublic},
		{Method: http.MethodPost, Path: middleware.LoginPath, Handler: h.Login, Access: AccessPublic, RateLimited: true},
		{Method: http.MethodPost, Path: "/logout", Handler: h.Logout, Access: AccessPublic},
		{Method: http.MethodGet, Path: "/api/me", Handler: h.Me},

		// Views
		{Method: http.MethodGet, Path: middleware.NoAccessPath, Handler: h.NoAccess},
	}

	for _, v := range views {
		path := v.path
		if path == "/" {
			path = "/{$}"
		}
		routes = append(routes, Route{
			Method:  http.MethodGet,
			Path:    path,
			Handler: h.View(v.name, v.roles),
			Roles:   v.roles,
		})
	}

	// Backend pass-through
	for _, method := range proxyMethods {
		routes = append(routes, Route{Method: method, Path: "/api/{path...}", Handler: h.Proxy})
	}

	return routes
}

// Register adds every route to mux behind its middleware chain:
// request logging, CORS, then for session routes the session loader and CSRF check,
// then for guarded routes the route guard and role guard.
func (h *Handler) Register(mux *http.ServeMux) {
	var origins []string
	if h.cfg != nil {
		origins = h.cfg.CORSAllowedOrigins
	}
	cors := middleware.CORSWithConfig(origins)
	sessions := h.sessionConfig()

	for _, route := range h.Routes() {
		mux.HandleFunc(route.Method+" "+route.Path, middleware.Chain(route.Handler, h.middlewareFor(route, cors, sessions)...))
	}

	// Preflight requests never reach a handler; CORS answers them.
	mux.HandleFunc("OPTIONS /", middleware.Chain(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}, middleware.LogRequest, cors))
}

func (h *Handler) sessionConfig() middleware.SessionConfig {
	sc := middleware.SessionConfig{
		Registry: h.registry,
		SameSite: http.SameSiteLaxMode,
		TTL:      7 * 24 * time.Hour,
	}
	if h.cfg != nil {
		sc.Secure = h.cfg.SessionSecureCookie
		sc.SameSite = h.cfg.SessionSameSite
		sc.TTL = h.cfg.SessionTTL
	}
	return sc
}

func (h *Handler) middlewareFor(route Route, cors func(http.HandlerFunc) http.HandlerFunc, sessions middleware.SessionConfig) []func(http.HandlerFunc) http.HandlerFunc {
	chain := []func(http.HandlerFunc) http.HandlerFunc{middleware.LogRequest, cors}

	if route.RateLimited && h.limiter != nil {
		chain = append(chain, middleware.RateLimit(h.limiter, middleware.ClientIP))
	}
	if route.Access == AccessBare {
		return chain
	}

	chain = append(chain, middleware.WithSession(sessions), middleware.CSRF(middleware.LoginPath))
	if route.Access == AccessPublic {
		return chain
	}

	chain = append(chain, middleware.RequireSession(h.guard))
	if len(route.Roles) > 0 {
		chain = append(chain, middleware.RequireRoles(route.Roles...))
	}
	return chain
}
