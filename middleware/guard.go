// ABOUTME: Route guard deciding whether a navigation may reach a protected view
// ABOUTME: Pure Evaluate state machine plus the RequireSession redirect middleware

package middleware

import (
	"context"
	"net/http"

	"github.com/MuhammadJalaludinRumi/frontend-gereja/logger"
	"github.com/MuhammadJalaludinRumi/frontend-gereja/metrics"
	"github.com/MuhammadJalaludinRumi/frontend-gereja/models"
	"github.com/MuhammadJalaludinRumi/frontend-gereja/services"
)

// LoginPath is where denied navigations are sent.
const LoginPath = "/login"

// GuardState is a step of the route guard state machine.
type GuardState string

const (
	StateStart     GuardState = "START"
	StateResolving GuardState = "RESOLVING"
	StateAllow     GuardState = "ALLOW"
	StateDeny      GuardState = "DENY"
)

// UserResolver resolves the identity behind a session. *services.AuthGateway implements it.
type UserResolver interface {
	FetchUser(ctx context.Context, s *services.Session) *models.User
}

// Decision is the outcome of one route guard evaluation.
type Decision struct {
	Allow  bool
	User   *models.User
	Reason string
	Trail  []GuardState
}

// RouteGuard decides whether a navigation may proceed.
type RouteGuard struct {
	resolver UserResolver
	public   map[string]bool
}

// NewRouteGuard creates a guard. The login path is always public; publicPaths adds more.
func NewRouteGuard(resolver UserResolver, publicPaths ...string) *RouteGuard {
	public := map[string]bool{LoginPath: true}
	for _, p := range publicPaths {
		public[p] = true
	}
	return &RouteGuard{resolver: resolver, public: public}
}

// IsPublic reports whether path bypasses the guard.
func (g *RouteGuard) IsPublic(path string) bool {
	return g.public[path]
}

// Evaluate runs START -> (RESOLVING) -> ALLOW | DENY for a navigation to path.
// A cached active user is admitted without contacting the backend; otherwise the
// identity is resolved and the navigation is denied unless it yields an active user.
func (g *RouteGuard) Evaluate(ctx context.Context, path string, sess *services.Session) Decision {
	d := Decision{Trail: []GuardState{StateStart}}

	if g.public[path] {
		return d.allow(nil, "public")
	}
	if sess == nil {
		return d.deny("no_session")
	}
	if user := sess.User(); user != nil && user.IsActive() {
		return d.allow(user, "cached")
	}

	d.Trail = append(d.Trail, StateResolving)
	user := g.resolver.FetchUser(ctx, sess)
	switch {
	case user == nil:
		return d.deny("unauthenticated")
	case !user.IsActive():
		return d.deny("inactive")
	}
	return d.allow(user, "resolved")
}

func (d Decision) allow(user *models.User, reason string) Decision {
	d.Allow = true
	d.User = user
	d.Reason = reason
	d.Trail = append(d.Trail, StateAllow)
	return d
}

func (d Decision) deny(reason string) Decision {
	d.Allow = false
	d.Reason = reason
	d.Trail = append(d.Trail, StateDeny)
	return d
}

// RequireSession returns middleware running the route guard before the view.
// Must be chained after WithSession. On DENY the view never runs and the caller
// is redirected to the login view; on ALLOW the user is placed in the context.
func RequireSession(guard *RouteGuard) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			log := logger.FromContext(r.Context())

			d := guard.Evaluate(r.Context(), r.URL.Path, SessionFromContext(r.Context()))
			if !d.Allow {
				metrics.GuardDecisions.WithLabelValues("route", "deny", d.Reason).Inc()
				log.Info("Route guard denied navigation",
					"path", sanitizePath(r.URL.Path),
					"reason", d.Reason,
					"trail", d.Trail,
				)
				Redirect(w, r, LoginPath, http.StatusUnauthorized)
				return
			}

			metrics.GuardDecisions.WithLabelValues("route", "allow", d.Reason).Inc()
			log.Debug("Route guard allowed navigation", "path", sanitizePath(r.URL.Path), "reason", d.Reason)
			next(w, r.WithContext(withUser(r.Context(), d.User)))
		}
	}
}
