// ABOUTME: Prometheus metrics for session resolution, guards and backend calls
// ABOUTME: Registered once on the default registerer and served from /metrics

package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "console"

var (
	// GuardDecisions counts route guard outcomes by decision and the state that produced it.
	GuardDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "guard_decisions_total",
		Help:      "Route and role guard decisions",
	}, []string{"guard", "decision", "state"})

	// Logins counts login attempts by result.
	Logins = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "logins_total",
		Help:      "Login attempts against the backend",
	}, []string{"result"})

	// Resolutions counts identity resolutions by result.
	Resolutions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "identity_resolutions_total",
		Help:      "Identity resolutions against the backend /me endpoint",
	}, []string{"result"})

	// BackendRequests counts outbound backend calls by endpoint and status class.
	BackendRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "backend_requests_total",
		Help:      "Requests sent to the church administration backend",
	}, []string{"endpoint", "status"})

	// BackendDuration observes backend call latency.
	BackendDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "backend_request_duration_seconds",
		Help:      "Backend request latency in seconds",
		Buckets:   prometheus.DefBuckets,
	}, []string{"endpoint"})
)

// StatusClass maps an HTTP status to 2xx/3xx/4xx/5xx, or "error" for transport failures.
func StatusClass(status int) string {
	if status <= 0 {
		return "error"
	}
	return strconv.Itoa(status/100) + "xx"
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
