// Package metrics defines Prometheus counters for session and access
// decisions. Metric names carry the cgm_ prefix and the _total suffix.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Session resolution outcomes.
const (
	OutcomeNoCookie = "no_cookie"
	OutcomeResolved = "resolved"
	OutcomeStale    = "stale"
	OutcomeError    = "error"
)

var (
	// GatekeeperDecisions counts edge decisions by path class and action.
	GatekeeperDecisions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cgm_gatekeeper_decisions_total",
			Help: "Edge gatekeeper decisions by path class and action.",
		},
		[]string{"class", "action"},
	)

	// SessionResolutions counts authoritative session lookups by outcome.
	SessionResolutions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cgm_session_resolutions_total",
			Help: "Authoritative session resolutions by outcome.",
		},
		[]string{"outcome"},
	)

	// AuthorizationDecisions counts per-operation role checks.
	AuthorizationDecisions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cgm_authorization_decisions_total",
			Help: "Role authorization decisions by operation and result.",
		},
		[]string{"operation", "result"},
	)

	// LoginAttempts counts login attempts by result.
	LoginAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cgm_login_attempts_total",
			Help: "Login attempts by result.",
		},
		[]string{"result"},
	)

	// NotificationsPublished counts notifications accepted by the bus.
	NotificationsPublished = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "cgm_notifications_published_total",
			Help: "Notifications published on the notification bus.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		GatekeeperDecisions,
		SessionResolutions,
		AuthorizationDecisions,
		LoginAttempts,
		NotificationsPublished,
	)
}
