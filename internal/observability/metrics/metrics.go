package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	AuthRegistrationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_registrations_total",
			Help: "Total number of registration attempts.",
		},
		[]string{"result"},
	)

	AuthLoginsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_logins_total",
			Help: "Total number of login attempts.",
		},
		[]string{"result"},
	)

	SessionsIssuedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_sessions_issued_total",
			Help: "Total number of session tokens signed.",
		},
		[]string{"result"},
	)

	AuthenticationAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "authentication_attempts_total",
			Help: "Bearer session checks on protected routes.",
		},
		[]string{"result"},
	)

	DeviceEnrollmentsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "device_enrollments_total",
			Help: "Device enrollment calls by outcome (created, refreshed, failure).",
		},
		[]string{"outcome"},
	)

	LocationsRecordedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "locations_recorded_total",
			Help: "Location reports received from devices.",
		},
		[]string{"result"},
	)

	CommandsDispatchedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "commands_dispatched_total",
			Help: "Commands dispatched by type and resulting status.",
		},
		[]string{"type", "status"},
	)

	PushHandoffDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "push_handoff_duration_seconds",
			Help:    "Latency of handing a command to the push transport.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"result"},
	)
)

// MustRegister registers every collector on reg with a constant service
// label. Collectors stay usable when never registered (tests, CLI).
func MustRegister(reg prometheus.Registerer, serviceName string) {
	prometheus.WrapRegistererWith(prometheus.Labels{"service": serviceName}, reg).MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDurationSeconds,
		AuthRegistrationsTotal,
		AuthLoginsTotal,
		SessionsIssuedTotal,
		AuthenticationAttemptsTotal,
		DeviceEnrollmentsTotal,
		LocationsRecordedTotal,
		CommandsDispatchedTotal,
		PushHandoffDurationSeconds,
	)
}
