package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce          sync.Once
	httpRequestsTotal     *prometheus.CounterVec
	httpLatencySeconds    *prometheus.HistogramVec
	httpErrorsTotal       *prometheus.CounterVec
	statusTransitions     *prometheus.CounterVec
	transitionRejections  *prometheus.CounterVec
	notificationsCreated  *prometheus.CounterVec
	emailDeliveries       *prometheus.CounterVec
	notificationListeners prometheus.Gauge
)

// RegisterMetrics initialises the Prometheus collectors used by the API and workflow.
func RegisterMetrics() {
	registerOnce.Do(func() {
		httpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sgpti_http_requests_total",
			Help: "Total number of API requests served.",
		}, []string{"method", "route", "status"})

		httpLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "sgpti_http_latency_seconds",
			Help:    "Latency distribution for API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		httpErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sgpti_http_errors_total",
			Help: "Total number of error responses returned by the API.",
		}, []string{"method", "route", "status"})

		statusTransitions = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sgpti_status_transitions_total",
			Help: "Committed project status transitions.",
		}, []string{"from", "to"})

		transitionRejections = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sgpti_status_transition_rejections_total",
			Help: "Status transitions refused by the workflow policy.",
		}, []string{"reason"})

		notificationsCreated = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sgpti_notifications_created_total",
			Help: "In-app notifications persisted, by event code.",
		}, []string{"code"})

		emailDeliveries = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sgpti_email_deliveries_total",
			Help: "Notification email delivery attempts, by outcome.",
		}, []string{"outcome"})

		notificationListeners = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "sgpti_notification_stream_listeners",
			Help: "Open notification stream subscriptions on this node.",
		})

		prometheus.MustRegister(
			httpRequestsTotal,
			httpLatencySeconds,
			httpErrorsTotal,
			statusTransitions,
			transitionRejections,
			notificationsCreated,
			emailDeliveries,
			notificationListeners,
		)
	})
}

// HTTPRequests exposes the counter for API requests.
func HTTPRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return httpRequestsTotal
}

// HTTPLatency exposes the latency histogram for API requests.
func HTTPLatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return httpLatencySeconds
}

// HTTPErrors exposes the counter for error responses.
func HTTPErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return httpErrorsTotal
}

// StatusTransitions exposes the counter of committed transitions.
func StatusTransitions() *prometheus.CounterVec {
	RegisterMetrics()
	return statusTransitions
}

// TransitionRejections exposes the counter of refused transitions.
func TransitionRejections() *prometheus.CounterVec {
	RegisterMetrics()
	return transitionRejections
}

// NotificationsCreated exposes the counter of persisted notifications.
func NotificationsCreated() *prometheus.CounterVec {
	RegisterMetrics()
	return notificationsCreated
}

// EmailDeliveries exposes the counter of email outcomes.
func EmailDeliveries() *prometheus.CounterVec {
	RegisterMetrics()
	return emailDeliveries
}

// NotificationListeners exposes the gauge of open stream subscriptions.
func NotificationListeners() prometheus.Gauge {
	RegisterMetrics()
	return notificationListeners
}
