package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "autoservice"

var (
	once sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status code.",
		},
		[]string{"route", "code"},
	)

	bookingsCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bookings_created_total",
			Help:      "Bookings accepted from the public form.",
		},
	)

	validationFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "booking_validation_failures_total",
			Help:      "Form submissions rejected by validation.",
		},
	)

	statusChanges = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "booking_status_changes_total",
			Help:      "Booking status updates by target status and result.",
		},
		[]string{"status", "result"},
	)

	consoleReloads = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "console_reloads_total",
			Help:      "Admin console snapshot reloads by result (applied, stale, error).",
		},
		[]string{"result"},
	)

	consoleSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "console_sessions",
			Help:      "Open admin console sessions.",
		},
	)

	syncTasks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sheets_sync_tasks_total",
			Help:      "Sheets sync task outcomes (completed, retry, failed).",
		},
		[]string{"result"},
	)
)

// Register registers Prometheus metrics. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(
			httpRequests,
			bookingsCreated,
			validationFailures,
			statusChanges,
			consoleReloads,
			consoleSessions,
			syncTasks,
		)
	})
}

// IncHTTP increments the request counter for a route pattern and status code.
func IncHTTP(route, code string) {
	httpRequests.WithLabelValues(route, code).Inc()
}

func IncBookingCreated() {
	bookingsCreated.Inc()
}

func IncValidationFailure() {
	validationFailures.Inc()
}

func IncStatusChange(status, result string) {
	statusChanges.WithLabelValues(status, result).Inc()
}

func IncConsoleReload(result string) {
	consoleReloads.WithLabelValues(result).Inc()
}

func SetConsoleSessions(n int) {
	consoleSessions.Set(float64(n))
}

func IncSyncTask(result string) {
	syncTasks.WithLabelValues(result).Inc()
}
