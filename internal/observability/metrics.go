package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	clientTransacts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cryptochan",
			Subsystem: "client",
			Name:      "transacts_total",
			Help:      "Client operations by opcode and outcome kind.",
		},
		[]string{"op", "outcome"},
	)
	clientDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "cryptochan",
			Subsystem: "client",
			Name:      "transact_duration_seconds",
			Help:      "Client round-trip duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"op"},
	)
	serverRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cryptochan",
			Subsystem: "server",
			Name:      "requests_total",
			Help:      "Server requests by opcode and response status.",
		},
		[]string{"op", "status"},
	)
	serverSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "cryptochan",
			Subsystem: "server",
			Name:      "active_sessions",
			Help:      "Streaming hash sessions currently open (0 or 1).",
		},
	)
	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cryptochan",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Admin HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "cryptochan",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Admin HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(clientTransacts, clientDuration, serverRequests, serverSessions, httpRequests, httpDuration)
	})
}

// RecordClientTransact counts one client operation. outcome is "ok" or the
// client error kind.
func RecordClientTransact(op, outcome string, duration time.Duration) {
	RegisterMetrics()
	clientTransacts.WithLabelValues(op, outcome).Inc()
	clientDuration.WithLabelValues(op).Observe(duration.Seconds())
}

func RecordServerRequest(op, status string) {
	RegisterMetrics()
	serverRequests.WithLabelValues(op, status).Inc()
}

func SetActiveSessions(n int) {
	RegisterMetrics()
	serverSessions.Set(float64(n))
}

func RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(method, path, statusLabel).Inc()
	httpDuration.WithLabelValues(method, path, statusLabel).Observe(duration.Seconds())
}
