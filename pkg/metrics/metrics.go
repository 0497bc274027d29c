package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "swiftresponse"

var (
	// HTTP
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// Dispatch
	Transitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dispatch_transitions_total",
			Help:      "Committed status transitions",
		},
		[]string{"from", "to", "role"},
	)

	RejectedTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dispatch_rejected_transitions_total",
			Help:      "Transitions rejected before any write",
		},
		[]string{"reason"},
	)

	StatusConflicts = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dispatch_status_conflicts_total",
			Help:      "Compare-and-swap writes that lost a race",
		},
	)

	ActiveEmergencies = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "emergencies_active",
			Help:      "Non-terminal emergencies by status",
		},
		[]string{"status"},
	)

	StalePending = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "emergencies_stale_pending",
			Help:      "Pending emergencies older than the stale threshold",
		},
	)

	// Location broadcasting
	BroadcastWrites = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "broadcast_writes_total",
			Help:      "Location broadcaster writes by outcome",
		},
		[]string{"kind", "outcome"},
	)

	BroadcastRejectedSamples = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "broadcast_rejected_samples_total",
			Help:      "Location samples rejected as no fix",
		},
		[]string{"kind", "reason"},
	)

	// Realtime
	RealtimeEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "realtime_events_total",
			Help:      "Change events folded into views by outcome",
		},
		[]string{"view", "outcome"},
	)

	RealtimeAlerts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "realtime_alerts_total",
			Help:      "User-facing alerts raised",
		},
		[]string{"view"},
	)

	RealtimeSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "realtime_sessions_active",
			Help:      "Open realtime sessions",
		},
	)

	// Countdowns
	Countdowns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "countdowns_total",
			Help:      "Countdowns by outcome",
		},
		[]string{"outcome"},
	)

	// Routing
	RoutingFallbacks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "routing_fallbacks_total",
			Help:      "Straight-line fallbacks used instead of the routing provider",
		},
		[]string{"operation"},
	)

	// Side effects
	SideEffectFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "side_effect_failures_total",
			Help:      "Soft failures of SMS, push and geocoding calls",
		},
		[]string{"kind"},
	)
)

// Middleware records request counts and latency per route.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		HTTPRequests.WithLabelValues(c.Request.Method, path, strconv.Itoa(c.Writer.Status())).Inc()
		HTTPRequestDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}

func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}
