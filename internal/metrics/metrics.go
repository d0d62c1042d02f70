package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tripwise",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "tripwise",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "path"},
	)

	wsConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "tripwise",
			Subsystem: "notify",
			Name:      "connections",
			Help:      "Live websocket connections registered in the hub.",
		},
	)

	pushes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tripwise",
			Subsystem: "notify",
			Name:      "pushes_total",
			Help:      "Per-connection notification sends by outcome.",
		},
		[]string{"outcome"},
	)

	formTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tripwise",
			Subsystem: "forms",
			Name:      "transitions_total",
			Help:      "Travel form status transitions.",
		},
		[]string{"kind", "status"},
	)
)

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		httpRequests,
		httpDuration,
		wsConnections,
		pushes,
		formTransitions,
	)
}

// Handler exposes the registry in the Prometheus text format.
func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.HandlerFor(Registry, promhttp.HandlerOpts{}))
}

// Middleware records request counts and latencies keyed by route template.
func Middleware() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		start := time.Now()

		ctx.Next()

		path := ctx.FullPath()
		if path == "" {
			path = "unmatched"
		}

		httpRequests.WithLabelValues(ctx.Request.Method, path, strconv.Itoa(ctx.Writer.Status())).Inc()
		httpDuration.WithLabelValues(ctx.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}

func ConnectionOpened() { wsConnections.Inc() }
func ConnectionClosed() { wsConnections.Dec() }

const (
	PushDelivered = "delivered"
	PushSkipped   = "skipped"
	PushFailed    = "failed"
)

func RecordPush(outcome string) {
	pushes.WithLabelValues(outcome).Inc()
}

func RecordFormTransition(kind, status string) {
	formTransitions.WithLabelValues(kind, status).Inc()
}
