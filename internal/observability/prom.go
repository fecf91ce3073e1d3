package observability

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "coursehub"

// Prom holds every collector the API exports. Build one per registry.
type Prom struct {
	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
	httpInFlight prometheus.Gauge

	dbDuration *prometheus.HistogramVec
	dbErrors   *prometheus.CounterVec

	transitions *prometheus.CounterVec
	rejections  *prometheus.CounterVec
}

func NewProm(reg prometheus.Registerer) *Prom {
	f := promauto.With(reg)

	return &Prom{
		httpRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route template and status.",
		}, []string{"method", "route", "status"}),
		httpDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route template.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
		httpInFlight: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "http_in_flight_requests",
			Help:      "Requests currently being served.",
		}),

		dbDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "db",
			Name:      "query_duration_seconds",
			Help:      "Repository call latency by logical op and status (ok|miss|error).",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{"op", "status"}),
		dbErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "db",
			Name:      "errors_total",
			Help:      "Repository errors by logical op and class.",
		}, []string{"op", "class"}),

		transitions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "enrollment",
			Name:      "transitions_total",
			Help:      "Enroll and unenroll attempts by outcome.",
		}, []string{"op", "result"}),
		rejections: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "gate",
			Name:      "rejections_total",
			Help:      "Requests stopped by the auth or role gate.",
		}, []string{"stage", "reason"}),
	}
}

// ObserveTransition records one enrollment attempt. Anomaly results mean a
// concurrent unenroll won the delete.
func (p *Prom) ObserveTransition(op, result string) {
	p.transitions.WithLabelValues(op, result).Inc()
}

func (p *Prom) ObserveRejection(stage, reason string) {
	p.rejections.WithLabelValues(stage, reason).Inc()
}

// HTTPMiddleware labels by route template so path ids do not explode
// cardinality. Unrouted requests share the "unmatched" label.
func (p *Prom) HTTPMiddleware() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		p.httpInFlight.Inc()
		defer p.httpInFlight.Dec()

		start := time.Now()
		ctx.Next()

		route := ctx.FullPath()
		if route == "" {
			route = "unmatched"
		}
		labels := prometheus.Labels{
			"method": ctx.Request.Method,
			"route":  route,
			"status": strconv.Itoa(ctx.Writer.Status()),
		}
		p.httpRequests.With(labels).Inc()
		p.httpDuration.With(labels).Observe(time.Since(start).Seconds())
	}
}
