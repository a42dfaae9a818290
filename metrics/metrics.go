package metrics

import (
	"net/http"
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
			Namespace: "blaze",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "blaze",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10),
		},
		[]string{"method", "path"},
	)

	EmailsSent = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "blaze",
			Subsystem: "email",
			Name:      "sends_total",
			Help:      "Email send attempts by template and outcome.",
		},
		[]string{"template", "status"},
	)

	CampaignRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "blaze",
			Subsystem: "campaign",
			Name:      "runs_total",
			Help:      "Drip campaign runs by audience and outcome.",
		},
		[]string{"audience", "status"},
	)

	Signups = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "blaze",
			Subsystem: "waitlist",
			Name:      "signups_total",
			Help:      "New waitlist signups.",
		},
	)

	CommittedUSD = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "blaze",
			Subsystem: "presale",
			Name:      "committed_usd_total",
			Help:      "Sum of USD committed through the presale funnel.",
		},
	)
)

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		httpRequests,
		httpDuration,
		EmailsSent,
		CampaignRuns,
		Signups,
		CommittedUSD,
	)
}

// Handler exposes the registry in Prometheus text format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// Middleware records request counts and latency per route template.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		httpRequests.WithLabelValues(c.Request.Method, path, strconv.Itoa(c.Writer.Status())).Inc()
		httpDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}
