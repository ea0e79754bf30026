package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	requestTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lingspeech_http_requests_total",
			Help: "Total HTTP requests handled, by service, path and status.",
		},
		[]string{"service", "path", "status"},
	)
	requestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "lingspeech_http_request_duration_seconds",
			Help:    "HTTP request latency, by service and path.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"service", "path"},
	)
)

func init() {
	prometheus.MustRegister(requestTotal, requestDuration)
}

// Metrics records per-request counters and latency for a service.
func Metrics(service string) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		requestTotal.WithLabelValues(service, path, strconv.Itoa(c.Writer.Status())).Inc()
		requestDuration.WithLabelValues(service, path).Observe(time.Since(start).Seconds())
	}
}

// RegisterMetricsRoute exposes the Prometheus scrape endpoint.
func RegisterMetricsRoute(engine *gin.Engine) {
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))
}
