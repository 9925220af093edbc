package server

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	histogramBuckets = []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10}
)

func (s *Server) initMetrics() {
	s.metricsOnce.Do(func() {
		s.requestTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gamewatch",
			Subsystem: "api",
			Name:      "http_requests_total",
			Help:      "Count of processed HTTP requests",
		}, []string{"method", "route", "status"})

		s.requestLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "gamewatch",
			Subsystem: "api",
			Name:      "http_request_duration_seconds",
			Help:      "Latency distribution of HTTP handlers",
			Buckets:   histogramBuckets,
		}, []string{"method", "route", "status"})

		collectors := []prometheus.Collector{s.requestTotal, s.requestLatency}
		for _, collector := range collectors {
			if err := prometheus.Register(collector); err != nil {
				if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
					switch v := are.ExistingCollector.(type) {
					case *prometheus.CounterVec:
						s.requestTotal = v
					case *prometheus.HistogramVec:
						s.requestLatency = v
					}
				}
			}
		}
		s.metricsInitialized = true
	})
}

func (s *Server) metricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		s.recordRequestMetrics(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}

func (s *Server) recordRequestMetrics(method, route string, status int, duration time.Duration) {
	if !s.metricsInitialized {
		return
	}
	labels := prometheus.Labels{
		"method": method,
		"route":  route,
		"status": strconv.Itoa(status),
	}
	s.requestTotal.With(labels).Inc()
	s.requestLatency.With(labels).Observe(duration.Seconds())
}
