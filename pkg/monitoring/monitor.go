package monitoring

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: []float64{0.1, 0.5, 1, 2, 5},
		},
		[]string{"method", "endpoint"},
	)

	SessionsStarted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "interview_sessions_started_total",
			Help: "Interview sessions created",
		},
	)

	SessionsCompleted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "interview_sessions_completed_total",
			Help: "Interview sessions that reached completion",
		},
	)

	// Evaluations by path: model, strong_match, fallback.
	Evaluations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "interview_evaluations_total",
			Help: "Answer evaluations by outcome path",
		},
		[]string{"outcome"},
	)

	TranscriptionFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "interview_transcription_failures_total",
			Help: "Audio transcriptions that degraded to an empty transcript",
		},
	)

	FollowupsServed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "interview_followups_served_total",
			Help: "Follow-up questions served",
		},
	)
)

func Init() {
	prometheus.MustRegister(RequestCounter)
	prometheus.MustRegister(RequestDuration)
	prometheus.MustRegister(SessionsStarted)
	prometheus.MustRegister(SessionsCompleted)
	prometheus.MustRegister(Evaluations)
	prometheus.MustRegister(TranscriptionFailures)
	prometheus.MustRegister(FollowupsServed)
}

func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		duration := time.Since(start).Seconds()
		status := c.Writer.Status()

		RequestCounter.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			strconv.Itoa(status),
		).Inc()

		RequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
		).Observe(duration)
	}
}

func PrometheusHandler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
