package monitoring

import (
	"strconv"
	"sync"
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

	// AICalls outcome: success, failure
	AICalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quiz_ai_calls_total",
			Help: "Outbound AI provider calls",
		},
		[]string{"provider", "outcome"},
	)

	AICallDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "quiz_ai_call_duration_seconds",
			Help:    "Duration of outbound AI provider calls",
			Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"provider"},
	)

	// AICacheHits layer: memory, redis, database
	AICacheHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quiz_ai_cache_hits_total",
			Help: "AI explanation cache hits by layer",
		},
		[]string{"layer"},
	)

	// ImportedFiles outcome: imported, duplicate, failed
	ImportedFiles = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quiz_import_files_total",
			Help: "Question bank files processed by import",
		},
		[]string{"outcome"},
	)

	ProgressObservers = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "quiz_progress_observers",
			Help: "Active progress observers",
		},
	)
)

var registerOnce sync.Once

func Init() {
	registerOnce.Do(func() {
		prometheus.MustRegister(RequestCounter)
		prometheus.MustRegister(RequestDuration)
		prometheus.MustRegister(AICalls)
		prometheus.MustRegister(AICallDuration)
		prometheus.MustRegister(AICacheHits)
		prometheus.MustRegister(ImportedFiles)
		prometheus.MustRegister(ProgressObservers)
	})
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

// ObserveAICall 记录一次 AI 调用的结果与耗时
func ObserveAICall(provider string, start time.Time, err error) {
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	AICalls.WithLabelValues(provider, outcome).Inc()
	AICallDuration.WithLabelValues(provider).Observe(time.Since(start).Seconds())
}

func PrometheusHandler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
