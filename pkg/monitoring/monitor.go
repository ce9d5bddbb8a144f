package monitoring

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "quiz"

// Metrics holds the service collectors. A nil *Metrics records nothing.
type Metrics struct {
	registry prometheus.Gatherer

	RequestCounter  *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	ResultsSubmitted prometheus.Counter
	ResultScore      prometheus.Histogram
	QuestionSetSaves *prometheus.CounterVec
	StoreErrors      *prometheus.CounterVec
	CacheLookups     *prometheus.CounterVec
}

// New creates the collectors and registers them with reg.
func New(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		registry: reg,
		RequestCounter: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "Duration of HTTP requests",
				Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5},
			},
			[]string{"method", "endpoint"},
		),
		ResultsSubmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "results_submitted_total",
			Help:      "Number of graded test submissions",
		}),
		ResultScore: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "result_score_percent",
			Help:      "Distribution of submission scores",
			Buckets:   prometheus.LinearBuckets(0, 10, 11),
		}),
		QuestionSetSaves: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "question_set_saves_total",
				Help:      "Question set save attempts by outcome",
			},
			[]string{"outcome"},
		),
		StoreErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "store_errors_total",
				Help:      "Failed calls to the persistence store",
			},
			[]string{"operation"},
		),
		CacheLookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_lookups_total",
				Help:      "Question set cache lookups by result",
			},
			[]string{"result"},
		),
	}

	reg.MustRegister(
		m.RequestCounter,
		m.RequestDuration,
		m.ResultsSubmitted,
		m.ResultScore,
		m.QuestionSetSaves,
		m.StoreErrors,
		m.CacheLookups,
	)
	return m
}

func (m *Metrics) ObserveResult(score float64) {
	if m == nil {
		return
	}
	m.ResultsSubmitted.Inc()
	m.ResultScore.Observe(score)
}

// ObserveSave records a question set save; outcome is saved, invalid or failed.
func (m *Metrics) ObserveSave(outcome string) {
	if m == nil {
		return
	}
	m.QuestionSetSaves.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveStoreError(operation string) {
	if m == nil {
		return
	}
	m.StoreErrors.WithLabelValues(operation).Inc()
}

func (m *Metrics) ObserveCache(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheLookups.WithLabelValues(result).Inc()
}

func (m *Metrics) MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		if m == nil {
			return
		}
		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unmatched"
		}

		m.RequestCounter.WithLabelValues(
			c.Request.Method,
			endpoint,
			strconv.Itoa(c.Writer.Status()),
		).Inc()

		m.RequestDuration.WithLabelValues(
			c.Request.Method,
			endpoint,
		).Observe(time.Since(start).Seconds())
	}
}

func (m *Metrics) PrometheusHandler() gin.HandlerFunc {
	var gatherer prometheus.Gatherer = prometheus.DefaultGatherer
	if m != nil && m.registry != nil {
		gatherer = m.registry
	}
	h := promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
