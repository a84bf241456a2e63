package metrics

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type HTTPServerMetrics struct {
	registry *prometheus.Registry

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	recommendationsTotal *prometheus.CounterVec
	safetyBlocksTotal    *prometheus.CounterVec
	fallbackAnswersTotal *prometheus.CounterVec
	candidateCount       *prometheus.HistogramVec
	recommendDuration    *prometheus.HistogramVec
}

func NewHTTPServerMetrics(service string) *HTTPServerMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "slib",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "slib",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "slib",
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	recommendationsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "slib",
			Subsystem: "recommend",
			Name:      "requests_total",
			Help:      "Total completed recommendations by retrieval confidence.",
		},
		[]string{"service", "confidence"},
	)
	safetyBlocksTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "slib",
			Subsystem: "recommend",
			Name:      "safety_blocks_total",
			Help:      "Total queries refused by the safety gate.",
		},
		[]string{"service"},
	)
	fallbackAnswersTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "slib",
			Subsystem: "recommend",
			Name:      "fallback_answers_total",
			Help:      "Total answers assembled by the deterministic fallback path.",
		},
		[]string{"service"},
	)
	candidateCount := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "slib",
			Subsystem: "recommend",
			Name:      "candidates",
			Help:      "Distribution of candidates returned per recommendation.",
			Buckets:   []float64{0, 1, 2, 3, 5, 8},
		},
		[]string{"service"},
	)
	recommendDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "slib",
			Subsystem: "recommend",
			Name:      "duration_seconds",
			Help:      "End-to-end recommendation duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service"},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		recommendationsTotal,
		safetyBlocksTotal,
		fallbackAnswersTotal,
		candidateCount,
		recommendDuration,
	)

	return &HTTPServerMetrics{
		registry:             registry,
		requestTotal:         requestTotal,
		requestDuration:      requestDuration,
		requestInFlight:      requestInFlight,
		recommendationsTotal: recommendationsTotal,
		safetyBlocksTotal:    safetyBlocksTotal,
		fallbackAnswersTotal: fallbackAnswersTotal,
		candidateCount:       candidateCount,
		recommendDuration:    recommendDuration,
	}
}

func (m *HTTPServerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *HTTPServerMetrics) Middleware(service string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		m.requestInFlight.Inc()
		defer m.requestInFlight.Dec()

		next.ServeHTTP(recorder, r)

		m.requestTotal.WithLabelValues(
			service,
			r.Method,
			r.URL.Path,
			strconv.Itoa(recorder.statusCode),
		).Inc()
		m.requestDuration.WithLabelValues(service, r.Method, r.URL.Path).Observe(time.Since(start).Seconds())
	})
}

func (m *HTTPServerMetrics) RecordRecommendation(service, confidence string, candidates int, duration time.Duration) {
	if confidence == "" {
		confidence = "unknown"
	}
	m.recommendationsTotal.WithLabelValues(service, confidence).Inc()
	m.candidateCount.WithLabelValues(service).Observe(float64(candidates))
	m.recommendDuration.WithLabelValues(service).Observe(duration.Seconds())
}

func (m *HTTPServerMetrics) RecordSafetyBlock(service string) {
	m.safetyBlocksTotal.WithLabelValues(service).Inc()
}

func (m *HTTPServerMetrics) RecordFallbackAnswer(service string) {
	m.fallbackAnswersTotal.WithLabelValues(service).Inc()
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusRecorder) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *statusRecorder) Flush() {
	flusher, ok := w.ResponseWriter.(http.Flusher)
	if ok {
		flusher.Flush()
	}
}

func (w *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not implement http.Hijacker")
	}
	return hijacker.Hijack()
}

func (w *statusRecorder) Push(target string, opts *http.PushOptions) error {
	pusher, ok := w.ResponseWriter.(http.Pusher)
	if !ok {
		return http.ErrNotSupported
	}
	return pusher.Push(target, opts)
}
