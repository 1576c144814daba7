package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "halyard",
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "halyard",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "route", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "halyard",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "route"},
	)

	feedItems = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "halyard",
			Subsystem: "feeds",
			Name:      "items_ingested_total",
			Help:      "Total number of news items upserted per source.",
		},
		[]string{"source"},
	)

	feedFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "halyard",
			Subsystem: "feeds",
			Name:      "fetch_failures_total",
			Help:      "Total number of failed feed fetches per source.",
		},
		[]string{"source"},
	)

	documentJobs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "halyard",
			Subsystem: "jobs",
			Name:      "documents_total",
			Help:      "Total number of finished document jobs.",
		},
		[]string{"status"},
	)

	documentDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "halyard",
			Subsystem: "jobs",
			Name:      "document_duration_seconds",
			Help:      "Duration of document jobs.",
			Buckets:   prometheus.ExponentialBuckets(0.5, 2, 10), // 0.5s to ~4m
		},
		[]string{"status"},
	)

	documentsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "halyard",
			Subsystem: "jobs",
			Name:      "documents_in_flight",
			Help:      "Current number of running document jobs.",
		},
	)

	rateLimited = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "halyard",
			Subsystem: "http",
			Name:      "rate_limited_total",
			Help:      "Total number of requests rejected by the rate limiter.",
		},
		[]string{"route"},
	)
)

func init() {
	Registry.MustRegister(
		httpInFlight,
		httpRequests,
		httpDuration,
		feedItems,
		feedFailures,
		documentJobs,
		documentDuration,
		documentsInFlight,
		rateLimited,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// InstrumentHandler wraps the provided handler with HTTP metrics collection.
// Requests are labelled by their mux route template to bound cardinality.
func InstrumentHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		httpInFlight.Inc()
		defer httpInFlight.Dec()

		next.ServeHTTP(rec, r)

		route := RouteTemplate(r)
		method := strings.ToUpper(r.Method)

		httpRequests.WithLabelValues(method, route, strconv.Itoa(rec.status)).Inc()
		httpDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
	})
}

// RouteTemplate returns the matched mux path template, or "unmatched".
func RouteTemplate(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tpl, err := route.GetPathTemplate(); err == nil {
			return tpl
		}
	}
	return "unmatched"
}

// RecordFeedFetch records the outcome of fetching one feed source.
func RecordFeedFetch(source string, items int, err error) {
	if err != nil {
		feedFailures.WithLabelValues(source).Inc()
		return
	}
	feedItems.WithLabelValues(source).Add(float64(items))
}

// DocumentStarted tracks a document job entering the runner.
func DocumentStarted() {
	documentsInFlight.Inc()
}

// RecordDocument records a finished document job.
func RecordDocument(status string, duration time.Duration) {
	documentsInFlight.Dec()
	if duration <= 0 {
		duration = time.Millisecond
	}
	documentJobs.WithLabelValues(status).Inc()
	documentDuration.WithLabelValues(status).Observe(duration.Seconds())
}

// RecordRateLimited counts a request rejected by the limiter.
func RecordRateLimited(route string) {
	rateLimited.WithLabelValues(route).Inc()
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.ResponseWriter.Write(b)
}
