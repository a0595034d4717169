package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "educonsent"

// Outcomes of a consent check
const (
	OutcomeGranted = "granted"
	OutcomeDenied  = "denied"
	OutcomeError   = "error"
)

var (
	initOnce sync.Once

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "http_in_flight_requests",
			Help:      "In-flight HTTP requests.",
		},
	)
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests.",
		},
		[]string{
			"method",
			"route",
			"status",
		},
	)
	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latencies in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{
			"method",
			"route",
		},
	)
	consentChecks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "consent_checks_total",
			Help:      "Consent checks by data type and outcome; error means the check failed closed.",
		},
		[]string{
			"data_type",
			"outcome",
		},
	)
	skippedEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "consent_events_skipped_total",
			Help:      "Consent events that could not be decoded and were left out of the history.",
		},
		[]string{"event"},
	)
	logCacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "consent_log_cache_lookups_total",
			Help:      "Consent log cache lookups by result.",
		},
		[]string{"result"},
	)
	buildInfo = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "build_info",
			Help:      "Build information.",
		},
		[]string{"version"},
	)
)

// Init registers all collectors with the default registry; it can be called
// more than once
func Init(version string) {
	initOnce.Do(
		func() {
			prometheus.MustRegister(
				httpInFlight, httpRequestsTotal, httpRequestDuration, consentChecks, skippedEvents,
				logCacheLookups, buildInfo,
			)
		},
	)
	buildInfo.WithLabelValues(version).Set(1)
}

// Handler returns the prometheus http handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// ConsentCheck counts a consent check
func ConsentCheck(dataType, outcome string) {
	consentChecks.WithLabelValues(dataType, outcome).Inc()
}

// SkippedEvent counts an event left out of a consent history
func SkippedEvent(event string) {
	skippedEvents.WithLabelValues(event).Inc()
}

// LogCacheLookup counts a consent log cache lookup; result is one of hit,
// miss or error
func LogCacheLookup(result string) {
	logCacheLookups.WithLabelValues(result).Inc()
}

// Middleware returns a fiber handler recording request count, latency and
// in-flight requests per matched route
func Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		httpInFlight.Inc()
		defer httpInFlight.Dec()
		start := time.Now()

		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			if e, ok := err.(*fiber.Error); ok {
				status = e.Code
			} else {
				status = fiber.StatusInternalServerError
			}
		}
		route := c.Route().Path
		httpRequestDuration.WithLabelValues(c.Method(), route).Observe(time.Since(start).Seconds())
		httpRequestsTotal.WithLabelValues(c.Method(), route, strconv.Itoa(status)).Inc()
		return err
	}
}
