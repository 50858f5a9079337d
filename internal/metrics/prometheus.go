package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "numberadder"

// PrometheusRecorder exports metrics from a private registry.
type PrometheusRecorder struct {
	registry *prometheus.Registry

	authAttempts    *prometheus.CounterVec
	registrations   prometheus.Counter
	logins          *prometheus.CounterVec
	upgrades        prometheus.Counter
	apiKeys         *prometheus.CounterVec
	erasures        prometheus.Counter
	calculations    *prometheus.CounterVec
	httpRequests    *prometheus.CounterVec
	httpDuration    *prometheus.HistogramVec
	eventsPublished *prometheus.CounterVec
	eventsProcessed *prometheus.CounterVec
	batchSize       prometheus.Histogram
	batchDuration   prometheus.Histogram
	queueDepth      prometheus.Gauge
}

// NewPrometheus builds a recorder with its own registry, including Go and process collectors.
func NewPrometheus() *PrometheusRecorder {
	p := &PrometheusRecorder{
		registry: prometheus.NewRegistry(),
		authAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "auth", Name: "attempts_total",
			Help: "Authentication attempts by outcome.",
		}, []string{"outcome"}),
		registrations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "accounts", Name: "registrations_total",
			Help: "Accounts registered.",
		}),
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "accounts", Name: "logins_total",
			Help: "Password logins by status.",
		}, []string{"status"}),
		upgrades: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "accounts", Name: "upgrades_total",
			Help: "Premium upgrades applied.",
		}),
		apiKeys: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "accounts", Name: "api_key_changes_total",
			Help: "API key issuance, revocation and failed cache invalidation.",
		}, []string{"action"}),
		erasures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "accounts", Name: "erasures_total",
			Help: "Accounts erased.",
		}),
		calculations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "gateway", Name: "calculations_total",
			Help: "Gated operations by operation and status.",
		}, []string{"operation", "status"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "http", Name: "requests_total",
			Help: "Total number of HTTP requests handled.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "http", Name: "request_duration_seconds",
			Help:    "Duration of HTTP requests.",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		}, []string{"method", "route"}),
		eventsPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "analytics", Name: "events_published_total",
			Help: "Analytics events published by status.",
		}, []string{"status"}),
		eventsProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "analytics", Name: "events_processed_total",
			Help: "Analytics events processed by status.",
		}, []string{"status"}),
		batchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "analytics", Name: "batch_size",
			Help:    "Analytics batch sizes.",
			Buckets: prometheus.LinearBuckets(0, 10, 11),
		}),
		batchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "analytics", Name: "batch_duration_seconds",
			Help:    "Analytics batch processing duration.",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		}),
		queueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "analytics", Name: "queue_depth",
			Help: "Pending analytics messages.",
		}),
	}

	p.registry.MustRegister(
		p.authAttempts,
		p.registrations,
		p.logins,
		p.upgrades,
		p.apiKeys,
		p.erasures,
		p.calculations,
		p.httpRequests,
		p.httpDuration,
		p.eventsPublished,
		p.eventsProcessed,
		p.batchSize,
		p.batchDuration,
		p.queueDepth,
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)
	return p
}

// Handler returns an HTTP handler exposing the registered metrics.
func (p *PrometheusRecorder) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry.
func (p *PrometheusRecorder) Registry() *prometheus.Registry {
	return p.registry
}

func (p *PrometheusRecorder) IncAuthAttempt(outcome string) {
	p.authAttempts.WithLabelValues(outcome).Inc()
}

func (p *PrometheusRecorder) IncRegistration() { p.registrations.Inc() }

func (p *PrometheusRecorder) IncLogin(status string) {
	p.logins.WithLabelValues(status).Inc()
}

func (p *PrometheusRecorder) IncUpgrade() { p.upgrades.Inc() }

func (p *PrometheusRecorder) IncAPIKeyIssued() { p.apiKeys.WithLabelValues("issued").Inc() }

func (p *PrometheusRecorder) IncAPIKeyRevoked() { p.apiKeys.WithLabelValues("revoked").Inc() }

func (p *PrometheusRecorder) IncAPIKeyInvalidationFailed() {
	p.apiKeys.WithLabelValues("invalidation_failed").Inc()
}

func (p *PrometheusRecorder) IncAccountErased() { p.erasures.Inc() }

func (p *PrometheusRecorder) IncCalculation(op, status string) {
	p.calculations.WithLabelValues(op, status).Inc()
}

func (p *PrometheusRecorder) ObserveHTTPRequest(method, route string, status int, duration time.Duration) {
	p.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	p.httpDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

func (p *PrometheusRecorder) IncAnalyticsEventPublished(status string) {
	p.eventsPublished.WithLabelValues(status).Inc()
}

func (p *PrometheusRecorder) IncAnalyticsEventProcessed(status string) {
	p.eventsProcessed.WithLabelValues(status).Inc()
}

func (p *PrometheusRecorder) ObserveAnalyticsBatchSize(size int) {
	p.batchSize.Observe(float64(size))
}

func (p *PrometheusRecorder) ObserveAnalyticsBatchDuration(duration time.Duration) {
	p.batchDuration.Observe(duration.Seconds())
}

func (p *PrometheusRecorder) SetAnalyticsQueueDepth(depth int64) {
	p.queueDepth.Set(float64(depth))
}
