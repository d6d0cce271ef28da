package observability

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics stores Prometheus collectors used by the API and delivery flows.
type Metrics struct {
	registry *prometheus.Registry

	httpRequestsTotal       *prometheus.CounterVec
	httpRequestDuration     *prometheus.HistogramVec
	webhooksDeliveredTotal  *prometheus.CounterVec
	webhooksFailedTotal     *prometheus.CounterVec
	webhookDeliveryDuration *prometheus.HistogramVec
	webhookRetriesTotal     *prometheus.CounterVec
	eventsPublishedTotal    *prometheus.CounterVec
	workerInflight          *prometheus.GaugeVec
}

func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "integration_engine",
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests processed by method, path, and status.",
			},
			[]string{"method", "path", "status"},
		),
		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "integration_engine",
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds by method and path.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		webhooksDeliveredTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "integration_engine",
				Name:      "webhooks_delivered_total",
				Help:      "Total number of webhook deliveries that reached a 2xx response.",
			},
			[]string{"event"},
		),
		webhooksFailedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "integration_engine",
				Name:      "webhooks_failed_total",
				Help:      "Total number of webhook deliveries that exhausted all attempts.",
			},
			[]string{"event", "reason"},
		),
		webhookDeliveryDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "integration_engine",
				Name:      "webhook_delivery_duration_seconds",
				Help:      "Single webhook attempt duration in seconds grouped by event.",
				Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
			},
			[]string{"event"},
		),
		webhookRetriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "integration_engine",
				Name:      "webhook_retries_total",
				Help:      "Total number of webhook delivery attempts scheduled for retry.",
			},
			[]string{"event"},
		),
		eventsPublishedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "integration_engine",
				Name:      "events_published_total",
				Help:      "Total number of platform events published to the event bus.",
			},
			[]string{"event"},
		),
		workerInflight: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "integration_engine",
				Name:      "worker_inflight",
				Help:      "Current number of in-flight dispatch worker operations.",
			},
			[]string{"queue"},
		),
	}

	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequestsTotal,
		m.httpRequestDuration,
		m.webhooksDeliveredTotal,
		m.webhooksFailedTotal,
		m.webhookDeliveryDuration,
		m.webhookRetriesTotal,
		m.eventsPublishedTotal,
		m.workerInflight,
	)

	return m
}

func (m *Metrics) Handler() http.Handler {
	if m == nil || m.registry == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) HTTPMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		path := routePath(c)
		// Avoid self-scrape noise for request counters.
		if path == "/metrics" {
			return err
		}

		m.recordHTTPRequest(c.Method(), path, statusFromResult(c, err), time.Since(start))
		return err
	}
}

func (m *Metrics) IncWebhookDelivered(event string) {
	if m == nil {
		return
	}
	m.webhooksDeliveredTotal.WithLabelValues(normalizeEvent(event)).Inc()
}

func (m *Metrics) IncWebhookFailed(event string, reason string) {
	if m == nil {
		return
	}
	reasonLabel := strings.TrimSpace(strings.ToLower(reason))
	if reasonLabel == "" {
		reasonLabel = "unknown"
	}
	m.webhooksFailedTotal.WithLabelValues(normalizeEvent(event), reasonLabel).Inc()
}

func (m *Metrics) ObserveWebhookDeliveryDuration(event string, duration time.Duration) {
	if m == nil {
		return
	}
	seconds := duration.Seconds()
	if seconds < 0 {
		seconds = 0
	}
	m.webhookDeliveryDuration.WithLabelValues(normalizeEvent(event)).Observe(seconds)
}

func (m *Metrics) IncWebhookRetryScheduled(event string) {
	if m == nil {
		return
	}
	m.webhookRetriesTotal.WithLabelValues(normalizeEvent(event)).Inc()
}

func (m *Metrics) IncEventPublished(event string) {
	if m == nil {
		return
	}
	m.eventsPublishedTotal.WithLabelValues(normalizeEvent(event)).Inc()
}

func (m *Metrics) IncWorkerInFlight(queue string) {
	if m == nil {
		return
	}
	m.workerInflight.WithLabelValues(queue).Inc()
}

func (m *Metrics) DecWorkerInFlight(queue string) {
	if m == nil {
		return
	}
	m.workerInflight.WithLabelValues(queue).Dec()
}

func (m *Metrics) recordHTTPRequest(method string, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}

	methodLabel := strings.ToUpper(strings.TrimSpace(method))
	if methodLabel == "" {
		methodLabel = "UNKNOWN"
	}
	pathLabel := strings.TrimSpace(path)
	if pathLabel == "" {
		pathLabel = "unmatched"
	}

	m.httpRequestsTotal.WithLabelValues(methodLabel, pathLabel, strconv.Itoa(status)).Inc()
	m.httpRequestDuration.WithLabelValues(methodLabel, pathLabel).Observe(duration.Seconds())
}

func routePath(c *fiber.Ctx) string {
	if c == nil {
		return "unmatched"
	}

	if route := c.Route(); route != nil {
		if path := strings.TrimSpace(route.Path); path != "" {
			return path
		}
	}
	return "unmatched"
}

func statusFromResult(c *fiber.Ctx, err error) int {
	if err != nil {
		if fiberErr, ok := err.(*fiber.Error); ok {
			return fiberErr.Code
		}
		return fiber.StatusInternalServerError
	}

	if c == nil {
		return fiber.StatusOK
	}

	status := c.Response().StatusCode()
	if status == 0 {
		return fiber.StatusOK
	}
	return status
}

func normalizeEvent(event string) string {
	normalized := strings.ToLower(strings.TrimSpace(event))
	if normalized == "" {
		return "unknown"
	}
	return normalized
}
