package obs

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	domainbooking "venuebook/internal/domain/booking"
)

// Metrics holds the service's prometheus collectors on a private registry.
type Metrics struct {
	registry     *prometheus.Registry
	outcomes     *prometheus.CounterVec
	storeLatency *prometheus.HistogramVec
	httpDuration *prometheus.HistogramVec
	outboxEvents *prometheus.CounterVec
	staleMarks   prometheus.Counter
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		outcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "venuebook",
			Name:      "booking_outcomes_total",
			Help:      "Booking attempts by terminal state and failure reason.",
		}, []string{"state", "reason"}),
		storeLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "venuebook",
			Name:      "booking_store_seconds",
			Help:      "Latency of booking store calls.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"result"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "venuebook",
			Name:      "http_request_seconds",
			Help:      "HTTP request duration by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
		outboxEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "venuebook",
			Name:      "outbox_events_total",
			Help:      "Outbox events by result.",
		}, []string{"result"}),
		staleMarks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "venuebook",
			Name:      "views_marked_stale_total",
			Help:      "Open views flagged stale by remote booking events.",
		}),
	}
	m.registry.MustRegister(
		m.outcomes, m.storeLatency, m.httpDuration, m.outboxEvents, m.staleMarks,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) ObserveOutcome(state domainbooking.State, reason domainbooking.Reason) {
	m.outcomes.WithLabelValues(string(state), string(reason)).Inc()
}

func (m *Metrics) ObserveStoreCall(elapsed time.Duration, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.storeLatency.WithLabelValues(result).Observe(elapsed.Seconds())
}

func (m *Metrics) ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	m.httpDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(elapsed.Seconds())
}

func (m *Metrics) OutboxPublished(n int) {
	m.outboxEvents.WithLabelValues("published").Add(float64(n))
}

func (m *Metrics) OutboxFailed() {
	m.outboxEvents.WithLabelValues("failed").Inc()
}

func (m *Metrics) ViewsMarkedStale(n int) {
	m.staleMarks.Add(float64(n))
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
