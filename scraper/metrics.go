package scraper

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Request phases used as the "phase" label.
const (
	phaseRoot  = "root"
	phasePage  = "page"
	phaseOffer = "offer"
)

const metricsNamespace = "offers_scraper"

// Metrics bundles the Prometheus collectors updated during a crawl. All
// methods are safe on a nil *Metrics.
type Metrics struct {
	Registry        *prometheus.Registry
	Requests        *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	OffersScraped   prometheus.Counter
	OffersDropped   prometheus.Counter
	PagesCrawled    prometheus.Counter
	Errors          *prometheus.CounterVec
}

// NewMetrics registers every collector on a dedicated registry, so several
// scrapers can coexist in one process.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		Registry: registry,
		Requests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "requests_total",
			Help:      "HTTP requests issued, by crawl phase.",
		}, []string{"phase"}),
		RequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency, by crawl phase.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 9),
		}, []string{"phase"}),
		OffersScraped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "offers_total",
			Help:      "Offers extracted into rows.",
		}),
		OffersDropped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "offers_dropped_total",
			Help:      "Offer links that contributed no row.",
		}),
		PagesCrawled: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "catalog_pages_total",
			Help:      "Catalog result pages visited.",
		}),
		Errors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "errors_total",
			Help:      "Contained failures, by error type.",
		}, []string{"error_type"}),
	}
}

func (m *Metrics) observeRequest(phase string, d time.Duration) {
	if m == nil {
		return
	}
	m.Requests.WithLabelValues(phase).Inc()
	m.RequestDuration.WithLabelValues(phase).Observe(d.Seconds())
}

func (m *Metrics) offerScraped() {
	if m != nil {
		m.OffersScraped.Inc()
	}
}

func (m *Metrics) offerDropped() {
	if m != nil {
		m.OffersDropped.Inc()
	}
}

func (m *Metrics) pageCrawled() {
	if m != nil {
		m.PagesCrawled.Inc()
	}
}

func (m *Metrics) failure(errorType string) {
	if m != nil {
		m.Errors.WithLabelValues(errorType).Inc()
	}
}
