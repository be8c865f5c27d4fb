package scraper

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// Option configures a Scraper or an OfferPool.
type Option func(*options)

type options struct {
	logger  *slog.Logger
	metrics *Metrics
	fetcher Fetcher
}

// WithLogger sets the logger used for every fetch, page and failure.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithMetrics sets the Prometheus collectors to update.
func WithMetrics(m *Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

// WithFetcher replaces the default colly-backed fetcher.
func WithFetcher(f Fetcher) Option {
	return func(o *options) {
		o.fetcher = f
	}
}

func buildOptions(opts []Option) options {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	if o.metrics == nil {
		o.metrics = NewMetrics()
	}
	return o
}

// tracker wraps a Fetcher with logging, metrics and error accounting. It is
// shared by the crawl driver and its offer pool.
type tracker struct {
	fetcher Fetcher
	metrics *Metrics
	logger  *slog.Logger

	requestCount int64
	errorCount   int64

	mu           sync.Mutex
	errorsByType map[string]int
}

func newTracker(f Fetcher, m *Metrics, logger *slog.Logger) *tracker {
	return &tracker{
		fetcher:      f,
		metrics:      m,
		logger:       logger,
		errorsByType: make(map[string]int),
	}
}

func (t *tracker) fetch(ctx context.Context, phase, url string) ([]byte, error) {
	current := atomic.AddInt64(&t.requestCount, 1)

	level := slog.LevelInfo
	if phase == phaseOffer {
		level = slog.LevelDebug
	}
	t.logger.Log(ctx, level, "fetching",
		slog.String("phase", phase),
		slog.String("url", url),
		slog.Int64("requests", current),
	)

	start := time.Now()
	body, err := t.fetcher.Fetch(ctx, url)
	t.metrics.observeRequest(phase, time.Since(start))
	return body, err
}

// recordError counts err and returns its type label.
func (t *tracker) recordError(err error) string {
	atomic.AddInt64(&t.errorCount, 1)
	category := errorTypeLabel(err)

	t.mu.Lock()
	t.errorsByType[category]++
	t.mu.Unlock()

	t.metrics.failure(category)
	return category
}

func (t *tracker) snapshotErrors() map[string]int {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make(map[string]int, len(t.errorsByType))
	for k, v := range t.errorsByType {
		out[k] = v
	}
	return out
}

// pause sleeps for d or until ctx is done.
func pause(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
