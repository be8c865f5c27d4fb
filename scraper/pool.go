package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aluiziolira/go-scrape-offers/models"
	"golang.org/x/sync/errgroup"
)

// RowExtractor turns an offer page body into a normalized row.
type RowExtractor interface {
	Extract(body []byte) (models.Row, error)
}

// OfferPool fetches and extracts offer pages with bounded concurrency.
type OfferPool struct {
	tracker     *tracker
	extractor   RowExtractor
	concurrency int
	delay       time.Duration
}

// NewOfferPool builds a pool running at most concurrency fetches at once.
// delay is slept after every successful extraction.
func NewOfferPool(extractor RowExtractor, concurrency int, delay time.Duration, opts ...Option) (*OfferPool, error) {
	o := buildOptions(opts)
	if o.fetcher == nil {
		return nil, fmt.Errorf("offer pool requires a fetcher")
	}
	if concurrency <= 0 {
		return nil, fmt.Errorf("concurrency must be positive")
	}
	return &OfferPool{
		tracker:     newTracker(o.fetcher, o.metrics, o.logger),
		extractor:   extractor,
		concurrency: concurrency,
		delay:       delay,
	}, nil
}

// FetchAll fetches every URL and returns the rows that were extracted.
// A failing URL is logged and dropped without affecting the others. The
// call returns once every URL has been resolved.
func (p *OfferPool) FetchAll(ctx context.Context, urls []string) []models.Row {
	if len(urls) == 0 {
		return nil
	}

	// Each task writes only its own slot.
	slots := make([]models.Row, len(urls))
	done := make([]bool, len(urls))

	var g errgroup.Group
	g.SetLimit(min(p.concurrency, len(urls)))
	for i, url := range urls {
		g.Go(func() error {
			row, err := p.fetchOffer(ctx, url)
			if err != nil {
				category := p.tracker.recordError(err)
				p.tracker.metrics.offerDropped()
				p.tracker.logger.Error("dropping offer",
					slog.String("url", url),
					slog.String("category", category),
					slog.Any("error", err),
				)
				return nil
			}
			slots[i] = row
			done[i] = true
			return nil
		})
	}
	_ = g.Wait()

	rows := make([]models.Row, 0, len(urls))
	for i, ok := range done {
		if ok {
			rows = append(rows, slots[i])
		}
	}
	return rows
}

func (p *OfferPool) fetchOffer(ctx context.Context, url string) (models.Row, error) {
	body, err := p.tracker.fetch(ctx, phaseOffer, url)
	if err != nil {
		return models.Row{}, err
	}
	row, err := p.extractor.Extract(body)
	if err != nil {
		return models.Row{}, fmt.Errorf("extract %s: %w", url, err)
	}
	p.tracker.metrics.offerScraped()
	pause(ctx, p.delay)
	return row, nil
}
