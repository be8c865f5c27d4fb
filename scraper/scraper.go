package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/aluiziolira/go-scrape-offers/config"
	"github.com/aluiziolira/go-scrape-offers/models"
	"github.com/aluiziolira/go-scrape-offers/parser"
)

// Crawl states, reported in the "state" log attribute.
const (
	stateFetchingRoot       = "fetching_root"
	statePageCountKnown     = "page_count_known"
	statePageCountDefaulted = "page_count_defaulted"
	stateIteratingPages     = "iterating_pages"
	statePersisting         = "persisting"
	stateIdle               = "idle"
)

// Persister stores the full row set of one manufacturer.
type Persister interface {
	Persist(manufacturer string, rows []models.Row) error
}

// Scraper drives manufacturer crawls: page count discovery, sequential
// page iteration, offer fetching and persistence.
type Scraper struct {
	cfg     *config.Config
	base    *url.URL
	tracker *tracker
	pool    *OfferPool
	sink    Persister
	logger  *slog.Logger
	Metrics *Metrics

	pageCount int64
}

// NewScraper builds a scraper for schema that hands every manufacturer's
// rows to sink.
func NewScraper(cfg *config.Config, schema models.Schema, sink Persister, opts ...Option) (*Scraper, error) {
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if base.Host == "" {
		return nil, fmt.Errorf("base url must include a host")
	}
	if sink == nil {
		return nil, fmt.Errorf("scraper requires a persister")
	}

	o := buildOptions(opts)
	if o.fetcher == nil {
		f, err := NewCollyFetcher(cfg)
		if err != nil {
			return nil, fmt.Errorf("build fetcher: %w", err)
		}
		o.fetcher = f
	}

	t := newTracker(o.fetcher, o.metrics, o.logger)
	return &Scraper{
		cfg:     cfg,
		base:    base,
		tracker: t,
		pool: &OfferPool{
			tracker:     t,
			extractor:   parser.NewOfferExtractor(schema, cfg.Selectors, cfg.Fields),
			concurrency: cfg.Concurrency,
			delay:       cfg.OfferDelay,
		},
		sink:    sink,
		logger:  o.logger,
		Metrics: o.metrics,
	}, nil
}

// Run crawls every manufacturer in order. A failure within one
// manufacturer never stops the others; cancelling ctx stops the run after
// the current manufacturer has been persisted.
func (s *Scraper) Run(ctx context.Context, manufacturers []string) *models.ScraperResult {
	result := &models.ScraperResult{StartTime: time.Now()}

	s.logger.Info("starting scraping manufacturers", slog.Int("manufacturers", len(manufacturers)))
	for _, manufacturer := range manufacturers {
		if ctx.Err() != nil {
			s.logger.Warn("run interrupted, skipping remaining manufacturers", slog.String("next", manufacturer))
			break
		}
		mr, _ := s.CrawlManufacturer(ctx, manufacturer)
		result.Manufacturers = append(result.Manufacturers, mr)
		result.TotalOffers += mr.OfferCount
	}
	s.logger.Info("end of scraping manufacturers", slog.Int("offers", result.TotalOffers))

	result.EndTime = time.Now()
	result.RequestCount = int(atomic.LoadInt64(&s.tracker.requestCount))
	result.ErrorCount = int(atomic.LoadInt64(&s.tracker.errorCount))
	result.ErrorsByType = s.tracker.snapshotErrors()
	result.PageCount = int(atomic.LoadInt64(&s.pageCount))
	return result
}

// CrawlManufacturer crawls every catalog page of one manufacturer and
// persists the collected rows. Fetch and parse failures only shrink the
// crawl; the returned error is non-nil only when persisting failed.
func (s *Scraper) CrawlManufacturer(ctx context.Context, manufacturer string) (*models.ManufacturerResult, error) {
	manufacturer = strings.TrimSpace(manufacturer)
	logger := s.logger.With(slog.String("manufacturer", manufacturer))
	result := &models.ManufacturerResult{Manufacturer: manufacturer, StartTime: time.Now()}

	category := s.categoryURL(manufacturer)
	result.CategoryURL = category.String()
	logger.Info("start of scraping the manufacturer",
		slog.String("state", stateFetchingRoot),
		slog.String("url", result.CategoryURL),
	)

	lastPage, err := s.discoverPageCount(ctx, category)
	if err != nil {
		result.PageCountDefaulted = true
		logger.Error("searching for last page number failed, crawling a single page",
			slog.String("state", statePageCountDefaulted),
			slog.String("category", s.tracker.recordError(err)),
			slog.Any("error", err),
		)
		lastPage = 1
	} else {
		logger.Info("manufacturer page count",
			slog.String("state", statePageCountKnown),
			slog.Int("pages", lastPage),
		)
	}
	result.PageCount = lastPage

	rows := make([]models.Row, 0)
	filter := newLinkFilter(s.cfg.DedupeCacheSize)
	for page := 1; page <= lastPage; page++ {
		if ctx.Err() != nil {
			result.Interrupted = true
			logger.Warn("crawl interrupted, persisting collected offers", slog.Int("page", page))
			break
		}

		links, err := s.pageLinks(ctx, logger, category, page)
		if err != nil {
			result.FailedPages++
			logger.Error("page contributes no links",
				slog.Int("page", page),
				slog.String("category", s.tracker.recordError(err)),
				slog.Any("error", err),
			)
		}
		links = filter.Fresh(links)

		got := s.pool.FetchAll(ctx, links)
		rows = append(rows, got...)
		result.LinkCount += len(links)

		atomic.AddInt64(&s.pageCount, 1)
		s.Metrics.pageCrawled()
		logger.Info("page done",
			slog.String("state", stateIteratingPages),
			slog.Int("page", page),
			slog.Int("links", len(links)),
			slog.Int("offers", len(got)),
		)

		if page < lastPage {
			pause(ctx, s.cfg.PageDelay)
		}
	}

	result.OfferCount = len(rows)
	result.DroppedCount = result.LinkCount - len(rows)

	logger.Info("saving offers", slog.String("state", statePersisting), slog.Int("offers", len(rows)))
	if err := s.sink.Persist(manufacturer, rows); err != nil {
		result.PersistErr = err
		result.EndTime = time.Now()
		logger.Error("saving offers failed",
			slog.String("category", s.tracker.recordError(err)),
			slog.Any("error", err),
		)
		return result, err
	}

	result.EndTime = time.Now()
	logger.Info("end of scraping the manufacturer",
		slog.String("state", stateIdle),
		slog.Int("offers", result.OfferCount),
		slog.Int("dropped", result.DroppedCount),
		slog.Duration("elapsed", result.EndTime.Sub(result.StartTime)),
	)
	return result, nil
}

// discoverPageCount reads the page count from the category root page and
// clamps it to [1, MaxPages].
func (s *Scraper) discoverPageCount(ctx context.Context, category *url.URL) (int, error) {
	body, err := s.tracker.fetch(ctx, phaseRoot, category.String())
	if err != nil {
		return 0, err
	}
	n, err := parser.LastPage(body, s.cfg.Selectors)
	if err != nil {
		return 0, err
	}
	return max(1, min(n, s.cfg.MaxPages)), nil
}

func (s *Scraper) pageLinks(ctx context.Context, logger *slog.Logger, category *url.URL, page int) ([]string, error) {
	pageURL := catalogPageURL(category, page)
	body, err := s.tracker.fetch(ctx, phasePage, pageURL.String())
	if err != nil {
		return nil, err
	}

	catalog, err := parser.ExtractLinks(body, pageURL, s.cfg.Selectors)
	if err != nil {
		return nil, fmt.Errorf("page %d: %w", page, err)
	}
	for _, skipped := range catalog.Skipped {
		logger.Error("skipping listing card",
			slog.Int("page", page),
			slog.String("category", s.tracker.recordError(skipped)),
			slog.Any("error", skipped),
		)
	}
	logger.Info("found links", slog.Int("page", page), slog.Int("links", len(catalog.Links)))
	return catalog.Links, nil
}

func (s *Scraper) categoryURL(manufacturer string) *url.URL {
	return s.base.JoinPath(manufacturer)
}

// catalogPageURL returns the URL of the 1-based results page of a category.
func catalogPageURL(category *url.URL, page int) *url.URL {
	u := *category
	q := u.Query()
	q.Set("page", strconv.Itoa(page))
	u.RawQuery = q.Encode()
	return &u
}
