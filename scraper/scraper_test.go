package scraper

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aluiziolira/go-scrape-offers/config"
	"github.com/aluiziolira/go-scrape-offers/models"
)

var offerSchema = models.Schema{"Price", "Currency", "PriceDetails", "Make"}

type recordingSink struct {
	mu     sync.Mutex
	tables map[string][]models.Row
	calls  []string
	err    error
}

func newRecordingSink() *recordingSink {
	return &recordingSink{tables: make(map[string][]models.Row)}
}

func (rs *recordingSink) Persist(manufacturer string, rows []models.Row) error {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	rs.calls = append(rs.calls, manufacturer)
	if rs.err != nil {
		return rs.err
	}
	rs.tables[manufacturer] = rows
	return nil
}

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.BaseURL = testBaseURL
	cfg.Concurrency = 4
	cfg.OfferDelay = 0
	cfg.PageDelay = 0
	return cfg
}

func paginationPage(labels ...string) string {
	var b strings.Builder
	b.WriteString(`<html><body><ul class="pagination">`)
	for _, label := range labels {
		fmt.Fprintf(&b, `<li data-testid="pagination-list-item"><a>%s</a></li>`, label)
	}
	b.WriteString(`</ul></body></html>`)
	return b.String()
}

// catalogPage renders a results container with one card per href. An empty
// href renders a card without an anchor.
func catalogPage(hrefs ...string) string {
	var b strings.Builder
	b.WriteString(`<html><body><main data-testid="search-results">`)
	for _, href := range hrefs {
		if href == "" {
			b.WriteString(`<article><div>promoted</div></article>`)
			continue
		}
		fmt.Fprintf(&b, `<article><h2><a href="%s">offer</a></h2></article>`, href)
	}
	b.WriteString(`</main></body></html>`)
	return b.String()
}

func offerPage(model, price string) string {
	return fmt.Sprintf(`<html><body>
<span class="offer-price__number">%s</span>
<span class="offer-price__currency">zł</span>
<span class="offer-price__details">Brutto</span>
<ul><li class="offer-params__item"><span class="offer-params__label">Make</span><div class="offer-params__value">%s</div></li></ul>
</body></html>`, price, model)
}

func TestCrawlManufacturerIntegration(t *testing.T) {
	cfg := testConfig()
	category := testBaseURL + "audi"

	transport := httpmock.NewMockTransport()
	transport.RegisterResponder("GET", category, htmlResponder(paginationPage("1", "2", "3")))
	transport.RegisterResponder("GET", category+"?page=1",
		htmlResponder(catalogPage("/oferta/a4.html", "/oferta/gone.html")))
	transport.RegisterResponder("GET", category+"?page=2",
		httpmock.NewStringResponder(http.StatusInternalServerError, "oops"))
	transport.RegisterResponder("GET", category+"?page=3",
		htmlResponder(catalogPage("", "http://example.test/oferta/a6.html")))
	transport.RegisterResponder("GET", "http://example.test/oferta/a4.html", htmlResponder(offerPage("Audi A4", "45 000 zł")))
	transport.RegisterResponder("GET", "http://example.test/oferta/gone.html", httpmock.NewStringResponder(http.StatusNotFound, ""))
	transport.RegisterResponder("GET", "http://example.test/oferta/a6.html", htmlResponder(offerPage("Audi A6", "99 900 zł")))

	fetcher, err := NewCollyFetcher(cfg)
	require.NoError(t, err)
	fetcher.WithTransport(transport)

	sink := newRecordingSink()
	s, err := NewScraper(cfg, offerSchema, sink, WithFetcher(fetcher), WithLogger(discardLogger()))
	require.NoError(t, err)

	result := s.Run(context.Background(), []string{"audi"})

	require.Len(t, result.Manufacturers, 1)
	mr := result.Manufacturers[0]
	assert.Equal(t, "audi", mr.Manufacturer)
	assert.Equal(t, category, mr.CategoryURL)
	assert.Equal(t, 3, mr.PageCount)
	assert.False(t, mr.PageCountDefaulted)
	assert.Equal(t, 1, mr.FailedPages)
	assert.Equal(t, 3, mr.LinkCount)
	assert.Equal(t, 2, mr.OfferCount)
	assert.Equal(t, 1, mr.DroppedCount)
	assert.NoError(t, mr.PersistErr)

	rows := sink.tables["audi"]
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"45000", "zł", "Brutto", "Audi A4"}, rows[0].Record())
	assert.Equal(t, []string{"99900", "zł", "Brutto", "Audi A6"}, rows[1].Record())

	assert.Equal(t, 2, result.TotalOffers)
	assert.Equal(t, 3, result.PageCount)
	assert.Equal(t, 7, result.RequestCount)
	assert.Equal(t, 7, transport.GetTotalCallCount())
	assert.Equal(t, map[string]int{"http_status": 1, "not_found": 1, "extraction": 1}, result.ErrorsByType)
	assert.Equal(t, 3, result.ErrorCount)
}

func TestCrawlManufacturerRootFailureDefaultsToSinglePage(t *testing.T) {
	tests := []struct {
		name      string
		responder httpmock.Responder
		category  string
	}{
		{name: "server error", responder: httpmock.NewStringResponder(http.StatusServiceUnavailable, ""), category: "http_status"},
		{name: "no pagination", responder: htmlResponder(`<html><body></body></html>`), category: "page_structure"},
		{name: "non numeric label", responder: htmlResponder(paginationPage("1", "next")), category: "page_structure"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			category := testBaseURL + "fiat"

			transport := httpmock.NewMockTransport()
			transport.RegisterResponder("GET", category, tt.responder)
			transport.RegisterResponder("GET", category+"?page=1", htmlResponder(catalogPage("/oferta/punto.html")))
			transport.RegisterResponder("GET", "http://example.test/oferta/punto.html", htmlResponder(offerPage("Fiat Punto", "9 900 zł")))

			fetcher, err := NewCollyFetcher(cfg)
			require.NoError(t, err)
			fetcher.WithTransport(transport)

			sink := newRecordingSink()
			s, err := NewScraper(cfg, offerSchema, sink, WithFetcher(fetcher), WithLogger(discardLogger()))
			require.NoError(t, err)

			mr, err := s.CrawlManufacturer(context.Background(), "fiat")
			require.NoError(t, err)

			assert.True(t, mr.PageCountDefaulted)
			assert.Equal(t, 1, mr.PageCount)
			assert.Equal(t, 1, mr.OfferCount)
			assert.Len(t, sink.tables["fiat"], 1)
			assert.Equal(t, 1, s.tracker.snapshotErrors()[tt.category])
		})
	}
}

// staticSite serves a category whose root advertises lastPage pages. Every
// results page links the offers returned by links(page).
type staticSite struct {
	lastPage string
	links    func(manufacturer string, page int) []string
	pages    int64
}

func (ss *staticSite) Fetch(ctx context.Context, url string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, &FetchError{URL: url, Err: classifyError(err, 0)}
	}
	rest := strings.TrimPrefix(url, testBaseURL)
	if strings.HasPrefix(url, "http://example.test/oferta/") {
		return []byte(offerPage(url, "1 000 zł")), nil
	}
	manufacturer, query, found := strings.Cut(rest, "?page=")
	if !found {
		return []byte(paginationPage("1", ss.lastPage)), nil
	}
	atomic.AddInt64(&ss.pages, 1)
	page, err := strconv.Atoi(query)
	if err != nil {
		return nil, err
	}
	if ss.links == nil {
		return []byte(catalogPage()), nil
	}
	return []byte(catalogPage(ss.links(manufacturer, page)...)), nil
}

func TestCrawlManufacturerClampsPageCount(t *testing.T) {
	site := &staticSite{lastPage: "10000"}
	sink := newRecordingSink()
	s, err := NewScraper(testConfig(), offerSchema, sink, WithFetcher(site), WithLogger(discardLogger()))
	require.NoError(t, err)

	mr, err := s.CrawlManufacturer(context.Background(), "volkswagen")
	require.NoError(t, err)

	assert.Equal(t, config.PageCeiling, mr.PageCount)
	assert.Equal(t, int64(config.PageCeiling), atomic.LoadInt64(&site.pages))
	assert.Zero(t, mr.OfferCount)
	rows, persisted := sink.tables["volkswagen"]
	assert.True(t, persisted)
	assert.Empty(t, rows)
}

func TestCrawlManufacturerMissingResultsContainer(t *testing.T) {
	cfg := testConfig()
	category := testBaseURL + "lada"

	transport := httpmock.NewMockTransport()
	transport.RegisterResponder("GET", category, htmlResponder(paginationPage("1", "2")))
	transport.RegisterResponder("GET", category+"?page=1", htmlResponder(`<html><body><p>captcha</p></body></html>`))
	transport.RegisterResponder("GET", category+"?page=2", htmlResponder(catalogPage("/oferta/niva.html")))
	transport.RegisterResponder("GET", "http://example.test/oferta/niva.html", htmlResponder(offerPage("Lada Niva", "15 000 zł")))

	fetcher, err := NewCollyFetcher(cfg)
	require.NoError(t, err)
	fetcher.WithTransport(transport)

	sink := newRecordingSink()
	s, err := NewScraper(cfg, offerSchema, sink, WithFetcher(fetcher), WithLogger(discardLogger()))
	require.NoError(t, err)

	mr, err := s.CrawlManufacturer(context.Background(), "lada")
	require.NoError(t, err)
	assert.Equal(t, 1, mr.FailedPages)
	assert.Equal(t, 1, mr.OfferCount)
	assert.Equal(t, 1, s.tracker.snapshotErrors()["page_structure"])
}

func TestRunUsesFreshRowsPerManufacturer(t *testing.T) {
	site := &staticSite{
		lastPage: "2",
		links: func(manufacturer string, page int) []string {
			// The promoted offer repeats on every page of every manufacturer.
			return []string{
				"http://example.test/oferta/promoted.html",
				fmt.Sprintf("http://example.test/oferta/%s-%d.html", manufacturer, page),
			}
		},
	}
	cfg := testConfig()
	cfg.DedupeCacheSize = 100

	sink := newRecordingSink()
	s, err := NewScraper(cfg, offerSchema, sink, WithFetcher(site), WithLogger(discardLogger()))
	require.NoError(t, err)

	result := s.Run(context.Background(), []string{"audi", " bmw "})

	assert.Equal(t, []string{"audi", "bmw"}, sink.calls)
	for _, manufacturer := range []string{"audi", "bmw"} {
		rows := sink.tables[manufacturer]
		require.Len(t, rows, 3, manufacturer)
		for _, row := range rows {
			value, _ := row.Get("Make")
			assert.True(t, value == "http://example.test/oferta/promoted.html" ||
				strings.Contains(value, "/"+manufacturer+"-"), "row %q leaked into %s", value, manufacturer)
		}
	}
	assert.Equal(t, 6, result.TotalOffers)
	assert.Equal(t, 4, result.PageCount)
}

func TestRunWithoutDedupeKeepsRepeatedLinks(t *testing.T) {
	site := &staticSite{
		lastPage: "3",
		links: func(string, int) []string {
			return []string{"http://example.test/oferta/promoted.html"}
		},
	}
	sink := newRecordingSink()
	s, err := NewScraper(testConfig(), offerSchema, sink, WithFetcher(site), WithLogger(discardLogger()))
	require.NoError(t, err)

	s.Run(context.Background(), []string{"opel"})
	assert.Len(t, sink.tables["opel"], 3)
}

func TestCrawlManufacturerPersistFailure(t *testing.T) {
	site := &staticSite{lastPage: "1"}
	sink := newRecordingSink()
	sink.err = errors.New("read-only file system")

	s, err := NewScraper(testConfig(), offerSchema, sink, WithFetcher(site), WithLogger(discardLogger()))
	require.NoError(t, err)

	result := s.Run(context.Background(), []string{"audi", "bmw"})

	require.Len(t, result.Manufacturers, 2)
	assert.ErrorIs(t, result.Manufacturers[0].PersistErr, sink.err)
	assert.Equal(t, []string{"audi", "bmw"}, sink.calls)
}

func TestCrawlManufacturerCanceledPersistsCollected(t *testing.T) {
	site := &staticSite{lastPage: "5"}
	sink := newRecordingSink()
	s, err := NewScraper(testConfig(), offerSchema, sink, WithFetcher(site), WithLogger(discardLogger()))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	mr, err := s.CrawlManufacturer(ctx, "audi")
	require.NoError(t, err)
	assert.True(t, mr.Interrupted)
	assert.Equal(t, []string{"audi"}, sink.calls)
	assert.Zero(t, atomic.LoadInt64(&site.pages))

	result := s.Run(ctx, []string{"bmw"})
	assert.Empty(t, result.Manufacturers)
}

func TestCatalogPageURL(t *testing.T) {
	cfg := testConfig()
	s, err := NewScraper(cfg, offerSchema, newRecordingSink(), WithFetcher(&staticSite{}))
	require.NoError(t, err)

	category := s.categoryURL("alfa-romeo")
	assert.Equal(t, "http://example.test/osobowe/alfa-romeo", category.String())
	assert.Equal(t, "http://example.test/osobowe/alfa-romeo?page=7", catalogPageURL(category, 7).String())
	assert.Equal(t, "http://example.test/osobowe/alfa-romeo", category.String(), "category must not be mutated")
}

func TestNewScraperValidation(t *testing.T) {
	cfg := testConfig()
	_, err := NewScraper(cfg, offerSchema, nil, WithFetcher(&staticSite{}))
	assert.Error(t, err)

	cfg.BaseURL = "osobowe"
	_, err = NewScraper(cfg, offerSchema, newRecordingSink(), WithFetcher(&staticSite{}))
	assert.Error(t, err)
}
