package parser

import (
	"bytes"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// CatalogPage is the result of reading one catalog results page.
type CatalogPage struct {
	// Links holds offer URLs in page order.
	Links []string
	// Skipped holds one error per listing card that had no usable anchor.
	Skipped []error
}

// ExtractLinks returns the offer links of a catalog page. Relative links
// are resolved against base.
func ExtractLinks(body []byte, base *url.URL, sel Selectors) (*CatalogPage, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMarkup, err)
	}

	container := doc.Find(sel.ResultsContainer).First()
	if container.Length() == 0 {
		return nil, &PageStructureError{Element: "results container"}
	}

	page := &CatalogPage{}
	container.Find(sel.ListingCard).Each(func(i int, card *goquery.Selection) {
		href, ok := card.Find(sel.ListingAnchor).First().Attr("href")
		href = strings.TrimSpace(href)
		if !ok || href == "" {
			page.Skipped = append(page.Skipped, &ExtractionError{
				Element: "listing anchor",
				Reason:  fmt.Sprintf("card %d has no link", i),
			})
			return
		}
		link, err := resolve(base, href)
		if err != nil {
			page.Skipped = append(page.Skipped, &ExtractionError{
				Element: "listing anchor",
				Reason:  fmt.Sprintf("card %d: %v", i, err),
			})
			return
		}
		page.Links = append(page.Links, link)
	})
	return page, nil
}

// LastPage reads the page count from the last pagination control.
func LastPage(body []byte, sel Selectors) (int, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidMarkup, err)
	}

	items := doc.Find(sel.PaginationItem)
	if items.Length() == 0 {
		return 0, &PageStructureError{Element: "pagination"}
	}
	label := strings.TrimSpace(items.Last().Text())
	n, err := strconv.Atoi(label)
	if err != nil {
		return 0, &PageStructureError{Element: "pagination", Reason: fmt.Sprintf("label %q is not a number", label)}
	}
	return n, nil
}

func resolve(base *url.URL, href string) (string, error) {
	ref, err := url.Parse(href)
	if err != nil {
		return "", err
	}
	if base == nil {
		return ref.String(), nil
	}
	return base.ResolveReference(ref).String(), nil
}
