package scraper

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

// linkFilter drops offer links already seen during one manufacturer crawl,
// such as promoted offers repeated on every catalog page. A nil filter
// passes every link through.
type linkFilter struct {
	seen *lru.Cache[string, struct{}]
}

func newLinkFilter(size int) *linkFilter {
	if size <= 0 {
		return nil
	}
	cache, err := lru.New[string, struct{}](size)
	if err != nil {
		return nil
	}
	return &linkFilter{seen: cache}
}

// Fresh returns the links not seen before, in their original order.
func (f *linkFilter) Fresh(links []string) []string {
	if f == nil {
		return links
	}
	out := make([]string, 0, len(links))
	for _, link := range links {
		if f.seen.Contains(link) {
			continue
		}
		f.seen.Add(link, struct{}{})
		out = append(out, link)
	}
	return out
}
