package parser

import (
	"errors"
	"fmt"
)

// ErrInvalidMarkup is wrapped when a document cannot be parsed at all.
var ErrInvalidMarkup = errors.New("parser: invalid markup")

// ExtractionError reports a required element that was missing or malformed
// in an offer page or a listing card.
type ExtractionError struct {
	Element string
	Reason  string
}

func (e *ExtractionError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("extraction: %s missing", e.Element)
	}
	return fmt.Sprintf("extraction: %s: %s", e.Element, e.Reason)
}

// PageStructureError reports that a catalog page lacks an element the
// crawl depends on, such as the results container or pagination.
type PageStructureError struct {
	Element string
	Reason  string
}

func (e *PageStructureError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("page structure: %s missing", e.Element)
	}
	return fmt.Sprintf("page structure: %s: %s", e.Element, e.Reason)
}

func missing(element string) error {
	return &ExtractionError{Element: element}
}
