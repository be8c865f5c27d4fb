package parser

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/aluiziolira/go-scrape-offers/models"
)

// FeaturePresent is stored for every feature badge found on an offer page.
const FeaturePresent = "1"

// OfferExtractor turns the markup of one offer page into a normalized row.
type OfferExtractor struct {
	schema    models.Schema
	selectors Selectors
	names     FieldNames
}

// NewOfferExtractor builds an extractor for schema.
func NewOfferExtractor(schema models.Schema, selectors Selectors, names FieldNames) *OfferExtractor {
	return &OfferExtractor{
		schema:    schema,
		selectors: selectors,
		names:     names,
	}
}

// Extract parses body and returns the offer normalized onto the schema.
func (e *OfferExtractor) Extract(body []byte) (models.Row, error) {
	fields, err := e.ExtractFields(body)
	if err != nil {
		return models.Row{}, err
	}
	return Normalize(e.schema, fields), nil
}

// ExtractFields returns the raw label/value pairs of an offer page.
func (e *OfferExtractor) ExtractFields(body []byte) (models.Fields, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMarkup, err)
	}

	fields := make(models.Fields)

	params := doc.Find(e.selectors.ParamItem)
	if params.Length() == 0 {
		return nil, missing("parameter list")
	}
	var paramErr error
	params.EachWithBreak(func(i int, item *goquery.Selection) bool {
		label := item.Find(e.selectors.ParamLabel).First()
		value := item.Find(e.selectors.ParamValue).First()
		if label.Length() == 0 || value.Length() == 0 {
			paramErr = &ExtractionError{
				Element: "parameter item",
				Reason:  fmt.Sprintf("item %d has no label or value", i),
			}
			return false
		}
		fields[NormalizeLabel(label.Text())] = strings.TrimSpace(value.Text())
		return true
	})
	if paramErr != nil {
		return nil, paramErr
	}

	doc.Find(e.selectors.FeatureItem).Each(func(_ int, item *goquery.Selection) {
		if label := NormalizeLabel(item.Text()); label != "" {
			fields[label] = FeaturePresent
		}
	})

	priceText, err := requiredText(doc, e.selectors.PriceNumber, "price")
	if err != nil {
		return nil, err
	}
	price, ok := SplitPrice(priceText)
	if !ok {
		return nil, &ExtractionError{Element: "price", Reason: fmt.Sprintf("unexpected format %q", priceText)}
	}
	fields[e.names.Price] = price

	currency, err := requiredText(doc, e.selectors.PriceCurrency, "currency")
	if err != nil {
		return nil, err
	}
	fields[e.names.Currency] = currency

	details, err := requiredText(doc, e.selectors.PriceDetails, "price details")
	if err != nil {
		return nil, err
	}
	fields[e.names.PriceDetails] = details

	return fields, nil
}

func requiredText(doc *goquery.Document, selector, element string) (string, error) {
	sel := doc.Find(selector).First()
	if sel.Length() == 0 {
		return "", missing(element)
	}
	return strings.TrimSpace(sel.Text()), nil
}
