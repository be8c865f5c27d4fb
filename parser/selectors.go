package parser

// Selectors are the CSS selectors used to locate data in catalog and offer
// pages.
type Selectors struct {
	ParamItem     string `mapstructure:"param_item"`
	ParamLabel    string `mapstructure:"param_label"`
	ParamValue    string `mapstructure:"param_value"`
	FeatureItem   string `mapstructure:"feature_item"`
	PriceNumber   string `mapstructure:"price_number"`
	PriceCurrency string `mapstructure:"price_currency"`
	PriceDetails  string `mapstructure:"price_details"`

	ResultsContainer string `mapstructure:"results_container"`
	ListingCard      string `mapstructure:"listing_card"`
	ListingAnchor    string `mapstructure:"listing_anchor"`
	PaginationItem   string `mapstructure:"pagination_item"`
}

// DefaultSelectors matches the markup of the otomoto.pl catalog.
func DefaultSelectors() Selectors {
	return Selectors{
		ParamItem:        ".offer-params__item",
		ParamLabel:       "span.offer-params__label",
		ParamValue:       "div.offer-params__value",
		FeatureItem:      "li.parameter-feature-item",
		PriceNumber:      "span.offer-price__number",
		PriceCurrency:    "span.offer-price__currency",
		PriceDetails:     "span.offer-price__details",
		ResultsContainer: "main[data-testid='search-results']",
		ListingCard:      "article",
		ListingAnchor:    "a[href]",
		PaginationItem:   "li[data-testid='pagination-list-item']",
	}
}

// FieldNames are the field labels the extractor writes for values that do
// not come from the parameter list.
type FieldNames struct {
	Price        string `mapstructure:"price"`
	Currency     string `mapstructure:"currency"`
	PriceDetails string `mapstructure:"price_details"`
}

// DefaultFieldNames returns the English column names for price fields.
func DefaultFieldNames() FieldNames {
	return FieldNames{
		Price:        "Price",
		Currency:     "Currency",
		PriceDetails: "PriceDetails",
	}
}
