package catalog

import "errors"

// ErrItemNotFound is returned when an item id does not resolve to a
// catalog row.
var ErrItemNotFound = errors.New("item not found")

// Seller is one storefront row as exposed to the agent.
type Seller struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	Description string `json:"description"`
	LogoURL     string `json:"logo_url"`
	Currency    string `json:"currency"`
}

// SellerSummary is the embedded storefront projection attached to item
// reads.
type SellerSummary struct {
	Name     string `json:"name"`
	Slug     string `json:"slug"`
	Currency string `json:"currency"`
}

// Item is one catalog product. Price is in major currency units as
// stored; conversion to minor units happens at order time.
type Item struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Price       float64        `json:"price"`
	ImageURL    string         `json:"image_url"`
	SellerID    string         `json:"storefront_id"`
	Available   bool           `json:"is_available"`
	Seller      *SellerSummary `json:"storefronts,omitempty"`
}

// SearchQuery bundles the filters for an item search.
type SearchQuery struct {
	Query    string
	SellerID string
	Category string
	Limit    int
}
