package models

import "time"

// CatalogSnapshot is the full product listing as loaded at one point in time.
// Version changes on every reload so clients can detect a new source list.
type CatalogSnapshot struct {
	Version  string     `json:"version"`
	LoadedAt time.Time  `json:"loaded_at"`
	Products []*Product `json:"products"`
}

// FilterMetadata represents the filter options offered by the storefront
type FilterMetadata struct {
	Brands     []string        `json:"brands"`
	Categories []CategoryData  `json:"categories"`
	PriceRange *PriceRangeData `json:"price_range"`
	Tags       []string        `json:"tags"`
	SortKeys   []string        `json:"sort_keys"`
}

// CategoryData is a category as listed in the filter sidebar
type CategoryData struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	ProductCount int    `json:"product_count"`
}

// PriceRangeData represents the minimum and maximum price in the catalogue
type PriceRangeData struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}
