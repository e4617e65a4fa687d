package catalog

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
)

const (
	// AllOption disables the category or brand filter.
	AllOption = "all"

	DefaultMinPrice = 0
	DefaultMaxPrice = 500000
)

// SortKey selects the ordering applied when no search query is active.
type SortKey string

const (
	SortByName      SortKey = "name"
	SortByPriceLow  SortKey = "price-low"
	SortByPriceHigh SortKey = "price-high"
	SortByRating    SortKey = "rating"
)

// Tag filters supported by the storefront.
const (
	TagFeatured   = "featured"
	TagBestseller = "bestseller"
	TagNew        = "new"
	TagOnSale     = "on-sale"
)

var (
	SortKeys      = []SortKey{SortByName, SortByPriceLow, SortByPriceHigh, SortByRating}
	SupportedTags = []string{TagFeatured, TagBestseller, TagNew, TagOnSale}

	ErrInvalidFilter = errors.New("invalid filter")
)

// PriceRange holds inclusive [min, max] bounds.
type PriceRange [2]float64

// FilterState is the user's current browse selection. It is passed by value;
// use the With* helpers to derive a modified copy.
type FilterState struct {
	Search     string     `json:"search"`
	Category   string     `json:"category"`
	PriceRange PriceRange `json:"price_range"`
	Brand      string     `json:"brand"`
	Rating     float64    `json:"rating"`
	SortBy     SortKey    `json:"sort_by"`
	Tags       []string   `json:"tags"`
}

// DefaultFilterState returns the state a fresh listing view starts with.
func DefaultFilterState() FilterState {
	return FilterState{
		Category:   AllOption,
		PriceRange: PriceRange{DefaultMinPrice, DefaultMaxPrice},
		Brand:      AllOption,
		SortBy:     SortByName,
		Tags:       []string{},
	}
}

// Clone returns a copy that shares no memory with fs.
func (fs FilterState) Clone() FilterState {
	out := fs
	out.Tags = slices.Clone(fs.Tags)
	if out.Tags == nil {
		out.Tags = []string{}
	}
	return out
}

func (fs FilterState) WithSearch(search string) FilterState {
	out := fs.Clone()
	out.Search = search
	return out
}

func (fs FilterState) WithCategory(category string) FilterState {
	out := fs.Clone()
	out.Category = category
	return out
}

func (fs FilterState) WithPriceRange(minPrice, maxPrice float64) FilterState {
	out := fs.Clone()
	out.PriceRange = PriceRange{minPrice, maxPrice}
	return out
}

func (fs FilterState) WithBrand(brand string) FilterState {
	out := fs.Clone()
	out.Brand = brand
	return out
}

func (fs FilterState) WithRating(rating float64) FilterState {
	out := fs.Clone()
	out.Rating = rating
	return out
}

func (fs FilterState) WithSort(sortBy SortKey) FilterState {
	out := fs.Clone()
	out.SortBy = sortBy
	return out
}

func (fs FilterState) WithTags(tags ...string) FilterState {
	out := fs.Clone()
	out.Tags = slices.Clone(tags)
	if out.Tags == nil {
		out.Tags = []string{}
	}
	return out
}

// Validate reports the first field that cannot be applied.
func (fs FilterState) Validate() error {
	if !finite(fs.PriceRange[0]) || !finite(fs.PriceRange[1]) {
		return fmt.Errorf("%w: price range must be finite", ErrInvalidFilter)
	}
	if !finite(fs.Rating) {
		return fmt.Errorf("%w: rating must be finite", ErrInvalidFilter)
	}
	if fs.PriceRange[0] < 0 {
		return fmt.Errorf("%w: min price cannot be negative", ErrInvalidFilter)
	}
	if fs.PriceRange[0] > fs.PriceRange[1] {
		return fmt.Errorf("%w: min price %.2f exceeds max price %.2f", ErrInvalidFilter, fs.PriceRange[0], fs.PriceRange[1])
	}
	if fs.Rating < 0 || fs.Rating > 5 {
		return fmt.Errorf("%w: rating must be between 0 and 5", ErrInvalidFilter)
	}
	if fs.SortBy != "" && !slices.Contains(SortKeys, fs.SortBy) {
		return fmt.Errorf("%w: unknown sort key %q", ErrInvalidFilter, fs.SortBy)
	}
	for _, tag := range fs.Tags {
		if !slices.Contains(SupportedTags, tag) {
			return fmt.Errorf("%w: unknown tag %q", ErrInvalidFilter, tag)
		}
	}
	return nil
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// Key fingerprints the state. Two states with the same key select the same
// products in the same order. Tag order does not matter.
func (fs FilterState) Key() string {
	tags := slices.Clone(fs.Tags)
	slices.Sort(tags)
	tags = slices.Compact(tags)

	category := fs.Category
	if category == "" {
		category = AllOption
	}
	brand := strings.ToLower(fs.Brand)
	if brand == "" {
		brand = AllOption
	}
	sortBy := fs.SortBy
	if sortBy == "" {
		sortBy = SortByName
	}

	parts := []string{
		strings.ToLower(strings.TrimSpace(fs.Search)),
		category,
		strconv.FormatFloat(fs.PriceRange[0], 'f', -1, 64),
		strconv.FormatFloat(fs.PriceRange[1], 'f', -1, 64),
		brand,
		strconv.FormatFloat(fs.Rating, 'f', -1, 64),
		string(sortBy),
		strings.Join(tags, ","),
	}
	return strings.Join(parts, "|")
}
