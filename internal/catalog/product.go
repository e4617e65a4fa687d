// Package catalog holds the storefront product pipeline: normalization,
// relevance scoring, filtering, sorting, pagination and related-product ranking.
// Everything here is pure and operates on in-memory slices.
package catalog

import (
	"math"

	"techmart/internal/models"
)

const (
	// DefaultRating is shown for products that have never been rated.
	DefaultRating = 4.5
	// DefaultReviews is used when the listing has no review count.
	DefaultReviews = 0
)

// Product is the normalized, read-only view of a storefront product.
// All optional fields have been resolved to concrete values.
type Product struct {
	ID            string   `json:"id"`
	Slug          string   `json:"slug"`
	Name          string   `json:"name"`
	Description   string   `json:"description"`
	Price         float64  `json:"price"`
	OriginalPrice float64  `json:"original_price,omitempty"`
	Brand         string   `json:"brand"`
	Category      string   `json:"category"`
	Rating        float64  `json:"rating"`
	Reviews       int      `json:"reviews"`
	IsFeatured    bool     `json:"is_featured"`
	IsBestseller  bool     `json:"is_bestseller"`
	IsNew         bool     `json:"is_new"`
	Discount      int      `json:"discount"`
	Tags          []string `json:"tags"`
	ImageURL      string   `json:"image_url,omitempty"`
	InStock       bool     `json:"in_stock"`
}

// PercentOff returns the markdown shown on product cards. It prefers the
// original price pair and falls back to the stored discount field.
// The on-sale tag filter does not use this value, see MatchesTag.
func (p Product) PercentOff() int {
	if p.OriginalPrice > p.Price && p.OriginalPrice > 0 {
		return int(math.Round((p.OriginalPrice - p.Price) / p.OriginalPrice * 100))
	}
	return p.Discount
}

// NormalizeProduct resolves every optional field of a listing record.
func NormalizeProduct(raw *models.Product) Product {
	if raw == nil {
		return Product{Tags: []string{}}
	}

	p := Product{
		ID:           raw.ID.String(),
		Slug:         deref(raw.Slug),
		Name:         raw.Name,
		Description:  deref(raw.Description),
		Price:        math.Max(raw.Price, 0),
		Brand:        deref(raw.Brand),
		Rating:       DefaultRating,
		Reviews:      DefaultReviews,
		IsFeatured:   raw.IsFeatured,
		IsBestseller: raw.IsBestseller,
		IsNew:        raw.IsNew,
		ImageURL:     deref(raw.ImageURL),
		InStock:      raw.Stock > 0,
	}

	if raw.CategoryID != nil {
		p.Category = raw.CategoryID.String()
	}
	if raw.Rating != nil {
		p.Rating = *raw.Rating
	}
	if raw.Reviews != nil && *raw.Reviews > 0 {
		p.Reviews = *raw.Reviews
	}
	if raw.Discount != nil {
		p.Discount = *raw.Discount
	}

	// original_price wins over the legacy old_price column
	switch {
	case raw.OriginalPrice != nil:
		p.OriginalPrice = *raw.OriginalPrice
	case raw.OldPrice != nil:
		p.OriginalPrice = *raw.OldPrice
	}

	p.Tags = make([]string, 0, len(raw.Tags))
	for _, tag := range raw.Tags {
		if tag != "" {
			p.Tags = append(p.Tags, tag)
		}
	}

	return p
}

// NormalizeProducts normalizes a listing, skipping nil records.
func NormalizeProducts(raw []*models.Product) []Product {
	products := make([]Product, 0, len(raw))
	for _, r := range raw {
		if r == nil {
			continue
		}
		products = append(products, NormalizeProduct(r))
	}
	return products
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
