package catalog

import (
	"slices"
	"sort"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// ApplyFilters runs the browse pipeline over products and returns a new slice.
// Stages run in a fixed order: text search, category, price range, brand,
// minimum rating, tags, then the sort selector. While a search query is active
// the relevance order produced by the search stage is kept and SortBy is ignored.
// The input slice is never reordered or modified.
func ApplyFilters(products []Product, fs FilterState) []Product {
	cmp := newNameComparer()

	query := normalizeQuery(fs.Search)
	searched := query != ""

	var result []Product
	if searched {
		result = searchStage(products, query, cmp)
	} else {
		result = slices.Clone(products)
	}

	if fs.Category != "" && fs.Category != AllOption {
		result = keep(result, func(p Product) bool {
			return p.Category == fs.Category
		})
	}

	minPrice, maxPrice := fs.PriceRange[0], fs.PriceRange[1]
	result = keep(result, func(p Product) bool {
		return p.Price >= minPrice && p.Price <= maxPrice
	})

	if fs.Brand != "" && fs.Brand != AllOption {
		result = keep(result, func(p Product) bool {
			return strings.EqualFold(p.Brand, fs.Brand)
		})
	}

	if fs.Rating > 0 {
		result = keep(result, func(p Product) bool {
			return p.Rating >= fs.Rating
		})
	}

	if len(fs.Tags) > 0 {
		result = keep(result, func(p Product) bool {
			for _, tag := range fs.Tags {
				if MatchesTag(p, tag) {
					return true
				}
			}
			return false
		})
	}

	if !searched {
		sortProducts(result, fs.SortBy, cmp)
	}

	return result
}

// MatchesTag reports whether p carries the given tag filter.
// on-sale checks the stored discount field only; a product marked down via
// original_price with a zero discount does not count as on sale.
func MatchesTag(p Product, tag string) bool {
	switch tag {
	case TagFeatured:
		return p.IsFeatured
	case TagBestseller:
		return p.IsBestseller
	case TagNew:
		return p.IsNew
	case TagOnSale:
		return p.Discount > 0
	default:
		return false
	}
}

type scored struct {
	product Product
	score   int
}

func searchStage(products []Product, query string, cmp *nameComparer) []Product {
	matches := make([]scored, 0, len(products))
	for _, p := range products {
		if s := Score(query, p); s > 0 {
			matches = append(matches, scored{product: p, score: s})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		a, b := matches[i], matches[j]
		if a.score != b.score {
			return a.score > b.score
		}
		if a.product.Rating != b.product.Rating {
			return a.product.Rating > b.product.Rating
		}
		return cmp.less(a.product.Name, b.product.Name)
	})

	out := make([]Product, len(matches))
	for i, m := range matches {
		out[i] = m.product
	}
	return out
}

func sortProducts(products []Product, sortBy SortKey, cmp *nameComparer) {
	switch sortBy {
	case SortByPriceLow:
		sort.SliceStable(products, func(i, j int) bool {
			return products[i].Price < products[j].Price
		})
	case SortByPriceHigh:
		sort.SliceStable(products, func(i, j int) bool {
			return products[i].Price > products[j].Price
		})
	case SortByRating:
		sort.SliceStable(products, func(i, j int) bool {
			return products[i].Rating > products[j].Rating
		})
	default:
		sort.SliceStable(products, func(i, j int) bool {
			return cmp.less(products[i].Name, products[j].Name)
		})
	}
}

// keep returns the elements of in that satisfy pred, in order, as a new slice.
func keep(in []Product, pred func(Product) bool) []Product {
	out := make([]Product, 0, len(in))
	for _, p := range in {
		if pred(p) {
			out = append(out, p)
		}
	}
	return out
}

// nameComparer wraps a collator. Collators are not safe for concurrent use,
// so one is created per pipeline run.
type nameComparer struct {
	col *collate.Collator
}

func newNameComparer() *nameComparer {
	return &nameComparer{col: collate.New(language.English)}
}

func (c *nameComparer) less(a, b string) bool {
	return c.col.CompareString(a, b) < 0
}
