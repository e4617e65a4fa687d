package catalog

import "strings"

// Relevance weights. Full-query matches outweigh single-token matches so that
// exact phrase hits stay on top of broad keyword hits.
const (
	weightNameQuery        = 30
	weightBrandQuery       = 18
	weightDescriptionQuery = 16
	weightCategoryQuery    = 10

	weightNameToken        = 8
	weightBrandToken       = 5
	weightDescriptionToken = 4
	weightCategoryToken    = 2
	weightSlugToken        = 2

	weightNamePrefix      = 8
	weightNameTokenPrefix = 3

	weightFallback = 1
)

// normalizeQuery trims and lower-cases a raw search string.
func normalizeQuery(search string) string {
	return strings.ToLower(strings.TrimSpace(search))
}

// Score computes the relevance of p for a trimmed, lower-cased query.
// A score of 0 means the product does not match.
func Score(query string, p Product) int {
	if query == "" {
		return 0
	}

	tokens := strings.Fields(query)
	name := strings.ToLower(p.Name)
	brand := strings.ToLower(p.Brand)
	category := strings.ToLower(p.Category)
	slug := strings.ToLower(p.Slug)
	description := strings.ToLower(p.Description)

	score := 0

	if strings.Contains(name, query) {
		score += weightNameQuery
	}
	if strings.Contains(brand, query) {
		score += weightBrandQuery
	}
	if strings.Contains(description, query) {
		score += weightDescriptionQuery
	}
	if strings.Contains(category, query) {
		score += weightCategoryQuery
	}

	for _, token := range tokens {
		if strings.Contains(name, token) {
			score += weightNameToken
		}
		if strings.Contains(brand, token) {
			score += weightBrandToken
		}
		if strings.Contains(description, token) {
			score += weightDescriptionToken
		}
		if strings.Contains(category, token) {
			score += weightCategoryToken
		}
		if strings.Contains(slug, token) {
			score += weightSlugToken
		}
	}

	if strings.HasPrefix(name, query) {
		score += weightNamePrefix
	}
	for _, token := range tokens {
		if strings.HasPrefix(name, token) {
			score += weightNameTokenPrefix
		}
	}

	if score == 0 {
		combined := strings.Join([]string{name, brand, category, slug, description}, " ")
		for _, token := range tokens {
			if strings.Contains(combined, token) {
				score += weightFallback
				break
			}
		}
	}

	return score
}
