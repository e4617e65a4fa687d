package catalog

import (
	"math/rand/v2"
	"sort"
)

const (
	relatedCategoryWeight = 3
	relatedBrandWeight    = 2
	relatedMaxTagWeight   = 2

	// MaxJitter bounds the random offset added to related-product scores so
	// equally related products rotate between views.
	MaxJitter = 0.3

	DefaultRelatedLimit = 8
	MaxRelatedLimit     = 12
)

// RandSource yields floats in [0, 1).
type RandSource interface {
	Float64() float64
}

type systemRand struct{}

func (systemRand) Float64() float64 { return rand.Float64() }

// SystemRand returns the process-wide random source. It is safe for concurrent use.
func SystemRand() RandSource { return systemRand{} }

// RelatedScore is the deterministic part of the related-product score.
func RelatedScore(current, candidate Product) int {
	score := 0
	if candidate.Category != "" && candidate.Category == current.Category {
		score += relatedCategoryWeight
	}
	if candidate.Brand != "" && candidate.Brand == current.Brand {
		score += relatedBrandWeight
	}
	score += min(relatedMaxTagWeight, tagOverlap(current.Tags, candidate.Tags))
	return score
}

// RankRelated returns up to limit products related to current, most related
// first. The order among equally scored products is randomized by rnd; pass a
// zero source for a stable order. A nil rnd uses SystemRand.
func RankRelated(products []Product, current Product, limit int, rnd RandSource) []Product {
	if limit <= 0 {
		limit = DefaultRelatedLimit
	}
	if rnd == nil {
		rnd = SystemRand()
	}

	type candidate struct {
		product Product
		rank    float64
	}

	candidates := make([]candidate, 0, len(products))
	for _, p := range products {
		if p.ID == current.ID {
			continue
		}
		score := RelatedScore(current, p)
		if score == 0 {
			continue
		}
		candidates = append(candidates, candidate{
			product: p,
			rank:    float64(score) + rnd.Float64()*MaxJitter,
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].rank > candidates[j].rank
	})

	if len(candidates) > limit {
		candidates = candidates[:limit]
	}

	out := make([]Product, len(candidates))
	for i, c := range candidates {
		out[i] = c.product
	}
	return out
}

func tagOverlap(a, b []string) int {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	seen := make(map[string]struct{}, len(a))
	for _, t := range a {
		seen[t] = struct{}{}
	}
	n := 0
	for _, t := range b {
		if _, ok := seen[t]; ok {
			n++
			delete(seen, t)
		}
	}
	return n
}
