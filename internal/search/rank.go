package search

import (
	"sort"
	"strings"

	"github.com/shoplite/catalog-search/internal/domain"
)

// Relevance bands, best first. Band 0 means the normalized name starts with
// the query; later bands are progressively weaker matches.
const (
	bandNamePrefix    = 0
	bandNameSubstring = 1
	bandDescription   = 2
	bandOther         = 3
)

// Band classifies how strongly a product matches the normalized query.
func Band(p *domain.CatalogProduct, query string) int {
	if query == "" {
		return bandOther
	}
	name := Normalize(p.Name)
	if strings.HasPrefix(name, query) {
		return bandNamePrefix
	}
	if strings.Contains(name, query) {
		return bandNameSubstring
	}
	if strings.Contains(Normalize(p.Description), query) {
		return bandDescription
	}
	return bandOther
}

// Rank orders products by relevance for the given normalized query:
// band, then sales count, rating and recency descending, with ID as the
// stable tie-break. Products with equal keys always land in the same order.
func Rank(products []*domain.CatalogProduct, query string) {
	bands := make(map[string]int, len(products))
	for _, p := range products {
		bands[p.ID] = Band(p, query)
	}

	sort.SliceStable(products, func(i, j int) bool {
		a, b := products[i], products[j]
		if bands[a.ID] != bands[b.ID] {
			return bands[a.ID] < bands[b.ID]
		}
		if a.SalesCount != b.SalesCount {
			return a.SalesCount > b.SalesCount
		}
		if a.Rating != b.Rating {
			return a.Rating > b.Rating
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID < b.ID
	})
}
