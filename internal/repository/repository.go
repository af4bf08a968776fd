// Package repository defines the catalog store contract consumed by the
// search service. Implementations live in subpackages (postgres for
// production, memory for tests).
package repository

import (
	"context"

	"github.com/shoplite/catalog-search/internal/domain"
)

// CatalogQuery is the fully-resolved matching request handed to a store.
// Variations and Tokens come out of the query expander; filters and paging
// are already validated at the boundary.
type CatalogQuery struct {
	// Variations are treated as alternatives: a row matches if any
	// variation appears in its name, description or search text.
	Variations []string
	// Tokens, when present, add a conjunctive alternative: a row also
	// matches if every token appears somewhere in its text fields.
	Tokens []string

	Filters domain.SearchFilters
	Sort    string
	Limit   int
	Offset  int

	// ActiveOnly restricts matching to sellable products. The service
	// always sets it; it exists so tests can inspect full fixtures.
	ActiveOnly bool
}

// HasQuery reports whether the request carries search text at all.
func (q CatalogQuery) HasQuery() bool {
	return len(q.Variations) > 0
}

// Catalog is the read contract over the product catalog.
type Catalog interface {
	// Search returns one page of matching products and the total match
	// count across all pages.
	Search(ctx context.Context, q CatalogQuery) ([]*domain.CatalogProduct, int, error)

	// Suggest returns up to limit active products whose name or search
	// text contains q, distinct by name, most popular first.
	Suggest(ctx context.Context, q string, limit int) ([]*domain.CatalogProduct, error)
}
