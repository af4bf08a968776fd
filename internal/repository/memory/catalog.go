// Package memory is an in-memory catalog repository that mirrors the
// PostgreSQL matching semantics. It backs service and handler tests and the
// local development mode.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/shoplite/catalog-search/internal/domain"
	"github.com/shoplite/catalog-search/internal/repository"
	"github.com/shoplite/catalog-search/internal/search"
)

// CatalogRepository holds products in memory, keyed by ID.
type CatalogRepository struct {
	mu       sync.RWMutex
	products map[string]*domain.CatalogProduct
}

// NewCatalogRepository creates an empty in-memory catalog.
func NewCatalogRepository() *CatalogRepository {
	return &CatalogRepository{products: make(map[string]*domain.CatalogProduct)}
}

// Put inserts or replaces a product.
func (r *CatalogRepository) Put(p *domain.CatalogProduct) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *p
	r.products[p.ID] = &cp
}

// Delete removes a product if present.
func (r *CatalogRepository) Delete(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.products, id)
}

// Search filters, sorts and pages the catalog with the same semantics as
// the SQL implementation.
func (r *CatalogRepository) Search(_ context.Context, q repository.CatalogQuery) ([]*domain.CatalogProduct, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matched []*domain.CatalogProduct
	for _, p := range r.products {
		if q.ActiveOnly && !p.Eligible() {
			continue
		}
		if !matchesFilters(p, q.Filters) {
			continue
		}
		if q.HasQuery() && !matchesText(p, q) {
			continue
		}
		cp := *p
		matched = append(matched, &cp)
	}

	sortProducts(matched, q)

	total := len(matched)
	start := q.Offset
	if start > total {
		start = total
	}
	end := start + q.Limit
	if q.Limit <= 0 || end > total {
		end = total
	}

	return matched[start:end], total, nil
}

// Suggest returns up to limit matching active products, distinct by name,
// most popular first. Names and search text are folded the same way queries
// are, so accented records stay reachable.
func (r *CatalogRepository) Suggest(_ context.Context, q string, limit int) ([]*domain.CatalogProduct, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	needle := search.Normalize(q)
	var matched []*domain.CatalogProduct
	for _, p := range r.products {
		if !p.Eligible() {
			continue
		}
		if !strings.Contains(search.Normalize(p.Name), needle) &&
			!strings.Contains(search.Normalize(p.SearchText), needle) {
			continue
		}
		cp := *p
		matched = append(matched, &cp)
	}

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].SalesCount != matched[j].SalesCount {
			return matched[i].SalesCount > matched[j].SalesCount
		}
		return matched[i].ID < matched[j].ID
	})

	seen := make(map[string]struct{})
	var out []*domain.CatalogProduct
	for _, p := range matched {
		if _, dup := seen[p.Name]; dup {
			continue
		}
		seen[p.Name] = struct{}{}
		out = append(out, p)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func matchesFilters(p *domain.CatalogProduct, f domain.SearchFilters) bool {
	if f.CategoryID != "" {
		if p.CategoryID == nil || *p.CategoryID != f.CategoryID {
			return false
		}
	}
	if f.PriceMin != nil && p.Price < *f.PriceMin {
		return false
	}
	if f.PriceMax != nil && p.Price > *f.PriceMax {
		return false
	}
	return true
}

// matchesText folds the record fields through the same normalization as
// queries, so "Café Mug" is reachable from "cafe".
func matchesText(p *domain.CatalogProduct, q repository.CatalogQuery) bool {
	name := search.Normalize(p.Name)
	desc := search.Normalize(p.Description)
	searchText := search.Normalize(p.SearchText)

	containsAny := func(needle string) bool {
		return strings.Contains(name, needle) ||
			strings.Contains(desc, needle) ||
			strings.Contains(searchText, needle)
	}

	for _, v := range q.Variations {
		if containsAny(v) {
			return true
		}
	}

	if len(q.Tokens) > 0 {
		allFound := true
		for _, t := range q.Tokens {
			if !containsAny(t) {
				allFound = false
				break
			}
		}
		if allFound {
			return true
		}
	}

	return false
}

func sortProducts(products []*domain.CatalogProduct, q repository.CatalogQuery) {
	switch {
	case q.Sort == domain.SortRelevance && q.HasQuery():
		// The first variation is the normalized query itself.
		search.Rank(products, q.Variations[0])
	case q.Sort == domain.SortPriceAsc:
		sort.SliceStable(products, func(i, j int) bool {
			if products[i].Price != products[j].Price {
				return products[i].Price < products[j].Price
			}
			return products[i].ID < products[j].ID
		})
	case q.Sort == domain.SortPriceDesc:
		sort.SliceStable(products, func(i, j int) bool {
			if products[i].Price != products[j].Price {
				return products[i].Price > products[j].Price
			}
			return products[i].ID < products[j].ID
		})
	case q.Sort == domain.SortRating:
		sort.SliceStable(products, func(i, j int) bool {
			if products[i].Rating != products[j].Rating {
				return products[i].Rating > products[j].Rating
			}
			if products[i].ReviewCount != products[j].ReviewCount {
				return products[i].ReviewCount > products[j].ReviewCount
			}
			return products[i].ID < products[j].ID
		})
	case q.Sort == domain.SortPopularity:
		sort.SliceStable(products, func(i, j int) bool {
			if products[i].SalesCount != products[j].SalesCount {
				return products[i].SalesCount > products[j].SalesCount
			}
			return products[i].ID < products[j].ID
		})
	default:
		sort.SliceStable(products, func(i, j int) bool {
			if !products[i].CreatedAt.Equal(products[j].CreatedAt) {
				return products[i].CreatedAt.After(products[j].CreatedAt)
			}
			return products[i].ID < products[j].ID
		})
	}
}
