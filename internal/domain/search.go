package domain

import "github.com/shoplite/catalog-search/pkg/errors"

// SearchMode decides what an empty query means at the boundary.
type SearchMode string

const (
	// ModeBrowse treats an empty query as "list the catalog": filters,
	// paging and sort still apply.
	ModeBrowse SearchMode = "browse"
	// ModeLive treats an empty or too-short query as "nothing to search":
	// the store is never consulted.
	ModeLive SearchMode = "live"
)

// Sort keys accepted at the boundary.
const (
	SortRelevance  = "relevance"
	SortPriceAsc   = "price_asc"
	SortPriceDesc  = "price_desc"
	SortNewest     = "newest"
	SortRating     = "rating"
	SortPopularity = "popularity"
)

var validSorts = map[string]struct{}{
	SortRelevance:  {},
	SortPriceAsc:   {},
	SortPriceDesc:  {},
	SortNewest:     {},
	SortRating:     {},
	SortPopularity: {},
}

// ValidSort reports whether s is an allow-listed sort key.
func ValidSort(s string) bool {
	_, ok := validSorts[s]
	return ok
}

// SearchFilters restricts a search to a category and/or price range.
// Prices are minor units; bounds are inclusive.
type SearchFilters struct {
	CategoryID string
	PriceMin   *int64
	PriceMax   *int64
	Sort       string
}

// Validate rejects structurally impossible filters.
func (f SearchFilters) Validate() error {
	if f.PriceMin != nil && *f.PriceMin < 0 {
		return errors.InvalidInput("min_price must not be negative")
	}
	if f.PriceMax != nil && *f.PriceMax < 0 {
		return errors.InvalidInput("max_price must not be negative")
	}
	if f.PriceMin != nil && f.PriceMax != nil && *f.PriceMin > *f.PriceMax {
		return errors.InvalidInput("min_price must not exceed max_price")
	}
	if f.Sort != "" && !ValidSort(f.Sort) {
		return errors.InvalidInput("unknown sort key")
	}
	return nil
}

// MaxPerPage caps the page size accepted at the boundary.
const MaxPerPage = 100

// SearchRequest is a fully-typed search invocation.
type SearchRequest struct {
	Query   string
	Filters SearchFilters
	Page    int
	PerPage int
	Mode    SearchMode
	// UserID, when present, attributes the search in the per-user
	// recent-search list. Never affects matching or ranking.
	UserID string
}

// Normalize clamps paging to valid bounds and defaults the mode.
func (r *SearchRequest) Normalize(defaultPerPage int) {
	if r.Page < 1 {
		r.Page = 1
	}
	if r.PerPage < 1 {
		r.PerPage = defaultPerPage
	}
	if r.PerPage > MaxPerPage {
		r.PerPage = MaxPerPage
	}
	if r.Mode == "" {
		r.Mode = ModeBrowse
	}
}

// ResultPage is one page of search results.
type ResultPage struct {
	Data       []ProductSummary `json:"data"`
	Total      int              `json:"total"`
	Page       int              `json:"page"`
	PerPage    int              `json:"per_page"`
	TotalPages int              `json:"total_pages"`
	HasNext    bool             `json:"has_next"`
}

// EmptyResultPage returns a well-formed zero-result page for the request.
func EmptyResultPage(page, perPage int) ResultPage {
	return ResultPage{
		Data:    []ProductSummary{},
		Total:   0,
		Page:    page,
		PerPage: perPage,
	}
}

// Suggestion is an alternative product offered when a search comes back
// (nearly) empty, and the shape of autocomplete entries.
type Suggestion struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Slug     string `json:"slug"`
	ImageURL string `json:"image"`
}

// SearchResponse is what the service hands to the boundary: the result page
// plus fallback suggestions (empty slice when the page is rich enough).
type SearchResponse struct {
	Products    ResultPage   `json:"products"`
	Suggestions []Suggestion `json:"suggestions"`
}

// InvalidationHints tells the cache which aggregates a catalog write may
// have touched, beyond the always-swept search namespace.
type InvalidationHints struct {
	ProductID      string
	Featured       bool
	HighSeller     bool
	StatusChanged  bool
	CategoryChange bool
}
