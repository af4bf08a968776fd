// Package http exposes the search operations over HTTP with the standard
// JSON envelope.
package http

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/shoplite/catalog-search/internal/domain"
	"github.com/shoplite/catalog-search/pkg/errors"
	"github.com/shoplite/catalog-search/pkg/httputil"
	"github.com/shoplite/catalog-search/pkg/middleware"
	"github.com/shoplite/catalog-search/pkg/pagination"
)

// defaultLiveLimit and maxLiveLimit bound the flat live-search page.
const (
	defaultLiveLimit = 10
	maxLiveLimit     = 50
)

// SearchService is the service contract the handlers depend on.
type SearchService interface {
	Search(ctx context.Context, req domain.SearchRequest) (*domain.SearchResponse, error)
	Suggest(ctx context.Context, query string, limit int) ([]domain.Suggestion, error)
	Categories(ctx context.Context) ([]domain.Category, error)
}

// SearchHandler serves the search endpoints.
type SearchHandler struct {
	service SearchService
	logger  *slog.Logger
}

// NewSearchHandler creates the HTTP handler for search operations.
func NewSearchHandler(service SearchService, logger *slog.Logger) *SearchHandler {
	return &SearchHandler{service: service, logger: logger}
}

// Search handles GET /api/v1/search: the full browse-mode catalog search.
func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	filters, err := parseFilters(r)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	params := pagination.FromRequest(r)
	req := domain.SearchRequest{
		Query:   r.URL.Query().Get("q"),
		Filters: filters,
		Page:    params.Page,
		PerPage: params.PerPage,
		Mode:    domain.ModeBrowse,
		UserID:  middleware.UserIDFromContext(r.Context()),
	}

	resp, err := h.service.Search(r.Context(), req)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: resp})
}

// Live handles GET /api/v1/search/live: the as-you-type flat result list.
func (h *SearchHandler) Live(w http.ResponseWriter, r *http.Request) {
	limit := defaultLiveLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 1 {
			httputil.WriteError(w, r, errors.InvalidInput("limit must be a positive integer"), h.logger)
			return
		}
		limit = min(v, maxLiveLimit)
	}

	req := domain.SearchRequest{
		Query:   r.URL.Query().Get("q"),
		Page:    1,
		PerPage: limit,
		Mode:    domain.ModeLive,
		UserID:  middleware.UserIDFromContext(r.Context()),
	}

	resp, err := h.service.Search(r.Context(), req)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: resp})
}

// suggestionView is the autocomplete wire shape.
type suggestionView struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Subtitle string `json:"subtitle,omitempty"`
	URL      string `json:"url"`
	Image    string `json:"image,omitempty"`
}

// Suggest handles GET /api/v1/search/suggest: autocomplete entries.
func (h *SearchHandler) Suggest(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 1 {
			httputil.WriteError(w, r, errors.InvalidInput("limit must be a positive integer"), h.logger)
			return
		}
		limit = v
	}

	suggestions, err := h.service.Suggest(r.Context(), r.URL.Query().Get("q"), limit)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	views := make([]suggestionView, 0, len(suggestions))
	for _, s := range suggestions {
		views = append(views, suggestionView{
			ID:    s.ID,
			Title: s.Name,
			URL:   "/products/" + s.Slug,
			Image: s.ImageURL,
		})
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{
		Data: map[string]any{"suggestions": views},
	})
}

// Categories handles GET /api/v1/search/categories: the filter enumeration.
func (h *SearchHandler) Categories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.service.Categories(r.Context())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{
		Data: map[string]any{"categories": categories},
	})
}

// parseFilters reads and validates the typed filter parameters. Unknown
// sort keys and malformed or inconsistent prices are rejected here, before
// the service runs.
func parseFilters(r *http.Request) (domain.SearchFilters, error) {
	q := r.URL.Query()

	filters := domain.SearchFilters{
		CategoryID: q.Get("category_id"),
		Sort:       q.Get("sort"),
	}

	if filters.Sort != "" && !domain.ValidSort(filters.Sort) {
		return filters, errors.InvalidInput("unknown sort key")
	}

	var err error
	if filters.PriceMin, err = parsePrice(q.Get("min_price"), "min_price"); err != nil {
		return filters, err
	}
	if filters.PriceMax, err = parsePrice(q.Get("max_price"), "max_price"); err != nil {
		return filters, err
	}

	if err := filters.Validate(); err != nil {
		return filters, err
	}
	return filters, nil
}

// parsePrice parses a price bound in minor units.
func parsePrice(raw, name string) (*int64, error) {
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, errors.InvalidInput(name + " must be an integer amount in cents")
	}
	if v < 0 {
		return nil, errors.InvalidInput(name + " must not be negative")
	}
	return &v, nil
}
