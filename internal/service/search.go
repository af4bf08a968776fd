// Package service orchestrates a search: normalization, cache consultation,
// store matching, ranking projection, suggestion fallback and analytics.
package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/shoplite/catalog-search/internal/analytics"
	"github.com/shoplite/catalog-search/internal/cache"
	"github.com/shoplite/catalog-search/internal/client"
	"github.com/shoplite/catalog-search/internal/domain"
	"github.com/shoplite/catalog-search/internal/repository"
	"github.com/shoplite/catalog-search/internal/search"
	"github.com/shoplite/catalog-search/pkg/errors"
	"github.com/shoplite/catalog-search/pkg/logger"
	"github.com/shoplite/catalog-search/pkg/pagination"
)

// Config holds the search policy knobs.
type Config struct {
	// MinQueryLength is the shortest normalized query live search will
	// run. Shorter queries come back empty without touching the store.
	MinQueryLength int
	// SuggestionThreshold is the result total below which the fallback
	// suggestion list is populated.
	SuggestionThreshold int
	// SuggestionLimit caps the fallback and autocomplete lists.
	SuggestionLimit int
	// DefaultPerPage applies when the request carries no page size.
	DefaultPerPage int
	// BestSellerSales is the sales count earning the best-seller badge.
	BestSellerSales int

	LiveTTL       time.Duration
	PageTTL       time.Duration
	SuggestTTL    time.Duration
	CategoriesTTL time.Duration

	// AnalyticsTimeout bounds the detached fire-and-forget recording.
	AnalyticsTimeout time.Duration
}

// DefaultConfig returns the standard search policy.
func DefaultConfig() Config {
	return Config{
		MinQueryLength:      2,
		SuggestionThreshold: 3,
		SuggestionLimit:     5,
		DefaultPerPage:      20,
		BestSellerSales:     domain.BestSellerSalesThreshold,
		LiveTTL:             time.Minute,
		PageTTL:             5 * time.Minute,
		SuggestTTL:          time.Minute,
		CategoriesTTL:       10 * time.Minute,
		AnalyticsTimeout:    2 * time.Second,
	}
}

// SearchService coordinates the catalog store, result cache, analytics
// recorder and category client behind the search operations.
type SearchService struct {
	catalog    repository.Catalog
	cache      cache.Store
	recorder   analytics.Recorder
	categories client.Categories
	logger     *slog.Logger
	cfg        Config

	now func() time.Time
}

// NewSearchService wires the search orchestrator.
func NewSearchService(
	catalog repository.Catalog,
	store cache.Store,
	recorder analytics.Recorder,
	categories client.Categories,
	log *slog.Logger,
	cfg Config,
) *SearchService {
	return &SearchService{
		catalog:    catalog,
		cache:      store,
		recorder:   recorder,
		categories: categories,
		logger:     log,
		cfg:        cfg,
		now:        time.Now,
	}
}

// Search runs a full catalog search. Store failures degrade to a
// well-formed empty page; cache and analytics failures never surface.
func (s *SearchService) Search(ctx context.Context, req domain.SearchRequest) (*domain.SearchResponse, error) {
	req.Normalize(s.cfg.DefaultPerPage)
	if err := req.Filters.Validate(); err != nil {
		return nil, err
	}

	query := search.Normalize(req.Query)

	// Live search refuses to run without enough query text; browse mode
	// degrades to a plain catalog listing instead.
	if req.Mode == domain.ModeLive && len([]rune(query)) < s.cfg.MinQueryLength {
		return emptyResponse(req), nil
	}

	key := cache.ResultKey(req.Mode, query, req.Filters, req.Page, req.PerPage)
	if cached, err := s.cache.GetResult(ctx, key); err == nil {
		// A cache hit is still a search the shopper ran.
		if query != "" {
			s.recordAsync(ctx, query, req.UserID)
		}
		return cached, nil
	} else if !errors.Is(err, errors.ErrNotFound) {
		logger.FromContext(ctx).Warn("result cache read failed",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
	}

	resp, ok := s.searchStore(ctx, req, query)
	if !ok {
		// Fail closed: the page renders empty rather than erroring.
		return emptyResponse(req), nil
	}

	if err := s.cache.SetResult(ctx, key, resp, s.resultTTL(req.Mode)); err != nil {
		logger.FromContext(ctx).Warn("result cache write failed",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
	}

	if query != "" {
		s.recordAsync(ctx, query, req.UserID)
	}

	return resp, nil
}

// searchStore queries the catalog and assembles the response. The second
// return is false when the store failed.
func (s *SearchService) searchStore(ctx context.Context, req domain.SearchRequest, query string) (*domain.SearchResponse, bool) {
	catalogQuery := repository.CatalogQuery{
		Variations: search.Variations(query),
		Tokens:     search.Tokens(query),
		Filters:    req.Filters,
		Sort:       s.effectiveSort(req.Filters.Sort, query),
		Limit:      req.PerPage,
		Offset:     (req.Page - 1) * req.PerPage,
		ActiveOnly: true,
	}

	products, total, err := s.catalog.Search(ctx, catalogQuery)
	if err != nil {
		logger.FromContext(ctx).Error("catalog search failed",
			slog.String("query", query),
			slog.String("category_id", req.Filters.CategoryID),
			slog.String("sort", catalogQuery.Sort),
			slog.Int("page", req.Page),
			slog.String("error", err.Error()),
		)
		return nil, false
	}

	now := s.now()
	summaries := make([]domain.ProductSummary, 0, len(products))
	for _, p := range products {
		summaries = append(summaries, domain.SummaryFromProduct(p, now, s.cfg.BestSellerSales))
	}

	resp := &domain.SearchResponse{
		Products: domain.ResultPage{
			Data:       summaries,
			Total:      total,
			Page:       req.Page,
			PerPage:    req.PerPage,
			TotalPages: pagination.TotalPages(total, req.PerPage),
			HasNext:    req.Page*req.PerPage < total,
		},
		Suggestions: []domain.Suggestion{},
	}

	if query != "" && total < s.cfg.SuggestionThreshold {
		resp.Suggestions = s.fallbackSuggestions(ctx, query)
	}

	return resp, true
}

// fallbackSuggestions fetches alternatives for a thin result page. Errors
// degrade to no suggestions.
func (s *SearchService) fallbackSuggestions(ctx context.Context, query string) []domain.Suggestion {
	products, err := s.catalog.Suggest(ctx, query, s.cfg.SuggestionLimit)
	if err != nil {
		logger.FromContext(ctx).Warn("suggestion lookup failed",
			slog.String("query", query),
			slog.String("error", err.Error()),
		)
		return []domain.Suggestion{}
	}

	suggestions := make([]domain.Suggestion, 0, len(products))
	for _, p := range products {
		suggestions = append(suggestions, domain.Suggestion{
			ID:       p.ID,
			Name:     p.Name,
			Slug:     p.Slug,
			ImageURL: p.ImageURL,
		})
	}
	return suggestions
}

// Suggest serves autocomplete. Queries below the minimum length come back
// empty without a store call.
func (s *SearchService) Suggest(ctx context.Context, rawQuery string, limit int) ([]domain.Suggestion, error) {
	query := search.Normalize(rawQuery)
	if len([]rune(query)) < s.cfg.MinQueryLength {
		return []domain.Suggestion{}, nil
	}
	if limit <= 0 || limit > s.cfg.SuggestionLimit {
		limit = s.cfg.SuggestionLimit
	}

	key := cache.SuggestKey(query, limit)
	if cached, err := s.cache.GetSuggestions(ctx, key); err == nil {
		return cached, nil
	} else if !errors.Is(err, errors.ErrNotFound) {
		logger.FromContext(ctx).Warn("suggest cache read failed",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
	}

	products, err := s.catalog.Suggest(ctx, query, limit)
	if err != nil {
		logger.FromContext(ctx).Error("autocomplete lookup failed",
			slog.String("query", query),
			slog.String("error", err.Error()),
		)
		return []domain.Suggestion{}, nil
	}

	suggestions := make([]domain.Suggestion, 0, len(products))
	for _, p := range products {
		suggestions = append(suggestions, domain.Suggestion{
			ID:       p.ID,
			Name:     p.Name,
			Slug:     p.Slug,
			ImageURL: p.ImageURL,
		})
	}

	if err := s.cache.SetSuggestions(ctx, key, suggestions, s.cfg.SuggestTTL); err != nil {
		logger.FromContext(ctx).Warn("suggest cache write failed",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
	}

	return suggestions, nil
}

// Categories returns the active category list, cached as a named aggregate.
func (s *SearchService) Categories(ctx context.Context) ([]domain.Category, error) {
	if cached, err := s.cache.GetCategories(ctx); err == nil {
		return cached, nil
	} else if !errors.Is(err, errors.ErrNotFound) {
		logger.FromContext(ctx).Warn("category cache read failed",
			slog.String("error", err.Error()),
		)
	}

	categories, err := s.categories.List(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.cache.SetCategories(ctx, categories, s.cfg.CategoriesTTL); err != nil {
		logger.FromContext(ctx).Warn("category cache write failed",
			slog.String("error", err.Error()),
		)
	}

	return categories, nil
}

// InvalidateCatalog sweeps cached results after a catalog write. Failures
// are logged and swallowed so the write path never blocks on the cache.
func (s *SearchService) InvalidateCatalog(ctx context.Context, hints domain.InvalidationHints) {
	if err := s.cache.Invalidate(ctx, hints); err != nil {
		logger.FromContext(ctx).Error("cache invalidation failed",
			slog.String("product_id", hints.ProductID),
			slog.String("error", err.Error()),
		)
	}
}

// recordAsync records analytics on a detached context so neither request
// cancellation nor a slow Redis affects the response.
func (s *SearchService) recordAsync(ctx context.Context, query, userID string) {
	log := logger.FromContext(ctx)
	detached := context.WithoutCancel(ctx)

	go func() {
		recordCtx, cancel := context.WithTimeout(detached, s.cfg.AnalyticsTimeout)
		defer cancel()

		if err := s.recorder.RecordQuery(recordCtx, query); err != nil {
			log.Warn("query analytics failed",
				slog.String("query", query),
				slog.String("error", err.Error()),
			)
		}
		if userID == "" {
			return
		}
		if err := s.recorder.RecordRecent(recordCtx, userID, query); err != nil {
			log.Warn("recent search analytics failed",
				slog.String("user_id", userID),
				slog.String("error", err.Error()),
			)
		}
	}()
}

func (s *SearchService) resultTTL(mode domain.SearchMode) time.Duration {
	if mode == domain.ModeLive {
		return s.cfg.LiveTTL
	}
	return s.cfg.PageTTL
}

// effectiveSort defaults to relevance when there is a query and newest
// otherwise.
func (s *SearchService) effectiveSort(sort, query string) string {
	if sort != "" {
		return sort
	}
	if query != "" {
		return domain.SortRelevance
	}
	return domain.SortNewest
}

func emptyResponse(req domain.SearchRequest) *domain.SearchResponse {
	return &domain.SearchResponse{
		Products:    domain.EmptyResultPage(req.Page, req.PerPage),
		Suggestions: []domain.Suggestion{},
	}
}
