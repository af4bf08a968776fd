package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	rediscache "github.com/shoplite/catalog-search/internal/cache/redis"
	"github.com/shoplite/catalog-search/internal/domain"
	"github.com/shoplite/catalog-search/internal/repository"
	"github.com/shoplite/catalog-search/internal/repository/memory"
	pkgerrors "github.com/shoplite/catalog-search/pkg/errors"
	"github.com/shoplite/catalog-search/pkg/logger"
)

// countingCatalog wraps the in-memory repository and counts store hits so
// tests can pin down exactly when the store is consulted.
type countingCatalog struct {
	*memory.CatalogRepository
	searchCalls  atomic.Int32
	suggestCalls atomic.Int32
	failSearch   atomic.Bool
	failSuggest  atomic.Bool
}

func (c *countingCatalog) Search(ctx context.Context, q repository.CatalogQuery) ([]*domain.CatalogProduct, int, error) {
	c.searchCalls.Add(1)
	if c.failSearch.Load() {
		return nil, 0, errors.New("store down")
	}
	return c.CatalogRepository.Search(ctx, q)
}

func (c *countingCatalog) Suggest(ctx context.Context, q string, limit int) ([]*domain.CatalogProduct, error) {
	c.suggestCalls.Add(1)
	if c.failSuggest.Load() {
		return nil, errors.New("store down")
	}
	return c.CatalogRepository.Suggest(ctx, q, limit)
}

// fakeRecorder captures analytics calls and signals each one so tests can
// wait for the fire-and-forget goroutine.
type fakeRecorder struct {
	mu      sync.Mutex
	queries []string
	recents map[string][]string
	calls   chan string
}

func newFakeRecorder() *fakeRecorder {
	return &fakeRecorder{
		recents: make(map[string][]string),
		calls:   make(chan string, 32),
	}
}

func (r *fakeRecorder) RecordQuery(_ context.Context, term string) error {
	r.mu.Lock()
	r.queries = append(r.queries, term)
	r.mu.Unlock()
	r.calls <- "query:" + term
	return nil
}

func (r *fakeRecorder) RecordRecent(_ context.Context, userID, term string) error {
	r.mu.Lock()
	r.recents[userID] = append(r.recents[userID], term)
	r.mu.Unlock()
	r.calls <- "recent:" + userID + ":" + term
	return nil
}

func (r *fakeRecorder) waitFor(t *testing.T, want string) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case got := <-r.calls:
			if got == want {
				return
			}
		case <-deadline:
			t.Fatalf("timed out waiting for analytics call %q", want)
		}
	}
}

type fakeCategories struct {
	calls atomic.Int32
	fail  bool
}

func (f *fakeCategories) List(context.Context) ([]domain.Category, error) {
	f.calls.Add(1)
	if f.fail {
		return nil, pkgerrors.Unavailable("product service")
	}
	return []domain.Category{{ID: "c1", Name: "Apparel", Slug: "apparel", Active: true}}, nil
}

// brokenCache fails every operation, to prove the service fails open.
type brokenCache struct{}

func (brokenCache) GetResult(context.Context, string) (*domain.SearchResponse, error) {
	return nil, errors.New("cache down")
}
func (brokenCache) SetResult(context.Context, string, *domain.SearchResponse, time.Duration) error {
	return errors.New("cache down")
}
func (brokenCache) GetSuggestions(context.Context, string) ([]domain.Suggestion, error) {
	return nil, errors.New("cache down")
}
func (brokenCache) SetSuggestions(context.Context, string, []domain.Suggestion, time.Duration) error {
	return errors.New("cache down")
}
func (brokenCache) GetCategories(context.Context) ([]domain.Category, error) {
	return nil, errors.New("cache down")
}
func (brokenCache) SetCategories(context.Context, []domain.Category, time.Duration) error {
	return errors.New("cache down")
}
func (brokenCache) Invalidate(context.Context, domain.InvalidationHints) error {
	return errors.New("cache down")
}

type fixture struct {
	svc        *SearchService
	catalog    *countingCatalog
	recorder   *fakeRecorder
	categories *fakeCategories
	redis      *miniredis.Miniredis
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	catalog := &countingCatalog{CatalogRepository: memory.NewCatalogRepository()}
	seed(catalog.CatalogRepository)

	mr := miniredis.RunT(t)
	rc := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rc.Close() })

	recorder := newFakeRecorder()
	categories := &fakeCategories{}

	svc := NewSearchService(
		catalog,
		rediscache.NewCache(rc),
		recorder,
		categories,
		logger.New("catalog-search-test", "error"),
		DefaultConfig(),
	)

	return &fixture{svc: svc, catalog: catalog, recorder: recorder, categories: categories, redis: mr}
}

func seed(repo *memory.CatalogRepository) {
	now := time.Now().Add(-60 * 24 * time.Hour)
	cat := "cat-apparel"

	repo.Put(&domain.CatalogProduct{
		ID: "p1", SKU: "TS-01", Name: "T-Shirt Premium Coton", Slug: "t-shirt-premium-coton",
		Description: "soft cotton tee", Price: 2999, Status: domain.StatusActive,
		CategoryID: &cat, SalesCount: 120, Rating: 4.5, CreatedAt: now,
	})
	repo.Put(&domain.CatalogProduct{
		ID: "p2", SKU: "HD-01", Name: "Premium Hoodie", Slug: "premium-hoodie",
		Description: "heavyweight hoodie", Price: 5999, Status: domain.StatusActive,
		CategoryID: &cat, SalesCount: 40, Rating: 4.0, CreatedAt: now,
	})
	repo.Put(&domain.CatalogProduct{
		ID: "p3", SKU: "MG-01", Name: "Ceramic Mug", Slug: "ceramic-mug",
		Description: "a mug", Price: 1299, Status: domain.StatusActive,
		SalesCount: 300, Rating: 4.8, CreatedAt: now,
	})
	repo.Put(&domain.CatalogProduct{
		ID: "p4", SKU: "DR-01", Name: "Unpublished Shirt", Slug: "unpublished-shirt",
		Description: "draft", Price: 999, Status: domain.StatusDraft, CreatedAt: now,
	})
}

func browseRequest(q string) domain.SearchRequest {
	return domain.SearchRequest{Query: q, Page: 1, PerPage: 20, Mode: domain.ModeBrowse}
}

func TestSearchVariationMatch(t *testing.T) {
	f := newFixture(t)

	// "t shirt" reaches "T-Shirt Premium Coton" via the hyphen variation.
	resp, err := f.svc.Search(context.Background(), browseRequest("t shirt"))
	require.NoError(t, err)
	require.Equal(t, 1, resp.Products.Total)
	assert.Equal(t, "p1", resp.Products.Data[0].ID)
	assert.Equal(t, int32(1), f.catalog.suggestCalls.Load(), "thin result still triggers the fallback lookup")
}

func TestSearchAccentInsensitive(t *testing.T) {
	f := newFixture(t)
	f.catalog.Put(&domain.CatalogProduct{
		ID: "p5", Name: "Écharpe Laine", SearchText: "écharpe laine scarf",
		Price: 3499, Status: domain.StatusActive, SalesCount: 10,
		CreatedAt: time.Now().Add(-90 * 24 * time.Hour),
	})

	// Accent on the query side: "Écharpe" folds to "echarpe".
	resp, err := f.svc.Search(context.Background(), browseRequest("Écharpe"))
	require.NoError(t, err)
	require.Equal(t, 1, resp.Products.Total)
	assert.Equal(t, "p5", resp.Products.Data[0].ID)

	// Accent on the record side: a plain "echarpe" still reaches the
	// accented name.
	resp, err = f.svc.Search(context.Background(), browseRequest("echarpe"))
	require.NoError(t, err)
	require.Equal(t, 1, resp.Products.Total)
	assert.Equal(t, "p5", resp.Products.Data[0].ID)
}

func TestSearchLiveEmptyQuery(t *testing.T) {
	f := newFixture(t)

	req := domain.SearchRequest{Query: "   ", Page: 1, PerPage: 10, Mode: domain.ModeLive}
	resp, err := f.svc.Search(context.Background(), req)
	require.NoError(t, err)
	assert.Zero(t, resp.Products.Total)
	assert.Empty(t, resp.Products.Data)
	assert.NotNil(t, resp.Products.Data, "empty page, not a missing one")
	assert.Zero(t, f.catalog.searchCalls.Load(), "empty live query never consults the store")
}

func TestSearchLiveMinLength(t *testing.T) {
	f := newFixture(t)

	req := domain.SearchRequest{Query: "a", Page: 1, PerPage: 10, Mode: domain.ModeLive}
	resp, err := f.svc.Search(context.Background(), req)
	require.NoError(t, err)
	assert.Zero(t, resp.Products.Total)
	assert.Zero(t, f.catalog.searchCalls.Load())
}

func TestSearchBrowseEmptyQueryLists(t *testing.T) {
	f := newFixture(t)

	resp, err := f.svc.Search(context.Background(), browseRequest(""))
	require.NoError(t, err)
	assert.Equal(t, 3, resp.Products.Total, "browse mode lists all active products")
	assert.Equal(t, int32(1), f.catalog.searchCalls.Load())
}

func TestSearchSuggestionFallback(t *testing.T) {
	f := newFixture(t)

	// No match at all: total 0 with up to five suggestions.
	resp, err := f.svc.Search(context.Background(), browseRequest("zzzznotaproduct"))
	require.NoError(t, err)
	assert.Zero(t, resp.Products.Total)
	assert.NotNil(t, resp.Suggestions)
	assert.LessOrEqual(t, len(resp.Suggestions), 5)
	assert.Equal(t, int32(1), f.catalog.suggestCalls.Load())
}

func TestSearchSuggestionThreshold(t *testing.T) {
	f := newFixture(t)

	// "premium" matches exactly two products: below the threshold of
	// three, so the fallback kicks in.
	resp, err := f.svc.Search(context.Background(), browseRequest("premium"))
	require.NoError(t, err)
	assert.Equal(t, 2, resp.Products.Total)
	assert.NotEmpty(t, resp.Suggestions)

	// Add a third match: at the threshold the fallback stays quiet.
	f.catalog.Put(&domain.CatalogProduct{
		ID: "p6", Name: "Premium Socks", Price: 899, Status: domain.StatusActive,
		CreatedAt: time.Now().Add(-90 * 24 * time.Hour),
	})
	f.svc.InvalidateCatalog(context.Background(), domain.InvalidationHints{ProductID: "p6"})

	before := f.catalog.suggestCalls.Load()
	resp, err = f.svc.Search(context.Background(), browseRequest("premium"))
	require.NoError(t, err)
	assert.Equal(t, 3, resp.Products.Total)
	assert.Empty(t, resp.Suggestions)
	assert.Equal(t, before, f.catalog.suggestCalls.Load(), "no fallback lookup at the threshold")
}

func TestSearchCachesResults(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.svc.Search(ctx, browseRequest("shirt"))
	require.NoError(t, err)
	second, err := f.svc.Search(ctx, browseRequest("shirt"))
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), f.catalog.searchCalls.Load(), "second identical search is served from cache")

	// A different page is a different cache entry.
	req := browseRequest("shirt")
	req.Page = 2
	_, err = f.svc.Search(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, int32(2), f.catalog.searchCalls.Load())
}

func TestSearchCacheExpiryReconsultsStore(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Search(ctx, browseRequest("shirt"))
	require.NoError(t, err)

	f.redis.FastForward(DefaultConfig().PageTTL + time.Second)

	_, err = f.svc.Search(ctx, browseRequest("shirt"))
	require.NoError(t, err)
	assert.Equal(t, int32(2), f.catalog.searchCalls.Load(), "expired entry forces a store round trip")
}

func TestSearchInvalidationVisibility(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	resp, err := f.svc.Search(ctx, browseRequest("mug"))
	require.NoError(t, err)
	assert.Equal(t, 1, resp.Products.Total)

	f.catalog.Put(&domain.CatalogProduct{
		ID: "p7", Name: "Travel Mug", Price: 1999, Status: domain.StatusActive,
		SalesCount: 5, CreatedAt: time.Now(),
	})
	f.svc.InvalidateCatalog(ctx, domain.InvalidationHints{ProductID: "p7"})

	resp, err = f.svc.Search(ctx, browseRequest("mug"))
	require.NoError(t, err)
	assert.Equal(t, 2, resp.Products.Total, "new product visible after invalidation")
}

func TestSearchStoreFailureFailsClosed(t *testing.T) {
	f := newFixture(t)
	f.catalog.failSearch.Store(true)

	resp, err := f.svc.Search(context.Background(), browseRequest("shirt"))
	require.NoError(t, err, "store failure never surfaces as an error")
	assert.Zero(t, resp.Products.Total)
	assert.NotNil(t, resp.Products.Data)
	assert.Equal(t, 1, resp.Products.Page)
	assert.Equal(t, 20, resp.Products.PerPage)

	// The degraded response must not be cached.
	f.catalog.failSearch.Store(false)
	resp, err = f.svc.Search(context.Background(), browseRequest("shirt"))
	require.NoError(t, err)
	assert.Equal(t, 1, resp.Products.Total)
}

func TestSearchCacheFailureFailsOpen(t *testing.T) {
	catalog := &countingCatalog{CatalogRepository: memory.NewCatalogRepository()}
	seed(catalog.CatalogRepository)

	svc := NewSearchService(
		catalog, brokenCache{}, newFakeRecorder(), &fakeCategories{},
		logger.New("catalog-search-test", "error"), DefaultConfig(),
	)

	resp, err := svc.Search(context.Background(), browseRequest("shirt"))
	require.NoError(t, err)
	assert.Equal(t, 1, resp.Products.Total, "broken cache degrades to store round trips")

	_, err = svc.Suggest(context.Background(), "mu", 5)
	require.NoError(t, err)
}

func TestSearchRecordsAnalytics(t *testing.T) {
	f := newFixture(t)

	req := browseRequest("Café Shirt")
	req.UserID = "u1"
	_, err := f.svc.Search(context.Background(), req)
	require.NoError(t, err)

	// The recorder sees the normalized term, asynchronously.
	f.recorder.waitFor(t, "query:cafe shirt")
	f.recorder.waitFor(t, "recent:u1:cafe shirt")
}

func TestSearchSkipsAnalyticsOnEmptyQueryAndStoreError(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Search(context.Background(), browseRequest(""))
	require.NoError(t, err)

	f.catalog.failSearch.Store(true)
	_, err = f.svc.Search(context.Background(), browseRequest("shirt"))
	require.NoError(t, err)

	select {
	case call := <-f.recorder.calls:
		t.Fatalf("unexpected analytics call %q", call)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestSearchConcurrentIdenticalQueries(t *testing.T) {
	f := newFixture(t)

	const workers = 8
	results := make([]*domain.SearchResponse, workers)
	errs := make([]error, workers)

	var wg sync.WaitGroup
	for i := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], errs[i] = f.svc.Search(context.Background(), browseRequest("shirt"))
		}()
	}
	wg.Wait()

	for i := range workers {
		require.NoError(t, errs[i])
		assert.Equal(t, results[0].Products, results[i].Products)
	}
	// No single-flight: concurrent misses may each reach the store, but
	// at least one must have.
	assert.GreaterOrEqual(t, f.catalog.searchCalls.Load(), int32(1))
}

func TestSearchRejectsBadFilters(t *testing.T) {
	f := newFixture(t)

	minP, maxP := int64(500), int64(100)
	req := browseRequest("shirt")
	req.Filters = domain.SearchFilters{PriceMin: &minP, PriceMax: &maxP}
	_, err := f.svc.Search(context.Background(), req)
	assert.ErrorIs(t, err, pkgerrors.ErrInvalidInput)

	neg := int64(-1)
	req.Filters = domain.SearchFilters{PriceMin: &neg}
	_, err = f.svc.Search(context.Background(), req)
	assert.ErrorIs(t, err, pkgerrors.ErrInvalidInput)

	req.Filters = domain.SearchFilters{Sort: "cleverness"}
	_, err = f.svc.Search(context.Background(), req)
	assert.ErrorIs(t, err, pkgerrors.ErrInvalidInput)
}

func TestSearchNormalizesPaging(t *testing.T) {
	f := newFixture(t)

	req := domain.SearchRequest{Query: "shirt", Page: 0, PerPage: 500, Mode: domain.ModeBrowse}
	resp, err := f.svc.Search(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 1, resp.Products.Page)
	assert.Equal(t, domain.MaxPerPage, resp.Products.PerPage)
}

func TestSuggestAutocomplete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	suggestions, err := f.svc.Suggest(ctx, "pre", 5)
	require.NoError(t, err)
	require.Len(t, suggestions, 2)
	assert.Equal(t, "T-Shirt Premium Coton", suggestions[0].Name, "most popular first")

	// Below minimum length: empty without a store call.
	before := f.catalog.suggestCalls.Load()
	suggestions, err = f.svc.Suggest(ctx, "p", 5)
	require.NoError(t, err)
	assert.Empty(t, suggestions)
	assert.Equal(t, before, f.catalog.suggestCalls.Load())

	// Second identical call is served from cache.
	_, err = f.svc.Suggest(ctx, "pre", 5)
	require.NoError(t, err)
	assert.Equal(t, before, f.catalog.suggestCalls.Load())
}

func TestCategoriesCached(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	categories, err := f.svc.Categories(ctx)
	require.NoError(t, err)
	require.Len(t, categories, 1)

	_, err = f.svc.Categories(ctx)
	require.NoError(t, err)
	assert.Equal(t, int32(1), f.categories.calls.Load(), "second call hits the aggregate cache")
}

func TestCategoriesUpstreamErrorSurfaces(t *testing.T) {
	f := newFixture(t)
	f.categories.fail = true

	_, err := f.svc.Categories(context.Background())
	assert.ErrorIs(t, err, pkgerrors.ErrUnavailable)
}

func TestSearchPagination(t *testing.T) {
	f := newFixture(t)
	for i := range 25 {
		f.catalog.Put(&domain.CatalogProduct{
			ID: fmt.Sprintf("bulk-%02d", i), Name: fmt.Sprintf("Bulk Shirt %02d", i),
			Price: 1000 + int64(i), Status: domain.StatusActive,
			CreatedAt: time.Now().Add(-time.Duration(i) * time.Hour),
		})
	}

	req := browseRequest("bulk shirt")
	req.PerPage = 10
	resp, err := f.svc.Search(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 25, resp.Products.Total)
	assert.Len(t, resp.Products.Data, 10)
	assert.Equal(t, 3, resp.Products.TotalPages)
	assert.True(t, resp.Products.HasNext)

	req.Page = 3
	resp, err = f.svc.Search(context.Background(), req)
	require.NoError(t, err)
	assert.Len(t, resp.Products.Data, 5)
	assert.False(t, resp.Products.HasNext)
}

func TestSearchBadges(t *testing.T) {
	f := newFixture(t)
	compareAt := int64(3999)
	f.catalog.Put(&domain.CatalogProduct{
		ID: "p8", Name: "Fresh Deal Shirt", Price: 2999, CompareAtPrice: &compareAt,
		Status: domain.StatusActive, SalesCount: 200, CreatedAt: time.Now().Add(-24 * time.Hour),
	})

	resp, err := f.svc.Search(context.Background(), browseRequest("fresh deal"))
	require.NoError(t, err)
	require.Equal(t, 1, resp.Products.Total)
	assert.ElementsMatch(t,
		[]string{domain.BadgeNew, domain.BadgeBestSeller, domain.BadgeOnSale},
		resp.Products.Data[0].Badges,
	)
}
