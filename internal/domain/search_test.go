package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/shoplite/catalog-search/pkg/errors"
)

func TestSearchRequestNormalize(t *testing.T) {
	req := SearchRequest{Page: 0, PerPage: 0}
	req.Normalize(20)
	assert.Equal(t, 1, req.Page)
	assert.Equal(t, 20, req.PerPage)
	assert.Equal(t, ModeBrowse, req.Mode)

	req = SearchRequest{Page: 3, PerPage: 500, Mode: ModeLive}
	req.Normalize(20)
	assert.Equal(t, 3, req.Page)
	assert.Equal(t, MaxPerPage, req.PerPage)
	assert.Equal(t, ModeLive, req.Mode)
}

func TestSearchFiltersValidate(t *testing.T) {
	low, high, neg := int64(100), int64(500), int64(-1)

	assert.NoError(t, SearchFilters{}.Validate())
	assert.NoError(t, SearchFilters{PriceMin: &low, PriceMax: &high, Sort: SortPriceAsc}.Validate())
	assert.NoError(t, SearchFilters{PriceMin: &low, PriceMax: &low}.Validate(), "equal bounds are inclusive")

	err := SearchFilters{PriceMin: &high, PriceMax: &low}.Validate()
	assert.ErrorIs(t, err, errors.ErrInvalidInput)

	err = SearchFilters{PriceMin: &neg}.Validate()
	assert.ErrorIs(t, err, errors.ErrInvalidInput)

	err = SearchFilters{Sort: "cleverness"}.Validate()
	assert.ErrorIs(t, err, errors.ErrInvalidInput)
}

func TestValidSort(t *testing.T) {
	for _, s := range []string{SortRelevance, SortPriceAsc, SortPriceDesc, SortNewest, SortRating, SortPopularity} {
		assert.True(t, ValidSort(s), s)
	}
	assert.False(t, ValidSort(""))
	assert.False(t, ValidSort("price"))
}

func TestEmptyResultPage(t *testing.T) {
	page := EmptyResultPage(2, 10)
	assert.NotNil(t, page.Data)
	assert.Empty(t, page.Data)
	assert.Zero(t, page.Total)
	assert.Equal(t, 2, page.Page)
	assert.Equal(t, 10, page.PerPage)
	assert.False(t, page.HasNext)
}
