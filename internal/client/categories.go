// Package client holds HTTP clients for sibling storefront services.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/shoplite/catalog-search/internal/domain"
	"github.com/shoplite/catalog-search/pkg/errors"
)

// Categories lists the storefront categories used for filter enumeration.
type Categories interface {
	List(ctx context.Context) ([]domain.Category, error)
}

// getter is the subset of pkg/httpclient the category client needs. Both
// the plain retrying client and the circuit breaker wrapper satisfy it.
type getter interface {
	Get(ctx context.Context, url string) (*http.Response, error)
}

// CategoryClient fetches categories from the product service.
type CategoryClient struct {
	http    getter
	baseURL string
}

// NewCategoryClient creates a client for the product service at baseURL.
func NewCategoryClient(http getter, baseURL string) *CategoryClient {
	return &CategoryClient{http: http, baseURL: baseURL}
}

// categoriesEnvelope matches the product service response shape.
type categoriesEnvelope struct {
	Data []domain.Category `json:"data"`
}

// List returns the product service's active categories.
func (c *CategoryClient) List(ctx context.Context) ([]domain.Category, error) {
	endpoint, err := url.JoinPath(c.baseURL, "/api/v1/categories")
	if err != nil {
		return nil, fmt.Errorf("build categories url: %w", err)
	}

	resp, err := c.http.Get(ctx, endpoint)
	if err != nil {
		return nil, errors.Unavailable("product service").WithError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, errors.Unavailable("product service").
			WithError(fmt.Errorf("categories: unexpected status %d: %s", resp.StatusCode, body))
	}

	var envelope categoriesEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("decode categories response: %w", err)
	}

	active := make([]domain.Category, 0, len(envelope.Data))
	for _, cat := range envelope.Data {
		if cat.Active {
			active = append(active, cat)
		}
	}
	return active, nil
}
