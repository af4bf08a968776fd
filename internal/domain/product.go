package domain

import "time"

// Product status values. Only active products are eligible for search.
const (
	StatusActive   = "active"
	StatusDraft    = "draft"
	StatusArchived = "archived"
)

// BestSellerSalesThreshold is the default sales count above which a product
// earns the "best seller" badge. Overridable through config.
const BestSellerSalesThreshold = 50

// NewBadgeWindow is how long after creation a product keeps the "new" badge.
const NewBadgeWindow = 30 * 24 * time.Hour

// CatalogProduct is the catalog record as stored. Price fields are minor
// units (cents).
type CatalogProduct struct {
	ID             string
	SKU            string
	Name           string
	Slug           string
	Description    string
	SearchText     string
	Price          int64
	CompareAtPrice *int64
	Status         string
	CategoryID     *string
	ImageURL       string
	Rating         float64
	ReviewCount    int
	SalesCount     int
	Featured       bool
	InStock        bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Eligible reports whether the product may appear in search results.
func (p *CatalogProduct) Eligible() bool {
	return p.Status == StatusActive
}

// ProductSummary is the search result projection of a catalog product.
// Badges are derived at read time, never stored.
type ProductSummary struct {
	ID             string   `json:"id"`
	SKU            string   `json:"sku"`
	Name           string   `json:"name"`
	Slug           string   `json:"slug"`
	Price          int64    `json:"price"`
	CompareAtPrice *int64   `json:"compare_at_price,omitempty"`
	ImageURL       string   `json:"image"`
	Rating         float64  `json:"rating"`
	ReviewCount    int      `json:"review_count"`
	Featured       bool     `json:"featured"`
	InStock        bool     `json:"in_stock"`
	Badges         []string `json:"badges,omitempty"`
}

// Badge names attached to product summaries.
const (
	BadgeNew        = "new"
	BadgeBestSeller = "best seller"
	BadgeOnSale     = "on sale"
)

// SummaryFromProduct projects a catalog product into its search summary,
// deriving badges against the given reference time and sales threshold.
func SummaryFromProduct(p *CatalogProduct, now time.Time, bestSellerSales int) ProductSummary {
	s := ProductSummary{
		ID:             p.ID,
		SKU:            p.SKU,
		Name:           p.Name,
		Slug:           p.Slug,
		Price:          p.Price,
		CompareAtPrice: p.CompareAtPrice,
		ImageURL:       p.ImageURL,
		Rating:         p.Rating,
		ReviewCount:    p.ReviewCount,
		Featured:       p.Featured,
		InStock:        p.InStock,
	}

	if now.Sub(p.CreatedAt) < NewBadgeWindow {
		s.Badges = append(s.Badges, BadgeNew)
	}
	if p.SalesCount >= bestSellerSales {
		s.Badges = append(s.Badges, BadgeBestSeller)
	}
	if p.CompareAtPrice != nil && *p.CompareAtPrice > p.Price {
		s.Badges = append(s.Badges, BadgeOnSale)
	}

	return s
}

// Category is an active storefront category, fetched from the product
// service for filter enumeration.
type Category struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Slug   string `json:"slug"`
	Active bool   `json:"active"`
}
