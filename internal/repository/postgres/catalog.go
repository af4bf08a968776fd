// Package postgres implements the catalog repository on PostgreSQL.
// Matching happens in SQL with LIKE over unaccent-lowered text so records
// fold the same way normalized queries do; totals come from count(*) OVER()
// so one round trip serves the whole page. Requires the unaccent extension.
package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/shoplite/catalog-search/internal/domain"
	"github.com/shoplite/catalog-search/internal/repository"
)

// db is the subset of pgxpool.Pool the repository needs. pgxmock satisfies
// it in tests.
type db interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// CatalogRepository reads the product catalog from PostgreSQL.
type CatalogRepository struct {
	db db
}

// NewCatalogRepository creates a PostgreSQL-backed catalog repository.
func NewCatalogRepository(db db) *CatalogRepository {
	return &CatalogRepository{db: db}
}

const productColumns = `id, sku, name, slug, description, search_text, price,
	compare_at_price, status, category_id, image_url, rating, review_count,
	sales_count, featured, in_stock, created_at, updated_at`

// textPredicate matches one pattern against the folded text columns.
// Queries arrive normalized (lowercase, accents stripped), so records are
// folded the same way. %[1]s is the pattern placeholder.
const textPredicate = `(unaccent(lower(name)) LIKE %[1]s` +
	` OR unaccent(lower(description)) LIKE %[1]s` +
	` OR unaccent(lower(search_text)) LIKE %[1]s)`

// Search returns one page of products matching q plus the total match count.
func (r *CatalogRepository) Search(ctx context.Context, q repository.CatalogQuery) ([]*domain.CatalogProduct, int, error) {
	var (
		conds []string
		args  []any
	)

	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if q.ActiveOnly {
		conds = append(conds, fmt.Sprintf("status = %s", arg(domain.StatusActive)))
	}

	if q.HasQuery() {
		var alts []string
		for _, v := range q.Variations {
			p := arg("%" + escapeLike(v) + "%")
			alts = append(alts, fmt.Sprintf(textPredicate, p))
		}
		if len(q.Tokens) > 0 {
			var all []string
			for _, t := range q.Tokens {
				p := arg("%" + escapeLike(t) + "%")
				all = append(all, fmt.Sprintf(textPredicate, p))
			}
			alts = append(alts, "("+strings.Join(all, " AND ")+")")
		}
		conds = append(conds, "("+strings.Join(alts, " OR ")+")")
	}

	if q.Filters.CategoryID != "" {
		conds = append(conds, fmt.Sprintf("category_id = %s", arg(q.Filters.CategoryID)))
	}
	if q.Filters.PriceMin != nil {
		conds = append(conds, fmt.Sprintf("price >= %s", arg(*q.Filters.PriceMin)))
	}
	if q.Filters.PriceMax != nil {
		conds = append(conds, fmt.Sprintf("price <= %s", arg(*q.Filters.PriceMax)))
	}

	where := ""
	if len(conds) > 0 {
		where = "WHERE " + strings.Join(conds, " AND ")
	}

	orderBy := r.orderClause(q, arg)

	query := fmt.Sprintf(`SELECT %s, count(*) OVER() AS total_count
		FROM products %s %s LIMIT %s OFFSET %s`,
		productColumns, where, orderBy, arg(q.Limit), arg(q.Offset))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("search products: %w", err)
	}
	defer rows.Close()

	var (
		products []*domain.CatalogProduct
		total    int
	)
	for rows.Next() {
		p, rowTotal, err := scanProductWithTotal(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, p)
		total = rowTotal
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate products: %w", err)
	}

	return products, total, nil
}

// orderClause builds ORDER BY for the allow-listed sort keys. Relevance
// ranks by match band against the primary variation, then popularity,
// rating and recency; everything ends on id for a stable order.
func (r *CatalogRepository) orderClause(q repository.CatalogQuery, arg func(any) string) string {
	if q.Sort == domain.SortRelevance && q.HasQuery() {
		primary := escapeLike(q.Variations[0])
		prefix := arg(primary + "%")
		substr := arg("%" + primary + "%")
		return fmt.Sprintf(`ORDER BY CASE
			WHEN unaccent(lower(name)) LIKE %s THEN 0
			WHEN unaccent(lower(name)) LIKE %s THEN 1
			WHEN unaccent(lower(description)) LIKE %s THEN 2
			ELSE 3 END,
			sales_count DESC, rating DESC, created_at DESC, id`,
			prefix, substr, substr)
	}

	switch q.Sort {
	case domain.SortPriceAsc:
		return "ORDER BY price ASC, id"
	case domain.SortPriceDesc:
		return "ORDER BY price DESC, id"
	case domain.SortRating:
		return "ORDER BY rating DESC, review_count DESC, id"
	case domain.SortPopularity:
		return "ORDER BY sales_count DESC, id"
	default:
		return "ORDER BY created_at DESC, id"
	}
}

const suggestQuery = `SELECT ` + productColumns + ` FROM (
		SELECT DISTINCT ON (name) ` + productColumns + `
		FROM products
		WHERE status = $1 AND (unaccent(lower(name)) LIKE $2 OR unaccent(lower(search_text)) LIKE $2)
		ORDER BY name, sales_count DESC
	) candidates
	ORDER BY sales_count DESC, id
	LIMIT $3`

// Suggest returns up to limit active products whose name or search text
// contains q, one per distinct name, most popular first.
func (r *CatalogRepository) Suggest(ctx context.Context, q string, limit int) ([]*domain.CatalogProduct, error) {
	rows, err := r.db.Query(ctx, suggestQuery, domain.StatusActive, "%"+escapeLike(q)+"%", limit)
	if err != nil {
		return nil, fmt.Errorf("suggest products: %w", err)
	}
	defer rows.Close()

	var products []*domain.CatalogProduct
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan suggestion: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate suggestions: %w", err)
	}

	return products, nil
}

func scanProduct(rows pgx.Rows) (*domain.CatalogProduct, error) {
	var p domain.CatalogProduct
	err := rows.Scan(
		&p.ID, &p.SKU, &p.Name, &p.Slug, &p.Description, &p.SearchText,
		&p.Price, &p.CompareAtPrice, &p.Status, &p.CategoryID, &p.ImageURL,
		&p.Rating, &p.ReviewCount, &p.SalesCount, &p.Featured, &p.InStock,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func scanProductWithTotal(rows pgx.Rows) (*domain.CatalogProduct, int, error) {
	var (
		p     domain.CatalogProduct
		total int
	)
	err := rows.Scan(
		&p.ID, &p.SKU, &p.Name, &p.Slug, &p.Description, &p.SearchText,
		&p.Price, &p.CompareAtPrice, &p.Status, &p.CategoryID, &p.ImageURL,
		&p.Rating, &p.ReviewCount, &p.SalesCount, &p.Featured, &p.InStock,
		&p.CreatedAt, &p.UpdatedAt, &total,
	)
	if err != nil {
		return nil, 0, err
	}
	return &p, total, nil
}

// escapeLike neutralizes LIKE metacharacters in user-supplied text so a
// query of "100%" matches the literal string.
func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `%`, `\%`)
	s = strings.ReplaceAll(s, `_`, `\_`)
	return s
}
