// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"storefront/internal/models"
)

// ProductQuery filters a product listing. Only active products are ever
// returned. An empty PathPrefix means the whole catalog.
type ProductQuery struct {
	PathPrefix   string
	FeaturedOnly bool
	NameContains string
	Sort         models.ProductSort
	Limit        int
	Offset       int
}

// productOrder maps each sort to an ORDER BY clause. Every clause ends on
// the id so pages are stable.
var productOrder = map[models.ProductSort]string{
	models.SortPriceAsc:  "p.price ASC, p.id DESC",
	models.SortPriceDesc: "p.price DESC, p.id DESC",
	models.SortNameAsc:   "p.name ASC, p.id DESC",
	models.SortNameDesc:  "p.name DESC, p.id DESC",
	models.SortNew:       "p.id DESC",
}

// ValidSort reports whether s names a known ordering.
func ValidSort(s models.ProductSort) bool {
	_, ok := productOrder[s]
	return ok
}

func orderClause(s models.ProductSort) string {
	if clause, ok := productOrder[s]; ok {
		return clause
	}
	return productOrder[models.SortNew]
}

// buildProductFilter returns the WHERE clause and its arguments.
func buildProductFilter(q ProductQuery) (string, []any) {
	var (
		b    strings.Builder
		args []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	b.WriteString("WHERE p.is_active")
	if q.PathPrefix != "" {
		b.WriteString(" AND p.category_id IN (SELECT c.id FROM categories c WHERE c.path = ")
		b.WriteString(arg(q.PathPrefix))
		b.WriteString(" OR c.path LIKE ")
		b.WriteString(arg(likePrefix(q.PathPrefix)))
		b.WriteString(")")
	}
	if q.FeaturedOnly {
		b.WriteString(" AND p.is_featured")
	}
	if name := strings.TrimSpace(q.NameContains); name != "" {
		b.WriteString(" AND p.name ILIKE ")
		b.WriteString(arg(likeContains(name)))
	}
	return b.String(), args
}

// Search returns one page of active products matching q and the total
// number of matches. Count and page come from one snapshot.
func (s *ProductStore) Search(ctx context.Context, q ProductQuery) ([]models.Product, int, error) {
	where, args := buildProductFilter(q)

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true})
	if err != nil {
		return nil, 0, fmt.Errorf("search products: %w", err)
	}
	defer tx.Rollback()

	var total int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM products p `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count products: %w", err)
	}
	if total == 0 || q.Offset >= total {
		return []models.Product{}, total, tx.Commit()
	}

	pageArgs := append(args, q.Limit, q.Offset)
	query := fmt.Sprintf(`SELECT %s FROM products p %s ORDER BY %s LIMIT $%d OFFSET $%d`,
		productColumns, where, orderClause(q.Sort), len(args)+1, len(args)+2)

	rows, err := tx.QueryContext(ctx, query, pageArgs...)
	if err != nil {
		return nil, 0, fmt.Errorf("search products: %w", err)
	}
	defer rows.Close()

	items := []models.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan product: %w", err)
		}
		items = append(items, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return items, total, tx.Commit()
}
