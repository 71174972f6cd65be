// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"storefront/internal/models"
)

// CategoryCreator creates categories with a computed path.
type CategoryCreator interface {
	Create(ctx context.Context, name, slug string, parentID *uuid.UUID, flags models.CategoryFlags) (*models.Category, error)
}

// ProductCreator creates products and keeps category counts in step.
type ProductCreator interface {
	Create(ctx context.Context, p *models.Product) (*models.Product, error)
}

type seedCategory struct {
	name, slug, parent string
	featuredOnly       bool
	sortOrder          int
}

type seedProduct struct {
	name, slug, sku, category string
	price                     int64
	featured, active          bool
}

var seedCategories = []seedCategory{
	{name: "Electronics", slug: "electronics", sortOrder: 0},
	{name: "Laptops", slug: "laptops", parent: "electronics", sortOrder: 0},
	{name: "Phones", slug: "phones", parent: "electronics", sortOrder: 1},
	{name: "Accessories", slug: "accessories", sortOrder: 1},
	{name: "Cables", slug: "cables", parent: "accessories", sortOrder: 0},
	{name: "Deals", slug: "deals", featuredOnly: true, sortOrder: 2},
}

var seedProducts = []seedProduct{
	{name: "Ultrabook 14", slug: "ultrabook-14", sku: "LT-UB14", category: "laptops", price: 129900, featured: true, active: true},
	{name: "Workstation 16", slug: "workstation-16", sku: "LT-WS16", category: "laptops", price: 249900, active: true},
	{name: "Pocket Phone", slug: "pocket-phone", sku: "PH-PKT", category: "phones", price: 59900, active: true},
	{name: "Legacy Phone", slug: "legacy-phone", sku: "PH-LGC", category: "phones", price: 9900, active: false},
	{name: "USB-C Cable 1m", slug: "usb-c-cable-1m", sku: "CB-USBC1", category: "cables", price: 1290, active: true},
	{name: "Weekend Bundle", slug: "weekend-bundle", sku: "DL-WKND", category: "deals", price: 19900, featured: true, active: true},
	{name: "Clearance Adapter", slug: "clearance-adapter", sku: "DL-CLR", category: "deals", price: 490, active: true},
}

// Seed populates an empty catalog with a small development tree and
// products. It is a no-op when any category already exists.
func Seed(ctx context.Context, db *sql.DB, categories CategoryCreator, products ProductCreator) error {
	var count int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM categories").Scan(&count); err != nil {
		return fmt.Errorf("seed check categories: %w", err)
	}
	if count > 0 {
		slog.Info("database already seeded, skipping")
		return nil
	}

	ids := make(map[string]uuid.UUID, len(seedCategories))
	for _, sc := range seedCategories {
		var parentID *uuid.UUID
		if sc.parent != "" {
			id := ids[sc.parent]
			parentID = &id
		}
		c, err := categories.Create(ctx, sc.name, sc.slug, parentID, models.CategoryFlags{
			IsActive:     true,
			FeaturedOnly: sc.featuredOnly,
			SortOrder:    sc.sortOrder,
		})
		if err != nil {
			return fmt.Errorf("seed category %s: %w", sc.slug, err)
		}
		ids[sc.slug] = c.ID
	}

	for _, sp := range seedProducts {
		sku := sp.sku
		_, err := products.Create(ctx, &models.Product{
			Name:       sp.name,
			Slug:       sp.slug,
			SKU:        &sku,
			Price:      sp.price,
			IsActive:   sp.active,
			IsFeatured: sp.featured,
			CategoryID: ids[sp.category],
		})
		if err != nil {
			return fmt.Errorf("seed product %s: %w", sp.slug, err)
		}
	}

	slog.Info("database seeded with sample catalog",
		"categories", len(seedCategories),
		"products", len(seedProducts),
	)
	return nil
}
