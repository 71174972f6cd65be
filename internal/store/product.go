// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"storefront/internal/models"
	"storefront/internal/slug"
)

// ProductStore handles product CRUD. Every write runs the product hook in
// the same transaction so category counts move with the row.
type ProductStore struct {
	db   *sql.DB
	hook *ProductHook
}

// NewProductStore returns a new ProductStore.
func NewProductStore(db *sql.DB, hook *ProductHook) *ProductStore {
	return &ProductStore{db: db, hook: hook}
}

const productColumns = `id, name, slug, sku, price, is_active, is_featured, category_id,
	primary_image_url, gallery, doc_url, doc_meta, has_docs, content_html, specs_html,
	created_at, updated_at`

// scanProduct scans a row into a Product struct.
func scanProduct(scanner interface{ Scan(...any) error }) (*models.Product, error) {
	var p models.Product
	err := scanner.Scan(
		&p.ID, &p.Name, &p.Slug, &p.SKU, &p.Price, &p.IsActive, &p.IsFeatured, &p.CategoryID,
		&p.PrimaryImageURL, &p.Gallery, &p.DocURL, &p.DocMeta, &p.HasDocs, &p.ContentHTML, &p.SpecsHTML,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func validateProduct(p *models.Product) error {
	if strings.TrimSpace(p.Name) == "" {
		return ErrNameRequired
	}
	if err := slug.Validate(p.Slug); err != nil {
		return ErrInvalidSlug
	}
	if p.Price < 0 {
		return ErrInvalidPrice
	}
	return nil
}

// Create inserts a product and counts it along its category's ancestry
// when it is active.
func (s *ProductStore) Create(ctx context.Context, p *models.Product) (*models.Product, error) {
	if err := validateProduct(p); err != nil {
		return nil, err
	}
	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}

	var created *models.Product
	err = inTx(ctx, s.db, "create product", func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx, `
			INSERT INTO products (id, name, slug, sku, price, is_active, is_featured,
			                      category_id, primary_image_url, gallery, content_html, specs_html)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
			RETURNING `+productColumns,
			id, strings.TrimSpace(p.Name), p.Slug, p.SKU, p.Price, p.IsActive, p.IsFeatured,
			p.CategoryID, p.PrimaryImageURL, p.Gallery.Renumbered(), p.ContentHTML, p.SpecsHTML,
		)
		created, err = scanProduct(row)
		if err != nil {
			return translatePgError(err)
		}
		return s.hook.AfterInsert(ctx, tx, created)
	})
	if err != nil {
		return nil, wrapUnlessDomain("create product", err)
	}

	slog.Info("product created", "id", created.ID, "slug", created.Slug, "active", created.IsActive)
	return created, nil
}

// Update applies a partial change to a product and adjusts counts for an
// active flag flip or a category change.
func (s *ProductStore) Update(ctx context.Context, id uuid.UUID, patch models.ProductPatch) (*models.Product, error) {
	var updated *models.Product
	err := inTx(ctx, s.db, "update product", func(tx *sql.Tx) error {
		before, err := s.findOne(ctx, tx, `WHERE id = $1 FOR UPDATE`, id)
		if err != nil {
			return err
		}
		if before == nil {
			return notFound("product")
		}

		next := *before
		applyProductPatch(&next, patch)
		if err := validateProduct(&next); err != nil {
			return err
		}

		row := tx.QueryRowContext(ctx, `
			UPDATE products SET
				name = $1, slug = $2, sku = $3, price = $4, is_active = $5,
				is_featured = $6, category_id = $7, primary_image_url = $8,
				content_html = $9, specs_html = $10, updated_at = NOW()
			WHERE id = $11
			RETURNING `+productColumns,
			next.Name, next.Slug, next.SKU, next.Price, next.IsActive,
			next.IsFeatured, next.CategoryID, next.PrimaryImageURL,
			next.ContentHTML, next.SpecsHTML, id,
		)
		updated, err = scanProduct(row)
		if err != nil {
			return translatePgError(err)
		}
		return s.hook.AfterUpdate(ctx, tx, before, updated)
	})
	if err != nil {
		return nil, wrapUnlessDomain("update product", err)
	}
	return updated, nil
}

func applyProductPatch(p *models.Product, patch models.ProductPatch) {
	if patch.Name != nil {
		p.Name = strings.TrimSpace(*patch.Name)
	}
	if patch.Slug != nil {
		p.Slug = *patch.Slug
	}
	if patch.SKUSet {
		p.SKU = patch.SKU
	}
	if patch.Price != nil {
		p.Price = *patch.Price
	}
	if patch.IsActive != nil {
		p.IsActive = *patch.IsActive
	}
	if patch.IsFeatured != nil {
		p.IsFeatured = *patch.IsFeatured
	}
	if patch.CategoryID != nil {
		p.CategoryID = *patch.CategoryID
	}
	if patch.PrimaryImageURL != nil {
		p.PrimaryImageURL = patch.PrimaryImageURL
		if *patch.PrimaryImageURL == "" {
			p.PrimaryImageURL = nil
		}
	}
	if patch.ContentHTML != nil {
		p.ContentHTML = *patch.ContentHTML
	}
	if patch.SpecsHTML != nil {
		p.SpecsHTML = *patch.SpecsHTML
	}
}

// Delete removes a product and uncounts it if it was active. Products
// referenced by orders cannot be deleted.
func (s *ProductStore) Delete(ctx context.Context, id uuid.UUID) error {
	err := inTx(ctx, s.db, "delete product", func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx, `DELETE FROM products WHERE id = $1 RETURNING `+productColumns, id)
		deleted, err := scanProduct(row)
		if err == sql.ErrNoRows {
			return notFound("product")
		}
		if err != nil {
			return translatePgError(err)
		}
		return s.hook.AfterDelete(ctx, tx, deleted)
	})
	if err != nil {
		return wrapUnlessDomain("delete product", err)
	}
	slog.Info("product deleted", "id", id)
	return nil
}

// SetGallery replaces the gallery, renumbering sort in the given order.
// The primary image defaults to the first gallery image when unset.
func (s *ProductStore) SetGallery(ctx context.Context, id uuid.UUID, images models.Gallery) (*models.Product, error) {
	images = images.Renumbered()
	var first *string
	if len(images) > 0 {
		first = &images[0].URL
	}

	row := s.db.QueryRowContext(ctx, `
		UPDATE products SET
			gallery = $1,
			primary_image_url = COALESCE(primary_image_url, $2),
			updated_at = NOW()
		WHERE id = $3
		RETURNING `+productColumns, images, first, id)
	p, err := scanProduct(row)
	if err == sql.ErrNoRows {
		return nil, notFound("product")
	}
	if err != nil {
		return nil, fmt.Errorf("set gallery: %w", err)
	}
	return p, nil
}

// SetDocument attaches a downloadable document. An empty url clears the
// document and its metadata; has_docs follows automatically.
func (s *ProductStore) SetDocument(ctx context.Context, id uuid.UUID, url string, meta *models.DocMeta) (*models.Product, error) {
	var docURL *string
	if url != "" {
		docURL = &url
	} else {
		meta = nil
	}

	row := s.db.QueryRowContext(ctx, `
		UPDATE products SET doc_url = $1, doc_meta = $2, updated_at = NOW()
		WHERE id = $3
		RETURNING `+productColumns, docURL, meta, id)
	p, err := scanProduct(row)
	if err == sql.ErrNoRows {
		return nil, notFound("product")
	}
	if err != nil {
		return nil, fmt.Errorf("set document: %w", err)
	}
	return p, nil
}

// FindByID retrieves a product by ID. Returns nil if not found.
func (s *ProductStore) FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	return s.findOne(ctx, s.db, `WHERE id = $1`, id)
}

// FindBySlug retrieves a product by slug. Returns nil if not found.
func (s *ProductStore) FindBySlug(ctx context.Context, slugValue string) (*models.Product, error) {
	return s.findOne(ctx, s.db, `WHERE slug = $1`, slugValue)
}

// FindActiveBySlug retrieves an active product whose category is active.
// Returns nil if there is none.
func (s *ProductStore) FindActiveBySlug(ctx context.Context, slugValue string) (*models.Product, error) {
	return s.findOne(ctx, s.db, `
		WHERE slug = $1 AND is_active
		  AND EXISTS (SELECT 1 FROM categories c WHERE c.id = category_id AND c.is_active)`, slugValue)
}

func (s *ProductStore) findOne(ctx context.Context, q querier, where string, args ...any) (*models.Product, error) {
	row := q.QueryRowContext(ctx, `SELECT `+productColumns+` FROM products `+where, args...)
	p, err := scanProduct(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find product: %w", err)
	}
	return p, nil
}
