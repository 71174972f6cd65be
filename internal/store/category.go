// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"storefront/internal/models"
	"storefront/internal/slug"
)

// CategoryStore owns category rows and their materialized paths. A path
// changes only through Create and Update, and every path change is
// followed by a full count recompute in the same transaction.
type CategoryStore struct {
	db      *sql.DB
	counter *Counter
}

// NewCategoryStore returns a new CategoryStore.
func NewCategoryStore(db *sql.DB, counter *Counter) *CategoryStore {
	return &CategoryStore{db: db, counter: counter}
}

const categoryColumns = `id, name, slug, parent_id, path, is_active, featured_only,
	desc_product_count, sort_order, description, created_at, updated_at`

// scanCategory scans a row into a Category struct.
func scanCategory(scanner interface{ Scan(...any) error }) (*models.Category, error) {
	var c models.Category
	err := scanner.Scan(
		&c.ID, &c.Name, &c.Slug, &c.ParentID, &c.Path, &c.IsActive, &c.FeaturedOnly,
		&c.DescProductCount, &c.SortOrder, &c.Description, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *CategoryStore) query(ctx context.Context, where string, args ...any) ([]models.Category, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+categoryColumns+` FROM categories `+where, args...)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var items []models.Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		items = append(items, *c)
	}
	return items, rows.Err()
}

// List returns all categories ordered by path, so parents precede children.
func (s *CategoryStore) List(ctx context.Context) ([]models.Category, error) {
	return s.query(ctx, `ORDER BY path`)
}

// ListActive returns active categories ordered by sort_order then name.
func (s *CategoryStore) ListActive(ctx context.Context) ([]models.Category, error) {
	return s.query(ctx, `WHERE is_active ORDER BY sort_order, name`)
}

// Children returns the active children of parentID, or the active root-level
// categories when parentID is nil.
func (s *CategoryStore) Children(ctx context.Context, parentID *uuid.UUID) ([]models.Category, error) {
	if parentID == nil {
		return s.query(ctx, `WHERE parent_id IS NULL AND is_active ORDER BY sort_order, name`)
	}
	return s.query(ctx, `WHERE parent_id = $1 AND is_active ORDER BY sort_order, name`, *parentID)
}

// FindByID retrieves a category by ID. Returns nil if not found.
func (s *CategoryStore) FindByID(ctx context.Context, id uuid.UUID) (*models.Category, error) {
	return s.findOne(ctx, s.db, `WHERE id = $1`, id)
}

// FindBySlug retrieves a category by slug. Returns nil if not found.
func (s *CategoryStore) FindBySlug(ctx context.Context, slugValue string) (*models.Category, error) {
	return s.findOne(ctx, s.db, `WHERE slug = $1`, slugValue)
}

func (s *CategoryStore) findOne(ctx context.Context, q querier, where string, args ...any) (*models.Category, error) {
	row := q.QueryRowContext(ctx, `SELECT `+categoryColumns+` FROM categories `+where, args...)
	c, err := scanCategory(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find category: %w", err)
	}
	return c, nil
}

// resolvePath computes the path for slugValue under parentID, locking the
// parent row so a concurrent move cannot change its path before commit.
func resolvePath(ctx context.Context, tx *sql.Tx, slugValue string, parentID *uuid.UUID) (string, error) {
	if err := slug.Validate(slugValue); err != nil {
		return "", ErrInvalidSlug
	}
	if parentID == nil {
		return slug.RootPath(slugValue)
	}

	var parentPath string
	err := tx.QueryRowContext(ctx,
		`SELECT path FROM categories WHERE id = $1 FOR SHARE`, *parentID,
	).Scan(&parentPath)
	if err == sql.ErrNoRows {
		return "", ErrParentNotFound
	}
	if err != nil {
		return "", fmt.Errorf("resolve parent path: %w", err)
	}
	return slug.ChildPath(parentPath, slugValue)
}

// Create inserts a new category with a computed path and a zero count.
func (s *CategoryStore) Create(ctx context.Context, name, slugValue string, parentID *uuid.UUID, flags models.CategoryFlags) (*models.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrNameRequired
	}
	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("create category: %w", err)
	}

	var created *models.Category
	err = inTx(ctx, s.db, "create category", func(tx *sql.Tx) error {
		path, err := resolvePath(ctx, tx, slugValue, parentID)
		if err != nil {
			return err
		}
		row := tx.QueryRowContext(ctx, `
			INSERT INTO categories (id, name, slug, parent_id, path, is_active,
			                        featured_only, sort_order, description)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			RETURNING `+categoryColumns,
			id, name, slugValue, parentID, path, flags.IsActive,
			flags.FeaturedOnly, flags.SortOrder, flags.Description,
		)
		created, err = scanCategory(row)
		if err != nil {
			return translatePgError(err)
		}
		return nil
	})
	if err != nil {
		return nil, wrapUnlessDomain("create category", err)
	}

	slog.Info("category created", "id", created.ID, "path", created.Path)
	return created, nil
}

// Update applies a partial change to a category. Renames and moves rewrite
// the path of the category and its whole subtree, then recompute every
// count; flag-only changes touch nothing but the row itself.
func (s *CategoryStore) Update(ctx context.Context, id uuid.UUID, patch models.CategoryPatch) (*models.Category, error) {
	structural := patch.Slug != nil || patch.ParentSet

	var (
		updated *models.Category
		moved   bool
		oldPath string
	)
	err := inTx(ctx, s.db, "update category", func(tx *sql.Tx) error {
		moved = false

		// Product writers must not slip between the path rewrite and the
		// recompute, so the table lock comes before any category row lock.
		if structural {
			if err := lockProductWrites(ctx, tx); err != nil {
				return err
			}
		}

		cur, err := s.findOne(ctx, tx, `WHERE id = $1 FOR UPDATE`, id)
		if err != nil {
			return err
		}
		if cur == nil {
			return notFound("category")
		}
		oldPath = cur.Path

		next := *cur
		applyCategoryPatch(&next, patch)
		if strings.TrimSpace(next.Name) == "" {
			return ErrNameRequired
		}
		if next.ParentID != nil && *next.ParentID == cur.ID {
			return ErrCyclicMove
		}

		newPath := cur.Path
		if structural {
			newPath, err = resolvePath(ctx, tx, next.Slug, next.ParentID)
			if err != nil {
				return err
			}
			if next.ParentID != nil && slug.IsDescendantOrSelf(newPath, cur.Path) {
				return ErrCyclicMove
			}
		}
		moved = newPath != cur.Path

		if moved {
			if err := lockSubtree(ctx, tx, cur.Path); err != nil {
				return err
			}
		}

		if _, err := tx.ExecContext(ctx, `
			UPDATE categories SET
				name = $1, slug = $2, parent_id = $3, is_active = $4,
				featured_only = $5, sort_order = $6, description = $7,
				updated_at = NOW()
			WHERE id = $8`,
			next.Name, next.Slug, next.ParentID, next.IsActive,
			next.FeaturedOnly, next.SortOrder, next.Description, id,
		); err != nil {
			return translatePgError(fmt.Errorf("update category: %w", err))
		}

		if moved {
			if err := rewriteSubtreePaths(ctx, tx, cur.Path, newPath); err != nil {
				return err
			}
			if _, err := s.counter.recompute(ctx, tx); err != nil {
				return err
			}
		}

		updated, err = s.findOne(ctx, tx, `WHERE id = $1`, id)
		return err
	})
	if err != nil {
		return nil, wrapUnlessDomain("update category", err)
	}

	if moved {
		slog.Info("category moved", "id", id, "from", oldPath, "to", updated.Path)
	}
	return updated, nil
}

func applyCategoryPatch(c *models.Category, p models.CategoryPatch) {
	if p.Name != nil {
		c.Name = strings.TrimSpace(*p.Name)
	}
	if p.Slug != nil {
		c.Slug = *p.Slug
	}
	if p.ParentSet {
		c.ParentID = p.ParentID
	}
	if p.IsActive != nil {
		c.IsActive = *p.IsActive
	}
	if p.FeaturedOnly != nil {
		c.FeaturedOnly = *p.FeaturedOnly
	}
	if p.SortOrder != nil {
		c.SortOrder = *p.SortOrder
	}
	if p.Description != nil {
		c.Description = *p.Description
	}
}

// lockSubtree row-locks the category at path and every descendant so that
// concurrent creates under the subtree wait for the rewrite to commit.
func lockSubtree(ctx context.Context, tx *sql.Tx, path string) error {
	rows, err := tx.QueryContext(ctx, `
		SELECT id FROM categories
		WHERE path = $1 OR path LIKE $2
		ORDER BY path
		FOR UPDATE`, path, likePrefix(path))
	if err != nil {
		return fmt.Errorf("lock subtree: %w", err)
	}
	return rows.Close()
}

// rewriteSubtreePaths replaces oldPrefix with newPrefix on every path equal
// to or below oldPrefix. Only whole segments match, so "root/tv" never
// rewrites "root/tv2".
func rewriteSubtreePaths(ctx context.Context, tx *sql.Tx, oldPrefix, newPrefix string) error {
	res, err := tx.ExecContext(ctx, `
		UPDATE categories
		SET path = $2 || substr(path, char_length($1) + 1), updated_at = NOW()
		WHERE path = $1 OR path LIKE $3`,
		oldPrefix, newPrefix, likePrefix(oldPrefix))
	if err != nil {
		return translatePgError(fmt.Errorf("rewrite subtree paths: %w", err))
	}
	n, _ := res.RowsAffected()
	slog.Debug("subtree paths rewritten", "from", oldPrefix, "to", newPrefix, "rows", n)
	return nil
}

// Delete removes a category that has neither children nor products.
func (s *CategoryStore) Delete(ctx context.Context, id uuid.UUID) error {
	err := inTx(ctx, s.db, "delete category", func(tx *sql.Tx) error {
		cur, err := s.findOne(ctx, tx, `WHERE id = $1 FOR UPDATE`, id)
		if err != nil {
			return err
		}
		if cur == nil {
			return notFound("category")
		}

		var hasChildren, hasProducts bool
		err = tx.QueryRowContext(ctx, `
			SELECT EXISTS (SELECT 1 FROM categories WHERE parent_id = $1),
			       EXISTS (SELECT 1 FROM products WHERE category_id = $1)`, id,
		).Scan(&hasChildren, &hasProducts)
		if err != nil {
			return fmt.Errorf("check category dependents: %w", err)
		}
		if hasChildren {
			return ErrHasChildren
		}
		if hasProducts {
			return ErrHasProducts
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM categories WHERE id = $1`, id); err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == pgForeignKeyViolation {
				if pgErr.ConstraintName == "products_category_id_fkey" {
					return ErrHasProducts
				}
				return ErrHasChildren
			}
			return fmt.Errorf("delete category: %w", err)
		}
		return nil
	})
	if err != nil {
		return wrapUnlessDomain("delete category", err)
	}
	slog.Info("category deleted", "id", id)
	return nil
}

// wrapUnlessDomain adds operation context to infrastructure errors and
// passes domain errors through untouched.
func wrapUnlessDomain(op string, err error) error {
	if KindOf(err) != "" {
		return err
	}
	return fmt.Errorf("%s: %w", op, err)
}
