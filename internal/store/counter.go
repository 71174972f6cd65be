// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"storefront/internal/models"
	"storefront/internal/slug"
)

// Counter is the only writer of categories.desc_product_count. It offers a
// full recompute from current state and an O(depth) adjustment along one
// ancestry chain.
type Counter struct {
	db *sql.DB
}

// NewCounter returns a new Counter.
func NewCounter(db *sql.DB) *Counter {
	return &Counter{db: db}
}

// expectedCounts derives every category's descendant active product count
// from the current rows. Segment-boundary matching keeps "root/tv" from
// claiming products under "root/tv2".
const expectedCounts = `
	SELECT a.id, a.path, a.desc_product_count, COUNT(p.id)::int AS expected
	FROM categories a
	LEFT JOIN categories d
	       ON d.path = a.path OR starts_with(d.path, a.path || '/')
	LEFT JOIN products p
	       ON p.category_id = d.id AND p.is_active
	GROUP BY a.id, a.path, a.desc_product_count`

// lockProductWrites blocks product inserts, updates and deletes until the
// surrounding transaction ends, and waits for in-flight ones to commit.
// Reads stay unblocked.
func lockProductWrites(ctx context.Context, tx *sql.Tx) error {
	if _, err := tx.ExecContext(ctx, `LOCK TABLE products IN SHARE MODE`); err != nil {
		return fmt.Errorf("lock products: %w", err)
	}
	return nil
}

// FullRecompute rewrites every category count from current category and
// product state and returns how many rows were corrected. It is idempotent
// and safe to run at any time.
func (c *Counter) FullRecompute(ctx context.Context) (int64, error) {
	var corrected int64
	err := inTx(ctx, c.db, "full recompute", func(tx *sql.Tx) error {
		if err := lockProductWrites(ctx, tx); err != nil {
			return err
		}
		n, err := c.recompute(ctx, tx)
		corrected = n
		return err
	})
	if err != nil {
		return 0, err
	}
	slog.Info("category counts recomputed", "corrected", corrected)
	return corrected, nil
}

// recompute runs the recompute statement inside an existing transaction.
// Callers must hold lockProductWrites so the pass sees one consistent set
// of product rows.
func (c *Counter) recompute(ctx context.Context, tx *sql.Tx) (int64, error) {
	res, err := tx.ExecContext(ctx, `
		UPDATE categories c
		SET desc_product_count = t.expected
		FROM (`+expectedCounts+`) t
		WHERE t.id = c.id AND c.desc_product_count <> t.expected`)
	if err != nil {
		return 0, fmt.Errorf("recompute counts: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("recompute counts: %w", err)
	}
	return n, nil
}

// AdjustAlongAncestry adds delta to the count of the category at
// categoryPath and of each of its ancestors, flooring at zero. Rows are
// locked root-first so concurrent adjustments on overlapping chains queue
// instead of deadlocking; the increment itself is atomic per row.
func (c *Counter) AdjustAlongAncestry(ctx context.Context, q querier, categoryPath string, delta int) (int64, error) {
	if delta == 0 || categoryPath == "" {
		return 0, nil
	}
	res, err := q.ExecContext(ctx, `
		UPDATE categories
		SET desc_product_count = GREATEST(0, desc_product_count + $2)
		WHERE id IN (
			SELECT id FROM categories
			WHERE path = ANY($1::text[])
			ORDER BY path
			FOR UPDATE
		)`, slug.AncestorsOrSelf(categoryPath), delta)
	if err != nil {
		return 0, fmt.Errorf("adjust counts along %s: %w", categoryPath, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("adjust counts along %s: %w", categoryPath, err)
	}
	return n, nil
}

// Drift lists categories whose stored count differs from the value derived
// from current state. It never writes.
func (c *Counter) Drift(ctx context.Context) ([]models.CountDrift, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT id, path, desc_product_count, expected
		FROM (`+expectedCounts+`) t
		WHERE desc_product_count <> expected
		ORDER BY path`)
	if err != nil {
		return nil, fmt.Errorf("count drift: %w", err)
	}
	defer rows.Close()

	var drift []models.CountDrift
	for rows.Next() {
		var d models.CountDrift
		if err := rows.Scan(&d.CategoryID, &d.Path, &d.Stored, &d.Expected); err != nil {
			return nil, fmt.Errorf("scan count drift: %w", err)
		}
		drift = append(drift, d)
	}
	return drift, rows.Err()
}
