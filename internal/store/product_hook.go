// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"context"
	"database/sql"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"storefront/internal/models"
)

// ProductHook turns product writes into count adjustments. The product
// store calls it inside the same transaction as the write, so a failed
// adjustment rolls the product change back with it.
type ProductHook struct {
	counter *Counter
}

// NewProductHook returns a new ProductHook.
func NewProductHook(counter *Counter) *ProductHook {
	return &ProductHook{counter: counter}
}

// productState is the part of a product row that affects counts.
type productState struct {
	CategoryID uuid.UUID
	IsActive   bool
}

func stateOf(p *models.Product) *productState {
	if p == nil {
		return nil
	}
	return &productState{CategoryID: p.CategoryID, IsActive: p.IsActive}
}

// countAdjustment is one AdjustAlongAncestry call to make.
type countAdjustment struct {
	CategoryID uuid.UUID
	Delta      int
}

// countAdjustments derives the adjustments for a product transition. A nil
// before means insert, a nil after means delete. Only active presence
// counts, attributed to the category the product is in after the write.
func countAdjustments(before, after *productState) []countAdjustment {
	wasCounted := before != nil && before.IsActive
	isCounted := after != nil && after.IsActive

	switch {
	case !wasCounted && !isCounted:
		return nil
	case !wasCounted:
		return []countAdjustment{{CategoryID: after.CategoryID, Delta: 1}}
	case !isCounted:
		return []countAdjustment{{CategoryID: before.CategoryID, Delta: -1}}
	case before.CategoryID != after.CategoryID:
		return []countAdjustment{
			{CategoryID: before.CategoryID, Delta: -1},
			{CategoryID: after.CategoryID, Delta: 1},
		}
	}
	return nil
}

// AfterInsert accounts for a newly inserted product.
func (h *ProductHook) AfterInsert(ctx context.Context, tx *sql.Tx, p *models.Product) error {
	return h.apply(ctx, tx, countAdjustments(nil, stateOf(p)))
}

// AfterUpdate accounts for a product whose active flag or category may
// have changed.
func (h *ProductHook) AfterUpdate(ctx context.Context, tx *sql.Tx, before, after *models.Product) error {
	return h.apply(ctx, tx, countAdjustments(stateOf(before), stateOf(after)))
}

// AfterDelete accounts for a removed product.
func (h *ProductHook) AfterDelete(ctx context.Context, tx *sql.Tx, p *models.Product) error {
	return h.apply(ctx, tx, countAdjustments(stateOf(p), nil))
}

func (h *ProductHook) apply(ctx context.Context, tx *sql.Tx, adjustments []countAdjustment) error {
	type resolved struct {
		path  string
		delta int
	}
	chains := make([]resolved, 0, len(adjustments))
	for _, a := range adjustments {
		var path string
		err := tx.QueryRowContext(ctx,
			`SELECT path FROM categories WHERE id = $1`, a.CategoryID,
		).Scan(&path)
		if err == sql.ErrNoRows {
			return ErrUnknownCategory
		}
		if err != nil {
			return fmt.Errorf("resolve category path: %w", err)
		}
		chains = append(chains, resolved{path: path, delta: a.Delta})
	}

	// Chains are adjusted in path order so two products swapping categories
	// take their row locks in the same sequence.
	sort.Slice(chains, func(i, j int) bool { return chains[i].path < chains[j].path })

	for _, c := range chains {
		if _, err := h.counter.AdjustAlongAncestry(ctx, tx, c.path, c.delta); err != nil {
			return err
		}
	}
	return nil
}
