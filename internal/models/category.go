// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import (
	"time"

	"github.com/google/uuid"
)

// Category is a node of the catalog tree. Path is the materialized chain of
// slugs from the synthetic root, e.g. "root/electronics/laptops", and
// DescProductCount counts the active products anywhere in its subtree.
type Category struct {
	ID               uuid.UUID  `json:"id"`
	Name             string     `json:"name"`
	Slug             string     `json:"slug"`
	ParentID         *uuid.UUID `json:"parent_id"`
	Path             string     `json:"path"`
	IsActive         bool       `json:"is_active"`
	FeaturedOnly     bool       `json:"featured_only"`
	DescProductCount int        `json:"desc_product_count"`
	SortOrder        int        `json:"sort_order"`
	Description      string     `json:"description"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// CategoryNode is a category placed in an assembled tree.
type CategoryNode struct {
	Category
	Depth    int             `json:"depth"`
	Children []*CategoryNode `json:"children"`
}

// CategoryFlags are the optional attributes set when creating a category.
type CategoryFlags struct {
	IsActive     bool
	FeaturedOnly bool
	SortOrder    int
	Description  string
}

// CategoryPatch describes a partial category update. Nil fields are left
// unchanged. ParentSet distinguishes "move to root" (ParentSet with a nil
// ParentID) from "keep the current parent".
type CategoryPatch struct {
	Name         *string
	Slug         *string
	ParentSet    bool
	ParentID     *uuid.UUID
	IsActive     *bool
	FeaturedOnly *bool
	SortOrder    *int
	Description  *string
}

// CountDrift reports a category whose stored descendant count differs from
// the value derived from current product state.
type CountDrift struct {
	CategoryID uuid.UUID `json:"category_id"`
	Path       string    `json:"path"`
	Stored     int       `json:"stored"`
	Expected   int       `json:"expected"`
}
