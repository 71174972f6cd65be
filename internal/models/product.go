// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import (
	"time"

	"github.com/google/uuid"
)

// Product is a catalog item. Price is an integer amount in minor currency
// units. HasDocs is derived by the database from DocURL.
type Product struct {
	ID              uuid.UUID `json:"id"`
	Name            string    `json:"name"`
	Slug            string    `json:"slug"`
	SKU             *string   `json:"sku"`
	Price           int64     `json:"price"`
	IsActive        bool      `json:"is_active"`
	IsFeatured      bool      `json:"is_featured"`
	CategoryID      uuid.UUID `json:"category_id"`
	PrimaryImageURL *string   `json:"primary_image_url"`
	Gallery         Gallery   `json:"gallery"`
	DocURL          *string   `json:"doc_url"`
	DocMeta         *DocMeta  `json:"doc_meta"`
	HasDocs         bool      `json:"has_docs"`
	ContentHTML     string    `json:"content_html"`
	SpecsHTML       string    `json:"specs_html"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// ProductPatch describes a partial product update. Nil fields are left
// unchanged; SKUSet with a nil SKU clears the SKU.
type ProductPatch struct {
	Name            *string
	Slug            *string
	SKUSet          bool
	SKU             *string
	Price           *int64
	IsActive        *bool
	IsFeatured      *bool
	CategoryID      *uuid.UUID
	PrimaryImageURL *string
	ContentHTML     *string
	SpecsHTML       *string
}

// ProductSort names an ordering of product listings.
type ProductSort string

const (
	SortPriceAsc  ProductSort = "price_asc"
	SortPriceDesc ProductSort = "price_desc"
	SortNameAsc   ProductSort = "name_asc"
	SortNameDesc  ProductSort = "name_desc"
	SortNew       ProductSort = "new"
)

// ProductPage is one page of a product listing.
type ProductPage struct {
	Items []Product `json:"items"`
	Meta  PageMeta  `json:"meta"`
}

// PageMeta describes the pagination window of a listing.
type PageMeta struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
	Pages int `json:"pages"`
}
