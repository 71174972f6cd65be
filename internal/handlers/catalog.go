// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package handlers contains the HTTP handlers of the storefront API.
// Handlers are grouped by concern (catalog, orders, admin) and receive
// their dependencies through the handler struct.
package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"storefront/internal/catalog"
	"storefront/internal/models"
)

// Catalog serves the public read API.
type Catalog struct {
	svc *catalog.Service
}

// NewCatalog creates the catalog handler group.
func NewCatalog(svc *catalog.Service) *Catalog {
	return &Catalog{svc: svc}
}

// Tree returns the active category forest.
func (c *Catalog) Tree(w http.ResponseWriter, r *http.Request) {
	tree, err := c.svc.Tree(r.Context())
	if err != nil {
		writeStoreError(w, r, "category tree", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": tree})
}

// Category returns one active category by slug.
func (c *Catalog) Category(w http.ResponseWriter, r *http.Request) {
	cat, err := c.svc.CategoryBySlug(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		writeStoreError(w, r, "get category", err)
		return
	}
	writeJSON(w, http.StatusOK, cat)
}

// Children lists the active children of a category given by slug or id
// in the {slug} segment. "root" lists the top level.
func (c *Catalog) Children(w http.ResponseWriter, r *http.Request) {
	children, err := c.svc.Children(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		writeStoreError(w, r, "category children", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": children})
}

// CategoryProducts lists one page of the products in a category subtree.
func (c *Catalog) CategoryProducts(w http.ResponseWriter, r *http.Request) {
	p, ok := pageParams(w, r)
	if !ok {
		return
	}
	page, err := c.svc.ListCategory(r.Context(), chi.URLParam(r, "slug"), p)
	if err != nil {
		writeStoreError(w, r, "list category", err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// Search matches products by name, optionally within a category subtree.
func (c *Catalog) Search(w http.ResponseWriter, r *http.Request) {
	p, ok := pageParams(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	page, err := c.svc.Search(r.Context(), catalog.SearchParams{
		Query:        q.Get("q"),
		CategorySlug: q.Get("category"),
		PageParams:   p,
	})
	if err != nil {
		writeStoreError(w, r, "search products", err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// Product returns one active product by slug.
func (c *Catalog) Product(w http.ResponseWriter, r *http.Request) {
	p, err := c.svc.ProductBySlug(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		writeStoreError(w, r, "get product", err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// pageParams reads page, limit and sort from the query string. A missing
// or zero limit means the default page size; the service clamps the rest.
func pageParams(w http.ResponseWriter, r *http.Request) (catalog.PageParams, bool) {
	page, err := intQuery(r, "page")
	if err != nil {
		badRequest(w, "invalid_page", err.Error())
		return catalog.PageParams{}, false
	}
	limit, err := intQuery(r, "limit")
	if err != nil {
		badRequest(w, "invalid_limit", err.Error())
		return catalog.PageParams{}, false
	}
	if limit == 0 {
		limit = catalog.DefaultLimit
	}
	return catalog.PageParams{
		Page:  page,
		Limit: limit,
		Sort:  models.ProductSort(r.URL.Query().Get("sort")),
	}, true
}
