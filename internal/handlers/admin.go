// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"storefront/internal/catalog"
	"storefront/internal/jobs"
	"storefront/internal/models"
	"storefront/internal/store"
)

// Admin groups the catalog management and operator tool handlers.
type Admin struct {
	categories *store.CategoryStore
	products   *store.ProductStore
	orders     *store.OrderStore
	counter    *store.Counter
	repair     *jobs.CountRepair
	repairLog  *store.RepairLogStore
	catalog    *catalog.Service
}

// NewAdmin creates the admin handler group. catalogSvc is used to drop
// cached reads after every catalog write.
func NewAdmin(categories *store.CategoryStore, products *store.ProductStore, orders *store.OrderStore, counter *store.Counter, repair *jobs.CountRepair, repairLog *store.RepairLogStore, catalogSvc *catalog.Service) *Admin {
	return &Admin{
		categories: categories,
		products:   products,
		orders:     orders,
		counter:    counter,
		repair:     repair,
		repairLog:  repairLog,
		catalog:    catalogSvc,
	}
}

// invalidateCatalog drops every cached catalog read after a write.
func (a *Admin) invalidateCatalog(ctx context.Context) {
	if a.catalog != nil {
		a.catalog.Invalidate(ctx)
	}
}

// --- Categories ---

// categoryRequest is the body of a category create.
type categoryRequest struct {
	Name         string     `json:"name"`
	Slug         string     `json:"slug"`
	ParentID     *uuid.UUID `json:"parent_id"`
	IsActive     *bool      `json:"is_active"`
	FeaturedOnly bool       `json:"featured_only"`
	SortOrder    int        `json:"sort_order"`
	Description  string     `json:"description"`
}

// categoryPatchRequest is the body of a category update. An explicit
// "parent_id": null moves the category to the top level.
type categoryPatchRequest struct {
	Name         *string             `json:"name"`
	Slug         *string             `json:"slug"`
	ParentID     nullable[uuid.UUID] `json:"parent_id"`
	IsActive     *bool               `json:"is_active"`
	FeaturedOnly *bool               `json:"featured_only"`
	SortOrder    *int                `json:"sort_order"`
	Description  *string             `json:"description"`
}

// CategoriesList returns every category, active or not, in path order.
func (a *Admin) CategoriesList(w http.ResponseWriter, r *http.Request) {
	cats, err := a.categories.List(r.Context())
	if err != nil {
		writeStoreError(w, r, "list categories", err)
		return
	}
	if cats == nil {
		cats = []models.Category{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": cats})
}

// CategoryCreate creates a category. A blank slug is generated from the name.
func (a *Admin) CategoryCreate(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		badRequest(w, "invalid_body", err.Error())
		return
	}
	if msg := validateName(req.Name); msg != "" {
		badRequest(w, "invalid_name", msg)
		return
	}
	if msg := validateDescription(req.Description); msg != "" {
		badRequest(w, "invalid_description", msg)
		return
	}
	slugValue, msg := resolveSlug(req.Slug, req.Name)
	if msg != "" {
		badRequest(w, store.ErrInvalidSlug.Code, msg)
		return
	}

	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}
	c, err := a.categories.Create(r.Context(), req.Name, slugValue, req.ParentID, models.CategoryFlags{
		IsActive:     active,
		FeaturedOnly: req.FeaturedOnly,
		SortOrder:    req.SortOrder,
		Description:  req.Description,
	})
	if err != nil {
		writeStoreError(w, r, "create category", err)
		return
	}
	a.invalidateCatalog(r.Context())
	writeJSON(w, http.StatusCreated, c)
}

// CategoryUpdate applies a partial change. Slug and parent changes move
// the subtree.
func (a *Admin) CategoryUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(r, "id")
	if !ok {
		badRequest(w, "invalid_id", "id must be a UUID")
		return
	}
	var req categoryPatchRequest
	if err := decodeJSON(w, r, &req); err != nil {
		badRequest(w, "invalid_body", err.Error())
		return
	}
	if req.Name != nil {
		if msg := validateName(*req.Name); msg != "" {
			badRequest(w, "invalid_name", msg)
			return
		}
	}
	if req.Description != nil {
		if msg := validateDescription(*req.Description); msg != "" {
			badRequest(w, "invalid_description", msg)
			return
		}
	}

	c, err := a.categories.Update(r.Context(), id, models.CategoryPatch{
		Name:         req.Name,
		Slug:         req.Slug,
		ParentSet:    req.ParentID.Set,
		ParentID:     req.ParentID.Value,
		IsActive:     req.IsActive,
		FeaturedOnly: req.FeaturedOnly,
		SortOrder:    req.SortOrder,
		Description:  req.Description,
	})
	if err != nil {
		writeStoreError(w, r, "update category", err)
		return
	}
	a.invalidateCatalog(r.Context())
	writeJSON(w, http.StatusOK, c)
}

// CategoryDelete removes a leaf category with no products.
func (a *Admin) CategoryDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(r, "id")
	if !ok {
		badRequest(w, "invalid_id", "id must be a UUID")
		return
	}
	if err := a.categories.Delete(r.Context(), id); err != nil {
		writeStoreError(w, r, "delete category", err)
		return
	}
	a.invalidateCatalog(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

// --- Operator tools ---

// maxRepairLogEntries caps the repair log listing.
const maxRepairLogEntries = 100

// RecalcCounts runs a full count recompute and reports how many categories
// were corrected.
func (a *Admin) RecalcCounts(w http.ResponseWriter, r *http.Request) {
	corrected, err := a.repair.Run(r.Context(), jobs.SourceAdmin)
	if err != nil {
		writeStoreError(w, r, "recalc counts", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"corrected": corrected})
}

// CountDrift lists categories whose stored count disagrees with the
// products table, without repairing anything.
func (a *Admin) CountDrift(w http.ResponseWriter, r *http.Request) {
	drift, err := a.counter.Drift(r.Context())
	if err != nil {
		writeStoreError(w, r, "count drift", err)
		return
	}
	if drift == nil {
		drift = []models.CountDrift{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": drift, "count": len(drift)})
}

// RepairLog lists the most recent count repair runs.
func (a *Admin) RepairLog(w http.ResponseWriter, r *http.Request) {
	limit, err := intQuery(r, "limit")
	if err != nil {
		badRequest(w, "invalid_limit", err.Error())
		return
	}
	if limit == 0 {
		limit = 20
	}
	limit = min(limit, maxRepairLogEntries)

	entries, err := a.repairLog.RecentEntries(r.Context(), limit)
	if err != nil {
		writeStoreError(w, r, "repair log", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": entries})
}
