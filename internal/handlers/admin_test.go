// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"storefront/internal/models"
)

// --- Categories ---

func TestCategoryCreate_GeneratesSlugAndPath(t *testing.T) {
	env := newTestEnv(t)
	root := env.root(t)

	name := "Gaming Laptops " + uuid.NewString()[:8]
	req := jsonRequest(t, http.MethodPost, "/admin/categories", map[string]any{
		"name":      name,
		"parent_id": root.ID,
	})
	rec := httptest.NewRecorder()
	env.Admin.CategoryCreate(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("CategoryCreate: got status %d, want %d: %s", rec.Code, http.StatusCreated, rec.Body.String())
	}
	var c models.Category
	decodeBody(t, rec, &c)
	if !strings.HasPrefix(c.Slug, "gaming-laptops-") {
		t.Errorf("slug: got %q, want generated from name", c.Slug)
	}
	if c.Path != root.Path+"/"+c.Slug {
		t.Errorf("path: got %q, want %q", c.Path, root.Path+"/"+c.Slug)
	}
	if !c.IsActive || c.DescProductCount != 0 {
		t.Errorf("new category: active=%v count=%d", c.IsActive, c.DescProductCount)
	}
}

func TestCategoryCreate_Errors(t *testing.T) {
	env := newTestEnv(t)
	root := env.root(t)

	tests := []struct {
		name     string
		body     map[string]any
		wantCode int
		wantErr  string
	}{
		{"missing name", map[string]any{"slug": "x"}, http.StatusBadRequest, "invalid_name"},
		{"slash in slug", map[string]any{"name": "Bad", "slug": "a/b", "parent_id": root.ID}, http.StatusBadRequest, "invalid_slug"},
		{"unknown parent", map[string]any{"name": "Orphan", "parent_id": uuid.New()}, http.StatusUnprocessableEntity, "parent_not_found"},
		{"duplicate slug", map[string]any{"name": "Dup", "slug": root.Slug}, http.StatusConflict, "duplicate_slug"},
		{"unknown field", map[string]any{"name": "X", "colour": "red"}, http.StatusBadRequest, "invalid_body"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			env.Admin.CategoryCreate(rec, jsonRequest(t, http.MethodPost, "/admin/categories", tt.body))
			if rec.Code != tt.wantCode {
				t.Fatalf("status: got %d, want %d: %s", rec.Code, tt.wantCode, rec.Body.String())
			}
			if got := errorCode(t, rec); got != tt.wantErr {
				t.Errorf("error: got %q, want %q", got, tt.wantErr)
			}
		})
	}
}

func TestCategoryUpdate_MoveRewritesSubtreeAndCounts(t *testing.T) {
	env := newTestEnv(t)
	root := env.root(t)
	a := env.category(t, "a", root)
	b := env.category(t, "b", root)
	leaf := env.category(t, "leaf", a)
	env.product(t, leaf, 100, true)
	env.product(t, leaf, 100, true)

	req := withChiURLParam(jsonRequest(t, http.MethodPut, "/admin/categories/"+a.ID.String(), map[string]any{
		"parent_id": b.ID,
	}), "id", a.ID.String())
	rec := httptest.NewRecorder()
	env.Admin.CategoryUpdate(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("CategoryUpdate: got status %d: %s", rec.Code, rec.Body.String())
	}
	moved, err := env.Categories.FindByID(context.Background(), leaf.ID)
	if err != nil || moved == nil {
		t.Fatalf("FindByID: %v", err)
	}
	wantPath := b.Path + "/" + a.Slug + "/" + leaf.Slug
	if moved.Path != wantPath {
		t.Errorf("leaf path: got %q, want %q", moved.Path, wantPath)
	}
	if n := env.storedCount(t, b.ID); n != 2 {
		t.Errorf("b count: got %d, want 2", n)
	}
	if n := env.storedCount(t, root.ID); n != 2 {
		t.Errorf("root count: got %d, want 2", n)
	}
}

func TestCategoryUpdate_CyclicMoveConflict(t *testing.T) {
	env := newTestEnv(t)
	root := env.root(t)
	child := env.category(t, "child", root)

	req := withChiURLParam(jsonRequest(t, http.MethodPut, "/", map[string]any{"parent_id": child.ID}), "id", root.ID.String())
	rec := httptest.NewRecorder()
	env.Admin.CategoryUpdate(rec, req)

	if rec.Code != http.StatusConflict || errorCode(t, rec) != "cyclic_move" {
		t.Errorf("got %d %s, want 409 cyclic_move", rec.Code, rec.Body.String())
	}
}

func TestCategoryUpdate_InvalidID(t *testing.T) {
	env := newTestEnv(t)
	req := withChiURLParam(jsonRequest(t, http.MethodPut, "/", map[string]any{"name": "x"}), "id", "not-a-uuid")
	rec := httptest.NewRecorder()
	env.Admin.CategoryUpdate(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status: got %d, want 400", rec.Code)
	}
}

func TestCategoryDelete(t *testing.T) {
	env := newTestEnv(t)
	root := env.root(t)
	withChild := env.category(t, "parent", root)
	env.category(t, "kid", withChild)
	withProduct := env.category(t, "stocked", root)
	env.product(t, withProduct, 100, false)
	empty := env.category(t, "empty", root)

	tests := []struct {
		name     string
		id       uuid.UUID
		wantCode int
		wantErr  string
	}{
		{"has children", withChild.ID, http.StatusConflict, "has_children"},
		{"has products", withProduct.ID, http.StatusConflict, "has_products"},
		{"empty leaf", empty.ID, http.StatusNoContent, ""},
		{"unknown", uuid.New(), http.StatusNotFound, "category_not_found"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := withChiURLParam(httptest.NewRequest(http.MethodDelete, "/", nil), "id", tt.id.String())
			rec := httptest.NewRecorder()
			env.Admin.CategoryDelete(rec, req)
			if rec.Code != tt.wantCode {
				t.Fatalf("status: got %d, want %d: %s", rec.Code, tt.wantCode, rec.Body.String())
			}
			if tt.wantErr != "" && errorCode(t, rec) != tt.wantErr {
				t.Errorf("error: got %s, want %s", rec.Body.String(), tt.wantErr)
			}
		})
	}
}

// --- Products ---

func TestProductLifecycle_CountsFollowActiveFlag(t *testing.T) {
	env := newTestEnv(t)
	root := env.root(t)
	leaf := env.category(t, "phones", root)

	rec := httptest.NewRecorder()
	env.Admin.ProductCreate(rec, jsonRequest(t, http.MethodPost, "/admin/products", map[string]any{
		"name":             "Phone X",
		"slug":             uniqueSlug("phone-x"),
		"price":            49900,
		"category_id":      leaf.ID,
		"content_markdown": "# Phone X\n\nA *fast* phone.",
	}))
	if rec.Code != http.StatusCreated {
		t.Fatalf("ProductCreate: got %d: %s", rec.Code, rec.Body.String())
	}
	var p models.Product
	decodeBody(t, rec, &p)
	if !strings.Contains(p.ContentHTML, "<em>fast</em>") {
		t.Errorf("content_html not rendered from markdown: %q", p.ContentHTML)
	}
	if n := env.storedCount(t, root.ID); n != 1 {
		t.Errorf("after create: root count %d, want 1", n)
	}

	req := withChiURLParam(jsonRequest(t, http.MethodPut, "/", map[string]any{"is_active": false}), "id", p.ID.String())
	rec = httptest.NewRecorder()
	env.Admin.ProductUpdate(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("ProductUpdate: got %d: %s", rec.Code, rec.Body.String())
	}
	if n := env.storedCount(t, leaf.ID); n != 0 {
		t.Errorf("after deactivate: leaf count %d, want 0", n)
	}

	req = withChiURLParam(httptest.NewRequest(http.MethodDelete, "/", nil), "id", p.ID.String())
	rec = httptest.NewRecorder()
	env.Admin.ProductDelete(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("ProductDelete: got %d: %s", rec.Code, rec.Body.String())
	}
	if n := env.storedCount(t, root.ID); n != 0 {
		t.Errorf("after delete: root count %d, want 0", n)
	}
}

func TestProductCreate_Errors(t *testing.T) {
	env := newTestEnv(t)
	root := env.root(t)

	tests := []struct {
		name     string
		body     map[string]any
		wantCode int
		wantErr  string
	}{
		{"negative price", map[string]any{"name": "P", "slug": uniqueSlug("p"), "price": -1, "category_id": root.ID}, http.StatusBadRequest, "invalid_price"},
		{"no category", map[string]any{"name": "P", "price": 1}, http.StatusBadRequest, "category_required"},
		{"unknown category", map[string]any{"name": "P", "slug": uniqueSlug("p"), "price": 1, "category_id": uuid.New()}, http.StatusUnprocessableEntity, "category_not_found"},
		{"missing name", map[string]any{"price": 1, "category_id": root.ID}, http.StatusBadRequest, "invalid_name"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			env.Admin.ProductCreate(rec, jsonRequest(t, http.MethodPost, "/admin/products", tt.body))
			if rec.Code != tt.wantCode {
				t.Fatalf("status: got %d, want %d: %s", rec.Code, tt.wantCode, rec.Body.String())
			}
			if got := errorCode(t, rec); got != tt.wantErr {
				t.Errorf("error: got %q, want %q", got, tt.wantErr)
			}
		})
	}
}

func TestProductUpdate_ClearSKU(t *testing.T) {
	env := newTestEnv(t)
	root := env.root(t)
	sku := "SKU-" + uuid.NewString()[:8]
	p, err := env.Products.Create(context.Background(), &models.Product{
		Name: "Tagged", Slug: uniqueSlug("tagged"), SKU: &sku, Price: 10, IsActive: true, CategoryID: root.ID,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	req := withChiURLParam(jsonRequest(t, http.MethodPut, "/", map[string]any{"sku": nil}), "id", p.ID.String())
	rec := httptest.NewRecorder()
	env.Admin.ProductUpdate(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("ProductUpdate: got %d: %s", rec.Code, rec.Body.String())
	}
	var got models.Product
	decodeBody(t, rec, &got)
	if got.SKU != nil {
		t.Errorf("sku: got %q, want cleared", *got.SKU)
	}
}

func TestProductGalleryAndDocument(t *testing.T) {
	env := newTestEnv(t)
	root := env.root(t)
	p := env.product(t, root, 100, true)

	req := withChiURLParam(jsonRequest(t, http.MethodPut, "/", map[string]any{
		"images": []map[string]any{
			{"url": "/img/front.jpg", "mime": "image/jpeg"},
			{"url": "/img/back.jpg", "mime": "image/jpeg"},
		},
	}), "id", p.ID.String())
	rec := httptest.NewRecorder()
	env.Admin.ProductGallery(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("ProductGallery: got %d: %s", rec.Code, rec.Body.String())
	}
	var got models.Product
	decodeBody(t, rec, &got)
	if len(got.Gallery) != 2 || got.Gallery[1].Sort != 1 || got.Gallery[0].ID == "" {
		t.Errorf("gallery: got %+v", got.Gallery)
	}
	if got.PrimaryImageURL == nil || *got.PrimaryImageURL != "/img/front.jpg" {
		t.Errorf("primary image: got %v, want first gallery image", got.PrimaryImageURL)
	}

	req = withChiURLParam(jsonRequest(t, http.MethodPut, "/", map[string]any{
		"url":  "/docs/manual.pdf",
		"meta": map[string]any{"filename": "manual.pdf", "mime": "application/pdf", "size": 2048},
	}), "id", p.ID.String())
	rec = httptest.NewRecorder()
	env.Admin.ProductDocument(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("ProductDocument: got %d: %s", rec.Code, rec.Body.String())
	}
	decodeBody(t, rec, &got)
	if !got.HasDocs {
		t.Error("has_docs should follow doc_url")
	}

	req = withChiURLParam(jsonRequest(t, http.MethodPut, "/", map[string]any{"url": ""}), "id", p.ID.String())
	rec = httptest.NewRecorder()
	env.Admin.ProductDocument(rec, req)
	decodeBody(t, rec, &got)
	if got.HasDocs || got.DocURL != nil {
		t.Errorf("document not cleared: %+v", got)
	}
}

// --- Operator tools ---

func TestRecalcCountsRepairsDrift(t *testing.T) {
	env := newTestEnv(t)
	root := env.root(t)
	env.product(t, root, 100, true)

	if _, err := env.DB.Exec(`UPDATE categories SET desc_product_count = 42 WHERE id = $1`, root.ID); err != nil {
		t.Fatalf("corrupt count: %v", err)
	}

	rec := httptest.NewRecorder()
	env.Admin.CountDrift(rec, httptest.NewRequest(http.MethodGet, "/admin/tools/count-drift", nil))
	var drift struct {
		Items []models.CountDrift `json:"items"`
	}
	decodeBody(t, rec, &drift)
	found := false
	for _, d := range drift.Items {
		if d.CategoryID == root.ID {
			found = d.Stored == 42 && d.Expected == 1
		}
	}
	if !found {
		t.Errorf("drift report should list the corrupted root: %+v", drift.Items)
	}

	rec = httptest.NewRecorder()
	env.Admin.RecalcCounts(rec, httptest.NewRequest(http.MethodPost, "/admin/tools/recalc-counts", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("RecalcCounts: got %d: %s", rec.Code, rec.Body.String())
	}
	var res struct {
		Corrected int64 `json:"corrected"`
	}
	decodeBody(t, rec, &res)
	if res.Corrected < 1 {
		t.Errorf("corrected: got %d, want >= 1", res.Corrected)
	}
	if n := env.storedCount(t, root.ID); n != 1 {
		t.Errorf("root count after repair: got %d, want 1", n)
	}

	rec = httptest.NewRecorder()
	env.Admin.RepairLog(rec, httptest.NewRequest(http.MethodGet, "/admin/tools/repair-log?limit=1", nil))
	var log struct {
		Items []struct {
			Source string `json:"source"`
		} `json:"items"`
	}
	decodeBody(t, rec, &log)
	if len(log.Items) != 1 || log.Items[0].Source != "admin" {
		t.Errorf("repair log: got %+v", log.Items)
	}
}
