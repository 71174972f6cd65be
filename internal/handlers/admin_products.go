// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"storefront/internal/models"
	"storefront/internal/store"
)

// productRequest is the body of a product create. Markdown fields, when
// present, are rendered and replace their HTML counterparts.
type productRequest struct {
	Name            string    `json:"name"`
	Slug            string    `json:"slug"`
	SKU             *string   `json:"sku"`
	Price           int64     `json:"price"`
	IsActive        *bool     `json:"is_active"`
	IsFeatured      bool      `json:"is_featured"`
	CategoryID      uuid.UUID `json:"category_id"`
	PrimaryImageURL *string   `json:"primary_image_url"`
	ContentHTML     string    `json:"content_html"`
	ContentMarkdown string    `json:"content_markdown"`
	SpecsHTML       string    `json:"specs_html"`
	SpecsMarkdown   string    `json:"specs_markdown"`
}

// productPatchRequest is the body of a product update. An explicit
// "sku": null clears the SKU.
type productPatchRequest struct {
	Name            *string          `json:"name"`
	Slug            *string          `json:"slug"`
	SKU             nullable[string] `json:"sku"`
	Price           *int64           `json:"price"`
	IsActive        *bool            `json:"is_active"`
	IsFeatured      *bool            `json:"is_featured"`
	CategoryID      *uuid.UUID       `json:"category_id"`
	PrimaryImageURL *string          `json:"primary_image_url"`
	ContentHTML     *string          `json:"content_html"`
	ContentMarkdown *string          `json:"content_markdown"`
	SpecsHTML       *string          `json:"specs_html"`
	SpecsMarkdown   *string          `json:"specs_markdown"`
}

type galleryRequest struct {
	Images models.Gallery `json:"images"`
}

type documentRequest struct {
	URL  string          `json:"url"`
	Meta *models.DocMeta `json:"meta"`
}

// normalizeSKU trims a SKU and treats blank as absent.
func normalizeSKU(sku *string) *string {
	if sku == nil {
		return nil
	}
	v := strings.TrimSpace(*sku)
	if v == "" {
		return nil
	}
	return &v
}

// patchBody resolves an optional HTML/markdown pair into the HTML to store.
func patchBody(html, md *string) (*string, string) {
	if md == nil {
		if html != nil && len(*html) > maxBodyLen {
			return nil, "Body is too long (max 100,000 characters)."
		}
		return html, ""
	}
	h := ""
	if html != nil {
		h = *html
	}
	out, msg := bodyHTML(h, *md)
	if msg != "" {
		return nil, msg
	}
	return &out, ""
}

// ProductGet returns any product by id, active or not.
func (a *Admin) ProductGet(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(r, "id")
	if !ok {
		badRequest(w, "invalid_id", "id must be a UUID")
		return
	}
	p, err := a.products.FindByID(r.Context(), id)
	if err != nil {
		writeStoreError(w, r, "get product", err)
		return
	}
	if p == nil {
		writeError(w, http.StatusNotFound, "product_not_found", "product does not exist")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// ProductCreate creates a product. Active products are counted along
// their category's ancestry in the same transaction.
func (a *Admin) ProductCreate(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if err := decodeJSON(w, r, &req); err != nil {
		badRequest(w, "invalid_body", err.Error())
		return
	}
	if msg := validateName(req.Name); msg != "" {
		badRequest(w, "invalid_name", msg)
		return
	}
	slugValue, msg := resolveSlug(req.Slug, req.Name)
	if msg != "" {
		badRequest(w, store.ErrInvalidSlug.Code, msg)
		return
	}
	sku := normalizeSKU(req.SKU)
	if sku != nil {
		if msg := validateSKU(*sku); msg != "" {
			badRequest(w, "invalid_sku", msg)
			return
		}
	}
	if req.CategoryID == uuid.Nil {
		badRequest(w, "category_required", "category_id is required")
		return
	}
	content, msg := bodyHTML(req.ContentHTML, req.ContentMarkdown)
	if msg != "" {
		badRequest(w, "invalid_content", msg)
		return
	}
	specs, msg := bodyHTML(req.SpecsHTML, req.SpecsMarkdown)
	if msg != "" {
		badRequest(w, "invalid_specs", msg)
		return
	}

	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}
	p, err := a.products.Create(r.Context(), &models.Product{
		Name:            req.Name,
		Slug:            slugValue,
		SKU:             sku,
		Price:           req.Price,
		IsActive:        active,
		IsFeatured:      req.IsFeatured,
		CategoryID:      req.CategoryID,
		PrimaryImageURL: req.PrimaryImageURL,
		ContentHTML:     content,
		SpecsHTML:       specs,
	})
	if err != nil {
		writeStoreError(w, r, "create product", err)
		return
	}
	a.invalidateCatalog(r.Context())
	writeJSON(w, http.StatusCreated, p)
}

// ProductUpdate applies a partial change; flipping is_active or moving the
// product to another category adjusts counts atomically.
func (a *Admin) ProductUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(r, "id")
	if !ok {
		badRequest(w, "invalid_id", "id must be a UUID")
		return
	}
	var req productPatchRequest
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
	sku := normalizeSKU(req.SKU.Value)
	if sku != nil {
		if msg := validateSKU(*sku); msg != "" {
			badRequest(w, "invalid_sku", msg)
			return
		}
	}
	content, msg := patchBody(req.ContentHTML, req.ContentMarkdown)
	if msg != "" {
		badRequest(w, "invalid_content", msg)
		return
	}
	specs, msg := patchBody(req.SpecsHTML, req.SpecsMarkdown)
	if msg != "" {
		badRequest(w, "invalid_specs", msg)
		return
	}

	p, err := a.products.Update(r.Context(), id, models.ProductPatch{
		Name:            req.Name,
		Slug:            req.Slug,
		SKUSet:          req.SKU.Set,
		SKU:             sku,
		Price:           req.Price,
		IsActive:        req.IsActive,
		IsFeatured:      req.IsFeatured,
		CategoryID:      req.CategoryID,
		PrimaryImageURL: req.PrimaryImageURL,
		ContentHTML:     content,
		SpecsHTML:       specs,
	})
	if err != nil {
		writeStoreError(w, r, "update product", err)
		return
	}
	a.invalidateCatalog(r.Context())
	writeJSON(w, http.StatusOK, p)
}

// ProductDelete removes a product that no order references.
func (a *Admin) ProductDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(r, "id")
	if !ok {
		badRequest(w, "invalid_id", "id must be a UUID")
		return
	}
	if err := a.products.Delete(r.Context(), id); err != nil {
		writeStoreError(w, r, "delete product", err)
		return
	}
	a.invalidateCatalog(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

// ProductGallery replaces the image gallery in the given order.
func (a *Admin) ProductGallery(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(r, "id")
	if !ok {
		badRequest(w, "invalid_id", "id must be a UUID")
		return
	}
	var req galleryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		badRequest(w, "invalid_body", err.Error())
		return
	}
	for i, img := range req.Images {
		if strings.TrimSpace(img.URL) == "" {
			badRequest(w, "invalid_gallery", "every image needs a url")
			return
		}
		if img.ID == "" {
			req.Images[i].ID = uuid.NewString()
		}
	}

	p, err := a.products.SetGallery(r.Context(), id, req.Images)
	if err != nil {
		writeStoreError(w, r, "set gallery", err)
		return
	}
	a.invalidateCatalog(r.Context())
	writeJSON(w, http.StatusOK, p)
}

// ProductDocument attaches or, with an empty url, clears the product's
// downloadable document.
func (a *Admin) ProductDocument(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(r, "id")
	if !ok {
		badRequest(w, "invalid_id", "id must be a UUID")
		return
	}
	var req documentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		badRequest(w, "invalid_body", err.Error())
		return
	}

	p, err := a.products.SetDocument(r.Context(), id, strings.TrimSpace(req.URL), req.Meta)
	if err != nil {
		writeStoreError(w, r, "set document", err)
		return
	}
	a.invalidateCatalog(r.Context())
	writeJSON(w, http.StatusOK, p)
}
