// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"net/http"

	"storefront/internal/models"
)

type orderStatusRequest struct {
	Status models.OrderStatus `json:"status"`
}

// OrderGet returns an order with its line items.
func (a *Admin) OrderGet(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(r, "id")
	if !ok {
		badRequest(w, "invalid_id", "id must be a UUID")
		return
	}
	o, err := a.orders.FindByID(r.Context(), id)
	if err != nil {
		writeStoreError(w, r, "get order", err)
		return
	}
	if o == nil {
		writeError(w, http.StatusNotFound, "order_not_found", "order does not exist")
		return
	}
	writeJSON(w, http.StatusOK, o)
}

// OrderStatus changes the status of an order, its only mutable field.
func (a *Admin) OrderStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(r, "id")
	if !ok {
		badRequest(w, "invalid_id", "id must be a UUID")
		return
	}
	var req orderStatusRequest
	if err := decodeJSON(w, r, &req); err != nil {
		badRequest(w, "invalid_body", err.Error())
		return
	}
	if err := a.orders.UpdateStatus(r.Context(), id, req.Status); err != nil {
		writeStoreError(w, r, "update order status", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": id, "status": req.Status})
}
