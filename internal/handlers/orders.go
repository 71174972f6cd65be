// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"storefront/internal/events"
	"storefront/internal/models"
	"storefront/internal/store"
)

// IdempotencyKeyHeader may carry the idempotency key instead of the body.
const IdempotencyKeyHeader = "Idempotency-Key"

// publishTimeout bounds the post-commit event publish.
const publishTimeout = 5 * time.Second

// Orders serves order placement.
type Orders struct {
	orders    *store.OrderStore
	publisher events.Publisher
}

// NewOrders creates the order handler group. A nil publisher drops events.
func NewOrders(orders *store.OrderStore, publisher events.Publisher) *Orders {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &Orders{orders: orders, publisher: publisher}
}

// orderResponse is the placement answer: the total for a new order, the
// "duplicate" status for a replayed idempotency key.
type orderResponse struct {
	OrderID     string `json:"order_id"`
	TotalAmount *int64 `json:"total_amount,omitempty"`
	Status      string `json:"status,omitempty"`
}

// Place creates an order priced at current product prices. A replayed
// idempotency key answers 200 with the original order id.
func (o *Orders) Place(w http.ResponseWriter, r *http.Request) {
	var req models.PlaceOrderRequest
	if err := decodeJSON(w, r, &req); err != nil {
		badRequest(w, "invalid_body", err.Error())
		return
	}
	req.IdempotencyKey = strings.TrimSpace(req.IdempotencyKey)
	if req.IdempotencyKey == "" {
		req.IdempotencyKey = strings.TrimSpace(r.Header.Get(IdempotencyKeyHeader))
	}
	if len(req.IdempotencyKey) > maxContactLen {
		badRequest(w, "invalid_idempotency_key", "idempotency key is too long (max 300 characters)")
		return
	}

	// A recorded key answers with its order before the body is validated.
	if len(req.Items) > 0 && req.IdempotencyKey != "" {
		existing, err := o.orders.FindIDByKey(r.Context(), req.IdempotencyKey)
		if err != nil {
			writeStoreError(w, r, "place order", err)
			return
		}
		if existing != nil {
			slog.Info("duplicate order request", "order_id", *existing)
			writeJSON(w, http.StatusOK, orderResponse{OrderID: existing.String(), Status: store.StatusDuplicate})
			return
		}
	}
	if len(req.Items) > maxOrderLines {
		badRequest(w, "too_many_items", "an order may contain at most 100 lines")
		return
	}
	c := req.Contact
	if msg := validateContact(c.CustomerName, c.Email, c.Phone, c.Address, c.Comment); msg != "" {
		badRequest(w, "invalid_contact", msg)
		return
	}

	res, err := o.orders.Place(r.Context(), req)
	if err != nil {
		writeStoreError(w, r, "place order", err)
		return
	}

	if res.Duplicate {
		writeJSON(w, http.StatusOK, orderResponse{OrderID: res.OrderID.String(), Status: res.Status})
		return
	}

	o.publish(r.Context(), events.OrderPlaced{
		OrderID:     res.OrderID,
		TotalAmount: res.TotalAmount,
		Items:       req.Items,
		PlacedAt:    time.Now().UTC(),
	})
	total := res.TotalAmount
	writeJSON(w, http.StatusCreated, orderResponse{OrderID: res.OrderID.String(), TotalAmount: &total})
}

// publish emits the order event. The order is already committed, so a
// failure is logged and not reported to the client.
func (o *Orders) publish(ctx context.Context, e events.OrderPlaced) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := o.publisher.PublishOrderPlaced(ctx, e); err != nil {
		slog.Error("publish order event failed", "order_id", e.OrderID, "error", err)
	}
}
