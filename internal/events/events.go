// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package events publishes domain events after their transaction commits.
// Delivery is best-effort: a failed publish is logged and never undoes the
// write that produced the event.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"

	"storefront/internal/models"
)

// DefaultOrdersTopic is the topic order placements are published to.
const DefaultOrdersTopic = "orders.placed"

// OrderPlaced is published once per newly created order.
type OrderPlaced struct {
	OrderID     uuid.UUID          `json:"order_id"`
	TotalAmount int64              `json:"total_amount"`
	Items       []models.OrderLine `json:"items"`
	PlacedAt    time.Time          `json:"placed_at"`
}

// Publisher delivers domain events.
type Publisher interface {
	PublishOrderPlaced(ctx context.Context, e OrderPlaced) error
	Close() error
}

// NopPublisher drops every event. Used when no broker is configured.
type NopPublisher struct{}

// PublishOrderPlaced implements Publisher.
func (NopPublisher) PublishOrderPlaced(context.Context, OrderPlaced) error { return nil }

// Close implements Publisher.
func (NopPublisher) Close() error { return nil }
