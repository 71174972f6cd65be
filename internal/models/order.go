// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import (
	"time"

	"github.com/google/uuid"
)

// OrderStatus is the only mutable attribute of a placed order.
type OrderStatus string

const (
	OrderStatusNew       OrderStatus = "new"
	OrderStatusConfirmed OrderStatus = "confirmed"
	OrderStatusShipped   OrderStatus = "shipped"
	OrderStatusCompleted OrderStatus = "completed"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// Valid reports whether s is a known order status.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusNew, OrderStatusConfirmed, OrderStatusShipped,
		OrderStatusCompleted, OrderStatusCancelled:
		return true
	}
	return false
}

// Order is a placed customer order. Amounts are in minor currency units.
type Order struct {
	ID             uuid.UUID   `json:"id"`
	IdempotencyKey *string     `json:"idempotency_key,omitempty"`
	CustomerName   string      `json:"customer_name"`
	Email          string      `json:"email"`
	Phone          string      `json:"phone"`
	Address        string      `json:"address"`
	Comment        string      `json:"comment"`
	TotalAmount    int64       `json:"total_amount"`
	Status         OrderStatus `json:"status"`
	CreatedAt      time.Time   `json:"created_at"`
	Items          []OrderItem `json:"items"`
}

// OrderItem is one order line with the unit price captured at purchase time.
type OrderItem struct {
	ID              int64     `json:"id"`
	OrderID         uuid.UUID `json:"order_id"`
	ProductID       uuid.UUID `json:"product_id"`
	Qty             int       `json:"qty"`
	PriceAtPurchase int64     `json:"price_at_purchase"`
}

// OrderContact holds the customer contact fields of an order request.
type OrderContact struct {
	CustomerName string `json:"customer_name"`
	Email        string `json:"email"`
	Phone        string `json:"phone"`
	Address      string `json:"address"`
	Comment      string `json:"comment"`
}

// OrderLine is a requested product and quantity.
type OrderLine struct {
	ProductID uuid.UUID `json:"product_id"`
	Qty       int       `json:"qty"`
}

// PlaceOrderRequest is the input of order placement.
type PlaceOrderRequest struct {
	IdempotencyKey string       `json:"idempotency_key"`
	Contact        OrderContact `json:"contact"`
	Items          []OrderLine  `json:"items"`
}

// PlaceOrderResult is the outcome of order placement. Duplicate is set when
// the idempotency key was already recorded; TotalAmount is then zero.
type PlaceOrderResult struct {
	OrderID     uuid.UUID `json:"order_id"`
	TotalAmount int64     `json:"total_amount,omitempty"`
	Status      string    `json:"status"`
	Duplicate   bool      `json:"-"`
}
