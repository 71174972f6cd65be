// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/google/uuid"

	"storefront/internal/models"
)

// StatusDuplicate is reported when an idempotency key was already used.
const StatusDuplicate = "duplicate"

// OrderStore is the only writer of orders and order items.
type OrderStore struct {
	db *sql.DB
}

// NewOrderStore returns a new OrderStore.
func NewOrderStore(db *sql.DB) *OrderStore {
	return &OrderStore{db: db}
}

// productPrice is the current price and availability of an ordered product.
type productPrice struct {
	Price    int64
	IsActive bool
}

// pricedLine is an order line with its unit price snapshot.
type pricedLine struct {
	ProductID uuid.UUID
	Qty       int
	UnitPrice int64
}

// priceOrder snapshots unit prices and totals the order. Every product is
// checked before any quantity, so an unknown product wins over a bad qty.
func priceOrder(lines []models.OrderLine, prices map[uuid.UUID]productPrice) ([]pricedLine, int64, error) {
	for _, l := range lines {
		p, ok := prices[l.ProductID]
		if !ok || !p.IsActive {
			return nil, 0, ErrInvalidProduct
		}
	}

	priced := make([]pricedLine, 0, len(lines))
	var total int64
	for _, l := range lines {
		if l.Qty <= 0 || l.Qty > math.MaxInt32 {
			return nil, 0, ErrInvalidQty
		}
		unit := prices[l.ProductID].Price
		if unit > 0 && int64(l.Qty) > (math.MaxInt64-total)/unit {
			return nil, 0, ErrInvalidQty
		}
		total += unit * int64(l.Qty)
		priced = append(priced, pricedLine{ProductID: l.ProductID, Qty: l.Qty, UnitPrice: unit})
	}
	return priced, total, nil
}

// Place creates an order at current prices. A previously recorded
// idempotency key returns the existing order id as a duplicate without
// validating the request again.
func (s *OrderStore) Place(ctx context.Context, req models.PlaceOrderRequest) (*models.PlaceOrderResult, error) {
	if len(req.Items) == 0 {
		return nil, ErrItemsRequired
	}

	var key *string
	if k := strings.TrimSpace(req.IdempotencyKey); k != "" {
		key = &k
	}

	if key != nil {
		existing, err := s.findIDByKey(ctx, s.db, *key)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return duplicateResult(*existing), nil
		}
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("place order: %w", err)
	}

	var result *models.PlaceOrderResult
	err = inTx(ctx, s.db, "place order", func(tx *sql.Tx) error {
		result = nil

		prices, err := loadPrices(ctx, tx, req.Items)
		if err != nil {
			return err
		}
		lines, total, err := priceOrder(req.Items, prices)
		if err != nil {
			return err
		}

		c := req.Contact
		var orderID uuid.UUID
		err = tx.QueryRowContext(ctx, `
			INSERT INTO orders (id, idempotency_key, customer_name, email, phone,
			                    address, comment, total_amount, status)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			ON CONFLICT (idempotency_key) DO NOTHING
			RETURNING id`,
			id, key, strings.TrimSpace(c.CustomerName), strings.TrimSpace(c.Email),
			strings.TrimSpace(c.Phone), c.Address, c.Comment, total, models.OrderStatusNew,
		).Scan(&orderID)
		if err == sql.ErrNoRows {
			// A concurrent request recorded the same key first.
			existing, err := s.findIDByKey(ctx, tx, *key)
			if err != nil {
				return err
			}
			if existing == nil {
				return fmt.Errorf("place order: idempotency key %q vanished", *key)
			}
			result = duplicateResult(*existing)
			return nil
		}
		if err != nil {
			return translatePgError(fmt.Errorf("insert order: %w", err))
		}

		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO order_items (order_id, product_id, qty, price_at_purchase)
			VALUES ($1, $2, $3, $4)`)
		if err != nil {
			return fmt.Errorf("prepare order items: %w", err)
		}
		defer stmt.Close()

		for _, l := range lines {
			if _, err := stmt.ExecContext(ctx, orderID, l.ProductID, l.Qty, l.UnitPrice); err != nil {
				return translatePgError(fmt.Errorf("insert order item: %w", err))
			}
		}

		result = &models.PlaceOrderResult{
			OrderID:     orderID,
			TotalAmount: total,
			Status:      string(models.OrderStatusNew),
		}
		return nil
	})
	if err != nil {
		return nil, wrapUnlessDomain("place order", err)
	}

	if result.Duplicate {
		slog.Info("duplicate order request", "order_id", result.OrderID)
	} else {
		slog.Info("order placed", "order_id", result.OrderID, "total", result.TotalAmount, "items", len(req.Items))
	}
	return result, nil
}

func duplicateResult(id uuid.UUID) *models.PlaceOrderResult {
	return &models.PlaceOrderResult{OrderID: id, Status: StatusDuplicate, Duplicate: true}
}

// loadPrices reads price and active flag of every referenced product in one
// query. Rows are share-locked so prices cannot change before commit.
func loadPrices(ctx context.Context, tx *sql.Tx, lines []models.OrderLine) (map[uuid.UUID]productPrice, error) {
	ids := make([]string, 0, len(lines))
	seen := make(map[uuid.UUID]bool, len(lines))
	for _, l := range lines {
		if !seen[l.ProductID] {
			seen[l.ProductID] = true
			ids = append(ids, l.ProductID.String())
		}
	}

	rows, err := tx.QueryContext(ctx, `
		SELECT id, price, is_active FROM products
		WHERE id = ANY($1::uuid[])
		ORDER BY id
		FOR SHARE`, ids)
	if err != nil {
		return nil, fmt.Errorf("load product prices: %w", err)
	}
	defer rows.Close()

	prices := make(map[uuid.UUID]productPrice, len(ids))
	for rows.Next() {
		var (
			id uuid.UUID
			p  productPrice
		)
		if err := rows.Scan(&id, &p.Price, &p.IsActive); err != nil {
			return nil, fmt.Errorf("scan product price: %w", err)
		}
		prices[id] = p
	}
	return prices, rows.Err()
}

// FindIDByKey returns the id of the order recorded under an idempotency
// key, or nil when the key is unused.
func (s *OrderStore) FindIDByKey(ctx context.Context, key string) (*uuid.UUID, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, nil
	}
	return s.findIDByKey(ctx, s.db, key)
}

func (s *OrderStore) findIDByKey(ctx context.Context, q querier, key string) (*uuid.UUID, error) {
	var id uuid.UUID
	err := q.QueryRowContext(ctx, `SELECT id FROM orders WHERE idempotency_key = $1`, key).Scan(&id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find order by idempotency key: %w", err)
	}
	return &id, nil
}

// FindByID retrieves an order with its items. Returns nil if not found.
func (s *OrderStore) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var o models.Order
	err := s.db.QueryRowContext(ctx, `
		SELECT id, idempotency_key, customer_name, email, phone, address, comment,
		       total_amount, status, created_at
		FROM orders WHERE id = $1`, id,
	).Scan(&o.ID, &o.IdempotencyKey, &o.CustomerName, &o.Email, &o.Phone, &o.Address,
		&o.Comment, &o.TotalAmount, &o.Status, &o.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find order: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, order_id, product_id, qty, price_at_purchase
		FROM order_items WHERE order_id = $1 ORDER BY id`, id)
	if err != nil {
		return nil, fmt.Errorf("list order items: %w", err)
	}
	defer rows.Close()

	o.Items = []models.OrderItem{}
	for rows.Next() {
		var it models.OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.Qty, &it.PriceAtPurchase); err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		o.Items = append(o.Items, it)
	}
	return &o, rows.Err()
}

// UpdateStatus changes the status of an order, its only mutable field.
func (s *OrderStore) UpdateStatus(ctx context.Context, id uuid.UUID, status models.OrderStatus) error {
	if !status.Valid() {
		return ErrInvalidStatus
	}
	res, err := s.db.ExecContext(ctx, `UPDATE orders SET status = $1 WHERE id = $2`, status, id)
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}
	if n == 0 {
		return notFound("order")
	}
	slog.Info("order status updated", "order_id", id, "status", status)
	return nil
}
