// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

// Kind classifies domain failures so callers can map them to responses.
type Kind string

const (
	KindNotFound         Kind = "not_found"
	KindValidation       Kind = "validation_error"
	KindConflict         Kind = "conflict"
	KindInvalidReference Kind = "invalid_reference"
)

// Error is a domain failure returned by store operations.
type Error struct {
	Kind    Kind
	Code    string
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Is matches any *Error of the same kind, and the exact code when the
// target carries one. errors.Is(err, ErrConflict) matches every conflict;
// errors.Is(err, ErrHasChildren) only that specific failure.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Kind != e.Kind {
		return false
	}
	return t.Code == "" || t.Code == e.Code
}

// Kind sentinels.
var (
	ErrNotFound         = &Error{Kind: KindNotFound}
	ErrValidation       = &Error{Kind: KindValidation}
	ErrConflict         = &Error{Kind: KindConflict}
	ErrInvalidReference = &Error{Kind: KindInvalidReference}
)

// Specific failures.
var (
	ErrInvalidSlug     = &Error{Kind: KindValidation, Code: "invalid_slug", Message: "slug must be non-empty and must not contain '/'"}
	ErrNameRequired    = &Error{Kind: KindValidation, Code: "name_required", Message: "name is required"}
	ErrInvalidPrice    = &Error{Kind: KindValidation, Code: "invalid_price", Message: "price must not be negative"}
	ErrParentNotFound  = &Error{Kind: KindInvalidReference, Code: "parent_not_found", Message: "parent category does not exist"}
	ErrUnknownCategory = &Error{Kind: KindInvalidReference, Code: "category_not_found", Message: "category does not exist"}
	ErrDuplicateSlug   = &Error{Kind: KindConflict, Code: "duplicate_slug", Message: "slug is already in use"}
	ErrDuplicateSKU    = &Error{Kind: KindConflict, Code: "duplicate_sku", Message: "sku is already in use"}
	ErrHasChildren     = &Error{Kind: KindConflict, Code: "has_children", Message: "category has child categories"}
	ErrHasProducts     = &Error{Kind: KindConflict, Code: "has_products", Message: "category has products attached"}
	ErrHasOrders       = &Error{Kind: KindConflict, Code: "has_orders", Message: "product is referenced by orders"}
	ErrCyclicMove      = &Error{Kind: KindConflict, Code: "cyclic_move", Message: "category cannot be moved under itself or its descendant"}
	ErrItemsRequired   = &Error{Kind: KindValidation, Code: "items_required", Message: "order must contain at least one item"}
	ErrInvalidQty      = &Error{Kind: KindValidation, Code: "invalid_qty", Message: "quantity must be a positive integer"}
	ErrInvalidProduct  = &Error{Kind: KindInvalidReference, Code: "invalid_product", Message: "product is unknown or inactive"}
	ErrInvalidStatus   = &Error{Kind: KindValidation, Code: "invalid_status", Message: "unknown order status"}
)

// notFound builds a NotFound error for the named entity.
func notFound(entity string) *Error {
	return &Error{Kind: KindNotFound, Code: entity + "_not_found", Message: entity + " does not exist"}
}

// KindOf returns the kind of a domain error, or "" for anything else.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// PostgreSQL SQLSTATE codes the store reacts to.
const (
	pgUniqueViolation      = "23505"
	pgForeignKeyViolation  = "23503"
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
	pgLockNotAvailable     = "55P03"
)

// constraintErrors maps named constraints to the domain error they signal.
var constraintErrors = map[string]*Error{
	"categories_slug_key":         ErrDuplicateSlug,
	"categories_path_key":         ErrDuplicateSlug,
	"categories_parent_id_fkey":   ErrParentNotFound,
	"products_slug_key":           ErrDuplicateSlug,
	"products_sku_key":            ErrDuplicateSKU,
	"products_category_id_fkey":   ErrUnknownCategory,
	"order_items_product_id_fkey": ErrHasOrders,
	"order_items_order_id_fkey":   notFound("order"),
	"orders_idempotency_key_key":  {Kind: KindConflict, Code: "duplicate_idempotency_key", Message: "idempotency key already used"},
}

// translatePgError converts constraint violations into domain errors and
// returns any other error unchanged.
func translatePgError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	if mapped, ok := constraintErrors[pgErr.ConstraintName]; ok {
		return mapped
	}
	switch pgErr.Code {
	case pgUniqueViolation:
		return &Error{Kind: KindConflict, Code: "duplicate", Message: pgErr.Detail}
	case pgForeignKeyViolation:
		return &Error{Kind: KindInvalidReference, Code: "invalid_reference", Message: pgErr.Detail}
	}
	return err
}

// retryable reports whether a transaction failed on a transient lock
// condition and may be re-run from scratch.
func retryable(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	switch pgErr.Code {
	case pgSerializationFailure, pgDeadlockDetected, pgLockNotAvailable:
		return true
	}
	return false
}
