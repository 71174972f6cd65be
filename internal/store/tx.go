// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"
)

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

const (
	// maxTxRetries bounds how often a transaction is re-run after a
	// deadlock, serialization failure or lock timeout.
	maxTxRetries = 5

	// lockTimeout turns long lock waits into a retryable error instead of
	// holding a connection indefinitely.
	lockTimeout = "5s"
)

func txBackoff() retry.Backoff {
	b := retry.NewExponential(20 * time.Millisecond)
	b = retry.WithJitter(10*time.Millisecond, b)
	b = retry.WithCappedDuration(time.Second, b)
	return retry.WithMaxRetries(maxTxRetries, b)
}

// inTx runs fn inside a transaction and commits it. Transient lock
// failures re-run fn from scratch in a new transaction, so fn must not
// leak state from a previous attempt.
func inTx(ctx context.Context, db *sql.DB, op string, fn func(tx *sql.Tx) error) error {
	attempt := 0
	return retry.Do(ctx, txBackoff(), func(ctx context.Context) error {
		attempt++
		err := runTx(ctx, db, fn)
		if err != nil && retryable(err) {
			slog.Warn("transaction retry", "op", op, "attempt", attempt, "error", err)
			return retry.RetryableError(err)
		}
		return err
	})
}

func runTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "SET LOCAL lock_timeout = '"+lockTimeout+"'"); err != nil {
		return fmt.Errorf("set lock timeout: %w", err)
	}

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// likePrefix returns a LIKE pattern matching every path strictly below
// prefix. LIKE metacharacters in the prefix are escaped.
func likePrefix(prefix string) string {
	return escapeLike(prefix) + "/%"
}

// likeContains returns a LIKE pattern matching s anywhere in the value.
func likeContains(s string) string {
	return "%" + escapeLike(s) + "%"
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
