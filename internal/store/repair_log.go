// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// repair_log.go records count recompute runs in the database for audit
// and debugging purposes. Each entry captures who triggered the run, how
// many rows it corrected, and the error if it failed.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"
)

// RepairLogStore handles count repair log operations.
type RepairLogStore struct {
	db *sql.DB
}

// NewRepairLogStore creates a new RepairLogStore.
func NewRepairLogStore(db *sql.DB) *RepairLogStore {
	return &RepairLogStore{db: db}
}

// Log records a recompute run. runErr may be nil.
func (s *RepairLogStore) Log(ctx context.Context, source string, corrected int64, runErr error) {
	msg := ""
	if runErr != nil {
		msg = runErr.Error()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO count_repair_log (source, corrected, error)
		VALUES ($1, $2, $3)
	`, source, corrected, msg)
	if err != nil {
		// Best-effort: the recompute itself already committed or failed.
		slog.Warn("failed to log count repair",
			"source", source,
			"corrected", corrected,
			"error", err,
		)
		return
	}
	slog.Debug("count repair logged", "source", source, "corrected", corrected)
}

// RecentEntries returns the most recent repair runs, newest first.
func (s *RepairLogStore) RecentEntries(ctx context.Context, limit int) ([]RepairLogEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, source, corrected, error, ran_at
		FROM count_repair_log
		ORDER BY ran_at DESC, id DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query repair log: %w", err)
	}
	defer rows.Close()

	entries := []RepairLogEntry{}
	for rows.Next() {
		var e RepairLogEntry
		if err := rows.Scan(&e.ID, &e.Source, &e.Corrected, &e.Error, &e.RanAt); err != nil {
			return nil, fmt.Errorf("scan repair log: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// RepairLogEntry represents a single recompute run.
type RepairLogEntry struct {
	ID        int64     `json:"id"`
	Source    string    `json:"source"`
	Corrected int64     `json:"corrected"`
	Error     string    `json:"error,omitempty"`
	RanAt     time.Time `json:"ran_at"`
}
