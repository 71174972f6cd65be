// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package jobs runs operator maintenance tasks: the count repair pass that
// re-derives every category count, either on demand or on a cron schedule.
package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Sources a repair run is attributed to.
const (
	SourceCLI      = "cli"
	SourceSchedule = "schedule"
	SourceAdmin    = "admin"
)

// Recomputer re-derives every category count from current state.
type Recomputer interface {
	FullRecompute(ctx context.Context) (int64, error)
}

// RepairLogger records repair runs.
type RepairLogger interface {
	Log(ctx context.Context, source string, corrected int64, runErr error)
}

// Invalidator drops cached catalog reads.
type Invalidator interface {
	Invalidate(ctx context.Context)
}

// CountRepair runs a full recompute, records the run and drops cached
// reads when anything changed.
type CountRepair struct {
	counter Recomputer
	log     RepairLogger
	cache   Invalidator
}

// NewCountRepair creates a CountRepair. log and cache may be nil.
func NewCountRepair(counter Recomputer, log RepairLogger, cache Invalidator) *CountRepair {
	return &CountRepair{counter: counter, log: log, cache: cache}
}

// Run performs one repair pass attributed to source.
func (r *CountRepair) Run(ctx context.Context, source string) (int64, error) {
	start := time.Now()
	corrected, err := r.counter.FullRecompute(ctx)
	if r.log != nil {
		r.log.Log(ctx, source, corrected, err)
	}
	if err != nil {
		slog.Error("count repair failed", "source", source, "error", err)
		return 0, err
	}
	if corrected > 0 {
		slog.Warn("count repair corrected drift", "source", source, "corrected", corrected)
		if r.cache != nil {
			r.cache.Invalidate(ctx)
		}
	}
	slog.Info("count repair finished", "source", source, "corrected", corrected, "duration", time.Since(start))
	return corrected, nil
}

// cronParser accepts standard five-field specs, an optional seconds field
// and descriptors such as "@hourly" or "@every 30m".
var cronParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// ValidateSchedule reports whether spec is a usable cron expression.
func ValidateSchedule(spec string) error {
	if _, err := cronParser.Parse(spec); err != nil {
		return fmt.Errorf("invalid schedule %q: %w", spec, err)
	}
	return nil
}

// slogAdapter routes cron's internal logging through slog.
type slogAdapter struct{}

func (slogAdapter) Info(msg string, keysAndValues ...any) {
	slog.Debug("cron: "+msg, keysAndValues...)
}

func (slogAdapter) Error(err error, msg string, keysAndValues ...any) {
	slog.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}

// Scheduler runs jobs on cron schedules. Overlapping runs of the same job
// are skipped and panics are recovered.
type Scheduler struct {
	cron    *cron.Cron
	timeout time.Duration
}

// NewScheduler creates a scheduler. Each run is bounded by timeout.
func NewScheduler(timeout time.Duration) *Scheduler {
	logger := slogAdapter{}
	c := cron.New(
		cron.WithParser(cronParser),
		cron.WithLocation(time.UTC),
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)
	return &Scheduler{cron: c, timeout: timeout}
}

// ScheduleCountRepair registers repair to run on spec.
func (s *Scheduler) ScheduleCountRepair(spec string, repair *CountRepair) error {
	if err := ValidateSchedule(spec); err != nil {
		return err
	}
	_, err := s.cron.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()
		repair.Run(ctx, SourceSchedule)
	})
	if err != nil {
		return fmt.Errorf("schedule count repair: %w", err)
	}
	slog.Info("count repair scheduled", "schedule", spec)
	return nil
}

// Start begins running scheduled jobs in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop prevents new runs and waits for running jobs until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		slog.Warn("scheduler stop timed out")
	}
}

// Entries returns the number of registered jobs.
func (s *Scheduler) Entries() int {
	return len(s.cron.Entries())
}
