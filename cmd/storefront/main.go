// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package main is the entry point for the storefront catalog server.
// It loads configuration, connects to services, sets up routing, and starts
// the HTTP server with graceful shutdown support.
//
// Running "storefront recalc-counts" applies migrations, re-derives every
// category product count and exits.
package main

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"storefront/internal/cache"
	"storefront/internal/catalog"
	"storefront/internal/config"
	"storefront/internal/database"
	"storefront/internal/events"
	"storefront/internal/handlers"
	"storefront/internal/jobs"
	"storefront/internal/middleware"
	"storefront/internal/router"
	"storefront/internal/store"
)

// repairTimeout bounds a single scheduled or CLI count repair.
const repairTimeout = 10 * time.Minute

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, nil)))

	// Load configuration from environment variables.
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Structured logger at the configured level.
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	})))

	// Connect to PostgreSQL.
	db, err := database.Connect(cfg.DSN())
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// Run database migrations.
	if err := database.Migrate(db); err != nil {
		slog.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "recalc-counts":
			if err := recalcCounts(db); err != nil {
				os.Exit(1)
			}
			return
		default:
			slog.Error("unknown command", "command", os.Args[1])
			os.Exit(2)
		}
	}

	serve(cfg, db)
}

// recalcCounts runs one full count repair and returns.
func recalcCounts(db *sql.DB) error {
	ctx, cancel := context.WithTimeout(context.Background(), repairTimeout)
	defer cancel()

	repair := jobs.NewCountRepair(store.NewCounter(db), store.NewRepairLogStore(db), nil)
	corrected, err := repair.Run(ctx, jobs.SourceCLI)
	if err != nil {
		return err
	}
	slog.Info("category counts recomputed", "corrected", corrected)
	return nil
}

func serve(cfg *config.Config, db *sql.DB) {
	// Initialize stores.
	counter := store.NewCounter(db)
	categoryStore := store.NewCategoryStore(db, counter)
	productStore := store.NewProductStore(db, store.NewProductHook(counter))
	orderStore := store.NewOrderStore(db)
	repairLog := store.NewRepairLogStore(db)

	// Seed a small catalog in development mode.
	if cfg.IsDev() {
		if err := database.Seed(context.Background(), db, categoryStore, productStore); err != nil {
			slog.Error("failed to seed database", "error", err)
			os.Exit(1)
		}
	}

	// Connect to Valkey. The catalog is served uncached when it is unavailable.
	var catalogCache *cache.CatalogCache
	valkeyClient, err := cache.ConnectValkey(cfg.ValkeyHost, cfg.ValkeyPort, cfg.ValkeyPassword)
	if err != nil {
		slog.Warn("valkey unavailable, catalog caching disabled", "error", err)
	} else {
		defer valkeyClient.Close()
		catalogCache = cache.NewCatalogCache(valkeyClient, cfg.CatalogCacheTTL)
	}

	catalogSvc := catalog.NewService(categoryStore, productStore, catalogCache)

	// Order events go to Kafka when brokers are configured.
	var publisher events.Publisher = events.NopPublisher{}
	if len(cfg.KafkaBrokers) > 0 {
		publisher = events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaOrdersTopic)
		slog.Info("order events enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaOrdersTopic)
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			slog.Error("failed to close event publisher", "error", err)
		}
	}()

	repair := jobs.NewCountRepair(counter, repairLog, catalogSvc)

	// Periodic count repair.
	var scheduler *jobs.Scheduler
	if cfg.CountRepairSchedule != "" {
		scheduler = jobs.NewScheduler(repairTimeout)
		if err := scheduler.ScheduleCountRepair(cfg.CountRepairSchedule, repair); err != nil {
			slog.Error("invalid count repair schedule", "error", err)
			os.Exit(1)
		}
		scheduler.Start()
	}

	orderLimiter := middleware.NewRateLimiter(cfg.OrderRateLimit, time.Minute)
	defer orderLimiter.Stop()

	if cfg.AdminAPIKey == "" {
		slog.Warn("ADMIN_API_KEY not set, admin API is disabled")
	}

	r := router.New(router.Deps{
		Catalog:      handlers.NewCatalog(catalogSvc),
		Orders:       handlers.NewOrders(orderStore, publisher),
		Admin:        handlers.NewAdmin(categoryStore, productStore, orderStore, counter, repair, repairLog, catalogSvc),
		AdminKey:     cfg.AdminAPIKey,
		OrderLimiter: orderLimiter,
		DB:           db,
	})

	// Create the HTTP server with sensible timeouts.
	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      r,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Start the server in a goroutine so we can listen for shutdown signals.
	go func() {
		slog.Info("server starting", "addr", cfg.Addr(), "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown: wait for SIGINT or SIGTERM, then drain connections.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	slog.Info("shutdown signal received", "signal", sig)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
	}
	if scheduler != nil {
		scheduler.Stop(ctx)
	}

	slog.Info("server stopped gracefully")
}
