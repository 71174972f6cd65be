// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package config handles application configuration loading from environment
// variables. It provides a centralized Config struct used across the application.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration values loaded from the environment.
type Config struct {
	// Server settings
	Host     string
	Port     string
	Env      string // "development", "production", "testing"
	LogLevel slog.Level

	// PostgreSQL connection
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	// Valkey (Redis-compatible cache). An empty host disables caching.
	ValkeyHost      string
	ValkeyPort      string
	ValkeyPassword  string
	CatalogCacheTTL time.Duration

	// Kafka order events. No brokers means events are dropped.
	KafkaBrokers     []string
	KafkaOrdersTopic string

	// Admin API
	AdminAPIKey string

	// Cron expression for the periodic count repair; empty disables it.
	CountRepairSchedule string

	// Order placements allowed per client IP per minute.
	OrderRateLimit int
}

// Load reads configuration from environment variables, applying defaults
// for development where appropriate. Returns an error if critical values
// are missing in production mode or a value cannot be parsed.
func Load() (*Config, error) {
	cfg := &Config{
		Host: envOrDefault("APP_HOST", "0.0.0.0"),
		Port: envOrDefault("APP_PORT", "8080"),
		Env:  envOrDefault("APP_ENV", "development"),

		DBHost:     envOrDefault("POSTGRES_HOST", "localhost"),
		DBPort:     envOrDefault("POSTGRES_PORT", "5432"),
		DBUser:     envOrDefault("POSTGRES_USER", "storefront"),
		DBPassword: envOrDefault("POSTGRES_PASSWORD", "changeme"),
		DBName:     envOrDefault("POSTGRES_DB", "storefront"),

		ValkeyHost:     envOrDefault("VALKEY_HOST", "localhost"),
		ValkeyPort:     envOrDefault("VALKEY_PORT", "6379"),
		ValkeyPassword: os.Getenv("VALKEY_PASSWORD"),

		KafkaBrokers:     splitList(os.Getenv("KAFKA_BROKERS")),
		KafkaOrdersTopic: envOrDefault("KAFKA_ORDERS_TOPIC", "orders.placed"),

		AdminAPIKey:         os.Getenv("ADMIN_API_KEY"),
		CountRepairSchedule: envOrDefault("COUNT_REPAIR_SCHEDULE", "@daily"),
	}

	var err error
	if cfg.LogLevel, err = parseLevel(envOrDefault("LOG_LEVEL", "info")); err != nil {
		return nil, err
	}
	if cfg.CatalogCacheTTL, err = time.ParseDuration(envOrDefault("CATALOG_CACHE_TTL", "2m")); err != nil {
		return nil, fmt.Errorf("CATALOG_CACHE_TTL: %w", err)
	}
	if cfg.OrderRateLimit, err = strconv.Atoi(envOrDefault("ORDER_RATE_LIMIT", "10")); err != nil {
		return nil, fmt.Errorf("ORDER_RATE_LIMIT: %w", err)
	}
	if cfg.OrderRateLimit < 1 {
		return nil, fmt.Errorf("ORDER_RATE_LIMIT must be positive")
	}
	if strings.EqualFold(cfg.CountRepairSchedule, "off") {
		cfg.CountRepairSchedule = ""
	}

	if cfg.Env == "production" {
		if cfg.DBPassword == "changeme" {
			return nil, fmt.Errorf("POSTGRES_PASSWORD must be set in production")
		}
		if cfg.AdminAPIKey == "" {
			return nil, fmt.Errorf("ADMIN_API_KEY must be set in production")
		}
	}

	return cfg, nil
}

// DSN returns the PostgreSQL connection string.
func (c *Config) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=disable",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName,
	)
}

// Addr returns the server listen address (host:port).
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

// IsDev returns true if the application is running in development mode.
func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// envOrDefault reads an environment variable, returning a fallback if unset or empty.
func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// splitList splits a comma-separated value, dropping blanks.
func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parseLevel(v string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(v)); err != nil {
		return 0, fmt.Errorf("LOG_LEVEL: %w", err)
	}
	return level, nil
}
