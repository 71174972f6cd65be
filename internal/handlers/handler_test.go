// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// handler_test.go provides shared test infrastructure for handler integration
// tests. Tests are skipped when PostgreSQL or Valkey are unavailable.
package handlers

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/redis/go-redis/v9"

	"storefront/internal/cache"
	"storefront/internal/catalog"
	"storefront/internal/database"
	"storefront/internal/events"
	"storefront/internal/jobs"
	"storefront/internal/models"
	"storefront/internal/slug"
	"storefront/internal/store"
)

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// testDB opens a connection to the test PostgreSQL and runs migrations.
func testDB(t *testing.T) *sql.DB {
	t.Helper()

	host := envOr("POSTGRES_HOST", "localhost")
	port := envOr("POSTGRES_PORT", "5432")
	user := envOr("POSTGRES_USER", "storefront")
	pass := envOr("POSTGRES_PASSWORD", "changeme")
	name := envOr("POSTGRES_DB", "storefront")
	dsn := "postgres://" + user + ":" + pass + "@" + host + ":" + port + "/" + name + "?sslmode=disable"

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		t.Skipf("skipping: cannot open DB: %v", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		t.Skipf("skipping: DB not reachable: %v", err)
	}

	if err := database.Migrate(db); err != nil {
		db.Close()
		t.Fatalf("migrate: %v", err)
	}
	goose.SetBaseFS(nil)

	t.Cleanup(func() { db.Close() })
	return db
}

// testValkeyClient returns a Redis client for handler tests on DB 15, or
// nil when Valkey is unreachable; handlers then run uncached.
func testValkeyClient(t *testing.T) *redis.Client {
	t.Helper()

	client := redis.NewClient(&redis.Options{
		Addr:     envOr("VALKEY_HOST", "localhost") + ":" + envOr("VALKEY_PORT", "6379"),
		Password: os.Getenv("VALKEY_PASSWORD"),
		DB:       15,
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil
	}

	t.Cleanup(func() {
		keys, _ := client.Keys(ctx, "catalog:*").Result()
		if len(keys) > 0 {
			client.Del(ctx, keys...)
		}
		client.Close()
	})
	return client
}

// recordingPublisher captures published order events.
type recordingPublisher struct {
	mu     sync.Mutex
	events []events.OrderPlaced
	err    error
}

func (p *recordingPublisher) PublishOrderPlaced(ctx context.Context, e events.OrderPlaced) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return p.err
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) published() []events.OrderPlaced {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]events.OrderPlaced(nil), p.events...)
}

// testEnv holds all dependencies for handler integration tests.
type testEnv struct {
	DB         *sql.DB
	Categories *store.CategoryStore
	Products   *store.ProductStore
	Orders     *store.OrderStore
	Counter    *store.Counter
	Publisher  *recordingPublisher
	Catalog    *Catalog
	Admin      *Admin
	OrderAPI   *Orders

	roots []string
}

// newTestEnv creates a complete test environment with all handler dependencies.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := testDB(t)
	vk := testValkeyClient(t)

	counter := store.NewCounter(db)
	categories := store.NewCategoryStore(db, counter)
	products := store.NewProductStore(db, store.NewProductHook(counter))
	orders := store.NewOrderStore(db)
	repairLog := store.NewRepairLogStore(db)

	svc := catalog.NewService(categories, products, cache.NewCatalogCache(vk, time.Minute))
	repair := jobs.NewCountRepair(counter, repairLog, svc)
	pub := &recordingPublisher{}

	env := &testEnv{
		DB:         db,
		Categories: categories,
		Products:   products,
		Orders:     orders,
		Counter:    counter,
		Publisher:  pub,
		Catalog:    NewCatalog(svc),
		Admin:      NewAdmin(categories, products, orders, counter, repair, repairLog, svc),
		OrderAPI:   NewOrders(orders, pub),
	}
	t.Cleanup(func() {
		for _, root := range env.roots {
			cleanSubtree(db, root)
		}
	})
	return env
}

// cleanSubtree removes a test-owned tree with its products and orders.
func cleanSubtree(db *sql.DB, rootSlug string) {
	rootPath, _ := slug.RootPath(rootSlug)
	tx, err := db.Begin()
	if err != nil {
		return
	}
	defer tx.Rollback()

	subtree := `SELECT id FROM categories WHERE path = $1 OR starts_with(path, $1 || '/')`
	prods := `SELECT id FROM products WHERE category_id IN (` + subtree + `)`
	tx.Exec(`DELETE FROM orders WHERE id IN (SELECT order_id FROM order_items WHERE product_id IN (`+prods+`))`, rootPath)
	tx.Exec(`DELETE FROM products WHERE category_id IN (`+subtree+`)`, rootPath)
	tx.Exec(`DELETE FROM categories WHERE path = $1 OR starts_with(path, $1 || '/')`, rootPath)
	tx.Commit()
}

// uniqueSlug returns base with a random suffix.
func uniqueSlug(base string) string {
	return base + "-" + uuid.NewString()[:8]
}

// root creates a top-level category owned by the test.
func (e *testEnv) root(t *testing.T) *models.Category {
	t.Helper()
	c := e.category(t, "handler-root", nil)
	e.roots = append(e.roots, c.Slug)
	return c
}

// category creates an active category directly through the store.
func (e *testEnv) category(t *testing.T, base string, parent *models.Category) *models.Category {
	t.Helper()
	var parentID *uuid.UUID
	if parent != nil {
		parentID = &parent.ID
	}
	c, err := e.Categories.Create(context.Background(), base, uniqueSlug(base), parentID, models.CategoryFlags{IsActive: true})
	if err != nil {
		t.Fatalf("create category: %v", err)
	}
	return c
}

// product creates a product directly through the store.
func (e *testEnv) product(t *testing.T, c *models.Category, price int64, active bool) *models.Product {
	t.Helper()
	p, err := e.Products.Create(context.Background(), &models.Product{
		Name:       "Widget",
		Slug:       uniqueSlug("widget"),
		Price:      price,
		IsActive:   active,
		CategoryID: c.ID,
	})
	if err != nil {
		t.Fatalf("create product: %v", err)
	}
	return p
}

// storedCount reads a category's stored count.
func (e *testEnv) storedCount(t *testing.T, id uuid.UUID) int {
	t.Helper()
	var n int
	if err := e.DB.QueryRow(`SELECT desc_product_count FROM categories WHERE id = $1`, id).Scan(&n); err != nil {
		t.Fatalf("read count: %v", err)
	}
	return n
}

// withChiURLParam adds a chi URL parameter to a request.
func withChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// jsonRequest builds a request with a JSON-encoded body.
func jsonRequest(t *testing.T, method, target string, body any) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// decodeBody decodes a JSON response body into dst.
func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), dst); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
}

// errorCode extracts the "error" field of a JSON error response.
func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body errorBody
	decodeBody(t, rec, &body)
	return body.Error
}
