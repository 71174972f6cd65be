// store_test.go provides a shared test database helper for all store
// integration tests. Tests are skipped if PostgreSQL is not available.
package store

import (
	"context"
	"database/sql"
	"os"
	"testing"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"storefront/internal/database"
	"storefront/internal/models"
	"storefront/internal/slug"
)

// testDSN returns the PostgreSQL connection string for testing.
// Uses environment variables with defaults matching docker-compose.yml.
func testDSN() string {
	host := envOr("POSTGRES_HOST", "localhost")
	port := envOr("POSTGRES_PORT", "5432")
	user := envOr("POSTGRES_USER", "storefront")
	pass := envOr("POSTGRES_PASSWORD", "changeme")
	name := envOr("POSTGRES_DB", "storefront")
	return "postgres://" + user + ":" + pass + "@" + host + ":" + port + "/" + name + "?sslmode=disable"
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// testDB opens a connection to the test database and runs migrations.
// If the database is unavailable, the test is skipped. A cleanup
// function is registered to close the connection when the test finishes.
func testDB(t *testing.T) *sql.DB {
	t.Helper()

	dsn := testDSN()
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		t.Skipf("skipping integration test: cannot open DB: %v", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		t.Skipf("skipping integration test: DB not reachable: %v", err)
	}

	// Run migrations to ensure the schema is current.
	if err := database.Migrate(db); err != nil {
		db.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	// Downgrade goose global state.
	goose.SetBaseFS(nil)

	t.Cleanup(func() { db.Close() })
	return db
}

// fixture bundles the stores of one test and the root category that owns
// every row the test creates.
type fixture struct {
	db         *sql.DB
	counter    *Counter
	categories *CategoryStore
	products   *ProductStore
	orders     *OrderStore
	root       *models.Category
}

// newFixture creates a uniquely named root category and registers a
// cleanup that removes the whole subtree with its products and orders.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testDB(t)
	counter := NewCounter(db)
	f := &fixture{
		db:         db,
		counter:    counter,
		categories: NewCategoryStore(db, counter),
		products:   NewProductStore(db, NewProductHook(counter)),
		orders:     NewOrderStore(db),
	}
	f.root = f.category(t, "test-root", nil)
	rootSlug := f.root.Slug
	t.Cleanup(func() { cleanSubtree(t, db, rootSlug) })
	return f
}

// cleanSubtree removes a test-owned tree in one transaction. Call in
// t.Cleanup().
func cleanSubtree(t *testing.T, db *sql.DB, rootSlug string) {
	t.Helper()
	rootPath, _ := slug.RootPath(rootSlug)
	tx, err := db.Begin()
	if err != nil {
		return
	}
	defer tx.Rollback()

	subtree := `SELECT id FROM categories WHERE path = $1 OR path LIKE $2`
	prods := `SELECT id FROM products WHERE category_id IN (` + subtree + `)`
	tx.Exec(`DELETE FROM orders WHERE id IN (SELECT order_id FROM order_items WHERE product_id IN (`+prods+`))`, rootPath, likePrefix(rootPath))
	tx.Exec(`DELETE FROM products WHERE category_id IN (`+subtree+`)`, rootPath, likePrefix(rootPath))
	tx.Exec(`DELETE FROM categories WHERE path = $1 OR path LIKE $2`, rootPath, likePrefix(rootPath))
	tx.Commit()
}

// category creates an active category with a unique slug derived from base.
func (f *fixture) category(t *testing.T, base string, parent *models.Category) *models.Category {
	t.Helper()
	var parentID *uuid.UUID
	if parent != nil {
		parentID = &parent.ID
	}
	c, err := f.categories.Create(context.Background(), base, base+"-"+uuid.NewString()[:8], parentID,
		models.CategoryFlags{IsActive: true})
	if err != nil {
		t.Fatalf("create category %s: %v", base, err)
	}
	return c
}

// product creates a product in category c.
func (f *fixture) product(t *testing.T, c *models.Category, price int64, active bool) *models.Product {
	t.Helper()
	p, err := f.products.Create(context.Background(), &models.Product{
		Name:       "Product " + uuid.NewString()[:8],
		Slug:       "test-product-" + uuid.NewString()[:8],
		Price:      price,
		IsActive:   active,
		CategoryID: c.ID,
	})
	if err != nil {
		t.Fatalf("create product: %v", err)
	}
	return p
}

// count returns the stored descendant product count of c.
func (f *fixture) count(t *testing.T, c *models.Category) int {
	t.Helper()
	var n int
	if err := f.db.QueryRow(`SELECT desc_product_count FROM categories WHERE id = $1`, c.ID).Scan(&n); err != nil {
		t.Fatalf("read count: %v", err)
	}
	return n
}

// assertNoDrift fails when any category of the fixture's tree disagrees
// with a full recompute.
func (f *fixture) assertNoDrift(t *testing.T) {
	t.Helper()
	drift, err := f.counter.Drift(context.Background())
	if err != nil {
		t.Fatalf("Drift: %v", err)
	}
	rootPath, _ := slug.RootPath(f.root.Slug)
	for _, d := range drift {
		if slug.IsDescendantOrSelf(d.Path, rootPath) {
			t.Errorf("drift at %s: stored %d, expected %d", d.Path, d.Stored, d.Expected)
		}
	}
}
