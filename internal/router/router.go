// Package router sets up all HTTP routes and middleware chains for the
// storefront API. It organizes routes into the public catalog and order
// API and the key-protected admin API.
package router

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"storefront/internal/handlers"
	"storefront/internal/middleware"
)

// Pinger reports whether a backing service is reachable.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Deps are the handler groups and settings the router wires together.
type Deps struct {
	Catalog      *handlers.Catalog
	Orders       *handlers.Orders
	Admin        *handlers.Admin
	AdminKey     string
	OrderLimiter *middleware.RateLimiter
	DB           Pinger
}

// New creates and returns the configured Chi router with all middleware
// and route groups wired up.
func New(d Deps) chi.Router {
	r := chi.NewRouter()

	// Global middleware — applied to every request.
	r.Use(chimw.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Logger)
	r.Use(middleware.SecureHeaders)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not_found", "message": "no such route"})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method_not_allowed", "message": "method not allowed"})
	})

	// Health check — no auth.
	r.Get("/health", healthHandler(d.DB))

	// Public catalog and ordering API.
	r.Route("/api", func(r chi.Router) {
		r.Route("/categories", func(r chi.Router) {
			r.Get("/tree", d.Catalog.Tree)
			r.Get("/{slug}", d.Catalog.Category)
			r.Get("/{slug}/children", d.Catalog.Children)
			r.Get("/{slug}/products", d.Catalog.CategoryProducts)
		})

		r.Get("/products/search", d.Catalog.Search)
		r.Get("/products/{slug}", d.Catalog.Product)

		r.Group(func(r chi.Router) {
			r.Use(middleware.NoStore)
			if d.OrderLimiter != nil {
				r.Use(d.OrderLimiter.Middleware)
			}
			r.Post("/orders", d.Orders.Place)
		})
	})

	// Admin routes — require the shared admin key.
	r.Route("/admin", func(r chi.Router) {
		r.Use(middleware.NoStore)
		r.Use(middleware.RequireAdminKey(d.AdminKey))

		r.Route("/categories", func(r chi.Router) {
			r.Get("/", d.Admin.CategoriesList)
			r.Post("/", d.Admin.CategoryCreate)
			r.Put("/{id}", d.Admin.CategoryUpdate)
			r.Delete("/{id}", d.Admin.CategoryDelete)
		})

		r.Route("/products", func(r chi.Router) {
			r.Post("/", d.Admin.ProductCreate)
			r.Get("/{id}", d.Admin.ProductGet)
			r.Put("/{id}", d.Admin.ProductUpdate)
			r.Delete("/{id}", d.Admin.ProductDelete)
			r.Put("/{id}/gallery", d.Admin.ProductGallery)
			r.Put("/{id}/document", d.Admin.ProductDocument)
		})

		r.Route("/orders", func(r chi.Router) {
			r.Get("/{id}", d.Admin.OrderGet)
			r.Put("/{id}/status", d.Admin.OrderStatus)
		})

		// Operator tools
		r.Route("/tools", func(r chi.Router) {
			r.Post("/recalc-counts", d.Admin.RecalcCounts)
			r.Get("/count-drift", d.Admin.CountDrift)
			r.Get("/repair-log", d.Admin.RepairLog)
		})
	})

	return r
}

// healthHandler reports liveness, and database reachability when db is set.
func healthHandler(db Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if db != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := db.PingContext(ctx); err != nil {
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
