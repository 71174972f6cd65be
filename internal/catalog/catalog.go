// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package catalog is the read side of the storefront: it assembles the
// category tree, lists the products of a subtree and searches products.
// Results are cached in Valkey and concurrent identical loads are collapsed
// into one database round trip.
package catalog

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"storefront/internal/cache"
	"storefront/internal/models"
	"storefront/internal/slug"
	"storefront/internal/store"
)

const (
	// DefaultLimit is the page size used when the caller gives none.
	DefaultLimit = 20
	// MaxLimit is the largest page size served.
	MaxLimit = 100
	// MaxPage is the highest page number served; larger pages are clamped.
	MaxPage = math.MaxInt32

	// loadTimeout bounds one shared catalog load.
	loadTimeout = 10 * time.Second
)

// Lookup failures of the read side.
var (
	ErrCategoryNotFound = &store.Error{Kind: store.KindNotFound, Code: "category_not_found", Message: "category does not exist"}
	ErrProductNotFound  = &store.Error{Kind: store.KindNotFound, Code: "product_not_found", Message: "product does not exist"}
)

// CategoryReader is the category lookup surface the service reads from.
type CategoryReader interface {
	ListActive(ctx context.Context) ([]models.Category, error)
	Children(ctx context.Context, parentID *uuid.UUID) ([]models.Category, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Category, error)
	FindBySlug(ctx context.Context, slug string) (*models.Category, error)
}

// ProductReader is the product lookup surface the service reads from.
type ProductReader interface {
	Search(ctx context.Context, q store.ProductQuery) ([]models.Product, int, error)
	FindActiveBySlug(ctx context.Context, slug string) (*models.Product, error)
}

// Service answers catalog read queries.
type Service struct {
	categories CategoryReader
	products   ProductReader
	cache      *cache.CatalogCache
	group      singleflight.Group
}

// NewService creates a catalog service. cc may be nil to disable caching.
func NewService(categories CategoryReader, products ProductReader, cc *cache.CatalogCache) *Service {
	return &Service{categories: categories, products: products, cache: cc}
}

// PageParams selects one page of a listing.
type PageParams struct {
	Page  int
	Limit int
	Sort  models.ProductSort
}

// normalize clamps the page to [1, MaxPage] and the limit to [1, MaxLimit], and
// falls back to the "new" ordering for unknown sorts.
func (p PageParams) normalize() PageParams {
	switch {
	case p.Page < 1:
		p.Page = 1
	case p.Page > MaxPage:
		p.Page = MaxPage
	}
	switch {
	case p.Limit < 1:
		p.Limit = 1
	case p.Limit > MaxLimit:
		p.Limit = MaxLimit
	}
	if !store.ValidSort(p.Sort) {
		p.Sort = models.SortNew
	}
	return p
}

func (p PageParams) key() string {
	return strconv.Itoa(p.Page) + "|" + strconv.Itoa(p.Limit) + "|" + string(p.Sort)
}

// pageMeta computes pagination metadata; pages is 0 for an empty result.
func pageMeta(p PageParams, total int) models.PageMeta {
	pages := 0
	if total > 0 {
		pages = (total + p.Limit - 1) / p.Limit
	}
	return models.PageMeta{Page: p.Page, Limit: p.Limit, Total: total, Pages: pages}
}

// shared runs load once for concurrent callers with the same key and
// serves it from the catalog cache when possible. The load runs detached
// from any single caller, so one caller giving up does not fail the rest.
func shared[T any](ctx context.Context, s *Service, key string, load func(ctx context.Context) (T, error)) (T, error) {
	ch := s.group.DoChan(key, func() (any, error) {
		lctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), loadTimeout)
		defer cancel()
		return cache.Load(lctx, s.cache, key, func() (T, error) { return load(lctx) })
	})

	var zero T
	select {
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		return res.Val.(T), nil
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// Tree returns every active category assembled into a forest.
func (s *Service) Tree(ctx context.Context) ([]*models.CategoryNode, error) {
	return shared(ctx, s, "tree", func(ctx context.Context) ([]*models.CategoryNode, error) {
		cats, err := s.categories.ListActive(ctx)
		if err != nil {
			return nil, fmt.Errorf("load tree: %w", err)
		}
		return BuildForest(cats), nil
	})
}

// BuildForest links categories by parent_id. A category whose parent is
// missing from cats becomes an extra root instead of being dropped.
// Siblings are ordered by sort_order, then name, at every level.
func BuildForest(cats []models.Category) []*models.CategoryNode {
	nodes := make(map[uuid.UUID]*models.CategoryNode, len(cats))
	for _, c := range cats {
		nodes[c.ID] = &models.CategoryNode{
			Category: c,
			Depth:    slug.Depth(c.Path),
			Children: []*models.CategoryNode{},
		}
	}

	roots := []*models.CategoryNode{}
	for _, c := range cats {
		n := nodes[c.ID]
		if c.ParentID != nil {
			if parent, ok := nodes[*c.ParentID]; ok && parent != n {
				parent.Children = append(parent.Children, n)
				continue
			}
		}
		roots = append(roots, n)
	}

	sortNodes(roots)
	return roots
}

func sortNodes(nodes []*models.CategoryNode) {
	sort.SliceStable(nodes, func(i, j int) bool {
		if nodes[i].SortOrder != nodes[j].SortOrder {
			return nodes[i].SortOrder < nodes[j].SortOrder
		}
		return nodes[i].Name < nodes[j].Name
	})
	for _, n := range nodes {
		sortNodes(n.Children)
	}
}

// Children returns the active children of the category named by ref, which
// is a slug or an id. An empty ref or "root" lists the top level.
func (s *Service) Children(ctx context.Context, ref string) ([]models.Category, error) {
	ref = strings.TrimSpace(ref)
	return shared(ctx, s, cache.Key("children", ref), func(ctx context.Context) ([]models.Category, error) {
		var parentID *uuid.UUID
		if ref != "" && ref != slug.RootSegment {
			parent, err := s.resolve(ctx, ref)
			if err != nil {
				return nil, err
			}
			parentID = &parent.ID
		}
		children, err := s.categories.Children(ctx, parentID)
		if err != nil {
			return nil, fmt.Errorf("load children: %w", err)
		}
		if children == nil {
			children = []models.Category{}
		}
		return children, nil
	})
}

// resolve finds an active category by id or slug.
func (s *Service) resolve(ctx context.Context, ref string) (*models.Category, error) {
	var (
		c   *models.Category
		err error
	)
	if id, perr := uuid.Parse(ref); perr == nil {
		c, err = s.categories.FindByID(ctx, id)
	} else {
		c, err = s.categories.FindBySlug(ctx, ref)
	}
	if err != nil {
		return nil, err
	}
	if c == nil || !c.IsActive {
		return nil, ErrCategoryNotFound
	}
	return c, nil
}

// CategoryBySlug returns an active category.
func (s *Service) CategoryBySlug(ctx context.Context, slugValue string) (*models.Category, error) {
	return shared(ctx, s, cache.Key("category", slugValue), func(ctx context.Context) (*models.Category, error) {
		c, err := s.categories.FindBySlug(ctx, slugValue)
		if err != nil {
			return nil, err
		}
		if c == nil || !c.IsActive {
			return nil, ErrCategoryNotFound
		}
		return c, nil
	})
}

// ListCategory returns one page of the active products in the subtree of
// an active category. Categories flagged featured_only list featured
// products only.
func (s *Service) ListCategory(ctx context.Context, categorySlug string, p PageParams) (*models.ProductPage, error) {
	p = p.normalize()
	return shared(ctx, s, cache.Key("list", categorySlug, p.key()), func(ctx context.Context) (*models.ProductPage, error) {
		c, err := s.categories.FindBySlug(ctx, categorySlug)
		if err != nil {
			return nil, err
		}
		if c == nil || !c.IsActive {
			return nil, ErrCategoryNotFound
		}
		return s.page(ctx, store.ProductQuery{
			PathPrefix:   c.Path,
			FeaturedOnly: c.FeaturedOnly,
		}, p)
	})
}

// SearchParams filters a product search.
type SearchParams struct {
	Query        string
	CategorySlug string
	PageParams
}

// Search matches active products by case-insensitive name substring,
// optionally narrowed to a category subtree. A category slug that does not
// resolve yields an empty page.
func (s *Service) Search(ctx context.Context, sp SearchParams) (*models.ProductPage, error) {
	p := sp.PageParams.normalize()
	q := strings.TrimSpace(sp.Query)
	return shared(ctx, s, cache.Key("search", q, sp.CategorySlug, p.key()), func(ctx context.Context) (*models.ProductPage, error) {
		pq := store.ProductQuery{NameContains: q}
		if sp.CategorySlug != "" {
			c, err := s.categories.FindBySlug(ctx, sp.CategorySlug)
			if err != nil {
				return nil, err
			}
			if c == nil {
				return &models.ProductPage{Items: []models.Product{}, Meta: pageMeta(p, 0)}, nil
			}
			pq.PathPrefix = c.Path
		}
		return s.page(ctx, pq, p)
	})
}

func (s *Service) page(ctx context.Context, q store.ProductQuery, p PageParams) (*models.ProductPage, error) {
	q.Sort = p.Sort
	q.Limit = p.Limit
	q.Offset = (p.Page - 1) * p.Limit
	items, total, err := s.products.Search(ctx, q)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []models.Product{}
	}
	return &models.ProductPage{Items: items, Meta: pageMeta(p, total)}, nil
}

// ProductBySlug returns an active product of an active category.
func (s *Service) ProductBySlug(ctx context.Context, slugValue string) (*models.Product, error) {
	return shared(ctx, s, cache.Key("product", slugValue), func(ctx context.Context) (*models.Product, error) {
		p, err := s.products.FindActiveBySlug(ctx, slugValue)
		if err != nil {
			return nil, err
		}
		if p == nil {
			return nil, ErrProductNotFound
		}
		return p, nil
	})
}

// Invalidate drops every cached catalog read. Call after any catalog write.
func (s *Service) Invalidate(ctx context.Context) {
	s.cache.InvalidateAll(ctx)
}
