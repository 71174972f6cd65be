// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// GalleryImage describes one image in a product gallery. The file itself
// lives in object storage; only its descriptor is kept with the product.
type GalleryImage struct {
	ID       string `json:"id"`
	URL      string `json:"url"`
	Alt      string `json:"alt"`
	Sort     int    `json:"sort"`
	Mime     string `json:"mime"`
	Size     int64  `json:"size"`
	Filename string `json:"filename"`
}

// IsImage returns true if the descriptor carries an image MIME type.
func (g *GalleryImage) IsImage() bool {
	return strings.HasPrefix(g.Mime, "image/")
}

// HumanSize returns a human-readable file size string.
func (g *GalleryImage) HumanSize() string {
	return humanSize(g.Size)
}

// Gallery is the ordered image list stored as JSONB on the product row.
type Gallery []GalleryImage

// Sorted returns a copy ordered by Sort, keeping input order for ties.
func (g Gallery) Sorted() Gallery {
	out := make(Gallery, len(g))
	copy(out, g)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Sort < out[j].Sort })
	return out
}

// Renumbered returns a copy whose Sort values follow slice order (0..n-1).
func (g Gallery) Renumbered() Gallery {
	out := make(Gallery, len(g))
	for i, img := range g {
		img.Sort = i
		out[i] = img
	}
	return out
}

// Value implements driver.Valuer.
func (g Gallery) Value() (driver.Value, error) {
	if g == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(g)
}

// Scan implements sql.Scanner.
func (g *Gallery) Scan(src any) error {
	b, err := jsonBytes(src)
	if err != nil {
		return fmt.Errorf("scan gallery: %w", err)
	}
	if len(b) == 0 {
		*g = Gallery{}
		return nil
	}
	var out Gallery
	if err := json.Unmarshal(b, &out); err != nil {
		return fmt.Errorf("scan gallery: %w", err)
	}
	*g = out.Sorted()
	return nil
}

// DocMeta describes the downloadable document attached to a product.
type DocMeta struct {
	Filename string `json:"filename,omitempty"`
	Mime     string `json:"mime,omitempty"`
	Size     int64  `json:"size,omitempty"`
	Title    string `json:"title,omitempty"`
}

// HumanSize returns a human-readable file size string.
func (d *DocMeta) HumanSize() string {
	return humanSize(d.Size)
}

// Value implements driver.Valuer.
func (d *DocMeta) Value() (driver.Value, error) {
	if d == nil {
		return nil, nil
	}
	return json.Marshal(d)
}

// Scan implements sql.Scanner.
func (d *DocMeta) Scan(src any) error {
	b, err := jsonBytes(src)
	if err != nil {
		return fmt.Errorf("scan doc meta: %w", err)
	}
	if len(b) == 0 {
		*d = DocMeta{}
		return nil
	}
	return json.Unmarshal(b, d)
}

func jsonBytes(src any) ([]byte, error) {
	switch v := src.(type) {
	case nil:
		return nil, nil
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	default:
		return nil, fmt.Errorf("unsupported type %T", src)
	}
}

func humanSize(n int64) string {
	const (
		kb = 1024
		mb = 1024 * kb
	)
	switch {
	case n >= mb:
		return fmt.Sprintf("%.1f MB", float64(n)/float64(mb))
	case n >= kb:
		return fmt.Sprintf("%.0f KB", float64(n)/float64(kb))
	default:
		return fmt.Sprintf("%d B", n)
	}
}
