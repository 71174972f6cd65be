// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package slug builds URL-friendly slugs and the materialized category paths
// composed from them.
package slug

import (
	"regexp"
	"strings"
)

// MaxLen caps generated slugs so paths stay indexable.
const MaxLen = 120

var (
	nonAlphanumeric = regexp.MustCompile(`[^a-z0-9\s-]`)
	whitespace      = regexp.MustCompile(`\s+`)
	multipleHyphens = regexp.MustCompile(`-{2,}`)
)

// Generate creates a slug from a display name. The result never contains
// the path separator, so it is always a valid path segment unless empty.
// Example: "Laptops & Ultrabooks 2026" → "laptops-ultrabooks-2026"
func Generate(s string) string {
	result := strings.ToLower(strings.TrimSpace(s))
	result = nonAlphanumeric.ReplaceAllString(result, "")
	result = whitespace.ReplaceAllString(result, "-")
	result = multipleHyphens.ReplaceAllString(result, "-")
	result = strings.Trim(result, "-")
	if len(result) > MaxLen {
		result = strings.TrimRight(result[:MaxLen], "-")
	}
	return result
}
