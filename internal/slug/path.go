// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package slug

import (
	"errors"
	"strings"
)

// RootSegment is the synthetic first segment of every category path.
const RootSegment = "root"

// Separator joins path segments.
const Separator = "/"

// ErrInvalid is returned when a slug cannot be used as a path segment.
var ErrInvalid = errors.New("slug must be non-empty and must not contain '/'")

// Validate reports whether s can be used as a single path segment.
func Validate(s string) error {
	if s == "" || strings.Contains(s, Separator) {
		return ErrInvalid
	}
	return nil
}

// RootPath returns the path of a category without a parent.
// Example: "electronics" → "root/electronics"
func RootPath(s string) (string, error) {
	if err := Validate(s); err != nil {
		return "", err
	}
	return RootSegment + Separator + s, nil
}

// ChildPath returns the path of a category placed under parentPath.
// Example: ("root/electronics", "laptops") → "root/electronics/laptops"
func ChildPath(parentPath, s string) (string, error) {
	if err := Validate(s); err != nil {
		return "", err
	}
	return parentPath + Separator + s, nil
}

// IsDescendantOrSelf reports whether candidate equals ancestor or lies below
// it. Matching happens on whole segments: "root/tv2" is not under "root/tv".
func IsDescendantOrSelf(candidate, ancestor string) bool {
	return candidate == ancestor || strings.HasPrefix(candidate, ancestor+Separator)
}

// AncestorsOrSelf returns every segment-boundary prefix of path, shortest
// first, ending with path itself.
// Example: "root/a/b" → ["root", "root/a", "root/a/b"]
func AncestorsOrSelf(path string) []string {
	if path == "" {
		return nil
	}
	var out []string
	for i := 0; i < len(path); i++ {
		if path[i] == Separator[0] {
			out = append(out, path[:i])
		}
	}
	return append(out, path)
}

// Rebase replaces the oldPrefix of path with newPrefix. Paths outside the
// oldPrefix subtree are returned unchanged and ok is false.
func Rebase(path, oldPrefix, newPrefix string) (rebased string, ok bool) {
	if !IsDescendantOrSelf(path, oldPrefix) {
		return path, false
	}
	return newPrefix + path[len(oldPrefix):], true
}

// Depth returns the number of segments below the synthetic root.
// "root/a" has depth 1, "root/a/b" depth 2.
func Depth(path string) int {
	if path == "" {
		return 0
	}
	return strings.Count(path, Separator)
}

// Leaf returns the last segment of path.
func Leaf(path string) string {
	if i := strings.LastIndex(path, Separator); i >= 0 {
		return path[i+1:]
	}
	return path
}
