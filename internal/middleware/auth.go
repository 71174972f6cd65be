// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package middleware

import (
	"crypto/subtle"
	"net/http"
)

// AdminKeyHeader carries the shared admin secret.
const AdminKeyHeader = "X-Admin-Key"

// RequireAdminKey rejects requests whose X-Admin-Key header does not match
// key. An empty key locks the admin surface entirely.
func RequireAdminKey(key string) func(http.Handler) http.Handler {
	want := []byte(key)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := []byte(r.Header.Get(AdminKeyHeader))
			if len(want) == 0 || subtle.ConstantTimeCompare(got, want) != 1 {
				writeError(w, http.StatusUnauthorized, "unauthorized", "missing or invalid admin key")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
