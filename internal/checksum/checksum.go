// Package checksum derives content validators for rendered documents.
package checksum

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// ETag returns a strong entity tag for body: the quoted hex SHA-256 digest.
func ETag(body string) string {
	h := sha256.Sum256([]byte(body))
	return `"` + hex.EncodeToString(h[:]) + `"`
}

// Matches reports whether an If-None-Match header value names etag.
// A bare "*" matches anything. Weak tags compare by their opaque part.
func Matches(ifNoneMatch, etag string) bool {
	for _, candidate := range strings.Split(ifNoneMatch, ",") {
		candidate = strings.TrimSpace(candidate)
		if candidate == "*" {
			return true
		}
		if strings.TrimPrefix(candidate, "W/") == etag {
			return true
		}
	}
	return false
}
