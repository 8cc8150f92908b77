// Package checksum fingerprints note content for optimistic concurrency.
package checksum

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Content returns the hex-encoded SHA-256 digest of a note body.
func Content(md string) string {
	h := sha256.Sum256([]byte(md))
	return hex.EncodeToString(h[:])
}

// ETag quotes sum as an HTTP entity tag.
func ETag(sum string) string {
	return `"` + sum + `"`
}

// FromIfMatch extracts the checksum from an If-Match header. A missing
// header and the "*" wildcard both yield "", meaning no precondition.
func FromIfMatch(header string) string {
	h := strings.TrimPrefix(strings.TrimSpace(header), "W/")
	if h == "*" {
		return ""
	}
	return strings.Trim(h, `"`)
}

// Matches reports whether want is empty or is the checksum of md.
func Matches(want, md string) bool {
	return want == "" || want == Content(md)
}
