// Package checksum computes the content digests used as score ETags.
package checksum

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Sum returns the hex-encoded SHA-256 digest of data.
func Sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// ETag formats a digest as a strong HTTP entity tag.
func ETag(sum string) string {
	return `"` + sum + `"`
}

// Match reports whether tag identifies data. tag may be a bare digest or an
// entity tag, weak or strong; "*" matches any content.
func Match(data []byte, tag string) bool {
	tag = strings.TrimSpace(tag)
	if tag == "*" {
		return true
	}
	tag = strings.Trim(strings.TrimPrefix(tag, "W/"), `"`)
	return tag == Sum(data)
}
