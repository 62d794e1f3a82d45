// Package detect provides content fingerprinting for change detection.
// Fingerprints are SHA-256 digests over the UTF-8 bytes of canonical content,
// so identical canonical content always produces the same fingerprint.
package detect

import (
	"crypto/sha256"
	"encoding/hex"
)

// Fingerprint returns the hex-encoded SHA-256 digest of the content.
func Fingerprint(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

// HasChanged reports whether a source's content drifted between checks.
// A nil last fingerprint means the source has never been checked; the first
// check establishes the baseline and is never reported as a change.
func HasChanged(last *string, next string) bool {
	if last == nil {
		return false
	}
	return *last != next
}
