package analysis

import (
	"crypto/sha256"
	"encoding/hex"
)

// Fingerprint returns the SHA-256 hex digest of the image bytes. The digest
// is the durable reference to what was analyzed, independent of whether the
// uploaded file still exists anywhere.
func Fingerprint(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
