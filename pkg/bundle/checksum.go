package bundle

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"strings"
)

// Checksum returns the hex-encoded SHA-256 digest of the exact bundle bytes.
func Checksum(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// ValidateChecksum recomputes the digest of data and compares it against the
// declared checksum in constant time. The declared value is never trusted as
// a digest of anything; it is only an expectation to compare against.
func ValidateChecksum(data []byte, declared string) bool {
	computed := Checksum(data)
	declared = strings.ToLower(strings.TrimSpace(declared))
	if len(declared) != len(computed) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(computed), []byte(declared)) == 1
}
