// Package utils holds small helpers shared across the service.
package utils

import (
	"crypto/sha256"
	"encoding/hex"
)

// Hash returns the hex-encoded SHA-256 of s. Used to derive fixed-width
// cache keys from item ids of arbitrary length.
func Hash(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}
