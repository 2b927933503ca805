package slanger

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// DefaultKeyNamespace versions the cache format. Bump it to invalidate
// every entry written by an incompatible release.
const DefaultKeyNamespace = "slang:v2"

// NoContextDigest stands in for the digest when no context is given.
// It is not hex, so it never equals a real digest.
const NoContextDigest = "-"

// digestWidth is the number of hex characters kept from the SHA-256 sum.
const digestWidth = 16

// ContextDigest returns a fixed-width digest of the trimmed context.
func ContextDigest(context string) string {
	trimmed := strings.TrimSpace(context)
	if trimmed == "" {
		return NoContextDigest
	}
	sum := sha256.Sum256([]byte(trimmed))
	return hex.EncodeToString(sum[:])[:digestWidth]
}

// DeriveKey generates the cache key for a term and optional context.
func DeriveKey(term, context string) string {
	return DeriveKeyNamespaced(DefaultKeyNamespace, term, context)
}

// DeriveKeyNamespaced generates a cache key under a custom namespace.
func DeriveKeyNamespaced(namespace, term, context string) string {
	return namespace + ":" + term + ":" + ContextDigest(context)
}

// NamespacePrefix returns the prefix shared by every key in namespace.
func NamespacePrefix(namespace string) string {
	return namespace + ":"
}
