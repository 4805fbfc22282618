// Package codec implements the engine's low-level encodings (§4.A):
// key hashing, zlib blob compression, and the line-oriented delta format.
package codec

import (
	"crypto/sha1" //nolint:gosec // content-addressing hash, not used for security

	"github.com/rdfvault/revengine/internal/types"
)

// KeySHA computes the SHA-1 digest of the UTF-8-encoded key, the
// identifier used everywhere in the store in place of the raw key string.
func KeySHA(key string) types.KeySHA {
	return types.KeySHA(sha1.Sum([]byte(key))) //nolint:gosec
}
