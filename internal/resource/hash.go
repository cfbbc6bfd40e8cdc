package resource

import (
	"crypto/sha1"
	"encoding/hex"
)

// HashLength is the number of hex characters kept from the digest.
const HashLength = 10

// Hash derives the short symbol token for text: the first HashLength
// lowercase hex characters of the SHA-1 digest of its UTF-8 bytes.
// The token names generated symbols; it carries no security meaning.
func Hash(text string) string {
	sum := sha1.Sum([]byte(text))
	return hex.EncodeToString(sum[:])[:HashLength]
}
