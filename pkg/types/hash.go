package types

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// AbstractHashPrefix is the number of abstract characters that contribute to a content hash.
const AbstractHashPrefix = 1000

// ContentHash returns the hex SHA-256 fingerprint of a document's identity fields.
// The basis is title + "|" + comma-joined authors + "|" + the abstract prefix.
func ContentHash(title string, authors []string, abstract string) string {
	var b strings.Builder
	b.WriteString(title)
	b.WriteByte('|')
	b.WriteString(strings.Join(authors, ","))
	b.WriteByte('|')
	b.WriteString(prefixRunes(abstract, AbstractHashPrefix))

	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

// prefixRunes returns the first n characters of s without splitting a UTF-8 sequence.
func prefixRunes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
