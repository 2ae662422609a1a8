// Package checksum verifies transferred payloads against provider-supplied
// reference digests. The digest algorithm is inferred from the digest length;
// hex comparison is case-insensitive since providers disagree on case.
package checksum

import (
	"crypto/md5"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"strings"
)

// Hasher returns the hash matching a reference digest format: 32 hex chars is
// MD5, 64 is SHA-256.
func Hasher(reference string) (hash.Hash, error) {
	switch len(strings.TrimSpace(reference)) {
	case md5.Size * 2:
		return md5.New(), nil
	case sha256.Size * 2:
		return sha256.New(), nil
	}

	return nil, fmt.Errorf("unrecognized digest format: %q", reference)
}

// Equal compares a computed digest against the reference, ignoring hex case.
func Equal(computed []byte, reference string) bool {
	return strings.EqualFold(hex.EncodeToString(computed), strings.TrimSpace(reference))
}
