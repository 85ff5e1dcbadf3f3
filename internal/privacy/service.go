// Package privacy pseudonymizes client identifiers before they are persisted.
package privacy

import (
	"crypto/sha256"
	"encoding/hex"
)

// digestLength is the number of hex characters kept from the digest
const digestLength = 16

// Anonymizer hashes identifiers with a per-deployment salt
type Anonymizer struct {
	salt string
}

// NewAnonymizer creates an anonymizer with the given salt
func NewAnonymizer(salt string) *Anonymizer {
	return &Anonymizer{salt: salt}
}

// AnonymizeData returns a stable, truncated SHA-256 digest of data. Empty
// input stays empty so "unknown" remains distinguishable.
func (a *Anonymizer) AnonymizeData(data string) string {
	if data == "" {
		return ""
	}
	hash := sha256.Sum256([]byte(a.salt + "\x00" + data))
	return hex.EncodeToString(hash[:])[:digestLength]
}
