package scan

import (
	"crypto/sha256"
	"encoding/hex"

	"exposurescan/internal/source"
)

// Fingerprint derives the deterministic subject key used for caching and
// report history. It hashes the normalized identifiers, so ordering, case,
// and surrounding whitespace do not change the result, and raw identifiers
// never leave the process.
func Fingerprint(subject source.Subject) string {
	h := sha256.New()
	for _, id := range subject.Normalized() {
		h.Write([]byte(id))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}
