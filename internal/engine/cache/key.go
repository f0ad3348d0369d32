package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/rshade/batchrun/internal/ingest"
)

// Key hashes parts into a hex SHA256 digest. Parts are separated by a NUL
// byte so ("ab", "c") and ("a", "bc") differ.
func Key(parts ...string) string {
	h := sha256.New()
	for i, p := range parts {
		if i > 0 {
			_, _ = h.Write([]byte{0})
		}
		_, _ = h.Write([]byte(p))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// RecordKey derives the key for rec sent to scope, usually the endpoint URL.
// Field order does not matter.
func RecordKey(scope string, rec ingest.Record) (string, error) {
	// encoding/json writes map keys sorted.
	data, err := json.Marshal(rec)
	if err != nil {
		return "", fmt.Errorf("encoding record: %w", err)
	}
	return Key(scope, string(data)), nil
}
