package cache

import (
	"encoding/hex"
	"encoding/json"

	sha256 "github.com/minio/sha256-simd"
)

// GenerateKey derives a deterministic cache key from an arbitrary source
// value, e.g. a composite filter or query object. Equal sources produce
// equal keys; the digest is a hex SHA-256 of the JSON-serialized source.
func GenerateKey(source any) (string, error) {
	b, err := json.Marshal(source)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:]), nil
}

func (c *Cache) GenerateKey(source any) (string, error) {
	return GenerateKey(source)
}
