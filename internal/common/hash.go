package common

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// Sha256Hex returns the SHA-256 digest of the input encoded as lowercase hex.
func Sha256Hex(input string) string {
	sum := sha256.Sum256([]byte(input))
	return hex.EncodeToString(sum[:])
}

// ContentHash returns the SHA-256 of v's JSON encoding. Equal values hash equally
// because struct fields encode in declaration order.
func ContentHash(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}
