package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// Hash returns the hex SHA-256 of data. Sheet keys use it for symbol
// streams and layout policies.
func Hash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// hashKey builds "kind:<hash>" over the JSON encoding of the key inputs.
// The inputs must encode deterministically; structs and strings do.
func hashKey(kind string, inputs ...any) string {
	data, err := json.Marshal(inputs)
	if err != nil {
		// Key inputs are plain strings and structs of strings.
		panic("cache: unencodable key input: " + err.Error())
	}
	return kind + ":" + Hash(data)
}
