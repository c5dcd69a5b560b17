package core

import (
	"crypto/sha256"
	"encoding/hex"
)

// ContentHash identifies the output of a pure stage for a given input.
//
// It covers the stage name, the stage parameters (in the order given) and
// the input bytes. File paths and timestamps do not participate.
type ContentHash string

// HashContent computes a ContentHash.
//
// All components are length-prefixed to prevent ambiguity between
// parameter boundaries and content.
func HashContent(stage string, params []string, content []byte) ContentHash {
	hasher := sha256.New()

	writeField := func(data []byte) {
		length := uint64(len(data))
		lengthBytes := []byte{
			byte(length >> 56),
			byte(length >> 48),
			byte(length >> 40),
			byte(length >> 32),
			byte(length >> 24),
			byte(length >> 16),
			byte(length >> 8),
			byte(length),
		}
		hasher.Write(lengthBytes)
		hasher.Write(data)
	}

	writeField([]byte(stage))
	writeField([]byte{byte(len(params))})
	for _, p := range params {
		writeField([]byte(p))
	}
	writeField(content)

	return ContentHash(hex.EncodeToString(hasher.Sum(nil)))
}

// String returns the string representation of the ContentHash.
func (h ContentHash) String() string {
	return string(h)
}
