package dag

import (
	"crypto/sha256"
	"encoding/hex"

	"assetweaver/internal/core"
)

// computeTaskDefHash hashes the declarative fields of a task.
//
// Prerequisites, inputs and vendor inputs keep their declared order since
// that order is part of the task's meaning. All fields are length-prefixed.
func computeTaskDefHash(t core.Task) TaskDefHash {
	h := sha256.New()

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
		h.Write(lengthBytes)
		h.Write(data)
	}
	writeList := func(items []string) {
		writeField([]byte{byte(len(items))})
		for _, it := range items {
			writeField([]byte(it))
		}
	}

	writeField([]byte(t.Name))
	writeField([]byte(t.Kind))
	writeField([]byte(t.EffectiveVariant()))
	writeList(t.Prerequisites)
	writeList(t.Inputs)
	writeList(t.Vendor)
	writeList(t.Outputs)

	sum := h.Sum(nil)
	return TaskDefHash(hex.EncodeToString(sum))
}
