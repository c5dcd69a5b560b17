package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHashContent_IdenticalInputsProduceSameHash(t *testing.T) {
	a := HashContent("prefix", []string{"Chrome >= 35"}, []byte(".a{}"))
	b := HashContent("prefix", []string{"Chrome >= 35"}, []byte(".a{}"))
	assert.Equal(t, a, b)
	assert.Len(t, a.String(), 64)
}

func TestHashContent_EveryComponentParticipates(t *testing.T) {
	base := HashContent("prefix", []string{"x"}, []byte("c"))

	assert.NotEqual(t, base, HashContent("minify", []string{"x"}, []byte("c")))
	assert.NotEqual(t, base, HashContent("prefix", []string{"y"}, []byte("c")))
	assert.NotEqual(t, base, HashContent("prefix", []string{"x"}, []byte("d")))
	assert.NotEqual(t, base, HashContent("prefix", nil, []byte("c")))
}

func TestHashContent_LengthPrefixPreventsAmbiguity(t *testing.T) {
	a := HashContent("s", []string{"ab", "c"}, nil)
	b := HashContent("s", []string{"a", "bc"}, nil)
	assert.NotEqual(t, a, b)
}
