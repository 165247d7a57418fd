package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kenneth/xmlenc-transform/internal/cipherprov"
)

func TestLookupKnownDescriptor(t *testing.T) {
	d, err := Lookup("aes128-cbc")
	require.NoError(t, err)
	assert.Equal(t, cipherprov.AES128CBC, d.Algorithm)
	assert.Equal(t, 16, d.BlockLen)
	assert.Equal(t, 16, d.KeyLen)
}

func TestLookupUnknownDescriptor(t *testing.T) {
	_, err := Lookup("rc4-ecb")
	assert.Error(t, err)
}

func TestAllReturnsFourAlgorithms(t *testing.T) {
	assert.Len(t, All(), 4)
}

func TestEmptyAllowListPermitsEverything(t *testing.T) {
	r := New(nil)
	for _, d := range All() {
		assert.True(t, r.Allowed(d.Name))
	}
}

func TestAllowListGlobFiltersByPattern(t *testing.T) {
	r := New([]string{"aes*-cbc"})
	assert.True(t, r.Allowed("aes128-cbc"))
	assert.True(t, r.Allowed("aes256-cbc"))
	assert.False(t, r.Allowed("tripledes-cbc"))

	list := r.List()
	assert.Len(t, list, 3)
}

func TestAllowListLookupRejectsDisallowed(t *testing.T) {
	r := New([]string{"aes256-cbc"})
	_, err := r.Lookup("aes128-cbc")
	assert.Error(t, err)

	d, err := r.Lookup("aes256-cbc")
	require.NoError(t, err)
	assert.Equal(t, cipherprov.AES256CBC, d.Algorithm)
}
