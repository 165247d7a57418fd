package cipherprov

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBlockAndKeyLen(t *testing.T) {
	cases := []struct {
		alg         Algorithm
		block, key int
	}{
		{TripleDESCBC, 8, 24},
		{AES128CBC, 16, 16},
		{AES192CBC, 16, 24},
		{AES256CBC, 16, 32},
	}
	for _, c := range cases {
		bl, err := BlockLen(c.alg)
		require.NoError(t, err)
		assert.Equal(t, c.block, bl)

		kl, err := KeyLen(c.alg)
		require.NoError(t, err)
		assert.Equal(t, c.key, kl)
	}
}

func TestUnknownAlgorithm(t *testing.T) {
	_, err := BlockLen(Algorithm(99))
	assert.Error(t, err)
	_, err = KeyLen(Algorithm(99))
	assert.Error(t, err)
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	key := bytes.Repeat([]byte{0x01}, 16)
	iv := bytes.Repeat([]byte{0x02}, 16)
	plaintext := []byte("0123456789ABCDEF") // exactly one block

	enc, err := Open(AES128CBC, true)
	require.NoError(t, err)
	require.NoError(t, enc.SetKey(key))
	require.NoError(t, enc.SetIV(Encrypt, iv))

	ciphertext := make([]byte, len(plaintext))
	require.NoError(t, enc.Encrypt(ciphertext, plaintext))
	assert.NotEqual(t, plaintext, ciphertext)

	dec, err := Open(AES128CBC, true)
	require.NoError(t, err)
	require.NoError(t, dec.SetKey(key))
	require.NoError(t, dec.SetIV(Decrypt, iv))

	decrypted := make([]byte, len(ciphertext))
	require.NoError(t, dec.Decrypt(decrypted, ciphertext))
	assert.Equal(t, plaintext, decrypted)

	require.NoError(t, enc.Close())
	require.NoError(t, dec.Close())
}

func TestChainingAcrossCalls(t *testing.T) {
	key := bytes.Repeat([]byte{0x03}, 24)
	iv := bytes.Repeat([]byte{0x04}, 8)
	block1 := bytes.Repeat([]byte{0xAA}, 8)
	block2 := bytes.Repeat([]byte{0xBB}, 8)

	enc, err := Open(TripleDESCBC, true)
	require.NoError(t, err)
	require.NoError(t, enc.SetKey(key))
	require.NoError(t, enc.SetIV(Encrypt, iv))

	ct1 := make([]byte, 8)
	ct2 := make([]byte, 8)
	require.NoError(t, enc.Encrypt(ct1, block1))
	require.NoError(t, enc.Encrypt(ct2, block2))

	// Feeding both blocks in one call must match feeding them separately.
	enc2, err := Open(TripleDESCBC, true)
	require.NoError(t, err)
	require.NoError(t, enc2.SetKey(key))
	require.NoError(t, enc2.SetIV(Encrypt, iv))

	both := make([]byte, 16)
	require.NoError(t, enc2.Encrypt(both, append(append([]byte{}, block1...), block2...)))

	assert.Equal(t, ct1, both[:8])
	assert.Equal(t, ct2, both[8:])
}

func TestWrongKeyLengthRejected(t *testing.T) {
	s, err := Open(AES256CBC, true)
	require.NoError(t, err)
	err = s.SetKey(make([]byte, 16))
	assert.Error(t, err)
}

func TestMisalignedInputRejected(t *testing.T) {
	s, err := Open(AES128CBC, true)
	require.NoError(t, err)
	require.NoError(t, s.SetKey(make([]byte, 16)))
	require.NoError(t, s.SetIV(Encrypt, make([]byte, 16)))

	out := make([]byte, 10)
	err = s.Encrypt(out, make([]byte, 10))
	assert.Error(t, err)
}

func TestDirectionMismatchRejected(t *testing.T) {
	s, err := Open(AES128CBC, true)
	require.NoError(t, err)
	require.NoError(t, s.SetKey(make([]byte, 16)))
	require.NoError(t, s.SetIV(Encrypt, make([]byte, 16)))

	out := make([]byte, 16)
	err = s.Decrypt(out, make([]byte, 16))
	assert.Error(t, err)
}

func TestSetIVRequiresKeyFirst(t *testing.T) {
	s, err := Open(AES128CBC, true)
	require.NoError(t, err)
	err = s.SetIV(Encrypt, make([]byte, 16))
	assert.Error(t, err)
}

func TestRandomFillsDestination(t *testing.T) {
	dst := make([]byte, 32)
	require.NoError(t, Random(dst, Strong))
	assert.NotEqual(t, make([]byte, 32), dst)
}
