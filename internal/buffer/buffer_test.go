package buffer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppendAndRemoveHead(t *testing.T) {
	b := New(0)
	require.NoError(t, b.Append([]byte("hello")))
	require.NoError(t, b.Append([]byte(" world")))
	assert.Equal(t, "hello world", string(b.Bytes()))

	require.NoError(t, b.RemoveHead(6))
	assert.Equal(t, "world", string(b.Bytes()))
	assert.Equal(t, 5, b.Size())
}

func TestInsertAndRemove(t *testing.T) {
	b := FromBytes([]byte("helloworld"))
	require.NoError(t, b.Insert(5, []byte(" big ")))
	assert.Equal(t, "hello big world", string(b.Bytes()))

	require.NoError(t, b.Remove(5, 5))
	assert.Equal(t, "helloworld", string(b.Bytes()))
}

func TestPrepend(t *testing.T) {
	b := FromBytes([]byte("world"))
	require.NoError(t, b.Prepend([]byte("hello ")))
	assert.Equal(t, "hello world", string(b.Bytes()))
}

func TestSetSizePreconditionGrowsCapacity(t *testing.T) {
	b := New(4)
	require.NoError(t, b.SetSize(16))
	assert.Equal(t, 16, b.Size())
	assert.GreaterOrEqual(t, b.Capacity(), 16)
}

func TestRemoveOutOfBoundsFails(t *testing.T) {
	b := FromBytes([]byte("abc"))
	assert.Error(t, b.Remove(2, 5))
	assert.Error(t, b.Insert(10, []byte("x")))
}

func TestReserveGrowthPreservesContents(t *testing.T) {
	b := FromBytes([]byte("preserve-me"))
	require.NoError(t, b.Reserve(4096))
	assert.Equal(t, "preserve-me", string(b.Bytes()))
	assert.GreaterOrEqual(t, b.Capacity(), 4096)
}

func TestEmpty(t *testing.T) {
	b := FromBytes([]byte("gone"))
	b.Empty()
	assert.Equal(t, 0, b.Size())
	assert.Equal(t, "", string(b.Bytes()))
}

func TestBase64RoundTrip(t *testing.T) {
	b := FromBytes([]byte("round trip me"))
	encoded := b.Base64Encode(0)

	decoded := New(0)
	require.NoError(t, decoded.Base64Decode(encoded))
	assert.Equal(t, "round trip me", string(decoded.Bytes()))
}

func TestBase64EncodeWithColumns(t *testing.T) {
	b := FromBytes(make([]byte, 100))
	encoded := b.Base64Encode(16)
	lines := 0
	for _, c := range encoded {
		if c == '\n' {
			lines++
		}
	}
	assert.Greater(t, lines, 1)
}

func TestBase64DecodeInvalid(t *testing.T) {
	b := New(0)
	assert.Error(t, b.Base64Decode("not valid base64!!"))
}
