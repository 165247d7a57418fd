// Package buffer implements a growable byte buffer with amortised
// growth, head-remove, and positional insert/remove, plus a
// size-classed pool for recycling the backing storage without leaking
// key or plaintext material across reuses.
package buffer

import (
	"encoding/base64"
	"fmt"
)

// Buffer is an ordered mutable sequence of bytes whose logical size is
// always less than or equal to its capacity. It is not safe for
// concurrent use by multiple goroutines.
type Buffer struct {
	data []byte // len(data) == capacity; size is tracked separately
	size int
}

// New returns an empty buffer with the given initial capacity.
func New(capacity int) *Buffer {
	return &Buffer{data: make([]byte, capacity)}
}

// FromBytes returns a buffer whose contents are a copy of b.
func FromBytes(b []byte) *Buffer {
	buf := New(len(b))
	buf.Append(b)
	return buf
}

// Size returns the number of logically valid bytes.
func (b *Buffer) Size() int { return b.size }

// Capacity returns the size of the backing storage.
func (b *Buffer) Capacity() int { return len(b.data) }

// Data returns a mutable view of the buffer starting at offset, up to
// capacity (not size) — callers that need only the valid bytes should
// slice to Size()-offset themselves.
func (b *Buffer) Data(offset int) []byte {
	return b.data[offset:]
}

// Bytes returns a mutable view of exactly the valid bytes [0, Size()).
func (b *Buffer) Bytes() []byte {
	return b.data[:b.size]
}

// Reserve ensures capacity >= n, preserving [0, Size()) on growth.
// Growth is amortised (doubling) to bound the number of reallocations.
func (b *Buffer) Reserve(n int) error {
	if n < 0 {
		return fmt.Errorf("buffer: negative reserve size %d", n)
	}
	if n <= len(b.data) {
		return nil
	}
	newCap := len(b.data)
	if newCap == 0 {
		newCap = n
	}
	for newCap < n {
		newCap *= 2
	}
	grown := make([]byte, newCap)
	copy(grown, b.data[:b.size])
	b.data = grown
	return nil
}

// SetSize sets the logical size. Precondition: n <= Capacity(), or
// Reserve(n) must succeed first. Bytes in [oldSize, n) are unspecified
// until the caller writes them.
func (b *Buffer) SetSize(n int) error {
	if n < 0 {
		return fmt.Errorf("buffer: negative size %d", n)
	}
	if n > len(b.data) {
		if err := b.Reserve(n); err != nil {
			return err
		}
	}
	b.size = n
	return nil
}

// Append grows the buffer (if needed) and copies p onto the tail.
func (b *Buffer) Append(p []byte) error {
	if err := b.Reserve(b.size + len(p)); err != nil {
		return err
	}
	copy(b.data[b.size:], p)
	b.size += len(p)
	return nil
}

// Prepend inserts p at position 0, shifting existing contents right.
func (b *Buffer) Prepend(p []byte) error {
	return b.Insert(0, p)
}

// Insert inserts p at pos, shifting the tail right. Precondition:
// pos <= Size().
func (b *Buffer) Insert(pos int, p []byte) error {
	if pos < 0 || pos > b.size {
		return fmt.Errorf("buffer: insert position %d out of range [0, %d]", pos, b.size)
	}
	if err := b.Reserve(b.size + len(p)); err != nil {
		return err
	}
	copy(b.data[pos+len(p):b.size+len(p)], b.data[pos:b.size])
	copy(b.data[pos:], p)
	b.size += len(p)
	return nil
}

// RemoveHead removes the first n bytes, shifting the remainder left.
// Precondition: n <= Size().
func (b *Buffer) RemoveHead(n int) error {
	return b.Remove(0, n)
}

// Remove removes n bytes starting at pos, shifting the tail left.
// Precondition: pos+n <= Size().
func (b *Buffer) Remove(pos, n int) error {
	if n == 0 {
		return nil
	}
	if pos < 0 || n < 0 || pos+n > b.size {
		return fmt.Errorf("buffer: remove range [%d, %d) out of bounds for size %d", pos, pos+n, b.size)
	}
	copy(b.data[pos:], b.data[pos+n:b.size])
	b.size -= n
	return nil
}

// Empty resets the logical size to zero without releasing capacity.
func (b *Buffer) Empty() {
	b.size = 0
}

// Clear is an alias of Empty, named to match the transform's vocabulary
// for clearing its input/output buffers.
func (b *Buffer) Clear() { b.Empty() }

// Base64Encode returns the canonical MIME base64 encoding of the
// buffer's valid bytes, wrapped at columns characters per line
// (columns <= 0 means no line breaks).
func (b *Buffer) Base64Encode(columns int) string {
	encoded := base64.StdEncoding.EncodeToString(b.Bytes())
	if columns <= 0 {
		return encoded
	}
	var out []byte
	for i := 0; i < len(encoded); i += columns {
		end := i + columns
		if end > len(encoded) {
			end = len(encoded)
		}
		out = append(out, encoded[i:end]...)
		out = append(out, '\n')
	}
	return string(out)
}

// Base64Decode replaces the buffer's contents with the decoding of s.
func (b *Buffer) Base64Decode(s string) error {
	decoded, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return fmt.Errorf("buffer: invalid base64 input: %w", err)
	}
	b.Empty()
	return b.Append(decoded)
}
