package bytekit

import (
	"bytes"
	"fmt"
	"hash/fnv"
	"strings"
	"unicode/utf8"
)

// Buffer holds an immutable sequence of raw bytes. The bytes may or may
// not be valid UTF-8 text; conversion to text is explicit and comes in a
// strict and a lossy flavor. The zero value is the empty buffer.
//
// Buffers are safe to share across goroutines without synchronization.
type Buffer struct {
	b []byte
}

// Empty returns a zero-length buffer.
func Empty() Buffer {
	return Buffer{}
}

// FromBytes copies b into a new buffer. Any byte values are accepted,
// including embedded NUL bytes.
func FromBytes(b []byte) Buffer {
	return Buffer{b: cloneBytes(b)}
}

// FromString stores the UTF-8 encoding of s.
func FromString(s string) Buffer {
	return Buffer{b: []byte(s)}
}

// Len returns the number of bytes held.
func (b Buffer) Len() int {
	return len(b.b)
}

// Bytes returns a copy to prevent external mutation.
func (b Buffer) Bytes() []byte {
	return cloneBytes(b.b)
}

// Text decodes the buffer as UTF-8. The second result is false when any
// byte subsequence is ill-formed; that is an expected outcome for binary
// data, not an error. Decoding is length-aware, so embedded NUL bytes
// are preserved as data.
func (b Buffer) Text() (string, bool) {
	if !utf8.Valid(b.b) {
		return "", false
	}
	return string(b.b), true
}

// LossyText decodes the buffer as UTF-8, replacing each maximal
// ill-formed subsequence with U+FFFD. It never fails, and returns the
// exact decoded text when the buffer is valid UTF-8.
func (b Buffer) LossyText() string {
	if utf8.Valid(b.b) {
		return string(b.b)
	}
	return strings.ToValidUTF8(string(b.b), "�")
}

// Equal reports whether both buffers hold the same bytes in the same
// order.
func (b Buffer) Equal(other Buffer) bool {
	return bytes.Equal(b.b, other.b)
}

// Hash folds the byte sequence into a 64-bit FNV-1a accumulator. Equal
// buffers always hash equal, and the value depends only on the byte
// sequence, so it is stable across calls within a process.
func (b Buffer) Hash() uint64 {
	h := fnv.New64a()
	h.Write(b.b)
	return h.Sum64()
}

// WriteTo pushes the full byte sequence to sink as a single append, in
// order. The sink receives its own copy, so even a sink that retains or
// mutates the slice cannot affect the buffer.
func (b Buffer) WriteTo(sink Sink) {
	sink.Append(cloneBytes(b.b))
}

// String renders the buffer for diagnostics as Buffer("<lossy text>").
// Not a round-trippable serialization.
func (b Buffer) String() string {
	return fmt.Sprintf("Buffer(%q)", b.LossyText())
}

// cloneBytes is a small helper used to enforce immutability.
func cloneBytes(b []byte) []byte {
	c := make([]byte, len(b))
	copy(c, b)
	return c
}
