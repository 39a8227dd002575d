package bytekit

// Sink accepts bytes, in order, into whatever larger buffer or transport
// it manages. Buffer.WriteTo depends on nothing else about the sink: not
// its growth strategy, not its final representation.
type Sink interface {
	Append(p []byte)
}

// Builder accumulates bytes into an owned slice and hands out immutable
// Buffer snapshots. It satisfies Sink and io.Writer. The zero value is
// ready to use.
//
// Unlike Buffer, a Builder is not safe for concurrent use.
type Builder struct {
	buf []byte
}

// NewBuilder returns a builder with capacity preallocated for n bytes.
func NewBuilder(n int) *Builder {
	return &Builder{buf: make([]byte, 0, n)}
}

// Append copies p onto the end of the accumulated bytes.
func (b *Builder) Append(p []byte) {
	b.buf = append(b.buf, p...)
}

// Write implements io.Writer. It never fails.
func (b *Builder) Write(p []byte) (int, error) {
	b.buf = append(b.buf, p...)
	return len(p), nil
}

// WriteString appends the UTF-8 bytes of s.
func (b *Builder) WriteString(s string) {
	b.buf = append(b.buf, s...)
}

// Len returns the number of bytes accumulated so far.
func (b *Builder) Len() int {
	return len(b.buf)
}

// Bytes returns the accumulated bytes. The slice aliases the builder's
// storage and is only valid until the next append.
func (b *Builder) Bytes() []byte {
	return b.buf
}

// Buffer returns an immutable snapshot of the accumulated bytes. Later
// appends do not affect the snapshot.
func (b *Builder) Buffer() Buffer {
	return FromBytes(b.buf)
}

// Grow ensures capacity for at least n more bytes.
func (b *Builder) Grow(n int) {
	if cap(b.buf)-len(b.buf) >= n {
		return
	}
	next := make([]byte, len(b.buf), len(b.buf)+n)
	copy(next, b.buf)
	b.buf = next
}

// Reset discards the accumulated bytes but keeps the storage.
func (b *Builder) Reset() {
	b.buf = b.buf[:0]
}
