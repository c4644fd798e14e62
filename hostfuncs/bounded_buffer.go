package hostfuncs

import (
	"bytes"

	domainerrors "github.com/reglet-dev/reglet-oracle/domain/errors"
)

// DefaultOutputCapacity is the output buffer size a guest provides when it
// does not choose one (16KiB).
const DefaultOutputCapacity = 16 * 1024

// DefaultMaxRequestSize limits the size of incoming requests (1MB).
// This prevents malicious WASM modules from triggering OOM by claiming huge request sizes.
const DefaultMaxRequestSize = 1 * 1024 * 1024

// DefaultMaxSourceResponseSize is the default limit on bytes read from an
// off-chain source response (10MB).
const DefaultMaxSourceResponseSize = 10 * 1024 * 1024

// OutputBuffer is the caller-provided output buffer of an extension call.
// A write that does not fit fails with *errors.BufferTooSmallError carrying the
// total size needed, and writes nothing: the buffer never holds a truncated payload.
type OutputBuffer struct {
	buf      []byte
	capacity uint32
}

// NewOutputBuffer creates an empty OutputBuffer of the given capacity.
func NewOutputBuffer(capacity uint32) *OutputBuffer {
	return &OutputBuffer{capacity: capacity}
}

// Write implements io.Writer with all-or-nothing semantics.
func (b *OutputBuffer) Write(p []byte) (int, error) {
	required := uint64(len(b.buf)) + uint64(len(p))
	if required > uint64(b.capacity) {
		return 0, &domainerrors.BufferTooSmallError{
			Required: clampU32(required),
			Capacity: b.capacity,
		}
	}
	b.buf = append(b.buf, p...)
	return len(p), nil
}

// Bytes returns the written bytes.
func (b *OutputBuffer) Bytes() []byte {
	return b.buf
}

// Len returns the number of written bytes.
func (b *OutputBuffer) Len() int {
	return len(b.buf)
}

// Capacity returns the capacity the buffer was created with.
func (b *OutputBuffer) Capacity() uint32 {
	return b.capacity
}

// Reset empties the buffer, keeping its capacity.
func (b *OutputBuffer) Reset() {
	b.buf = b.buf[:0]
}

func clampU32(v uint64) uint32 {
	if v > uint64(^uint32(0)) {
		return ^uint32(0)
	}
	return uint32(v)
}

// BoundedBuffer is a bytes.Buffer wrapper that limits the size of written data.
// Data sources use it to read off-chain responses without unbounded growth.
type BoundedBuffer struct {
	buffer    bytes.Buffer
	limit     int
	Truncated bool
}

// NewBoundedBuffer creates a new BoundedBuffer with the specified limit.
func NewBoundedBuffer(limit int) *BoundedBuffer {
	return &BoundedBuffer{
		limit: limit,
	}
}

// Write implements io.Writer.
// It writes data up to the limit and then silently discards any additional data.
// The Truncated field is set to true if any data was discarded.
func (b *BoundedBuffer) Write(p []byte) (n int, err error) {
	if b.buffer.Len() >= b.limit {
		b.Truncated = true
		return len(p), nil // Pretend we wrote it all to satisfy io.Writer contract
	}

	remaining := b.limit - b.buffer.Len()
	if len(p) > remaining {
		b.Truncated = true
		n, err = b.buffer.Write(p[:remaining])
		if err != nil {
			return n, err
		}
		return len(p), nil
	}

	return b.buffer.Write(p)
}

// Bytes returns the buffer contents as a byte slice.
func (b *BoundedBuffer) Bytes() []byte {
	return b.buffer.Bytes()
}

// String returns the buffer contents as a string.
func (b *BoundedBuffer) String() string {
	return b.buffer.String()
}

// Len returns the current length of the buffer.
func (b *BoundedBuffer) Len() int {
	return b.buffer.Len()
}

// Reset resets the buffer and clears the Truncated flag.
func (b *BoundedBuffer) Reset() {
	b.buffer.Reset()
	b.Truncated = false
}
