// Package wireformat defines the binary wire format for values crossing the
// boundary between a WASM guest and the host. The format is byte-exact and
// versionless; both sides must encode identically, so it must remain stable.
//
// Rules:
//   - integers are fixed-width little-endian (u8, u16, u32, u64)
//   - byte sequences and strings are a u32 length followed by the bytes
//   - bool is 0x00 or 0x01; Option is tag 0x00 (None) or 0x01 followed by the value
//
// Decoding is strict: unknown tags, truncated input and trailing bytes are all
// *errors.DecodeError values.
package wireformat

import (
	"encoding/binary"
	"fmt"

	domainerrors "github.com/reglet-dev/reglet-oracle/domain/errors"
)

// Sizes of the fixed-width encodings.
const (
	U8Size  = 1
	U16Size = 2
	U32Size = 4
	U64Size = 8
)

// Encoder appends values to a byte slice in wire format.
type Encoder struct {
	buf []byte
}

// NewEncoder creates an Encoder with sizeHint bytes preallocated.
func NewEncoder(sizeHint int) *Encoder {
	return &Encoder{buf: make([]byte, 0, sizeHint)}
}

// WriteU8 appends a single byte.
func (e *Encoder) WriteU8(v uint8) *Encoder {
	e.buf = append(e.buf, v)
	return e
}

// WriteU16 appends v as 2 little-endian bytes.
func (e *Encoder) WriteU16(v uint16) *Encoder {
	e.buf = binary.LittleEndian.AppendUint16(e.buf, v)
	return e
}

// WriteU32 appends v as 4 little-endian bytes.
func (e *Encoder) WriteU32(v uint32) *Encoder {
	e.buf = binary.LittleEndian.AppendUint32(e.buf, v)
	return e
}

// WriteU64 appends v as 8 little-endian bytes.
func (e *Encoder) WriteU64(v uint64) *Encoder {
	e.buf = binary.LittleEndian.AppendUint64(e.buf, v)
	return e
}

// WriteBool appends 0x01 for true and 0x00 for false.
func (e *Encoder) WriteBool(v bool) *Encoder {
	if v {
		return e.WriteU8(1)
	}
	return e.WriteU8(0)
}

// WriteBytes appends a u32 length prefix followed by b.
func (e *Encoder) WriteBytes(b []byte) *Encoder {
	e.WriteU32(uint32(len(b))) //nolint:gosec // G115: payloads crossing the boundary are bounded well below 4GiB
	e.buf = append(e.buf, b...)
	return e
}

// WriteString appends s as a byte sequence.
func (e *Encoder) WriteString(s string) *Encoder {
	e.WriteU32(uint32(len(s))) //nolint:gosec // G115: see WriteBytes
	e.buf = append(e.buf, s...)
	return e
}

// WriteOption appends the None tag, or the Some tag followed by whatever some writes.
func (e *Encoder) WriteOption(present bool, some func(*Encoder)) *Encoder {
	if !present {
		return e.WriteU8(0)
	}
	e.WriteU8(1)
	some(e)
	return e
}

// Len returns the number of bytes encoded so far.
func (e *Encoder) Len() int {
	return len(e.buf)
}

// Bytes returns the encoded bytes.
func (e *Encoder) Bytes() []byte {
	return e.buf
}

// Decoder reads wire format values from a byte slice.
type Decoder struct {
	data []byte
	off  int
}

// NewDecoder creates a Decoder over data.
func NewDecoder(data []byte) *Decoder {
	return &Decoder{data: data}
}

// Offset returns the number of bytes consumed so far.
func (d *Decoder) Offset() int {
	return d.off
}

// Remaining returns the number of bytes not yet consumed.
func (d *Decoder) Remaining() int {
	return len(d.data) - d.off
}

func (d *Decoder) fail(typ string, err error) error {
	return &domainerrors.DecodeError{Type: typ, Offset: d.off, Err: err}
}

func (d *Decoder) take(typ string, n int) ([]byte, error) {
	if n < 0 || d.Remaining() < n {
		return nil, d.fail(typ, fmt.Errorf("need %d bytes, have %d", n, d.Remaining()))
	}
	b := d.data[d.off : d.off+n]
	d.off += n
	return b, nil
}

// ReadU8 reads a single byte.
func (d *Decoder) ReadU8() (uint8, error) {
	b, err := d.take("u8", U8Size)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

// ReadU16 reads 2 little-endian bytes.
func (d *Decoder) ReadU16() (uint16, error) {
	b, err := d.take("u16", U16Size)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

// ReadU32 reads 4 little-endian bytes.
func (d *Decoder) ReadU32() (uint32, error) {
	b, err := d.take("u32", U32Size)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

// ReadU64 reads 8 little-endian bytes.
func (d *Decoder) ReadU64() (uint64, error) {
	b, err := d.take("u64", U64Size)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

// ReadBool reads a bool; any byte other than 0x00 or 0x01 is a decode error.
func (d *Decoder) ReadBool() (bool, error) {
	start := d.off
	v, err := d.ReadU8()
	if err != nil {
		return false, err
	}
	switch v {
	case 0:
		return false, nil
	case 1:
		return true, nil
	default:
		d.off = start
		return false, d.fail("bool", fmt.Errorf("invalid bool byte 0x%02x", v))
	}
}

// ReadBytes reads a length-prefixed byte sequence. The result is a copy.
// A declared length larger than the remaining input fails without allocating.
func (d *Decoder) ReadBytes() ([]byte, error) {
	n, err := d.ReadU32()
	if err != nil {
		return nil, err
	}
	b, err := d.take("bytes", int(n))
	if err != nil {
		return nil, err
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out, nil
}

// ReadString reads a length-prefixed string.
func (d *Decoder) ReadString() (string, error) {
	n, err := d.ReadU32()
	if err != nil {
		return "", err
	}
	b, err := d.take("string", int(n))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// ReadOption reads an Option tag and reports whether a value follows.
func (d *Decoder) ReadOption() (bool, error) {
	start := d.off
	tag, err := d.ReadU8()
	if err != nil {
		return false, err
	}
	switch tag {
	case 0:
		return false, nil
	case 1:
		return true, nil
	default:
		d.off = start
		return false, d.fail("option", fmt.Errorf("invalid option tag 0x%02x", tag))
	}
}

// Finish fails if any input is left unconsumed.
func (d *Decoder) Finish() error {
	if d.Remaining() != 0 {
		return d.fail("end", fmt.Errorf("%d trailing bytes", d.Remaining()))
	}
	return nil
}

// EncodeU64 encodes a single u64, the request payload of identifier-taking operations.
func EncodeU64(v uint64) []byte {
	return NewEncoder(U64Size).WriteU64(v).Bytes()
}

// DecodeU64 decodes a buffer holding exactly one u64.
func DecodeU64(b []byte) (uint64, error) {
	d := NewDecoder(b)
	v, err := d.ReadU64()
	if err != nil {
		return 0, err
	}
	return v, d.Finish()
}

// EncodeBytes encodes a single length-prefixed byte sequence.
func EncodeBytes(b []byte) []byte {
	return NewEncoder(U32Size + len(b)).WriteBytes(b).Bytes()
}

// DecodeBytes decodes a buffer holding exactly one byte sequence.
func DecodeBytes(b []byte) ([]byte, error) {
	d := NewDecoder(b)
	v, err := d.ReadBytes()
	if err != nil {
		return nil, err
	}
	return v, d.Finish()
}

func errQuoteCount(count uint32, remaining int) error {
	return fmt.Errorf("%d quotes cannot fit in %d bytes", count, remaining)
}
