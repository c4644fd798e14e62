package hostfuncs

import (
	"bytes"
	"fmt"

	domainerrors "github.com/reglet-dev/reglet-oracle/domain/errors"
	"github.com/reglet-dev/reglet-oracle/wireformat"
)

// Empty is the request type of operations without arguments.
type Empty struct{}

// EmptyCodec accepts only an empty input buffer.
var EmptyCodec = Codec[Empty]{
	Decode: func(b []byte) (Empty, error) {
		if len(b) != 0 {
			return Empty{}, &domainerrors.DecodeError{Type: "empty", Err: fmt.Errorf("expected no arguments, got %d bytes", len(b))}
		}
		return Empty{}, nil
	},
	Encode: func(Empty) []byte { return nil },
}

// U64Codec encodes a single little-endian u64.
var U64Codec = Codec[uint64]{
	Decode: wireformat.DecodeU64,
	Encode: wireformat.EncodeU64,
}

// RawCodec passes the bytes through unchanged. The payload operation answers
// with the source bytes as they are, so the output length is the payload length.
var RawCodec = Codec[[]byte]{
	Decode: func(b []byte) ([]byte, error) { return bytes.Clone(b), nil },
	Encode: func(b []byte) []byte { return b },
}

// BytesCodec encodes a single length-prefixed byte sequence.
var BytesCodec = Codec[[]byte]{
	Decode: wireformat.DecodeBytes,
	Encode: wireformat.EncodeBytes,
}
