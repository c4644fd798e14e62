package hostfuncs

import (
	"context"
	"errors"

	domainerrors "github.com/reglet-dev/reglet-oracle/domain/errors"
)

// ErrNoEncoder is returned by handlers whose response codec has no encoder.
var ErrNoEncoder = errors.New("no response encoder")

// OperationHandler handles one extension operation: it receives the raw input
// buffer and returns the raw result bytes. A returned error becomes a nonzero
// status code (see errors.StatusFor); it never reaches the guest as bytes.
type OperationHandler func(ctx context.Context, input []byte) ([]byte, error)

// HostFunc is a typed operation implementation.
type HostFunc[Req any, Resp any] func(context.Context, Req) (Resp, error)

// Codec converts between wire bytes and a typed value.
type Codec[T any] struct {
	Decode func([]byte) (T, error)
	Encode func(T) []byte
}

// NewCodecHandler wraps a typed HostFunc into an OperationHandler.
// Request decoding failures are returned unchanged, so a *errors.DecodeError
// maps to the invalid-input status.
//
// Usage:
//
//	handler := hostfuncs.NewCodecHandler(U64Codec, BytesCodec,
//	    func(ctx context.Context, id uint64) ([]byte, error) {
//	        return source.Fetch(ctx, id)
//	    })
func NewCodecHandler[Req any, Resp any](req Codec[Req], resp Codec[Resp], fn HostFunc[Req, Resp]) OperationHandler {
	return func(ctx context.Context, input []byte) ([]byte, error) {
		r, err := req.Decode(input)
		if err != nil {
			return nil, err
		}

		out, err := fn(ctx, r)
		if err != nil {
			return nil, err
		}

		if resp.Encode == nil {
			return nil, &domainerrors.EncodeError{Type: "response", Err: ErrNoEncoder}
		}
		return resp.Encode(out), nil
	}
}
