package storagekey

import (
	"context"
	"encoding/hex"
	"errors"

	domainerrors "github.com/reglet-dev/reglet-oracle/domain/errors"
	"github.com/reglet-dev/reglet-oracle/domain/ports"
)

// DecodeFunc turns stored bytes into a typed value.
type DecodeFunc[T any] func([]byte) (T, error)

// LookupDetailed reads key through reader and decodes the value.
// It distinguishes the failure causes: domainerrors.ErrStorageNotFound for a
// missing key, a *domainerrors.DecodeError for bytes that do not decode, and
// the reader's own error (wrapped) otherwise.
func LookupDetailed[T any](ctx context.Context, reader ports.StorageReader, key []byte, decode DecodeFunc[T]) (T, error) {
	var zero T

	raw, found, err := reader.ReadStorage(ctx, key)
	if err != nil {
		var se *domainerrors.StorageError
		if errors.As(err, &se) {
			return zero, err
		}
		return zero, &domainerrors.StorageError{Backend: "reader", Key: hexKey(key), Err: err}
	}
	if !found {
		return zero, domainerrors.ErrStorageNotFound
	}

	v, err := decode(raw)
	if err != nil {
		var de *domainerrors.DecodeError
		if errors.As(err, &de) {
			return zero, err
		}
		return zero, &domainerrors.DecodeError{Type: "storage_value", Err: err}
	}
	return v, nil
}

// Lookup is the best-effort read path: a missing key, a reader failure and a
// decode failure all yield (zero, false). Use LookupDetailed to tell them apart.
func Lookup[T any](ctx context.Context, reader ports.StorageReader, key []byte, decode DecodeFunc[T]) (T, bool) {
	v, err := LookupDetailed(ctx, reader, key, decode)
	if err != nil {
		var zero T
		return zero, false
	}
	return v, true
}

func hexKey(key []byte) string {
	return "0x" + hex.EncodeToString(key)
}
