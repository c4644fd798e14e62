package ports

import (
	"context"
)

// StorageReader reads raw bytes from the host's key-addressed storage.
// A missing key is reported as (nil, false, nil); errors are reserved for
// failures of the reader itself.
type StorageReader interface {
	ReadStorage(ctx context.Context, key []byte) ([]byte, bool, error)
}

// StorageWriter writes raw bytes to the host's storage. Only host-side
// components (the feeder) write; the retrieval core never does.
type StorageWriter interface {
	WriteStorage(ctx context.Context, key []byte, value []byte) error
}

// StorageReaderFunc adapts a function to StorageReader.
type StorageReaderFunc func(ctx context.Context, key []byte) ([]byte, bool, error)

// ReadStorage implements StorageReader.
func (f StorageReaderFunc) ReadStorage(ctx context.Context, key []byte) ([]byte, bool, error) {
	return f(ctx, key)
}
