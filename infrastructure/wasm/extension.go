//go:build wasip1

package wasm

import (
	"context"
	"encoding/binary"
	"encoding/hex"
	"fmt"

	"github.com/reglet-dev/reglet-oracle/domain/entities"
	domainerrors "github.com/reglet-dev/reglet-oracle/domain/errors"
	"github.com/reglet-dev/reglet-oracle/domain/ports"
	"github.com/reglet-dev/reglet-oracle/internal/abi"
	_ "github.com/reglet-dev/reglet-oracle/log"
)

// Compile-time interface compliance checks
var (
	_ ports.Extension     = (*ExtensionAdapter)(nil)
	_ ports.StorageReader = (*StorageAdapter)(nil)
)

// ExtensionAdapter implements ports.Extension over call_chain_extension.
type ExtensionAdapter struct{}

// NewExtensionAdapter creates an extension adapter.
func NewExtensionAdapter() *ExtensionAdapter {
	return &ExtensionAdapter{}
}

// ProtocolVersion asks the host which protocol it serves.
func (a *ExtensionAdapter) ProtocolVersion(context.Context) (entities.ProtocolVersion, error) {
	return entities.ProtocolVersion(host_protocol_version()), nil
}

// Call performs one extension call with an output buffer of capacity bytes.
func (a *ExtensionAdapter) Call(_ context.Context, op entities.OperationID, input []byte, capacity uint32) (ports.CallResult, error) {
	var inPtr uint32
	if len(input) > 0 {
		packed := abi.PtrFromBytes(input)
		defer abi.DeallocatePacked(packed)
		inPtr, _ = abi.UnpackPtrLen(packed)
	}

	outPtr, out := abi.Alloc(capacity)
	defer abi.Free(outPtr)
	lenPtr, lenCell := abi.Alloc(4)
	defer abi.Free(lenPtr)
	binary.LittleEndian.PutUint32(lenCell, capacity)

	packed := host_call_chain_extension(uint32(op), inPtr, uint32(len(input)), outPtr, lenPtr) //nolint:gosec // G115: inputs are far below 4GiB
	transport, status := entities.UnpackResult(packed)
	n := binary.LittleEndian.Uint32(lenCell)

	res := ports.CallResult{Transport: transport, Status: status}
	switch transport {
	case entities.TransportBufferTooSmall:
		res.Required = n
	case entities.TransportOK:
		if n > capacity {
			return ports.CallResult{}, fmt.Errorf("host wrote %d bytes into a %d byte buffer", n, capacity)
		}
		res.Output = append([]byte(nil), out[:n]...)
	}
	return res, nil
}

// StorageAdapter implements ports.StorageReader over get_storage. A value
// larger than the buffer is retried once with the size the host reports, up
// to the adapter's maximum capacity.
type StorageAdapter struct {
	config storageConfig
}

// NewStorageAdapter creates a storage adapter. A zero capacity selects
// DefaultStorageCapacity.
func NewStorageAdapter(capacity uint32, opts ...StorageOption) *StorageAdapter {
	return &StorageAdapter{config: newStorageConfig(capacity, opts)}
}

// ReadStorage reads the value stored under key.
func (s *StorageAdapter) ReadStorage(_ context.Context, key []byte) ([]byte, bool, error) {
	keyPacked := abi.PtrFromBytes(key)
	defer abi.DeallocatePacked(keyPacked)
	keyPtr, keyLen := abi.UnpackPtrLen(keyPacked)

	capacity := s.config.capacity
	for attempt := 0; attempt < 2; attempt++ {
		value, code, n := readOnce(keyPtr, keyLen, capacity)
		switch code {
		case entities.StorageFound:
			return value, true, nil
		case entities.StorageNotFound:
			return nil, false, nil
		case entities.StorageBufferTooSmall:
			next, err := nextCapacity(capacity, n, s.config.maxCapacity)
			if err != nil {
				return nil, false, storageError(key, err)
			}
			capacity = next
			continue
		default:
			return nil, false, storageError(key, fmt.Errorf("get_storage returned %d", code))
		}
	}
	return nil, false, storageError(key, fmt.Errorf("value still exceeds %d bytes", capacity))
}

func readOnce(keyPtr, keyLen, capacity uint32) ([]byte, entities.StorageReadCode, uint32) {
	outPtr, out := abi.Alloc(capacity)
	defer abi.Free(outPtr)
	lenPtr, lenCell := abi.Alloc(4)
	defer abi.Free(lenPtr)
	binary.LittleEndian.PutUint32(lenCell, capacity)

	code := entities.StorageReadCode(host_get_storage(keyPtr, keyLen, outPtr, lenPtr))
	n := binary.LittleEndian.Uint32(lenCell)
	if code != entities.StorageFound {
		return nil, code, n
	}
	if n > capacity {
		return nil, entities.StorageReadFailed, n
	}
	return append([]byte(nil), out[:n]...), code, n
}

func storageError(key []byte, err error) error {
	return &domainerrors.StorageError{Backend: "host", Key: "0x" + hex.EncodeToString(key), Err: err}
}
