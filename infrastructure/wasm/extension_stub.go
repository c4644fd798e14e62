//go:build !wasip1

package wasm

import (
	"context"

	"github.com/reglet-dev/reglet-oracle/domain/entities"
	"github.com/reglet-dev/reglet-oracle/domain/ports"
)

// ExtensionAdapter stub for native builds.
type ExtensionAdapter struct{}

func NewExtensionAdapter() *ExtensionAdapter {
	return &ExtensionAdapter{}
}

func (a *ExtensionAdapter) ProtocolVersion(context.Context) (entities.ProtocolVersion, error) {
	panic("WASM extension adapter not available in native build")
}

func (a *ExtensionAdapter) Call(context.Context, entities.OperationID, []byte, uint32) (ports.CallResult, error) {
	panic("WASM extension adapter not available in native build")
}

// StorageAdapter stub for native builds.
type StorageAdapter struct{}

func NewStorageAdapter(uint32, ...StorageOption) *StorageAdapter {
	return &StorageAdapter{}
}

func (s *StorageAdapter) ReadStorage(context.Context, []byte) ([]byte, bool, error) {
	panic("WASM storage adapter not available in native build")
}
