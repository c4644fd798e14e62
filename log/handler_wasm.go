//go:build wasip1

package log

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/reglet-dev/reglet-oracle/internal/abi"
)

//go:wasmimport oracle_ext debug_message
//nolint:revive // intentional snake_case to match WASM import convention
func host_debug_message(ptr, length uint32)

// Handle serializes a slog.Record and sends it to the host.
func (h *WasmLogHandler) Handle(ctx context.Context, record slog.Record) error {
	payload, err := h.encode(ctx, record)
	if err != nil {
		// Fallback to println if marshaling fails.
		fmt.Printf("oracle: failed to marshal log message for host: %v, original: %s\n", err, record.Message)
		return nil
	}

	packed := abi.PtrFromBytes(payload)
	defer abi.DeallocatePacked(packed)
	ptr, length := abi.UnpackPtrLen(packed)
	host_debug_message(ptr, length)
	return nil
}

// init configures the default slog handler to use our WasmLogHandler.
func init() {
	slog.SetDefault(slog.New(NewHandler()))
}
