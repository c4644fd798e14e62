//go:build wasip1

package main

import (
	"context"
	"log/slog"

	"github.com/reglet-dev/reglet-oracle/infrastructure/wasm"
	"github.com/reglet-dev/reglet-oracle/internal/abi"
	"github.com/reglet-dev/reglet-oracle/internal/wasmcontext"
)

const contractName = "get-prices"

var c = &contract{
	ext:     wasm.NewExtensionAdapter(),
	storage: wasm.NewStorageAdapter(wasm.DefaultStorageCapacity),
}

// enter sets the execution context for one export call.
func enter() context.Context {
	ctx := context.WithValue(context.Background(), wasmcontext.ContractKey, contractName)
	wasmcontext.SetCurrentContext(ctx)
	return ctx
}

// must traps the contract on failure, returning the host the packed result
// otherwise.
func must(ctx context.Context, export string, out []byte, err error) uint64 {
	if err != nil {
		slog.ErrorContext(ctx, "get-prices: export failed", "export", export, "error", err)
		panic(export + ": " + err.Error())
	}
	return abi.PtrFromBytes(out)
}

//go:wasmexport requested_offchain_data
func requestedOffchainData(ptr, length uint32) uint64 {
	ctx := enter()
	defer wasmcontext.ResetContext()

	packed := abi.PackPtrLen(ptr, length)
	input := abi.BytesFromPtr(packed)
	abi.DeallocatePacked(packed)

	out, err := c.requestedOffchainData(ctx, input)
	return must(ctx, "requested_offchain_data", out, err)
}

//go:wasmexport current_data_id
func currentDataID() uint64 {
	ctx := enter()
	defer wasmcontext.ResetContext()

	out, err := c.currentDataID(ctx)
	return must(ctx, "current_data_id", out, err)
}

//go:wasmexport stored_prices
func storedPrices() uint64 {
	ctx := enter()
	defer wasmcontext.ResetContext()

	out, err := c.storedPrices(ctx)
	return must(ctx, "stored_prices", out, err)
}

//go:wasmexport get_prices
func getPrices() uint64 {
	ctx := enter()
	defer wasmcontext.ResetContext()

	return abi.PtrFromBytes(c.getPrices(ctx))
}
