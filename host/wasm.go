package host

import (
	"context"
	"fmt"

	oraclewazero "github.com/reglet-dev/reglet-oracle/infrastructure/wazero"
)

// Call invokes a contract entry point. An empty input calls the export with
// no arguments; otherwise the input is copied into contract memory and passed
// as (ptr, len). The export returns a packed ptr/len result, which is copied
// out and released through the contract's deallocate export when present.
func (i *Instance) Call(ctx context.Context, export string, input []byte) ([]byte, error) {
	ctx = oraclewazero.WithContractName(ctx, i.name)

	packed, err := i.callRaw(ctx, export, input)
	if err != nil {
		return nil, err
	}

	ptr, length := oraclewazero.UnpackPtrLen(packed)
	if ptr == 0 || length == 0 {
		return nil, nil
	}
	data, ok := i.module.Memory().Read(ptr, length)
	if !ok {
		return nil, fmt.Errorf("failed to read %s result from memory", export)
	}
	out := append([]byte(nil), data...)

	if dealloc := i.module.ExportedFunction("deallocate"); dealloc != nil {
		if _, err := dealloc.Call(ctx, uint64(ptr), uint64(length)); err != nil {
			i.logger.WarnContext(ctx, "host: failed to release result memory", "export", export, "error", err)
		}
	}
	return out, nil
}

func (i *Instance) callRaw(ctx context.Context, name string, input []byte) (uint64, error) {
	f := i.module.ExportedFunction(name)
	if f == nil {
		return 0, fmt.Errorf("export %q not found", name)
	}

	var results []uint64
	var err error

	if len(input) == 0 {
		results, err = f.Call(ctx)
	} else {
		allocate := i.module.ExportedFunction("allocate")
		if allocate == nil {
			return 0, fmt.Errorf("contract does not export 'allocate'")
		}
		resAlloc, errAlloc := allocate.Call(ctx, uint64(len(input)))
		if errAlloc != nil {
			return 0, fmt.Errorf("failed to allocate in contract: %w", errAlloc)
		}
		if len(resAlloc) == 0 {
			return 0, fmt.Errorf("allocate returned no results")
		}
		ptr := uint32(resAlloc[0]) //nolint:gosec // G115: WASM32 pointers are always 32-bit
		if !i.module.Memory().Write(ptr, input) {
			return 0, fmt.Errorf("failed to write input to contract memory")
		}
		results, err = f.Call(ctx, uint64(ptr), uint64(len(input)))
	}

	if err != nil {
		return 0, fmt.Errorf("call %s: %w", name, err)
	}
	if len(results) == 0 {
		return 0, nil
	}
	return results[0], nil
}
