package wazero

import (
	"context"

	"github.com/tetratelabs/wazero/api"
)

// contextKey is a private type for context keys.
type contextKey struct {
	name string
}

var contractNameKey = &contextKey{name: "contract_name"}

// WithContractName adds the calling contract's name to the context.
// Replayed debug messages are tagged with it.
func WithContractName(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, contractNameKey, name)
}

// ContractNameFromContext retrieves the contract name from the context.
func ContractNameFromContext(ctx context.Context) (string, bool) {
	name, ok := ctx.Value(contractNameKey).(string)
	return name, ok && name != ""
}

// ContractName extracts the contract name from context, falling back to the module name.
func ContractName(ctx context.Context, mod api.Module) string {
	if name, ok := ContractNameFromContext(ctx); ok {
		return name
	}
	return mod.Name()
}
