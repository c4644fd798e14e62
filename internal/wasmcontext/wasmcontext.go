// Package wasmcontext carries the contract execution context across the WASM
// boundary. Guest log lines embed it so the host can correlate them with
// the extension call in flight.
package wasmcontext

import (
	stdcontext "context"
	"sync"

	"github.com/reglet-dev/reglet-oracle/domain/entities"
)

// contextKey is a type alias for context value keys to avoid collisions.
type contextKey string

// Context keys understood by ContextToWire and WireToContext.
const (
	CallIDKey   contextKey = "call_id"
	ContractKey contextKey = "contract"
)

// contextStore holds the context of the contract entry point being executed.
// WASM guests are single-threaded; the lock keeps native test builds honest.
var contextStore = struct {
	ctx stdcontext.Context
	sync.RWMutex
}{
	ctx: stdcontext.Background(),
}

// SetCurrentContext sets the current execution context.
//
// Contract entry points call this on entry so that code without a context
// parameter (the slog default handler) can still reach it.
func SetCurrentContext(ctx stdcontext.Context) {
	contextStore.Lock()
	defer contextStore.Unlock()
	contextStore.ctx = ctx
}

// GetCurrentContext returns the current execution context, or
// context.Background() when none has been set.
func GetCurrentContext() stdcontext.Context {
	contextStore.RLock()
	defer contextStore.RUnlock()
	if contextStore.ctx == nil {
		return stdcontext.Background()
	}
	return contextStore.ctx
}

// ResetContext resets the global context to background. Entry points defer it.
func ResetContext() {
	SetCurrentContext(stdcontext.Background())
}

// ContextToWire extracts the deadline, call id and contract name from ctx.
func ContextToWire(ctx stdcontext.Context) entities.ContextWire {
	wire := entities.ContextWire{}

	if deadline, ok := ctx.Deadline(); ok {
		wire.Deadline = &deadline
	}
	if id, ok := ctx.Value(CallIDKey).(string); ok {
		wire.CallID = id
	}
	if name, ok := ctx.Value(ContractKey).(string); ok {
		wire.Contract = name
	}
	return wire
}

// WireToContext rebuilds a context from its wire form.
//
// If parent is nil, context.Background() is used.
// Returns the new context and its CancelFunc.
func WireToContext(parent stdcontext.Context, wire entities.ContextWire) (stdcontext.Context, stdcontext.CancelFunc) {
	if parent == nil {
		parent = stdcontext.Background()
	}

	ctx := parent
	var cancel stdcontext.CancelFunc
	if wire.Deadline != nil {
		ctx, cancel = stdcontext.WithDeadline(ctx, *wire.Deadline)
	} else {
		ctx, cancel = stdcontext.WithCancel(ctx)
	}

	if wire.CallID != "" {
		ctx = stdcontext.WithValue(ctx, CallIDKey, wire.CallID)
	}
	if wire.Contract != "" {
		ctx = stdcontext.WithValue(ctx, ContractKey, wire.Contract)
	}
	return ctx, cancel
}
