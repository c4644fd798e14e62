package hostfuncs

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/reglet-dev/reglet-oracle/domain/entities"
	domainerrors "github.com/reglet-dev/reglet-oracle/domain/errors"
)

// Outcome is the result of a dispatch that reached a handler.
// Output is set only when Status is StatusOK.
type Outcome struct {
	Output []byte
	Status entities.StatusCode
}

// Dispatcher is an immutable router from operation ids to handlers for one
// protocol version. Once created via NewDispatcher, handlers cannot be added
// or removed, so lookups are lock-free and the dispatcher is safe for
// concurrent use by many guest instances.
type Dispatcher struct {
	handlers map[entities.OperationID]OperationHandler
	logger   *slog.Logger
	ops      []entities.OperationID // sorted for consistent iteration
	version  entities.ProtocolVersion
}

// dispatcherBuilder accumulates configuration during dispatcher construction.
type dispatcherBuilder struct {
	handlers   map[entities.OperationID]OperationHandler
	logger     *slog.Logger
	bundles    []OperationBundle
	middleware []Middleware
	errors     []error
	version    entities.ProtocolVersion
}

// DispatcherOption is a functional option for configuring a Dispatcher.
type DispatcherOption func(*dispatcherBuilder)

// NewDispatcher creates an immutable Dispatcher with the given options.
// It fails if the protocol version is unknown, if an operation id is
// registered twice, or if an id is outside the version's closed operation set.
//
// Example usage:
//
//	d, err := NewDispatcher(
//	    WithProtocol(entities.ProtocolV2),
//	    WithMiddleware(PanicRecoveryMiddleware()),
//	    WithBundle(OracleBundle(source)),
//	)
func NewDispatcher(opts ...DispatcherOption) (*Dispatcher, error) {
	b := &dispatcherBuilder{
		handlers: make(map[entities.OperationID]OperationHandler),
		version:  entities.DefaultProtocol,
		logger:   slog.Default(),
	}

	for _, opt := range opts {
		opt(b)
	}

	if !b.version.Valid() {
		return nil, fmt.Errorf("unknown protocol version %d", uint32(b.version))
	}

	// Bundles are expanded last so they see the final protocol version.
	for _, bundle := range b.bundles {
		for op, h := range bundle.Handlers(b.version) {
			b.addHandler(op, h)
		}
	}

	if len(b.errors) > 0 {
		return nil, b.errors[0]
	}

	ops := make([]entities.OperationID, 0, len(b.handlers))
	for op := range b.handlers {
		ops = append(ops, op)
	}
	slices.Sort(ops)

	// Apply middleware chain to all handlers (FIFO order)
	wrapped := make(map[entities.OperationID]OperationHandler, len(b.handlers))
	for op, h := range b.handlers {
		w := h
		for i := len(b.middleware) - 1; i >= 0; i-- {
			w = b.middleware[i](w)
		}
		wrapped[op] = w
	}

	return &Dispatcher{
		handlers: wrapped,
		logger:   b.logger,
		ops:      ops,
		version:  b.version,
	}, nil
}

// Dispatch runs operation op with input and an output buffer of the given
// capacity.
//
// It returns a *errors.UnimplementedOperationError for an unregistered id and a
// *errors.BufferTooSmallError when the result does not fit. A handler failure is
// not a Go error: it is reported as a nonzero Status with no output.
// Every call reaches the handler; the dispatcher caches nothing.
func (d *Dispatcher) Dispatch(ctx context.Context, op entities.OperationID, input []byte, capacity uint32) (Outcome, error) {
	handler, ok := d.handlers[op]
	if !ok {
		d.logger.WarnContext(ctx, "hostfuncs: call to unregistered operation",
			"operation", uint32(op), "protocol", d.version.String())
		return Outcome{}, &domainerrors.UnimplementedOperationError{Operation: op, Version: d.version}
	}

	hctx := HostContextFrom(ctx, d.version, op)
	result, err := handler(hctx, input)
	if err != nil {
		status := domainerrors.StatusFor(d.version, err)
		d.logger.DebugContext(ctx, "hostfuncs: operation failed",
			"operation", hctx.OperationName(), "call_id", hctx.CallID(), "status", uint32(status), "error", err)
		return Outcome{Status: status}, nil
	}

	out := NewOutputBuffer(capacity)
	if _, err := out.Write(result); err != nil {
		return Outcome{}, err
	}
	return Outcome{Status: entities.StatusOK, Output: out.Bytes()}, nil
}

// Version returns the protocol version this dispatcher serves.
func (d *Dispatcher) Version() entities.ProtocolVersion {
	return d.version
}

// Has returns true if a handler for op is registered.
func (d *Dispatcher) Has(op entities.OperationID) bool {
	_, ok := d.handlers[op]
	return ok
}

// Operations returns the registered operation ids in ascending order.
func (d *Dispatcher) Operations() []entities.OperationID {
	return slices.Clone(d.ops)
}

// addHandler registers a handler for op.
func (b *dispatcherBuilder) addHandler(op entities.OperationID, h OperationHandler) {
	if h == nil {
		b.errors = append(b.errors, fmt.Errorf("nil handler for operation %d", op))
		return
	}
	if !b.version.Supports(op) {
		b.errors = append(b.errors, fmt.Errorf("operation %d is not part of protocol %s", op, b.version))
		return
	}
	if _, exists := b.handlers[op]; exists {
		b.errors = append(b.errors, fmt.Errorf("duplicate handler for operation %d", op))
		return
	}
	b.handlers[op] = h
}

// WithProtocol selects the protocol version (default: entities.DefaultProtocol).
func WithProtocol(v entities.ProtocolVersion) DispatcherOption {
	return func(b *dispatcherBuilder) {
		b.version = v
	}
}

// WithOperation registers a handler for a single operation id.
// The id is checked against the protocol version when the dispatcher is built.
func WithOperation(op entities.OperationID, h OperationHandler) DispatcherOption {
	return func(b *dispatcherBuilder) {
		b.bundles = append(b.bundles, singleOperation{op: op, handler: h})
	}
}

// WithMiddleware adds middleware to the dispatcher.
// Middleware executes in FIFO order (first added wraps outermost).
func WithMiddleware(mw ...Middleware) DispatcherOption {
	return func(b *dispatcherBuilder) {
		b.middleware = append(b.middleware, mw...)
	}
}

// WithLogger sets the logger used for routing diagnostics.
func WithLogger(l *slog.Logger) DispatcherOption {
	return func(b *dispatcherBuilder) {
		if l != nil {
			b.logger = l
		}
	}
}

// singleOperation is the bundle behind WithOperation.
type singleOperation struct {
	handler OperationHandler
	op      entities.OperationID
}

func (s singleOperation) Handlers(entities.ProtocolVersion) map[entities.OperationID]OperationHandler {
	return map[entities.OperationID]OperationHandler{s.op: s.handler}
}
