package hostfuncs

import (
	"context"

	"github.com/google/uuid"

	"github.com/reglet-dev/reglet-oracle/domain/entities"
)

// HostContext wraps a standard context.Context with dispatch-specific helpers.
// It exposes the invoked operation to middleware and lets middleware store
// call-scoped values without polluting the standard context.
type HostContext interface {
	context.Context

	// Operation returns the id of the operation being dispatched.
	Operation() entities.OperationID

	// Version returns the protocol version of the dispatcher.
	Version() entities.ProtocolVersion

	// OperationName returns a stable label for the operation.
	OperationName() string

	// CallID returns a unique identifier of this dispatch call.
	CallID() string

	// SetValue stores a call-scoped value. Unlike context.WithValue,
	// this mutates the existing HostContext.
	SetValue(key, value any)

	// GetValue retrieves a call-scoped value set by SetValue.
	GetValue(key any) (value any, ok bool)
}

type hostContext struct {
	context.Context
	values  map[any]any
	callID  string
	op      entities.OperationID
	version entities.ProtocolVersion
}

// NewHostContext creates a new HostContext wrapping ctx with a fresh call id.
func NewHostContext(ctx context.Context, v entities.ProtocolVersion, op entities.OperationID) HostContext {
	return &hostContext{
		Context: ctx,
		op:      op,
		version: v,
		callID:  uuid.NewString(),
		values:  make(map[any]any),
	}
}

func (c *hostContext) Operation() entities.OperationID {
	return c.op
}

func (c *hostContext) Version() entities.ProtocolVersion {
	return c.version
}

func (c *hostContext) OperationName() string {
	return c.version.OperationName(c.op)
}

func (c *hostContext) CallID() string {
	return c.callID
}

func (c *hostContext) SetValue(key, value any) {
	c.values[key] = value
}

func (c *hostContext) GetValue(key any) (any, bool) {
	v, ok := c.values[key]
	return v, ok
}

// HostContextFrom returns ctx if it already is a HostContext for op, otherwise
// a new HostContext wrapping it.
func HostContextFrom(ctx context.Context, v entities.ProtocolVersion, op entities.OperationID) HostContext {
	if hc, ok := ctx.(HostContext); ok && hc.Operation() == op && hc.Version() == v {
		return hc
	}
	return NewHostContext(ctx, v, op)
}
