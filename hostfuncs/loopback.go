package hostfuncs

import (
	"context"
	"errors"

	"github.com/reglet-dev/reglet-oracle/domain/entities"
	domainerrors "github.com/reglet-dev/reglet-oracle/domain/errors"
	"github.com/reglet-dev/reglet-oracle/domain/ports"
)

// TransportFor maps a Dispatch error to the transport code reported next to
// the status, and the required size for TransportBufferTooSmall.
// ok is false for errors that have no transport code.
func TransportFor(err error) (code entities.TransportCode, required uint32, ok bool) {
	if err == nil {
		return entities.TransportOK, 0, true
	}
	var tooSmall *domainerrors.BufferTooSmallError
	if errors.As(err, &tooSmall) {
		return entities.TransportBufferTooSmall, tooSmall.Required, true
	}
	var unimpl *domainerrors.UnimplementedOperationError
	if errors.As(err, &unimpl) {
		return entities.TransportUnimplementedOperation, 0, true
	}
	return 0, 0, false
}

// LoopbackExtension serves ports.Extension directly from a Dispatcher, without
// a WASM boundary. Hosts embedding Go guests and tests use it.
type LoopbackExtension struct {
	dispatcher *Dispatcher
}

var _ ports.Extension = (*LoopbackExtension)(nil)

// NewLoopbackExtension creates a LoopbackExtension over d.
func NewLoopbackExtension(d *Dispatcher) *LoopbackExtension {
	return &LoopbackExtension{dispatcher: d}
}

// ProtocolVersion implements ports.Extension.
func (l *LoopbackExtension) ProtocolVersion(context.Context) (entities.ProtocolVersion, error) {
	return l.dispatcher.Version(), nil
}

// Call implements ports.Extension.
func (l *LoopbackExtension) Call(ctx context.Context, op entities.OperationID, input []byte, capacity uint32) (ports.CallResult, error) {
	out, err := l.dispatcher.Dispatch(ctx, op, input, capacity)
	transport, required, ok := TransportFor(err)
	if !ok {
		return ports.CallResult{}, err
	}
	return ports.CallResult{
		Output:    out.Output,
		Required:  required,
		Transport: transport,
		Status:    out.Status,
	}, nil
}
