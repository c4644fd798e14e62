package ports

import (
	"context"

	"github.com/reglet-dev/reglet-oracle/domain/entities"
)

// CallResult is the raw outcome of one extension call as seen by the guest.
type CallResult struct {
	// Output holds the result payload; meaningful only when Transport is
	// TransportOK and Status is StatusOK.
	Output []byte

	// Required is the needed output size when Transport is TransportBufferTooSmall.
	Required uint32

	Transport entities.TransportCode
	Status    entities.StatusCode
}

// Extension is the guest's view of the host extension call surface.
type Extension interface {
	// ProtocolVersion returns the version the host serves.
	ProtocolVersion(ctx context.Context) (entities.ProtocolVersion, error)

	// Call performs one synchronous extension call. capacity is the size of
	// the output buffer the guest provides.
	Call(ctx context.Context, op entities.OperationID, input []byte, capacity uint32) (CallResult, error)
}
