package hostfuncs

import (
	"context"
	"errors"
	"fmt"

	"github.com/reglet-dev/reglet-oracle/domain/entities"
	domainerrors "github.com/reglet-dev/reglet-oracle/domain/errors"
	"github.com/reglet-dev/reglet-oracle/domain/ports"
)

// OperationBundle is a pre-configured set of related operation handlers.
// Handlers is called once per dispatcher with the dispatcher's protocol
// version, so a bundle can lay out the same behavior under different ids.
type OperationBundle interface {
	Handlers(v entities.ProtocolVersion) map[entities.OperationID]OperationHandler
}

// WithBundle registers all handlers from a bundle.
func WithBundle(bundle OperationBundle) DispatcherOption {
	return func(b *dispatcherBuilder) {
		b.bundles = append(b.bundles, bundle)
	}
}

// WithHandler registers a typed operation with explicit request and response codecs.
//
// Example usage:
//
//	WithHandler(entities.OpRequestedOffchainData, U64Codec, RawCodec,
//	    func(ctx context.Context, id uint64) ([]byte, error) {
//	        return []byte{0xde, 0xad}, nil
//	    })
func WithHandler[Req any, Resp any](op entities.OperationID, req Codec[Req], resp Codec[Resp], fn HostFunc[Req, Resp]) DispatcherOption {
	return WithOperation(op, NewCodecHandler(req, resp, fn))
}

// oracleBundle exposes a DataSource through the oracle operations.
type oracleBundle struct {
	source ports.DataSource
	name   string
}

// OracleBundle returns a bundle serving the oracle operations from source:
// requested_offchain_data in every version and current_data_id in ProtocolV2.
// Source failures are wrapped in *errors.SourceError and reported with the
// version's read failure status.
func OracleBundle(source ports.DataSource) OperationBundle {
	return &oracleBundle{source: source, name: sourceName(source)}
}

func (b *oracleBundle) Handlers(v entities.ProtocolVersion) map[entities.OperationID]OperationHandler {
	handlers := make(map[entities.OperationID]OperationHandler, 2)

	if op, ok := v.PayloadOperation(); ok {
		handlers[op] = NewCodecHandler(U64Codec, RawCodec, b.fetch)
	}
	if op, ok := v.CurrentIDOperation(); ok {
		handlers[op] = NewCodecHandler(EmptyCodec, U64Codec, b.currentID)
	}
	return handlers
}

func (b *oracleBundle) fetch(ctx context.Context, id uint64) ([]byte, error) {
	data, err := b.source.Fetch(ctx, id)
	if err != nil {
		return nil, b.wrap(err, id)
	}
	return data, nil
}

func (b *oracleBundle) currentID(ctx context.Context, _ Empty) (uint64, error) {
	id, err := b.source.CurrentDataID(ctx)
	if err != nil {
		return 0, b.wrap(err, 0)
	}
	return id, nil
}

// wrap labels err with the source unless the source already did.
func (b *oracleBundle) wrap(err error, id uint64) error {
	var se *domainerrors.SourceError
	if errors.As(err, &se) {
		return err
	}
	return &domainerrors.SourceError{Err: err, Source: b.name, DataID: id}
}

// compositeBundle combines multiple bundles into one.
// Later bundles override earlier ones for the same operation id.
type compositeBundle struct {
	bundles []OperationBundle
}

// CombineBundles returns a bundle containing the handlers of all given bundles.
func CombineBundles(bundles ...OperationBundle) OperationBundle {
	return &compositeBundle{bundles: bundles}
}

func (b *compositeBundle) Handlers(v entities.ProtocolVersion) map[entities.OperationID]OperationHandler {
	result := make(map[entities.OperationID]OperationHandler)
	for _, bundle := range b.bundles {
		for op, handler := range bundle.Handlers(v) {
			result[op] = handler
		}
	}
	return result
}

// sourceName labels a data source in errors and logs.
func sourceName(source ports.DataSource) string {
	if n, ok := source.(interface{ Name() string }); ok {
		return n.Name()
	}
	return fmt.Sprintf("%T", source)
}
