package guest

import (
	"context"
	"fmt"

	"github.com/reglet-dev/reglet-oracle/domain/entities"
	domainerrors "github.com/reglet-dev/reglet-oracle/domain/errors"
	"github.com/reglet-dev/reglet-oracle/domain/ports"
	"github.com/reglet-dev/reglet-oracle/wireformat"
)

// DefaultCapacity is the output buffer a Client offers per call (16KiB).
const DefaultCapacity uint32 = 16 * 1024

type clientConfig struct {
	version     entities.ProtocolVersion
	explicit    bool
	capacity    uint32
	maxCapacity uint32
}

// Option configures a Client.
type Option func(*clientConfig)

// WithProtocol pins the protocol version. Negotiate fails when the host serves
// a different one.
func WithProtocol(v entities.ProtocolVersion) Option {
	return func(c *clientConfig) {
		c.version = v
		c.explicit = true
	}
}

// WithCapacity sets the output buffer size offered per call.
func WithCapacity(n uint32) Option {
	return func(c *clientConfig) {
		c.capacity = n
	}
}

// WithCapacityRetry re-issues a call once with the size the host asked for
// when the output did not fit, as long as that size is at most limit.
func WithCapacityRetry(limit uint32) Option {
	return func(c *clientConfig) {
		c.maxCapacity = limit
	}
}

// Client issues oracle extension calls. Calls are synchronous and carry no
// timeout of their own.
type Client struct {
	ext         ports.Extension
	version     entities.ProtocolVersion
	capacity    uint32
	maxCapacity uint32
}

func buildConfig(opts []Option) clientConfig {
	cfg := clientConfig{version: entities.DefaultProtocol, capacity: DefaultCapacity}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// New creates a Client that assumes the configured version (default
// entities.DefaultProtocol) without asking the host.
func New(ext ports.Extension, opts ...Option) (*Client, error) {
	cfg := buildConfig(opts)
	if !cfg.version.Valid() {
		return nil, fmt.Errorf("unknown protocol version %s", cfg.version)
	}
	return newClient(ext, cfg.version, cfg), nil
}

// Negotiate asks ext for its protocol version and creates a Client for it.
// It fails with *errors.VersionMismatchError when the host version is unknown
// or differs from one set with WithProtocol.
func Negotiate(ctx context.Context, ext ports.Extension, opts ...Option) (*Client, error) {
	cfg := buildConfig(opts)

	host, err := ext.ProtocolVersion(ctx)
	if err != nil {
		return nil, err
	}
	if !host.Valid() || (cfg.explicit && cfg.version != host) {
		return nil, &domainerrors.VersionMismatchError{Guest: cfg.version, Host: host}
	}
	return newClient(ext, host, cfg), nil
}

func newClient(ext ports.Extension, v entities.ProtocolVersion, cfg clientConfig) *Client {
	return &Client{ext: ext, version: v, capacity: cfg.capacity, maxCapacity: cfg.maxCapacity}
}

// Version returns the protocol version the client speaks.
func (c *Client) Version() entities.ProtocolVersion {
	return c.version
}

// RequestedOffchainData fetches the payload the host holds for id. The result
// is the source's bytes, unframed.
func (c *Client) RequestedOffchainData(ctx context.Context, id entities.DataID) ([]byte, error) {
	op, _ := c.version.PayloadOperation()
	return c.Call(ctx, op, wireformat.EncodeU64(id))
}

// CurrentDataID fetches the identifier the host currently serves.
// ProtocolV1 has no such operation; the call fails locally.
func (c *Client) CurrentDataID(ctx context.Context) (entities.DataID, error) {
	op, ok := c.version.CurrentIDOperation()
	if !ok {
		return 0, &domainerrors.UnimplementedOperationError{Operation: entities.OpCurrentDataID, Version: c.version}
	}
	out, err := c.Call(ctx, op, nil)
	if err != nil {
		return 0, err
	}
	return wireformat.DecodeU64(out)
}

// Call performs one raw extension call and returns the result bytes on
// success. A failure status maps through errors.FromStatusCode and any bytes
// that came with it are dropped.
func (c *Client) Call(ctx context.Context, op entities.OperationID, input []byte) ([]byte, error) {
	if !c.version.Supports(op) {
		return nil, &domainerrors.UnimplementedOperationError{Operation: op, Version: c.version}
	}

	capacity := c.capacity
	res, err := c.ext.Call(ctx, op, input, capacity)
	if err != nil {
		return nil, err
	}

	if res.Transport == entities.TransportBufferTooSmall && res.Required <= c.maxCapacity && res.Required > capacity {
		capacity = res.Required
		res, err = c.ext.Call(ctx, op, input, capacity)
		if err != nil {
			return nil, err
		}
	}

	switch res.Transport {
	case entities.TransportOK:
	case entities.TransportBufferTooSmall:
		return nil, &domainerrors.BufferTooSmallError{Required: res.Required, Capacity: capacity}
	case entities.TransportUnimplementedOperation:
		return nil, &domainerrors.UnimplementedOperationError{Operation: op, Version: c.version}
	default:
		return nil, &domainerrors.TransportError{Transport: res.Transport}
	}

	if err := domainerrors.FromStatusCode(c.version, res.Status); err != nil {
		return nil, err
	}
	return res.Output, nil
}
