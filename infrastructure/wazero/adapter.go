package wazero

import (
	"context"
	"log/slog"

	"github.com/reglet-dev/reglet-oracle/domain/entities"
	"github.com/reglet-dev/reglet-oracle/domain/ports"
	"github.com/reglet-dev/reglet-oracle/hostfuncs"
	sdklog "github.com/reglet-dev/reglet-oracle/log"
	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
)

// DefaultModuleName is the import module the guest links against.
const DefaultModuleName = "oracle_ext"

// Import names exported by the host module.
const (
	FuncProtocolVersion    = "protocol_version"
	FuncCallChainExtension = "call_chain_extension"
	FuncGetStorage         = "get_storage"
	FuncDebugMessage       = "debug_message"
)

// maxStorageKeySize bounds the key read by get_storage. Map keys are the
// longest keys the retrieval core derives.
const maxStorageKeySize = 256

// AdapterConfig holds configuration for the wazero adapter.
type AdapterConfig struct {
	// Storage serves get_storage. When nil every read reports StorageReadFailed.
	Storage ports.StorageReader

	// Logger receives adapter diagnostics and replayed guest debug messages.
	Logger *slog.Logger

	// ModuleName is the host module name (default: "oracle_ext").
	ModuleName string

	// CustomHandlers adds imports beyond the four oracle functions.
	CustomHandlers []CustomHandler

	// MaxRequestSize limits the size of an extension call input read from
	// guest memory. Default is 1MB.
	MaxRequestSize uint32
}

// CustomHandler represents an additional wazero import.
type CustomHandler struct {
	// Name is the exported function name.
	Name string

	// Handler is the wazero GoModuleFunc implementation.
	Handler api.GoModuleFunc

	// ParamTypes are the WASM parameter types.
	ParamTypes []api.ValueType

	// ResultTypes are the WASM result types.
	ResultTypes []api.ValueType
}

// AdapterOption configures the adapter.
type AdapterOption func(*AdapterConfig)

// WithModuleName sets the host module name (default: "oracle_ext").
func WithModuleName(name string) AdapterOption {
	return func(c *AdapterConfig) {
		c.ModuleName = name
	}
}

// WithMaxRequestSize sets the maximum request size from guest memory.
func WithMaxRequestSize(size uint32) AdapterOption {
	return func(c *AdapterConfig) {
		c.MaxRequestSize = size
	}
}

// WithStorage sets the reader behind get_storage.
func WithStorage(r ports.StorageReader) AdapterOption {
	return func(c *AdapterConfig) {
		c.Storage = r
	}
}

// WithLogger sets the adapter logger.
func WithLogger(l *slog.Logger) AdapterOption {
	return func(c *AdapterConfig) {
		if l != nil {
			c.Logger = l
		}
	}
}

// WithCustomHandler adds a custom wazero handler.
func WithCustomHandler(h CustomHandler) AdapterOption {
	return func(c *AdapterConfig) {
		c.CustomHandlers = append(c.CustomHandlers, h)
	}
}

// defaultAdapterConfig returns the default adapter configuration.
func defaultAdapterConfig() AdapterConfig {
	return AdapterConfig{
		ModuleName:     DefaultModuleName,
		MaxRequestSize: hostfuncs.DefaultMaxRequestSize,
		Logger:         slog.Default(),
	}
}

// memory is the part of api.Memory the host functions touch.
type memory interface {
	Read(offset, byteCount uint32) ([]byte, bool)
	Write(offset uint32, v []byte) bool
	ReadUint32Le(offset uint32) (uint32, bool)
	WriteUint32Le(offset, v uint32) bool
}

var _ memory = api.Memory(nil)

// hostModule implements the oracle imports over a guest memory.
type hostModule struct {
	dispatcher *hostfuncs.Dispatcher
	cfg        AdapterConfig
}

// RegisterWithRuntime instantiates the oracle host module in runtime. The
// guest imports protocol_version, call_chain_extension, get_storage and
// debug_message from it.
//
// Example:
//
//	d, _ := hostfuncs.NewDispatcher(
//	    hostfuncs.WithBundle(hostfuncs.OracleBundle(source)),
//	)
//	err := wazero.RegisterWithRuntime(ctx, runtime, d,
//	    wazero.WithStorage(store),
//	)
func RegisterWithRuntime(ctx context.Context, runtime wazero.Runtime, d *hostfuncs.Dispatcher, opts ...AdapterOption) error {
	cfg := defaultAdapterConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	h := &hostModule{dispatcher: d, cfg: cfg}

	i32, i64 := api.ValueTypeI32, api.ValueTypeI64
	builder := runtime.NewHostModuleBuilder(cfg.ModuleName)

	builder.NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(func(_ context.Context, _ api.Module, stack []uint64) {
			stack[0] = api.EncodeU32(uint32(h.dispatcher.Version()))
		}), nil, []api.ValueType{i32}).
		Export(FuncProtocolVersion)

	builder.NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(func(ctx context.Context, mod api.Module, stack []uint64) {
			stack[0] = h.callChainExtension(ctx, mod.Memory(),
				entities.OperationID(api.DecodeU32(stack[0])),
				api.DecodeU32(stack[1]), api.DecodeU32(stack[2]),
				api.DecodeU32(stack[3]), api.DecodeU32(stack[4]))
		}), []api.ValueType{i32, i32, i32, i32, i32}, []api.ValueType{i64}).
		Export(FuncCallChainExtension)

	builder.NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(func(ctx context.Context, mod api.Module, stack []uint64) {
			code := h.getStorage(ctx, mod.Memory(),
				api.DecodeU32(stack[0]), api.DecodeU32(stack[1]),
				api.DecodeU32(stack[2]), api.DecodeU32(stack[3]))
			stack[0] = api.EncodeU32(uint32(code))
		}), []api.ValueType{i32, i32, i32, i32}, []api.ValueType{i32}).
		Export(FuncGetStorage)

	builder.NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(func(ctx context.Context, mod api.Module, stack []uint64) {
			h.debugMessage(WithContractName(ctx, ContractName(ctx, mod)), mod.Memory(),
				api.DecodeU32(stack[0]), api.DecodeU32(stack[1]))
		}), []api.ValueType{i32, i32}, nil).
		Export(FuncDebugMessage)

	for _, ch := range cfg.CustomHandlers {
		builder.NewFunctionBuilder().
			WithGoModuleFunction(ch.Handler, ch.ParamTypes, ch.ResultTypes).
			Export(ch.Name)
	}

	_, err := builder.Instantiate(ctx)
	return err
}

// callChainExtension reads the input and the output capacity from guest
// memory, dispatches op and writes the result back. The returned value packs
// the transport code over the status code.
func (h *hostModule) callChainExtension(ctx context.Context, mem memory, op entities.OperationID, inPtr, inLen, outPtr, outLenPtr uint32) uint64 {
	logger := h.cfg.Logger
	fault := entities.PackResult(entities.TransportMemoryFault, 0)

	if inLen > h.cfg.MaxRequestSize {
		logger.ErrorContext(ctx, "wazero: request exceeds maximum size",
			"operation", uint32(op), "size", inLen, "max", h.cfg.MaxRequestSize)
		return fault
	}
	input, ok := mem.Read(inPtr, inLen)
	if !ok {
		logger.ErrorContext(ctx, "wazero: failed to read request from guest memory", "operation", uint32(op))
		return fault
	}
	// The guest may reuse the input region as output.
	input = append([]byte(nil), input...)

	capacity, ok := mem.ReadUint32Le(outLenPtr)
	if !ok {
		logger.ErrorContext(ctx, "wazero: failed to read output capacity", "operation", uint32(op))
		return fault
	}

	out, err := h.dispatcher.Dispatch(ctx, op, input, capacity)
	transport, required, known := hostfuncs.TransportFor(err)
	if !known {
		logger.ErrorContext(ctx, "wazero: dispatch failed", "operation", uint32(op), "error", err)
		return fault
	}

	switch transport {
	case entities.TransportBufferTooSmall:
		if !mem.WriteUint32Le(outLenPtr, required) {
			return fault
		}
		return entities.PackResult(transport, 0)
	case entities.TransportOK:
		if len(out.Output) > 0 && !mem.Write(outPtr, out.Output) {
			logger.ErrorContext(ctx, "wazero: failed to write response to guest memory", "operation", uint32(op))
			return fault
		}
		if !mem.WriteUint32Le(outLenPtr, uint32(len(out.Output))) { //nolint:gosec // G115: bounded by capacity
			return fault
		}
		return entities.PackResult(transport, out.Status)
	default:
		return entities.PackResult(transport, 0)
	}
}

// getStorage copies the value stored under the key at keyPtr into the
// output buffer. *outLenPtr holds the capacity on entry and the value length
// (or the required size) on exit.
func (h *hostModule) getStorage(ctx context.Context, mem memory, keyPtr, keyLen, outPtr, outLenPtr uint32) entities.StorageReadCode {
	logger := h.cfg.Logger
	if h.cfg.Storage == nil {
		logger.WarnContext(ctx, "wazero: get_storage called without a storage backend")
		return entities.StorageReadFailed
	}
	if keyLen > maxStorageKeySize {
		logger.ErrorContext(ctx, "wazero: storage key too long", "size", keyLen)
		return entities.StorageReadFailed
	}
	key, ok := mem.Read(keyPtr, keyLen)
	if !ok {
		return entities.StorageReadFailed
	}
	key = append([]byte(nil), key...)

	capacity, ok := mem.ReadUint32Le(outLenPtr)
	if !ok {
		return entities.StorageReadFailed
	}

	value, found, err := h.cfg.Storage.ReadStorage(ctx, key)
	if err != nil {
		logger.ErrorContext(ctx, "wazero: storage read failed", "error", err)
		return entities.StorageReadFailed
	}
	if !found {
		return entities.StorageNotFound
	}

	size := uint32(len(value)) //nolint:gosec // G115: storage values are far below 4GiB
	if size > capacity {
		if !mem.WriteUint32Le(outLenPtr, size) {
			return entities.StorageReadFailed
		}
		return entities.StorageBufferTooSmall
	}
	if size > 0 && !mem.Write(outPtr, value) {
		return entities.StorageReadFailed
	}
	if !mem.WriteUint32Le(outLenPtr, size) {
		return entities.StorageReadFailed
	}
	return entities.StorageFound
}

// debugMessage replays a guest log line into the adapter logger.
func (h *hostModule) debugMessage(ctx context.Context, mem memory, ptr, length uint32) {
	if length > h.cfg.MaxRequestSize {
		h.cfg.Logger.WarnContext(ctx, "wazero: debug message exceeds maximum size", "size", length)
		return
	}
	payload, ok := mem.Read(ptr, length)
	if !ok {
		return
	}
	logger := h.cfg.Logger
	if name, ok := ContractNameFromContext(ctx); ok {
		logger = logger.With("module", name)
	}
	sdklog.Replay(ctx, logger, payload)
}

// PackPtrLen packs a pointer and length into a single i64.
// Upper 32 bits: pointer, lower 32 bits: length.
func PackPtrLen(ptr, length uint32) uint64 {
	return (uint64(ptr) << 32) | uint64(length)
}

// UnpackPtrLen unpacks a pointer and length from a packed i64.
func UnpackPtrLen(packed uint64) (ptr, length uint32) {
	ptr = uint32(packed >> 32)           //nolint:gosec // G115: Packed format stores 32-bit values
	length = uint32(packed & 0xFFFFFFFF) //nolint:gosec // G115: Packed format stores 32-bit values
	return ptr, length
}
