package wazero

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"log/slog"
	"testing"

	"github.com/reglet-dev/reglet-oracle/domain/entities"
	"github.com/reglet-dev/reglet-oracle/domain/ports"
	"github.com/reglet-dev/reglet-oracle/hostfuncs"
	"github.com/reglet-dev/reglet-oracle/infrastructure/datasource"
	"github.com/reglet-dev/reglet-oracle/infrastructure/storage"
	"github.com/reglet-dev/reglet-oracle/wireformat"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeMemory is a flat little-endian linear memory.
type fakeMemory struct {
	buf []byte
}

func newFakeMemory(size int) *fakeMemory {
	return &fakeMemory{buf: make([]byte, size)}
}

func (m *fakeMemory) inRange(offset, n uint32) bool {
	return uint64(offset)+uint64(n) <= uint64(len(m.buf))
}

func (m *fakeMemory) Read(offset, byteCount uint32) ([]byte, bool) {
	if !m.inRange(offset, byteCount) {
		return nil, false
	}
	return m.buf[offset : offset+byteCount], true
}

func (m *fakeMemory) Write(offset uint32, v []byte) bool {
	if !m.inRange(offset, uint32(len(v))) {
		return false
	}
	copy(m.buf[offset:], v)
	return true
}

func (m *fakeMemory) ReadUint32Le(offset uint32) (uint32, bool) {
	if !m.inRange(offset, 4) {
		return 0, false
	}
	return binary.LittleEndian.Uint32(m.buf[offset:]), true
}

func (m *fakeMemory) WriteUint32Le(offset, v uint32) bool {
	if !m.inRange(offset, 4) {
		return false
	}
	binary.LittleEndian.PutUint32(m.buf[offset:], v)
	return true
}

const (
	inPtr     = 0x10
	outLenPtr = 0x100
	outPtr    = 0x200
)

func newTestModule(t *testing.T, opts ...AdapterOption) *hostModule {
	t.Helper()
	src := datasource.NewStaticSource(map[entities.DataID][]byte{
		42: {0xDE, 0xAD, 0xBE, 0xEF},
	})
	src.SetCurrent(42)
	d, err := hostfuncs.NewDispatcher(hostfuncs.WithBundle(hostfuncs.OracleBundle(src)))
	require.NoError(t, err)

	cfg := defaultAdapterConfig()
	cfg.Logger = slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	for _, opt := range opts {
		opt(&cfg)
	}
	return &hostModule{dispatcher: d, cfg: cfg}
}

func TestDefaultAdapterConfig(t *testing.T) {
	cfg := defaultAdapterConfig()

	assert.Equal(t, "oracle_ext", cfg.ModuleName)
	assert.Equal(t, uint32(hostfuncs.DefaultMaxRequestSize), cfg.MaxRequestSize)
	assert.NotNil(t, cfg.Logger)
	assert.Nil(t, cfg.Storage)
}

func TestAdapterOptions(t *testing.T) {
	cfg := defaultAdapterConfig()
	store := storage.NewMemoryStore()
	WithModuleName("custom_module")(&cfg)
	WithMaxRequestSize(2048)(&cfg)
	WithStorage(store)(&cfg)
	WithLogger(nil)(&cfg)
	WithCustomHandler(CustomHandler{Name: "test_handler"})(&cfg)

	assert.Equal(t, "custom_module", cfg.ModuleName)
	assert.Equal(t, uint32(2048), cfg.MaxRequestSize)
	assert.Same(t, store, cfg.Storage)
	assert.NotNil(t, cfg.Logger, "nil logger keeps the default")
	require.Len(t, cfg.CustomHandlers, 1)
	assert.Equal(t, "test_handler", cfg.CustomHandlers[0].Name)
}

func TestCallChainExtension(t *testing.T) {
	payload := []byte{0xDE, 0xAD, 0xBE, 0xEF}

	tests := []struct {
		name          string
		op            entities.OperationID
		input         []byte
		capacity      uint32
		opts          []AdapterOption
		wantTransport entities.TransportCode
		wantStatus    entities.StatusCode
		wantOutLen    uint32
		wantOutput    []byte
	}{
		{
			name:       "payload fetched",
			op:         entities.OpRequestedOffchainData,
			input:      wireformat.EncodeU64(42),
			capacity:   64,
			wantOutLen: uint32(len(payload)),
			wantOutput: payload,
		},
		{
			name:       "current data id",
			op:         entities.OpCurrentDataID,
			capacity:   16,
			wantOutLen: 8,
			wantOutput: wireformat.EncodeU64(42),
		},
		{
			name:          "buffer too small reports required size",
			op:            entities.OpRequestedOffchainData,
			input:         wireformat.EncodeU64(42),
			capacity:      2,
			wantTransport: entities.TransportBufferTooSmall,
			wantOutLen:    uint32(len(payload)),
		},
		{
			name:          "unknown operation",
			op:            9,
			capacity:      64,
			wantTransport: entities.TransportUnimplementedOperation,
			wantOutLen:    64,
		},
		{
			name:       "missing data is a status",
			op:         entities.OpRequestedOffchainData,
			input:      wireformat.EncodeU64(7),
			capacity:   64,
			wantStatus: entities.StatusCannotReadFromKey,
			wantOutLen: 0,
		},
		{
			name:       "malformed input is invalid key",
			op:         entities.OpRequestedOffchainData,
			input:      []byte{1, 2},
			capacity:   64,
			wantStatus: entities.StatusInvalidKey,
			wantOutLen: 0,
		},
		{
			name:          "request over limit faults",
			op:            entities.OpRequestedOffchainData,
			input:         wireformat.EncodeU64(42),
			capacity:      64,
			opts:          []AdapterOption{WithMaxRequestSize(4)},
			wantTransport: entities.TransportMemoryFault,
			wantOutLen:    64,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestModule(t, tt.opts...)
			mem := newFakeMemory(1024)
			require.True(t, mem.Write(inPtr, tt.input))
			require.True(t, mem.WriteUint32Le(outLenPtr, tt.capacity))

			packed := h.callChainExtension(context.Background(), mem, tt.op,
				inPtr, uint32(len(tt.input)), outPtr, outLenPtr)

			transport, status := entities.UnpackResult(packed)
			assert.Equal(t, tt.wantTransport, transport)
			assert.Equal(t, tt.wantStatus, status)

			outLen, _ := mem.ReadUint32Le(outLenPtr)
			assert.Equal(t, tt.wantOutLen, outLen)
			if tt.wantOutput != nil {
				got, _ := mem.Read(outPtr, outLen)
				assert.Equal(t, tt.wantOutput, got)
			}
		})
	}
}

func TestCallChainExtension_OutOfRangePointers(t *testing.T) {
	h := newTestModule(t)
	mem := newFakeMemory(64)

	fault := entities.PackResult(entities.TransportMemoryFault, 0)
	assert.Equal(t, fault, h.callChainExtension(context.Background(), mem,
		entities.OpRequestedOffchainData, 60, 8, 0, 0), "input beyond memory")
	assert.Equal(t, fault, h.callChainExtension(context.Background(), mem,
		entities.OpCurrentDataID, 0, 0, 0, 62), "capacity pointer beyond memory")

	require.True(t, mem.WriteUint32Le(0, 64))
	assert.Equal(t, fault, h.callChainExtension(context.Background(), mem,
		entities.OpCurrentDataID, 0, 0, 60, 0), "output beyond memory")
}

func TestGetStorage(t *testing.T) {
	key := []byte("price-key")
	store := storage.NewMemoryStore()
	require.NoError(t, store.WriteStorage(context.Background(), key, []byte("quote-bytes")))

	failing := ports.StorageReaderFunc(func(context.Context, []byte) ([]byte, bool, error) {
		return nil, false, errors.New("disk gone")
	})

	tests := []struct {
		name       string
		reader     ports.StorageReader
		key        []byte
		capacity   uint32
		want       entities.StorageReadCode
		wantOutLen uint32
		wantValue  []byte
	}{
		{"found", store, key, 32, entities.StorageFound, 11, []byte("quote-bytes")},
		{"not found", store, []byte("other"), 32, entities.StorageNotFound, 32, nil},
		{"buffer too small", store, key, 4, entities.StorageBufferTooSmall, 11, nil},
		{"reader error", failing, key, 32, entities.StorageReadFailed, 32, nil},
		{"no backend", nil, key, 32, entities.StorageReadFailed, 32, nil},
		{"key too long", store, bytes.Repeat([]byte{1}, maxStorageKeySize+1), 32, entities.StorageReadFailed, 32, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestModule(t)
			h.cfg.Storage = tt.reader
			mem := newFakeMemory(1024)
			require.True(t, mem.Write(inPtr, tt.key))
			require.True(t, mem.WriteUint32Le(outLenPtr, tt.capacity))

			got := h.getStorage(context.Background(), mem, inPtr, uint32(len(tt.key)), outPtr, outLenPtr)
			assert.Equal(t, tt.want, got)

			outLen, _ := mem.ReadUint32Le(outLenPtr)
			assert.Equal(t, tt.wantOutLen, outLen)
			if tt.wantValue != nil {
				value, _ := mem.Read(outPtr, outLen)
				assert.Equal(t, tt.wantValue, value)
			}
		})
	}
}

func TestDebugMessage(t *testing.T) {
	var buf bytes.Buffer
	h := newTestModule(t, WithLogger(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))))
	mem := newFakeMemory(1024)
	msg := []byte(`{"level":"WARN","message":"stale quote","attrs":[{"key":"id","type":"uint64","value":"42"}]}`)
	require.True(t, mem.Write(inPtr, msg))

	ctx := WithContractName(context.Background(), "get-prices")
	h.debugMessage(ctx, mem, inPtr, uint32(len(msg)))

	out := buf.String()
	assert.Contains(t, out, "level=WARN")
	assert.Contains(t, out, `msg="stale quote"`)
	assert.Contains(t, out, "module=get-prices")
	assert.Contains(t, out, "id=42")

	buf.Reset()
	h.debugMessage(ctx, mem, 1020, 16)
	assert.Empty(t, buf.String(), "unreadable message is dropped")
}

func TestContractName(t *testing.T) {
	_, ok := ContractNameFromContext(context.Background())
	assert.False(t, ok)

	_, ok = ContractNameFromContext(WithContractName(context.Background(), ""))
	assert.False(t, ok, "empty name is treated as absent")

	name, ok := ContractNameFromContext(WithContractName(context.Background(), "get-prices"))
	assert.True(t, ok)
	assert.Equal(t, "get-prices", name)
}

func TestPackUnpackPtrLen(t *testing.T) {
	tests := []struct {
		ptr    uint32
		length uint32
	}{
		{0, 0},
		{1, 1},
		{0xFFFFFFFF, 0xFFFFFFFF},
		{0x12345678, 0x9ABCDEF0},
		{100, 50},
	}

	for _, tt := range tests {
		gotPtr, gotLen := UnpackPtrLen(PackPtrLen(tt.ptr, tt.length))
		assert.Equal(t, tt.ptr, gotPtr)
		assert.Equal(t, tt.length, gotLen)
	}
}
