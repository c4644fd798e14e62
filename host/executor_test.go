package host

import (
	"bytes"
	"context"
	"encoding/binary"
	"io"
	"log/slog"
	"testing"

	"github.com/reglet-dev/reglet-oracle/domain/entities"
	"github.com/reglet-dev/reglet-oracle/hostfuncs"
	"github.com/reglet-dev/reglet-oracle/infrastructure/datasource"
	"github.com/reglet-dev/reglet-oracle/wireformat"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func wasmName(s string) []byte {
	return append([]byte{byte(len(s))}, s...)
}

func wasmSection(id byte, parts ...[]byte) []byte {
	body := bytes.Join(parts, nil)
	return append([]byte{id, byte(len(body))}, body...)
}

// oracleContract is a hand-assembled module importing protocol_version and
// call_chain_extension. "version" returns the protocol version; "current"
// stores a capacity of 16 at address 8 and calls operation 1 with the output
// buffer at address 16.
func oracleContract() []byte {
	const (
		i32  = 0x7f
		i64  = 0x7e
		fn   = 0x60
		call = 0x10
		end  = 0x0b
		c32  = 0x41
	)
	types := wasmSection(1,
		[]byte{3},
		[]byte{fn, 0, 1, i32},
		[]byte{fn, 5, i32, i32, i32, i32, i32, 1, i64},
		[]byte{fn, 0, 1, i64},
	)
	imports := wasmSection(2,
		[]byte{2},
		wasmName("oracle_ext"), wasmName("protocol_version"), []byte{0x00, 0},
		wasmName("oracle_ext"), wasmName("call_chain_extension"), []byte{0x00, 1},
	)
	funcs := wasmSection(3, []byte{2, 0, 2})
	mem := wasmSection(5, []byte{1, 0x00, 1})
	exports := wasmSection(7,
		[]byte{3},
		wasmName("version"), []byte{0x00, 2},
		wasmName("current"), []byte{0x00, 3},
		wasmName("memory"), []byte{0x02, 0},
	)
	versionBody := []byte{0, call, 0, end}
	currentBody := []byte{
		0,
		c32, 8, c32, 16, 0x36, 2, 0, // i32.store mem[8] = 16
		c32, 1, c32, 0, c32, 0, c32, 16, c32, 8,
		call, 1,
		end,
	}
	code := wasmSection(10,
		[]byte{2},
		[]byte{byte(len(versionBody))}, versionBody,
		[]byte{byte(len(currentBody))}, currentBody,
	)

	header := []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}
	return bytes.Join([][]byte{header, types, imports, funcs, mem, exports, code}, nil)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNewExecutor(t *testing.T) {
	ctx := context.Background()
	e, err := NewExecutor(ctx, WithLogger(quietLogger()))
	require.NoError(t, err)
	assert.NotNil(t, e.Dispatcher())
	assert.Empty(t, e.Dispatcher().Operations())
	assert.NoError(t, e.Close(ctx))
}

func TestLoadContract_Invalid(t *testing.T) {
	ctx := context.Background()
	e, err := NewExecutor(ctx, WithLogger(quietLogger()))
	require.NoError(t, err)
	defer e.Close(ctx)

	_, err = e.LoadContract(ctx, "broken", []byte("not wasm"))
	assert.ErrorContains(t, err, `failed to compile contract "broken"`)
}

func TestInstance_CallsHostModule(t *testing.T) {
	ctx := context.Background()
	src := datasource.NewStaticSource(nil)
	src.SetCurrent(42)
	d, err := hostfuncs.NewDispatcher(
		hostfuncs.WithBundle(hostfuncs.OracleBundle(src)),
		hostfuncs.WithLogger(quietLogger()),
	)
	require.NoError(t, err)

	e, err := NewExecutor(ctx, WithDispatcher(d), WithLogger(quietLogger()), WithMemoryLimitPages(4))
	require.NoError(t, err)
	defer e.Close(ctx)

	inst, err := e.LoadContract(ctx, "oracle", oracleContract())
	require.NoError(t, err)
	assert.Equal(t, "oracle", inst.Name())

	version, err := inst.callRaw(ctx, "version", nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(entities.ProtocolV2), version)

	packed, err := inst.callRaw(ctx, "current", nil)
	require.NoError(t, err)
	transport, status := entities.UnpackResult(packed)
	assert.Equal(t, entities.TransportOK, transport)
	assert.Equal(t, entities.StatusOK, status)

	mem := inst.module.Memory()
	n, ok := mem.ReadUint32Le(8)
	require.True(t, ok)
	require.Equal(t, uint32(8), n)
	out, ok := mem.Read(16, n)
	require.True(t, ok)
	assert.Equal(t, wireformat.EncodeU64(42), out)
	assert.Equal(t, uint64(42), binary.LittleEndian.Uint64(out))

	_, err = inst.Call(ctx, "missing", nil)
	assert.ErrorContains(t, err, `export "missing" not found`)

	_, err = inst.Call(ctx, "version", []byte{1})
	assert.ErrorContains(t, err, "does not export 'allocate'")

	assert.NoError(t, inst.Close(ctx))
}
