package hostfuncs

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reglet-dev/reglet-oracle/domain/entities"
)

func TestNewHostContext(t *testing.T) {
	hc := NewHostContext(context.Background(), entities.ProtocolV2, entities.OpRequestedOffchainData)

	require.NotNil(t, hc)
	assert.Equal(t, entities.OpRequestedOffchainData, hc.Operation())
	assert.Equal(t, entities.ProtocolV2, hc.Version())
	assert.Equal(t, "requested_offchain_data", hc.OperationName())
	assert.NotEmpty(t, hc.CallID())
}

func TestHostContext_UniqueCallIDs(t *testing.T) {
	a := NewHostContext(context.Background(), entities.ProtocolV1, 1)
	b := NewHostContext(context.Background(), entities.ProtocolV1, 1)
	assert.NotEqual(t, a.CallID(), b.CallID())
}

func TestHostContext_SetGetValue(t *testing.T) {
	hc := NewHostContext(context.Background(), entities.ProtocolV2, entities.OpCurrentDataID)

	_, ok := hc.GetValue("key1")
	assert.False(t, ok)

	hc.SetValue("key1", "value1")
	val, ok := hc.GetValue("key1")
	assert.True(t, ok)
	assert.Equal(t, "value1", val)
}

func TestHostContext_PreservesParentValues(t *testing.T) {
	type ctxKey string
	parent := context.WithValue(context.Background(), ctxKey("tenant"), "acme")

	hc := NewHostContext(parent, entities.ProtocolV2, entities.OpCurrentDataID)
	assert.Equal(t, "acme", hc.Value(ctxKey("tenant")))
}

func TestHostContextFrom(t *testing.T) {
	hc := NewHostContext(context.Background(), entities.ProtocolV2, entities.OpCurrentDataID)

	assert.Same(t, hc, HostContextFrom(hc, entities.ProtocolV2, entities.OpCurrentDataID))

	other := HostContextFrom(hc, entities.ProtocolV2, entities.OpRequestedOffchainData)
	assert.NotSame(t, hc, other)
	assert.Equal(t, entities.OpRequestedOffchainData, other.Operation())
}
