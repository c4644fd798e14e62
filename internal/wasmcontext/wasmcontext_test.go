package wasmcontext

import (
	"context"
	"testing"
	"time"

	"github.com/reglet-dev/reglet-oracle/domain/entities"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetAndGetCurrentContext(t *testing.T) {
	ResetContext()
	assert.Equal(t, context.Background(), GetCurrentContext(), "should default to background")

	expectedCtx := context.WithValue(context.Background(), contextKey("key"), "value")
	SetCurrentContext(expectedCtx)

	actualCtx := GetCurrentContext()
	assert.Equal(t, expectedCtx, actualCtx)
	assert.Equal(t, "value", actualCtx.Value(contextKey("key")))

	ResetContext()
	assert.Equal(t, context.Background(), GetCurrentContext())
}

func TestContextToWire(t *testing.T) {
	t.Run("values", func(t *testing.T) {
		ctx := context.WithValue(context.Background(), CallIDKey, "call-1")
		ctx = context.WithValue(ctx, ContractKey, "get-prices")

		wire := ContextToWire(ctx)
		assert.Equal(t, "call-1", wire.CallID)
		assert.Equal(t, "get-prices", wire.Contract)
		assert.Nil(t, wire.Deadline)
	})

	t.Run("deadline", func(t *testing.T) {
		deadline := time.Now().Add(time.Hour)
		ctx, cancel := context.WithDeadline(context.Background(), deadline)
		defer cancel()

		wire := ContextToWire(ctx)
		require.NotNil(t, wire.Deadline)
		assert.WithinDuration(t, deadline, *wire.Deadline, time.Millisecond)
	})

	t.Run("wrong value type ignored", func(t *testing.T) {
		ctx := context.WithValue(context.Background(), CallIDKey, 42)
		assert.Empty(t, ContextToWire(ctx).CallID)
	})
}

func TestWireToContext(t *testing.T) {
	deadline := time.Now().Add(time.Hour)
	wire := entities.ContextWire{Deadline: &deadline, CallID: "call-2", Contract: "get-prices"}

	ctx, cancel := WireToContext(nil, wire) //nolint:staticcheck // nil parent is accepted
	defer cancel()

	d, ok := ctx.Deadline()
	require.True(t, ok)
	assert.WithinDuration(t, deadline, d, time.Millisecond)
	assert.Equal(t, "call-2", ctx.Value(CallIDKey))
	assert.Equal(t, "get-prices", ctx.Value(ContractKey))
	assert.NoError(t, ctx.Err())

	back := ContextToWire(ctx)
	assert.Equal(t, wire.CallID, back.CallID)
	assert.Equal(t, wire.Contract, back.Contract)
}

func TestWireToContext_Cancel(t *testing.T) {
	ctx, cancel := WireToContext(context.Background(), entities.ContextWire{})
	_, hasDeadline := ctx.Deadline()
	assert.False(t, hasDeadline)

	cancel()
	assert.ErrorIs(t, ctx.Err(), context.Canceled)
}
