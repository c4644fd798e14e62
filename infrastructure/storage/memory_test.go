package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reglet-dev/reglet-oracle/storagekey"
	"github.com/reglet-dev/reglet-oracle/wireformat"
)

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	key := storagekey.PriceSnapshotKey()

	_, found, err := s.ReadStorage(ctx, key.Bytes())
	require.NoError(t, err)
	assert.False(t, found)

	value := []byte{1, 2, 3}
	require.NoError(t, s.WriteStorage(ctx, key.Bytes(), value))
	value[0] = 9

	got, found, err := s.ReadStorage(ctx, key.Bytes())
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []byte{1, 2, 3}, got)
	assert.Equal(t, 1, s.Len())
}

func TestMemoryStore_Lookup(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	key := storagekey.PriceQuoteKey(42)
	require.NoError(t, s.WriteStorage(ctx, key, wireformat.EncodeU64(1234)))

	v, ok := storagekey.Lookup(ctx, s, key, wireformat.DecodeU64)
	require.True(t, ok)
	assert.Equal(t, uint64(1234), v)
}
