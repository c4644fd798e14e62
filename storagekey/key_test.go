package storagekey

import (
	"bytes"
	"encoding/hex"
	"testing"

	"github.com/reglet-dev/reglet-oracle/domain/entities"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustHex(t *testing.T, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(s)
	require.NoError(t, err)
	return b
}

func TestTwox128_KnownVectors(t *testing.T) {
	// Well-known prefixes of the System.Account storage map.
	system := Twox128([]byte("System"))
	account := Twox128([]byte("Account"))

	assert.Equal(t, mustHex(t, "26aa394eea5630e07c48ae0c9558cef7"), system[:])
	assert.Equal(t, mustHex(t, "b99d880ec681799c0cf30e8886371da9"), account[:])
}

func TestDerive_KnownVector(t *testing.T) {
	key := Derive("System", "Account")

	assert.Equal(t, "0x26aa394eea5630e07c48ae0c9558cef7b99d880ec681799c0cf30e8886371da9", key.Hex())
}

func TestDerive_Deterministic(t *testing.T) {
	first := Derive("PriceFetchModule", "Prices")
	second := Derive("PriceFetchModule", "Prices")

	assert.Equal(t, first, second)
	assert.Len(t, first[:], entities.StorageKeySize)
	assert.Equal(t, PriceSnapshotKey(), first)
}

func TestDerive_InputsChangeOutput(t *testing.T) {
	base := Derive("PriceFetchModule", "Prices")

	tests := []struct {
		name      string
		namespace string
		item      string
	}{
		{"namespace changed", "PriceFetchModulf", "Prices"},
		{"item changed", "PriceFetchModule", "Price"},
		{"swapped", "Prices", "PriceFetchModule"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotEqual(t, base, Derive(tt.namespace, tt.item))
		})
	}
}

func TestDerive_HalvesAreIndependent(t *testing.T) {
	a := Derive("PriceFetchModule", "Prices")
	b := Derive("PriceFetchModule", "Owners")
	c := Derive("OtherModule", "Prices")

	assert.Equal(t, a[:HashSize], b[:HashSize], "same namespace, same prefix")
	assert.NotEqual(t, a[HashSize:], b[HashSize:])
	assert.Equal(t, a[HashSize:], c[HashSize:], "same item, same suffix")
}

func TestBlake2_128Concat(t *testing.T) {
	data := []byte{42, 0, 0, 0, 0, 0, 0, 0}

	out := Blake2_128Concat(data)
	require.Len(t, out, HashSize+len(data))
	assert.Equal(t, data, out[HashSize:], "raw key is appended")
	assert.Equal(t, out, Blake2_128Concat(data))
	assert.NotEqual(t, out[:HashSize], Blake2_128Concat([]byte{43})[:HashSize])
}

func TestDeriveMapKey(t *testing.T) {
	base := Derive("PriceFetchModule", "Prices")
	key := DeriveMapKey("PriceFetchModule", "Prices", []byte("BTC"))

	require.Len(t, key, entities.StorageKeySize+HashSize+3)
	assert.True(t, bytes.HasPrefix(key, base[:]))
	assert.True(t, bytes.HasSuffix(key, []byte("BTC")))
}

func TestPriceQuoteKey(t *testing.T) {
	k42 := PriceQuoteKey(42)
	k43 := PriceQuoteKey(43)

	assert.NotEqual(t, k42, k43)
	assert.Equal(t, k42, PriceQuoteKey(42))
	snap := PriceSnapshotKey()
	assert.True(t, bytes.HasPrefix(k42, snap[:]))
}
