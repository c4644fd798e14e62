package entities

import "encoding/hex"

// StorageKeySize is the byte length of a derived storage address.
const StorageKeySize = 32

// StorageKey addresses a value in the host's key-addressed store.
type StorageKey [StorageKeySize]byte

// Hex returns the key as lowercase hex with a 0x prefix.
func (k StorageKey) Hex() string {
	return "0x" + hex.EncodeToString(k[:])
}

func (k StorageKey) String() string {
	return k.Hex()
}

// Namespace and item names of the price storage written by the host feeder.
const (
	PriceNamespace = "PriceFetchModule"
	PriceItem      = "Prices"
)

// Bytes returns a copy of the key as a slice.
func (k StorageKey) Bytes() []byte {
	b := make([]byte, StorageKeySize)
	copy(b, k[:])
	return b
}
