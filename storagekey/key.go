// Package storagekey derives addresses into the host's key-addressed storage and
// reads values through them without going through the extension dispatcher.
//
// A storage address names an item inside a namespace, the way runtime modules
// name their storage items:
//
//	key = twox128(namespace) ++ twox128(item)
//
// twox128 is two xxhash64 lanes (seed 0, then seed 1), each written as 8
// little-endian bytes. It is well distributed but not cryptographic; namespace and
// item names are fixed at design time, so collisions are not adversarial.
package storagekey

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/crypto/blake2b"

	"github.com/reglet-dev/reglet-oracle/domain/entities"
)

// HashSize is the byte length of a twox128 or blake2-128 digest.
const HashSize = 16

// Twox128 returns the 128-bit twox digest of data.
func Twox128(data []byte) [HashSize]byte {
	var out [HashSize]byte
	for seed := uint64(0); seed < 2; seed++ {
		h := xxhash.NewWithSeed(seed)
		_, _ = h.Write(data) // Digest.Write never fails
		binary.LittleEndian.PutUint64(out[seed*8:], h.Sum64())
	}
	return out
}

// Derive returns the storage address of item inside namespace.
func Derive(namespace, item string) entities.StorageKey {
	var key entities.StorageKey
	ns := Twox128([]byte(namespace))
	it := Twox128([]byte(item))
	copy(key[:HashSize], ns[:])
	copy(key[HashSize:], it[:])
	return key
}

// Blake2_128Concat returns blake2b-128(data) followed by data itself, so the
// original map key stays recoverable from the storage address.
//
//nolint:revive // name follows the hasher naming used by storage maps
func Blake2_128Concat(data []byte) []byte {
	h, err := blake2b.New(HashSize, nil)
	if err != nil {
		// Only reachable with an invalid size or key, both constants here.
		panic("storagekey: blake2b-128: " + err.Error())
	}
	_, _ = h.Write(data)
	out := make([]byte, 0, HashSize+len(data))
	out = h.Sum(out)
	return append(out, data...)
}

// DeriveMapKey returns the address of the map entry mapKey of the storage map
// item inside namespace: Derive(namespace, item) ++ blake2_128_concat(mapKey).
func DeriveMapKey(namespace, item string, mapKey []byte) []byte {
	base := Derive(namespace, item)
	out := make([]byte, 0, entities.StorageKeySize+HashSize+len(mapKey))
	out = append(out, base[:]...)
	return append(out, Blake2_128Concat(mapKey)...)
}

// PriceSnapshotKey is the address of the price snapshot written by the host feeder.
func PriceSnapshotKey() entities.StorageKey {
	return Derive(entities.PriceNamespace, entities.PriceItem)
}

// PriceQuoteKey is the address of the single quote for id in the price map.
func PriceQuoteKey(id entities.DataID) []byte {
	var idBytes [8]byte
	binary.LittleEndian.PutUint64(idBytes[:], id)
	return DeriveMapKey(entities.PriceNamespace, entities.PriceItem, idBytes[:])
}
