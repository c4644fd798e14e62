//go:build wasip1

// Package abi manages the contract's side of WASM linear memory: buffers
// handed to oracle_ext imports and buffers the host fills through the
// allocate export.
package abi

import (
	"fmt"
	"sync"
	"unsafe"
)

// DefaultMaxTotalAllocations caps the bytes pinned at any one time (100 MB).
const DefaultMaxTotalAllocations = 100 * 1024 * 1024

// PtrHighBits is the shift of the pointer half in a packed ptr/len value.
const PtrHighBits = 32

// memoryManager pins allocated slices so the GC does not collect memory the
// host still refers to by address.
var memoryManager = struct {
	ptrs map[uint32][]byte
	sync.Mutex
	totalAllocated int
	maxTotal       int
}{
	ptrs:     make(map[uint32][]byte),
	maxTotal: DefaultMaxTotalAllocations,
}

// allocate reserves size bytes and returns their address. The host calls it
// when it needs to hand a buffer to the contract. Panics past the limit.
//
//go:wasmexport allocate
func allocate(size uint32) uint32 {
	ptr, _ := alloc(size)
	return ptr
}

// deallocate releases an allocation. Unknown pointers are ignored, and the
// stored length is used for accounting rather than size.
//
//go:wasmexport deallocate
func deallocate(ptr uint32, size uint32) {
	_ = size
	Free(ptr)
}

func alloc(size uint32) (uint32, []byte) {
	if size == 0 {
		return 0, nil
	}

	memoryManager.Lock()
	defer memoryManager.Unlock()

	if memoryManager.totalAllocated+int(size) > memoryManager.maxTotal {
		panic(fmt.Sprintf("abi: memory allocation limit exceeded (requested: %d bytes, current: %d bytes, limit: %d bytes)",
			size, memoryManager.totalAllocated, memoryManager.maxTotal))
	}

	buf := make([]byte, size)
	ptr := uint32(uintptr(unsafe.Pointer(&buf[0]))) //nolint:gosec // G103: wasm32 addresses fit in 32 bits

	memoryManager.ptrs[ptr] = buf
	memoryManager.totalAllocated += int(size)
	return ptr, buf
}

// Alloc returns a pinned zeroed buffer of size bytes and its address. The
// caller releases it with Free.
func Alloc(size uint32) (uint32, []byte) {
	return alloc(size)
}

// Free releases the allocation at ptr. Freeing twice is harmless.
func Free(ptr uint32) {
	memoryManager.Lock()
	defer memoryManager.Unlock()

	stored, ok := memoryManager.ptrs[ptr]
	if !ok {
		return
	}
	delete(memoryManager.ptrs, ptr)
	memoryManager.totalAllocated -= len(stored)
	if memoryManager.totalAllocated < 0 {
		memoryManager.totalAllocated = 0
	}
}

// PtrFromBytes copies data into a pinned buffer and returns its packed
// address and length, or 0 for empty data.
func PtrFromBytes(data []byte) uint64 {
	if len(data) == 0 {
		return 0
	}
	ptr, buf := alloc(uint32(len(data))) //nolint:gosec // G115: bounded by the allocation limit
	copy(buf, data)
	return PackPtrLen(ptr, uint32(len(buf))) //nolint:gosec // G115: as above
}

// BytesFromPtr returns a copy of the memory described by a packed value.
func BytesFromPtr(packed uint64) []byte {
	ptr, length := UnpackPtrLen(packed)
	if ptr == 0 || length == 0 {
		return nil
	}
	return readFromMemory(ptr, length)
}

// DeallocatePacked frees the allocation described by a packed value.
func DeallocatePacked(packed uint64) {
	ptr, length := UnpackPtrLen(packed)
	if ptr != 0 && length > 0 {
		Free(ptr)
	}
}

// PackPtrLen packs a pointer and length into a single uint64.
// Panics if ptr is 0 and length > 0.
func PackPtrLen(ptr, length uint32) uint64 {
	if ptr == 0 && length > 0 {
		panic(fmt.Sprintf("abi: invalid pack - null pointer (0x0) with non-zero length (%d)", length))
	}
	return (uint64(ptr) << PtrHighBits) | uint64(length)
}

// UnpackPtrLen unpacks a value produced by PackPtrLen.
// Panics if ptr is 0 and length > 0.
func UnpackPtrLen(packed uint64) (ptr, length uint32) {
	ptr = uint32(packed >> PtrHighBits) //nolint:gosec // G115: high half is a 32-bit pointer
	length = uint32(packed)             //nolint:gosec // G115: low half is a 32-bit length
	if ptr == 0 && length > 0 {
		panic(fmt.Sprintf("abi: invalid unpack - null pointer (0x0) with non-zero length (%d)", length))
	}
	return ptr, length
}

// readFromMemory returns a copy of length bytes at ptr.
func readFromMemory(ptr uint32, length uint32) []byte {
	//nolint:gosec // G103: Valid unsafe.Pointer use for WASM linear memory access
	src := unsafe.Slice((*byte)(unsafe.Pointer(uintptr(ptr))), length)
	data := make([]byte, length)
	copy(data, src)
	return data
}
