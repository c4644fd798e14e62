//go:build wasip1

package abi

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// live reports the tracked allocations.
func live() (count, bytes int) {
	memoryManager.Lock()
	defer memoryManager.Unlock()
	return len(memoryManager.ptrs), memoryManager.totalAllocated
}

func TestPackPtrLen(t *testing.T) {
	tests := []struct {
		name   string
		ptr    uint32
		length uint32
	}{
		{name: "empty", ptr: 0, length: 0},
		{name: "u64 id", ptr: 0x10000, length: 8},
		{name: "storage key", ptr: 0x20040, length: 32},
		{name: "max", ptr: 0xFFFFFFFF, length: 0xFFFFFFFF},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ptr, length := UnpackPtrLen(PackPtrLen(tt.ptr, tt.length))
			assert.Equal(t, tt.ptr, ptr)
			assert.Equal(t, tt.length, length)
		})
	}

	assert.Panics(t, func() { PackPtrLen(0, 4) })
	assert.Panics(t, func() { UnpackPtrLen(4) })
}

// An extension call allocates an output buffer and a u32 length cell, lets
// the host write through both, then frees them.
func TestAllocFree_OutputAndLengthCells(t *testing.T) {
	count, total := live()

	outPtr, out := Alloc(64)
	lenPtr, lenCell := Alloc(4)
	require.NotZero(t, outPtr)
	require.NotZero(t, lenPtr)
	require.Len(t, out, 64)
	require.Len(t, lenCell, 4)

	binary.LittleEndian.PutUint32(lenCell, 64)
	copy(out, []byte{0xDE, 0xAD, 0xBE, 0xEF})
	assert.Equal(t, []byte{0xDE, 0xAD, 0xBE, 0xEF}, BytesFromPtr(PackPtrLen(outPtr, 4)))
	assert.Equal(t, uint32(64), binary.LittleEndian.Uint32(BytesFromPtr(PackPtrLen(lenPtr, 4))))

	n, b := live()
	assert.Equal(t, count+2, n)
	assert.Equal(t, total+68, b)

	Free(outPtr)
	Free(lenPtr)
	Free(lenPtr)
	n, b = live()
	assert.Equal(t, count, n)
	assert.Equal(t, total, b)
}

func TestAlloc_ZeroCapacity(t *testing.T) {
	ptr, buf := Alloc(0)
	assert.Zero(t, ptr)
	assert.Nil(t, buf)
	assert.NotPanics(t, func() { Free(ptr) })
}

func TestAlloc_LimitPanics(t *testing.T) {
	memoryManager.Lock()
	saved := memoryManager.maxTotal
	memoryManager.maxTotal = memoryManager.totalAllocated + 16
	memoryManager.Unlock()
	defer func() {
		memoryManager.Lock()
		memoryManager.maxTotal = saved
		memoryManager.Unlock()
	}()

	ptr, _ := Alloc(16)
	defer Free(ptr)
	assert.Panics(t, func() { Alloc(1) })
}

func TestPtrFromBytes_Nil(t *testing.T) {
	count, _ := live()

	assert.Zero(t, PtrFromBytes(nil))
	assert.Zero(t, PtrFromBytes([]byte{}))
	assert.Nil(t, BytesFromPtr(0))
	assert.NotPanics(t, func() { DeallocatePacked(0) })

	n, _ := live()
	assert.Equal(t, count, n)
}

func TestPtrFromBytes_DeallocatePacked(t *testing.T) {
	count, total := live()
	input := []byte{42, 0, 0, 0, 0, 0, 0, 0}

	packed := PtrFromBytes(input)
	_, length := UnpackPtrLen(packed)
	assert.Equal(t, uint32(len(input)), length)
	assert.Equal(t, input, BytesFromPtr(packed))

	input[0] = 7
	assert.Equal(t, byte(42), BytesFromPtr(packed)[0], "pinned buffer is a copy")

	DeallocatePacked(packed)
	DeallocatePacked(packed)
	n, b := live()
	assert.Equal(t, count, n)
	assert.Equal(t, total, b)
}

func TestDeallocateExport(t *testing.T) {
	ptr := allocate(12)
	require.NotZero(t, ptr)
	count, _ := live()

	deallocate(ptr, 999)
	n, _ := live()
	assert.Equal(t, count-1, n)
}
