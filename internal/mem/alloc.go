// Package mem provides memory allocation utilities.
package mem

import (
	"unsafe"
)

// Alignment is the byte alignment required by the widest supported SIMD
// tier (64 bytes, AVX-512 class). Vector strides are padded to it.
const Alignment = 64

// AllocAligned allocates a byte slice of the given size whose first byte
// lies on an Alignment boundary.
//
// The slice is carved out of a slightly larger GC-managed allocation; the
// underlying array stays alive as long as the returned slice does, so there
// is no matching free call to get wrong.
func AllocAligned(size int) []byte {
	if size <= 0 {
		return nil
	}

	buf := make([]byte, size+Alignment)

	addr := uintptr(unsafe.Pointer(&buf[0])) //nolint:gosec // required for alignment math
	offset := (Alignment - (addr & (Alignment - 1))) & (Alignment - 1)

	return buf[offset : offset+uintptr(size)]
}

// AllocAlignedFloat32 allocates a float32 slice of the given length with
// Alignment-byte alignment.
func AllocAlignedFloat32(size int) []float32 {
	if size <= 0 {
		return nil
	}

	b := AllocAligned(size * 4)
	ptr := unsafe.Pointer(&b[0])               //nolint:gosec // required for reinterpretation
	return unsafe.Slice((*float32)(ptr), size) //nolint:gosec // 64-byte alignment implies 4-byte
}

// IsAligned reports whether the first byte of b lies on an Alignment
// boundary. Empty slices are trivially aligned.
func IsAligned(b []byte) bool {
	if len(b) == 0 {
		return true
	}
	addr := uintptr(unsafe.Pointer(&b[0])) //nolint:gosec // required for alignment check
	return addr&(Alignment-1) == 0
}
