package memstore

import (
	"fmt"

	vectorcore "github.com/hupe1980/vectorcore"
	"github.com/hupe1980/vectorcore/internal/mem"
	"github.com/hupe1980/vectorcore/space"
)

// VectorBatch is a fixed-capacity block of vector slots packed at the
// space's aligned stride. Capacity is set at construction and never
// changes; the store grows by appending whole batches.
type VectorBatch struct {
	data     []byte
	stride   int
	dataSize int
	capacity int
}

// NewVectorBatch allocates an aligned, zeroed batch of capacity slots laid
// out per sp.
func NewVectorBatch(sp *space.Space, capacity int) (*VectorBatch, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("%w: batch capacity %d must be positive", vectorcore.ErrInvalidArgument, capacity)
	}

	data := sp.AlignAllocateVector(capacity)
	if data == nil {
		return nil, fmt.Errorf("%w: batch allocation of %d slots failed", vectorcore.ErrUnavailable, capacity)
	}

	return &VectorBatch{
		data:     data,
		stride:   sp.VectorByteSize,
		dataSize: sp.DataSize,
		capacity: capacity,
	}, nil
}

// At returns the payload span of a slot. The span excludes the stride
// padding; it is exactly one encoded vector.
func (b *VectorBatch) At(slot int) []byte {
	off := slot * b.stride
	return b.data[off : off+b.dataSize]
}

// Set copies vec into a slot. vec must be exactly one payload.
func (b *VectorBatch) Set(slot int, vec []byte) {
	copy(b.At(slot), vec)
}

// Clear zeroes a slot, padding included.
func (b *VectorBatch) Clear(slot int) {
	off := slot * b.stride
	clear(b.data[off : off+b.stride])
}

// Capacity returns the number of slots.
func (b *VectorBatch) Capacity() int {
	return b.capacity
}

// BytesSize returns the allocated size of the batch in bytes.
func (b *VectorBatch) BytesSize() int {
	return len(b.data)
}

// Data returns the raw backing bytes, used by serializers.
func (b *VectorBatch) Data() []byte {
	return b.data
}

// Aligned reports whether the backing block starts on the alignment
// boundary. It holds for every batch built through NewVectorBatch.
func (b *VectorBatch) Aligned() bool {
	return mem.IsAligned(b.data)
}
