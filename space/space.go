// Package space describes the memory layout and kernel bindings of a vector
// collection: dimensionality, element encoding, the cache-line padded byte
// stride, and the operators that compute distances over it.
package space

import (
	"fmt"

	vectorcore "github.com/hupe1980/vectorcore"
	"github.com/hupe1980/vectorcore/internal/mem"
	"github.com/hupe1980/vectorcore/internal/simd"
	"github.com/hupe1980/vectorcore/metric"
	"github.com/hupe1980/vectorcore/registry"
)

// Space is an immutable description of a vector collection's layout. Build
// one with New and share it; all fields are read-only after construction.
type Space struct {
	// Dim is the number of elements per vector.
	Dim int

	Metric    metric.Type
	DataType  metric.DataType
	SimdLevel metric.SimdLevel

	// ElementSize is the encoded size of one element in bytes.
	ElementSize int

	// DataSize is the unpadded payload size of one vector, ElementSize*Dim.
	DataSize int

	// VectorByteSize is the storage stride of one vector: DataSize rounded
	// up to the alignment boundary. Vectors packed at this stride keep
	// every vector start aligned.
	VectorByteSize int

	// AlignmentBytes is the boundary VectorByteSize is padded to.
	AlignmentBytes int

	// NeedNormalizeVector mirrors the operator flag: vectors must be
	// normalized before they are stored or compared.
	NeedNormalizeVector bool

	// ArchName names the CPU architecture the kernels were selected for.
	ArchName string

	// Standard is the scalar reference operator, always present. It is the
	// ground truth the tiered operator must agree with.
	Standard *registry.OperatorEntity

	// Operation is the active operator at the requested SIMD tier.
	Operation *registry.OperatorEntity
}

// New builds a Space over reg for the given layout and SIMD tier. The
// registry must resolve both the scalar operator and the operator at the
// requested tier; there is no silent tier degradation.
func New(reg *registry.Registry, dim int, m metric.Type, dt metric.DataType, level metric.SimdLevel) (*Space, error) {
	if reg == nil {
		return nil, fmt.Errorf("%w: nil registry", vectorcore.ErrInvalidArgument)
	}

	if dim <= 0 {
		return nil, fmt.Errorf("%w: dimension %d must be positive", vectorcore.ErrInvalidArgument, dim)
	}

	elemSize, err := dt.Size()
	if err != nil {
		return nil, err
	}

	standard, err := reg.GetMetricOperator(m, dt, metric.SimdNone)
	if err != nil {
		return nil, fmt.Errorf("resolve standard operator: %w", err)
	}

	operation, err := reg.GetMetricOperator(m, dt, level)
	if err != nil {
		return nil, fmt.Errorf("resolve operator at tier %s: %w", level, err)
	}

	dataSize := elemSize * dim

	return &Space{
		Dim:                 dim,
		Metric:              m,
		DataType:            dt,
		SimdLevel:           level,
		ElementSize:         elemSize,
		DataSize:            dataSize,
		VectorByteSize:      alignUp(dataSize, mem.Alignment),
		AlignmentBytes:      mem.Alignment,
		NeedNormalizeVector: standard.NeedNormalizeVector,
		ArchName:            simd.ArchName(),
		Standard:            standard,
		Operation:           operation,
	}, nil
}

// NewMaxTier builds a Space at the highest SIMD tier the running CPU
// supports.
func NewMaxTier(reg *registry.Registry, dim int, m metric.Type, dt metric.DataType) (*Space, error) {
	return New(reg, dim, m, dt, simd.MaxLevel())
}

func alignUp(n, boundary int) int {
	return (n + boundary - 1) / boundary * boundary
}

// AlignAllocateVector allocates a zeroed, aligned slab of n vectors at the
// space's stride. The stride keeps every vector start aligned, so this is
// the allocator behind all storage the tiered kernels touch.
func (s *Space) AlignAllocateVector(n int) []byte {
	if n <= 0 {
		return nil
	}

	return mem.AllocAligned(n * s.VectorByteSize)
}

// AllocateVector allocates n zeroed vectors at the stride without
// alignment guarantees. Use it for transient buffers that never reach the
// tiered kernels.
func (s *Space) AllocateVector(n int) []byte {
	if n <= 0 {
		return nil
	}

	return make([]byte, n*s.VectorByteSize)
}

// AlignAllocate allocates n zeroed elements, aligned. Auxiliary structures
// such as quantization codebooks allocate in element units rather than
// vector strides.
func (s *Space) AlignAllocate(n int) []byte {
	if n <= 0 {
		return nil
	}

	return mem.AllocAligned(n * s.ElementSize)
}

// Allocate allocates n zeroed elements without alignment guarantees.
func (s *Space) Allocate(n int) []byte {
	if n <= 0 {
		return nil
	}

	return make([]byte, n*s.ElementSize)
}

// IsAligned reports whether b starts on the space's alignment boundary.
func (s *Space) IsAligned(b []byte) bool {
	return mem.IsAligned(b)
}

// Distance computes the metric distance with the active tier operator.
func (s *Space) Distance(a, b []byte) float32 {
	return s.Operation.DistanceVector(a, b)
}

// StandardDistance computes the metric distance with the scalar reference
// operator.
func (s *Space) StandardDistance(a, b []byte) float32 {
	return s.Standard.DistanceVector(a, b)
}

// Normalize rewrites in to unit norm into out using the active operator.
// It is a no-op for metrics that do not require normalization. in and out
// may alias.
func (s *Space) Normalize(in, out []byte) {
	if !s.NeedNormalizeVector || s.Operation.NormalizeVector == nil {
		if len(in) > 0 && len(out) > 0 && &in[0] != &out[0] {
			copy(out, in)
		}

		return
	}

	s.Operation.NormalizeVector(in, out)
}
