package distance

import (
	"math"
	"unsafe"

	"github.com/hupe1980/vectorcore/internal/f16"
	"github.com/hupe1980/vectorcore/metric"
)

// Func computes a pairwise distance over two equal-length byte spans.
//
// SAFETY: Kernels assume len(a) == len(b). Callers MUST ensure lengths match
// to avoid buffer over-reads.
type Func func(a, b []byte) float32

// NormalizeFunc writes an L2-normalized copy of in into out. in and out may
// alias for in-place normalization. If in has zero norm, out is zero-filled.
type NormalizeFunc func(in, out []byte)

// NormFunc computes a scalar norm of a single vector span.
type NormFunc func(a []byte) float32

// Lanes returns the float32 lane width of a SIMD tier: the number of
// elements a batched kernel processes per chunk.
func Lanes(level metric.SimdLevel) int {
	switch level {
	case metric.SimdSSE2:
		return 4
	case metric.SimdAVX2:
		return 8
	case metric.SimdAVX512:
		return 16
	default:
		return 1
	}
}

// Words returns the 64-bit word width of a SIMD tier, used by the popcount
// kernels (Hamming, Jaccard).
func Words(level metric.SimdLevel) int {
	switch level {
	case metric.SimdSSE2:
		return 2
	case metric.SimdAVX2:
		return 4
	case metric.SimdAVX512:
		return 8
	default:
		return 1
	}
}

// maxLanes bounds the per-call lane accumulators (AVX-512 class).
const maxLanes = 16

// elem constrains the raw element encodings a span can hold. Float16
// elements travel as uint16 bit-patterns.
type elem interface {
	~uint8 | ~uint16 | ~float32
}

// decoder turns a raw element into its float32 value. Implementations are
// zero-size structs so instantiated kernels compile to direct calls.
type decoder[T elem] interface {
	decode(T) float32
}

type u8Dec struct{}

func (u8Dec) decode(v uint8) float32 { return float32(v) }

type f16Dec struct{}

func (f16Dec) decode(v uint16) float32 { return f16.ToFloat32(f16.Bits(v)) }

type f32Dec struct{}

func (f32Dec) decode(v float32) float32 { return v }

// codec extends decoder with the write side used by normalization.
type codec[T elem] interface {
	decoder[T]
	encode(float32) T
}

type f16Codec struct{ f16Dec }

func (f16Codec) encode(v float32) uint16 { return uint16(f16.FromFloat32(v)) }

type f32Codec struct{ f32Dec }

func (f32Codec) encode(v float32) float32 { return v }

// spanOf reinterprets a byte span as a span of raw elements.
func spanOf[T elem](b []byte) []T {
	var zero T
	n := len(b) / int(unsafe.Sizeof(zero))
	if n == 0 {
		return nil
	}
	return unsafe.Slice((*T)(unsafe.Pointer(&b[0])), n) //nolint:gosec // span reinterpretation
}

func f32Span(b []byte) []float32 { return spanOf[float32](b) }

func u64Span(b []byte) []uint64 { return spanOf64(b) }

// spanOf64 is split out because uint64 is not a storable element type.
func spanOf64(b []byte) []uint64 {
	n := len(b) / 8
	if n == 0 {
		return nil
	}
	return unsafe.Slice((*uint64)(unsafe.Pointer(&b[0])), n) //nolint:gosec // span reinterpretation
}

func u32Span(b []byte) []uint32 {
	n := len(b) / 4
	if n == 0 {
		return nil
	}
	return unsafe.Slice((*uint32)(unsafe.Pointer(&b[0])), n) //nolint:gosec // span reinterpretation
}

func abs32(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}

func sqrt32(v float32) float32 {
	return float32(math.Sqrt(float64(v)))
}

// clampAcos maps a cosine value to an angle, clamping numerically drifted
// inputs: >= 1 is an identical direction (0), <= -1 an opposite one (pi).
func clampAcos(cosine float32) float32 {
	switch {
	case cosine >= 1.0:
		return 0
	case cosine <= -1.0:
		return math.Pi
	default:
		return float32(math.Acos(float64(cosine)))
	}
}
