package distance

import (
	"math/bits"

	"github.com/hupe1980/vectorcore/metric"
)

// Scalar kernels are the portable tier-none reference implementations.
// Accumulation is unrolled by 4 lanes with the remainder handled singly,
// matching the batched kernels closely enough that every tier stays inside
// rounding tolerance of these functions.

func l1Scalar[T elem, D decoder[T]](a, b []byte) float32 {
	var dec D
	pa, pb := spanOf[T](a), spanOf[T](b)
	var d float32
	i := 0
	for ; i+4 <= len(pa); i += 4 {
		d0 := dec.decode(pa[i]) - dec.decode(pb[i])
		d1 := dec.decode(pa[i+1]) - dec.decode(pb[i+1])
		d2 := dec.decode(pa[i+2]) - dec.decode(pb[i+2])
		d3 := dec.decode(pa[i+3]) - dec.decode(pb[i+3])
		d += abs32(d0) + abs32(d1) + abs32(d2) + abs32(d3)
	}
	for ; i < len(pa); i++ {
		d += abs32(dec.decode(pa[i]) - dec.decode(pb[i]))
	}
	return d
}

func l1NormScalar[T elem, D decoder[T]](a []byte) float32 {
	var dec D
	pa := spanOf[T](a)
	var d float32
	i := 0
	for ; i+4 <= len(pa); i += 4 {
		d += abs32(dec.decode(pa[i])) + abs32(dec.decode(pa[i+1])) +
			abs32(dec.decode(pa[i+2])) + abs32(dec.decode(pa[i+3]))
	}
	for ; i < len(pa); i++ {
		d += abs32(dec.decode(pa[i]))
	}
	return d
}

func l2Scalar[T elem, D decoder[T]](a, b []byte) float32 {
	var dec D
	pa, pb := spanOf[T](a), spanOf[T](b)
	var d float32
	i := 0
	for ; i+4 <= len(pa); i += 4 {
		d0 := dec.decode(pa[i]) - dec.decode(pb[i])
		d1 := dec.decode(pa[i+1]) - dec.decode(pb[i+1])
		d2 := dec.decode(pa[i+2]) - dec.decode(pb[i+2])
		d3 := dec.decode(pa[i+3]) - dec.decode(pb[i+3])
		d += d0*d0 + d1*d1 + d2*d2 + d3*d3
	}
	for ; i < len(pa); i++ {
		d0 := dec.decode(pa[i]) - dec.decode(pb[i])
		d += d0 * d0
	}
	return sqrt32(d)
}

func l2NormScalar[T elem, D decoder[T]](a []byte) float32 {
	var dec D
	pa := spanOf[T](a)
	var d float32
	i := 0
	for ; i+4 <= len(pa); i += 4 {
		v0 := dec.decode(pa[i])
		v1 := dec.decode(pa[i+1])
		v2 := dec.decode(pa[i+2])
		v3 := dec.decode(pa[i+3])
		d += v0*v0 + v1*v1 + v2*v2 + v3*v3
	}
	for ; i < len(pa); i++ {
		v := dec.decode(pa[i])
		d += v * v
	}
	return sqrt32(d)
}

// ipScalar takes a square root of the accumulated products. That root is
// unusual for an inner product and NaNs on a negative sum, but it is the
// shipped contract of this metric family and every tier reproduces it.
func ipScalar[T elem, D decoder[T]](a, b []byte) float32 {
	var dec D
	pa, pb := spanOf[T](a), spanOf[T](b)
	var d float32
	i := 0
	for ; i+4 <= len(pa); i += 4 {
		d += dec.decode(pa[i])*dec.decode(pb[i]) +
			dec.decode(pa[i+1])*dec.decode(pb[i+1]) +
			dec.decode(pa[i+2])*dec.decode(pb[i+2]) +
			dec.decode(pa[i+3])*dec.decode(pb[i+3])
	}
	for ; i < len(pa); i++ {
		d += dec.decode(pa[i]) * dec.decode(pb[i])
	}
	return sqrt32(d)
}

// cosineScalar accumulates the dot product and both squared norms in one
// pass. Zero vectors report 0 (maximally dissimilar) instead of dividing
// by zero.
func cosineScalar[T elem, D decoder[T]](a, b []byte) float32 {
	var dec D
	pa, pb := spanOf[T](a), spanOf[T](b)
	var sum, normA, normB float32
	for i := range pa {
		av := dec.decode(pa[i])
		bv := dec.decode(pb[i])
		sum += av * bv
		normA += av * av
		normB += bv * bv
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return sum / sqrt32(normA*normB)
}

func angleScalar[T elem, D decoder[T]](a, b []byte) float32 {
	return clampAcos(cosineScalar[T, D](a, b))
}

// Normalized variants: precondition is unit-L2-norm operands, under which
// cosine reduces to the plain inner product.

func normalizedCosineScalar[T elem, D decoder[T]](a, b []byte) float32 {
	return ipScalar[T, D](a, b)
}

func normalizedL2Scalar[T elem, D decoder[T]](a, b []byte) float32 {
	v := 2.0 - 2.0*ipScalar[T, D](a, b)
	if v < 0 {
		return 0
	}
	return sqrt32(v)
}

func normalizedAngleScalar[T elem, D decoder[T]](a, b []byte) float32 {
	return clampAcos(ipScalar[T, D](a, b))
}

// normalizeL2Scalar divides every element by the vector's L2 norm, writing
// zeros if the norm is zero. in and out may alias.
func normalizeL2Scalar[T elem, C codec[T]](in, out []byte) {
	var c C
	norm := l2NormScalar[T, C](in)
	dst := spanOf[T](out)
	if norm == 0 {
		for i := range dst {
			dst[i] = c.encode(0)
		}
		return
	}
	src := spanOf[T](in)
	for i := range src {
		dst[i] = c.encode(c.decode(src[i]) / norm)
	}
}

// hammingScalar is the bit-level Hamming distance: population count of XOR
// across 32-bit words. Defined only over exact byte-equal-length spans.
func hammingScalar(a, b []byte) float32 {
	pa, pb := u32Span(a), u32Span(b)
	var count int
	for i := range pa {
		count += bits.OnesCount32(pa[i] ^ pb[i])
	}
	for i := len(pa) * 4; i < len(a); i++ {
		count += bits.OnesCount8(a[i] ^ b[i])
	}
	return float32(count)
}

// jaccardScalar yields 1 - |A AND B| / |A OR B| over 64-bit words, 0 when the
// union is empty.
func jaccardScalar(a, b []byte) float32 {
	pa, pb := u64Span(a), u64Span(b)
	var inter, union int
	i := 0
	for ; i+4 <= len(pa); i += 4 {
		inter += bits.OnesCount64(pa[i]&pb[i]) + bits.OnesCount64(pa[i+1]&pb[i+1]) +
			bits.OnesCount64(pa[i+2]&pb[i+2]) + bits.OnesCount64(pa[i+3]&pb[i+3])
		union += bits.OnesCount64(pa[i]|pb[i]) + bits.OnesCount64(pa[i+1]|pb[i+1]) +
			bits.OnesCount64(pa[i+2]|pb[i+2]) + bits.OnesCount64(pa[i+3]|pb[i+3])
	}
	for ; i < len(pa); i++ {
		inter += bits.OnesCount64(pa[i] & pb[i])
		union += bits.OnesCount64(pa[i] | pb[i])
	}
	for j := len(pa) * 8; j < len(a); j++ {
		inter += bits.OnesCount8(a[j] & b[j])
		union += bits.OnesCount8(a[j] | b[j])
	}
	if union == 0 {
		return 0
	}
	return 1 - float32(inter)/float32(union)
}

// ----------------------------------------------------------------------------
// Data-type dispatch for the scalar reference kernels.
// ----------------------------------------------------------------------------

// L1 returns the scalar L1 kernel for dt.
func L1(dt metric.DataType) (Func, bool) {
	switch dt {
	case metric.DataTypeUint8:
		return l1Scalar[uint8, u8Dec], true
	case metric.DataTypeFloat16:
		return l1Scalar[uint16, f16Dec], true
	case metric.DataTypeFloat32:
		return l1Scalar[float32, f32Dec], true
	default:
		return nil, false
	}
}

// L1Norm returns the scalar L1 norm (sum of absolute values) for dt.
func L1Norm(dt metric.DataType) (NormFunc, bool) {
	switch dt {
	case metric.DataTypeUint8:
		return l1NormScalar[uint8, u8Dec], true
	case metric.DataTypeFloat16:
		return l1NormScalar[uint16, f16Dec], true
	case metric.DataTypeFloat32:
		return l1NormScalar[float32, f32Dec], true
	default:
		return nil, false
	}
}

// L2 returns the scalar L2 kernel for dt.
func L2(dt metric.DataType) (Func, bool) {
	switch dt {
	case metric.DataTypeUint8:
		return l2Scalar[uint8, u8Dec], true
	case metric.DataTypeFloat16:
		return l2Scalar[uint16, f16Dec], true
	case metric.DataTypeFloat32:
		return l2Scalar[float32, f32Dec], true
	default:
		return nil, false
	}
}

// L2Norm returns the scalar L2 norm for dt.
func L2Norm(dt metric.DataType) (NormFunc, bool) {
	switch dt {
	case metric.DataTypeUint8:
		return l2NormScalar[uint8, u8Dec], true
	case metric.DataTypeFloat16:
		return l2NormScalar[uint16, f16Dec], true
	case metric.DataTypeFloat32:
		return l2NormScalar[float32, f32Dec], true
	default:
		return nil, false
	}
}

// IP returns the scalar inner-product kernel for dt.
func IP(dt metric.DataType) (Func, bool) {
	switch dt {
	case metric.DataTypeUint8:
		return ipScalar[uint8, u8Dec], true
	case metric.DataTypeFloat16:
		return ipScalar[uint16, f16Dec], true
	case metric.DataTypeFloat32:
		return ipScalar[float32, f32Dec], true
	default:
		return nil, false
	}
}

// Cosine returns the scalar cosine kernel for dt.
func Cosine(dt metric.DataType) (Func, bool) {
	switch dt {
	case metric.DataTypeUint8:
		return cosineScalar[uint8, u8Dec], true
	case metric.DataTypeFloat16:
		return cosineScalar[uint16, f16Dec], true
	case metric.DataTypeFloat32:
		return cosineScalar[float32, f32Dec], true
	default:
		return nil, false
	}
}

// Angle returns the scalar angle kernel for dt.
func Angle(dt metric.DataType) (Func, bool) {
	switch dt {
	case metric.DataTypeUint8:
		return angleScalar[uint8, u8Dec], true
	case metric.DataTypeFloat16:
		return angleScalar[uint16, f16Dec], true
	case metric.DataTypeFloat32:
		return angleScalar[float32, f32Dec], true
	default:
		return nil, false
	}
}

// Hamming returns the bit-level Hamming kernel (uint8 encodings only).
func Hamming() Func {
	return hammingScalar
}

// Jaccard returns the bitwise Jaccard kernel (uint8 encodings only).
func Jaccard() Func {
	return jaccardScalar
}

// NormalizedL2 returns the scalar normalized-L2 kernel for dt. Only float
// encodings can hold unit-norm vectors.
func NormalizedL2(dt metric.DataType) (Func, bool) {
	switch dt {
	case metric.DataTypeFloat16:
		return normalizedL2Scalar[uint16, f16Dec], true
	case metric.DataTypeFloat32:
		return normalizedL2Scalar[float32, f32Dec], true
	default:
		return nil, false
	}
}

// NormalizedCosine returns the scalar normalized-cosine kernel for dt.
func NormalizedCosine(dt metric.DataType) (Func, bool) {
	switch dt {
	case metric.DataTypeFloat16:
		return normalizedCosineScalar[uint16, f16Dec], true
	case metric.DataTypeFloat32:
		return normalizedCosineScalar[float32, f32Dec], true
	default:
		return nil, false
	}
}

// NormalizedAngle returns the scalar normalized-angle kernel for dt.
func NormalizedAngle(dt metric.DataType) (Func, bool) {
	switch dt {
	case metric.DataTypeFloat16:
		return normalizedAngleScalar[uint16, f16Dec], true
	case metric.DataTypeFloat32:
		return normalizedAngleScalar[float32, f32Dec], true
	default:
		return nil, false
	}
}

// NormalizeL2 returns the scalar L2 normalization for dt.
func NormalizeL2(dt metric.DataType) (NormalizeFunc, bool) {
	switch dt {
	case metric.DataTypeFloat16:
		return normalizeL2Scalar[uint16, f16Codec], true
	case metric.DataTypeFloat32:
		return normalizeL2Scalar[float32, f32Codec], true
	default:
		return nil, false
	}
}
