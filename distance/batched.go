package distance

import (
	"math/bits"
)

// Batched kernels replicate the scalar algorithm at a fixed lane width,
// accumulating per lane over the vectorizable prefix and reducing once at
// the end; the remainder runs through scalar accumulation. Lane widths map
// to SIMD tiers via Lanes. Only float32 (and, for the popcount metrics,
// uint8) encodings have tiered variants, mirroring the built-in operator
// set.

func reduce(acc []float32) float32 {
	var sum float32
	for _, v := range acc {
		sum += v
	}
	return sum
}

// L1Batched returns the L1 kernel at the given float32 lane width.
func L1Batched(lanes int) Func {
	return func(a, b []byte) float32 {
		pa, pb := f32Span(a), f32Span(b)
		n := len(pa)
		vec := n - n%lanes
		var acc [maxLanes]float32
		for i := 0; i < vec; i += lanes {
			for l := 0; l < lanes; l++ {
				acc[l] += abs32(pa[i+l] - pb[i+l])
			}
		}
		sum := reduce(acc[:lanes])
		for i := vec; i < n; i++ {
			sum += abs32(pa[i] - pb[i])
		}
		return sum
	}
}

// L1NormBatched returns the L1 norm at the given lane width.
func L1NormBatched(lanes int) NormFunc {
	return func(a []byte) float32 {
		pa := f32Span(a)
		n := len(pa)
		vec := n - n%lanes
		var acc [maxLanes]float32
		for i := 0; i < vec; i += lanes {
			for l := 0; l < lanes; l++ {
				acc[l] += abs32(pa[i+l])
			}
		}
		sum := reduce(acc[:lanes])
		for i := vec; i < n; i++ {
			sum += abs32(pa[i])
		}
		return sum
	}
}

// L2Batched returns the L2 kernel at the given lane width.
func L2Batched(lanes int) Func {
	return func(a, b []byte) float32 {
		pa, pb := f32Span(a), f32Span(b)
		n := len(pa)
		vec := n - n%lanes
		var acc [maxLanes]float32
		for i := 0; i < vec; i += lanes {
			for l := 0; l < lanes; l++ {
				d := pa[i+l] - pb[i+l]
				acc[l] += d * d
			}
		}
		sum := reduce(acc[:lanes])
		for i := vec; i < n; i++ {
			d := pa[i] - pb[i]
			sum += d * d
		}
		return sqrt32(sum)
	}
}

// L2NormBatched returns the L2 norm at the given lane width.
func L2NormBatched(lanes int) NormFunc {
	return func(a []byte) float32 {
		pa := f32Span(a)
		n := len(pa)
		vec := n - n%lanes
		var acc [maxLanes]float32
		for i := 0; i < vec; i += lanes {
			for l := 0; l < lanes; l++ {
				acc[l] += pa[i+l] * pa[i+l]
			}
		}
		sum := reduce(acc[:lanes])
		for i := vec; i < n; i++ {
			sum += pa[i] * pa[i]
		}
		return sqrt32(sum)
	}
}

func ipSumBatched(a, b []byte, lanes int) float32 {
	pa, pb := f32Span(a), f32Span(b)
	n := len(pa)
	vec := n - n%lanes
	var acc [maxLanes]float32
	for i := 0; i < vec; i += lanes {
		for l := 0; l < lanes; l++ {
			acc[l] += pa[i+l] * pb[i+l]
		}
	}
	sum := reduce(acc[:lanes])
	for i := vec; i < n; i++ {
		sum += pa[i] * pb[i]
	}
	return sum
}

// IPBatched returns the inner-product kernel at the given lane width,
// including the square root the scalar reference applies.
func IPBatched(lanes int) Func {
	return func(a, b []byte) float32 {
		return sqrt32(ipSumBatched(a, b, lanes))
	}
}

// CosineBatched returns the cosine kernel at the given lane width.
func CosineBatched(lanes int) Func {
	return func(a, b []byte) float32 {
		pa, pb := f32Span(a), f32Span(b)
		n := len(pa)
		vec := n - n%lanes
		var dot, na, nb [maxLanes]float32
		for i := 0; i < vec; i += lanes {
			for l := 0; l < lanes; l++ {
				av, bv := pa[i+l], pb[i+l]
				dot[l] += av * bv
				na[l] += av * av
				nb[l] += bv * bv
			}
		}
		sum := reduce(dot[:lanes])
		normA := reduce(na[:lanes])
		normB := reduce(nb[:lanes])
		for i := vec; i < n; i++ {
			av, bv := pa[i], pb[i]
			sum += av * bv
			normA += av * av
			normB += bv * bv
		}
		if normA == 0 || normB == 0 {
			return 0
		}
		return sum / sqrt32(normA*normB)
	}
}

// AngleBatched returns the angle kernel at the given lane width.
func AngleBatched(lanes int) Func {
	cosine := CosineBatched(lanes)
	return func(a, b []byte) float32 {
		return clampAcos(cosine(a, b))
	}
}

// NormalizedCosineBatched returns the normalized-cosine kernel at the
// given lane width (plain inner product under the unit-norm precondition).
func NormalizedCosineBatched(lanes int) Func {
	return IPBatched(lanes)
}

// NormalizedL2Batched returns the normalized-L2 kernel at the given lane
// width.
func NormalizedL2Batched(lanes int) Func {
	ip := IPBatched(lanes)
	return func(a, b []byte) float32 {
		v := 2.0 - 2.0*ip(a, b)
		if v < 0 {
			return 0
		}
		return sqrt32(v)
	}
}

// NormalizedAngleBatched returns the normalized-angle kernel at the given
// lane width.
func NormalizedAngleBatched(lanes int) Func {
	ip := IPBatched(lanes)
	return func(a, b []byte) float32 {
		return clampAcos(ip(a, b))
	}
}

// NormalizeL2Batched returns the L2 normalization at the given lane width.
func NormalizeL2Batched(lanes int) NormalizeFunc {
	norm := L2NormBatched(lanes)
	return func(in, out []byte) {
		n := norm(in)
		dst := f32Span(out)
		if n == 0 {
			for i := range dst {
				dst[i] = 0
			}
			return
		}
		src := f32Span(in)
		size := len(src)
		vec := size - size%lanes
		for i := 0; i < vec; i += lanes {
			for l := 0; l < lanes; l++ {
				dst[i+l] = src[i+l] / n
			}
		}
		for i := vec; i < size; i++ {
			dst[i] = src[i] / n
		}
	}
}

// HammingBlocked returns the Hamming kernel processing the given number of
// 64-bit words per chunk. Population counts are exact, so every block size
// agrees with the scalar reference bit for bit.
func HammingBlocked(words int) Func {
	return func(a, b []byte) float32 {
		pa, pb := u64Span(a), u64Span(b)
		n := len(pa)
		vec := n - n%words
		var count int
		for i := 0; i < vec; i += words {
			for w := 0; w < words; w++ {
				count += bits.OnesCount64(pa[i+w] ^ pb[i+w])
			}
		}
		for i := vec; i < n; i++ {
			count += bits.OnesCount64(pa[i] ^ pb[i])
		}
		for j := n * 8; j < len(a); j++ {
			count += bits.OnesCount8(a[j] ^ b[j])
		}
		return float32(count)
	}
}

// JaccardBlocked returns the Jaccard kernel processing the given number of
// 64-bit words per chunk.
func JaccardBlocked(words int) Func {
	return func(a, b []byte) float32 {
		pa, pb := u64Span(a), u64Span(b)
		n := len(pa)
		vec := n - n%words
		var inter, union int
		for i := 0; i < vec; i += words {
			for w := 0; w < words; w++ {
				inter += bits.OnesCount64(pa[i+w] & pb[i+w])
				union += bits.OnesCount64(pa[i+w] | pb[i+w])
			}
		}
		for i := vec; i < n; i++ {
			inter += bits.OnesCount64(pa[i] & pb[i])
			union += bits.OnesCount64(pa[i] | pb[i])
		}
		for j := n * 8; j < len(a); j++ {
			inter += bits.OnesCount8(a[j] & b[j])
			union += bits.OnesCount8(a[j] | b[j])
		}
		if union == 0 {
			return 0
		}
		return 1 - float32(inter)/float32(union)
	}
}
