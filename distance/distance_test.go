package distance

import (
	"math"
	"math/rand"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/vectorcore/internal/f16"
	"github.com/hupe1980/vectorcore/internal/mem"
	"github.com/hupe1980/vectorcore/metric"
)

func f32Bytes(vals []float32) []byte {
	// Allocate aligned so batched kernels run under their assumed layout.
	buf := mem.AllocAligned(len(vals) * 4)
	copy(buf, unsafe.Slice((*byte)(unsafe.Pointer(&vals[0])), len(vals)*4))
	return buf
}

func f16Bytes(vals []float32) []byte {
	buf := mem.AllocAligned(len(vals) * 2)
	dst := unsafe.Slice((*uint16)(unsafe.Pointer(&buf[0])), len(vals))
	for i, v := range vals {
		dst[i] = uint16(f16.FromFloat32(v))
	}
	return buf
}

func randomF32Bytes(rng *rand.Rand, n int) []byte {
	vals := make([]float32, n)
	for i := range vals {
		vals[i] = rng.Float32()*2 - 1
	}
	return f32Bytes(vals)
}

func TestL1Scalar(t *testing.T) {
	tests := []struct {
		name     string
		a, b     []float32
		expected float32
	}{
		{"Simple", []float32{1, 2, 3}, []float32{4, 5, 6}, 9},
		{"Identical", []float32{1, 2, 3, 4, 5}, []float32{1, 2, 3, 4, 5}, 0},
		{"Mixed", []float32{1, -1, 2, -2, 3}, []float32{-1, 1, -2, 2, -3}, 18},
		{"Single", []float32{2}, []float32{5}, 3},
	}

	fn, ok := L1(metric.DataTypeFloat32)
	require.True(t, ok)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := fn(f32Bytes(tt.a), f32Bytes(tt.b))
			assert.InDelta(t, tt.expected, got, 1e-5)
		})
	}
}

func TestL1Uint8(t *testing.T) {
	fn, ok := L1(metric.DataTypeUint8)
	require.True(t, ok)

	a := []byte{1, 2, 3, 200, 7}
	b := []byte{4, 2, 1, 100, 7}
	assert.InDelta(t, float32(3+0+2+100+0), fn(a, b), 1e-5)
}

func TestL2Scalar(t *testing.T) {
	fn, ok := L2(metric.DataTypeFloat32)
	require.True(t, ok)

	a := []float32{1, 2, 3}
	b := []float32{4, 5, 6}
	// sqrt(27)
	assert.InDelta(t, float32(math.Sqrt(27)), fn(f32Bytes(a), f32Bytes(b)), 1e-5)
	assert.InDelta(t, 0, fn(f32Bytes(a), f32Bytes(a)), 1e-6)
}

func TestIPScalarKeepsSquareRoot(t *testing.T) {
	fn, ok := IP(metric.DataTypeFloat32)
	require.True(t, ok)

	a := []float32{1, 2, 3}
	b := []float32{4, 5, 6}
	// The IP family roots its accumulated sum: sqrt(32).
	assert.InDelta(t, float32(math.Sqrt(32)), fn(f32Bytes(a), f32Bytes(b)), 1e-5)

	// A negative sum NaNs, preserved from the reference behavior.
	neg := fn(f32Bytes([]float32{1, 0}), f32Bytes([]float32{-1, 0}))
	assert.True(t, math.IsNaN(float64(neg)))
}

func TestCosineScalar(t *testing.T) {
	fn, ok := Cosine(metric.DataTypeFloat32)
	require.True(t, ok)

	t.Run("SelfSimilarity", func(t *testing.T) {
		v := f32Bytes([]float32{0.3, -1.5, 2.25, 4})
		assert.InDelta(t, 1.0, fn(v, v), 1e-5)
	})

	t.Run("ZeroVectors", func(t *testing.T) {
		z := f32Bytes(make([]float32, 8))
		assert.Equal(t, float32(0), fn(z, z))
	})

	t.Run("ZeroAgainstNonZero", func(t *testing.T) {
		z := f32Bytes(make([]float32, 4))
		v := f32Bytes([]float32{1, 2, 3, 4})
		assert.Equal(t, float32(0), fn(z, v))
	})

	t.Run("Orthogonal", func(t *testing.T) {
		a := f32Bytes([]float32{1, 0, 0, 0})
		b := f32Bytes([]float32{0, 1, 0, 0})
		assert.InDelta(t, 0, fn(a, b), 1e-6)
	})
}

func TestAngleScalarClamp(t *testing.T) {
	fn, ok := Angle(metric.DataTypeFloat32)
	require.True(t, ok)

	same := f32Bytes([]float32{1, 2, 3, 4})
	assert.InDelta(t, 0, fn(same, same), 1e-3)

	opp := f32Bytes([]float32{-1, -2, -3, -4})
	assert.InDelta(t, math.Pi, fn(same, opp), 1e-3)
}

func TestHamming(t *testing.T) {
	fn := Hamming()

	tests := []struct {
		name     string
		a, b     []byte
		expected float32
	}{
		{"Identical", []byte{0xFF, 0x00, 0xAA, 0x55}, []byte{0xFF, 0x00, 0xAA, 0x55}, 0},
		{"AllBitsDiffer", []byte{0x00, 0x00, 0x00, 0x00}, []byte{0xFF, 0xFF, 0xFF, 0xFF}, 32},
		{"OneBit", []byte{0x01, 0x00, 0x00, 0x00}, []byte{0x00, 0x00, 0x00, 0x00}, 1},
		{"TailBytes", []byte{0x0F, 0x00, 0x00, 0x00, 0xF0}, []byte{0x00, 0x00, 0x00, 0x00, 0x00}, 8},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, fn(tt.a, tt.b))
		})
	}
}

func TestJaccard(t *testing.T) {
	fn := Jaccard()

	t.Run("Disjoint", func(t *testing.T) {
		a := make([]byte, 16)
		b := make([]byte, 16)
		a[0] = 0x0F
		b[0] = 0xF0
		assert.Equal(t, float32(1.0), fn(a, b))
	})

	t.Run("IdenticalNonZero", func(t *testing.T) {
		a := make([]byte, 16)
		a[3] = 0xAB
		a[9] = 0x11
		assert.Equal(t, float32(0.0), fn(a, a))
	})

	t.Run("EmptyUnion", func(t *testing.T) {
		z := make([]byte, 16)
		assert.Equal(t, float32(0.0), fn(z, z))
	})

	t.Run("HalfOverlap", func(t *testing.T) {
		a := []byte{0x03, 0, 0, 0, 0, 0, 0, 0}
		b := []byte{0x01, 0, 0, 0, 0, 0, 0, 0}
		// intersection 1 bit, union 2 bits
		assert.InDelta(t, 0.5, fn(a, b), 1e-6)
	})
}

func TestNormalizedFamily(t *testing.T) {
	normalize, ok := NormalizeL2(metric.DataTypeFloat32)
	require.True(t, ok)

	raw := f32Bytes([]float32{3, 4, 0, 0})
	normalize(raw, raw)

	a := f32Span(raw)
	assert.InDelta(t, 0.6, a[0], 1e-6)
	assert.InDelta(t, 0.8, a[1], 1e-6)

	t.Run("SelfDistanceZero", func(t *testing.T) {
		nl2, ok := NormalizedL2(metric.DataTypeFloat32)
		require.True(t, ok)
		assert.InDelta(t, 0, nl2(raw, raw), 1e-3)

		na, ok := NormalizedAngle(metric.DataTypeFloat32)
		require.True(t, ok)
		assert.InDelta(t, 0, na(raw, raw), 1e-3)
	})

	t.Run("ZeroNormWritesZeros", func(t *testing.T) {
		in := f32Bytes(make([]float32, 4))
		out := f32Bytes([]float32{9, 9, 9, 9})
		normalize(in, out)
		for _, v := range f32Span(out) {
			assert.Equal(t, float32(0), v)
		}
	})
}

func TestNormalizeL2Float16(t *testing.T) {
	normalize, ok := NormalizeL2(metric.DataTypeFloat16)
	require.True(t, ok)

	in := f16Bytes([]float32{3, 4})
	out := make([]byte, len(in))
	normalize(in, out)

	vals := spanOf[uint16](out)
	assert.InDelta(t, 0.6, f16.ToFloat32(f16.Bits(vals[0])), 1e-3)
	assert.InDelta(t, 0.8, f16.ToFloat32(f16.Bits(vals[1])), 1e-3)
}

func TestFloat16KernelsMatchFloat32(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	vals1 := make([]float32, 64)
	vals2 := make([]float32, 64)
	for i := range vals1 {
		vals1[i] = rng.Float32()
		vals2[i] = rng.Float32()
	}

	families := []struct {
		name string
		pick func(metric.DataType) (Func, bool)
	}{
		{"L1", L1},
		{"L2", L2},
		{"IP", IP},
		{"Cosine", Cosine},
		{"Angle", Angle},
	}

	for _, fam := range families {
		t.Run(fam.name, func(t *testing.T) {
			h, ok := fam.pick(metric.DataTypeFloat16)
			require.True(t, ok)
			f, ok := fam.pick(metric.DataTypeFloat32)
			require.True(t, ok)

			got := h(f16Bytes(vals1), f16Bytes(vals2))
			want := f(f32Bytes(vals1), f32Bytes(vals2))
			// binary16 carries ~3 decimal digits.
			assert.InDelta(t, want, got, math.Abs(float64(want))*0.02+0.02)
		})
	}
}

// TestBatchedMatchesScalar is the cross-kernel consistency invariant: every
// tier of a metric agrees with the scalar reference on random inputs.
func TestBatchedMatchesScalar(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	type family struct {
		name    string
		scalar  Func
		batched func(int) Func
	}

	mustScalar := func(pick func(metric.DataType) (Func, bool)) Func {
		fn, ok := pick(metric.DataTypeFloat32)
		require.True(t, ok)
		return fn
	}

	families := []family{
		{"L1", mustScalar(L1), L1Batched},
		{"L2", mustScalar(L2), L2Batched},
		{"Cosine", mustScalar(Cosine), CosineBatched},
		{"Angle", mustScalar(Angle), AngleBatched},
		{"NormalizedL2", mustScalar(NormalizedL2), NormalizedL2Batched},
		{"NormalizedCosine", mustScalar(NormalizedCosine), NormalizedCosineBatched},
		{"NormalizedAngle", mustScalar(NormalizedAngle), NormalizedAngleBatched},
	}

	dims := []int{1, 3, 4, 7, 16, 33, 128, 257}
	lanes := []int{4, 8, 16}

	for _, fam := range families {
		t.Run(fam.name, func(t *testing.T) {
			for _, dim := range dims {
				vals := make([]float32, dim)
				for i := range vals {
					vals[i] = rng.Float32()
				}
				a := f32Bytes(vals)
				b := randomF32Bytes(rng, dim)
				// Normalized metrics assume unit-norm inputs, and their
				// shared inner-product core roots the accumulated sum, so
				// keep those operands non-negative.
				if fam.name[0] == 'N' {
					bvals := make([]float32, dim)
					for i := range bvals {
						bvals[i] = rng.Float32()
					}
					b = f32Bytes(bvals)
					NormalizeL2Batched(4)(a, a)
					NormalizeL2Batched(4)(b, b)
				}

				want := fam.scalar(a, b)
				for _, lane := range lanes {
					got := fam.batched(lane)(a, b)
					tol := math.Abs(float64(want))*1e-4 + 1e-4
					assert.InDelta(t, want, got, tol, "%s dim=%d lanes=%d", fam.name, dim, lane)
				}
			}
		})
	}
}

func TestIPBatchedMatchesScalar(t *testing.T) {
	// IP is checked separately: random signed inputs can produce a negative
	// sum whose square root is NaN, so inputs stay non-negative here.
	rng := rand.New(rand.NewSource(11))
	scalar, ok := IP(metric.DataTypeFloat32)
	require.True(t, ok)

	for _, dim := range []int{1, 5, 16, 127} {
		vals1 := make([]float32, dim)
		vals2 := make([]float32, dim)
		for i := 0; i < dim; i++ {
			vals1[i] = rng.Float32()
			vals2[i] = rng.Float32()
		}
		a, b := f32Bytes(vals1), f32Bytes(vals2)

		want := scalar(a, b)
		for _, lane := range []int{4, 8, 16} {
			assert.InDelta(t, want, IPBatched(lane)(a, b), math.Abs(float64(want))*1e-4+1e-4)
		}
	}
}

func TestPopcountBlockedMatchesScalar(t *testing.T) {
	rng := rand.New(rand.NewSource(99))

	for _, size := range []int{8, 16, 64, 72, 100} {
		a := make([]byte, size)
		b := make([]byte, size)
		rng.Read(a)
		rng.Read(b)

		wantH := Hamming()(a, b)
		wantJ := Jaccard()(a, b)
		for _, words := range []int{2, 4, 8} {
			assert.Equal(t, wantH, HammingBlocked(words)(a, b), "hamming size=%d words=%d", size, words)
			assert.Equal(t, wantJ, JaccardBlocked(words)(a, b), "jaccard size=%d words=%d", size, words)
		}
	}
}

func TestLanes(t *testing.T) {
	assert.Equal(t, 1, Lanes(metric.SimdNone))
	assert.Equal(t, 4, Lanes(metric.SimdSSE2))
	assert.Equal(t, 8, Lanes(metric.SimdAVX2))
	assert.Equal(t, 16, Lanes(metric.SimdAVX512))

	assert.Equal(t, 2, Words(metric.SimdSSE2))
	assert.Equal(t, 4, Words(metric.SimdAVX2))
	assert.Equal(t, 8, Words(metric.SimdAVX512))
}

func TestUnsupportedDataTypes(t *testing.T) {
	_, ok := L1(metric.DataTypeNone)
	assert.False(t, ok)

	_, ok = NormalizedL2(metric.DataTypeUint8)
	assert.False(t, ok)

	_, ok = NormalizeL2(metric.DataTypeUint8)
	assert.False(t, ok)
}
