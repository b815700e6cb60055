// Package metric defines the closed enumerations that key the operator
// registry: distance metric, element data type and SIMD capability tier.
package metric

import (
	"fmt"
	"strings"

	"github.com/hupe1980/vectorcore"
)

// Type identifies a distance family.
type Type int32

const (
	Undefined Type = 0
	L1        Type = 1
	L2        Type = 2
	IP        Type = 3
	Hamming   Type = 4
	Jaccard   Type = 5
	Cosine    Type = 6
	Angle     Type = 7
	// Normalized variants require the caller to pre-normalize operands to
	// unit L2 norm; they reuse the inner-product kernels.
	NormalizedL2     Type = 8
	NormalizedCosine Type = 9
	NormalizedAngle  Type = 10
	// Poincare and Lorentz are reserved hyperbolic metrics. No built-in
	// operator is registered for them.
	Poincare Type = 11
	Lorentz  Type = 12

	// TypeMax bounds the valid metric range, leaving headroom for custom
	// operator registration.
	TypeMax Type = 30
)

// Valid reports whether t lies in the registrable range (Undefined, TypeMax).
func (t Type) Valid() bool {
	return t > Undefined && t < TypeMax
}

func (t Type) String() string {
	switch t {
	case Undefined:
		return "undefined"
	case L1:
		return "l1"
	case L2:
		return "l2"
	case IP:
		return "ip"
	case Hamming:
		return "hamming"
	case Jaccard:
		return "jaccard"
	case Cosine:
		return "cosine"
	case Angle:
		return "angle"
	case NormalizedL2:
		return "normalized_l2"
	case NormalizedCosine:
		return "normalized_cosine"
	case NormalizedAngle:
		return "normalized_angle"
	case Poincare:
		return "poincare"
	case Lorentz:
		return "lorentz"
	default:
		return fmt.Sprintf("metric(%d)", int32(t))
	}
}

// ParseType parses a string into a metric Type.
func ParseType(s string) (Type, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "l1":
		return L1, true
	case "l2":
		return L2, true
	case "ip", "dot":
		return IP, true
	case "hamming":
		return Hamming, true
	case "jaccard":
		return Jaccard, true
	case "cosine":
		return Cosine, true
	case "angle":
		return Angle, true
	case "normalized_l2":
		return NormalizedL2, true
	case "normalized_cosine":
		return NormalizedCosine, true
	case "normalized_angle":
		return NormalizedAngle, true
	case "poincare":
		return Poincare, true
	case "lorentz":
		return Lorentz, true
	default:
		return Undefined, false
	}
}

// DataType identifies the element encoding of a vector.
type DataType int32

const (
	DataTypeNone    DataType = 0
	DataTypeUint8   DataType = 1
	DataTypeFloat16 DataType = 2
	DataTypeFloat32 DataType = 3
	DataTypeMax     DataType = 4
)

// Valid reports whether dt lies in the open interval (None, Max).
func (dt DataType) Valid() bool {
	return dt > DataTypeNone && dt < DataTypeMax
}

// Size returns the element byte width for dt.
func (dt DataType) Size() (int, error) {
	switch dt {
	case DataTypeUint8:
		return 1, nil
	case DataTypeFloat16:
		return 2, nil
	case DataTypeFloat32:
		return 4, nil
	default:
		return 0, fmt.Errorf("%w: unknown data type %d", vectorcore.ErrInvalidArgument, int32(dt))
	}
}

func (dt DataType) String() string {
	switch dt {
	case DataTypeNone:
		return "none"
	case DataTypeUint8:
		return "uint8"
	case DataTypeFloat16:
		return "float16"
	case DataTypeFloat32:
		return "float32"
	default:
		return fmt.Sprintf("datatype(%d)", int32(dt))
	}
}

// ParseDataType parses a string into a DataType.
func ParseDataType(s string) (DataType, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "uint8", "u8":
		return DataTypeUint8, true
	case "float16", "f16", "half":
		return DataTypeFloat16, true
	case "float32", "f32", "float":
		return DataTypeFloat32, true
	default:
		return DataTypeNone, false
	}
}

// SimdLevel is an ordered capability tier used purely for kernel selection,
// never for correctness: every tier of a metric is numerically consistent
// with the tier-none reference.
type SimdLevel int32

const (
	// SimdNone selects the portable scalar kernels.
	SimdNone SimdLevel = 0
	// SimdSSE2 selects 128-bit-class kernels (SSE2 on x86-64, NEON on arm64).
	SimdSSE2 SimdLevel = 1
	// SimdAVX2 selects 256-bit-class kernels.
	SimdAVX2 SimdLevel = 2
	// SimdAVX512 selects 512-bit-class kernels.
	SimdAVX512 SimdLevel = 3

	SimdMax SimdLevel = 4
)

// Valid reports whether l lies in [SimdNone, SimdMax).
func (l SimdLevel) Valid() bool {
	return l >= SimdNone && l < SimdMax
}

func (l SimdLevel) String() string {
	switch l {
	case SimdNone:
		return "none"
	case SimdSSE2:
		return "sse2"
	case SimdAVX2:
		return "avx2"
	case SimdAVX512:
		return "avx512"
	default:
		return fmt.Sprintf("simd(%d)", int32(l))
	}
}

// ParseSimdLevel parses a string into a SimdLevel.
func ParseSimdLevel(s string) (SimdLevel, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "none", "generic":
		return SimdNone, true
	case "sse2", "sse", "neon":
		return SimdSSE2, true
	case "avx2", "sve2":
		return SimdAVX2, true
	case "avx512":
		return SimdAVX512, true
	default:
		return SimdNone, false
	}
}
