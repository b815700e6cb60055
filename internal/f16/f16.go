// Package f16 converts between IEEE-754 binary16 bit-patterns and float32.
//
// Float16 is a storage encoding only: the distance kernels decode each
// element to float32, accumulate in float32, and re-encode on the write
// side of normalization.
package f16

import "math"

// Bits is a raw binary16 value: 1 sign bit, 5 exponent bits (bias 15),
// 10 fraction bits.
type Bits uint16

const (
	h16Sign Bits = 0x8000
	h16Exp  Bits = 0x7C00
	h16Frac Bits = 0x03FF

	f32Exp  uint32 = 0x7F800000
	f32Frac uint32 = 0x007FFFFF
)

// ToFloat32 widens a binary16 bit-pattern. Every binary16 value is exactly
// representable in float32, so widening never rounds.
func ToFloat32(h Bits) float32 {
	sign := uint32(h&h16Sign) << 16
	exp := int32(h&h16Exp) >> 10
	frac := uint32(h & h16Frac)

	if exp == 0x1F {
		if frac == 0 {
			return math.Float32frombits(sign | f32Exp)
		}
		return math.Float32frombits(sign | f32Exp | frac<<13)
	}

	if exp == 0 {
		if frac == 0 {
			return math.Float32frombits(sign)
		}
		// Subnormal: shift the fraction up until its leading bit becomes
		// the implicit 1 of a float32 normal, adjusting the exponent per
		// shift.
		e := int32(-14)
		for frac&0x0400 == 0 {
			frac <<= 1
			e--
		}
		frac &= 0x03FF
		return math.Float32frombits(sign | uint32(e+127)<<23 | frac<<13)
	}

	return math.Float32frombits(sign | uint32(exp-15+127)<<23 | frac<<13)
}

// FromFloat32 narrows a float32 value, rounding to nearest with ties to
// even. Overflow saturates to infinity; values below the subnormal range
// flush to signed zero.
func FromFloat32(f float32) Bits {
	w := math.Float32bits(f)
	sign := Bits(w>>16) & h16Sign
	exp := int32(w&f32Exp) >> 23
	frac := w & f32Frac

	if exp == 0xFF {
		if frac == 0 {
			return sign | h16Exp
		}
		// Keep the NaN quiet and its payload non-zero so it stays a NaN
		// after truncation.
		payload := Bits(frac>>13) | 0x0200
		return sign | h16Exp | payload&h16Frac
	}

	// Float32 zeros and subnormals are below binary16 resolution.
	if exp == 0 {
		return sign
	}

	e := exp - 127 + 15

	if e >= 0x1F {
		return sign | h16Exp
	}

	if e <= 0 {
		if e < -10 {
			return sign
		}
		// Subnormal result: fold the implicit 1 back in, then shift down
		// to a 10-bit mantissa with round-to-nearest-even on the dropped
		// bits.
		mant := frac | 0x00800000
		shift := uint32(14-e) // 13 fraction bits plus (1 - e)
		m := mant >> shift
		rem := mant & (1<<shift - 1)
		half := uint32(1) << (shift - 1)
		if rem > half || (rem == half && m&1 == 1) {
			m++
		}
		return sign | Bits(m)
	}

	m := frac >> 13
	rem := frac & 0x1FFF
	if rem > 0x1000 || (rem == 0x1000 && m&1 == 1) {
		m++
		if m == 0x0400 {
			// Rounding carried out of the mantissa into the exponent.
			m = 0
			e++
			if e >= 0x1F {
				return sign | h16Exp
			}
		}
	}

	return sign | Bits(e)<<10 | Bits(m)
}
