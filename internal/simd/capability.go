// Package simd detects the SIMD capability tier of the running CPU.
//
// Kernel selection is purely a capability concern: tiered kernels are
// lane-width batched pure Go and remain callable everywhere, but the
// registry only advertises tiers this package reports as supported.
package simd

import (
	"os"

	"github.com/hupe1980/vectorcore/metric"
)

// Package-level state - initialized once at package init.
// No mutex needed: Go guarantees init() runs before any other code.
var (
	maxLevel metric.SimdLevel
	archName = "generic"

	// CPU feature flags (set by platform-specific init)
	has128 bool // SSE2 on x86-64, ASIMD/NEON on arm64
	has256 bool // AVX2+FMA on x86-64, SVE2 on arm64
	has512 bool // AVX-512 F+BW on x86-64
)

// initCapabilities is called from platform-specific init functions
// after CPU features are detected.
func initCapabilities() {
	switch {
	case has512:
		maxLevel = metric.SimdAVX512
	case has256:
		maxLevel = metric.SimdAVX2
	case has128:
		maxLevel = metric.SimdSSE2
	default:
		maxLevel = metric.SimdNone
	}

	// Environment override caps (never raises) the advertised tier.
	if override := os.Getenv("VECTORCORE_SIMD"); override != "" {
		if level, ok := metric.ParseSimdLevel(override); ok && level < maxLevel {
			maxLevel = level
		}
	}

	archName = maxLevel.String()
	if maxLevel == metric.SimdNone {
		archName = "generic"
	}
}

// MaxLevel returns the highest SIMD tier supported by the running CPU.
func MaxLevel() metric.SimdLevel {
	return maxLevel
}

// Supported reports whether kernels of the given tier may be selected.
// Tiers are a ladder: every tier at or below MaxLevel is available.
func Supported(level metric.SimdLevel) bool {
	return level.Valid() && level <= maxLevel
}

// ArchName returns a human-readable name of the selected tier, recorded by
// the vector space for introspection.
func ArchName() string {
	return archName
}
