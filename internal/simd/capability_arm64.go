//go:build arm64

package simd

import "golang.org/x/sys/cpu"

func init() {
	// NEON is 128-bit class; SVE2 covers the 256-bit class on Graviton and
	// Ampere. There is no 512-bit class on arm64.
	has128 = cpu.ARM64.HasASIMD
	has256 = cpu.ARM64.HasSVE2
	initCapabilities()
}
