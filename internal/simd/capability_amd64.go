//go:build amd64

package simd

import "golang.org/x/sys/cpu"

func init() {
	has128 = true // SSE2 is part of the x86-64 baseline
	has256 = cpu.X86.HasAVX2 && cpu.X86.HasFMA
	has512 = cpu.X86.HasAVX512F && cpu.X86.HasAVX512BW
	initCapabilities()
}
