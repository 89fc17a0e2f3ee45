package dsp

import (
	"strings"

	"golang.org/x/sys/cpu"
)

// HasAVX2 reports whether the CPU supports AVX2 and the OS saves YMM state.
func HasAVX2() bool {
	return cpu.X86.HasAVX2
}

// HasNEON reports whether the CPU supports ARM Advanced SIMD.
func HasNEON() bool {
	return cpu.ARM64.HasASIMD
}

// Features returns a space-separated list of the SIMD extensions the lowres
// kernels care about, or "none".
func Features() string {
	var f []string
	if cpu.X86.HasSSE2 {
		f = append(f, "sse2")
	}
	if cpu.X86.HasSSSE3 {
		f = append(f, "ssse3")
	}
	if cpu.X86.HasAVX2 {
		f = append(f, "avx2")
	}
	if cpu.X86.HasAVX512BW {
		f = append(f, "avx512bw")
	}
	if cpu.ARM64.HasASIMD {
		f = append(f, "neon")
	}
	if len(f) == 0 {
		return "none"
	}
	return strings.Join(f, " ")
}
