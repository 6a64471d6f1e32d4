// Package platform implements the two host capabilities spec.md §6 says the
// node consumes directly rather than through the DSP kernel interfaces: CPU
// feature detection and a levelled logger. Detection follows a "detect
// once, fall back safely" shape throughout.
package platform

import "golang.org/x/sys/cpu"

// Features is a bitset of SIMD feature flags a kernel may specialise on,
// mirroring spec.md §6's "CPU: query feature-flag bitset" capability. Kernel
// implementations are free to ignore bits they don't specialise for.
type Features uint32

const (
	FeatureSSE2 Features = 1 << iota
	FeatureAVX
	FeatureAVX2
	FeatureFMA
	FeatureNEON
)

func (f Features) Has(bit Features) bool { return f&bit != 0 }

// DetectFeatures reads the host's real CPU feature bits via golang.org/x/sys/cpu.
// An all-zero result is never wrong, just unspecialised — it only means
// kernels must use their scalar path.
func DetectFeatures() Features {
	var f Features
	if cpu.X86.HasSSE2 {
		f |= FeatureSSE2
	}
	if cpu.X86.HasAVX {
		f |= FeatureAVX
	}
	if cpu.X86.HasAVX2 {
		f |= FeatureAVX2
	}
	if cpu.X86.HasFMA {
		f |= FeatureFMA
	}
	if cpu.ARM64.HasASIMD {
		f |= FeatureNEON
	}
	return f
}

// MaxAlign returns the platform's widest SIMD alignment in bytes
// (spec.md §3 "Pipeline state", §9 "Real-time discipline"). The anode
// package does not use this value: it rounds scratch sizes to, and checks
// registered buffer blocks against, its own fixed 64-byte alignment.
func MaxAlign(f Features) int {
	switch {
	case f.Has(FeatureAVX2) || f.Has(FeatureAVX):
		return 32
	case f.Has(FeatureSSE2) || f.Has(FeatureNEON):
		return 16
	default:
		return 8
	}
}

// CPU is the host-supplied capability spec.md §6 describes: a one-shot
// feature query plus the derived alignment, captured at node creation and
// handed to every kernel's Init call.
type CPU struct {
	Features Features
	MaxAlign int
}

// DetectCPU builds a CPU capability from the real host, the way a host
// graph runtime would construct one to pass into the node's constructor.
func DetectCPU() CPU {
	f := DetectFeatures()
	return CPU{Features: f, MaxAlign: MaxAlign(f)}
}
