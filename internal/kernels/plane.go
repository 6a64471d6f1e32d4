// Package kernels declares the three opaque DSP capability interfaces
// spec.md §6 describes — Converter, ChannelMixer, Resampler — and ships one
// default Go implementation of each. spec.md is explicit that the SIMD
// internals of these kernels are out of scope; the default implementations
// here exist so the node is runnable end to end, not as a claim that they
// are the production-grade kernels a real deployment would ship.
package kernels

import "unsafe"

// Plane is one channel's (or, for interleaved data, one block's) worth of
// raw sample bytes for a single tick. It is the uniform addressing the
// three kernel interfaces pass data through, regardless of whether the
// underlying encoding is a negotiated raw format or the internal DSP
// float32 format — mirroring how the node's scratch rings (spec.md §4.5
// step 5) are untyped byte regions reinterpreted per stage.
type Plane struct {
	Bytes []byte
}

// Float32 reinterprets the plane's bytes as a float32 slice without
// copying. It is only valid to call on a plane known to carry the DSP
// float32 format; every stage that hands a Plane to a kernel knows which
// side of the convert boundary it is on.
func (p Plane) Float32() []float32 {
	if len(p.Bytes) == 0 {
		return nil
	}
	n := len(p.Bytes) / 4
	return unsafe.Slice((*float32)(unsafe.Pointer(&p.Bytes[0])), n)
}

// PlaneOfFloat32 wraps a float32 slice as a Plane without copying, for
// building scratch planes the kernels will write DSP samples into.
func PlaneOfFloat32(f []float32) Plane {
	if len(f) == 0 {
		return Plane{}
	}
	n := len(f) * 4
	return Plane{Bytes: unsafe.Slice((*byte)(unsafe.Pointer(&f[0])), n)}
}
