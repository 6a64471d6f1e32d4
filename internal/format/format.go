package format

import "fmt"

// Format is a fully negotiated raw-audio layout: an encoding, a sample
// rate, a channel count, and an ordered channel-position vector of that
// length (spec.md §3, "Side").
type Format struct {
	Encoding    Encoding
	Interleaved bool
	Rate        uint32
	Channels    uint32
	Position    []Position
}

// DSP returns the canonical internal pipeline format for a given channel
// count and rate: 32-bit float, one channel per plane, native endianness
// (GLOSSARY "DSP format").
func DSP(channels uint32, rate uint32, position []Position) Format {
	return Format{
		Encoding:    EncodingDSPF32,
		Interleaved: false,
		Rate:        rate,
		Channels:    channels,
		Position:    position,
	}
}

// Valid reports whether f is internally consistent: channel count matches
// the position vector length, and the encoding is recognised.
func (f Format) Valid() bool {
	return f.Encoding != EncodingUnknown &&
		f.Channels > 0 &&
		uint32(len(f.Position)) == f.Channels
}

// IsDSP reports whether f is the canonical internal DSP format: float32,
// planar, native endian. Sides in dsp mode only accept this format; IsDSP
// does not look at the channel count.
func (f Format) IsDSP() bool {
	return f.Encoding == EncodingDSPF32 && !f.Interleaved
}

// Blocks returns the number of separately-addressed data blocks a buffer
// carrying this format needs: 1 for interleaved, Channels for planar
// (spec.md §3, "Port").
func (f Format) Blocks() uint32 {
	if f.Interleaved {
		return 1
	}
	return f.Channels
}

// Stride returns the per-frame byte stride: sample-bytes × (interleaved ?
// channels : 1) (spec.md §4.1).
func (f Format) Stride() uint32 {
	bps := uint32(f.Encoding.bytesPerSample())
	if f.Interleaved {
		return bps * f.Channels
	}
	return bps
}

// Mask returns the channel mask for f's position vector, substituting the
// channel-count default when the vector carries no real positions (spec.md
// §4.5 step 2).
func (f Format) Mask() Mask {
	m := MaskOf(f.Position)
	if m.HasUnknown() {
		return DefaultMaskFor(int(f.Channels))
	}
	return m
}

// Equivalent reports whether two formats are byte-equivalent for any
// input — the condition a pipeline stage uses to declare itself
// passthrough (GLOSSARY "Passthrough").
func (f Format) Equivalent(g Format) bool {
	if f.Encoding != g.Encoding || f.Interleaved != g.Interleaved ||
		f.Rate != g.Rate || f.Channels != g.Channels {
		return false
	}
	for i := range f.Position {
		if f.Position[i] != g.Position[i] {
			return false
		}
	}
	return true
}

func (f Format) String() string {
	layout := "interleaved"
	if !f.Interleaved {
		layout = "planar"
	}
	return fmt.Sprintf("%s/%dch/%dHz/%s", f.Encoding, f.Channels, f.Rate, layout)
}

// BufferSize computes the per-block buffer size Buffers negotiation
// advertises: clamp(16*stride, quantum*stride, MaxInt32) (spec.md §4.1).
func BufferSize(stride uint32, quantum uint32) uint32 {
	const maxInt32 = 1<<31 - 1
	lo := uint64(16) * uint64(stride)
	want := uint64(quantum) * uint64(stride)
	if want < lo {
		want = lo
	}
	if want > maxInt32 {
		want = maxInt32
	}
	return uint32(want)
}
