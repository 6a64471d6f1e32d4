package kernels

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/linuxmatters/audioconvertnode/internal/format"
	"github.com/linuxmatters/audioconvertnode/internal/platform"
)

// Converter is the format-convert kernel capability of spec.md §6: given a
// fixed (src, dst) format pair and channel count, it converts n_samples
// frames from src planes into dst planes, optimising to a byte-copy or
// no-op when the formats are equivalent.
type Converter interface {
	// Process converts n frames from src into dst. src and dst hold at
	// least blocks() planes for their formats; the pipeline passes one plane
	// per channel, of which an interleaved format uses only the first.
	Process(dst []Plane, src []Plane, n int)
	// IsPassthrough reports whether src and dst are byte-equivalent, so
	// the process loop can forward pointers instead of calling Process.
	IsPassthrough() bool
}

// ConvertConfig configures a Converter (spec.md §6).
type ConvertConfig struct {
	Src, Dst format.Format
	CPU      platform.CPU
}

// scalarConverter is the default Converter: a branchless-per-sample scalar
// implementation good enough for correctness, with a fast path for the
// identity case. Grounded on original_source's fmt-ops.c contract (convert
// any negotiated raw format to/from planar float32) and on
// other_examples/50d966b5 (usrp-go's Converter interface shape, minus its
// subprocess-based implementation, which cannot run on a real-time thread).
type scalarConverter struct {
	cfg         ConvertConfig
	passthrough bool
}

// NewConverter builds the default Converter for a (src, dst) pair.
func NewConverter(cfg ConvertConfig) (Converter, error) {
	if cfg.Src.Channels != cfg.Dst.Channels {
		return nil, fmt.Errorf("kernels: convert channel count mismatch: src=%d dst=%d",
			cfg.Src.Channels, cfg.Dst.Channels)
	}
	return &scalarConverter{
		cfg:         cfg,
		passthrough: cfg.Src.Equivalent(cfg.Dst),
	}, nil
}

func (c *scalarConverter) IsPassthrough() bool { return c.passthrough }

func (c *scalarConverter) Process(dst []Plane, src []Plane, n int) {
	if c.passthrough {
		for i := range dst {
			copy(dst[i].Bytes, src[i].Bytes[:n*int(c.cfg.Src.Stride())])
		}
		return
	}
	if c.cfg.Src.IsDSP() && c.cfg.Dst.IsDSP() {
		// Both sides are already the canonical float32 layout: no sample
		// encoding to change, only (possibly) a channel reordering, which
		// the caller has already applied by choosing which plane landed
		// at which index. A straight per-channel byte copy is correct.
		for i := range dst {
			if i < len(src) {
				copy(dst[i].Bytes, src[i].Bytes[:n*4])
			}
		}
		return
	}
	if c.cfg.Dst.IsDSP() {
		c.toDSP(dst, src, n)
		return
	}
	c.fromDSP(dst, src, n)
}

// toDSP decodes src (the negotiated raw format) into dst (DSP float32
// planar), one plane per channel.
func (c *scalarConverter) toDSP(dst []Plane, src []Plane, n int) {
	channels := int(c.cfg.Src.Channels)
	for ch := 0; ch < channels; ch++ {
		out := dst[ch].Float32()
		if c.cfg.Src.Interleaved {
			in := src[0].Bytes
			stride := int(c.cfg.Src.Stride())
			sampleBytes := stride / channels
			for i := 0; i < n; i++ {
				off := i*stride + ch*sampleBytes
				out[i] = decodeSample(c.cfg.Src.Encoding, in[off:off+sampleBytes])
			}
		} else {
			in := src[ch].Bytes
			sampleBytes := int(c.cfg.Src.Stride())
			for i := 0; i < n; i++ {
				off := i * sampleBytes
				out[i] = decodeSample(c.cfg.Src.Encoding, in[off:off+sampleBytes])
			}
		}
	}
}

// fromDSP encodes src (DSP float32 planar) into dst (the negotiated raw
// format).
func (c *scalarConverter) fromDSP(dst []Plane, src []Plane, n int) {
	channels := int(c.cfg.Dst.Channels)
	for ch := 0; ch < channels; ch++ {
		in := src[ch].Float32()
		if c.cfg.Dst.Interleaved {
			out := dst[0].Bytes
			stride := int(c.cfg.Dst.Stride())
			sampleBytes := stride / channels
			for i := 0; i < n; i++ {
				off := i*stride + ch*sampleBytes
				encodeSample(c.cfg.Dst.Encoding, out[off:off+sampleBytes], in[i])
			}
		} else {
			out := dst[ch].Bytes
			sampleBytes := int(c.cfg.Dst.Stride())
			for i := 0; i < n; i++ {
				off := i * sampleBytes
				encodeSample(c.cfg.Dst.Encoding, out[off:off+sampleBytes], in[i])
			}
		}
	}
}

// decodeSample reads one sample of enc from b and returns it as a float32
// in [-1, 1] (approximately, for integer formats).
func decodeSample(enc format.Encoding, b []byte) float32 {
	switch enc {
	case format.EncodingS16LE:
		v := int16(binary.LittleEndian.Uint16(b))
		return float32(v) / 32768.0
	case format.EncodingS16BE:
		v := int16(binary.BigEndian.Uint16(b))
		return float32(v) / 32768.0
	case format.EncodingU8:
		return (float32(b[0]) - 128) / 128.0
	case format.EncodingS8:
		return float32(int8(b[0])) / 128.0
	case format.EncodingS32LE:
		v := int32(binary.LittleEndian.Uint32(b))
		return float32(float64(v) / 2147483648.0)
	case format.EncodingS32BE:
		v := int32(binary.BigEndian.Uint32(b))
		return float32(float64(v) / 2147483648.0)
	case format.EncodingF32LE:
		return math.Float32frombits(binary.LittleEndian.Uint32(b))
	case format.EncodingF32BE:
		return math.Float32frombits(binary.BigEndian.Uint32(b))
	case format.EncodingF64LE:
		return float32(math.Float64frombits(binary.LittleEndian.Uint64(b)))
	case format.EncodingF64BE:
		return float32(math.Float64frombits(binary.BigEndian.Uint64(b)))
	default:
		return 0
	}
}

// encodeSample writes v (approximately in [-1, 1]) into b as enc.
func encodeSample(enc format.Encoding, b []byte, v float32) {
	clamp := func(x float64, lo, hi float64) float64 {
		if x < lo {
			return lo
		}
		if x > hi {
			return hi
		}
		return x
	}
	switch enc {
	case format.EncodingS16LE:
		s := int16(clamp(float64(v)*32768.0, -32768, 32767))
		binary.LittleEndian.PutUint16(b, uint16(s))
	case format.EncodingS16BE:
		s := int16(clamp(float64(v)*32768.0, -32768, 32767))
		binary.BigEndian.PutUint16(b, uint16(s))
	case format.EncodingU8:
		s := clamp(float64(v)*128.0+128, 0, 255)
		b[0] = byte(s)
	case format.EncodingS8:
		s := clamp(float64(v)*128.0, -128, 127)
		b[0] = byte(int8(s))
	case format.EncodingS32LE:
		s := int32(clamp(float64(v)*2147483648.0, -2147483648, 2147483647))
		binary.LittleEndian.PutUint32(b, uint32(s))
	case format.EncodingS32BE:
		s := int32(clamp(float64(v)*2147483648.0, -2147483648, 2147483647))
		binary.BigEndian.PutUint32(b, uint32(s))
	case format.EncodingF32LE:
		binary.LittleEndian.PutUint32(b, math.Float32bits(v))
	case format.EncodingF32BE:
		binary.BigEndian.PutUint32(b, math.Float32bits(v))
	case format.EncodingF64LE:
		binary.LittleEndian.PutUint64(b, math.Float64bits(float64(v)))
	case format.EncodingF64BE:
		binary.BigEndian.PutUint64(b, math.Float64bits(float64(v)))
	default:
	}
}
