package kernels

import (
	"math"
	"testing"

	"github.com/linuxmatters/audioconvertnode/internal/format"
	"github.com/linuxmatters/audioconvertnode/internal/platform"
)

func floatsEqual(a, b, eps float32) bool {
	return float32(math.Abs(float64(a-b))) <= eps
}

// TestS16StereoToDSP covers spec.md §8 scenario 1: S16LE stereo -> DSP
// stereo, float = int16 / 32768.0.
func TestS16StereoToDSP(t *testing.T) {
	src := format.Format{Encoding: format.EncodingS16LE, Interleaved: true, Rate: 48000, Channels: 2,
		Position: []format.Position{format.FL, format.FR}}
	dst := format.DSP(2, 48000, []format.Position{format.FL, format.FR})

	conv, err := NewConverter(ConvertConfig{Src: src, Dst: dst, CPU: platform.DetectCPU()})
	if err != nil {
		t.Fatalf("NewConverter: %v", err)
	}
	if conv.IsPassthrough() {
		t.Fatalf("S16LE->DSP must not be passthrough")
	}

	// Four frames, both channels carrying the same raw value per frame.
	values := []uint16{0x0000, 0x4000, 0x8000, 0xC000}
	raw := make([]byte, 0, len(values)*4)
	for _, v := range values {
		raw = append(raw, byte(v), byte(v>>8), byte(v), byte(v>>8))
	}

	out0 := make([]float32, len(values))
	out1 := make([]float32, len(values))
	dstPlanes := []Plane{PlaneOfFloat32(out0), PlaneOfFloat32(out1)}
	conv.Process(dstPlanes, []Plane{{Bytes: raw}}, len(values))

	want := []float32{0.0, 0.5, -1.0, -0.5}
	for i, w := range want {
		if !floatsEqual(out0[i], w, 1e-3) || !floatsEqual(out1[i], w, 1e-3) {
			t.Fatalf("frame %d: got (%v, %v), want %v", i, out0[i], out1[i], w)
		}
	}
}

func TestPassthroughCopiesBytesVerbatim(t *testing.T) {
	f := format.Format{Encoding: format.EncodingS16LE, Interleaved: true, Rate: 44100, Channels: 2,
		Position: []format.Position{format.FL, format.FR}}
	conv, err := NewConverter(ConvertConfig{Src: f, Dst: f, CPU: platform.DetectCPU()})
	if err != nil {
		t.Fatalf("NewConverter: %v", err)
	}
	if !conv.IsPassthrough() {
		t.Fatalf("identical src/dst must be passthrough")
	}
	src := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	out := make([]byte, len(src))
	conv.Process([]Plane{{Bytes: out}}, []Plane{{Bytes: src}}, 2)
	for i := range src {
		if out[i] != src[i] {
			t.Fatalf("byte %d: got %d want %d", i, out[i], src[i])
		}
	}
}
