package kernels

import (
	"testing"

	"github.com/linuxmatters/audioconvertnode/internal/platform"
)

// TestResamplerInLenScalesWithRatio covers spec.md §8 scenario 3's shape:
// upsampling 44100->48000 needs fewer input frames than output frames, and
// the inverse scales with the rate ratio.
func TestResamplerInLenScalesWithRatio(t *testing.T) {
	r, err := NewResampler(ResampleConfig{Channels: 2, InRate: 44100, OutRate: 48000, Quality: 4, CPU: platform.DetectCPU()})
	if err != nil {
		t.Fatalf("NewResampler: %v", err)
	}
	outFrames := 1024
	in := r.InLen(outFrames)
	if in <= 0 {
		t.Fatalf("InLen must be positive, got %d", in)
	}
	if in >= outFrames {
		t.Fatalf("upsampling should need fewer input frames than output frames: in=%d out=%d", in, outFrames)
	}
}

func TestResamplerDelayGrowsWithQuality(t *testing.T) {
	low, err := NewResampler(ResampleConfig{Channels: 1, InRate: 48000, OutRate: 48000, Quality: 0, CPU: platform.DetectCPU()})
	if err != nil {
		t.Fatalf("NewResampler: %v", err)
	}
	high, err := NewResampler(ResampleConfig{Channels: 1, InRate: 48000, OutRate: 48000, Quality: 10, CPU: platform.DetectCPU()})
	if err != nil {
		t.Fatalf("NewResampler: %v", err)
	}
	if high.Delay() <= low.Delay() {
		t.Fatalf("higher quality should report more delay: low=%d high=%d", low.Delay(), high.Delay())
	}
}

func TestResamplerUpdateRateAdjustsInLen(t *testing.T) {
	r, err := NewResampler(ResampleConfig{Channels: 1, InRate: 48000, OutRate: 48000, Quality: 4, CPU: platform.DetectCPU()})
	if err != nil {
		t.Fatalf("NewResampler: %v", err)
	}
	base := r.InLen(1000)
	r.UpdateRate(2.0)
	adjusted := r.InLen(1000)
	if adjusted >= base {
		t.Fatalf("doubling the rate adjustment should require fewer input frames: base=%d adjusted=%d", base, adjusted)
	}
}

// TestResamplerUpdateRateChangesProducedSamples covers the "Rate inactive"
// boundary (spec.md's props.rate scaling applies even with no rate-match
// block attached): driving the same unity-ratio resampler at rate 2.0
// must actually change how many output frames a fixed input run produces,
// not just the InLen metadata query.
func TestResamplerUpdateRateChangesProducedSamples(t *testing.T) {
	in := make([]float32, 1000)
	for i := range in {
		in[i] = float32(i%100) / 100
	}

	unity, err := NewResampler(ResampleConfig{Channels: 1, InRate: 48000, OutRate: 48000, Quality: 4, CPU: platform.DetectCPU()})
	if err != nil {
		t.Fatalf("NewResampler: %v", err)
	}
	inLen, outLen := len(in), 2000
	outUnity := make([]float32, outLen)
	unity.Process([][]float32{in}, &inLen, [][]float32{outUnity}, &outLen)
	producedUnity := outLen

	scaled, err := NewResampler(ResampleConfig{Channels: 1, InRate: 48000, OutRate: 48000, Quality: 4, CPU: platform.DetectCPU()})
	if err != nil {
		t.Fatalf("NewResampler: %v", err)
	}
	scaled.UpdateRate(2.0)
	inLen2, outLen2 := len(in), 2000
	outScaled := make([]float32, outLen2)
	scaled.Process([][]float32{in}, &inLen2, [][]float32{outScaled}, &outLen2)
	producedScaled := outLen2

	if producedScaled == producedUnity {
		t.Fatalf("rate adjustment must change the resampled frame count: unity=%d scaled=%d", producedUnity, producedScaled)
	}
}
