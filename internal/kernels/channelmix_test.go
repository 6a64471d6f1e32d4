package kernels

import (
	"testing"

	"github.com/linuxmatters/audioconvertnode/internal/format"
)

// TestChannelMixIdentityFlag covers spec.md §6's passthrough optimisation:
// equal channel counts, unity volumes, no mute, master gain 1.0.
func TestChannelMixIdentityFlag(t *testing.T) {
	cfg := ChannelMixConfig{SrcChannels: 2, DstChannels: 2,
		SrcMask: format.DefaultMaskFor(2), DstMask: format.DefaultMaskFor(2), Rate: 48000}
	mix, err := NewChannelMixer(cfg)
	if err != nil {
		t.Fatalf("NewChannelMixer: %v", err)
	}
	if mix.Flags()&IdentityFlag == 0 {
		t.Fatalf("fresh 2ch->2ch mixer should be identity")
	}
	mix.SetVolume(0.5, false, []float32{1.0, 1.0})
	if mix.Flags()&IdentityFlag != 0 {
		t.Fatalf("non-unity master gain must clear identity")
	}
}

// TestChannelMixVolumeRamp covers spec.md §8 scenario 4: mono, master
// volume 0.5, constant 1.0 input produces a constant 0.5 output.
func TestChannelMixVolumeRamp(t *testing.T) {
	cfg := ChannelMixConfig{SrcChannels: 1, DstChannels: 1,
		SrcMask: format.DefaultMaskFor(1), DstMask: format.DefaultMaskFor(1), Rate: 48000}
	mix, err := NewChannelMixer(cfg)
	if err != nil {
		t.Fatalf("NewChannelMixer: %v", err)
	}
	mix.SetVolume(0.5, false, []float32{1.0})

	n := 8
	in := make([]float32, n)
	for i := range in {
		in[i] = 1.0
	}
	out := make([]float32, n)
	mix.Process([]Plane{PlaneOfFloat32(out)}, []Plane{PlaneOfFloat32(in)}, n)

	for i, v := range out {
		if !floatsEqual(v, 0.5, 1e-6) {
			t.Fatalf("sample %d: got %v want 0.5", i, v)
		}
	}
}

// TestChannelMixMute verifies mute forces silence regardless of master gain.
func TestChannelMixMute(t *testing.T) {
	cfg := ChannelMixConfig{SrcChannels: 1, DstChannels: 1,
		SrcMask: format.DefaultMaskFor(1), DstMask: format.DefaultMaskFor(1), Rate: 48000}
	mix, err := NewChannelMixer(cfg)
	if err != nil {
		t.Fatalf("NewChannelMixer: %v", err)
	}
	mix.SetVolume(1.0, true, []float32{1.0})

	in := []float32{1.0, 1.0, 1.0}
	out := make([]float32, 3)
	mix.Process([]Plane{PlaneOfFloat32(out)}, []Plane{PlaneOfFloat32(in)}, 3)
	for i, v := range out {
		if v != 0 {
			t.Fatalf("sample %d: got %v want 0 (muted)", i, v)
		}
	}
}

// TestChannelMixDownmixNormalize verifies a 2ch->1ch downmix with
// MixNormalize halves the summed gain so two unity sources do not clip.
func TestChannelMixDownmixNormalize(t *testing.T) {
	cfg := ChannelMixConfig{SrcChannels: 2, DstChannels: 1,
		SrcMask: format.DefaultMaskFor(2), DstMask: format.DefaultMaskFor(1),
		Rate: 48000, Options: MixNormalize}
	mix, err := NewChannelMixer(cfg)
	if err != nil {
		t.Fatalf("NewChannelMixer: %v", err)
	}
	mix.SetVolume(1.0, false, []float32{1.0, 1.0})

	inL := []float32{1.0}
	inR := []float32{1.0}
	out := make([]float32, 1)
	mix.Process([]Plane{PlaneOfFloat32(out)}, []Plane{PlaneOfFloat32(inL), PlaneOfFloat32(inR)}, 1)
	if out[0] <= 0 || out[0] > 1.0 {
		t.Fatalf("normalized downmix should stay in (0, 1], got %v", out[0])
	}
}
