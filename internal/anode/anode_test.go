package anode

import (
	"math"
	"testing"

	"github.com/linuxmatters/audioconvertnode/internal/format"
	"github.com/linuxmatters/audioconvertnode/internal/kernels"
	"github.com/linuxmatters/audioconvertnode/internal/platform"
)

func nearly(a, b float32) bool {
	return float32(math.Abs(float64(a-b))) < 1e-4
}

func newTestNode() *Node {
	return New(platform.DetectCPU(), platform.NopLogger{})
}

func dspConfig(dir Direction, positions []format.Position, rate uint32) PortConfigRequest {
	f := format.Format{Channels: uint32(len(positions)), Rate: rate, Position: positions}
	return PortConfigRequest{Direction: dir, Mode: ModeDSP, Format: &f}
}

// wireBuffer registers one statically-owned float32 buffer on port and
// returns a zero-copy float32 view over its bytes (via kernels.Plane, the
// same reinterpretation every kernel uses). Output ports are marked ready;
// input ports are marked HaveData with a chunk covering the whole buffer.
func wireBuffer(port *Port, frames int) []float32 {
	raw := make([]byte, frames*4)
	port.IO = &IOBuffers{}
	port.Buffers = []BufferDesc{{ID: 0, Data: [][]byte{raw}, MaxSize: uint32(len(raw))}}
	if port.Direction == DirOutput {
		port.PushReady(0)
	} else {
		port.IO.Status = IOStatusHaveData
		port.IO.BufferID = 0
		port.IO.Chunks = []Chunk{{Offset: 0, Size: uint32(len(raw))}}
	}
	return kernels.Plane{Bytes: raw}.Float32()
}

func outputView(port *Port) []float32 {
	return kernels.Plane{Bytes: port.Buffers[0].Data[0]}.Float32()
}

func TestVolumeTripleResizeFillsMean(t *testing.T) {
	vt := NewVolumeTriple(2)
	vt.Channel.Values = []float32{0.2, 0.8}
	vt.Resize(4)
	want := float32(0.5)
	for _, v := range vt.Channel.Values {
		if !nearly(v, want) {
			t.Fatalf("resized entries should be the mean of the old ones: got %v want %v", v, want)
		}
	}
	if len(vt.Soft.Values) != 4 || len(vt.Monitor.Values) != 4 {
		t.Fatalf("all three tracks must resize together")
	}
}

func TestStartRequiresBothFormats(t *testing.T) {
	n := newTestNode()
	if err := n.SetPortConfig(dspConfig(DirInput, []format.Position{format.FL, format.FR}, 48000)); err != nil {
		t.Fatalf("SetPortConfig: %v", err)
	}
	if err := n.SendCommand(CommandStart); err == nil {
		t.Fatalf("Start must fail before both sides have a format")
	}
	if n.Started {
		t.Fatalf("failed Start must leave started false")
	}
}

// TestChannelSwapViaMap covers spec.md §8 scenario 2: dsp 2ch [FL,FR] in,
// dsp 2ch [FR,FL] out, identity channel-mix after remap.
func TestChannelSwapViaMap(t *testing.T) {
	n := newTestNode()
	mustOK(t, n.SetPortConfig(dspConfig(DirInput, []format.Position{format.FL, format.FR}, 48000)))
	mustOK(t, n.SetPortConfig(dspConfig(DirOutput, []format.Position{format.FR, format.FL}, 48000)))
	mustOK(t, n.SetPortFormat(DirInput, format.DSP(2, 48000, []format.Position{format.FL, format.FR})))
	mustOK(t, n.SetPortFormat(DirOutput, format.DSP(2, 48000, []format.Position{format.FR, format.FL})))
	mustOK(t, n.SendCommand(CommandStart))

	const frames = 4
	l := wireBuffer(n.In.Ports[0], frames)
	r := wireBuffer(n.In.Ports[1], frames)
	copy(l, []float32{1, 2, 3, 4})
	copy(r, []float32{5, 6, 7, 8})

	wireBuffer(n.Out.Ports[0], frames)
	wireBuffer(n.Out.Ports[1], frames)

	status := n.Process()
	if status&StatusHaveData == 0 {
		t.Fatalf("expected HaveData status, got %v", status)
	}

	got0 := outputView(n.Out.Ports[0])
	got1 := outputView(n.Out.Ports[1])
	want0 := []float32{5, 6, 7, 8}
	want1 := []float32{1, 2, 3, 4}
	for i := 0; i < frames; i++ {
		if !nearly(got0[i], want0[i]) || !nearly(got1[i], want1[i]) {
			t.Fatalf("frame %d: got (%v,%v) want (%v,%v)", i, got0[i], got1[i], want0[i], want1[i])
		}
	}
}

// TestVolumeRampAppliesMasterGain covers spec.md §8 scenario 4.
func TestVolumeRampAppliesMasterGain(t *testing.T) {
	n := newTestNode()
	mustOK(t, n.SetPortConfig(dspConfig(DirInput, []format.Position{format.Mono}, 48000)))
	mustOK(t, n.SetPortConfig(dspConfig(DirOutput, []format.Position{format.Mono}, 48000)))
	mustOK(t, n.SetPortFormat(DirInput, format.DSP(1, 48000, []format.Position{format.Mono})))
	mustOK(t, n.SetPortFormat(DirOutput, format.DSP(1, 48000, []format.Position{format.Mono})))
	mustOK(t, n.SendCommand(CommandStart))

	half := float32(0.5)
	mustOK(t, n.ApplyProps(PropUpdate{Volume: &half, ChannelVolumes: []float32{1.0}}))

	const frames = 8
	in := wireBuffer(n.In.Ports[0], frames)
	for i := range in {
		in[i] = 1.0
	}
	wireBuffer(n.Out.Ports[0], frames)

	status := n.Process()
	if status&StatusHaveData == 0 {
		t.Fatalf("expected HaveData status")
	}
	got := outputView(n.Out.Ports[0])
	for i, v := range got {
		if !nearly(v, 0.5) {
			t.Fatalf("sample %d: got %v want 0.5", i, v)
		}
	}
}

func TestEmptyTickReturnsNeedDataOnly(t *testing.T) {
	n := newTestNode()
	mustOK(t, n.SetPortConfig(dspConfig(DirInput, []format.Position{format.Mono}, 48000)))
	mustOK(t, n.SetPortConfig(dspConfig(DirOutput, []format.Position{format.Mono}, 48000)))
	mustOK(t, n.SetPortFormat(DirInput, format.DSP(1, 48000, []format.Position{format.Mono})))
	mustOK(t, n.SetPortFormat(DirOutput, format.DSP(1, 48000, []format.Position{format.Mono})))
	mustOK(t, n.SendCommand(CommandStart))

	status := n.Process()
	if status != StatusNeedData {
		t.Fatalf("empty tick should return NeedData only, got %v", status)
	}
}

// convertConfig builds a convert-mode PortConfigRequest (no embedded
// format; the format arrives later via SetPortFormat).
func convertConfig(dir Direction) PortConfigRequest {
	return PortConfigRequest{Direction: dir, Mode: ModeConvert}
}

// TestS16StereoConvertToDSP covers spec.md §8 scenario 1 end to end through
// the node (internal/kernels' own convert_test.go covers the same numbers
// at the kernel layer in isolation).
func TestS16StereoConvertToDSP(t *testing.T) {
	n := newTestNode()
	mustOK(t, n.SetPortConfig(convertConfig(DirInput)))
	mustOK(t, n.SetPortConfig(dspConfig(DirOutput, []format.Position{format.FL, format.FR}, 48000)))

	srcFmt := format.Format{Encoding: format.EncodingS16LE, Interleaved: true, Rate: 48000, Channels: 2,
		Position: []format.Position{format.FL, format.FR}}
	mustOK(t, n.SetPortFormat(DirInput, srcFmt))
	mustOK(t, n.SetPortFormat(DirOutput, format.DSP(2, 48000, []format.Position{format.FL, format.FR})))
	mustOK(t, n.SendCommand(CommandStart))

	values := []uint16{0x0000, 0x4000, 0x8000, 0xC000}
	raw := make([]byte, 0, len(values)*4)
	for _, v := range values {
		raw = append(raw, byte(v), byte(v>>8), byte(v), byte(v>>8))
	}
	in := n.In.Ports[0]
	in.IO = &IOBuffers{}
	in.Buffers = []BufferDesc{{ID: 0, Data: [][]byte{raw}, MaxSize: uint32(len(raw))}}
	in.IO.Status = IOStatusHaveData
	in.IO.BufferID = 0
	in.IO.Chunks = []Chunk{{Offset: 0, Size: uint32(len(raw))}}

	wireBuffer(n.Out.Ports[0], len(values))
	wireBuffer(n.Out.Ports[1], len(values))

	status := n.Process()
	if status&StatusHaveData == 0 {
		t.Fatalf("expected HaveData status, got %v", status)
	}
	want := []float32{0.0, 0.5, -1.0, -0.5}
	got0 := outputView(n.Out.Ports[0])
	got1 := outputView(n.Out.Ports[1])
	for i, w := range want {
		if !nearly(got0[i], w) || !nearly(got1[i], w) {
			t.Fatalf("frame %d: got (%v,%v) want %v", i, got0[i], got1[i], w)
		}
	}
}

// TestResample44100To48000 covers spec.md §8 scenario 3: 1024 mono frames
// at 44100Hz resampled to 48000Hz produce roughly 1115 output frames.
func TestResample44100To48000(t *testing.T) {
	n := newTestNode()
	mustOK(t, n.SetPortConfig(dspConfig(DirInput, []format.Position{format.Mono}, 44100)))
	mustOK(t, n.SetPortConfig(dspConfig(DirOutput, []format.Position{format.Mono}, 48000)))
	mustOK(t, n.SetPortFormat(DirInput, format.DSP(1, 44100, []format.Position{format.Mono})))
	mustOK(t, n.SetPortFormat(DirOutput, format.DSP(1, 48000, []format.Position{format.Mono})))
	mustOK(t, n.SendCommand(CommandStart))

	const inFrames = 1024
	in := wireBuffer(n.In.Ports[0], inFrames)
	for i := range in {
		in[i] = float32(math.Sin(float64(i) * 0.1))
	}
	wireBuffer(n.Out.Ports[0], 2048)

	status := n.Process()
	if status&StatusHaveData == 0 {
		t.Fatalf("expected HaveData status")
	}
	chunk := n.Out.Ports[0].IO.Chunks[0]
	outFrames := int(chunk.Size) / int(n.Out.Format.Stride())
	const want = 1115
	const tolerance = 32
	if outFrames < want-tolerance || outFrames > want+tolerance {
		t.Fatalf("got %d output frames, want roughly %d (+/- %d)", outFrames, want, tolerance)
	}
}

// TestPropsRateWithoutRateMatchDrivesResampler covers the "Rate inactive"
// boundary: with no RateMatch attached, setting Props.Rate != 1 must still
// take the resample stage out of passthrough and actually change the
// resampled output, not just leave the kernel configured at unity.
func TestPropsRateWithoutRateMatchDrivesResampler(t *testing.T) {
	n := newTestNode()
	mustOK(t, n.SetPortConfig(dspConfig(DirInput, []format.Position{format.Mono}, 48000)))
	mustOK(t, n.SetPortConfig(dspConfig(DirOutput, []format.Position{format.Mono}, 48000)))
	mustOK(t, n.SetPortFormat(DirInput, format.DSP(1, 48000, []format.Position{format.Mono})))
	mustOK(t, n.SetPortFormat(DirOutput, format.DSP(1, 48000, []format.Position{format.Mono})))
	n.Props.Rate = 2.0
	mustOK(t, n.SendCommand(CommandStart))
	if n.RateMatch != nil {
		t.Fatalf("this scenario must exercise the no-RateMatch path")
	}

	const inFrames = 1024
	in := wireBuffer(n.In.Ports[0], inFrames)
	for i := range in {
		in[i] = float32(math.Sin(float64(i) * 0.1))
	}
	wireBuffer(n.Out.Ports[0], 4096)

	status := n.Process()
	if status&StatusHaveData == 0 {
		t.Fatalf("expected HaveData status")
	}
	chunk := n.Out.Ports[0].IO.Chunks[0]
	outFrames := int(chunk.Size) / int(n.Out.Format.Stride())
	if outFrames <= inFrames+32 {
		t.Fatalf("props.rate=2 with equal in/out rates should roughly double the output frame count: got %d from %d input frames", outFrames, inFrames)
	}
}

// TestMonitorFanOut covers spec.md §8 scenario 5: a 2-channel dsp input
// configured with monitor=true gains a 3-port output side (main + 2 taps);
// the taps mirror their corresponding input channel, scaled by
// props.monitorVolumes, regardless of channel-mix.
func TestMonitorFanOut(t *testing.T) {
	n := newTestNode()
	req := dspConfig(DirInput, []format.Position{format.FL, format.FR}, 48000)
	req.Monitor = true
	mustOK(t, n.SetPortConfig(req))

	if len(n.Out.Ports) != 3 {
		t.Fatalf("expected 3 output ports after monitor fan-out, got %d", len(n.Out.Ports))
	}
	if n.Out.Ports[0].Monitor {
		t.Fatalf("output port 0 must be the main signal, not a monitor tap")
	}
	if !n.Out.Ports[1].Monitor || !n.Out.Ports[2].Monitor {
		t.Fatalf("output ports 1 and 2 must be monitor taps")
	}

	mustOK(t, n.SetPortFormat(DirInput, format.DSP(2, 48000, []format.Position{format.FL, format.FR})))
	mustOK(t, n.SetPortFormat(DirOutput, format.DSP(2, 48000, []format.Position{format.FL, format.FR})))
	mustOK(t, n.ApplyProps(PropUpdate{MonitorVolumes: []float32{0.25, 0.5}}))
	mustOK(t, n.SendCommand(CommandStart))

	const frames = 4
	l := wireBuffer(n.In.Ports[0], frames)
	r := wireBuffer(n.In.Ports[1], frames)
	copy(l, []float32{1, 2, 3, 4})
	copy(r, []float32{5, 6, 7, 8})

	mainPort := n.Out.Ports[0]
	mainRaw0 := make([]byte, frames*4)
	mainRaw1 := make([]byte, frames*4)
	mainPort.IO = &IOBuffers{}
	mainPort.Buffers = []BufferDesc{{ID: 0, Data: [][]byte{mainRaw0, mainRaw1}, MaxSize: uint32(len(mainRaw0))}}
	mainPort.PushReady(0)

	tap0 := wireBuffer(n.Out.Ports[1], frames)
	tap1 := wireBuffer(n.Out.Ports[2], frames)

	status := n.Process()
	if status&StatusHaveData == 0 {
		t.Fatalf("expected HaveData status, got %v", status)
	}

	wantTap0 := []float32{0.25, 0.5, 0.75, 1.0}
	wantTap1 := []float32{2.5, 3.0, 3.5, 4.0}
	for i := 0; i < frames; i++ {
		if !nearly(tap0[i], wantTap0[i]) {
			t.Fatalf("monitor tap 0 frame %d: got %v want %v", i, tap0[i], wantTap0[i])
		}
		if !nearly(tap1[i], wantTap1[i]) {
			t.Fatalf("monitor tap 1 frame %d: got %v want %v", i, tap1[i], wantTap1[i])
		}
	}

	main0 := kernels.Plane{Bytes: mainRaw0}.Float32()
	main1 := kernels.Plane{Bytes: mainRaw1}.Float32()
	for i := 0; i < frames; i++ {
		if !nearly(main0[i], l[i]) || !nearly(main1[i], r[i]) {
			t.Fatalf("main signal frame %d: got (%v,%v) want (%v,%v)", i, main0[i], main1[i], l[i], r[i])
		}
	}
}

// TestPropsSnapshotRoundtrip covers spec.md §8 scenario 6: props applied
// through ApplyProps read back unchanged through PropsSnapshot.
func TestPropsSnapshotRoundtrip(t *testing.T) {
	n := newTestNode()
	mustOK(t, n.SetPortConfig(dspConfig(DirInput, []format.Position{format.FL, format.FR}, 48000)))
	mustOK(t, n.SetPortConfig(dspConfig(DirOutput, []format.Position{format.FL, format.FR}, 48000)))
	mustOK(t, n.SetPortFormat(DirInput, format.DSP(2, 48000, []format.Position{format.FL, format.FR})))
	mustOK(t, n.SetPortFormat(DirOutput, format.DSP(2, 48000, []format.Position{format.FL, format.FR})))

	volume := float32(0.7)
	softMute := true
	normalize := false
	mustOK(t, n.ApplyProps(PropUpdate{
		Volume:              &volume,
		SoftMute:            &softMute,
		SoftVolumes:         []float32{0.1, 0.2},
		ChannelMixNormalize: &normalize,
	}))

	snap := n.PropsSnapshot()
	if !nearly(snap.Props.Volume, 0.7) {
		t.Fatalf("got volume %v want 0.7", snap.Props.Volume)
	}
	if snap.Props.ChannelMix.Normalize {
		t.Fatalf("channelmix.normalize should read back false")
	}
	if !snap.Volume.HaveSoftVolume {
		t.Fatalf("HaveSoftVolume should be true after SoftVolumes/SoftMute are set")
	}
	if !snap.Volume.Soft.Mute {
		t.Fatalf("soft mute should read back true")
	}
	want := []float32{0.1, 0.2}
	for i, w := range want {
		if !nearly(snap.Volume.Soft.Values[i], w) {
			t.Fatalf("soft volume %d: got %v want %v", i, snap.Volume.Soft.Values[i], w)
		}
	}
}

func mustOK(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
