package anode

import "github.com/linuxmatters/audioconvertnode/internal/kernels"

// noSamples is the sentinel spec.md §4.6 step 2 calls UINT32_MAX: "no input
// port supplied data".
const noSamples = -1

// acquireSide reads every port's IO slot on s, remaps each block into the
// side's canonical sorted lane order (spec.md §4.6 step 1), and returns one
// kernels.Plane per lane plus the number of frames available (noSamples if
// nothing was supplied). Input sides flip each consumed port's IO status to
// NeedData; output sides are left untouched here (handled by acquireOutputs).
func acquireSide(s *Side, empty []byte) ([]kernels.Plane, int) {
	channels := s.Channels()
	if channels == 0 {
		return nil, noSamples
	}
	lanes := make([]kernels.Plane, channels)
	for i := range lanes {
		lanes[i] = kernels.Plane{Bytes: empty}
	}
	stride := int(s.Format.Stride())
	nSamples := noSamples
	global := 0

	remap := func(j int) int {
		if s.SrcRemap != nil && j < len(s.SrcRemap) {
			return s.SrcRemap[j]
		}
		return j
	}

	for _, port := range s.Ports {
		if port.IO == nil || port.IO.Status != IOStatusHaveData {
			global += int(port.Blocks)
			if port.Blocks == 0 {
				global++
			}
			continue
		}
		buf, ok := port.bufferByID(port.IO.BufferID)
		if !ok {
			global += len(port.IO.Chunks)
			continue
		}
		blocks := len(buf.Data)
		if blocks == 0 {
			blocks = 1
		}
		for j := 0; j < blocks && j < len(port.IO.Chunks); j++ {
			chunk := port.IO.Chunks[j]
			data := buf.Data[j]
			lane := remap(global)
			if lane >= 0 && lane < len(lanes) {
				end := int(chunk.Offset) + int(chunk.Size)
				if end > len(data) {
					end = len(data)
				}
				lanes[lane] = kernels.Plane{Bytes: data[chunk.Offset:end]}
				frames := int(chunk.Size) / stride
				if nSamples == noSamples || frames < nSamples {
					nSamples = frames
				}
			}
			global++
		}
		port.IO.Status = IOStatusNeedData
	}
	return lanes, nSamples
}

type outputLane struct {
	port    *Port
	bufID   int
	planes  []kernels.Plane
	silent  bool
}

// acquireOutputs satisfies every output port from its ready FIFO (spec.md
// §4.6 step 3), routing starved lanes to scratch and marking them silent so
// Publish skips advertising their chunk.
func acquireOutputs(s *Side, scratch []byte) []outputLane {
	lanes := make([]outputLane, 0, len(s.Ports))
	for _, port := range s.Ports {
		l := outputLane{port: port, bufID: -1}
		if port.IO != nil && port.IO.Status == IOStatusHaveData {
			if buf, ok := port.bufferByID(port.IO.BufferID); ok {
				l.bufID = buf.ID
				l.planes = planesOf(buf.Data)
				lanes = append(lanes, l)
				continue
			}
		}
		if port.IO != nil && port.IO.Status != IOStatusEmpty {
			if _, ok := port.bufferByID(port.IO.BufferID); ok {
				port.PushReady(int(port.IO.BufferID))
			}
		}
		if id, ok := port.PopReady(); ok {
			if buf, found := port.bufferByID(uint32(id)); found {
				if port.IO != nil {
					port.IO.Status = IOStatusHaveData
					port.IO.BufferID = uint32(id)
				}
				l.bufID = buf.ID
				l.planes = planesOf(buf.Data)
				lanes = append(lanes, l)
				continue
			}
		}
		l.silent = true
		blocks := int(port.Blocks)
		if blocks == 0 {
			blocks = 1
		}
		l.planes = make([]kernels.Plane, blocks)
		for i := range l.planes {
			l.planes[i] = kernels.Plane{Bytes: scratch}
		}
		lanes = append(lanes, l)
	}
	return lanes
}

func planesOf(data [][]byte) []kernels.Plane {
	p := make([]kernels.Plane, len(data))
	for i := range data {
		p[i] = kernels.Plane{Bytes: data[i]}
	}
	return p
}

// scatterDst places each acquired output lane's plane(s) into out-convert's
// canonical sorted lane order, mirroring acquireSide's gather: dst[lane] is
// the real, physically-addressed buffer for whichever port SrcRemap says
// carries that canonical lane (spec.md §4.5 step 4, "built by the same
// algorithm as step 1 with src and dst swapped"). Writing through the
// returned planes therefore routes samples straight to the right physical
// port without the convert kernel itself needing to know about port order.
func scatterDst(s *Side, lanes []outputLane) []kernels.Plane {
	dst := make([]kernels.Plane, s.Channels())
	remap := func(j int) int {
		if s.SrcRemap != nil && j < len(s.SrcRemap) {
			return s.SrcRemap[j]
		}
		return j
	}
	global := 0
	for _, l := range lanes {
		blocks := len(l.planes)
		if blocks == 0 {
			blocks = 1
		}
		for b := 0; b < blocks; b++ {
			lane := remap(global)
			if lane >= 0 && lane < len(dst) && b < len(l.planes) {
				dst[lane] = l.planes[b]
			}
			global++
		}
	}
	return dst
}

// Process runs one scheduler tick (spec.md §4.6). It is safe to call only
// when Started and the pipeline has been assembled.
func (n *Node) Process() StatusFlags {
	p := n.Pipeline
	if p == nil || !n.Started {
		return 0
	}

	srcLanes, nSamples := acquireSide(n.In, p.empty)
	if nSamples == noSamples {
		n.recomputeRateMatch()
		return StatusNeedData
	}
	if int(n.QuantumLimit) > 0 && nSamples > int(n.QuantumLimit) {
		nSamples = int(n.QuantumLimit)
	}

	outLanes := acquireOutputs(n.Out, p.scratch)
	dstPlanes := scatterDst(n.Out, outLanes)

	mixPassthrough := p.mixDisabled || p.Mix.Flags()&kernels.IdentityFlag != 0
	resamplePassthrough := p.resampleDisabled ||
		(n.In.Format.Rate == n.Out.Format.Rate && n.rateScaleOrUnity() == 1.0 && n.Props.Rate == 1.0 &&
			(n.RateMatch == nil || !n.RateMatch.Active))
	outPassthrough := n.Out.Passthrough
	endPassthrough := n.In.Passthrough && mixPassthrough && resamplePassthrough && outPassthrough

	// Stage 1: in-convert. ring tracks which of the two scratch rings (if
	// any, -1 otherwise) stage1's data lives in, so later stages that need
	// a fresh scratch buffer can pick the other one instead of aliasing
	// their own input.
	ring := -1
	var stage1 []kernels.Plane
	switch {
	case n.In.Passthrough && !endPassthrough:
		// Forward the source pointers untouched; nothing downstream needs
		// the DSP layout rewritten since the formats are byte-equivalent.
		stage1 = srcLanes
	case endPassthrough:
		// Every later stage is also passthrough, so in-convert writes (or,
		// being itself passthrough, byte-copies) straight into the final
		// destination planes rather than bouncing through scratch.
		n.In.Convert.Process(dstPlanes, srcLanes, nSamples)
		stage1 = dstPlanes
	default:
		ring = 0
		ringA := planesFromRing(p.tmp[0], p.outChannelsOrIn(n))
		n.In.Convert.Process(ringA, srcLanes, nSamples)
		stage1 = ringA
	}

	// Stage 2: channel-mix + volume.
	var stage2 []kernels.Plane
	outSamples := nSamples
	if mixPassthrough {
		stage2 = stage1
	} else {
		next := otherRing(ring)
		ringB := planesFromRing(p.tmp[next], p.outChannels)
		p.Mix.Process(ringB, stage1, nSamples)
		stage2 = ringB
		ring = next
	}

	// Stage 3: resample. Output must land in the ring stage2 isn't using,
	// since oov/audio/resampler keeps an internal delay line and cannot
	// safely read and write the same backing array.
	var stage3 []kernels.Plane
	if resamplePassthrough {
		stage3 = stage2
	} else {
		next := otherRing(ring)
		outBuf := planesFromRing(p.tmp[next], p.outChannels)
		in := nSamples
		out := int(n.QuantumLimit)
		p.Resample.Process(float32Views(stage2), &in, float32Views(outBuf), &out)
		outSamples = out
		stage3 = outBuf
	}

	// Stage 4: out-convert. When endPassthrough, stage 1 already wrote
	// straight into dstPlanes and stage2/stage3 just forwarded that
	// reference, so there is nothing left to move.
	if !endPassthrough {
		n.Out.Convert.Process(dstPlanes, stage3, outSamples)
	}

	fanOutMonitors(n, outLanes, stage1, nSamples)

	publishOutputs(outLanes, outSamples, n.Out.Format.Stride())
	n.recomputeRateMatch()
	return StatusNeedData | StatusHaveData
}

// fanOutMonitors fills every monitor tap port directly from stage1 (post
// in-convert, pre channel-mix), scaled by the monitor volume track, bypassing
// the main mix/resample/out-convert chain entirely (spec.md §8 scenario 5,
// §9 "monitor-side port numbering"). Port index 0 is the main signal and is
// left to the ordinary dst routing above; ports 1..n each mirror the input
// channel they were allocated for.
func fanOutMonitors(n *Node, outLanes []outputLane, stage1 []kernels.Plane, nSamples int) {
	if !n.Out.Monitor {
		return
	}
	monitor := n.Volume.Monitor
	for _, l := range outLanes {
		if l.silent || !l.port.Monitor || len(l.planes) == 0 {
			continue
		}
		inChannel := l.port.Index - 1
		if inChannel < 0 {
			continue
		}
		lane := inChannel
		if n.In.SrcRemap != nil && inChannel < len(n.In.SrcRemap) {
			lane = n.In.SrcRemap[inChannel]
		}
		if lane < 0 || lane >= len(stage1) {
			continue
		}
		gain := float32(1)
		switch {
		case monitor.Mute:
			gain = 0
		case inChannel < len(monitor.Values):
			gain = monitor.Values[inChannel]
		}
		src := stage1[lane].Float32()
		dst := l.planes[0].Float32()
		count := nSamples
		if len(src) < count {
			count = len(src)
		}
		if len(dst) < count {
			count = len(dst)
		}
		for i := 0; i < count; i++ {
			dst[i] = src[i] * gain
		}
	}
}

// otherRing returns the scratch ring index not currently in use: 0 when
// ring is unset (-1) or 1, 1 when ring is 0.
func otherRing(ring int) int {
	if ring == 0 {
		return 1
	}
	return 0
}

func (p *Pipeline) outChannelsOrIn(n *Node) int {
	if p.inChannels > p.outChannels {
		return p.inChannels
	}
	return p.outChannels
}

func planesFromRing(ring [][]byte, channels int) []kernels.Plane {
	planes := make([]kernels.Plane, channels)
	for i := 0; i < channels && i < len(ring); i++ {
		planes[i] = kernels.Plane{Bytes: ring[i]}
	}
	return planes
}

func float32Views(planes []kernels.Plane) [][]float32 {
	out := make([][]float32, len(planes))
	for i, p := range planes {
		out[i] = p.Float32()
	}
	return out
}

// publishOutputs writes each live output lane's chunk (spec.md §4.6 step
// 5); starved (silent) lanes are left unpublished.
func publishOutputs(lanes []outputLane, nSamples int, stride uint32) {
	for _, l := range lanes {
		if l.silent || l.port.IO == nil {
			continue
		}
		size := uint32(nSamples) * stride
		if len(l.port.IO.Chunks) == 0 {
			l.port.IO.Chunks = make([]Chunk, len(l.planes))
		}
		for i := range l.port.IO.Chunks {
			l.port.IO.Chunks[i] = Chunk{Offset: 0, Size: size}
		}
	}
}

// recomputeRateMatch applies spec.md §4.6 step 6 and the "Rate inactive"
// boundary case: the resampler is kept driven at rate_scale * props.rate
// whether or not a rate-match control block is attached; only when the
// block is present and active is that driven rate additionally scaled by
// match_rate (rate_scale * match_rate / props.rate), and only then are the
// block's Delay/SizeHint fields published. in_queued is always 0 (spec.md
// §9's third Open Question: cross-tick queueing is not modelled at this
// layer).
func (n *Node) recomputeRateMatch() {
	if n.Pipeline == nil || n.Pipeline.Resample == nil {
		return
	}
	rate := n.rateScaleOrUnity() * n.Props.Rate
	active := n.RateMatch != nil && n.RateMatch.Active
	if active {
		rate = n.rateScaleOrUnity() * n.RateMatch.Rate
		if n.Props.Rate != 0 {
			rate /= n.Props.Rate
		}
	}
	n.Pipeline.Resample.UpdateRate(rate)
	if active {
		n.RateMatch.Delay = n.Pipeline.Resample.Delay()
		inQueued := 0
		n.RateMatch.SizeHint = n.Pipeline.Resample.InLen(int(n.QuantumLimit)) - inQueued
	}
}

// rateScaleOrUnity treats a zero-value RateScale (a node built without
// going through New) as unity, matching spec.md's "rate_scale defaults to
// 1.0" construction-time state.
func (n *Node) rateScaleOrUnity() float64 {
	if n.RateScale == 0 {
		return 1.0
	}
	return n.RateScale
}
