package anode

import (
	"github.com/linuxmatters/audioconvertnode/internal/format"
	"github.com/linuxmatters/audioconvertnode/internal/kernels"
)

// maxAlignBytes is a fixed 64-byte alignment, wider than any value
// platform.MaxAlign reports: scratch sizes are rounded up to a multiple of
// it and registered buffer blocks are checked against it (spec.md §4.5 step
// 5, §5 "Alignment"). The scratch pools are allocated with make; their start
// addresses are not explicitly aligned.
const maxAlignBytes = 64

// Pipeline holds the three kernel handles and remap tables pipeline
// assembly produces (spec.md §3 "Pipeline state"). It is valid only while
// the node is started.
type Pipeline struct {
	InConvert  kernels.Converter
	InRemap    format.Remap
	Mix        kernels.ChannelMixer
	Resample   kernels.Resampler
	OutConvert kernels.Converter
	OutRemap   format.Remap

	resampleDisabled bool
	mixDisabled      bool

	// tmp holds the two scratch rings (spec.md §4.5 step 5): tmp[0] and
	// tmp[1], each MaxPorts lanes of emptySize bytes.
	tmp       [2][][]byte
	empty     []byte
	scratch   []byte
	emptySize uint32

	inChannels, outChannels int
}

func align(n uint32) uint32 {
	if n%maxAlignBytes == 0 {
		return n
	}
	return n + (maxAlignBytes - n%maxAlignBytes)
}

// Assemble builds the pipeline from a node whose both sides have formats
// (spec.md §4.5). It aborts with an error if either side lacks a format.
func Assemble(n *Node) (*Pipeline, error) {
	if !n.In.HaveFormat || !n.Out.HaveFormat {
		return nil, errBothSidesMustHaveFormat
	}
	p := &Pipeline{
		inChannels:  n.In.Channels(),
		outChannels: n.Out.Channels(),
	}

	// Step 1: in-convert. dspIn carries the canonical sorted lane order
	// (spec.md §4.5 step 1's "secondary destination position vector"), not
	// the side's own position order, so Equivalent() correctly reports
	// in-convert as passthrough only when the side's physical channel
	// order already matches the canonical one.
	dspIn := format.DSP(n.In.Format.Channels, n.In.Format.Rate, format.SortPositions(n.In.Format.Position))
	p.InRemap = format.BuildRemap(n.In.Format.Position)
	n.In.SrcRemap = p.InRemap.SrcRemap
	n.In.DstRemap = p.InRemap.DstRemap
	conv, err := kernels.NewConverter(kernels.ConvertConfig{Src: n.In.Format, Dst: dspIn, CPU: n.CPU})
	if err != nil {
		return nil, err
	}
	p.InConvert = conv
	n.In.Convert = conv
	n.In.Passthrough = conv.IsPassthrough()

	// Step 2: channel-mix.
	srcMask := n.In.Format.Mask()
	dstMask := n.Out.Format.Mask()
	var mixOpts kernels.MixOption
	if n.Props.ChannelMix.Normalize {
		mixOpts |= kernels.MixNormalize
	}
	if n.Props.ChannelMix.MixLFE {
		mixOpts |= kernels.MixMixLFE
	}
	if n.Props.ChannelMix.Upmix {
		mixOpts |= kernels.MixUpmix
	}
	mix, err := kernels.NewChannelMixer(kernels.ChannelMixConfig{
		SrcChannels: p.inChannels, DstChannels: p.outChannels,
		SrcMask: srcMask, DstMask: dstMask,
		Rate: n.In.Format.Rate, Options: mixOpts,
		LFECutoffHz: n.Props.ChannelMix.LFECutoffHz, CPU: n.CPU,
	})
	if err != nil {
		return nil, err
	}
	p.Mix = mix
	p.mixDisabled = n.Props.ChannelMix.Disable
	p.publishVolumeOn(mix, n)

	// Step 3: resample.
	resample, err := kernels.NewResampler(kernels.ResampleConfig{
		Channels: p.outChannels, InRate: n.In.Format.Rate, OutRate: n.Out.Format.Rate,
		Quality: n.Props.Resample.Quality, CPU: n.CPU,
	})
	if err != nil {
		return nil, err
	}
	p.Resample = resample
	p.resampleDisabled = n.Props.Resample.Disable

	// Step 4: out-convert, built by the same algorithm as step 1 with src
	// and dst swapped: dspOut is the canonical sorted source, n.Out.Format
	// the side's own (possibly reordered) physical layout. n.Out.SrcRemap[p]
	// is the canonical lane that physical port p reads from.
	dspOut := format.DSP(n.Out.Format.Channels, n.Out.Format.Rate, format.SortPositions(n.Out.Format.Position))
	p.OutRemap = format.BuildRemap(n.Out.Format.Position)
	n.Out.SrcRemap = p.OutRemap.SrcRemap
	n.Out.DstRemap = p.OutRemap.DstRemap
	outConv, err := kernels.NewConverter(kernels.ConvertConfig{Src: dspOut, Dst: n.Out.Format, CPU: n.CPU})
	if err != nil {
		return nil, err
	}
	p.OutConvert = outConv
	n.Out.Convert = outConv
	n.Out.Passthrough = outConv.IsPassthrough()

	// Step 5: scratch.
	p.growScratch(n.QuantumLimit * 4)

	return p, nil
}

var errBothSidesMustHaveFormat = pipelineAssemblyErr("both sides require a negotiated format before Start")

type pipelineAssemblyErr string

func (e pipelineAssemblyErr) Error() string { return string(e) }

// growScratch (re)allocates empty/scratch/tmp pools to hold maxSize bytes
// per lane, zeroing only the empty pool (spec.md §4.5 step 5, §4.7).
func (p *Pipeline) growScratch(maxSize uint32) {
	size := align(maxSize)
	if size <= p.emptySize {
		return
	}
	p.emptySize = size
	p.empty = make([]byte, size)
	p.scratch = make([]byte, size)
	for ring := 0; ring < 2; ring++ {
		p.tmp[ring] = make([][]byte, MaxPorts)
		for lane := 0; lane < MaxPorts; lane++ {
			p.tmp[ring][lane] = make([]byte, size)
		}
	}
}

// rebuildChannelMix re-initialises the channel-mix kernel after an option
// flag change (spec.md §4.3, "if a kernel needs re-initialisation, the
// channel-mix kernel is re-built").
func (p *Pipeline) rebuildChannelMix(n *Node) error {
	srcMask := n.In.Format.Mask()
	dstMask := n.Out.Format.Mask()
	var mixOpts kernels.MixOption
	if n.Props.ChannelMix.Normalize {
		mixOpts |= kernels.MixNormalize
	}
	if n.Props.ChannelMix.MixLFE {
		mixOpts |= kernels.MixMixLFE
	}
	if n.Props.ChannelMix.Upmix {
		mixOpts |= kernels.MixUpmix
	}
	mix, err := kernels.NewChannelMixer(kernels.ChannelMixConfig{
		SrcChannels: p.inChannels, DstChannels: p.outChannels,
		SrcMask: srcMask, DstMask: dstMask,
		Rate: n.In.Format.Rate, Options: mixOpts,
		LFECutoffHz: n.Props.ChannelMix.LFECutoffHz, CPU: n.CPU,
	})
	if err != nil {
		return err
	}
	p.Mix = mix
	p.mixDisabled = n.Props.ChannelMix.Disable
	p.publishVolumeOn(mix, n)
	return nil
}

// publishVolume re-publishes the active volume track into the channel-mix
// kernel (spec.md §4.3, §4.5 step 2).
func (p *Pipeline) publishVolume(n *Node) {
	if p.Mix == nil {
		return
	}
	p.publishVolumeOn(p.Mix, n)
}

func (p *Pipeline) publishVolumeOn(mix kernels.ChannelMixer, n *Node) {
	active := n.Volume.Active()
	mute := active.Mute
	mix.SetVolume(n.Props.Volume, mute, active.Values)
}
