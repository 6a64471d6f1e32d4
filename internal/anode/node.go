// Package anode implements the audio-conversion processing node: port
// registry, parameter surface, property model, pipeline assembler, and
// process loop described in spec.md. The three DSP kernel capabilities it
// drives (format convert, channel mix, resample) live in
// internal/kernels; CPU feature detection and logging live in
// internal/platform.
package anode

import (
	"fmt"

	"github.com/linuxmatters/audioconvertnode/internal/format"
	"github.com/linuxmatters/audioconvertnode/internal/platform"
)

// Node is the audio-conversion processing node (spec.md §2-§5).
type Node struct {
	In, Out *Side

	Props  Props
	Volume VolumeTriple // the output side's active volume triple

	Started  bool
	Pipeline *Pipeline

	CPU platform.CPU
	Log platform.Logger

	// QuantumLimit bounds samples-per-tick (spec.md §4.6's quantum_limit,
	// the node's upper scratch-size parameter).
	QuantumLimit uint32

	RateMatch *RateMatch

	// RateScale is the host clock-derived playback-rate scale (spec.md
	// "Pipeline state"'s rate_scale): multiplied with props.rate to drive
	// the resampler even when no RateMatch block is attached. Defaults to
	// 1.0 (no scaling).
	RateScale float64

	// HostPassthroughHint is the buffer-registration passthrough hint
	// spec.md §4.7 describes: cleared once an output port registers an all-static
	// (no DYNAMIC-data) buffer set, since the host then owns every output
	// buffer outright and the node cannot hand it a borrowed pointer. This
	// is independent of a Side's per-stage Passthrough flag.
	HostPassthroughHint bool
}

// RateMatch is the host-provided control block spec.md's GLOSSARY
// describes: a live fractional rate correction, activity flag, reported
// filter delay, and required input-size hint.
type RateMatch struct {
	Active   bool
	Rate     float64
	Delay    int
	SizeHint int
}

// New creates a blank node: convert mode on both sides, zero ports, unity
// props (spec.md §3 "Lifecycle").
func New(cpu platform.CPU, log platform.Logger) *Node {
	if log == nil {
		log = platform.NopLogger{}
	}
	return &Node{
		In:                  newSide(DirInput),
		Out:                 newSide(DirOutput),
		Props:               DefaultProps(),
		Volume:              NewVolumeTriple(0),
		CPU:                 cpu,
		Log:                 log,
		QuantumLimit:        8192,
		RateScale:           1.0,
		HostPassthroughHint: true,
	}
}

func (n *Node) side(dir Direction) *Side {
	if dir == DirInput {
		return n.In
	}
	return n.Out
}

// SetPortConfig applies the read-write PortConfig parameter (spec.md §4.1,
// §4.2): reconfigures one side, retracting and re-emitting its ports.
func (n *Node) SetPortConfig(req PortConfigRequest) error {
	if n.Started {
		return newError(KindContract, "SetPortConfig", fmt.Errorf("cannot reconfigure ports while started"))
	}
	if req.Mode == ModeDSP && req.Format == nil {
		return newError(KindContract, "SetPortConfig", fmt.Errorf("dsp mode requires an embedded format"))
	}
	s := n.side(req.Direction)
	s.retractPorts()
	s.Mode = req.Mode
	s.Monitor = req.Monitor

	switch req.Mode {
	case ModeDSP:
		f := *req.Format
		if !f.IsDSP() {
			f = format.DSP(f.Channels, f.Rate, f.Position)
		}
		channels := int(f.Channels)
		for i := 0; i < channels; i++ {
			s.Ports = append(s.Ports, newPort(req.Direction, i, true))
		}
		// Monitor fan-out: input side monitor=true adds n_in_channels+1
		// output ports, offset by one (spec.md §4.1, §4.2, §9 "monitor-side
		// port numbering").
		if req.Monitor && req.Direction == DirInput {
			out := n.Out
			out.Monitor = true
			out.Ports = nil
			for i := 0; i < channels+1; i++ {
				p := newPort(DirOutput, i, true)
				p.Monitor = i > 0
				out.Ports = append(out.Ports, p)
			}
			out.State = StateProfiled
		}
		s.ChannelMap = append([]format.Position(nil), f.Position...)
		s.State = StateProfiled
	case ModeConvert:
		s.Ports = append(s.Ports, newPort(req.Direction, 0, false))
		s.State = StateProfiled
	}
	return nil
}

// SetPortFormat applies a negotiated format to every port of one side
// (convert or dsp mode), transitioning the side Profiled -> Formatted
// (spec.md §4.2). It also
// reconciles the channel map and volume tracks per spec.md §4.4.
func (n *Node) SetPortFormat(dir Direction, f format.Format) error {
	s := n.side(dir)
	if !f.Valid() {
		return newError(KindFormatMismatch, "SetPortFormat", fmt.Errorf("invalid format"))
	}
	if s.Mode == ModeDSP && !f.IsDSP() {
		return newError(KindFormatMismatch, "SetPortFormat", fmt.Errorf("dsp side requires dsp format"))
	}
	if len(s.ChannelMap) == 0 {
		s.ChannelMap = append([]format.Position(nil), f.Position...)
		if dir == DirOutput {
			n.Volume = NewVolumeTriple(len(s.ChannelMap))
		}
	} else if dir == DirOutput {
		s.ChannelMap = n.Volume.RemapChannelMap(s.ChannelMap, f.Position)
	} else {
		s.ChannelMap = append([]format.Position(nil), f.Position...)
	}
	s.Format = f
	s.HaveFormat = true
	s.State = StateFormatted
	for _, port := range s.Ports {
		port.Format = f
		port.HaveFormat = true
		if port.DSP {
			port.Blocks = 1
			// Under monitor fan-out the non-monitor port (index 0) carries
			// every main-signal channel as one port with f.Channels blocks;
			// the monitor taps that follow it each stay a single block
			// (spec.md §8 scenario 5, §9 "monitor-side port numbering").
			if s.Monitor && !port.Monitor && port.Index == 0 {
				port.Blocks = f.Channels
			}
			port.Stride = f.Stride() / f.Channels
		} else {
			port.Blocks = f.Blocks()
			port.Stride = f.Stride()
		}
	}
	return nil
}

// ApplyProps walks a sparse property update in any order (spec.md §4.3).
func (n *Node) ApplyProps(u PropUpdate) error {
	reinitMix := false
	if u.Volume != nil {
		n.Props.Volume = *u.Volume
	}
	if u.Mute != nil {
		n.Volume.Channel.Mute = *u.Mute
	}
	if u.ChannelVolumes != nil {
		n.Volume.Channel.Values = append([]float32(nil), u.ChannelVolumes...)
	}
	if u.SoftMute != nil {
		n.Volume.Soft.Mute = *u.SoftMute
		n.Volume.HaveSoftVolume = true
	}
	if u.SoftVolumes != nil {
		n.Volume.Soft.Values = append([]float32(nil), u.SoftVolumes...)
		n.Volume.HaveSoftVolume = true
	}
	if u.Mute != nil || u.ChannelVolumes != nil {
		if u.SoftMute == nil && u.SoftVolumes == nil {
			n.Volume.HaveSoftVolume = false
		}
	}
	if u.MonitorMute != nil {
		n.Volume.Monitor.Mute = *u.MonitorMute
	}
	if u.MonitorVolumes != nil {
		n.Volume.Monitor.Values = append([]float32(nil), u.MonitorVolumes...)
	}
	if u.ChannelMap != nil && n.Out.HaveFormat {
		n.Out.ChannelMap = n.Volume.RemapChannelMap(n.Out.ChannelMap, u.ChannelMap)
	}
	if u.Rate != nil {
		n.Props.Rate = *u.Rate
	}
	if u.MonitorChanVolumes != nil {
		n.Props.MonitorChannelVolumes = *u.MonitorChanVolumes
	}
	if u.ChannelMixNormalize != nil {
		n.Props.ChannelMix.Normalize = *u.ChannelMixNormalize
		reinitMix = true
	}
	if u.ChannelMixMixLFE != nil {
		n.Props.ChannelMix.MixLFE = *u.ChannelMixMixLFE
		reinitMix = true
	}
	if u.ChannelMixUpmix != nil {
		n.Props.ChannelMix.Upmix = *u.ChannelMixUpmix
		reinitMix = true
	}
	if u.ChannelMixLFECutoffHz != nil {
		n.Props.ChannelMix.LFECutoffHz = *u.ChannelMixLFECutoffHz
	}
	if u.ChannelMixDisable != nil {
		n.Props.ChannelMix.Disable = *u.ChannelMixDisable
		reinitMix = true
	}
	if u.ResampleQuality != nil {
		n.Props.Resample.Quality = *u.ResampleQuality
	}
	if u.ResampleDisable != nil {
		n.Props.Resample.Disable = *u.ResampleDisable
	}

	if reinitMix && n.Pipeline != nil {
		if err := n.Pipeline.rebuildChannelMix(n); err != nil {
			return newError(KindPipelineAssembly, "ApplyProps", err)
		}
	}
	if n.Pipeline != nil {
		n.Pipeline.publishVolume(n)
	}
	return nil
}

// PropsSnapshot reads back the current aggregate Props object plus the
// active volume triple and channel maps (spec.md §4.1 Props read path,
// §8 scenario 6 "Props readback").
type PropsSnapshot struct {
	Props          Props
	Volume         VolumeTriple
	InChannelMap   []format.Position
	OutChannelMap  []format.Position
}

func (n *Node) PropsSnapshot() PropsSnapshot {
	return PropsSnapshot{
		Props:         n.Props,
		Volume:        n.Volume,
		InChannelMap:  n.In.ChannelMap,
		OutChannelMap: n.Out.ChannelMap,
	}
}

// Command is one of the four node commands spec.md §6 names.
type Command int

const (
	CommandStart Command = iota
	CommandPause
	CommandSuspend
	CommandFlush
)

// SendCommand executes a node command (spec.md §3 "Lifecycle", §6
// "Commands"). Start assembles the pipeline; Pause/Suspend/Flush clear
// started.
func (n *Node) SendCommand(cmd Command) error {
	switch cmd {
	case CommandStart:
		if !n.In.HaveFormat || !n.Out.HaveFormat {
			return newError(KindPipelineAssembly, "SendCommand(Start)", fmt.Errorf("both sides require a format"))
		}
		p, err := Assemble(n)
		if err != nil {
			return newError(KindPipelineAssembly, "SendCommand(Start)", err)
		}
		n.Pipeline = p
		n.In.State = StateConfigured
		n.Out.State = StateConfigured
		n.Started = true
		// Prime the resampler at rate_scale * props.rate before the first
		// tick runs: spec.md's "Rate inactive" boundary holds as soon as
		// the node starts, not only after process has run once.
		n.recomputeRateMatch()
		return nil
	case CommandPause, CommandSuspend, CommandFlush:
		n.Started = false
		return nil
	default:
		return newError(KindUnsupported, "SendCommand", fmt.Errorf("unknown command %d", cmd))
	}
}

// Clear releases all node memory, returning it to its blank state (spec.md
// §3 "Lifecycle").
func (n *Node) Clear() {
	n.Started = false
	n.Pipeline = nil
	n.In = newSide(DirInput)
	n.Out = newSide(DirOutput)
	n.Volume = NewVolumeTriple(0)
	n.Props = DefaultProps()
}
