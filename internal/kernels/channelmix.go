package kernels

import (
	"github.com/linuxmatters/audioconvertnode/internal/format"
	"github.com/linuxmatters/audioconvertnode/internal/platform"
)

// MixOption is one of the three channel-mix option flags spec.md §6 names.
type MixOption uint32

const (
	MixNormalize MixOption = 1 << iota
	MixMixLFE
	MixUpmix
)

// MixFlags mirrors the kernel's flag word (spec.md §6): IdentityFlag set
// means the kernel is passthrough.
type MixFlags uint32

const IdentityFlag MixFlags = 1 << 0

// ChannelMixer is the channel-mix kernel capability of spec.md §6: applies
// per-channel volume and up/down-mixes between a source and destination
// channel mask.
type ChannelMixer interface {
	// SetVolume publishes the active volume track: a master gain, a mute
	// flag, and n per-channel volumes.
	SetVolume(master float32, mute bool, vols []float32)
	// Process mixes n frames from src (SrcChannels planes) into dst
	// (DstChannels planes).
	Process(dst []Plane, src []Plane, n int)
	Flags() MixFlags
}

// ChannelMixConfig configures a ChannelMixer (spec.md §4.5 step 2, §6).
type ChannelMixConfig struct {
	SrcChannels, DstChannels int
	SrcMask, DstMask         format.Mask
	Rate                     uint32
	Options                  MixOption
	LFECutoffHz              float32
	CPU                      platform.CPU
}

// gainMixer is the default ChannelMixer: a [dst][src] gain matrix built from
// channel counts and indices alone (SrcMask and DstMask are not consulted).
// Equal counts give the identity matrix; a downmix sums source channel s
// into destination lane s mod DstChannels, scaled down only when
// MixNormalize is set; an upmix routes source s to lane s and fills the
// remaining lanes only when MixUpmix is set. The exact per-pair mix
// coefficients used by the real SIMD channelmix-ops.c kernel are out of
// scope per spec.md §1.
type gainMixer struct {
	cfg    ChannelMixConfig
	master float32
	mute   bool
	vols   []float32
	matrix [][]float32 // [dst][src] gain
}

// NewChannelMixer builds the default ChannelMixer.
func NewChannelMixer(cfg ChannelMixConfig) (ChannelMixer, error) {
	m := &gainMixer{cfg: cfg, master: 1.0, vols: make([]float32, cfg.SrcChannels)}
	for i := range m.vols {
		m.vols[i] = 1.0
	}
	m.matrix = buildMixMatrix(cfg)
	return m, nil
}

func buildMixMatrix(cfg ChannelMixConfig) [][]float32 {
	mat := make([][]float32, cfg.DstChannels)
	for d := range mat {
		mat[d] = make([]float32, cfg.SrcChannels)
	}
	switch {
	case cfg.SrcChannels == cfg.DstChannels:
		for i := range mat {
			mat[i][i] = 1.0
		}
	case cfg.SrcChannels > cfg.DstChannels:
		// Downmix: sum source channel s into destination lane
		// s mod DstChannels, scaled so energy does not clip when summing N
		// sources into one lane (N is the most sources any lane receives).
		scale := float32(1.0)
		if cfg.Options&MixNormalize != 0 {
			scale = 1.0 / float32((cfg.SrcChannels+cfg.DstChannels-1)/cfg.DstChannels)
		}
		for s := 0; s < cfg.SrcChannels; s++ {
			d := s % cfg.DstChannels
			mat[d][s] = scale
		}
	default:
		// Upmix: route each source channel to its index, and duplicate
		// into remaining destination lanes only when MixUpmix requests it.
		for s := 0; s < cfg.SrcChannels; s++ {
			mat[s][s] = 1.0
		}
		if cfg.Options&MixUpmix != 0 {
			for d := cfg.SrcChannels; d < cfg.DstChannels; d++ {
				mat[d][d%cfg.SrcChannels] = 1.0
			}
		}
	}
	return mat
}

func (m *gainMixer) SetVolume(master float32, mute bool, vols []float32) {
	m.master = master
	m.mute = mute
	if len(vols) == len(m.vols) {
		copy(m.vols, vols)
	}
}

func (m *gainMixer) Flags() MixFlags {
	if m.cfg.SrcChannels == m.cfg.DstChannels && m.master == 1.0 && !m.mute && allUnity(m.vols) {
		return IdentityFlag
	}
	return 0
}

func allUnity(vols []float32) bool {
	for _, v := range vols {
		if v != 1.0 {
			return false
		}
	}
	return true
}

func (m *gainMixer) Process(dst []Plane, src []Plane, n int) {
	gain := m.master
	if m.mute {
		gain = 0
	}
	srcF := make([][]float32, len(src))
	for i, p := range src {
		srcF[i] = p.Float32()
	}
	for d := range dst {
		out := dst[d].Float32()
		row := m.matrix[d]
		for i := 0; i < n; i++ {
			var acc float32
			for s, w := range row {
				if w == 0 {
					continue
				}
				sv := float32(1.0)
				if s < len(m.vols) {
					sv = m.vols[s]
				}
				acc += srcF[s][i] * w * sv
			}
			out[i] = acc * gain
		}
	}
}
