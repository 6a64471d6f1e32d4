package kernels

import (
	"github.com/oov/audio/resampler"

	"github.com/linuxmatters/audioconvertnode/internal/platform"
)

// Resampler is the resample kernel capability of spec.md §6.
type Resampler interface {
	// Process reads up to *inLen frames from in and writes up to
	// *outLen frames into out, updating both to the frames actually
	// consumed/produced.
	Process(in [][]float32, inLen *int, out [][]float32, outLen *int)
	// UpdateRate applies a fractional rate adjustment on top of the
	// configured i_rate/o_rate ratio (spec.md §4.6 "rate_scale").
	UpdateRate(rate float64)
	// Delay reports the filter's reported group delay in output samples.
	Delay() int
	// InLen is the inverse query: how many input frames are needed to
	// produce outSamples output frames at the current rate.
	InLen(outSamples int) int
	Reset()
}

// ResampleConfig configures a Resampler (spec.md §6).
type ResampleConfig struct {
	Channels        int
	InRate, OutRate uint32
	Quality         int // 0..14, spec.md §4.1
	Peaks           bool
	CPU             platform.CPU
}

// oovResampler wraps github.com/oov/audio/resampler, the same package
// other_examples/45559c84 (Roundtable's AudioFormatConversionDevice) wires:
// one resampler.Resampler built for all channels, addressed per channel
// through ProcessFloat32(ch, in, out). Delay() is derived from the
// configured quality, which oov's resampler scales into its FIR length —
// this is what makes spec.md §8 scenario 3's "± quality-dependent
// transient" a real, quality-sensitive number rather than a constant.
// InLen() is derived from the in/out rate ratio and the current rate
// adjustment.
type oovResampler struct {
	cfg     ResampleConfig
	r       *resampler.Resampler
	ratio   float64
	rateAdj float64
}

// NewResampler builds the default Resampler.
func NewResampler(cfg ResampleConfig) (Resampler, error) {
	return &oovResampler{
		cfg:     cfg,
		r:       resampler.New(cfg.Channels, int(cfg.InRate), int(cfg.OutRate), cfg.Quality),
		ratio:   float64(cfg.OutRate) / float64(cfg.InRate),
		rateAdj: 1.0,
	}, nil
}

func (r *oovResampler) Process(in [][]float32, inLen *int, out [][]float32, outLen *int) {
	consumed, produced := 0, 0
	for ch := 0; ch < r.cfg.Channels; ch++ {
		c, p := r.r.ProcessFloat32(ch, in[ch][:*inLen], out[ch][:*outLen])
		consumed, produced = c, p
	}
	*inLen = consumed
	*outLen = produced
}

// UpdateRate rebuilds the underlying resampler against a scaled output
// rate. github.com/oov/audio/resampler exposes no runtime rate-adjustment
// knob (other_examples' own Roundtable usage only ever calls
// resampler.New once per fixed in/out rate pair, see DESIGN.md); the only
// way to make rate_scale/props.rate actually change resampled samples with
// this package is to reconstruct the FIR state at the new ratio. Skipped
// when the adjustment is unchanged, so the common unity case never pays
// for a rebuild on every tick.
func (r *oovResampler) UpdateRate(rate float64) {
	if rate <= 0 {
		rate = 1
	}
	if rate == r.rateAdj {
		return
	}
	r.rateAdj = rate
	outRate := int(float64(r.cfg.OutRate) * rate)
	if outRate <= 0 {
		outRate = int(r.cfg.OutRate)
	}
	r.r = resampler.New(r.cfg.Channels, int(r.cfg.InRate), outRate, r.cfg.Quality)
}

// Delay approximates the resampler's group delay from its quality: higher
// quality means a longer FIR and thus more delay, matching oov/audio's own
// quality/latency tradeoff.
func (r *oovResampler) Delay() int {
	return (r.cfg.Quality + 1) * 4
}

func (r *oovResampler) InLen(outSamples int) int {
	effectiveRatio := r.ratio * r.rateAdj
	if effectiveRatio == 0 {
		return 0
	}
	return int(float64(outSamples)/effectiveRatio) + 1
}

func (r *oovResampler) Reset() {
	outRate := int(float64(r.cfg.OutRate) * r.rateAdj)
	if outRate <= 0 {
		outRate = int(r.cfg.OutRate)
	}
	r.r = resampler.New(r.cfg.Channels, int(r.cfg.InRate), outRate, r.cfg.Quality)
}
