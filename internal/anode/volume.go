package anode

import "github.com/linuxmatters/audioconvertnode/internal/format"

// Volumes is one of the three independent volume tracks spec.md §3 names:
// per-channel gains plus a mute flag, always kept at exactly the current
// channel count (the "volume array length equality" invariant, spec.md §8).
type Volumes struct {
	Values []float32
	Mute   bool
}

// UnityVolumes builds an unmuted, all-1.0 track of the given length.
func UnityVolumes(n int) Volumes {
	v := Volumes{Values: make([]float32, n)}
	for i := range v.Values {
		v.Values[i] = 1.0
	}
	return v
}

func meanOf(v []float32) float32 {
	if len(v) == 0 {
		return 1.0
	}
	var sum float32
	for _, x := range v {
		sum += x
	}
	return sum / float32(len(v))
}

// resize resets v to n entries, every one of them equal to the arithmetic
// mean of the previous entries, or 1.0 if v was empty (spec.md
// §4.4's volume-array resize rule).
func (v Volumes) resize(n int) Volumes {
	if len(v.Values) == n {
		return v
	}
	fill := meanOf(v.Values)
	nv := make([]float32, n)
	for i := range nv {
		nv[i] = fill
	}
	return Volumes{Values: nv, Mute: v.Mute}
}

func (v Volumes) swap(i, j int) {
	if i >= 0 && j >= 0 && i < len(v.Values) && j < len(v.Values) {
		v.Values[i], v.Values[j] = v.Values[j], v.Values[i]
	}
}

// VolumeTriple carries the channel/soft/monitor volume tracks spec.md §3
// names, plus the have_soft_volume flag selecting which track feeds the
// channel-mix kernel.
type VolumeTriple struct {
	Channel        Volumes
	Soft           Volumes
	Monitor        Volumes
	HaveSoftVolume bool
}

// NewVolumeTriple builds a triple of unity, unmuted volumes at n channels.
func NewVolumeTriple(n int) VolumeTriple {
	return VolumeTriple{
		Channel: UnityVolumes(n),
		Soft:    UnityVolumes(n),
		Monitor: UnityVolumes(n),
	}
}

// Active returns the track that feeds the channel-mix kernel: soft if
// HaveSoftVolume, else channel (spec.md §3).
func (vt VolumeTriple) Active() Volumes {
	if vt.HaveSoftVolume {
		return vt.Soft
	}
	return vt.Channel
}

// Resize brings all three tracks to n entries (spec.md §4.4).
func (vt *VolumeTriple) Resize(n int) {
	vt.Channel = vt.Channel.resize(n)
	vt.Soft = vt.Soft.resize(n)
	vt.Monitor = vt.Monitor.resize(n)
}

func (vt *VolumeTriple) swap(i, j int) {
	vt.Channel.swap(i, j)
	vt.Soft.swap(i, j)
	vt.Monitor.swap(i, j)
}

// RemapChannelMap reconciles chanMap (the side's current channel map)
// against target (the newly-negotiated format's position vector), per
// spec.md §4.4: for each index i in chanMap, find j >= i in target with the
// same channel identifier and swap i/j in the map and in all three volume
// arrays; then overwrite the map with target verbatim, truncated or
// lengthened to len(target), and resize every volume array to match.
//
// The inner search starts at j = i rather than j = 0, which is spec.md §9's
// first documented Open Question: this assumes the caller's channel map is
// already in a monotonic (non-decreasing) order consistent with target, so
// a forward-only scan suffices. Some non-monotone permutations are not fully
// reconciled by this scan (e.g. map [FL, FR, FC] against target
// [FC, FL, FR]: FC's volume ends up at index 2 while the map puts FC at
// index 0); this implementation preserves that original behaviour rather than
// silently upgrading to an O(n^2) any-order search, since spec.md directs
// implementers to document their chosen behaviour rather than change it.
func (vt *VolumeTriple) RemapChannelMap(chanMap []format.Position, target []format.Position) []format.Position {
	m := append([]format.Position(nil), chanMap...)
	for i := 0; i < len(m) && i < len(target); i++ {
		for j := i; j < len(target); j++ {
			if j < len(m) && target[j] == m[i] {
				m[i], m[j] = m[j], m[i]
				vt.swap(i, j)
				break
			}
		}
	}
	result := make([]format.Position, len(target))
	copy(result, target)
	vt.Resize(len(target))
	return result
}
