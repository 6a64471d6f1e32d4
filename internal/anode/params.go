package anode

import "github.com/linuxmatters/audioconvertnode/internal/format"

// ChannelMixOptions mirrors the channel-mix kernel's option flags and LFE
// cutoff (spec.md §6).
type ChannelMixOptions struct {
	Normalize   bool
	MixLFE      bool
	Upmix       bool
	LFECutoffHz float32
	Disable     bool
}

// ResampleOptions mirrors the resample kernel's quality/disable knobs
// (spec.md §6).
type ResampleOptions struct {
	Quality int
	Disable bool
}

// Props is the node-level scalar property aggregate spec.md §4.1/§6
// describes: master volume, pitch-scale rate, and the nested channel-mix/
// resample/monitor option block.
type Props struct {
	Volume                float32
	Rate                  float64
	MonitorChannelVolumes bool
	ChannelMix            ChannelMixOptions
	Resample              ResampleOptions
}

// DefaultProps is the node's state at construction: unity volume, no pitch
// scaling, resample quality 4 (oov/audio's own suggested default).
func DefaultProps() Props {
	return Props{Volume: 1.0, Rate: 1.0, Resample: ResampleOptions{Quality: 4}}
}

// PropKey names one of the 17 property descriptors spec.md §4.1's PropInfo
// enumerates.
type PropKey string

const (
	PropVolume                PropKey = "volume"
	PropMute                  PropKey = "mute"
	PropChannelVolumes        PropKey = "channelVolumes"
	PropChannelMap            PropKey = "channelMap"
	PropSoftMute              PropKey = "softMute"
	PropSoftVolumes           PropKey = "softVolumes"
	PropMonitorMute           PropKey = "monitorMute"
	PropMonitorVolumes        PropKey = "monitorVolumes"
	PropRate                  PropKey = "rate"
	PropMonitorChanVolumes    PropKey = "monitor.channel-volumes"
	PropChannelMixNormalize   PropKey = "channelmix.normalize"
	PropChannelMixMixLFE      PropKey = "channelmix.mix-lfe"
	PropChannelMixUpmix       PropKey = "channelmix.upmix"
	PropChannelMixLFECutoff   PropKey = "channelmix.lfe-cutoff"
	PropChannelMixDisable     PropKey = "channelmix.disable"
	PropResampleQuality       PropKey = "resample.quality"
	PropResampleDisable       PropKey = "resample.disable"
)

// PropValueType identifies the wire type of one property (spec.md §9
// "Parameter POD encoding" leaves the wire format open; this is the schema
// seam a real POD codec would sit behind).
type PropValueType int

const (
	PropTypeFloat PropValueType = iota
	PropTypeDouble
	PropTypeInt
	PropTypeBool
	PropTypeFloatArray
	PropTypeIDArray
)

// PropDescriptor is one PropInfo entry.
type PropDescriptor struct {
	Key      PropKey
	Type     PropValueType
	ReadOnly bool
}

// PropInfo is the node's fixed 17-entry read-only property descriptor list
// (spec.md §4.1).
var PropInfo = []PropDescriptor{
	{PropVolume, PropTypeFloat, false},
	{PropMute, PropTypeBool, false},
	{PropChannelVolumes, PropTypeFloatArray, false},
	{PropChannelMap, PropTypeIDArray, false},
	{PropSoftMute, PropTypeBool, false},
	{PropSoftVolumes, PropTypeFloatArray, false},
	{PropMonitorMute, PropTypeBool, false},
	{PropMonitorVolumes, PropTypeFloatArray, false},
	{PropRate, PropTypeDouble, false},
	{PropMonitorChanVolumes, PropTypeBool, false},
	{PropChannelMixNormalize, PropTypeBool, false},
	{PropChannelMixMixLFE, PropTypeBool, false},
	{PropChannelMixUpmix, PropTypeBool, false},
	{PropChannelMixLFECutoff, PropTypeFloat, false},
	{PropChannelMixDisable, PropTypeBool, false},
	{PropResampleQuality, PropTypeInt, false},
	{PropResampleDisable, PropTypeBool, false},
}

// PropUpdate is a sparse set of property writes; nil fields are left
// untouched (spec.md §4.3, "applies named scalar properties in any order").
type PropUpdate struct {
	Volume                *float32
	Mute                  *bool
	ChannelVolumes        []float32
	ChannelMap            []format.Position
	SoftMute              *bool
	SoftVolumes           []float32
	MonitorMute           *bool
	MonitorVolumes        []float32
	Rate                  *float64
	MonitorChanVolumes    *bool
	ChannelMixNormalize   *bool
	ChannelMixMixLFE      *bool
	ChannelMixUpmix       *bool
	ChannelMixLFECutoffHz *float32
	ChannelMixDisable     *bool
	ResampleQuality       *int
	ResampleDisable       *bool
}

// EnumPortConfigEntry is one of the four static EnumPortConfig combinations
// (spec.md §4.1).
type EnumPortConfigEntry struct {
	Direction Direction
	Mode      Mode
}

// EnumPortConfig lists the four static direction x {dsp, convert}
// combinations a node advertises.
var EnumPortConfig = []EnumPortConfigEntry{
	{DirInput, ModeDSP},
	{DirInput, ModeConvert},
	{DirOutput, ModeDSP},
	{DirOutput, ModeConvert},
}

// PortConfigRequest is the read-write PortConfig parameter's payload
// (spec.md §4.1).
type PortConfigRequest struct {
	Direction Direction
	Mode      Mode
	Monitor   bool
	Format    *format.Format // required when Mode == ModeDSP
}
