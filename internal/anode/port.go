package anode

import (
	"github.com/linuxmatters/audioconvertnode/internal/format"
	"github.com/linuxmatters/audioconvertnode/internal/kernels"
)

// Direction is a side's data-flow direction.
type Direction int

const (
	DirInput Direction = iota
	DirOutput
)

func (d Direction) String() string {
	if d == DirInput {
		return "in"
	}
	return "out"
}

// Mode is a side's port-configuration mode (spec.md §2).
type Mode int

const (
	ModeConvert Mode = iota
	ModeDSP
)

// State is a side's position in the port-configuration state machine
// (spec.md §4.2).
type State int

const (
	StateUnprofiled State = iota
	StateProfiled
	StateFormatted
	StateConfigured
)

// MaxPorts bounds the number of ports (and scratch lanes) a side may carry,
// mirroring the original's SPA_AUDIO_MAX_CHANNELS-sized MAX_PORTS.
const MaxPorts = 64

// MaxBuffers bounds the number of buffers a host may register on one port
// (spec.md §4.7).
const MaxBuffers = 32

// IOStatus is the handshake state of one port's externally-owned IO slot.
type IOStatus uint32

const (
	IOStatusEmpty IOStatus = iota
	IOStatusNeedData
	IOStatusHaveData
)

// Chunk describes the valid region of one buffer block for one tick.
type Chunk struct {
	Offset uint32
	Size   uint32
}

// IOBuffers is the per-port IO slot the host sets before every process
// tick and that process updates in place (spec.md §4.6).
type IOBuffers struct {
	Status   IOStatus
	BufferID uint32
	Chunks   []Chunk
}

// BufferDesc is one host-registered buffer (spec.md §4.7).
type BufferDesc struct {
	ID      int
	Data    [][]byte
	MaxSize uint32
	Dynamic bool
}

// StatusFlags is the bitmask process() returns (spec.md §4.6).
type StatusFlags uint32

const (
	StatusHaveData StatusFlags = 1 << iota
	StatusNeedData
)

// Port mirrors spec.md §3's Port record.
type Port struct {
	Direction  Direction
	Index      int
	DSP        bool
	Monitor    bool
	Format     format.Format
	HaveFormat bool
	Stride     uint32
	Blocks     uint32
	IO         *IOBuffers
	Buffers    []BufferDesc
	Ready      []int // FIFO of buffer ids available to satisfy an output tick
}

func newPort(dir Direction, index int, dsp bool) *Port {
	return &Port{Direction: dir, Index: index, DSP: dsp}
}

// PushReady appends id to the ready FIFO (spec.md §4.7, "pushes the buffer
// into its ready FIFO").
func (p *Port) PushReady(id int) {
	p.Ready = append(p.Ready, id)
}

// PopReady removes and returns the head of the ready FIFO.
func (p *Port) PopReady() (int, bool) {
	if len(p.Ready) == 0 {
		return 0, false
	}
	id := p.Ready[0]
	p.Ready = p.Ready[1:]
	return id, true
}

func (p *Port) bufferByID(id uint32) (*BufferDesc, bool) {
	for i := range p.Buffers {
		if p.Buffers[i].ID == int(id) {
			return &p.Buffers[i], true
		}
	}
	return nil, false
}

// Latency is the per-side latency descriptor the port parameter surface
// exposes (spec.md §4.1's per-port Latency parameter; quantum/rate range
// supplements what the distilled parameter table left implicit — see
// SPEC_FULL.md's "latency descriptor" entry).
type Latency struct {
	MinQuantum, MaxQuantum uint32
	MinRate, MaxRate       uint32
}

// Side mirrors spec.md §3's Side record: one of the node's two directions,
// with its own mode, ports, negotiated format, channel map, remap tables,
// convert handle, and passthrough flag.
type Side struct {
	Dir        Direction
	Mode       Mode
	State      State
	Monitor    bool
	Ports      []*Port
	Format     format.Format
	HaveFormat bool
	ChannelMap []format.Position

	// SrcRemap/DstRemap map the side's canonical (port) position order to
	// and from the sorted order used internally during in/out-convert
	// (spec.md §4.5 step 1/4).
	SrcRemap []int
	DstRemap []int

	Convert     kernels.Converter
	Latency     Latency
	Passthrough bool
}

func newSide(dir Direction) *Side {
	return &Side{Dir: dir, Mode: ModeConvert, State: StateUnprofiled}
}

// Channels reports the side's negotiated channel count, 0 if unformatted.
func (s *Side) Channels() int {
	if !s.HaveFormat {
		return 0
	}
	return int(s.Format.Channels)
}

// retractPorts clears the side's port list; the host observes this as a
// "port gone" event per port (spec.md §4.1/§4.2) — event emission itself is
// the host-runtime's concern (spec.md §1, out of scope), so this only
// mutates local state.
func (s *Side) retractPorts() {
	s.Ports = nil
}
