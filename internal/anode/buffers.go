package anode

import (
	"fmt"
	"unsafe"
)

// UseBuffers registers up to MaxBuffers buffer descriptors on one port
// (spec.md §4.7). Output ports push every registered id into their ready
// FIFO. If any buffer's MaxSize exceeds the pipeline's current scratch
// size, the scratch pools are grown. Growth only happens once a pipeline
// exists: buffers registered before Start do not enlarge the scratch pools,
// which Start sizes from QuantumLimit alone.
func (n *Node) UseBuffers(dir Direction, portIndex int, bufs []BufferDesc) error {
	if len(bufs) > MaxBuffers {
		return newError(KindResourceExhausted, "UseBuffers", fmt.Errorf("too many buffers: %d > %d", len(bufs), MaxBuffers))
	}
	s := n.side(dir)
	if portIndex < 0 || portIndex >= len(s.Ports) {
		return newError(KindContract, "UseBuffers", fmt.Errorf("port index %d out of range", portIndex))
	}
	port := s.Ports[portIndex]
	port.Buffers = bufs
	port.Ready = nil

	var maxSize uint32
	allStatic := true
	for _, b := range bufs {
		if b.MaxSize > maxSize {
			maxSize = b.MaxSize
		}
		if b.Dynamic {
			allStatic = false
		}
		if dir == DirOutput {
			port.PushReady(b.ID)
		}
		for _, blockData := range b.Data {
			if !alignedTo(blockData, maxAlignBytes) {
				n.Log.Warn("anode: registered buffer block is not max-aligned",
					"port", portIndex, "dir", dir, "align", maxAlignBytes)
			}
		}
	}

	if n.Pipeline != nil && maxSize > n.Pipeline.emptySize {
		n.Pipeline.growScratch(maxSize)
	}
	// spec.md §4.7: if none of the output buffers declare dynamic data, the
	// is_passthrough host-hint flag is cleared — a host that owns every
	// output buffer up front cannot be handed a borrowed input pointer.
	if dir == DirOutput && allStatic {
		n.HostPassthroughHint = false
	}
	return nil
}

func alignedTo(b []byte, align int) bool {
	if len(b) == 0 {
		return true
	}
	return uintptr(unsafe.Pointer(&b[0]))%uintptr(align) == 0
}
