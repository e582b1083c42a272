// Package pmm implements the kernel's physical page frame allocator: a
// bump allocator over the linker-provided free-RAM window. Pages are never
// freed, matching the cooperative, non-reclaiming memory model described for
// this kernel.
package pmm

import "sv32kernel/kernel/mem"

// Frame identifies a physical page by its page number (a physical address
// shifted right by mem.PageShift).
type Frame uint32

// Address returns the physical address of the first byte of this frame.
func (f Frame) Address() mem.PAddr {
	return mem.PAddr(uint32(f) << mem.PageShift)
}

// FrameFromAddress returns the frame that contains the given physical
// address.
func FrameFromAddress(addr mem.PAddr) Frame {
	return Frame(uint32(addr) >> mem.PageShift)
}
