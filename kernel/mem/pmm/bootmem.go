package pmm

import (
	"sv32kernel/kernel"
	"sv32kernel/kernel/mem"
)

// ErrOutOfMemory is returned by Allocator.AllocPages when the free-RAM
// window has been exhausted.
var ErrOutOfMemory = &kernel.Error{Module: "pmm", Message: "out of memory"}

// Allocator is a bump (monotonic) allocator over a contiguous physical
// address range. It never reclaims pages: once handed out, a frame stays
// reserved for the lifetime of the kernel. This mirrors the allocation model
// of a cooperative, single-image kernel that never tears down a process's
// memory.
type Allocator struct {
	next mem.PAddr
	end  mem.PAddr
}

// Init configures the allocator to hand out pages from the half-open range
// [start, end). Both bounds are expected to be page-aligned, as they are
// when derived from the linker-provided __free_ram/__free_ram_end symbols.
func (a *Allocator) Init(start, end mem.PAddr) {
	a.next = start
	a.end = end
}

// AllocPages reserves n contiguous, zero-filled pages and returns the
// physical address of the first one. The returned region is always
// page-aligned since both the cursor and the step are multiples of
// mem.PageSize.
func (a *Allocator) AllocPages(n uint32) (mem.PAddr, *kernel.Error) {
	size := n * mem.PageSize
	addr := a.next
	next := addr + mem.PAddr(size)

	if next > a.end {
		return 0, ErrOutOfMemory
	}

	a.next = next
	mem.Memset(addr, 0, size)
	return addr, nil
}
