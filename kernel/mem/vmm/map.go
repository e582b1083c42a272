package vmm

import (
	"sv32kernel/kernel"
	"sv32kernel/kernel/mem"
	"sv32kernel/kernel/mem/pmm"
	"unsafe"
)

var (
	// frameAllocatorFn supplies fresh physical pages for second-level page
	// tables. It is set once via SetFrameAllocator during boot.
	frameAllocatorFn FrameAllocatorFn

	// entryPtrFn resolves a page table entry's physical address to a
	// pointer. Production code relies on the kernel-window identity
	// mapping to dereference the address directly; tests override this
	// to index into plain Go arrays standing in for physical pages.
	entryPtrFn = func(addr mem.PAddr) *pageTableEntry {
		return (*pageTableEntry)(unsafe.Pointer(uintptr(addr)))
	}

	// ErrUnaligned is returned when Map is asked to establish a mapping
	// for a virtual or physical address that isn't page-aligned.
	ErrUnaligned = &kernel.Error{Module: "vmm", Message: "unaligned address passed to map_page"}
)

// FrameAllocatorFn allocates n contiguous physical pages.
type FrameAllocatorFn func(n uint32) (mem.PAddr, *kernel.Error)

// SetFrameAllocator registers the allocator Map uses to create second-level
// page tables on demand.
func SetFrameAllocator(fn FrameAllocatorFn) {
	frameAllocatorFn = fn
}

// entryAt returns a pointer to the page table entry at the given index
// within the table whose first entry lives at tableAddr.
func entryAt(tableAddr mem.PAddr, index uint32) *pageTableEntry {
	return entryPtrFn(tableAddr + mem.PAddr(index*4))
}

// vpn1 extracts bits [31:22] of a virtual address: the index into the root
// (first-level) page table.
func vpn1(vaddr mem.VAddr) uint32 {
	return (uint32(vaddr) >> 22) & (entriesPerTable - 1)
}

// vpn0 extracts bits [21:12] of a virtual address: the index into the
// second-level page table.
func vpn0(vaddr mem.VAddr) uint32 {
	return (uint32(vaddr) >> 12) & (entriesPerTable - 1)
}

// Map installs a mapping from vaddr to paddr in the page table rooted at
// root, creating the second-level table on demand. Both addresses must be
// page-aligned. flags is OR'd with FlagV to produce the leaf entry.
func Map(root mem.PAddr, vaddr mem.VAddr, paddr mem.PAddr, flags PageTableEntryFlag) *kernel.Error {
	if !mem.IsPageAligned(uint32(vaddr)) || !mem.IsPageAligned(uint32(paddr)) {
		return ErrUnaligned
	}

	rootEntry := entryAt(root, vpn1(vaddr))
	if !rootEntry.HasFlags(FlagV) {
		secondLevel, err := frameAllocatorFn(1)
		if err != nil {
			return err
		}
		rootEntry.SetFrame(pmm.FrameFromAddress(secondLevel))
		rootEntry.SetFlags(FlagV)
	}

	secondLevelAddr := rootEntry.Frame().Address()
	leaf := entryAt(secondLevelAddr, vpn0(vaddr))
	leaf.SetFrame(pmm.FrameFromAddress(paddr))
	leaf.SetFlags(flags | FlagV)

	return nil
}

// Walk returns the frame and the low 10 flag bits of the leaf page table
// entry that maps vaddr in the page table rooted at root, or ok=false if no
// such mapping exists.
func Walk(root mem.PAddr, vaddr mem.VAddr) (frame pmm.Frame, flags PageTableEntryFlag, ok bool) {
	rootEntry := entryAt(root, vpn1(vaddr))
	if !rootEntry.HasFlags(FlagV) {
		return 0, 0, false
	}

	leaf := entryAt(rootEntry.Frame().Address(), vpn0(vaddr))
	if !leaf.HasFlags(FlagV) {
		return 0, 0, false
	}

	return leaf.Frame(), PageTableEntryFlag(uint32(*leaf) & ((1 << ptePPNShift) - 1)), true
}
