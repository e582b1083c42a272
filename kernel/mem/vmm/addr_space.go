package vmm

import (
	"sv32kernel/kernel"
	"sv32kernel/kernel/mem"
)

// IdentityMapRange maps every page in the half-open physical range
// [start, end) to the same virtual address in the page table rooted at
// root. It is used to install the kernel window (and the virtio MMIO page)
// into a freshly created process's address space.
func IdentityMapRange(root mem.PAddr, start, end mem.PAddr, flags PageTableEntryFlag) *kernel.Error {
	for addr := start; addr < end; addr += mem.PAddr(mem.PageSize) {
		if err := Map(root, mem.VAddr(addr), addr, flags); err != nil {
			return err
		}
	}
	return nil
}
