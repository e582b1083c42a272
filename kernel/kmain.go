// Package kernel ties every subsystem together: it is the Go analogue of
// the original kernel_main, but takes its memory map as an explicit
// BootInfo value instead of reading raw linker symbols, per the
// "raw linker symbols and mutable statics" redesign.
package kernel

import (
	"sv32kernel/kernel/cpu"
	"sv32kernel/kernel/driver/virtioblk"
	"sv32kernel/kernel/fs/tar"
	"sv32kernel/kernel/hal/sbi"
	"sv32kernel/kernel/irq"
	"sv32kernel/kernel/kfmt"
	"sv32kernel/kernel/mem"
	"sv32kernel/kernel/mem/pmm"
	"sv32kernel/kernel/mem/vmm"
	"sv32kernel/kernel/proc"
	"sv32kernel/kernel/syscall"
)

// VirtioMMIOBase is the physical address of the virtio-blk MMIO window on
// the target platform (QEMU's "virt" machine), matching the original
// source's VIRTIO_BLK_PADDR.
const VirtioMMIOBase = 0x10001000

// BootInfo is the memory map the boot step hands to Kmain, replacing the
// linker-provided __bss/__stack_top/__free_ram symbols the original source
// reads as mutable statics.
type BootInfo struct {
	// KernelBase and FreeRAMEnd bound the identity-mapped kernel window
	// every process's page table carries.
	KernelBase mem.PAddr
	FreeRAMEnd mem.PAddr

	// FreeRAMStart is the first physical address the page/frame
	// allocator is allowed to hand out; it is >= KernelBase and leaves
	// room for the kernel image and BSS below it.
	FreeRAMStart mem.PAddr

	// ShellImage is the flat, page-chunked user program image launched
	// as the first process. Building/embedding it is out of scope here
	// (see the shell package); Kmain just copies it in as-is.
	ShellImage []byte
}

// allocator backs every page allocation in the kernel: the process table's
// root page tables and user pages, the virtqueue and request buffers, and
// every page-table level vmm.Map installs. Kernel stacks are not allocated
// here; each is embedded in its proc.Process slot.
var allocator pmm.Allocator

// Kmain is the single entry point the boot trampoline calls after zeroing
// BSS. It is not expected to return: after launching the shell, the first
// Yield() hands control to either the shell or the permanent idle process,
// and every later entry into this function's call frame happens only via
// traps, not by falling back out of Kmain itself.
//
//go:noinline
func Kmain(info BootInfo) {
	kfmt.SetOutputSink(sbi.Console{})
	kfmt.Printf("booting\n")

	allocator.Init(info.FreeRAMStart, info.FreeRAMEnd)
	vmm.SetFrameAllocator(allocator.AllocPages)

	cpu.WriteSTVEC(irq.KernelEntryAddr())

	blk := virtioblk.New(VirtioMMIOBase, allocator.AllocPages)
	if err := blk.DriverInit(); err != nil {
		kfmt.Panic(err)
	}

	store := tar.New(blk.ReadWriteSector, int(blk.Capacity())*virtioblk.SectorSize)
	if err := store.Init(); err != nil {
		kfmt.Panic(err)
	}

	procs := proc.New(info.KernelBase, info.FreeRAMEnd, VirtioMMIOBase, allocator.AllocPages)
	if err := procs.Init(); err != nil {
		kfmt.Panic(err)
	}

	dispatcher := &syscall.Dispatcher{Procs: procs, Files: store}
	irq.SetSyscallHandler(dispatcher.Handle)

	if _, err := procs.Create(info.ShellImage); err != nil {
		kfmt.Panic(err)
	}

	procs.Yield()

	kfmt.Printf("switched to idle process\n")

	// The idle body: every subsequent trap into this hart resumes inside
	// HandleTrap/Yield, never by falling back into this loop's caller.
	for {
		cpu.Halt()
	}
}

