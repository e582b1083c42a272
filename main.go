package main

import (
	"sv32kernel/kernel"
	"sv32kernel/kernel/mem"
	"sv32kernel/shell"
)

// Memory map for the target platform (QEMU's "virt" machine, S-mode
// payload entry). Building the linker script and the boot ELF that jumps
// here with this layout already established is out of scope; main is the
// Go-visible trampoline the (externally supplied) rt0 code calls after
// zeroing BSS and installing a stack, the same role gopher-os's boot.go
// plays for its own rt0.
const (
	kernelBase   = mem.PAddr(0x80200000)
	freeRAMStart = mem.PAddr(0x80220000)
	freeRAMEnd   = mem.PAddr(0x80400000)
)

// main is intentionally defined, rather than inlined into rt0, to prevent
// the Go compiler from optimizing away the kernel code it doesn't see a
// caller for. It is not expected to return.
func main() {
	kernel.Kmain(kernel.BootInfo{
		KernelBase:   kernelBase,
		FreeRAMStart: freeRAMStart,
		FreeRAMEnd:   freeRAMEnd,
		ShellImage:   shell.Image,
	})
}
