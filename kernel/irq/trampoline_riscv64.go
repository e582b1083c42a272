// +build riscv64

package irq

// KernelEntry is the trap vector target: written into stvec during boot. It
// saves the interrupted context's registers into a Frame on the kernel
// stack, calls HandleTrap, restores the (possibly modified) registers and
// returns via sret. It is never called directly from Go.
func KernelEntry()

// KernelEntryAddr returns the address of KernelEntry, for boot to install
// into stvec via cpu.WriteSTVEC.
func KernelEntryAddr() uint32
