package irq

import (
	"sv32kernel/kernel/cpu"
	"sv32kernel/kernel/kfmt"
)

// scause values this kernel recognizes. Bit 31 (the interrupt bit) is never
// set by anything this kernel's virtual machine raises, since the only
// interrupt source it drives (virtio-blk) is polled rather than handled
// asynchronously.
const (
	causeEcallFromUMode = 8
	causeInstrPageFault = 12
	causeLoadPageFault  = 13
	causeStorePageFault = 15
)

// SyscallHandler is called for every ecall trap. It receives the trapped
// process's register frame and returns the value to place in a0 before
// resuming; it is free to mutate any other field of f (e.g. to implement
// EXIT by never resuming the current process at all).
type SyscallHandler func(f *Frame) uint32

// syscallHandlerFn is installed once during boot by the syscall package,
// keeping irq free of a direct dependency on syscall dispatch semantics.
var syscallHandlerFn SyscallHandler

// SetSyscallHandler registers the function HandleTrap calls for ECALL
// traps raised from U-mode.
func SetSyscallHandler(fn SyscallHandler) {
	syscallHandlerFn = fn
}

// readSCAUSEFn and friends are overridden in tests so HandleTrap's dispatch
// logic can be exercised without real CSR instructions.
var (
	readSCAUSEFn = cpu.ReadSCAUSE
	readSTVALFn  = cpu.ReadSTVAL
	readSEPCFn   = cpu.ReadSEPC
	writeSEPCFn  = cpu.WriteSEPC

	// panicfFn is overridden in tests to observe an unhandled-cause panic
	// without going through the real halt-the-CPU path.
	panicfFn = kfmt.Panicf
)

// HandleTrap is called from the trap trampoline with the interrupted
// process's register frame. It dispatches ECALL traps to the registered
// syscall handler and panics on every other cause, since this kernel never
// expects a page fault or an unhandled exception to be survivable.
func HandleTrap(f *Frame) {
	scause := readSCAUSEFn()
	stval := readSTVALFn()
	sepc := readSEPCFn()

	if scause != causeEcallFromUMode {
		kfmt.Printf("unexpected trap: scause=%8x stval=%8x sepc=%8x\n", scause, stval, sepc)
		f.Print()
		panicfFn("unhandled trap (scause=%d)", scause)
		return
	}

	if syscallHandlerFn == nil {
		panicfFn("ecall trapped with no syscall handler installed")
		return
	}

	f.A0 = syscallHandlerFn(f)

	// Advance past the ecall instruction so the resumed process continues
	// with the instruction after it rather than re-trapping forever.
	writeSEPCFn(sepc + 4)
}
