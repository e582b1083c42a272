// +build riscv64

package proc

import "sv32kernel/kernel/mem"

// switchContext saves the callee-saved registers (ra, s0..s11) of the
// currently running stack onto that stack, records the resulting stack
// pointer at *prevSP, loads the stack pointer from *nextSP and restores its
// callee-saved registers, then returns — which resumes whatever previously
// suspended itself by calling switchContext with that stack as next. The
// very first time a freshly created process's stack is resumed this way,
// "returning" lands in userEntry instead of back into Yield, because
// initialSP seeded ra with userEntry's address instead of a real return
// address.
func switchContext(prevSP, nextSP *mem.VAddr)

// userEntry is the trampoline a freshly created process's stack resumes
// into the first time it is switched to. It drops to user mode at UserBase
// with interrupts enabled and SUM set, so supervisor code may still touch
// user pages on the next trap.
func userEntry()

// userEntryAddr returns the address of userEntry, used to seed a new
// process's callee-saved frame so its first resume "returns" there.
func userEntryAddr() uint32
