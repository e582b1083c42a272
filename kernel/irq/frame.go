// Package irq implements the trap entry point and dispatch logic for the
// single supervisor-mode trap vector this kernel installs: every exception
// and ecall, from every hart mode it runs in, lands here.
package irq

import "sv32kernel/kernel/kfmt"

// Frame is the register snapshot the trap trampoline saves to the stack
// before calling HandleTrap, and restores from before sret. The field order
// matches the save/restore order in trampoline_riscv64.s exactly; reordering the
// struct without updating the assembly will scramble register state.
type Frame struct {
	RA  uint32
	GP  uint32
	TP  uint32
	T0  uint32
	T1  uint32
	T2  uint32
	T3  uint32
	T4  uint32
	T5  uint32
	T6  uint32
	A0  uint32
	A1  uint32
	A2  uint32
	A3  uint32
	A4  uint32
	A5  uint32
	A6  uint32
	A7  uint32
	S0  uint32
	S1  uint32
	S2  uint32
	S3  uint32
	S4  uint32
	S5  uint32
	S6  uint32
	S7  uint32
	S8  uint32
	S9  uint32
	S10 uint32
	S11 uint32
	SP  uint32
}

// Print outputs a dump of the trap frame to the active console. It is used
// by the panic path when HandleTrap encounters a cause it does not know how
// to handle.
func (f *Frame) Print() {
	kfmt.Printf("ra=%8x gp=%8x tp=%8x sp=%8x\n", f.RA, f.GP, f.TP, f.SP)
	kfmt.Printf("a0=%8x a1=%8x a2=%8x a3=%8x\n", f.A0, f.A1, f.A2, f.A3)
	kfmt.Printf("a4=%8x a5=%8x a6=%8x a7=%8x\n", f.A4, f.A5, f.A6, f.A7)
	kfmt.Printf("t0=%8x t1=%8x t2=%8x t3=%8x\n", f.T0, f.T1, f.T2, f.T3)
	kfmt.Printf("t4=%8x t5=%8x t6=%8x\n", f.T4, f.T5, f.T6)
}
