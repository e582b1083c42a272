// +build riscv64

package cpu

// Halt stops instruction execution by spinning on wfi.
func Halt()

// Fence issues a full "fence iorw, iorw", ordering every memory access
// (including writes to MMIO device memory) that precedes it in program
// order before any that follows. Used between writing a virtqueue's avail
// ring/index and notifying the device, so the device never observes the
// notify before the descriptor it refers to.
func Fence()

// FlushTLBAll invalidates every TLB entry (sfence.vma with x0, x0).
func FlushTLBAll()

// FlushTLBEntry invalidates the TLB entries covering a single virtual
// address (sfence.vma with rs1=addr, rs2=x0).
func FlushTLBEntry(virtAddr uint32)

// SwitchSATP installs a new Sv32 root page table and flushes the TLB. value
// must already be shifted and OR'd with the Sv32 MODE bit by the caller.
func SwitchSATP(value uint32)

// ReadSATP returns the currently installed satp value.
func ReadSATP() uint32

// ReadSCAUSE returns the scause CSR recorded by the most recent trap.
func ReadSCAUSE() uint32

// ReadSTVAL returns the stval CSR recorded by the most recent trap.
func ReadSTVAL() uint32

// ReadSEPC returns the sepc CSR recorded by the most recent trap.
func ReadSEPC() uint32

// WriteSEPC overwrites sepc, used to advance past a handled ecall.
func WriteSEPC(pc uint32)

// WriteSTVEC installs the trap vector entry point.
func WriteSTVEC(addr uint32)

// WriteSSCRATCH stores a value in sscratch, used to stash the kernel stack
// pointer across the user/kernel boundary.
func WriteSSCRATCH(value uint32)

// ReadSSCRATCH returns the value most recently written to sscratch.
func ReadSSCRATCH() uint32

// ECall issues a supervisor ecall to the SBI firmware, passing eid/fid in
// a7/a6 and up to three arguments in a0-a2. It returns the SBI error code
// and value from a0/a1.
func ECall(eid, fid, arg0, arg1, arg2 uint32) (errCode, value uint32)
