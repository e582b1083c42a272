package proc

import (
	"sv32kernel/kernel/mem"
	"unsafe"
)

// savedRegisterBytes is sizeof the callee-saved register frame
// switchContext moves between stacks: ra followed by s0..s11, 13 32-bit
// words.
const savedRegisterBytes = 13 * 4

// userEntryAddrFn resolves the address seeded as ra in a freshly created
// process's callee-saved frame. It is overridden in tests so initialSP can
// be exercised without real riscv64 assembly.
var userEntryAddrFn = userEntryAddr

// unsafePtr returns an unsafe.Pointer to b, used to turn the address of a
// Process's embedded stack array into a plain integer.
func unsafePtr(b *byte) unsafe.Pointer {
	return unsafe.Pointer(b)
}

// initialSP writes a fresh callee-saved frame (ra = userEntry, s0..s11 =
// 0) at the top of p's kernel stack and returns the resulting stack
// pointer, so that the first Yield to p "returns" into userEntry instead
// of resuming unrelated kernel code.
func initialSP(p *Process) mem.VAddr {
	off := len(p.stack) - savedRegisterBytes
	words := (*[13]uint32)(unsafePtr(&p.stack[off]))
	words[0] = userEntryAddrFn()
	for i := 1; i < len(words); i++ {
		words[i] = 0
	}
	return stackTop(p) - mem.VAddr(savedRegisterBytes)
}
