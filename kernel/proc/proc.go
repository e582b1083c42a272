// Package proc implements the cooperative round-robin process scheduler:
// a fixed table of 8 process slots, each with its own page table and an
// 8KiB kernel stack, switched between by saving and restoring the
// callee-saved registers of whichever goroutine-free "thread of control" is
// currently running in S-mode.
package proc

import (
	"sv32kernel/kernel"
	"sv32kernel/kernel/cpu"
	"sv32kernel/kernel/kfmt"
	"sv32kernel/kernel/mem"
	"sv32kernel/kernel/mem/pmm"
	"sv32kernel/kernel/mem/vmm"
)

// ProcsMax is the number of process slots the table holds.
const ProcsMax = 8

// stackBytes is the size of each process's dedicated kernel stack.
const stackBytes = 8192

// UserBase is the virtual address every user image is mapped at and the
// entry point userEntry transfers control to.
const UserBase = 0x01000000

const (
	sstatusSPIE = 1 << 5
	sstatusSUM  = 1 << 18
	sstatusInit = sstatusSPIE | sstatusSUM

	satpModeSv32 = 1 << 31
)

// State is a process's scheduling state.
type State int

const (
	// StateUnused marks a free table slot.
	StateUnused State = iota
	// StateRunnable marks a process eligible to be switched to.
	StateRunnable
	// StateIdle marks the permanent idle process created by Init.
	StateIdle
	// StateExited marks a process that called EXIT; its slot is not
	// reused by this design (FreeSlots / reaping are out of scope).
	StateExited
)

// Process is a single scheduler-table entry.
type Process struct {
	pid       uint32
	state     State
	sp        mem.VAddr
	pageTable mem.PAddr
	stack     [stackBytes]byte
}

// PID returns the process's pid: its table index for a process made by
// Create, and 0xFFFFFFFF for the idle process Init places in slot 0.
func (p *Process) PID() uint32 { return p.pid }

// State returns the process's current scheduling state.
func (p *Process) State() State { return p.state }

// PageTable returns the physical address of this process's root page
// table, used by the syscall dispatcher to resolve the user pointers
// passed in a trap frame.
func (p *Process) PageTable() mem.PAddr { return p.pageTable }

// FrameAllocatorFn allocates n contiguous, zero-filled physical pages.
type FrameAllocatorFn func(n uint32) (mem.PAddr, *kernel.Error)

// Manager owns the process table and the currently running index. It is
// the single point of contact between syscalls (EXIT, blocking GETCHAR)
// and the scheduler.
type Manager struct {
	procs   [ProcsMax]Process
	current int

	kernelBase   mem.PAddr
	freeRAMEnd   mem.PAddr
	virtioMMIO   mem.PAddr
	allocPagesFn FrameAllocatorFn
}

// switchSATPFn, writeSSCRATCHFn and switchContextFn are overridden in tests
// so Manager's scheduling logic can be exercised without real CSR writes or
// an actual stack-pointer swap.
var (
	switchSATPFn    = cpu.SwitchSATP
	writeSSCRATCHFn = cpu.WriteSSCRATCH
	switchContextFn = switchContext
)

// New returns a Manager that will identity-map [kernelBase, freeRAMEnd) and
// the virtioMMIO page into every process's address space, allocating page
// tables and user pages via allocPagesFn.
func New(kernelBase, freeRAMEnd, virtioMMIO mem.PAddr, allocPagesFn FrameAllocatorFn) *Manager {
	return &Manager{
		kernelBase:   kernelBase,
		freeRAMEnd:   freeRAMEnd,
		virtioMMIO:   virtioMMIO,
		allocPagesFn: allocPagesFn,
	}
}

// Current returns the currently running process.
func (m *Manager) Current() *Process {
	return &m.procs[m.current]
}

// Procs returns every process table slot, letting a harness inspect or
// script scheduling state directly instead of compiling a real user image
// (see spec.md's end-to-end scenarios, which this lets a test reproduce).
func (m *Manager) Procs() []*Process {
	out := make([]*Process, len(m.procs))
	for i := range m.procs {
		out[i] = &m.procs[i]
	}
	return out
}

// SetCurrent forces the scheduler's current process to pid, bypassing
// Yield's context switch. A real trap always lands with current already
// set (Yield set it the last time this process was switched in); this
// exists so a test harness can simulate a trap arriving from a process it
// just created, without a real switch_context call ever having happened.
func (m *Manager) SetCurrent(pid uint32) {
	for i := range m.procs {
		if m.procs[i].pid == pid {
			m.current = i
			return
		}
	}
	kfmt.Panicf("SetCurrent: no such pid %#x", pid)
}

// Init creates the permanent idle process in slot 0: PID -1, the kernel
// window identity-mapped, and a context whose saved registers are all
// zero, so the first Yield into it starts fresh rather than resuming
// unrelated kernel code.
func (m *Manager) Init() *kernel.Error {
	p := &m.procs[0]
	p.pid = ^uint32(0)
	p.state = StateIdle

	pageTable, err := m.allocPagesFn(1)
	if err != nil {
		return err
	}
	if err := vmm.IdentityMapRange(pageTable, m.kernelBase, m.freeRAMEnd, vmm.FlagKernelRWX); err != nil {
		return err
	}

	p.pageTable = pageTable
	p.sp = mem.VAddr(stackTop(p) - savedRegisterBytes)
	return nil
}

// Create loads image (a raw, page-sized-chunked user program image) into a
// freshly allocated address space, mapping it at UserBase, and marks the
// new process runnable. It returns the new process's PID.
func (m *Manager) Create(image []byte) (uint32, *kernel.Error) {
	var p *Process
	var pid uint32
	found := false
	for i := range m.procs {
		if m.procs[i].state == StateUnused {
			p = &m.procs[i]
			pid = uint32(i)
			found = true
			break
		}
	}
	if !found {
		return 0, ErrNoFreeSlots
	}

	pageTable, err := m.allocPagesFn(1)
	if err != nil {
		return 0, err
	}
	if err := vmm.IdentityMapRange(pageTable, m.kernelBase, m.freeRAMEnd, vmm.FlagKernelRWX); err != nil {
		return 0, err
	}
	if err := vmm.Map(pageTable, mem.VAddr(m.virtioMMIO), m.virtioMMIO, vmm.FlagR|vmm.FlagW|vmm.FlagV); err != nil {
		return 0, err
	}

	for off := 0; off < len(image); off += int(mem.PageSize) {
		page, err := m.allocPagesFn(1)
		if err != nil {
			return 0, err
		}

		end := off + int(mem.PageSize)
		if end > len(image) {
			end = len(image)
		}
		copy(mem.Bytes(page, int(mem.PageSize)), image[off:end])

		if err := vmm.Map(pageTable, mem.VAddr(UserBase+off), page, vmm.FlagUserRWX); err != nil {
			return 0, err
		}
	}

	p.pid = pid
	p.state = StateRunnable
	p.pageTable = pageTable
	p.sp = mem.VAddr(initialSP(p))

	return pid, nil
}

// ErrNoFreeSlots is returned by Create when every process slot is already
// in use.
var ErrNoFreeSlots = &kernel.Error{Module: "proc", Message: "no free process slots"}

// Yield picks the next runnable process after the current one, round-robin,
// and switches to it. The idle slot is never part of the rotation itself;
// it is only selected when the scan finds no Runnable process at all, the
// same "next=0" fallback the original scheduler uses. Yield returns without
// switching when the chosen slot is the current one: the current process is
// the only runnable one, or nothing is runnable and the idle process is
// already current. A current process that is no longer runnable (e.g. after
// Exit) with nothing else runnable is switched away to the idle slot.
func (m *Manager) Yield() {
	next := 0
	for i := 1; i <= ProcsMax; i++ {
		idx := (m.current + i) % ProcsMax
		if m.procs[idx].state == StateRunnable {
			next = idx
			break
		}
	}

	if next == m.current {
		return
	}

	nextProc := &m.procs[next]
	switchSATPFn(satpModeSv32 | (uint32(nextProc.pageTable) / mem.PageSize))
	writeSSCRATCHFn(uint32(stackTop(nextProc)))

	prev := m.current
	m.current = next
	switchContextFn(&m.procs[prev].sp, &m.procs[next].sp)
}

// Exit marks the current process exited and yields; it never returns to
// its caller's process (the next scheduled process resumes instead).
func (m *Manager) Exit() {
	kfmt.Printf("process %d exited\n", m.current)
	m.procs[m.current].state = StateExited
	m.Yield()
}

// stackTop returns the virtual address just past the end of p's kernel
// stack.
func stackTop(p *Process) mem.VAddr {
	return mem.VAddr(uintptr(unsafePtr(&p.stack[0])) + uintptr(len(p.stack)))
}
