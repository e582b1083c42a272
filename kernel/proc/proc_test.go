package proc

import (
	"sv32kernel/kernel"
	"sv32kernel/kernel/mem"
	"sv32kernel/kernel/mem/vmm"
	"testing"
	"unsafe"
)

// fakeRAM backs page allocations with real Go arrays so the production Map
// code (which dereferences physical addresses as Go pointers) works
// unmodified in tests, the same trick kernel/driver/virtioblk's tests use.
type fakeRAM struct {
	pages [64][mem.PageSize]byte
	next  int
}

func (r *fakeRAM) alloc(n uint32) (mem.PAddr, *kernel.Error) {
	if r.next+int(n) > len(r.pages) {
		panic("fakeRAM exhausted")
	}
	addr := mem.PAddr(uintptr(unsafe.Pointer(&r.pages[r.next][0])))
	r.next += int(n)
	return addr, nil
}

// kernelBase/freeRAMEnd/mmioBase are kept tiny (a couple of pages) so the
// identity-map loop in Init/Create stays fast; the mapper only cares about
// the low VPN bits of these addresses, not what they "mean" physically.
const (
	testKernelBase = 0x1000
	testFreeRAMEnd = 0x3000
	testMMIO       = 0x9000
)

func newTestManager(t *testing.T) (*Manager, *fakeRAM) {
	t.Helper()
	ram := &fakeRAM{}

	// vmm.Map allocates second-level page tables through this package
	// global; in the real kernel Kmain wires it to the same pmm.Allocator
	// backing proc's own allocPagesFn.
	vmm.SetFrameAllocator(func(n uint32) (mem.PAddr, *kernel.Error) { return ram.alloc(n) })

	m := New(testKernelBase, testFreeRAMEnd, testMMIO, ram.alloc)
	if err := m.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}
	return m, ram
}

// withMockScheduling replaces the CSR/context-switch hooks Yield drives so
// tests can observe scheduling decisions without touching real hardware.
func withMockScheduling(t *testing.T) (switches *int, restore func()) {
	t.Helper()
	origSATP, origSSCRATCH, origSwitch := switchSATPFn, writeSSCRATCHFn, switchContextFn

	n := 0
	switchSATPFn = func(uint32) {}
	writeSSCRATCHFn = func(uint32) {}
	switchContextFn = func(prevSP, nextSP *mem.VAddr) {
		n++
		*prevSP, *nextSP = *nextSP, *prevSP
	}

	return &n, func() {
		switchSATPFn, writeSSCRATCHFn, switchContextFn = origSATP, origSSCRATCH, origSwitch
	}
}

func TestInitCreatesIdleProcess(t *testing.T) {
	m, _ := newTestManager(t)

	idle := m.Current()
	if idle.PID() != ^uint32(0) {
		t.Fatalf("expected idle pid to be 0xFFFFFFFF; got %#x", idle.PID())
	}
	if idle.State() != StateIdle {
		t.Fatalf("expected idle state; got %v", idle.State())
	}
	if idle.pageTable == 0 {
		t.Fatal("expected Init to allocate a root page table for the idle process")
	}
}

func TestCreateFillsFirstUnusedSlot(t *testing.T) {
	m, _ := newTestManager(t)

	image := make([]byte, mem.PageSize)
	for i := range image {
		image[i] = byte(i)
	}

	pid, err := m.Create(image)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if pid != 1 {
		t.Fatalf("expected the first created process to land in slot 1; got %d", pid)
	}

	p := &m.procs[1]
	if p.State() != StateRunnable {
		t.Fatalf("expected new process to be Runnable; got %v", p.State())
	}
	if p.pageTable == 0 {
		t.Fatal("expected Create to allocate a root page table")
	}

	_, flags, ok := vmm.Walk(p.pageTable, mem.VAddr(UserBase))
	if !ok {
		t.Fatal("expected the user image's first page to be mapped at UserBase")
	}
	if want := vmm.FlagU | vmm.FlagR | vmm.FlagW | vmm.FlagX; flags&want != want {
		t.Fatalf("expected the user page to carry U|R|W|X; got %#x", flags)
	}
}

func TestCreateFailsWhenTableIsFull(t *testing.T) {
	m, _ := newTestManager(t)
	image := make([]byte, mem.PageSize)

	for i := 1; i < ProcsMax; i++ {
		if _, err := m.Create(image); err != nil {
			t.Fatalf("Create slot %d: %v", i, err)
		}
	}

	if _, err := m.Create(image); err != ErrNoFreeSlots {
		t.Fatalf("expected ErrNoFreeSlots once every slot is used; got %v", err)
	}
}

func TestYieldRoundRobinsBetweenRunnableProcesses(t *testing.T) {
	m, _ := newTestManager(t)
	image := make([]byte, mem.PageSize)

	pidA, _ := m.Create(image)
	pidB, _ := m.Create(image)

	n, restore := withMockScheduling(t)
	defer restore()

	m.current = int(pidA)
	m.Yield()
	if m.current != int(pidB) {
		t.Fatalf("expected Yield to switch from A to B; current=%d", m.current)
	}

	m.Yield()
	if m.current != int(pidA) {
		t.Fatalf("expected Yield to switch back from B to A; current=%d", m.current)
	}

	if *n != 2 {
		t.Fatalf("expected 2 context switches; got %d", *n)
	}
}

func TestYieldIsNoOpWithOnlyOneRunnable(t *testing.T) {
	m, _ := newTestManager(t)
	image := make([]byte, mem.PageSize)
	pid, _ := m.Create(image)

	n, restore := withMockScheduling(t)
	defer restore()

	m.current = int(pid)
	m.Yield()

	if m.current != int(pid) {
		t.Fatalf("expected Yield to stay on the only Runnable process; current=%d", m.current)
	}
	if *n != 0 {
		t.Fatalf("expected no context switch when nothing else is Runnable; got %d", *n)
	}
}

func TestExitMarksCurrentExitedAndYieldsToIdle(t *testing.T) {
	m, _ := newTestManager(t)
	image := make([]byte, mem.PageSize)
	pid, _ := m.Create(image)

	_, restore := withMockScheduling(t)
	defer restore()

	m.current = int(pid)
	m.Exit()

	if m.procs[pid].State() != StateExited {
		t.Fatalf("expected Exit to mark the process Exited; got %v", m.procs[pid].State())
	}
	if m.current != 0 {
		t.Fatalf("expected Exit to yield back to the idle slot; current=%d", m.current)
	}
}
