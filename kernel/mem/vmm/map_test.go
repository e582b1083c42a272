package vmm

import (
	"sv32kernel/kernel"
	"sv32kernel/kernel/mem"
	"testing"
	"unsafe"
)

// fakePhysMem backs a handful of page-sized arrays so tests can exercise
// Map/Walk without a real identity-mapped address space.
type fakePhysMem struct {
	pages [8][mem.PageSize / 4]pageTableEntry
	next  int
}

func (f *fakePhysMem) alloc(n uint32) mem.PAddr {
	if f.next+int(n) > len(f.pages) {
		panic("fakePhysMem exhausted")
	}
	addr := f.addrOf(f.next)
	f.next += int(n)
	return addr
}

func (f *fakePhysMem) addrOf(page int) mem.PAddr {
	return mem.PAddr(uintptr(unsafe.Pointer(&f.pages[page][0])))
}

func withFakeMem(t *testing.T) (*fakePhysMem, func()) {
	t.Helper()
	fm := &fakePhysMem{}

	origEntryPtrFn := entryPtrFn
	origAllocFn := frameAllocatorFn

	entryPtrFn = func(addr mem.PAddr) *pageTableEntry {
		for i := range fm.pages {
			base := uintptr(fm.addrOf(i))
			off := uintptr(addr) - base
			if off < uintptr(mem.PageSize) {
				return &fm.pages[i][off/4]
			}
		}
		t.Fatalf("address %#x does not belong to any fake page", addr)
		return nil
	}

	frameAllocatorFn = func(n uint32) (mem.PAddr, *kernel.Error) {
		return fm.alloc(n), nil
	}

	return fm, func() {
		entryPtrFn = origEntryPtrFn
		frameAllocatorFn = origAllocFn
	}
}

func TestMapRoundTrip(t *testing.T) {
	fm, cleanup := withFakeMem(t)
	defer cleanup()

	root := fm.alloc(1)

	const vaddr = mem.VAddr(0x01000000)
	paddr := fm.alloc(1)

	if err := Map(root, vaddr, paddr, FlagUserRWX); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	frame, flags, ok := Walk(root, vaddr)
	if !ok {
		t.Fatal("expected mapping to be present after Map")
	}
	if frame.Address() != paddr {
		t.Fatalf("expected mapped frame address %#x; got %#x", paddr, frame.Address())
	}
	if uint32(flags)&uint32(FlagUserRWX) != uint32(FlagUserRWX) {
		t.Fatalf("expected leaf flags to include FlagUserRWX; got %#x", flags)
	}
}

func TestMapUnalignedAddressFails(t *testing.T) {
	fm, cleanup := withFakeMem(t)
	defer cleanup()

	root := fm.alloc(1)

	if err := Map(root, mem.VAddr(1), mem.PAddr(0x1000), FlagKernelRWX); err != ErrUnaligned {
		t.Fatalf("expected ErrUnaligned for misaligned vaddr; got %v", err)
	}
	if err := Map(root, mem.VAddr(0x1000), mem.PAddr(1), FlagKernelRWX); err != ErrUnaligned {
		t.Fatalf("expected ErrUnaligned for misaligned paddr; got %v", err)
	}
}

func TestWalkMissingMapping(t *testing.T) {
	fm, cleanup := withFakeMem(t)
	defer cleanup()

	root := fm.alloc(1)

	if _, _, ok := Walk(root, mem.VAddr(0x02000000)); ok {
		t.Fatal("expected Walk to report no mapping for an untouched address")
	}
}

func TestIdentityMapRange(t *testing.T) {
	fm, cleanup := withFakeMem(t)
	defer cleanup()

	root := fm.alloc(1)
	start := fm.alloc(1)
	end := start + mem.PAddr(3*mem.PageSize)
	// reserve the pages IdentityMapRange will map as leaves
	fm.alloc(2)

	if err := IdentityMapRange(root, start, end, FlagKernelRWX); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for addr := start; addr < end; addr += mem.PAddr(mem.PageSize) {
		frame, _, ok := Walk(root, mem.VAddr(addr))
		if !ok {
			t.Fatalf("expected identity mapping at %#x", addr)
		}
		if frame.Address() != addr {
			t.Fatalf("expected identity mapping %#x -> %#x; got %#x", addr, addr, frame.Address())
		}
	}
}
