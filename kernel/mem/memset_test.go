package mem

import (
	"testing"
	"unsafe"
)

func TestMemset(t *testing.T) {
	var buf [37]byte
	for i := range buf {
		buf[i] = 0xff
	}

	Memset(PAddr(uintptr(unsafe.Pointer(&buf[0]))), 0, uint32(len(buf)))

	for i, b := range buf {
		if b != 0 {
			t.Fatalf("byte %d not zeroed: got %x", i, b)
		}
	}
}

func TestMemcopy(t *testing.T) {
	src := [16]byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16}
	var dst [16]byte

	Memcopy(
		PAddr(uintptr(unsafe.Pointer(&src[0]))),
		PAddr(uintptr(unsafe.Pointer(&dst[0]))),
		uint32(len(src)),
	)

	if dst != src {
		t.Fatalf("expected dst to equal src; got %v", dst)
	}
}
