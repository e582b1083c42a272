package mem

import (
	"reflect"
	"unsafe"
)

// Memset sets size bytes starting at physical address addr to value. The
// implementation is based on bytes.Repeat: instead of looping byte-by-byte it
// performs log2(size) copies, which is cheap since every region the kernel
// zeroes is page-aligned.
func Memset(addr PAddr, value byte, size uint32) {
	if size == 0 {
		return
	}

	target := *(*[]byte)(unsafe.Pointer(&reflect.SliceHeader{
		Len:  int(size),
		Cap:  int(size),
		Data: uintptr(addr),
	}))

	target[0] = value
	for index := uint32(1); index < size; index *= 2 {
		copy(target[index:], target[:index])
	}
}

// Memcopy copies size bytes from physical address src to physical address dst.
func Memcopy(src, dst PAddr, size uint32) {
	if size == 0 {
		return
	}

	srcSlice := *(*[]byte)(unsafe.Pointer(&reflect.SliceHeader{
		Len:  int(size),
		Cap:  int(size),
		Data: uintptr(src),
	}))
	dstSlice := *(*[]byte)(unsafe.Pointer(&reflect.SliceHeader{
		Len:  int(size),
		Cap:  int(size),
		Data: uintptr(dst),
	}))

	copy(dstSlice, srcSlice)
}

// Ptr returns an unsafe pointer to the given physical address. The kernel's
// free-RAM window is identity-mapped in every process's page table, so
// treating a physical address as a Go pointer is always valid from S-mode.
func Ptr(addr PAddr) unsafe.Pointer {
	return unsafe.Pointer(uintptr(addr))
}

// Bytes overlays a []byte of the given length on top of the memory at addr.
func Bytes(addr PAddr, length int) []byte {
	return *(*[]byte)(unsafe.Pointer(&reflect.SliceHeader{
		Len:  length,
		Cap:  length,
		Data: uintptr(addr),
	}))
}
