package virtioblk

import (
	"sv32kernel/kernel/mem"
	"unsafe"
)

// Queue geometry for the single virtqueue this driver drives. The layout
// mirrors the legacy split virtqueue: a descriptor table, an avail ring,
// then page-aligned padding, then a used ring starting on its own page.
const (
	queueEntries = 16

	descSize      = 16 // addr(8) + len(4) + flags(2) + next(2)
	descTableSize = descSize * queueEntries

	availHeaderSize = 4 // flags(2) + index(2)
	availSize       = availHeaderSize + 2*queueEntries

	usedHeaderSize = 4 // flags(2) + index(2)
	usedElemSize   = 8 // id(4) + len(4)
	usedSize       = usedHeaderSize + usedElemSize*queueEntries

	availOffset = descTableSize
	padOffset   = availOffset + availSize
	padSize     = (uint32(mem.PageSize) - (padOffset % uint32(mem.PageSize))) % uint32(mem.PageSize)
	usedOffset  = padOffset + padSize

	virtqBytes = usedOffset + usedSize

	descFlagNext  = 1
	descFlagWrite = 2
)

// descAt returns the address of descriptor index within the queue rooted
// at base.
func descAt(base mem.PAddr, index uint32) mem.PAddr {
	return base + mem.PAddr(index*descSize)
}

func setDesc(base mem.PAddr, index uint32, addr mem.PAddr, length uint32, flags uint16, next uint16) {
	d := descAt(base, index)
	*(*uint64)(unsafe.Pointer(uintptr(d))) = uint64(addr)
	*(*uint32)(unsafe.Pointer(uintptr(d) + 8)) = length
	*(*uint16)(unsafe.Pointer(uintptr(d) + 12)) = flags
	*(*uint16)(unsafe.Pointer(uintptr(d) + 14)) = next
}

func availIndexAddr(base mem.PAddr) mem.PAddr {
	return base + mem.PAddr(descTableSize+2)
}

func availRingAddr(base mem.PAddr, slot uint32) mem.PAddr {
	return base + mem.PAddr(descTableSize+availHeaderSize+2*slot)
}

func usedIndexAddr(base mem.PAddr) mem.PAddr {
	return base + mem.PAddr(usedOffset+2)
}

func readU16(addr mem.PAddr) uint16 {
	return *(*uint16)(unsafe.Pointer(uintptr(addr)))
}

func writeU16(addr mem.PAddr, v uint16) {
	*(*uint16)(unsafe.Pointer(uintptr(addr))) = v
}

func setU32(addr mem.PAddr, v uint32) {
	*(*uint32)(unsafe.Pointer(uintptr(addr))) = v
}

func setU64(addr mem.PAddr, v uint64) {
	*(*uint64)(unsafe.Pointer(uintptr(addr))) = v
}
