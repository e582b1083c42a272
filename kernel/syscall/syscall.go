// Package syscall implements the kernel side of the system-call ABI:
// dispatch on a3, arguments in a0..a2, result in a0. It is the single
// SyscallHandler irq.HandleTrap calls for every ECALL trapped from U-mode.
package syscall

import (
	"sv32kernel/kernel/fs/tar"
	"sv32kernel/kernel/hal/sbi"
	"sv32kernel/kernel/irq"
	"sv32kernel/kernel/kfmt"
	"sv32kernel/kernel/mem"
	"sv32kernel/kernel/mem/vmm"
	"sv32kernel/kernel/proc"
)

// Syscall numbers, carried in the trap frame's a3 field.
const (
	NrPutchar   = 1
	NrGetchar   = 2
	NrExit      = 3
	NrReadFile  = 4
	NrWriteFile = 5
)

// NotFound is the sentinel value READFILE/WRITEFILE return in a0 when the
// requested filename isn't in the file table.
const NotFound = 0xFFFFFFFE

// maxFilenameBytes bounds how far a user filename pointer is scanned
// looking for a NUL terminator before giving up; every filename this
// kernel's shell passes is well under this.
const maxFilenameBytes = 128

// putcharFn and getcharFn indirect the SBI console so tests can drive the
// dispatcher without issuing real ecalls.
var (
	putcharFn = sbi.Putchar
	getcharFn = sbi.Getchar
)

// procManager is the subset of *proc.Manager the dispatcher needs. Handle
// accepts it as an interface, rather than the concrete type, so a test can
// drive GETCHAR's retry loop against a process manager whose Yield is a
// no-op instead of a real scheduler context switch.
type procManager interface {
	Current() *proc.Process
	Yield()
	Exit()
}

// Dispatcher wires the process manager and file store into the syscall
// ABI. It holds no state of its own beyond these two collaborators.
type Dispatcher struct {
	Procs procManager
	Files *tar.Store
}

// Handle implements irq.SyscallHandler, dispatching on f.A3.
func (d *Dispatcher) Handle(f *irq.Frame) uint32 {
	switch f.A3 {
	case NrPutchar:
		putcharFn(byte(f.A0))
		return 0

	case NrGetchar:
		for {
			ch := getcharFn()
			if ch >= 0 {
				return uint32(ch)
			}
			d.Procs.Yield()
		}

	case NrExit:
		d.Procs.Exit()
		return 0

	case NrReadFile:
		return d.readFile(f)

	case NrWriteFile:
		return d.writeFile(f)

	default:
		kfmt.Panicf("unexpected syscall a3=%d", f.A3)
		return 0
	}
}

// readFile implements SYS_READFILE: a0 names the file, a1 is the user
// destination buffer, a2 is its capacity. It copies min(a2, file.size)
// bytes and returns the copied length, or NotFound if no such file exists.
func (d *Dispatcher) readFile(f *irq.Frame) uint32 {
	pageTable := d.Procs.Current().PageTable()
	name := readFilenameUser(pageTable, mem.VAddr(f.A0))

	file, err := d.Files.Lookup(name)
	if err != nil {
		kfmt.Printf("file not found: %s\n", name)
		return NotFound
	}

	length := int(f.A2)
	if length > file.Size {
		length = file.Size
	}

	writeUser(pageTable, mem.VAddr(f.A1), file.Data[:length])
	return uint32(length)
}

// writeFile implements SYS_WRITEFILE: a0 names the file, a1 is the user
// source buffer, a2 is its length. Unlike the length the original source
// used (capped by the file's *existing* size, which could never grow a
// file past its first write), this caps by the file's data capacity and
// lets the write grow file.Size up to it, then flushes the whole table to
// disk.
func (d *Dispatcher) writeFile(f *irq.Frame) uint32 {
	pageTable := d.Procs.Current().PageTable()
	name := readFilenameUser(pageTable, mem.VAddr(f.A0))

	file, err := d.Files.Lookup(name)
	if err != nil {
		kfmt.Printf("file not found: %s\n", name)
		return NotFound
	}

	length := int(f.A2)
	if length > tar.MaxFileSize {
		length = tar.MaxFileSize
	}

	copy(file.Data[:length], readUser(pageTable, mem.VAddr(f.A1), length))
	file.Size = length

	if err := d.Files.Flush(); err != nil {
		kfmt.Panicf("fs flush failed: %s", err.Error())
	}

	return uint32(length)
}

// readFilenameUser scans the NUL-terminated filename at vaddr in the
// address space rooted at pageTable and returns it as a string, excluding
// the terminator. The syscall ABI's a2 argument bounds the data buffer,
// not the filename, so this always stops at the first NUL rather than at
// a2 bytes.
func readFilenameUser(pageTable mem.PAddr, vaddr mem.VAddr) string {
	buf := make([]byte, 0, 32)
	for i := 0; i < maxFilenameBytes; i++ {
		b := readUser(pageTable, vaddr+mem.VAddr(i), 1)[0]
		if b == 0 {
			break
		}
		buf = append(buf, b)
	}
	return string(buf)
}

// readUser copies length bytes starting at the user virtual address vaddr
// in the process rooted at pageTable into a freshly allocated buffer.
func readUser(pageTable mem.PAddr, vaddr mem.VAddr, length int) []byte {
	buf := make([]byte, length)
	copyUser(pageTable, vaddr, buf, false)
	return buf
}

// writeUser copies data into the user virtual address vaddr in the process
// rooted at pageTable.
func writeUser(pageTable mem.PAddr, vaddr mem.VAddr, data []byte) {
	copyUser(pageTable, vaddr, data, true)
}

// copyUser moves buf to or from a contiguous user virtual range, walking
// the range one page at a time and translating each page through the
// process's own page table. The trapped process's satp is still installed
// while a trap is serviced, but every user pointer is resolved here
// through an explicit software walk instead of relying on hardware
// translation, unlike the direct-dereference the original source relies
// on with SUM set.
func copyUser(pageTable mem.PAddr, vaddr mem.VAddr, buf []byte, toUser bool) {
	off := 0
	for off < len(buf) {
		addr := uint32(vaddr) + uint32(off)
		pageAddr := mem.VAddr(mem.AlignDown(addr, mem.PageSize))
		pageOff := int(addr - uint32(pageAddr))

		frame, _, ok := vmm.Walk(pageTable, pageAddr)
		if !ok {
			kfmt.Panicf("syscall: unmapped user address %#x", addr)
		}

		n := int(mem.PageSize) - pageOff
		if remaining := len(buf) - off; n > remaining {
			n = remaining
		}

		phys := mem.Bytes(frame.Address()+mem.PAddr(pageOff), n)
		if toUser {
			copy(phys, buf[off:off+n])
		} else {
			copy(buf[off:off+n], phys)
		}
		off += n
	}
}
