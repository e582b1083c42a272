// Package sbi implements the console shim of the legacy (v0.1) SBI
// binary interface: the two ecall-based extensions a guest kernel uses to
// read and write bytes through the firmware's console before any device
// driver of its own is available.
package sbi

import "sv32kernel/kernel/cpu"

const (
	eidConsolePutchar = 1
	eidConsoleGetchar = 2
)

// ecallFn is overridden in tests so the console shim can be exercised
// without issuing a real ecall instruction.
var ecallFn = cpu.ECall

// Putchar writes a single byte to the SBI console.
func Putchar(ch byte) {
	ecallFn(eidConsolePutchar, 0, uint32(ch), 0, 0)
}

// Getchar reads a single byte from the SBI console. It returns -1 if no
// byte is currently available, matching the legacy console_getchar
// convention of returning the byte (or a negative value) in a0 directly,
// rather than the (error, value) pair later SBI revisions use.
func Getchar() int32 {
	a0, _ := ecallFn(eidConsoleGetchar, 0, 0, 0, 0)
	return int32(a0)
}

// Console is an io.Writer over the SBI console, one Putchar call per byte.
// It is installed as kfmt's output sink during boot, the same role a
// VGA/TTY terminal driver plays in a hosted kernel.
type Console struct{}

// Write implements io.Writer, always writing every byte of p and never
// returning an error: the SBI console has no failure mode this kernel
// checks for.
func (Console) Write(p []byte) (int, error) {
	for _, b := range p {
		Putchar(b)
	}
	return len(p), nil
}
