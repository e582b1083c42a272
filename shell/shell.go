// Package shell embeds the flat user-program image proc.Create launches as
// the first process. The shell's own source, and the toolchain that
// assembles it into a raw RISC-V binary, are out of scope here (spec.md
// names the shell user program itself as a non-goal); this package only
// supplies the placeholder blob the kernel-side boot sequence needs a
// []byte for. Swapping in a real compiled shell means replacing shell.bin
// with its output and nothing else.
package shell

import _ "embed"

// Image is the raw, page-chunked program image mapped at proc.UserBase in
// the shell process's address space.
//
//go:embed shell.bin
var Image []byte
