package kfmt

import (
	"bytes"
	"testing"
)

// TestPrintf exercises the exact verb/width combinations this kernel's own
// diagnostics use: irq.Frame.Print's "%8x", virtioblk's "%d", proc's "%#x"
// and "process %d exited", syscall's "%s"/"%#x", and kfmt.Panicf's bare
// "%d".
func TestPrintf(t *testing.T) {
	defer func() { outputSink = nil }()

	specs := []struct {
		fn        func()
		expOutput string
	}{
		{
			func() { Printf("no args") },
			"no args",
		},
		{
			// irq.Frame.Print's register dump line.
			func() { Printf("ra=%8x gp=%8x\n", uint32(0x80200000), uint32(0x1000)) },
			"ra=80200000 gp=00001000\n",
		},
		{
			// virtioblk.DriverInit's capacity line.
			func() { Printf("virtio-blk: capacity is %d sectors\n", uint64(2048)) },
			"virtio-blk: capacity is 2048 sectors\n",
		},
		{
			// proc.Exit's notice.
			func() { Printf("process %d exited\n", 3) },
			"process 3 exited\n",
		},
		{
			// syscall.readFile/writeFile's not-found line.
			func() { Printf("file not found: %s\n", "lorem.txt") },
			"file not found: lorem.txt\n",
		},
		{
			// proc.SetCurrent/syscall's "%#x" diagnostics.
			func() { Printf("no such pid %#x", uint32(0xFFFFFFFE)) },
			"no such pid 0xfffffffe",
		},
		{
			func() { Printf("%t / %t", true, false) },
			"true / false",
		},
		{
			func() { Printf("%o", uint32(0777)) },
			"777",
		},
		{
			func() { Printf("missing %s") },
			"missing (MISSING)",
		},
		{
			func() { Printf("bad verb %q") },
			"bad verb %!(NOVERB)",
		},
		{
			func() { Printf("not a string %s", 123) },
			"not a string %!(WRONGTYPE)",
		},
		{
			func() { Printf("extra", "a", "b") },
			"extra%!(EXTRA)%!(EXTRA)",
		},
	}

	var buf bytes.Buffer
	SetOutputSink(&buf)

	for i, spec := range specs {
		buf.Reset()
		spec.fn()

		if got := buf.String(); got != spec.expOutput {
			t.Errorf("[spec %d] expected %q; got %q", i, spec.expOutput, got)
		}
	}
}

func TestPrintfBuffersBeforeOutputSinkIsInstalled(t *testing.T) {
	defer func() { outputSink = nil }()

	outputSink = nil
	earlyPrintBuffer = ringBuffer{}

	Printf("booting\n")

	var buf bytes.Buffer
	SetOutputSink(&buf)

	if got := buf.String(); got != "booting\n" {
		t.Fatalf("expected early output to flush through SetOutputSink; got %q", got)
	}
}

func TestFprintfWritesDirectlyToTheGivenWriter(t *testing.T) {
	var buf bytes.Buffer

	Fprintf(&buf, "switched to idle process\n")

	if got := buf.String(); got != "switched to idle process\n" {
		t.Fatalf("expected %q; got %q", "switched to idle process\n", got)
	}
}
