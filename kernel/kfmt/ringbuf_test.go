package kfmt

import (
	"bytes"
	"io"
	"testing"
)

// bootDiagLine is sample diagnostic text of the kind Printf emits, used as
// the payload written into and read back out of the ring buffer.
const bootDiagLine = "booting\nvirtio-blk: capacity is 2048 sectors\n"

func TestRingBuffer(t *testing.T) {
	var (
		buf bytes.Buffer
		rb  ringBuffer
	)

	t.Run("read/write", func(t *testing.T) {
		rb.wIndex = 0
		rb.rIndex = 0
		n, err := rb.Write([]byte(bootDiagLine))
		if err != nil {
			t.Fatal(err)
		}
		if n != len(bootDiagLine) {
			t.Fatalf("expected to write %d bytes; wrote %d", len(bootDiagLine), n)
		}

		if got := readByteByByte(&buf, &rb); got != bootDiagLine {
			t.Fatalf("expected to read %q; got %q", bootDiagLine, got)
		}
	})

	t.Run("write past capacity moves the read pointer forward", func(t *testing.T) {
		rb.wIndex = ringBufferSize - 1
		rb.rIndex = 0
		if _, err := rb.Write([]byte{'!'}); err != nil {
			t.Fatal(err)
		}

		if exp := 1; rb.rIndex != exp {
			t.Fatalf("expected write to push rIndex to %d; got %d", exp, rb.rIndex)
		}
	})

	t.Run("write wraps around the end of the buffer", func(t *testing.T) {
		rb.wIndex = ringBufferSize - 2
		rb.rIndex = ringBufferSize - 2
		n, err := rb.Write([]byte(bootDiagLine))
		if err != nil {
			t.Fatal(err)
		}
		if n != len(bootDiagLine) {
			t.Fatalf("expected to write %d bytes; wrote %d", len(bootDiagLine), n)
		}

		if got := readByteByByte(&buf, &rb); got != bootDiagLine {
			t.Fatalf("expected to read %q; got %q", bootDiagLine, got)
		}
	})

	t.Run("SetOutputSink drains it via io.Copy", func(t *testing.T) {
		rb.wIndex = 0
		rb.rIndex = 0
		if _, err := rb.Write([]byte(bootDiagLine)); err != nil {
			t.Fatal(err)
		}

		var drained bytes.Buffer
		if _, err := io.Copy(&drained, &rb); err != nil {
			t.Fatal(err)
		}

		if got := drained.String(); got != bootDiagLine {
			t.Fatalf("expected to read %q; got %q", bootDiagLine, got)
		}
	})

	t.Run("reading an empty buffer returns io.EOF", func(t *testing.T) {
		rb.wIndex = 5
		rb.rIndex = 5

		if _, err := rb.Read(make([]byte, 4)); err != io.EOF {
			t.Fatalf("expected io.EOF; got %v", err)
		}
	})
}

func readByteByByte(buf *bytes.Buffer, r io.Reader) string {
	buf.Reset()
	b := make([]byte, 1)
	for {
		if _, err := r.Read(b); err == io.EOF {
			break
		}
		buf.Write(b)
	}
	return buf.String()
}
