// Command mkdisk builds the flat ustar disk image kernel/fs/tar loads at
// boot, from a YAML manifest of host files. It is a host-side tool: it
// never runs as part of the kernel image, and is free to use a real OS's
// syscalls and heap, unlike everything under kernel/.
package main

import (
	"flag"
	"fmt"
	"os"

	"golang.org/x/sys/unix"
	"gopkg.in/yaml.v3"

	"sv32kernel/kernel"
	"sv32kernel/kernel/driver/virtioblk"
	"sv32kernel/kernel/fs/tar"
)

// manifest describes which host files to pack into the image, and under
// what name each should appear in the kernel's file table.
type manifest struct {
	Files []struct {
		Name string `yaml:"name"`
		Path string `yaml:"path"`
	} `yaml:"files"`
}

// defaultSectors sizes the image generously above what two MaxFileSize
// files plus their headers need, leaving room to grow via WRITEFILE
// without a rebuild.
const defaultSectors = 16

func main() {
	manifestPath := flag.String("manifest", "", "YAML manifest listing files to pack (required)")
	outPath := flag.String("out", "disk.img", "path to write the disk image to")
	sectors := flag.Int("sectors", defaultSectors, "size of the image, in 512-byte sectors")
	flag.Parse()

	if *manifestPath == "" {
		fmt.Fprintln(os.Stderr, "mkdisk: -manifest is required")
		os.Exit(1)
	}

	if err := run(*manifestPath, *outPath, *sectors); err != nil {
		fmt.Fprintf(os.Stderr, "mkdisk: %v\n", err)
		os.Exit(1)
	}
}

func run(manifestPath, outPath string, sectors int) error {
	raw, err := os.ReadFile(manifestPath)
	if err != nil {
		return fmt.Errorf("reading manifest: %w", err)
	}

	var m manifest
	if err := yaml.Unmarshal(raw, &m); err != nil {
		return fmt.Errorf("parsing manifest: %w", err)
	}

	fd, err := unix.Open(outPath, unix.O_RDWR|unix.O_CREAT|unix.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("opening %s: %w", outPath, err)
	}
	defer unix.Close(fd)

	imageBytes := sectors * virtioblk.SectorSize
	if err := unix.Ftruncate(fd, int64(imageBytes)); err != nil {
		return fmt.Errorf("sizing %s: %w", outPath, err)
	}

	store := tar.New(diskBlockFn(fd), imageBytes)

	for _, f := range m.Files {
		data, err := os.ReadFile(f.Path)
		if err != nil {
			return fmt.Errorf("reading %s: %w", f.Path, err)
		}
		if kerr := store.Put(f.Name, data); kerr != nil {
			return fmt.Errorf("packing %s as %q: %s", f.Path, f.Name, kerr.Error())
		}
	}

	if kerr := store.Flush(); kerr != nil {
		return fmt.Errorf("writing image: %s", kerr.Error())
	}

	return unix.Fsync(fd)
}

// diskBlockFn returns a tar.Store disk-block callback backed by fd, the
// same read/write-a-sector contract virtioblk.Driver.ReadWriteSector
// satisfies on the guest side, implemented here with host syscalls.
func diskBlockFn(fd int) func(sector uint64, buf []byte, write bool) *kernel.Error {
	return func(sector uint64, buf []byte, write bool) *kernel.Error {
		off := int64(sector) * int64(virtioblk.SectorSize)

		var n int
		var err error
		if write {
			n, err = unix.Pwrite(fd, buf, off)
		} else {
			n, err = unix.Pread(fd, buf, off)
		}

		if err != nil {
			return &kernel.Error{Module: "mkdisk", Message: err.Error()}
		}
		if n != len(buf) {
			return &kernel.Error{Module: "mkdisk", Message: "short read/write on disk image"}
		}
		return nil
	}
}
