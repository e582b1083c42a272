// Package virtioblk implements a driver for the legacy (version 1) MMIO
// virtio-blk device: a single 16-entry virtqueue used to issue chained
// three-descriptor (header/data/status) read and write requests, polled to
// completion since this kernel never enables the device interrupt.
package virtioblk

import (
	"sv32kernel/kernel/mem"
	"unsafe"
)

// MMIO register offsets from the device's base address, per the legacy
// virtio MMIO transport layout.
const (
	regMagic         = 0x00
	regVersion       = 0x04
	regDeviceID      = 0x08
	regQueueSel      = 0x30
	regQueueNum      = 0x38
	regQueueAlign    = 0x3c
	regQueuePFN      = 0x40
	regQueueNotify   = 0x50
	regDeviceStatus  = 0x70
	regDeviceConfig  = 0x100
)

const (
	magicValue      = 0x74726976 // "virt"
	legacyVersion   = 1
	deviceIDBlock   = 2
	statusAck       = 1
	statusDriver    = 2
	statusDriverOK  = 4
	statusFeaturesOK = 8
)

// regRead32Fn and regWrite32Fn indirect every MMIO access so tests can
// substitute an in-memory register file for the real device.
var (
	regRead32Fn = func(base mem.PAddr, offset uint32) uint32 {
		return *(*uint32)(unsafe.Pointer(uintptr(base) + uintptr(offset)))
	}
	regWrite32Fn = func(base mem.PAddr, offset uint32, value uint32) {
		*(*uint32)(unsafe.Pointer(uintptr(base) + uintptr(offset))) = value
	}
	regRead64Fn = func(base mem.PAddr, offset uint32) uint64 {
		return *(*uint64)(unsafe.Pointer(uintptr(base) + uintptr(offset)))
	}
)

func (d *Driver) reg32(offset uint32) uint32 {
	return regRead32Fn(d.mmioBase, offset)
}

func (d *Driver) setReg32(offset uint32, value uint32) {
	regWrite32Fn(d.mmioBase, offset, value)
}

func (d *Driver) reg64(offset uint32) uint64 {
	return regRead64Fn(d.mmioBase, offset)
}

func (d *Driver) orReg32(offset uint32, value uint32) {
	d.setReg32(offset, d.reg32(offset)|value)
}
