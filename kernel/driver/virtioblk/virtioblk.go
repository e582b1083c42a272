package virtioblk

import (
	"sv32kernel/kernel"
	"sv32kernel/kernel/cpu"
	"sv32kernel/kernel/kfmt"
	"sv32kernel/kernel/mem"
	"sv32kernel/kernel/sync"
)

// SectorSize is the size, in bytes, of a single virtio-blk sector.
const SectorSize = 512

const (
	blkTypeIn  = 0 // read
	blkTypeOut = 1 // write
)

// The blkReq* constants lay out the legacy virtio-blk request header: type(4)
// + reserved(4) + sector(8), followed inline by a SectorSize data buffer
// and a 1-byte status field the device writes on completion.
const (
	blkReqTypeOffset   = 0
	blkReqSectorOffset = 8
	blkReqDataOffset   = 16
	blkReqStatusOffset = blkReqDataOffset + SectorSize
	blkReqBytes        = blkReqStatusOffset + 1
)

var (
	// ErrBadMagic, ErrBadVersion and ErrBadDeviceID are returned by
	// DriverInit when the MMIO device at mmioBase doesn't look like a
	// legacy virtio-blk device.
	ErrBadMagic    = &kernel.Error{Module: "virtioblk", Message: "invalid magic value"}
	ErrBadVersion  = &kernel.Error{Module: "virtioblk", Message: "unsupported virtio version"}
	ErrBadDeviceID = &kernel.Error{Module: "virtioblk", Message: "device id is not virtio-blk"}

	// ErrSectorOutOfRange is returned by ReadWriteSector when asked to
	// access a sector beyond the device's advertised capacity.
	ErrSectorOutOfRange = &kernel.Error{Module: "virtioblk", Message: "sector out of range"}

	// ErrDeviceStatus is returned when the device reports a non-zero
	// status byte after completing a request.
	ErrDeviceStatus = &kernel.Error{Module: "virtioblk", Message: "device reported a non-zero status"}
)

// FrameAllocatorFn allocates n contiguous, zero-filled physical pages. It is
// satisfied by pmm.Allocator.AllocPages.
type FrameAllocatorFn func(n uint32) (mem.PAddr, *kernel.Error)

// fenceFn is overridden in tests so kick's ordering can be exercised without
// a real fence instruction.
var fenceFn = cpu.Fence

// Driver drives a single legacy (version 1) MMIO virtio-blk device backed
// by one 16-entry virtqueue. Only one request may be in flight at a time;
// inFlight enforces that invariant across concurrent callers.
type Driver struct {
	mmioBase mem.PAddr
	allocFn  FrameAllocatorFn

	vqBase   mem.PAddr
	reqBase  mem.PAddr
	capacity uint64 // in sectors

	lastUsedIndex uint16
	inFlight      sync.Spinlock
}

// New returns a Driver for the virtio-blk MMIO window at mmioBase. Call
// DriverInit before issuing any requests.
func New(mmioBase mem.PAddr, allocFn FrameAllocatorFn) *Driver {
	return &Driver{mmioBase: mmioBase, allocFn: allocFn}
}

// DriverName implements driver.Driver.
func (d *Driver) DriverName() string { return "virtio-blk" }

// DriverVersion implements driver.Driver.
func (d *Driver) DriverVersion() (uint16, uint16, uint16) { return 0, 1, 0 }

// Capacity returns the device's advertised size in sectors, as read from
// its config space during DriverInit.
func (d *Driver) Capacity() uint64 { return d.capacity }

// DriverInit implements driver.Driver: it validates the device identity,
// negotiates the legacy status handshake, sets up the single virtqueue and
// allocates the request header buffer.
func (d *Driver) DriverInit() *kernel.Error {
	if d.reg32(regMagic) != magicValue {
		return ErrBadMagic
	}
	if d.reg32(regVersion) != legacyVersion {
		return ErrBadVersion
	}
	if d.reg32(regDeviceID) != deviceIDBlock {
		return ErrBadDeviceID
	}

	d.setReg32(regDeviceStatus, 0)
	d.orReg32(regDeviceStatus, statusAck)
	d.orReg32(regDeviceStatus, statusDriver)
	d.orReg32(regDeviceStatus, statusFeaturesOK)

	vqPages := mem.AlignUp(virtqBytes, mem.PageSize) / mem.PageSize
	vqBase, err := d.allocFn(vqPages)
	if err != nil {
		return err
	}
	d.vqBase = vqBase

	d.setReg32(regQueueSel, 0)
	d.setReg32(regQueueNum, queueEntries)
	d.setReg32(regQueueAlign, 0)
	d.setReg32(regQueuePFN, uint32(vqBase))

	d.orReg32(regDeviceStatus, statusDriverOK)

	d.capacity = d.reg64(regDeviceConfig)

	reqPages := mem.AlignUp(blkReqBytes, mem.PageSize) / mem.PageSize
	reqBase, err := d.allocFn(reqPages)
	if err != nil {
		return err
	}
	d.reqBase = reqBase

	kfmt.Printf("virtio-blk: capacity is %d sectors\n", d.capacity)
	return nil
}

// ReadWriteSector issues a single-sector read (write=false) or write
// (write=true) request, blocking until the device completes it. buf must
// be exactly SectorSize bytes.
func (d *Driver) ReadWriteSector(sector uint64, buf []byte, write bool) *kernel.Error {
	if sector >= d.capacity {
		return ErrSectorOutOfRange
	}

	d.inFlight.Acquire()
	defer d.inFlight.Release()

	reqType := uint32(blkTypeIn)
	if write {
		reqType = blkTypeOut
	}

	setU32(d.reqBase+blkReqTypeOffset, reqType)
	setU64(d.reqBase+blkReqSectorOffset, sector)

	if write {
		copy(mem.Bytes(d.reqBase+blkReqDataOffset, SectorSize), buf)
	}

	setDesc(d.vqBase, 0, d.reqBase, blkReqDataOffset, descFlagNext, 1)

	dataFlags := uint16(descFlagNext)
	if !write {
		dataFlags |= descFlagWrite
	}
	setDesc(d.vqBase, 1, d.reqBase+blkReqDataOffset, SectorSize, dataFlags, 2)

	setDesc(d.vqBase, 2, d.reqBase+blkReqStatusOffset, 1, descFlagWrite, 0)

	d.kick(0)
	for d.isBusy() {
	}

	status := mem.Bytes(d.reqBase+blkReqStatusOffset, 1)[0]
	if status != 0 {
		return ErrDeviceStatus
	}

	if !write {
		copy(buf, mem.Bytes(d.reqBase+blkReqDataOffset, SectorSize))
	}

	return nil
}

// kick publishes descIndex on the avail ring and notifies the device. A
// fence separates the avail ring/index writes from the QUEUE_NOTIFY MMIO
// write so the device can never observe the notify before the descriptor
// chain it refers to.
func (d *Driver) kick(descIndex uint16) {
	availIdx := readU16(availIndexAddr(d.vqBase))
	writeU16(availRingAddr(d.vqBase, uint32(availIdx)%queueEntries), descIndex)
	writeU16(availIndexAddr(d.vqBase), availIdx+1)
	fenceFn()
	d.setReg32(regQueueNotify, 0)
	d.lastUsedIndex++
}

// isBusy reports whether the device has not yet consumed the most recently
// kicked descriptor chain. The request is complete once the device's used
// ring index catches up to lastUsedIndex.
func (d *Driver) isBusy() bool {
	return d.lastUsedIndex != readU16(usedIndexAddr(d.vqBase))
}
