// Package blockdevice presents a status/read/write/ioctl/time surface
// modeled on FatFs's diskio.h glue, so a generic FAT12/16 driver can
// mount whatever backend is currently bound — a filebackend.FileBackend
// or a trackengine.Engine — without knowing which one it is.
package blockdevice

import (
	"sync/atomic"
	"time"
)

// Status is the disk_status/disk_initialize/read/write result code set,
// named after FatFs's DSTATUS/DRESULT constants.
type Status int

const (
	StatusOK Status = iota
	StatusNoInit
	StatusNoDisk
	StatusProtect
	StatusError
	StatusNotReady
	StatusWriteProtected
	StatusParamError
)

// IoctlCmd selects a disk_ioctl operation.
type IoctlCmd int

const (
	CmdSync IoctlCmd = iota
	CmdGetSectorCount
	CmdGetSectorSize
	CmdGetBlockSize
)

// Backend is what a Facade binds to: anything that can report media
// presence/write-protect state, serve sector reads (hybrid-aware) and
// writes, flush pending writes, and describe its geometry. In practice
// this is always a filebackend.Cached or trackengine.Cached — a
// sectorcache.Cache embedded alongside the raw backend, so ReadData/
// WriteData/HybridReadData come from the LRU cache and everything else
// is promoted straight from the backend underneath it.
type Backend interface {
	IsDiskPresent() bool
	IsWriteProtected() bool
	ReadData(sector, sectorSize uint32, out []byte) error
	WriteData(sector, sectorSize uint32, in []byte) error
	HybridReadData(sector, sectorSize uint32, out []byte) error
	FlushWriteCache() bool
	HybridSectorSize() int
	HybridSectorsPerTrack() int
	HybridTotalTracks() int
}

// Facade is the process-wide single binding a FAT driver's diskio.h-style
// callbacks reach through. Only drive 0 exists; there is exactly one
// active backend at a time, matching the source's single static pointer.
// Bind never takes ownership: the facade does not close or flush the
// backend on rebinding, and Bind(nil) or a fresh Bind retargets it. The
// stored reference is an ordinary one, so it keeps the bound backend
// reachable until it is replaced.
type Facade struct {
	backend atomic.Value // holds Backend
}

var global Facade

// Global returns the process-wide facade instance, mirroring the source's
// single `fatfsSectorCache` static pointer and its `setFatFSSectorCache`
// setter.
func Global() *Facade { return &global }

// Bind sets the active backend. Passing nil unbinds.
func (f *Facade) Bind(b Backend) {
	if b == nil {
		f.backend.Store((*backendBox)(nil))
		return
	}
	f.backend.Store(&backendBox{b})
}

// backendBox lets atomic.Value store a nil-able interface: atomic.Value
// requires a consistent concrete type across Store calls, so a nil
// Backend can't be stored directly.
type backendBox struct{ b Backend }

func (f *Facade) current() Backend {
	v, _ := f.backend.Load().(*backendBox)
	if v == nil {
		return nil
	}
	return v.b
}

// Status implements disk_status: only drive 0 is ever valid.
func (f *Facade) Status(drive int) Status {
	b := f.current()
	if b == nil || drive != 0 {
		return StatusNoInit
	}
	if !b.IsDiskPresent() {
		return StatusNoDisk
	}
	if b.IsWriteProtected() {
		return StatusProtect
	}
	return StatusOK
}

// Init implements disk_initialize: identical contract to Status, no
// side effects, matching the source's disk_initialize body.
func (f *Facade) Init(drive int) Status {
	return f.Status(drive)
}

// Read implements disk_read: repeats hybridReadData across count
// sectors starting at lba.
func (f *Facade) Read(drive int, buf []byte, lba uint32, count int) Status {
	b := f.current()
	if b == nil || drive != 0 {
		return StatusParamError
	}
	if !b.IsDiskPresent() {
		return StatusNotReady
	}
	sectorSize := uint32(b.HybridSectorSize())
	for i := 0; i < count; i++ {
		out := buf[uint32(i)*sectorSize : uint32(i+1)*sectorSize]
		if err := b.HybridReadData(lba+uint32(i), sectorSize, out); err != nil {
			return StatusError
		}
	}
	return StatusOK
}

// Write implements disk_write: repeats writeData across count sectors
// starting at lba.
func (f *Facade) Write(drive int, buf []byte, lba uint32, count int) Status {
	b := f.current()
	if b == nil || drive != 0 {
		return StatusParamError
	}
	if !b.IsDiskPresent() {
		return StatusNotReady
	}
	if b.IsWriteProtected() {
		return StatusWriteProtected
	}
	sectorSize := uint32(b.HybridSectorSize())
	for i := 0; i < count; i++ {
		in := buf[uint32(i)*sectorSize : uint32(i+1)*sectorSize]
		if err := b.WriteData(lba+uint32(i), sectorSize, in); err != nil {
			return StatusError
		}
	}
	return StatusOK
}

// Ioctl implements disk_ioctl for the four commands the source handles.
func (f *Facade) Ioctl(drive int, cmd IoctlCmd) (uint32, Status) {
	b := f.current()
	if b == nil || drive != 0 {
		return 0, StatusParamError
	}
	if !b.IsDiskPresent() {
		return 0, StatusNotReady
	}
	switch cmd {
	case CmdSync:
		if !b.FlushWriteCache() {
			return 0, StatusError
		}
		return 0, StatusOK
	case CmdGetSectorCount:
		return uint32(b.HybridSectorsPerTrack() * b.HybridTotalTracks()), StatusOK
	case CmdGetSectorSize:
		return uint32(b.HybridSectorSize()), StatusOK
	case CmdGetBlockSize:
		return 1, StatusOK
	default:
		return 0, StatusParamError
	}
}

// Time implements get_fattime: a DOS-packed local timestamp.
func Time() uint32 {
	return PackTime(time.Now())
}

// PackTime packs t into the DOS timestamp format
// ((y-1980)<<25) | (m<<21) | (d<<16) | (h<<11) | (min<<5) | (sec>>1).
func PackTime(t time.Time) uint32 {
	y := uint32(t.Year() - 1980)
	m := uint32(t.Month())
	d := uint32(t.Day())
	h := uint32(t.Hour())
	mi := uint32(t.Minute())
	s := uint32(t.Second())
	return y<<25 | m<<21 | d<<16 | h<<11 | mi<<5 | s>>1
}
