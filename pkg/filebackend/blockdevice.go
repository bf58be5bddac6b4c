package filebackend

import "floppyfs/pkg/sectorcache"

// A FileBackend has no separate hybrid plane, so the blockdevice.Backend
// hybrid-prefixed methods just report the same geometry InternalRead
// uses.

// IsDiskPresent is always true for a file-backed image: the file being
// open is the media being present.
func (fb *FileBackend) IsDiskPresent() bool { return true }

// FlushWriteCache is a no-op: writes go straight to the file with no
// deferred cache to flush.
func (fb *FileBackend) FlushWriteCache() bool { return true }

func (fb *FileBackend) HybridSectorSize() int      { return fb.geometry.BytesPerSector }
func (fb *FileBackend) HybridSectorsPerTrack() int { return fb.geometry.SectorsPerTrack }

// HybridTotalTracks reports the total track count across both heads.
// fb.geometry.TotalTracks is already totalSectors/sectorsPerTrack (i.e.
// heads*cylinders), not a cylinder count, so it is returned as-is.
func (fb *FileBackend) HybridTotalTracks() int { return fb.geometry.TotalTracks }

// Cached is a FileBackend sitting behind a sectorcache.Cache: ReadData/
// WriteData/HybridReadData/ResetCache come from the embedded Cache,
// everything else (media presence, geometry, flush) is promoted straight
// from the embedded FileBackend. This is the concrete type SectorCacheBase
// is composed with per spec.md §2's data-flow ("facade → SectorCacheBase
// (hit?) → backend"), and it satisfies blockdevice.Backend directly.
type Cached struct {
	*sectorcache.Cache
	*FileBackend
}

// NewCached wires a sectorcache.Cache in front of fb with the given byte
// budget (0 disables caching).
func NewCached(fb *FileBackend, maxCacheMem uint64) *Cached {
	return &Cached{Cache: sectorcache.New(fb, maxCacheMem), FileBackend: fb}
}
