package trackengine

import "floppyfs/pkg/sectorcache"

// HybridSectorSize reports the bytes-per-sector of the plane a
// hybrid-aware caller mounts.
func (e *Engine) HybridSectorSize() int { return e.HybridGeometry().BytesPerSector }

// HybridSectorsPerTrack reports the sectors-per-track of the plane a
// hybrid-aware caller mounts.
func (e *Engine) HybridSectorsPerTrack() int { return e.HybridGeometry().SectorsPerTrack }

// HybridTotalTracks reports cylinders*heads for the plane a hybrid-aware
// caller mounts.
func (e *Engine) HybridTotalTracks() int {
	g := e.HybridGeometry()
	return g.TotalCylinders * g.Heads
}

// Cached is an Engine sitting behind a sectorcache.Cache, the same
// composition filebackend.Cached uses. Note InternalHybridRead already
// bypasses the LRU cache (spec.md §4.1), so HybridReadData here still
// goes straight to the engine's own structured track cache — the
// embedded sectorcache.Cache only accelerates the plane-0 path.
type Cached struct {
	*sectorcache.Cache
	*Engine
}

// NewCached wires a sectorcache.Cache in front of e with the given byte
// budget (0 disables caching).
func NewCached(e *Engine, maxCacheMem uint64) *Cached {
	return &Cached{Cache: sectorcache.New(e, maxCacheMem), Engine: e}
}
