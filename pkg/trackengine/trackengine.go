// Package trackengine implements the MFM track engine: it turns raw flux
// read from a bridge.Drive into addressable sectors, keeps a per-plane
// track cache with write-back and per-track dirty tracking, and drives the
// physical drive's motor/seek state machine. It is the core of floppyfs —
// everything else either feeds it (bridge) or sits on top of it
// (blockdevice).
package trackengine

import (
	"sync"
	"time"

	"floppyfs/pkg/bridge"
	"floppyfs/pkg/mfmcodec"
)

// DiskType is the sector format the engine has classified the inserted
// media as, or Unknown before/after classification fails.
type DiskType int

const (
	Unknown DiskType = iota
	Amiga
	IBM
	Atari
	Hybrid
)

func (d DiskType) String() string {
	switch d {
	case Amiga:
		return "Amiga"
	case IBM:
		return "IBM"
	case Atari:
		return "Atari"
	case Hybrid:
		return "Hybrid"
	default:
		return "Unknown"
	}
}

// Design constants inherited from the source in order of magnitude, not
// as load-bearing exact values.
const (
	MaxTracks          = 168
	MaxTrackSize       = 16 * 1024
	MaxRetries         = 10
	ForceFlushAtTracks = 4

	MotorIdleTimeout = 2 * time.Second
	MotorTimeoutTime = 1 * time.Second
	TrackReadTimeout = 1 * time.Second
	DiskWriteTimeout = 2 * time.Second

	motorPollInterval  = 100 * time.Millisecond
	monitorTick        = 200 * time.Millisecond
	calibrationSeekGap = 300 * time.Millisecond
	trackReadRetryGap  = 50 * time.Millisecond
	writeTimeoutCooldown = 200 * time.Millisecond
)

// PlaneLayout distinguishes the two ways a hybrid disk's Amiga and IBM
// sector layouts can share physical tracks.
type PlaneLayout int

const (
	// DoubleSided: both formats have two heads, addressed identically.
	DoubleSided PlaneLayout = iota
	// AmigaDoubleIbmSingle: Atari (single-sided) shares a cylinder set
	// with a double-sided Amiga layout; track numbers need conversion
	// between the two codecs' addressing (see doTrackReading).
	AmigaDoubleIbmSingle
)

// PlaneMode tags whether Planes.Amiga/IBM are meaningful or Primary is
// the only live plane. This is the tagged-sum replacement for a fixed
// [2]Plane array: plane 1 (the IBM side) only exists conceptually once a
// disk has been classified Hybrid.
type PlaneMode int

const (
	PlaneSingle PlaneMode = iota
	PlaneHybrid
)

// Plane is one logical view of the media: geometry plus a sparse
// track cache.
type Plane struct {
	BytesPerSector  int
	SectorsPerTrack int
	NumHeads        int
	TotalCylinders  int
	Serial          uint32

	Tracks map[int]*DecodedTrack
}

func newPlane() Plane {
	return Plane{Tracks: make(map[int]*DecodedTrack)}
}

func (p *Plane) track(n int) *DecodedTrack {
	t, ok := p.Tracks[n]
	if !ok {
		t = &DecodedTrack{Sectors: make(map[int]mfmcodec.DecodedSector)}
		p.Tracks[n] = t
	}
	return t
}

func (p *Plane) clear() {
	p.Tracks = make(map[int]*DecodedTrack)
}

// DecodedTrack maps a sector index within a track to its decoded content.
type DecodedTrack struct {
	Sectors map[int]mfmcodec.DecodedSector
}

// flushable reports whether every sector 0..sectorsPerTrack-1 is present
// with numErrors == 0, per spec.md's DecodedTrack invariant.
func (t *DecodedTrack) flushable(sectorsPerTrack int) bool {
	if len(t.Sectors) != sectorsPerTrack {
		return false
	}
	for _, s := range t.Sectors {
		if s.NumErrors != 0 {
			return false
		}
	}
	return true
}

// Planes is the engine's two-plane track cache. Plane 0 (Primary, or
// Amiga once hybrid) is always live; the IBM plane only exists once
// Mode == PlaneHybrid.
type Planes struct {
	Mode   PlaneMode
	Layout PlaneLayout

	Primary Plane // fs 0 for Amiga/IBM/Atari/Unknown
	Amiga   Plane // fs 0 once Mode == PlaneHybrid
	IBM     Plane // fs 1, only meaningful once Mode == PlaneHybrid
}

func newPlanes() Planes {
	return Planes{Primary: newPlane(), Amiga: newPlane(), IBM: newPlane()}
}

// at returns the plane fs (0 or 1) addresses. fs 1 is only meaningful
// once Mode == PlaneHybrid; callers that pass fs 1 outside hybrid mode
// are a programming error in the caller, not something this method
// guards against, matching the source's own lack of a check there.
func (p *Planes) at(fs int) *Plane {
	if fs == 1 {
		return &p.IBM
	}
	if p.Mode == PlaneHybrid {
		return &p.Amiga
	}
	return &p.Primary
}

func (p *Planes) clearAll() {
	p.Primary.clear()
	p.Amiga.clear()
	p.IBM.clear()
}

// MotorState is the drive's motor/seek lifecycle, serialized by Engine.mu.
type MotorState struct {
	turnOnTime   time.Time // zero == off
	alwaysIgnore bool
	ignoreErrors bool
	blockWriting bool
}

func (m *MotorState) on() bool { return !m.turnOnTime.IsZero() }

// RetryAction is the operator decision a RetryPolicy returns once a read
// has exhausted MaxRetries.
type RetryAction int

const (
	ActionRetry RetryAction = iota
	ActionIgnore
	ActionAlwaysIgnore
	ActionAbort
)

// RetryPolicy replaces the source's inlined getchar() prompt: the engine
// asks it what to do once retries are exhausted, keeping the engine
// itself headless and testable.
type RetryPolicy interface {
	Decide() RetryAction
}

// AbortPolicy always aborts once retries are exhausted. It's the sane
// default for a caller that hasn't configured anything else.
type AbortPolicy struct{}

func (AbortPolicy) Decide() RetryAction { return ActionAbort }

// DiskChangeFunc is invoked once per media insert/eject edge, with the
// engine mutex released so it can safely call back into the engine.
type DiskChangeFunc func(inserted bool, diskType DiskType)

// Engine is the MFM track engine: bridge.Drive consumer, sector cache
// owner, motor/seek state machine.
type Engine struct {
	mu sync.Mutex

	drive        bridge.Drive
	onDiskChange DiskChangeFunc
	retryPolicy  RetryPolicy
	writeOnly    bool
	identify     bool // corresponds to the source's m_fileSystemID gate

	diskType    DiskType
	diskInDrive bool

	planes Planes
	dirty  map[int]int // track -> pending write counter

	motor MotorState

	mfmBuffer []byte

	stopMonitor chan struct{}
	monitorDone chan struct{}
}

// Option configures an Engine at construction time.
type Option func(*Engine)

// WithRetryPolicy overrides the default AbortPolicy.
func WithRetryPolicy(p RetryPolicy) Option {
	return func(e *Engine) { e.retryPolicy = p }
}

// WithDiskChangeCallback registers a callback fired once per media
// insert/eject edge.
func WithDiskChangeCallback(fn DiskChangeFunc) Option {
	return func(e *Engine) { e.onDiskChange = fn }
}

// WithWriteOnly configures flushPendingWrites to synthesize zeroed
// sectors for missing indices instead of reading the track back to fill
// gaps — useful when writing to blank media that can't be read yet.
func WithWriteOnly(writeOnly bool) Option {
	return func(e *Engine) { e.writeOnly = writeOnly }
}

// New builds an Engine around drive. Call Start to begin the background
// motor/media monitor and identify whatever media is currently inserted.
func New(drive bridge.Drive, opts ...Option) *Engine {
	e := &Engine{
		drive:       drive,
		retryPolicy: AbortPolicy{},
		identify:    true,
		planes:      newPlanes(),
		dirty:       make(map[int]int),
		mfmBuffer:   make([]byte, MaxTrackSize),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Start spins up the background monitor goroutine and, if media is
// already present, identifies its filesystem.
func (e *Engine) Start() {
	e.mu.Lock()
	e.diskType = Unknown
	e.motor = MotorState{}
	e.diskInDrive = false
	e.mu.Unlock()

	if !e.drive.RestoreDrive() {
		return
	}

	if e.drive.IsDiskInDrive() {
		e.identifyFileSystem()
		e.mu.Lock()
		e.diskInDrive = true
		e.mu.Unlock()
	}

	e.stopMonitor = make(chan struct{})
	e.monitorDone = make(chan struct{})
	go e.monitorLoop()
}

// Stop halts the background monitor and releases the drive.
func (e *Engine) Stop() {
	if e.stopMonitor != nil {
		close(e.stopMonitor)
		<-e.monitorDone
	}
	e.mu.Lock()
	wasInDrive := e.diskInDrive
	e.diskInDrive = false
	e.diskType = Unknown
	e.mu.Unlock()
	if wasInDrive && e.onDiskChange != nil {
		e.onDiskChange(false, Unknown)
	}
}

// DiskType reports the engine's current classification.
func (e *Engine) DiskType() DiskType {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.diskType
}

// IsDiskPresent reports whether media is currently believed inserted.
func (e *Engine) IsDiskPresent() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.diskInDrive
}

// IsWriteProtected reports the drive's write-protect tab state.
func (e *Engine) IsWriteProtected() bool {
	return e.drive.IsDriveWriteProtected()
}

// Geometry describes the primary (fs 0) plane's current layout.
type Geometry struct {
	Type            DiskType
	Serial          uint32
	Heads           int
	TotalCylinders  int
	SectorsPerTrack int
	BytesPerSector  int
}

// PrimaryGeometry reports plane 0's geometry, as a FAT driver mounting
// through blockdevice would see it.
func (e *Engine) PrimaryGeometry() Geometry {
	e.mu.Lock()
	defer e.mu.Unlock()
	p := e.planes.at(0)
	return Geometry{
		Type:            e.diskType,
		Serial:          p.Serial,
		Heads:           p.NumHeads,
		TotalCylinders:  p.TotalCylinders,
		SectorsPerTrack: p.SectorsPerTrack,
		BytesPerSector:  p.BytesPerSector,
	}
}

// HybridGeometry reports the plane a hybrid-aware caller (blockdevice's
// facade) should mount: the IBM plane once classified Hybrid, otherwise
// the primary plane.
func (e *Engine) HybridGeometry() Geometry {
	e.mu.Lock()
	defer e.mu.Unlock()
	fs := 0
	if e.diskType == Hybrid {
		fs = 1
	}
	p := e.planes.at(fs)
	return Geometry{
		Type:            e.diskType,
		Serial:          p.Serial,
		Heads:           p.NumHeads,
		TotalCylinders:  p.TotalCylinders,
		SectorsPerTrack: p.SectorsPerTrack,
		BytesPerSector:  p.BytesPerSector,
	}
}

// ResetCache empties both plane caches and the dirty map.
func (e *Engine) ResetCache() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.planes.clearAll()
	e.dirty = make(map[int]int)
}

// FlushWriteCache flushes every dirty track, matching ioctl(SYNC).
func (e *Engine) FlushWriteCache() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.flushPendingWrites()
}
