package trackengine

// TrackState summarizes one track's cache entry for a monitoring UI.
type TrackState int

const (
	// TrackUnknown means the track has never been read or written this
	// session.
	TrackUnknown TrackState = iota
	TrackClean
	TrackDirty
	TrackError
)

// Snapshot is a point-in-time view of the engine suitable for a
// non-blocking status display. Its only drive call is the write-protect
// query; it never seeks, spins the motor or reads flux.
type Snapshot struct {
	DiskType     DiskType
	DiskPresent  bool
	WriteProtect bool
	MotorOn      bool
	IgnoreErrors bool
	AlwaysIgnore bool
	TotalTracks  int
	Tracks       []TrackState
}

// Snapshot reports the engine's current state without seeking or
// reading the drive (only its write-protect state is queried), for a
// live monitor like floppyctl watch to poll on an interval.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	fs := 0
	if e.diskType == Hybrid {
		fs = 1
	}
	plane := e.planes.at(fs)
	total := plane.TotalCylinders * plane.NumHeads
	if total <= 0 || total > MaxTracks {
		total = MaxTracks
	}

	states := make([]TrackState, total)
	for track, dt := range plane.Tracks {
		if track < 0 || track >= total {
			continue
		}
		states[track] = trackState(dt, e.dirty[track] > 0)
	}

	return Snapshot{
		DiskType:     e.diskType,
		DiskPresent:  e.diskInDrive,
		WriteProtect: e.drive.IsDriveWriteProtected(),
		MotorOn:      e.motor.on(),
		IgnoreErrors: e.motor.ignoreErrors,
		AlwaysIgnore: e.motor.alwaysIgnore,
		TotalTracks:  total,
		Tracks:       states,
	}
}

func trackState(dt *DecodedTrack, dirty bool) TrackState {
	if dirty {
		return TrackDirty
	}
	if dt == nil || len(dt.Sectors) == 0 {
		return TrackUnknown
	}
	for _, s := range dt.Sectors {
		if s.NumErrors > 0 {
			return TrackError
		}
	}
	return TrackClean
}
