package trackengine

import (
	"bytes"
	"time"

	"floppyfs/pkg/mfmcodec"
)

// InternalWrite implements sectorcache.Backend for the primary (fs 0)
// plane. Writes are rejected on hybrid/unknown media, write-protected
// media, or while blockWriting is set.
func (e *Engine) InternalWrite(sectorNumber, sectorSize uint32, in []byte) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.motor.blockWriting {
		return errUnsupportedType
	}
	if e.diskType == Hybrid || e.diskType == Unknown {
		return errUnsupportedType
	}
	if e.drive.IsDriveWriteProtected() {
		return errWriteProtected
	}

	plane := e.planes.at(0)
	if plane.SectorsPerTrack == 0 || plane.NumHeads == 0 {
		return errBadGeometry
	}
	if int(sectorSize) != plane.BytesPerSector {
		return errBadGeometry
	}

	track := int(sectorNumber) / plane.SectorsPerTrack
	if track >= MaxTracks {
		return errBadGeometry
	}
	trackBlock := int(sectorNumber) % plane.SectorsPerTrack
	upperSurface := track%plane.NumHeads == 1

	dt := plane.track(track)
	if existing, ok := dt.Sectors[trackBlock]; ok {
		if bytes.Equal(existing.Data, in[:len(existing.Data)]) && existing.NumErrors == 0 {
			return nil
		}
		existing.Data = append([]byte(nil), in[:plane.BytesPerSector]...)
		existing.NumErrors = 0
		dt.Sectors[trackBlock] = existing
	} else {
		dt.Sectors[trackBlock] = mfmcodec.DecodedSector{
			Sector:    trackBlock,
			Data:      append([]byte(nil), in[:plane.BytesPerSector]...),
			NumErrors: 0,
		}
	}

	e.dirty[track]++
	e.motorInUse(upperSurface)
	e.checkFlushPendingWrites()

	return nil
}

// checkFlushPendingWrites flushes once too many tracks are dirty at
// once. Must be called with e.mu held.
func (e *Engine) checkFlushPendingWrites() {
	if len(e.dirty) < ForceFlushAtTracks {
		return
	}
	e.flushPendingWrites()
}

// removeFailedWritesFromCache drops the cached sectors for any track
// that never made it to disk, so the next access re-reads from media.
// Must be called with e.mu held.
func (e *Engine) removeFailedWritesFromCache() {
	plane := e.planes.at(0)
	for track, counter := range e.dirty {
		if counter != 0 {
			if dt, ok := plane.Tracks[track]; ok {
				dt.Sectors = make(map[int]mfmcodec.DecodedSector)
			}
		}
	}
	e.dirty = make(map[int]int)
}

// flushPendingWrites writes back every dirty track: assemble a complete
// track (filling gaps from disk or, in write-only mode, with zeroed
// sectors), encode it, write it, and verify by reading it back. Must be
// called with e.mu held.
func (e *Engine) flushPendingWrites() bool {
	if e.motor.blockWriting {
		return false
	}

	plane := e.planes.at(0)

	for track, counter := range e.dirty {
		if counter == 0 {
			continue
		}
		upperSurface := track%plane.NumHeads == 1
		cylinder := track / plane.NumHeads
		head := track % plane.NumHeads

		e.motorInUse(upperSurface)
		e.drive.CylinderSeek(cylinder, head)
		if !e.waitForMotor(upperSurface) {
			e.dirty = make(map[int]int)
			return false
		}
		e.drive.CylinderSeek(cylinder, head)

		dt := plane.track(track)
		fillData := !dt.flushable(plane.SectorsPerTrack)

		if fillData {
			backup := make(map[int]mfmcodec.DecodedSector, len(dt.Sectors))
			for k, v := range dt.Sectors {
				backup[k] = v
			}

			if e.writeOnly {
				for sec := 0; sec < plane.SectorsPerTrack; sec++ {
					if _, ok := dt.Sectors[sec]; !ok {
						dt.Sectors[sec] = mfmcodec.DecodedSector{
							Sector: sec,
							Data:   make([]byte, plane.BytesPerSector),
						}
					}
				}
			} else {
				e.doTrackReading(0, track, false)
			}

			for k, v := range backup {
				if v.NumErrors == 0 {
					if _, ok := dt.Sectors[k]; ok {
						dt.Sectors[k] = v
					}
				}
			}
		}

		for len(dt.Sectors) > plane.SectorsPerTrack {
			highest := -1
			for k := range dt.Sectors {
				if k > highest {
					highest = k
				}
			}
			delete(dt.Sectors, highest)
		}

		sectors := existingSectors(dt)
		asAtari := e.diskType == Atari
		var buf []byte
		var ok bool
		switch e.diskType {
		case Amiga:
			buf, ok = mfmcodec.EncodeSectorsAmiga(track, sectors, plane.SectorsPerTrack, MaxTrackSize)
		case IBM, Atari:
			buf, ok = mfmcodec.EncodeSectorsIBM(track%plane.NumHeads, track, asAtari, sectors, plane.SectorsPerTrack, plane.BytesPerSector, MaxTrackSize)
		case Hybrid:
			if len(sectors) == 11 || len(sectors) == 22 {
				buf, ok = mfmcodec.EncodeSectorsAmiga(track, sectors, plane.SectorsPerTrack, MaxTrackSize)
			} else {
				buf, ok = mfmcodec.EncodeSectorsIBM(track%plane.NumHeads, track, true, sectors, plane.SectorsPerTrack, plane.BytesPerSector, MaxTrackSize)
			}
		}
		if !ok {
			e.removeFailedWritesFromCache()
			return false
		}

		if !e.writeTrackWithVerify(track, cylinder, upperSurface, buf, sectors) {
			e.removeFailedWritesFromCache()
			return false
		}

		e.dirty[track] = 0
	}

	e.removeFailedWritesFromCache()
	return true
}

// writeTrackWithVerify writes buf to (cylinder, upperSurface) with a
// retry loop bounded by MaxRetries, then reads the track back and
// compares it against snapshot. Must be called with e.mu held.
func (e *Engine) writeTrackWithVerify(track, cylinder int, upperSurface bool, buf []byte, snapshot []mfmcodec.DecodedSector) bool {
	isIBMLike := e.diskType == IBM || e.diskType == Atari
	head := 0
	if upperSurface {
		head = 1
	}

	retries := 0
	for {
		if retries > MaxRetries {
			return false
		}
		if retries == MaxRetries/2 {
			if e.drive.IsPhysicalDisk() {
				e.motorInUse(upperSurface)
				if cylinder < 40 {
					e.drive.CylinderSeek(79, head)
				} else {
					e.drive.CylinderSeek(0, head)
				}
				time.Sleep(calibrationSeekGap)
			}
		}
		e.drive.CylinderSeek(cylinder, head)
		e.motorInUse(upperSurface)

		if !e.drive.IsDiskInDrive() {
			return false
		}

		if !e.drive.MFMWrite(cylinder, head, isIBMLike, buf, len(buf)) {
			return false
		}

		start := time.Now()
		for !e.drive.WriteCompleted() {
			if time.Since(start) > DiskWriteTimeout {
				e.drive.ResetDrive(cylinder)
				e.motor.turnOnTime = time.Time{}
				if e.drive.IsPhysicalDisk() {
					time.Sleep(writeTimeoutCooldown)
				}
				if !e.drive.IsDiskInDrive() {
					return false
				}
				return false
			}
		}

		plane := e.planes.at(0)
		plane.track(track).Sectors = make(map[int]mfmcodec.DecodedSector)
		for !e.doTrackReading(0, track, retries > 1) {
			e.motor.turnOnTime = time.Time{}
			if !e.drive.IsDiskInDrive() {
				return false
			}
			if e.drive.IsPhysicalDisk() {
				time.Sleep(100 * time.Millisecond)
			}
		}

		if verifyTrack(plane.track(track), snapshot) {
			return true
		}

		retries++
	}
}

// verifyTrack checks that every sector in snapshot exists, error-free
// and byte-identical, in the just-reread track.
func verifyTrack(dt *DecodedTrack, snapshot []mfmcodec.DecodedSector) bool {
	for _, want := range snapshot {
		got, ok := dt.Sectors[want.Sector]
		if !ok || got.NumErrors != 0 {
			return false
		}
		if len(got.Data) != len(want.Data) {
			return false
		}
		if !bytes.Equal(got.Data, want.Data) {
			return false
		}
	}
	return true
}
