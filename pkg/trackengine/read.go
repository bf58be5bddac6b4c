package trackengine

import "time"

// InternalRead implements sectorcache.Backend for the primary (fs 0)
// plane.
func (e *Engine) InternalRead(sectorNumber, sectorSize uint32, out []byte) error {
	e.mu.Lock()
	expected := e.planes.at(0).BytesPerSector
	e.mu.Unlock()

	if int(sectorSize) != expected {
		return errBadGeometry
	}
	return e.readDataAllFS(0, int(sectorNumber), int(sectorSize), out)
}

// InternalHybridRead implements sectorcache.Backend: it serves the plane
// a hybrid-aware caller wants — the IBM side once classified Hybrid,
// otherwise the same plane InternalRead uses.
func (e *Engine) InternalHybridRead(sectorNumber, sectorSize uint32, out []byte) error {
	e.mu.Lock()
	fs := 0
	if e.diskType == Hybrid {
		fs = 1
	}
	expected := e.planes.at(fs).BytesPerSector
	e.mu.Unlock()

	if int(sectorSize) != expected {
		return errBadGeometry
	}
	return e.readDataAllFS(fs, int(sectorNumber), int(sectorSize), out)
}

// readDataAllFS is the retry-driven single-sector read path, grounded on
// SectorCacheMFM::readDataAllFS.
func (e *Engine) readDataAllFS(fileSystem, sectorNumber, sectorSize int, data []byte) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	spt := e.planes.at(fileSystem).SectorsPerTrack
	numHeads := e.planes.at(fileSystem).NumHeads
	if spt == 0 || numHeads == 0 {
		return errBadGeometry
	}

	track := sectorNumber / spt
	trackBlock := sectorNumber % spt
	upperSurface := track%numHeads == 1
	cylinder := track / numHeads
	head := track % numHeads

	if track >= MaxTracks {
		return errBadGeometry
	}

	e.checkFlushPendingWrites()

	if !e.drive.IsDiskInDrive() {
		return errNoMedia
	}

	retries := 0
	for {
		plane := e.planes.at(fileSystem)
		if sec, ok := plane.Tracks[track]; ok {
			if s, ok := sec.Sectors[trackBlock]; ok {
				if s.NumErrors == 0 || e.motor.ignoreErrors {
					copy(data, s.Data[:min(len(s.Data), sectorSize)])
					return nil
				}
			}
		}

		if retries > MaxRetries {
			if e.motor.ignoreErrors {
				return errCodecMismatch
			}
			retries = 0
			switch e.retryPolicy.Decide() {
			case ActionRetry:
			case ActionIgnore:
				e.motor.ignoreErrors = true
			case ActionAlwaysIgnore:
				e.motor.alwaysIgnore = true
				e.motor.ignoreErrors = true
			default:
				return errUserAborted
			}
			if !e.drive.IsDiskInDrive() {
				return errNoMedia
			}
		}

		if retries == MaxRetries/2 {
			if !e.drive.IsDiskInDrive() {
				return errNoMedia
			}
			e.motorInUse(upperSurface)
			if e.drive.IsPhysicalDisk() {
				if cylinder < 40 {
					e.drive.CylinderSeek(79, head)
				} else {
					e.drive.CylinderSeek(0, head)
				}
				time.Sleep(calibrationSeekGap)
			}
			if !e.drive.IsDiskInDrive() {
				return errNoMedia
			}
		}

		e.motorInUse(upperSurface)
		e.drive.CylinderSeek(cylinder, head)

		if !e.waitForMotor(upperSurface) {
			return errTimeout
		}

		e.doTrackReading(fileSystem, track, retries > 1)
		retries++
	}
}
