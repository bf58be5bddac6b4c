package trackengine

import (
	"time"

	"floppyfs/pkg/bridge"
	"floppyfs/pkg/mfmcodec"
)

// identifyFileSystem reads track 0 up to 5 times, classifying the
// inserted media. Called with no lock held; it takes the lock itself for
// each attempt the way the source does (it isn't one atomic critical
// section — doTrackReading releases nothing but callers of
// identifyFileSystem must not already hold e.mu).
func (e *Engine) identifyFileSystem() {
	if !e.identify {
		return
	}

	e.mu.Lock()
	e.planes.Amiga.TotalCylinders = 0
	e.planes.IBM.TotalCylinders = 0
	e.planes.Primary.TotalCylinders = 0
	e.planes.Amiga.NumHeads = 2
	e.planes.IBM.NumHeads = 2
	e.planes.Primary.NumHeads = 2
	e.motor.alwaysIgnore = false
	e.diskType = Unknown
	e.drive.CylinderSeek(0, 0)
	e.motorInUse(false)
	ready := e.waitForMotor(false)
	e.mu.Unlock()

	if !ready {
		return
	}

	for retries := 0; retries < 5; retries++ {
		e.mu.Lock()
		e.doTrackReading(0, 0, false)
		done := e.diskType != Unknown
		e.mu.Unlock()
		if done {
			return
		}
	}
}

// existingSectors flattens a DecodedTrack's map into the slice shape
// mfmcodec's Find functions merge against.
func existingSectors(t *DecodedTrack) []mfmcodec.DecodedSector {
	out := make([]mfmcodec.DecodedSector, 0, len(t.Sectors))
	for _, s := range t.Sectors {
		out = append(out, s)
	}
	return out
}

func storeSectors(t *DecodedTrack, sectors []mfmcodec.DecodedSector) {
	t.Sectors = make(map[int]mfmcodec.DecodedSector, len(sectors))
	for _, s := range sectors {
		t.Sectors[s.Sector] = s
	}
}

// readFlux fills e.mfmBuffer for the given fileSystem/track, retrying the
// two addressing styles the source uses (absolute track, then
// cylinder+head) until TrackReadTimeout elapses. Must be called with
// e.mu held; it does not release the lock across its short sleeps,
// matching the source.
func (e *Engine) readFlux(fileSystem, track int, retryMode bool) (bits int) {
	hint := bridge.RetryHint(0)
	if retryMode {
		hint = 1
	}
	start := time.Now()
	for {
		numHeads := e.planes.at(fileSystem).NumHeads
		if numHeads == 0 {
			numHeads = 2
		}
		e.motorInUse(track%numHeads == 1)

		readTrack := track
		if fileSystem == 1 && numHeads == 1 {
			readTrack = track * 2
		}
		bits = e.drive.MFMReadTrack(readTrack, hint, e.mfmBuffer)
		if bits == 0 {
			bits = e.drive.MFMReadCylinderHead(track/numHeads, track%numHeads, hint, e.mfmBuffer)
		}
		if bits != 0 {
			return bits
		}
		if time.Since(start) > TrackReadTimeout {
			return 0
		}
		time.Sleep(trackReadRetryGap)
	}
}

// doTrackReading makes one attempt to read and decode track for the
// given plane index, classifying the media first if it's still Unknown.
// Must be called with e.mu held.
func (e *Engine) doTrackReading(fileSystem, track int, retryMode bool) bool {
	bits := e.readFlux(fileSystem, track, retryMode)
	if bits == 0 {
		return false
	}

	if e.diskType == Unknown {
		e.classify(bits, track)
	}

	switch e.diskType {
	case Hybrid:
		e.decodeHybridTrack(fileSystem, bits, track)
	case Amiga:
		e.decodeAmigaTrack(&e.planes.Primary, bits, track, track)
	}
	if e.diskType == Atari || e.diskType == IBM {
		e.decodeIBMTrack(&e.planes.Primary, bits, track, track)
	}
	return true
}

func (e *Engine) decodeAmigaTrack(p *Plane, bits, addrTrack, storeTrack int) {
	dt := p.track(storeTrack)
	sectors := mfmcodec.FindSectorsAmiga(e.mfmBuffer[:byteLen(bits)], bits, addrTrack, existingSectors(dt))
	storeSectors(dt, sectors)
}

func (e *Engine) decodeIBMTrack(p *Plane, bits, addrTrack, storeTrack int) {
	dt := p.track(storeTrack)
	head := 0
	if p.NumHeads > 0 {
		head = addrTrack % p.NumHeads
	}
	sectors, _ := mfmcodec.FindSectorsIBM(e.mfmBuffer[:byteLen(bits)], bits, head, addrTrack, existingSectors(dt))
	storeSectors(dt, sectors)
}

func byteLen(bits int) int {
	n := (bits + 7) / 8
	if n > MaxTrackSize {
		return MaxTrackSize
	}
	return n
}

// decodeHybridTrack applies the source's hybrid dispatch rules: when the
// IBM side has two heads both codecs address tracks identically;
// otherwise (a single-sided Atari sharing cylinders with a double-sided
// Amiga layout) the Amiga plane's track numbering runs at twice the IBM
// plane's, and the two need explicit coordinate conversion.
func (e *Engine) decodeHybridTrack(fileSystem, bits, track int) {
	if e.planes.IBM.NumHeads == 2 {
		e.decodeAmigaTrack(&e.planes.Amiga, bits, track, track)
		e.decodeIBMTrack(&e.planes.IBM, bits, track, track)
		return
	}

	e.planes.Layout = AmigaDoubleIbmSingle
	if fileSystem == 1 {
		e.decodeAmigaTrack(&e.planes.Amiga, bits, track*2, track*2)
		e.decodeIBMTrack(&e.planes.IBM, bits, track, track)
	} else {
		e.decodeAmigaTrack(&e.planes.Amiga, bits, track, track)
		if track&1 == 0 {
			e.decodeIBMTrack(&e.planes.IBM, bits, track, track>>1)
		}
	}
}

// classify runs both codecs against track and, following spec.md's
// classification order (Hybrid > Atari/IBM > Amiga > Unknown), sets
// e.diskType and the winning plane(s)' geometry. Must be called with
// e.mu held.
func (e *Engine) classify(bits, track int) {
	e.planes.Primary.Serial = 0x554e4b4e
	e.planes.IBM.Serial = 0x554e4b4e
	e.planes.Primary.NumHeads = 2
	e.planes.IBM.NumHeads = 2

	buf := e.mfmBuffer[:byteLen(bits)]

	trAmiga := mfmcodec.FindSectorsAmiga(buf, bits, track, nil)
	trIBM, nonStandard := mfmcodec.FindSectorsIBM(buf, bits, track%2, track, nil)

	e.diskType = Unknown
	if len(trAmiga) >= 1 {
		e.diskType = Amiga
		if len(trAmiga) > e.planes.Primary.SectorsPerTrack {
			e.planes.Primary.SectorsPerTrack = len(trAmiga)
		}
		e.planes.Primary.BytesPerSector = 512
		e.planes.Primary.Serial = 0x414d4644 // AMFD
		if e.planes.Primary.TotalCylinders == 0 {
			e.planes.Primary.TotalCylinders = 80
		}
	}

	if len(trIBM) >= 5 {
		e.diskType = IBM
		info, ok := ibmBootInfo(trIBM)
		if ok {
			if len(trAmiga) > 1 {
				e.diskType = Hybrid
			} else if nonStandard {
				e.diskType = Atari
			}
			target := e.planes.at(0)
			if e.diskType == Hybrid {
				target = &e.planes.IBM
				e.planes.Mode = PlaneHybrid
				e.planes.Amiga = e.planes.Primary
			}
			target.SectorsPerTrack = info.SectorsPerTrack
			target.BytesPerSector = info.BytesPerSector
			target.Serial = info.Serial
			target.NumHeads = info.Heads
			cyls := info.TotalSectors / info.SectorsPerTrack / info.Heads
			if cyls < 80 {
				cyls = 80
			}
			target.TotalCylinders = cyls
		} else {
			e.planes.Primary.SectorsPerTrack = 9
			if e.drive.IsHD() {
				e.planes.Primary.SectorsPerTrack = 18
			}
			e.planes.Primary.BytesPerSector = 512
			e.planes.Primary.Serial = 0xaaaaaaaa
			e.planes.Primary.TotalCylinders = 80
			e.planes.Primary.NumHeads = 2
		}
	}
}

// ibmBootInfo extracts the boot sector (sector 0) from a freshly decoded
// IBM track and parses its BPB, mirroring the source's getTrackDetails_IBM
// call taking the whole DecodedTrack.
func ibmBootInfo(sectors []mfmcodec.DecodedSector) (mfmcodec.BootSectorInfo, bool) {
	for _, s := range sectors {
		if s.Sector == 0 {
			return mfmcodec.GetTrackDetailsIBM(s.Data)
		}
	}
	return mfmcodec.BootSectorInfo{}, false
}
