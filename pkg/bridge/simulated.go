package bridge

import "sync"

// Simulated is a deterministic in-memory Drive used by track-engine
// tests: it stores pre-encoded MFM flux per track exactly like a real
// drive would present it, but with no timing, no PLL, and hooks to
// inject the failure modes the retry/verify loops need to exercise.
type Simulated struct {
	mu sync.Mutex

	heads     int
	cylinders int
	hd        bool

	diskInDrive    bool
	writeProtected bool

	tracks map[int][]byte
	bits   map[int]int

	curCylinder int
	curHead     int
	motorOn     bool

	// failNextReads makes the next N read calls return 0 bits, simulating
	// a transient flux dropout; failNextWrites does the same for writes.
	failNextReads  int
	failNextWrites int

	writeLog []WriteRecord
}

// WriteRecord captures one accepted MFMWrite call for test assertions.
type WriteRecord struct {
	Cylinder, Head int
	IsIBMLike      bool
	Data           []byte
}

// NewSimulated builds a Simulated drive with the given geometry, disk
// inserted and the motor off.
func NewSimulated(heads, cylinders int, hd bool) *Simulated {
	return &Simulated{
		heads:       heads,
		cylinders:   cylinders,
		hd:          hd,
		diskInDrive: true,
		tracks:      make(map[int][]byte),
		bits:        make(map[int]int),
	}
}

// SeedTrack preloads the flux for an absolute track number, as if a disk
// containing that data had just been inserted.
func (s *Simulated) SeedTrack(track int, data []byte, bitLen int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tracks[track] = data
	s.bits[track] = bitLen
}

// EjectMedia simulates a disk being pulled from the drive.
func (s *Simulated) EjectMedia() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.diskInDrive = false
}

// InsertMedia simulates a disk being reinserted.
func (s *Simulated) InsertMedia() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.diskInDrive = true
}

// SetWriteProtected controls IsDriveWriteProtected.
func (s *Simulated) SetWriteProtected(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writeProtected = v
}

// FailNextReads makes the next n MFMRead* calls report zero bits.
func (s *Simulated) FailNextReads(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failNextReads = n
}

// FailNextWrites makes the next n MFMWrite calls report failure.
func (s *Simulated) FailNextWrites(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failNextWrites = n
}

// Writes returns every accepted write, in order, for assertions.
func (s *Simulated) Writes() []WriteRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]WriteRecord, len(s.writeLog))
	copy(out, s.writeLog)
	return out
}

func (s *Simulated) trackFor(cylinder, head int) int {
	return cylinder*s.heads + head
}

func (s *Simulated) MFMReadTrack(track int, retry RetryHint, buf []byte) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readLocked(track, buf)
}

func (s *Simulated) MFMReadCylinderHead(cylinder, head int, retry RetryHint, buf []byte) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readLocked(s.trackFor(cylinder, head), buf)
}

func (s *Simulated) readLocked(track int, buf []byte) int {
	if !s.diskInDrive {
		return 0
	}
	if s.failNextReads > 0 {
		s.failNextReads--
		return 0
	}
	data, ok := s.tracks[track]
	if !ok {
		return 0
	}
	n := copy(buf, data)
	bitLen := s.bits[track]
	if bitLen == 0 || bitLen > n*8 {
		bitLen = n * 8
	}
	return bitLen
}

func (s *Simulated) MFMWrite(cylinder, head int, isIBMLike bool, buf []byte, count int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.diskInDrive || s.writeProtected {
		return false
	}
	if s.failNextWrites > 0 {
		s.failNextWrites--
		return false
	}
	track := s.trackFor(cylinder, head)
	data := make([]byte, count)
	copy(data, buf[:count])
	s.tracks[track] = data
	s.bits[track] = count * 8
	s.writeLog = append(s.writeLog, WriteRecord{Cylinder: cylinder, Head: head, IsIBMLike: isIBMLike, Data: data})
	return true
}

func (s *Simulated) CylinderSeek(cylinder, head int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cylinder < 0 || cylinder >= s.cylinders {
		return false
	}
	s.curCylinder, s.curHead = cylinder, head
	return true
}

func (s *Simulated) MotorEnable(on, upperHead bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.motorOn = on
}

func (s *Simulated) MotorReady() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.motorOn
}

func (s *Simulated) WriteCompleted() bool { return true }

func (s *Simulated) ResetDrive(cylinder int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.curCylinder = cylinder
	return true
}

func (s *Simulated) IsPhysicalDisk() bool { return true }

func (s *Simulated) IsDiskInDrive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.diskInDrive
}

func (s *Simulated) IsDriveWriteProtected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeProtected
}

func (s *Simulated) IsHD() bool { return s.hd }

func (s *Simulated) RestoreDrive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.curCylinder = 0
	return true
}
