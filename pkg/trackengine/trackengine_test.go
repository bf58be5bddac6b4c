package trackengine

import (
	"bytes"
	"testing"

	"floppyfs/pkg/bridge"
	"floppyfs/pkg/mfmcodec"
)

func amigaSectors(track, count int, fill byte) []mfmcodec.DecodedSector {
	out := make([]mfmcodec.DecodedSector, count)
	for i := 0; i < count; i++ {
		data := bytes.Repeat([]byte{fill + byte(i)}, 512)
		out[i] = mfmcodec.DecodedSector{Sector: i, Data: data}
	}
	return out
}

func seedAmigaTrack(t *testing.T, drive *bridge.Simulated, track, sectorsPerTrack int, fill byte) {
	t.Helper()
	buf, ok := mfmcodec.EncodeSectorsAmiga(track, amigaSectors(track, sectorsPerTrack, fill), sectorsPerTrack, MaxTrackSize)
	if !ok {
		t.Fatalf("EncodeSectorsAmiga(track=%d) overflow", track)
	}
	drive.SeedTrack(track, buf, len(buf)*8)
}

func newAmigaEngine(t *testing.T, sectorsPerTrack int) (*Engine, *bridge.Simulated) {
	t.Helper()
	drive := bridge.NewSimulated(2, 80, false)
	for track := 0; track < 4; track++ {
		seedAmigaTrack(t, drive, track, sectorsPerTrack, byte(track*10))
	}
	e := New(drive)
	e.Start()
	t.Cleanup(e.Stop)
	return e, drive
}

func TestIdentifyClassifiesAmiga(t *testing.T) {
	e, _ := newAmigaEngine(t, 11)
	if got := e.DiskType(); got != Amiga {
		t.Fatalf("got disk type %v, want Amiga", got)
	}
	g := e.PrimaryGeometry()
	if g.SectorsPerTrack != 11 {
		t.Fatalf("got %d sectors/track, want 11", g.SectorsPerTrack)
	}
}

func TestReadDataAllFSReturnsDecodedSector(t *testing.T) {
	e, _ := newAmigaEngine(t, 11)

	buf := make([]byte, 512)
	if err := e.InternalRead(0, 512, buf); err != nil {
		t.Fatalf("InternalRead: %v", err)
	}
	want := amigaSectors(0, 11, 0)[0].Data
	if !bytes.Equal(buf, want) {
		t.Fatalf("sector 0 mismatch")
	}
}

func TestReadIsIdempotentAcrossRepeatedCalls(t *testing.T) {
	e, _ := newAmigaEngine(t, 11)

	first := make([]byte, 512)
	second := make([]byte, 512)
	if err := e.InternalRead(15, 512, first); err != nil {
		t.Fatalf("InternalRead #1: %v", err)
	}
	if err := e.InternalRead(15, 512, second); err != nil {
		t.Fatalf("InternalRead #2: %v", err)
	}
	if !bytes.Equal(first, second) {
		t.Fatalf("repeated reads diverged")
	}
}

func TestDirtyDropOnEject(t *testing.T) {
	e, drive := newAmigaEngine(t, 11)

	payload := bytes.Repeat([]byte{0x42}, 512)
	if err := e.InternalWrite(0, 512, payload); err != nil {
		t.Fatalf("InternalWrite: %v", err)
	}

	e.mu.Lock()
	dirtyBefore := len(e.dirty)
	e.mu.Unlock()
	if dirtyBefore == 0 {
		t.Fatalf("expected a dirty track after write")
	}

	drive.EjectMedia()
	e.tick()

	e.mu.Lock()
	dirtyAfter := len(e.dirty)
	amigaTracks := len(e.planes.at(0).Tracks)
	e.mu.Unlock()

	if dirtyAfter != 0 {
		t.Fatalf("expected dirty map empty after eject, got %d entries", dirtyAfter)
	}
	if amigaTracks != 0 {
		t.Fatalf("expected plane cache cleared after eject, got %d tracks", amigaTracks)
	}
}

func TestWriteThenFlushIsVerifiedAgainstDrive(t *testing.T) {
	e, drive := newAmigaEngine(t, 11)

	payload := bytes.Repeat([]byte{0x99}, 512)
	if err := e.InternalWrite(0, 512, payload); err != nil {
		t.Fatalf("InternalWrite: %v", err)
	}
	if !e.FlushWriteCache() {
		t.Fatalf("FlushWriteCache reported failure")
	}

	writes := drive.Writes()
	if len(writes) == 0 {
		t.Fatalf("expected at least one MFMWrite call")
	}

	out := make([]byte, 512)
	if err := e.InternalRead(0, 512, out); err != nil {
		t.Fatalf("InternalRead after flush: %v", err)
	}
	if !bytes.Equal(out, payload) {
		t.Fatalf("read-back after flush does not match written payload")
	}
}

func TestWriteRejectedOnUnknownDiskType(t *testing.T) {
	drive := bridge.NewSimulated(2, 80, false)
	drive.EjectMedia() // no media present, so Start skips identification
	e := New(drive)
	e.Start()
	t.Cleanup(e.Stop)

	if e.DiskType() != Unknown {
		t.Fatalf("expected Unknown disk type with no media, got %v", e.DiskType())
	}

	err := e.InternalWrite(0, 512, make([]byte, 512))
	if err == nil {
		t.Fatalf("expected write to unknown-format media to fail")
	}
}

func TestWriteRejectedWhenWriteProtected(t *testing.T) {
	e, drive := newAmigaEngine(t, 11)
	drive.SetWriteProtected(true)

	err := e.InternalWrite(0, 512, make([]byte, 512))
	if err == nil {
		t.Fatalf("expected write to write-protected media to fail")
	}
}
