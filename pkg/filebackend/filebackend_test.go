package filebackend

import (
	"encoding/binary"
	"os"
	"testing"
)

func mustTempFile(t *testing.T, name string) *os.File {
	t.Helper()
	f, err := os.CreateTemp(t.TempDir(), name)
	if err != nil {
		t.Fatalf("create temp file: %v", err)
	}
	return f
}

func TestOpenIMGDefaultsToIBMGeometry(t *testing.T) {
	f := mustTempFile(t, "*.img")
	defer f.Close()

	size := int64(80 * 2 * 9 * 512) // 720K
	if err := f.Truncate(size); err != nil {
		t.Fatalf("truncate: %v", err)
	}

	fb, err := Open(f, "disk.img")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	g := fb.Geometry()
	if g.Type != IBM {
		t.Fatalf("got type %v, want IBM", g.Type)
	}
	if g.SectorsPerTrack != 9 {
		t.Fatalf("got %d sectors/track, want 9", g.SectorsPerTrack)
	}
	if g.TotalTracks != 160 {
		t.Fatalf("got %d total tracks, want 160", g.TotalTracks)
	}
}

func TestOpenUnknownExtensionDefaultsToAmiga(t *testing.T) {
	f := mustTempFile(t, "*.adf")
	defer f.Close()
	if err := f.Truncate(80 * 2 * 11 * 512); err != nil {
		t.Fatalf("truncate: %v", err)
	}

	fb, err := Open(f, "disk.adf")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if fb.Geometry().Type != Amiga {
		t.Fatalf("got type %v, want Amiga", fb.Geometry().Type)
	}
}

func TestGuessSectorsPerTrackTable(t *testing.T) {
	cases := []struct {
		sectors int64
		want    int
	}{
		{80 * 2 * 9, 9},
		{80 * 2 * 10, 10},
		{80 * 2 * 11, 11},
		{80 * 2 * 18, 18},
		{2 * 80 * 2 * 11, 22},
	}
	for _, c := range cases {
		got := GuessSectorsPerTrack(c.sectors*512, 512)
		if got != c.want {
			t.Errorf("GuessSectorsPerTrack(%d sectors) = %d, want %d", c.sectors, got, c.want)
		}
	}
}

// buildMSAImage constructs a minimal single-track MSA image whose one
// track is RLE-compressed: 0xE5 0x00 0x01 0x00 expands to 256 zero bytes,
// matching the worked example in the S4 test scenario.
func buildMSAImage(t *testing.T) *os.File {
	t.Helper()
	f := mustTempFile(t, "*.msa")

	hdr := make([]byte, msaHeaderSize)
	binary.BigEndian.PutUint16(hdr[0:2], msaHeaderMarker)
	binary.BigEndian.PutUint16(hdr[2:4], 2) // sectorsPerTrack
	binary.BigEndian.PutUint16(hdr[4:6], 1) // heads-1 -> 2 heads
	binary.BigEndian.PutUint16(hdr[6:8], 0) // firstTrack
	binary.BigEndian.PutUint16(hdr[8:10], 0)  // lastTrack
	if _, err := f.Write(hdr); err != nil {
		t.Fatalf("write header: %v", err)
	}

	rle := []byte{0xe5, 0x00, 0x01, 0x00} // fill 0x00, run 256
	var sizeBuf [2]byte
	binary.BigEndian.PutUint16(sizeBuf[:], uint16(len(rle)))
	if _, err := f.Write(sizeBuf[:]); err != nil {
		t.Fatalf("write track size: %v", err)
	}
	if _, err := f.Write(rle); err != nil {
		t.Fatalf("write track data: %v", err)
	}
	return f
}

func TestMSARLEDecompressionExpandsRun(t *testing.T) {
	f := buildMSAImage(t)
	defer f.Close()

	fb, err := Open(f, "disk.msa")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	fb.geometry.BytesPerSector = 128 // 2 sectors * 128 = 256 uncompressed

	entry, err := fb.trackEntry(0)
	if err != nil {
		t.Fatalf("trackEntry: %v", err)
	}
	if len(entry.data) != 256 {
		t.Fatalf("got %d decoded bytes, want 256", len(entry.data))
	}
	for i, b := range entry.data {
		if b != 0 {
			t.Fatalf("byte %d = %#x, want 0x00", i, b)
		}
	}
}

func TestMSAIsWriteProtected(t *testing.T) {
	f := buildMSAImage(t)
	defer f.Close()

	fb, err := Open(f, "disk.msa")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if !fb.IsWriteProtected() {
		t.Fatalf("expected MSA-backed FileBackend to be write protected")
	}

	err = fb.InternalWrite(0, 512, make([]byte, 512))
	if err == nil {
		t.Fatalf("expected InternalWrite on MSA backend to fail")
	}
}

func TestInternalReadWriteRoundTripNormalMode(t *testing.T) {
	f := mustTempFile(t, "*.img")
	defer f.Close()
	if err := f.Truncate(80 * 2 * 9 * 512); err != nil {
		t.Fatalf("truncate: %v", err)
	}

	fb, err := Open(f, "disk.img")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	payload := make([]byte, 512)
	for i := range payload {
		payload[i] = byte(i)
	}
	if err := fb.InternalWrite(5, 512, payload); err != nil {
		t.Fatalf("InternalWrite: %v", err)
	}

	out := make([]byte, 512)
	if err := fb.InternalRead(5, 512, out); err != nil {
		t.Fatalf("InternalRead: %v", err)
	}
	for i := range payload {
		if out[i] != payload[i] {
			t.Fatalf("byte %d = %#x, want %#x", i, out[i], payload[i])
		}
	}
}
