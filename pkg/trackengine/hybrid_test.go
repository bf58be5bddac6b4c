package trackengine

import (
	"bytes"
	"testing"

	"floppyfs/pkg/bridge"
	"floppyfs/pkg/mfmcodec"
)

// TestHybridSingleSidedAddressingConvertsToSamePhysicalTrack pins the
// open question over decodeHybridTrack's two AmigaDoubleIbmSingle
// branches: a single-sided IBM/Atari track and its double-sided Amiga
// counterpart both describe the same physical track, addressed under
// two different local numbering schemes, not two distinct tracks.
// Decoding the same flux once as fs 0 (Amiga's own numbering) and once
// as fs 1 (IBM's own numbering) must land in the same plane-cache slots
// with the same data either way.
func TestHybridSingleSidedAddressingConvertsToSamePhysicalTrack(t *testing.T) {
	drive := bridge.NewSimulated(2, 80, false)
	e := New(drive)

	e.planes.Mode = PlaneHybrid
	e.planes.IBM.NumHeads = 1
	e.planes.Amiga.NumHeads = 2
	e.diskType = Hybrid

	const physicalTrack = 2 // even physical/Amiga track == IBM logical track 1

	ibmSectors := []mfmcodec.DecodedSector{{Sector: 0, Data: bytes.Repeat([]byte{0xAB}, 512)}}
	ibmBuf, ok := mfmcodec.EncodeSectorsIBM(0, physicalTrack, false, ibmSectors, 1, 512, 2000)
	if !ok {
		t.Fatalf("EncodeSectorsIBM overflow")
	}

	amigaSectors := []mfmcodec.DecodedSector{{Sector: 0, Data: bytes.Repeat([]byte{0xCD}, 512)}}
	amigaBuf, ok := mfmcodec.EncodeSectorsAmiga(physicalTrack, amigaSectors, 1, 2000)
	if !ok {
		t.Fatalf("EncodeSectorsAmiga overflow")
	}

	combined := append(append([]byte{}, ibmBuf...), amigaBuf...)
	if len(combined) > len(e.mfmBuffer) {
		t.Fatalf("test fixture too large for mfmBuffer: %d > %d", len(combined), len(e.mfmBuffer))
	}
	copy(e.mfmBuffer, combined)
	bits := len(combined) * 8

	e.mu.Lock()
	e.decodeHybridTrack(0, bits, physicalTrack)     // Amiga's own view
	e.decodeHybridTrack(1, bits, physicalTrack/2)   // IBM's own view of the same track
	amigaTrack, amigaOK := e.planes.Amiga.Tracks[physicalTrack]
	ibmTrack, ibmOK := e.planes.IBM.Tracks[physicalTrack/2]
	e.mu.Unlock()

	if !amigaOK {
		t.Fatalf("expected Amiga plane track %d to be populated", physicalTrack)
	}
	if got := amigaTrack.Sectors[0].Data[0]; got != 0xCD {
		t.Fatalf("Amiga plane track %d sector 0 = %#x, want 0xCD", physicalTrack, got)
	}

	if !ibmOK {
		t.Fatalf("expected IBM plane track %d to be populated", physicalTrack/2)
	}
	if got := ibmTrack.Sectors[0].Data[0]; got != 0xAB {
		t.Fatalf("IBM plane track %d sector 0 = %#x, want 0xAB", physicalTrack/2, got)
	}
}

// TestIdentifyClassifiesHybridDoubleSided covers the other layout: an
// IBM/Atari side with two heads shares cylinder addressing directly with
// the Amiga side, no coordinate conversion needed.
func TestIdentifyClassifiesHybridDoubleSided(t *testing.T) {
	drive := bridge.NewSimulated(2, 80, false)

	boot := make([]byte, 512)
	boot[11], boot[12] = 0x00, 0x02 // bytesPerSector = 512
	boot[24], boot[25] = 5, 0       // sectorsPerTrack = 5 (matches the encoded count below)
	boot[26], boot[27] = 2, 0       // heads = 2
	boot[19], boot[20] = 180&0xff, 180>>8
	boot[39], boot[40], boot[41], boot[42] = 0x44, 0x33, 0x22, 0x11

	ibmSectors := []mfmcodec.DecodedSector{{Sector: 0, Data: boot}}
	for s := 1; s < 5; s++ {
		ibmSectors = append(ibmSectors, mfmcodec.DecodedSector{Sector: s, Data: bytes.Repeat([]byte{byte(0x10 + s)}, 512)})
	}
	ibmBuf, ok := mfmcodec.EncodeSectorsIBM(0, 0, false, ibmSectors, 5, 512, 6000)
	if !ok {
		t.Fatalf("EncodeSectorsIBM overflow")
	}

	amigaSectors := []mfmcodec.DecodedSector{
		{Sector: 0, Data: bytes.Repeat([]byte{0x01}, 512)},
		{Sector: 1, Data: bytes.Repeat([]byte{0x02}, 512)},
	}
	amigaBuf, ok := mfmcodec.EncodeSectorsAmiga(0, amigaSectors, 2, 2000)
	if !ok {
		t.Fatalf("EncodeSectorsAmiga overflow")
	}

	combined := append(append([]byte{}, ibmBuf...), amigaBuf...)
	drive.SeedTrack(0, combined, len(combined)*8)

	e := New(drive)
	e.Start()
	t.Cleanup(e.Stop)

	if got := e.DiskType(); got != Hybrid {
		t.Fatalf("got disk type %v, want Hybrid", got)
	}

	buf := make([]byte, 512)
	if err := e.InternalRead(0, 512, buf); err != nil {
		t.Fatalf("InternalRead (Amiga plane) sector 0: %v", err)
	}
	if buf[0] != 0x01 {
		t.Fatalf("Amiga plane sector 0 = %#x, want 0x01", buf[0])
	}

	if err := e.InternalHybridRead(0, 512, buf); err != nil {
		t.Fatalf("InternalHybridRead (IBM plane) sector 0: %v", err)
	}
	if !bytes.Equal(buf, boot) {
		t.Fatalf("IBM plane sector 0 does not match the boot sector written")
	}
}
