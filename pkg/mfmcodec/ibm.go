package mfmcodec

const (
	ibmAddressMark = 0xfe
	ibmDataMark    = 0xfb

	// Gap sizes for standard IBM PC formatting versus the tighter gaps
	// Atari ST drives tolerate at their slower rotational timing budget.
	ibmHeaderGap      = 22
	ibmSectorGap      = 84
	ibmGapFillByte    = 0x4e
	atariHeaderGap    = 12
	atariSectorGap    = 40
	ibmIndexGap       = 50
	ibmStartGap       = 80
	ibmHeaderCRCSeed  = 0xb230
	ibmDataCRCSeed    = 0xcdb4
)

func ibmSectorSizeForCode(code byte) int {
	switch code {
	case 0:
		return 128
	case 1:
		return 256
	case 2:
		return 512
	case 3:
		return 1024
	default:
		return 0
	}
}

func ibmSizeCodeForBytes(size int) byte {
	switch size {
	case 128:
		return 0
	case 256:
		return 1
	case 1024:
		return 3
	default:
		return 2
	}
}

// FindSectorsIBM decodes an IBM/Atari-formatted MFM buffer, merging into
// existing. nonStandard is set when any accepted sector's size code or
// cylinder numbering deviates from plain IBM PC conventions, which is the
// heuristic that lets the track engine tell an Atari disk from a PC one.
func FindSectorsIBM(buf []byte, bitLen, head, track int, existing []DecodedSector) (sectors []DecodedSector, nonStandard bool) {
	sectors = existing
	r := newBitReader(buf, bitLen)

	for {
		tag, ok := r.scanIBM()
		if !ok {
			return sectors, nonStandard
		}
		if tag != ibmAddressMark {
			continue
		}

		hdr, ok := r.readBytes(4)
		if !ok {
			return sectors, nonStandard
		}
		cyl, headByte, sectorByte, sizeCode := hdr[0], hdr[1], hdr[2], hdr[3]

		sumBytes, ok := r.readBytes(2)
		if !ok {
			return sectors, nonStandard
		}
		wantHeaderSum := uint16(sumBytes[0])<<8 | uint16(sumBytes[1])
		gotHeaderSum := crc16Byte(ibmHeaderCRCSeed, cyl)
		gotHeaderSum = crc16Byte(gotHeaderSum, headByte)
		gotHeaderSum = crc16Byte(gotHeaderSum, sectorByte)
		gotHeaderSum = crc16Byte(gotHeaderSum, sizeCode)
		if gotHeaderSum != wantHeaderSum {
			continue
		}
		if int(headByte) != head {
			continue
		}

		sectorSize := ibmSectorSizeForCode(sizeCode)
		if sectorSize == 0 {
			continue
		}
		if sizeCode != 2 || int(cyl) != track/2 {
			nonStandard = true
		}

		dataTag, ok := r.scanIBM()
		if !ok {
			return sectors, nonStandard
		}
		if dataTag == ibmAddressMark {
			continue
		}
		if dataTag != ibmDataMark {
			continue
		}

		data, ok := r.readBytes(sectorSize)
		if !ok {
			return sectors, nonStandard
		}
		dataSumBytes, ok := r.readBytes(2)
		if !ok {
			return sectors, nonStandard
		}
		wantDataSum := uint16(dataSumBytes[0])<<8 | uint16(dataSumBytes[1])
		gotDataSum := crc16Byte(ibmDataCRCSeed, ibmDataMark)
		gotDataSum = crc16(gotDataSum, data)

		numErrors := 0
		if gotDataSum != wantDataSum {
			numErrors = 1
		}
		sectors = mergeSector(sectors, DecodedSector{Sector: int(sectorByte) - 1, Data: data, NumErrors: numErrors})
	}
}

// EncodeSectorsIBM encodes sectorsPerTrack sectors of bytesPerSector each
// into an MFM buffer no larger than maxBytes. asAtari selects the tighter
// gap timings Atari ST drives use. Missing sectors are written zeroed.
// Reports false if the track overflowed maxBytes.
func EncodeSectorsIBM(head, track int, asAtari bool, sectors []DecodedSector, sectorsPerTrack, bytesPerSector, maxBytes int) ([]byte, bool) {
	bySector := make(map[int][]byte, len(sectors))
	for _, s := range sectors {
		bySector[s.Sector] = s.Data
	}

	headerGap, sectorGap := ibmHeaderGap, ibmSectorGap
	if asAtari {
		headerGap, sectorGap = atariHeaderGap, atariSectorGap
	}
	sizeCode := ibmSizeCodeForBytes(bytesPerSector)
	cyl := byte(track / 2)

	w := newBitWriter(maxBytes)
	w.writeGap(ibmStartGap, ibmGapFillByte)
	w.writeSyncViolationC2()
	w.writeByte(0xfc)
	w.writeGap(ibmIndexGap, ibmGapFillByte)

	for s := 0; s < sectorsPerTrack; s++ {
		data := bySector[s]
		if data == nil {
			data = make([]byte, bytesPerSector)
		}

		w.writeSyncViolationA1()
		w.writeByte(ibmAddressMark)
		w.writeByte(cyl)
		w.writeByte(byte(head))
		w.writeByte(byte(s + 1))
		w.writeByte(sizeCode)

		sum := crc16Byte(ibmHeaderCRCSeed, cyl)
		sum = crc16Byte(sum, byte(head))
		sum = crc16Byte(sum, byte(s+1))
		sum = crc16Byte(sum, sizeCode)
		w.writeByte(byte(sum >> 8))
		w.writeByte(byte(sum))

		w.writeGap(headerGap, ibmGapFillByte)

		w.writeSyncViolationA1()
		w.writeByte(ibmDataMark)
		w.writeBytes(data)

		sum = crc16Byte(ibmDataCRCSeed, ibmDataMark)
		sum = crc16(sum, data)
		w.writeByte(byte(sum >> 8))
		w.writeByte(byte(sum))

		w.writeGap(sectorGap, ibmGapFillByte)
	}

	if remaining := maxBytes - len(w.bytes()); remaining > 0 {
		w.writeGap(remaining, ibmGapFillByte)
	}
	if w.overflowed() {
		return nil, false
	}
	return w.bytes(), true
}

func (w *bitWriter) writeSyncViolationA1() {
	for i := 0; i < 12; i++ {
		w.writeByte(0)
	}
	for i := 0; i < 3; i++ {
		w.writeA1Violation()
	}
}

func (w *bitWriter) writeSyncViolationC2() {
	for i := 0; i < 12; i++ {
		w.writeByte(0)
	}
	for i := 0; i < 3; i++ {
		w.writeC2Violation()
	}
}

// BootSectorInfo is the subset of a DOS BIOS Parameter Block the engine
// needs to size a filesystem it did not format itself.
type BootSectorInfo struct {
	Serial          uint32
	Heads           int
	TotalSectors    int
	SectorsPerTrack int
	BytesPerSector  int
}

// GetTrackDetailsIBM parses the BPB embedded in an IBM/Atari boot sector.
// It reports false when the sector is too short or the BPB's geometry
// fields are zero, in which case the caller falls back to a size-derived
// geometry guess.
func GetTrackDetailsIBM(bootSector []byte) (BootSectorInfo, bool) {
	var info BootSectorInfo
	if len(bootSector) < 512 {
		return info, false
	}

	info.BytesPerSector = int(bootSector[11]) | int(bootSector[12])<<8
	info.SectorsPerTrack = int(bootSector[24]) | int(bootSector[25])<<8
	info.Heads = int(bootSector[26]) | int(bootSector[27])<<8

	totalSectors16 := int(bootSector[19]) | int(bootSector[20])<<8
	if totalSectors16 != 0 {
		info.TotalSectors = totalSectors16
	} else {
		info.TotalSectors = int(bootSector[32]) | int(bootSector[33])<<8 |
			int(bootSector[34])<<16 | int(bootSector[35])<<24
	}

	info.Serial = uint32(bootSector[39]) | uint32(bootSector[40])<<8 |
		uint32(bootSector[41])<<16 | uint32(bootSector[42])<<24

	if info.BytesPerSector == 0 || info.SectorsPerTrack == 0 || info.Heads == 0 {
		return info, false
	}
	return info, true
}
