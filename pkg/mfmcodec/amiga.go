package mfmcodec

const (
	amigaSectorSize   = 512
	amigaGapFillByte  = 0x4e
	amigaEncodeGap    = 150
	amigaHeaderIdent  = 0xff
	amigaLabelLongs   = 4
)

// readLong reads one MFM-shuffled 32-bit longword and folds its odd/even
// halves into the running checksum, matching how the header label and
// checksum fields accumulate across the whole sector header.
func (r *bitReader) readLong(sum *uint32) (uint32, bool) {
	oddHigh, ok := r.readByte()
	if !ok {
		return 0, false
	}
	oddLow, ok := r.readByte()
	if !ok {
		return 0, false
	}
	evenHigh, ok := r.readByte()
	if !ok {
		return 0, false
	}
	evenLow, ok := r.readByte()
	if !ok {
		return 0, false
	}
	odd := uint16(oddHigh)<<8 | uint16(oddLow)
	even := uint16(evenHigh)<<8 | uint16(evenLow)
	*sum ^= uint32(odd) ^ uint32(even)
	return unshuffle(odd, even), true
}

// readAmigaData reads the 512-byte odd-half/even-half payload and returns
// its checksum for comparison against the sector's stored data checksum.
func (r *bitReader) readAmigaData(out []byte) (uint32, bool) {
	odd := make([]uint16, amigaSectorSize/4)
	for i := range odd {
		hi, ok := r.readByte()
		if !ok {
			return 0, false
		}
		lo, ok := r.readByte()
		if !ok {
			return 0, false
		}
		odd[i] = uint16(hi)<<8 | uint16(lo)
	}
	even := make([]uint16, amigaSectorSize/4)
	for i := range even {
		hi, ok := r.readByte()
		if !ok {
			return 0, false
		}
		lo, ok := r.readByte()
		if !ok {
			return 0, false
		}
		even[i] = uint16(hi)<<8 | uint16(lo)
	}
	var sum uint32
	for i := range odd {
		sum ^= uint32(odd[i]) ^ uint32(even[i])
		ldata := unshuffle(odd[i], even[i])
		out[4*i] = byte(ldata >> 24)
		out[4*i+1] = byte(ldata >> 16)
		out[4*i+2] = byte(ldata >> 8)
		out[4*i+3] = byte(ldata)
	}
	return sum, true
}

// FindSectorsAmiga decodes an Amiga-formatted MFM buffer for the given
// track, merging newly-decoded sectors into existing (keeping whichever
// copy of a duplicate sector has fewer errors).
func FindSectorsAmiga(buf []byte, bitLen, track int, existing []DecodedSector) []DecodedSector {
	sectors := existing
	r := newBitReader(buf, bitLen)

	for {
		tag, ok := r.scanAmiga()
		if !ok {
			return sectors
		}
		oddLow, ok1 := r.readByte()
		evenHigh, ok2 := r.readByte()
		evenLow, ok3 := r.readByte()
		if !ok1 || !ok2 || !ok3 {
			return sectors
		}
		odd := uint16(tag)<<8 | uint16(oddLow)
		even := uint16(evenHigh)<<8 | uint16(evenLow)
		ident := unshuffle(odd, even) & 0xffffff
		readTrack := int(ident >> 16)
		sector := int((ident >> 8) & 0xff)
		headerSum := uint32(odd) ^ uint32(even)

		labelOK := true
		for i := 0; i < amigaLabelLongs; i++ {
			if _, ok := r.readLong(&headerSum); !ok {
				labelOK = false
				break
			}
		}
		if !labelOK {
			return sectors
		}

		hdrSumBytes, ok := r.readBytes(4)
		if !ok {
			return sectors
		}
		wantHeaderSum := uint32(hdrSumBytes[0])<<24 | uint32(hdrSumBytes[1])<<16 | uint32(hdrSumBytes[2])<<8 | uint32(hdrSumBytes[3])
		if headerSum != wantHeaderSum || readTrack != track {
			// Header didn't validate against this track; keep scanning
			// rather than trusting a sector number we can't confirm.
			continue
		}

		dataSumBytes, ok := r.readBytes(4)
		if !ok {
			return sectors
		}
		wantDataSum := uint32(dataSumBytes[0])<<24 | uint32(dataSumBytes[1])<<16 | uint32(dataSumBytes[2])<<8 | uint32(dataSumBytes[3])

		data := make([]byte, amigaSectorSize)
		gotDataSum, ok := r.readAmigaData(data)
		if !ok {
			return sectors
		}

		numErrors := 0
		if gotDataSum != wantDataSum {
			numErrors = 1
		}
		sectors = mergeSector(sectors, DecodedSector{Sector: sector, Data: data, NumErrors: numErrors})
	}
}

func writeAmigaMarker(w *bitWriter) {
	w.writeByte(0)
	w.writeByte(0)
	w.writeA1Violation()
	w.writeA1Violation()
}

func writeAmigaIdent(w *bitWriter, track, sector, sectorsPerTrack int) {
	ldata := uint32(amigaHeaderIdent)<<24 | uint32(track)<<16 | uint32(sector)<<8 | uint32(sectorsPerTrack-sector)
	odd, even := shuffle(ldata)
	sum := uint32(odd) ^ uint32(even)

	w.writeByte(byte(odd >> 8))
	w.writeByte(byte(odd))
	w.writeByte(byte(even >> 8))
	w.writeByte(byte(even))

	for i := 0; i < amigaLabelLongs*4; i++ {
		w.writeByte(0)
	}

	w.writeByte(byte(sum >> 24))
	w.writeByte(byte(sum >> 16))
	w.writeByte(byte(sum >> 8))
	w.writeByte(byte(sum))
}

func writeAmigaData(w *bitWriter, data []byte) {
	odd := make([]uint16, amigaSectorSize/4)
	even := make([]uint16, amigaSectorSize/4)
	var sum uint32
	for i := 0; i < amigaSectorSize/4; i++ {
		ldata := uint32(data[4*i])<<24 | uint32(data[4*i+1])<<16 | uint32(data[4*i+2])<<8 | uint32(data[4*i+3])
		odd[i], even[i] = shuffle(ldata)
		sum ^= uint32(odd[i]) ^ uint32(even[i])
	}

	w.writeByte(byte(sum >> 24))
	w.writeByte(byte(sum >> 16))
	w.writeByte(byte(sum >> 8))
	w.writeByte(byte(sum))

	for i := 0; i < amigaSectorSize/4; i++ {
		w.writeByte(byte(odd[i] >> 8))
		w.writeByte(byte(odd[i]))
	}
	for i := 0; i < amigaSectorSize/4; i++ {
		w.writeByte(byte(even[i] >> 8))
		w.writeByte(byte(even[i]))
	}
}

// EncodeSectorsAmiga encodes a full track of sectorsPerTrack Amiga
// sectors into an MFM buffer no larger than maxBytes. Missing sectors
// (no entry for that index) are written as zero-filled placeholders,
// matching flushPendingWrites' fillData behavior. Reports false if the
// track did not fit in maxBytes.
func EncodeSectorsAmiga(track int, sectors []DecodedSector, sectorsPerTrack, maxBytes int) ([]byte, bool) {
	bySector := make(map[int][]byte, len(sectors))
	for _, s := range sectors {
		bySector[s.Sector] = s.Data
	}

	w := newBitWriter(maxBytes)
	w.writeGap(amigaEncodeGap, amigaGapFillByte)
	for s := 0; s < sectorsPerTrack; s++ {
		data := bySector[s]
		if data == nil {
			data = make([]byte, amigaSectorSize)
		}
		writeAmigaMarker(w)
		writeAmigaIdent(w, track, s, sectorsPerTrack)
		writeAmigaData(w, data)
	}
	if remaining := maxBytes - len(w.bytes()); remaining > 0 {
		w.writeGap(remaining, amigaGapFillByte)
	}
	if w.overflowed() {
		return nil, false
	}
	return w.bytes(), true
}
