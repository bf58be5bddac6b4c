package filebackend

import (
	"encoding/binary"
	"io"
)

const msaRLEMarker = 0xe5

// decodeMSATrack reads dataSize bytes at the entry's seek position and
// expands them if they're RLE-compressed. Uncompressed tracks store
// exactly bytesPerSector*sectorsPerTrack bytes; anything else is RLE:
// runs are encoded as {0xE5, fillByte, lenHi, lenLo}, everything else
// copies through literally.
func (fb *FileBackend) decodeMSATrack(entry *msaTrackEntry) error {
	uncompressedSize := int64(fb.geometry.BytesPerSector) * int64(fb.geometry.SectorsPerTrack)

	if _, err := fb.file.Seek(entry.seekPos, io.SeekStart); err != nil {
		return err
	}
	raw := make([]byte, entry.dataSize)
	if _, err := io.ReadFull(fb.file, raw); err != nil {
		return err
	}

	if entry.dataSize == uncompressedSize {
		entry.data = raw
		return nil
	}

	decoded := make([]byte, 0, uncompressedSize)
	for pos := 0; pos < len(raw); {
		if raw[pos] == msaRLEMarker && pos+3 < len(raw) {
			fillByte := raw[pos+1]
			runLen := int(binary.BigEndian.Uint16(raw[pos+2 : pos+4]))
			for i := 0; i < runLen; i++ {
				decoded = append(decoded, fillByte)
			}
			pos += 4
			continue
		}
		decoded = append(decoded, raw[pos])
		pos++
	}
	entry.data = decoded
	return nil
}

// trackEntry resolves (decoding on first access) the msaTrackEntry
// covering trackSeek, walking the sparse index forward from the highest
// previously-decoded track the way decodeMSATrack's caller does, so a
// sequential scan never rewinds.
func (fb *FileBackend) trackEntry(trackSeek int) (*msaTrackEntry, error) {
	if e, ok := fb.trackIndex[trackSeek]; ok {
		return e, nil
	}

	startSeekPos := int64(msaHeaderSize)
	track := fb.firstTrack
	if len(fb.trackIndex) > 0 {
		highest := fb.firstTrack - 1
		for t := range fb.trackIndex {
			if t > highest {
				highest = t
			}
		}
		track = highest + 1
		e := fb.trackIndex[highest]
		startSeekPos = e.seekPos + e.dataSize
	}

	if _, err := fb.file.Seek(startSeekPos, io.SeekStart); err != nil {
		return nil, err
	}

	for track <= trackSeek {
		var sizeBuf [2]byte
		if _, err := io.ReadFull(fb.file, sizeBuf[:]); err != nil {
			return nil, err
		}
		dataSize := int64(binary.BigEndian.Uint16(sizeBuf[:]))
		startSeekPos += 2

		entry := &msaTrackEntry{seekPos: startSeekPos, dataSize: dataSize}
		if err := fb.decodeMSATrack(entry); err != nil {
			return nil, err
		}
		fb.trackIndex[track] = entry
		startSeekPos += dataSize
		if _, err := fb.file.Seek(startSeekPos, io.SeekStart); err != nil {
			return nil, err
		}
		track++
	}

	e, ok := fb.trackIndex[trackSeek]
	if !ok {
		return nil, io.ErrUnexpectedEOF
	}
	return e, nil
}
