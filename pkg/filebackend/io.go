package filebackend

import (
	"io"

	"floppyfs/pkg/ferr"
)

// InternalRead implements sectorcache.Backend.
func (fb *FileBackend) InternalRead(sectorNumber, sectorSize uint32, out []byte) error {
	switch fb.mode {
	case modeMSA:
		return fb.readMSASector(sectorNumber, sectorSize, out)
	default:
		return fb.readNormalSector(sectorNumber, sectorSize, out)
	}
}

// InternalWrite implements sectorcache.Backend. MSA images are read-only.
func (fb *FileBackend) InternalWrite(sectorNumber, sectorSize uint32, in []byte) error {
	if fb.mode == modeMSA {
		return ferr.ErrWriteProtected
	}
	pos := int64(sectorNumber) * int64(sectorSize)
	if _, err := fb.file.Seek(pos, io.SeekStart); err != nil {
		return err
	}
	n, err := fb.file.Write(in[:sectorSize])
	if err != nil {
		return err
	}
	if n != int(sectorSize) {
		return io.ErrShortWrite
	}
	return nil
}

// InternalHybridRead has no separate plane concept for a file-backed
// image; it reads the same sector InternalRead would.
func (fb *FileBackend) InternalHybridRead(sectorNumber, sectorSize uint32, out []byte) error {
	return fb.InternalRead(sectorNumber, sectorSize, out)
}

func (fb *FileBackend) readNormalSector(sectorNumber, sectorSize uint32, out []byte) error {
	pos := int64(sectorNumber) * int64(sectorSize)
	if _, err := fb.file.Seek(pos, io.SeekStart); err != nil {
		return err
	}
	_, err := io.ReadFull(fb.file, out[:sectorSize])
	return err
}

func (fb *FileBackend) readMSASector(sectorNumber, sectorSize uint32, out []byte) error {
	spt := uint32(fb.geometry.SectorsPerTrack)
	if spt == 0 {
		return ferr.ErrBadGeometry
	}
	trackSeek := int(sectorNumber / spt)
	entry, err := fb.trackEntry(trackSeek)
	if err != nil {
		return err
	}
	memPos := int(sectorNumber%spt) * int(sectorSize)
	if memPos+int(sectorSize) > len(entry.data) {
		return ferr.ErrCodecMismatch
	}
	copy(out[:sectorSize], entry.data[memPos:memPos+int(sectorSize)])
	return nil
}

// Close releases the underlying file handle.
func (fb *FileBackend) Close() error {
	return fb.file.Close()
}
