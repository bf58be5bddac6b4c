package filebackend

import (
	"strings"

	"golang.org/x/text/encoding/charmap"
)

// OEM name and volume label live at fixed offsets in a FAT12/16 boot
// sector, the same BPB layout GetTrackDetailsIBM reads geometry from.
const (
	oemNameOffset  = 3
	oemNameLen     = 8
	volLabelOffset = 43
	volLabelLen    = 11
)

// OEMName reads and CP437-decodes the eight-byte OEM identifier from an
// IBM/Atari boot sector. It returns "" for an Amiga-formatted backend or
// a boot sector too short to hold a BPB.
func (fb *FileBackend) OEMName() (string, error) {
	return fb.decodeBootSectorField(oemNameOffset, oemNameLen)
}

// VolumeLabel reads and CP437-decodes the eleven-byte volume label from
// an IBM/Atari boot sector's extended BPB.
func (fb *FileBackend) VolumeLabel() (string, error) {
	return fb.decodeBootSectorField(volLabelOffset, volLabelLen)
}

func (fb *FileBackend) decodeBootSectorField(offset, length int) (string, error) {
	if fb.geometry.Type != IBM && fb.geometry.Type != Atari {
		return "", nil
	}
	buf := make([]byte, 512)
	if err := fb.InternalRead(0, 512, buf); err != nil {
		return "", err
	}
	if offset+length > len(buf) {
		return "", nil
	}
	// Boot sectors store text in the OEM code page, not UTF-8 or ASCII;
	// CP437 is the DOS default and what FatFs assumes for these fields.
	decoded, err := charmap.CodePage437.NewDecoder().String(string(buf[offset : offset+length]))
	if err != nil {
		return "", err
	}
	return strings.TrimRight(decoded, " \x00"), nil
}
