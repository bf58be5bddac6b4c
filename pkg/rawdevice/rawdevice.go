// Package rawdevice opens OS-level block-device paths (floppy drives,
// floppy-emulating USB bridges, loopback devices) as plain byte-addressable
// files so that pkg/filebackend can read and write sectors from them the
// same way it reads and writes a disk-image file.
//
// It never speaks MFM and knows nothing about sector formats; it only
// answers "give me an io.ReaderAt/io.WriterAt for this path, and tell me
// how big it is". The physical-bridge driver (flux-level access) is a
// separate, external collaborator — see pkg/bridge.
package rawdevice

import (
	"fmt"
	"io"
	"os"
)

// MountInfo describes a mounted volume discovered on the host, used by
// "floppyctl device list" to suggest candidate device paths.
type MountInfo struct {
	MountPoint string
	Device     string
	FSType     string
	SizeBytes  int64
}

// OpenForFloppy opens path for sector-level access. On most platforms this
// is an ordinary os.OpenFile; Windows drive-letter paths require additional
// locking/dismounting handled in rawdevice_windows.go.
func OpenForFloppy(path string, writable bool) (*os.File, error) {
	return openPlatform(path, writable)
}

// Size returns the size in bytes of an open device or regular file.
func Size(f *os.File) (int64, error) {
	size, err := f.Seek(0, io.SeekEnd)
	if err == nil {
		if _, serr := f.Seek(0, io.SeekStart); serr != nil {
			return 0, fmt.Errorf("seek device: %w", serr)
		}
		return size, nil
	}
	return deviceSize(f)
}

// Discover lists mounted volumes as candidate raw-device paths. It never
// formats or writes; callers still need OpenForFloppy to actually bind one.
func Discover() ([]MountInfo, error) {
	return discover()
}
