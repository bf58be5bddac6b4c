//go:build darwin

package rawdevice

import (
	"path/filepath"

	"golang.org/x/sys/unix"
)

func discover() ([]MountInfo, error) {
	n, err := unix.Getfsstat(nil, unix.MNT_NOWAIT)
	if err != nil || n <= 0 {
		return nil, err
	}
	buf := make([]unix.Statfs_t, n)
	if _, err := unix.Getfsstat(buf, unix.MNT_NOWAIT); err != nil {
		return nil, err
	}

	out := make([]MountInfo, 0, len(buf))
	for _, st := range buf {
		out = append(out, MountInfo{
			MountPoint: filepath.Clean(bytesToString(st.Mntonname[:])),
			Device:     bytesToString(st.Mntfromname[:]),
			FSType:     bytesToString(st.Fstypename[:]),
			SizeBytes:  int64(st.Blocks) * int64(st.Bsize),
		})
	}
	return out, nil
}

func bytesToString(b []byte) string {
	n := 0
	for n < len(b) && b[n] != 0 {
		n++
	}
	return string(b[:n])
}
