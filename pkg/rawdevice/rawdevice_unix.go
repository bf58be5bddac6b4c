//go:build !windows

package rawdevice

import (
	"fmt"
	"os"
	"syscall"
	"unsafe"
)

func openPlatform(path string, writable bool) (*os.File, error) {
	flag := os.O_RDONLY
	if writable {
		flag = os.O_RDWR
	}
	f, err := os.OpenFile(path, flag, 0)
	if err != nil {
		return nil, fmt.Errorf("open device %s: %w", path, err)
	}
	return f, nil
}

// deviceSize probes a block device's size via OS-specific ioctls when a
// plain Seek(SEEK_END) fails, which is normal for whole-disk device nodes.
func deviceSize(f *os.File) (int64, error) {
	const (
		dkiocGetBlockSize  = 0x40046418 // macOS/BSD: _IOR('d', 24, uint32)
		dkiocGetBlockCount = 0x40086419 // macOS/BSD: _IOR('d', 25, uint64)
		blkGetSize64       = 0x80081272 // Linux: BLKGETSIZE64
	)

	var blockSize uint32
	_, _, errno := syscall.Syscall(syscall.SYS_IOCTL, f.Fd(), dkiocGetBlockSize, uintptr(unsafe.Pointer(&blockSize)))
	if errno != 0 {
		var sizeBytes uint64
		_, _, errno = syscall.Syscall(syscall.SYS_IOCTL, f.Fd(), blkGetSize64, uintptr(unsafe.Pointer(&sizeBytes)))
		if errno != 0 {
			return 0, fmt.Errorf("cannot determine device size: %v", errno)
		}
		return int64(sizeBytes), nil
	}

	var blockCount uint64
	_, _, errno = syscall.Syscall(syscall.SYS_IOCTL, f.Fd(), dkiocGetBlockCount, uintptr(unsafe.Pointer(&blockCount)))
	if errno != 0 {
		return 0, fmt.Errorf("cannot get block count: %v", errno)
	}
	return int64(blockSize) * int64(blockCount), nil
}
