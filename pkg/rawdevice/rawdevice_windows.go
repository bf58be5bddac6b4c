//go:build windows

package rawdevice

import (
	"fmt"
	"os"
	"strings"
	"unsafe"

	"golang.org/x/sys/windows"
)

const (
	fsctlLockVolume       = 0x90018
	fsctlDismountVolume   = 0x90020
	fsctlUnlockVolume     = 0x9001c
	fileFlagWriteThrough  = 0x80000000
)

func deviceSize(f *os.File) (int64, error) {
	return 0, os.ErrInvalid
}

func openPlatform(path string, writable bool) (*os.File, error) {
	return openWindowsFloppy(path, writable)
}

// openWindowsFloppy locks and dismounts a drive-letter path before opening
// it for exclusive raw access, mirroring what any tool that writes whole
// sectors to a live Windows volume must do first.
func openWindowsFloppy(path string, writable bool) (*os.File, error) {
	if isDriveLetterPath(path) {
		if _, err := lockAndDismount(path); err != nil {
			return nil, err
		}
	}

	access := uint32(windows.GENERIC_READ)
	if writable {
		access |= windows.GENERIC_WRITE
	}
	h, err := windows.CreateFile(
		windows.StringToUTF16Ptr(path),
		access,
		0,
		nil,
		windows.OPEN_EXISTING,
		fileFlagWriteThrough,
		0,
	)
	if err != nil {
		return nil, fmt.Errorf("open device %s: %w (needs administrator privileges and an unused drive)", path, err)
	}
	f := os.NewFile(uintptr(h), path)
	if f == nil {
		windows.CloseHandle(h)
		return nil, fmt.Errorf("open device %s: could not wrap handle", path)
	}
	return f, nil
}

func isDriveLetterPath(p string) bool {
	if len(p) < 6 || !strings.HasPrefix(p, `\\.\`) {
		return false
	}
	letter := p[4]
	return letter >= 'A' && letter <= 'Z'
}

func lockAndDismount(devicePath string) (windows.Handle, error) {
	driveLetter := devicePath[4:5]
	volumePath := `\\.\` + driveLetter + `:`

	h, err := windows.CreateFile(
		windows.StringToUTF16Ptr(volumePath),
		windows.GENERIC_READ|windows.GENERIC_WRITE,
		0,
		nil,
		windows.OPEN_EXISTING,
		0,
		0,
	)
	if err != nil {
		return 0, fmt.Errorf("open volume %s: %w", volumePath, err)
	}

	k32 := windows.NewLazySystemDLL("kernel32.dll")
	deviceIoControl := k32.NewProc("DeviceIoControl")
	var bytesReturned uint32

	if r1, _, lastErr := deviceIoControl.Call(uintptr(h), fsctlLockVolume, 0, 0, 0, 0, uintptr(unsafe.Pointer(&bytesReturned)), 0); r1 == 0 {
		windows.CloseHandle(h)
		if lastErr == windows.ERROR_NOT_SUPPORTED {
			return 0, nil
		}
		return 0, fmt.Errorf("lock volume %s (close programs using it): %w", volumePath, lastErr)
	}

	if r1, _, lastErr := deviceIoControl.Call(uintptr(h), fsctlDismountVolume, 0, 0, 0, 0, uintptr(unsafe.Pointer(&bytesReturned)), 0); r1 == 0 {
		deviceIoControl.Call(uintptr(h), fsctlUnlockVolume, 0, 0, 0, 0, uintptr(unsafe.Pointer(&bytesReturned)), 0)
		windows.CloseHandle(h)
		if lastErr != windows.ERROR_NOT_SUPPORTED && lastErr != windows.ERROR_NOT_LOCKED {
			return 0, fmt.Errorf("dismount volume %s: %w", volumePath, lastErr)
		}
		return 0, nil
	}
	return h, nil
}

func driveTypeString(t uint32) string {
	switch t {
	case 2:
		return "removable"
	case 3:
		return "fixed"
	case 4:
		return "network"
	case 5:
		return "cdrom"
	case 6:
		return "ramdisk"
	default:
		return "unknown"
	}
}

func getDriveType(root string) uint32 {
	k32 := windows.NewLazySystemDLL("kernel32.dll")
	proc := k32.NewProc("GetDriveTypeW")
	p, _ := windows.UTF16PtrFromString(root)
	r0, _, _ := proc.Call(uintptr(unsafe.Pointer(p)))
	return uint32(r0)
}

func getTotalBytes(root string) uint64 {
	k32 := windows.NewLazySystemDLL("kernel32.dll")
	proc := k32.NewProc("GetDiskFreeSpaceExW")
	p, _ := windows.UTF16PtrFromString(root)
	var total uint64
	proc.Call(uintptr(unsafe.Pointer(p)), 0, uintptr(unsafe.Pointer(&total)), 0)
	return total
}

func discover() ([]MountInfo, error) {
	var out []MountInfo
	for l := byte('A'); l <= byte('Z'); l++ {
		root := fmt.Sprintf("%c:\\", l)
		typeCode := getDriveType(root)
		if typeCode == 0 || typeCode == 1 {
			continue
		}
		out = append(out, MountInfo{
			MountPoint: root,
			Device:     fmt.Sprintf(`\\.\%c:`, l),
			FSType:     driveTypeString(typeCode),
			SizeBytes:  int64(getTotalBytes(root)),
		})
	}
	return out, nil
}
