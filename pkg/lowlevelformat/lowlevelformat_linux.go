//go:build linux

package lowlevelformat

import (
	"fmt"
	"strings"
)

// attempt requires proper FDC ioctls (/dev/fdX) or SCSI FORMAT UNIT for USB
// bridges, neither of which this package drives.
func attempt(path string) error {
	if strings.HasPrefix(path, "/dev/fd") {
		return fmt.Errorf("low-level format for %s not implemented (needs FDC ioctls)", path)
	}
	return fmt.Errorf("device %s exposes no low-level format primitive; use pre-formatted media", path)
}
