//go:build linux

package rawdevice

import (
	"bufio"
	"os"
	"strconv"
	"strings"
)

func discover() ([]MountInfo, error) {
	f, err := os.Open("/proc/self/mounts")
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var out []MountInfo
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) < 3 {
			continue
		}
		device, mountPoint, fsType := fields[0], fields[1], fields[2]
		out = append(out, MountInfo{
			MountPoint: mountPoint,
			Device:     device,
			FSType:     fsType,
		})
	}
	return out, sc.Err()
}

// devicePathLooksRemovable is a loose heuristic that flags floppy-shaped
// candidates such as /dev/fd0 or /dev/sdX without a trailing partition
// number. Nothing in the module calls it; "device list" does not filter
// on it.
func devicePathLooksRemovable(path string) bool {
	if strings.HasPrefix(path, "/dev/fd") {
		return true
	}
	if !strings.HasPrefix(path, "/dev/sd") && !strings.HasPrefix(path, "/dev/nvme") {
		return false
	}
	last := path[len(path)-1]
	_, err := strconv.Atoi(string(last))
	return err != nil
}
