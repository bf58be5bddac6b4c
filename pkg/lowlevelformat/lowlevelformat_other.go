//go:build !windows && !darwin && !linux

package lowlevelformat

import "fmt"

func attempt(path string) error {
	return fmt.Errorf("low-level format not implemented on this platform for %s", path)
}
