//go:build darwin

package lowlevelformat

import "fmt"

// attempt: macOS exposes no stable API for track-level format of USB
// floppy-emulating bridges.
func attempt(path string) error {
	return fmt.Errorf("low-level format not supported on macOS for %s; use pre-formatted media", path)
}
