//go:build windows

package lowlevelformat

import "fmt"

// attempt: SPTI FORMAT UNIT is device-specific and needs admin rights;
// not implemented here.
func attempt(path string) error {
	return fmt.Errorf("low-level format not implemented for Windows device %s", path)
}
