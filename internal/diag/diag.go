// Package diag centralizes the stderr diagnostic conventions floppyctl
// uses: fatal errors, warnings, and informational progress notes.
package diag

import (
	"fmt"
	"os"
)

// Fatalf prints "error: <msg>" to stderr and exits(2), the same
// convention the original CLI's must() used for any command that can't
// proceed.
func Fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "error: "+format+"\n", args...)
	os.Exit(2)
}

// Must exits(2) with err's message if err is non-nil.
func Must(err error) {
	if err != nil {
		Fatalf("%v", err)
	}
}

// Warnf prints "WARNING: <msg>" to stderr without exiting.
func Warnf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "WARNING: "+format+"\n", args...)
}

// Infof prints "INFO: <msg>" to stderr.
func Infof(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "INFO: "+format+"\n", args...)
}
