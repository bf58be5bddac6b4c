// Package lowlevelformat is a best-effort capability probe for track-level
// formatting of a raw device path. It never touches MFM framing itself —
// that belongs to pkg/bridge's hardware driver, which this module does not
// implement (spec: the flux-level bridge driver is external). This package
// only tells "device format-hint" whether a given path is
// even a candidate for it, mirroring what a formatter would check before
// attempting a real low-level format.
package lowlevelformat

// Attempt reports whether path exposes a low-level format primitive this
// build knows how to drive. It is always an error today: none of the
// per-OS primitives (FDC ioctls on Linux, SPTI FORMAT UNIT on Windows, no
// stable API at all on macOS) are implemented, matching upstream reality —
// USB floppy-emulating bridges virtually always require pre-formatted
// media anyway.
func Attempt(path string) error {
	return attempt(path)
}
