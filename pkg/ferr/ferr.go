// Package ferr defines the sentinel errors shared across the sector cache,
// file backend, and MFM track engine. The packages return these values
// as they are, without wrapping, so callers can branch on them with
// errors.Is or plain comparison.
package ferr

import "errors"

var (
	// ErrNoMedia is returned when an operation requires a disk/image to be
	// present and none is.
	ErrNoMedia = errors.New("no media in drive")

	// ErrWriteProtected is returned when a write is attempted against
	// read-only media (physically protected, or a read-only format such as
	// MSA).
	ErrWriteProtected = errors.New("media is write-protected")

	// ErrBadGeometry is returned when a boot sector or MSA header cannot
	// be parsed into a usable geometry.
	ErrBadGeometry = errors.New("could not determine disk geometry")

	// ErrCodecMismatch is returned when MFM bits did not decode into a
	// valid sector after all permitted retries.
	ErrCodecMismatch = errors.New("mfm decode failed")

	// ErrVerifyMismatch names a post-write read-back that differs from
	// what was written. No package returns it: a track whose verify never
	// matches makes the write-back flush report false instead.
	ErrVerifyMismatch = errors.New("write verify mismatch")

	// ErrTimeout covers motor spin-up, seek, and write-completion
	// timeouts.
	ErrTimeout = errors.New("operation timed out")

	// ErrBridgeFailure is returned when the physical bridge driver itself
	// reports failure (not a media condition).
	ErrBridgeFailure = errors.New("bridge driver failure")

	// ErrUnsupportedType is returned when a write is attempted while the
	// disk type is Hybrid or Unknown.
	ErrUnsupportedType = errors.New("operation unsupported for this disk type")

	// ErrUserAborted is returned when an operator-facing retry prompt
	// resolves to Abort.
	ErrUserAborted = errors.New("aborted by operator")
)
