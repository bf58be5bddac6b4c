// Package bridge defines the interface the MFM track engine uses to
// drive a physical (or simulated) floppy drive: raw flux transfer,
// seeking, motor control, and media-presence queries. Nothing in this
// package interprets sector contents — that is mfmcodec's job — bridge
// only moves bytes and flux buffers across the wire to the drive.
package bridge

// RetryHint tells a physical bridge how hard to try recovering a flux
// read: on later retries some bridges lower read speed or re-arm the
// PLL, which is opaque to the engine but worth signaling.
type RetryHint int

// Drive is the physical (or simulated) floppy-bridge interface the MFM
// track engine consumes. It is grounded on mfminterface.cpp's calls into
// the bridge driver: mfmRead has two overloads there (by absolute track,
// and by cylinder+head), both kept here since the hybrid dispatch logic
// in the track engine uses both addressing styles depending on whether
// the two planes share a head count.
type Drive interface {
	// MFMReadTrack reads the flux for an absolute track number into buf,
	// returning the number of valid bits received (0 on failure).
	MFMReadTrack(track int, retry RetryHint, buf []byte) int
	// MFMReadCylinderHead reads the flux for a given cylinder/head pair.
	MFMReadCylinderHead(cylinder, head int, retry RetryHint, buf []byte) int
	// MFMWrite writes count bytes of pre-encoded MFM flux to the given
	// cylinder/head. isIBMLike selects the write-precompensation profile
	// physical drives use for IBM/Atari versus Amiga encoding.
	MFMWrite(cylinder, head int, isIBMLike bool, buf []byte, count int) bool

	CylinderSeek(cylinder, head int) bool
	MotorEnable(on, upperHead bool)
	MotorReady() bool
	WriteCompleted() bool
	ResetDrive(cylinder int) bool

	IsPhysicalDisk() bool
	IsDiskInDrive() bool
	IsDriveWriteProtected() bool
	IsHD() bool
	RestoreDrive() bool
}
