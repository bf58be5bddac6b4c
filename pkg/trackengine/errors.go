package trackengine

import "floppyfs/pkg/ferr"

var (
	errNoMedia        = ferr.ErrNoMedia
	errWriteProtected = ferr.ErrWriteProtected
	errBadGeometry    = ferr.ErrBadGeometry
	errCodecMismatch  = ferr.ErrCodecMismatch
	errVerifyMismatch = ferr.ErrVerifyMismatch
	errTimeout        = ferr.ErrTimeout
	errUnsupportedType = ferr.ErrUnsupportedType
	errUserAborted    = ferr.ErrUserAborted
)
