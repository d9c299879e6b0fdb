package portstate

import "errors"

// Codec validation errors
var (
	ErrInvalidLength    = errors.New("port state length does not match port count")
	ErrInvalidHex       = errors.New("invalid hex port state")
	ErrInvalidBitmap    = errors.New("invalid bitmap port state")
	ErrInvalidPortCount = errors.New("invalid port count")
)
