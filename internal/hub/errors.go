package hub

import "errors"

var (
	ErrNoHubFound       = errors.New("no available USB hub found")
	ErrPasswordRequired = errors.New("password is required for this operation")
	ErrBadResponse      = errors.New("unexpected response from vendor executable")
	ErrInvalidFormat    = errors.New("invalid format: must be B (bitmap) or H (hex)")
)
