package api

import "errors"

// Driver initialization errors
var (
	ErrUnknownDriver    = errors.New("unknown driver")
	ErrDriverInitFailed = errors.New("failed to initialize driver")
)
