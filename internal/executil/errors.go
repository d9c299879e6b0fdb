package executil

import "errors"

var (
	ErrExternalExecution = errors.New("external command failed")
)
