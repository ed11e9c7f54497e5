package domain

import "errors"

var (
	ErrNotFound    = errors.New("not found")
	ErrValidation  = errors.New("validation failed")
	ErrConflict    = errors.New("already reported")
	ErrComputation = errors.New("no valid fair-price estimate")
	ErrLockHeld    = errors.New("lock already held")
)
