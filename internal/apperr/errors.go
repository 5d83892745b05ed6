package apperr

import "errors"

var (
	// ErrAuthentication covers both a wrong password and a tampered or
	// corrupted blob; callers must not be able to tell the two apart.
	ErrAuthentication = errors.New("authentication failed")
	ErrAlreadyExists  = errors.New("already exists")
	ErrNotFound       = errors.New("not found")
	ErrSchema         = errors.New("invalid schema")
	ErrLocked         = errors.New("vault locked")
	ErrInvalidIndex   = errors.New("invalid index")
)
