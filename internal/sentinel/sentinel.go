package sentinel

import "errors"

// Sentinel dependency errors. Dependencies should return these (optionally
// wrapped) so services can translate them into domain errors exactly once.
var (
	ErrNotFound        = errors.New("not found")
	ErrInvalidInput    = errors.New("invalid input")
	ErrInvalidState    = errors.New("invalid state")
	ErrInProgress      = errors.New("operation in progress")
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrUnavailable     = errors.New("unavailable")
	ErrNetwork         = errors.New("network failure")
)
