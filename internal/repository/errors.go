package repository

import "errors"

// Repository errors. Every operation may fail with one of these; callers
// classify with errors.Is.
var (
	ErrUnauthenticated = errors.New("not authenticated")
	ErrNotFound        = errors.New("incident not found")
	ErrUnavailable     = errors.New("backend unavailable")
	ErrInvalid         = errors.New("invalid input")
)
