package domain

import "errors"

// Error taxonomy shared by usecases and handlers. Wrap with pkg/errors
// to add context; handlers match with errors.Is.
var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrConflict     = errors.New("conflict")
	ErrUpstream     = errors.New("upstream failure")
)
