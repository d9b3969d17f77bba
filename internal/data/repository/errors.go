package repository

import "errors"

var (
	ErrNotFound = errors.New("record not found")
	// ErrConcurrentUpdate means the stored version moved since the caller read it.
	ErrConcurrentUpdate = errors.New("booking was modified concurrently")
	ErrDuplicate        = errors.New("record already exists")
)
