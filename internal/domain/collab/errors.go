package collab

import "errors"

var (
	// ErrInvalidInput indicates an invalid request.
	ErrInvalidInput = errors.New("invalid input")
)
