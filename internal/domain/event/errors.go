package event

import "errors"

var (
	// ErrInvalidInput indicates invalid event listing input.
	ErrInvalidInput = errors.New("invalid event input")
)
