package project

import (
	"errors"
	"fmt"
)

var (
	// ErrProjectNotFound indicates the project doesn't exist.
	ErrProjectNotFound = errors.New("project not found")
	// ErrInvalidInput indicates invalid project input.
	ErrInvalidInput = errors.New("invalid project input")
	// ErrInvalidAmount indicates a non-positive escrow amount.
	ErrInvalidAmount = errors.New("amount must be greater than zero")
	// ErrUnauthorized indicates the caller lacks the role for the operation.
	ErrUnauthorized = errors.New("caller not authorized for this project")
	// ErrInvalidState indicates the operation is illegal from the current status.
	ErrInvalidState = errors.New("operation not allowed in current project status")
	// ErrSelfDealing indicates a client tried to accept their own project.
	ErrSelfDealing = fmt.Errorf("%w: client cannot accept their own project", ErrUnauthorized)
)
