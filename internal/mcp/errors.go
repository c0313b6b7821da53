package mcp

import (
	"errors"
	"fmt"

	"github.com/rpggio/proofchain/internal/domain/event"
	"github.com/rpggio/proofchain/internal/domain/project"
)

// APIError represents an MCP error response.
type APIError struct {
	Code         string `json:"code"`
	Message      string `json:"message"`
	Details      any    `json:"details,omitempty"`
	RecoveryHint string `json:"recovery_hint,omitempty"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *APIError) CodeValue() string {
	return e.Code
}

func (e *APIError) MessageValue() string {
	return e.Message
}

func (e *APIError) DetailsValue() any {
	return e.Details
}

func (e *APIError) RecoveryHintValue() string {
	return e.RecoveryHint
}

// MapError maps domain errors to stable MCP error codes. Self-dealing is
// checked before unauthorized because it wraps it.
func MapError(err error) *APIError {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, project.ErrSelfDealing):
		return &APIError{Code: "SELF_DEALING", Message: "client cannot accept their own project", RecoveryHint: "Accept with a different identity"}
	case errors.Is(err, project.ErrUnauthorized):
		return &APIError{Code: "UNAUTHORIZED", Message: "caller not authorized for this project", RecoveryHint: "Check the project's client and freelancer"}
	case errors.Is(err, project.ErrInvalidAmount):
		return &APIError{Code: "INVALID_AMOUNT", Message: "amount must be a positive base-10 integer", RecoveryHint: "Attach a value greater than zero"}
	case errors.Is(err, project.ErrInvalidState):
		return &APIError{Code: "INVALID_STATE", Message: "operation not allowed in current project status", RecoveryHint: "Call get_project to read the current status"}
	case errors.Is(err, project.ErrProjectNotFound):
		return &APIError{Code: "NOT_FOUND", Message: "project not found", RecoveryHint: "Check the id against get_project_count"}
	case errors.Is(err, project.ErrInvalidInput), errors.Is(err, event.ErrInvalidInput):
		return &APIError{Code: "INVALID_INPUT", Message: err.Error(), RecoveryHint: "Fix the request arguments"}
	default:
		return nil
	}
}

func mapError(err error) error {
	if apiErr := MapError(err); apiErr != nil {
		return apiErr
	}
	return err
}
